// Command replay prints a recorded tick tape, or backtests an algorithm
// plugin against it when -plugin is set.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/bytedance/sonic"

	"tradingdesk/internal/backtest"
	"tradingdesk/internal/loader"
	"tradingdesk/internal/tape"
	"tradingdesk/pkg/ledger"
	"tradingdesk/pkg/market"
	"tradingdesk/pkg/sdk"
)

func main() {
	dir := flag.String("dir", "testdata/tape", "tape directory")
	prefix := flag.String("prefix", "", "tape file prefix (default: ticks)")
	symbol := flag.String("symbol", "", "only replay this symbol")
	speed := flag.Float64("speed", 0, "playback speed (1=real-time, 0=no pacing)")
	noChecksum := flag.Bool("no-checksum", false, "disable checksum validation")
	pluginPath := flag.String("plugin", "", "algorithm plugin to backtest")
	exchange := flag.String("exchange", "", "exchange the derivative trades on")
	step := flag.Duration("step", time.Second, "time step handed to the algorithm")
	cash := flag.Float64("cash", 10000, "starting cash of the paper deposit")
	currency := flag.String("currency", "USD", "deposit currency")
	history := flag.Int("history", 0, "price history limit (0=algorithm maximum)")
	flag.Parse()

	cfg := tape.PlaybackConfig{
		Dir:             *dir,
		Prefix:          *prefix,
		Symbol:          *symbol,
		Speed:           *speed,
		DisableChecksum: *noChecksum,
	}

	ctx := context.Background()
	if *pluginPath == "" {
		if err := dump(ctx, cfg); err != nil {
			log.Fatalf("playback run failed: %v", err)
		}
		return
	}

	if *symbol == "" {
		log.Fatalf("backtest needs -symbol")
	}
	algo, err := loader.Load(*pluginPath)
	if err != nil {
		log.Fatalf("load plugin failed: %v", err)
	}
	result, err := backtest.Run(ctx, algo, backtest.Config{
		Derivative:   sdk.Derivative{Symbol: *symbol, Kind: sdk.DerivativeStock, Exchange: ledger.StockExchange(*exchange)},
		TimeStep:     *step,
		Currency:     ledger.Currency(*currency),
		Cash:         market.Price(*cash),
		HistoryLimit: *history,
		Playback:     cfg,
	})
	if err != nil {
		log.Fatalf("backtest failed: %v", err)
	}

	out, err := sonic.ConfigStd.MarshalIndent(result, "", "  ")
	if err != nil {
		log.Fatalf("encode result failed: %v", err)
	}
	fmt.Fprintln(os.Stdout, string(out))
}

func dump(ctx context.Context, cfg tape.PlaybackConfig) error {
	pb, err := tape.NewPlayback(cfg)
	if err != nil {
		return err
	}
	var index int
	return pb.Run(ctx, func(tick market.Tick) error {
		index++
		fmt.Printf("%06d %s symbol=%s price=%s\n", index, tick.At.Format(time.RFC3339Nano), tick.Symbol, tick.Price)
		return nil
	})
}
