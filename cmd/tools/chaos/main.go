// Command chaos copies a tick tape while dropping, duplicating, reordering
// and delaying ticks.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"time"

	"tradingdesk/internal/chaos"
	"tradingdesk/internal/tape"
	"tradingdesk/pkg/market"
)

func main() {
	inputDir := flag.String("input-dir", "testdata/tape", "input tape directory")
	inputPrefix := flag.String("input-prefix", "", "input tape prefix (default: ticks)")
	outputDir := flag.String("output-dir", "testdata/tape_chaos", "output tape directory")
	outputPrefix := flag.String("output-prefix", "chaos", "output tape prefix")
	seed := flag.Int64("seed", 0, "RNG seed (0=now)")
	dropRate := flag.Float64("drop-rate", 0, "drop probability [0-1]")
	dupRate := flag.Float64("dup-rate", 0, "duplicate probability [0-1]")
	reorderWindow := flag.Int("reorder-window", 1, "reorder window (>=1)")
	maxDelay := flag.Duration("max-delay", 0, "max timestamp delay")
	noChecksum := flag.Bool("no-checksum", false, "disable checksum validation")
	flag.Parse()

	pb, err := tape.NewPlayback(tape.PlaybackConfig{
		Dir:             *inputDir,
		Prefix:          *inputPrefix,
		DisableChecksum: *noChecksum,
	})
	if err != nil {
		log.Fatalf("playback init failed: %v", err)
	}

	engine, err := chaos.NewEngine(chaos.Config{
		Seed:          *seed,
		DropRate:      *dropRate,
		DuplicateRate: *dupRate,
		ReorderWindow: *reorderWindow,
		MaxDelay:      *maxDelay,
	})
	if err != nil {
		log.Fatalf("chaos config invalid: %v", err)
	}

	outCfg := tape.DefaultConfig(*outputDir)
	outCfg.Prefix = *outputPrefix
	writer, err := tape.NewWriter(outCfg)
	if err != nil {
		log.Fatalf("writer init failed: %v", err)
	}
	ctx := context.Background()
	if err := writer.Start(ctx); err != nil {
		log.Fatalf("writer start failed: %v", err)
	}

	err = pb.Run(ctx, func(tick market.Tick) error {
		for _, out := range engine.Process(tick) {
			if err := appendTick(writer, out); err != nil {
				return err
			}
		}
		return nil
	})
	if err == nil {
		for _, out := range engine.Flush() {
			if err := appendTick(writer, out); err != nil {
				log.Fatalf("append failed: %v", err)
			}
		}
	}
	if err != nil {
		log.Fatalf("playback failed: %v", err)
	}
	if err := writer.Close(); err != nil {
		log.Fatalf("writer close failed: %v", err)
	}
}

// appendTick waits for room in the writer queue, an offline copy must not
// lose ticks.
func appendTick(writer *tape.Writer, tick market.Tick) error {
	for {
		err := writer.TryAppend(tick)
		if !errors.Is(err, tape.ErrQueueFull) {
			return err
		}
		time.Sleep(time.Millisecond)
	}
}
