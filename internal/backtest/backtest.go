// Package backtest runs one algorithm against a recorded tape on a paper
// deposit.
package backtest

import (
	"context"
	goerrors "errors"
	"time"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"

	"tradingdesk/internal/broker/paper"
	"tradingdesk/internal/engine"
	"tradingdesk/internal/obs"
	"tradingdesk/internal/risk"
	"tradingdesk/internal/tape"
	"tradingdesk/pkg/exception"
	"tradingdesk/pkg/ledger"
	"tradingdesk/pkg/market"
	"tradingdesk/pkg/sdk"
)

type Config struct {
	Derivative   sdk.Derivative
	TimeStep     time.Duration
	Currency     ledger.Currency
	Cash         market.Price
	Risk         risk.Config
	HistoryLimit int
	Playback     tape.PlaybackConfig
}

// Result summarizes a finished run. Equity values open positions at the last
// price.
type Result struct {
	Status     engine.Status `json:"status"`
	StartCash  market.Price  `json:"startCash"`
	Equity     market.Price  `json:"equity"`
	PnL        market.Price  `json:"pnl"`
	Fills      int           `json:"fills"`
	Rejections int           `json:"rejections"`
	StoppedBy  string        `json:"stoppedBy,omitempty"`
	Metrics    obs.Snapshot  `json:"metrics"`
}

var errStop = goerrors.New("backtest stopped")

// Run drives algo through every taped tick of cfg.Derivative.Symbol, then
// shuts it down. An overrun or a fault ends the run early and is reported in
// Result.StoppedBy, not as an error.
func Run(ctx context.Context, algo engine.Handle, cfg Config, opts ...engine.SessionOption) (Result, error) {
	pb := cfg.Playback
	pb.Symbol = cfg.Derivative.Symbol
	playback, err := tape.NewPlayback(pb)
	if err != nil {
		return Result{}, err
	}

	deposit := ledger.NewDeposit(ledger.HashRawID("backtest-"+cfg.Derivative.Symbol), cfg.Currency, cfg.Cash)
	metrics := obs.NewMetrics()
	broker := paper.New(1, deposit)
	base := []engine.SessionOption{
		engine.WithExecutor(broker),
		engine.WithMetrics(metrics),
		engine.WithRisk(risk.NewEngine(cfg.Risk)),
	}
	if cfg.HistoryLimit > 0 {
		base = append(base, engine.WithHistoryLimit(cfg.HistoryLimit))
	}
	session := engine.NewSession(algo, deposit, cfg.Derivative, cfg.TimeStep, append(base, opts...)...)
	if err := session.Init(ctx); err != nil {
		return Result{}, err
	}

	result := Result{StartCash: cfg.Cash}
	err = playback.Run(ctx, func(tick market.Tick) error {
		report, err := session.Tick(ctx, tick.Price, tick.At)
		result.Fills += len(report.Fills)
		result.Rejections += len(report.Rejected)
		switch {
		case err == nil:
		case goerrors.Is(err, exception.ErrTickOverrun), goerrors.Is(err, exception.ErrAlgorithmFault):
			result.StoppedBy = err.Error()
			return errStop
		default:
			logs.Errorf("backtest tick %d, err: %+v", report.Seq, err)
		}
		return nil
	})
	if err != nil && !goerrors.Is(err, errStop) {
		return Result{}, errors.Wrap(err, "backtest playback").With("symbol", cfg.Derivative.Symbol)
	}

	if state := session.State(); state != engine.StateTerminated {
		report, err := session.Shutdown(ctx)
		result.Rejections += len(report.Rejected)
		if err != nil && result.StoppedBy == "" {
			result.StoppedBy = err.Error()
		}
	}

	result.Status = session.Status()
	result.Equity = equity(deposit, result.Status.LastPrice)
	result.PnL = result.Equity - result.StartCash
	result.Metrics = metrics.Snapshot()
	return result, nil
}

func equity(d *ledger.Deposit, last market.Price) market.Price {
	value := d.Cash()
	for _, p := range d.Positions() {
		value += last * market.Price(p.Pieces)
	}
	return value
}
