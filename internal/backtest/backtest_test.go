package backtest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradingdesk/internal/engine"
	"tradingdesk/internal/risk"
	"tradingdesk/internal/tape"
	"tradingdesk/pkg/exception"
	"tradingdesk/pkg/ledger"
	"tradingdesk/pkg/market"
	"tradingdesk/pkg/sdk"
)

// buyOnce buys two pieces on its first trading tick and closes on shutdown.
type buyOnce struct {
	bought bool
	panics bool
}

func (b *buyOnce) Name() string                  { return "buyonce" }
func (b *buyOnce) MinDataLength() sdk.DataLength { return sdk.Fixed(2) }
func (b *buyOnce) MaxDataLength() sdk.DataLength { return sdk.Variable() }

func (b *buyOnce) Init(sdk.Derivative, time.Duration) error { return nil }
func (b *buyOnce) CollectPrices([]market.Price) error       { return nil }

func (b *buyOnce) Tick(positions []ledger.Position, _ []market.Price) ([]sdk.Instruction, error) {
	if b.panics {
		return nil, exception.ErrModuleFault
	}
	if b.bought || len(positions) > 0 {
		return nil, nil
	}
	b.bought = true
	return []sdk.Instruction{sdk.PlaceOrder(ledger.NewNormalOrder(ledger.OrderData{
		ID:           1,
		Pieces:       2,
		Type:         ledger.MarketOrder(),
		PositionType: ledger.LongCall,
	}))}, nil
}

func (b *buyOnce) Shutdown(positions []ledger.Position, _ []market.Price) ([]sdk.Instruction, error) {
	out := make([]sdk.Instruction, 0, len(positions))
	for _, p := range positions {
		out = append(out, sdk.ClosePosition(p.ID))
	}
	return out, nil
}

func writeTape(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	w, err := tape.NewWriter(tape.DefaultConfig(dir))
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))

	at := time.Date(2024, 3, 1, 14, 30, 0, 0, time.UTC)
	for i, p := range []market.Price{10, 11, 12, 13} {
		require.NoError(t, w.TryAppend(market.Tick{Symbol: "AAPL", Price: p, At: at.Add(time.Duration(i) * time.Second)}))
		require.NoError(t, w.TryAppend(market.Tick{Symbol: "MSFT", Price: 400, At: at.Add(time.Duration(i) * time.Second)}))
	}
	require.NoError(t, w.Close())
	return dir
}

func config(dir string) Config {
	return Config{
		Derivative: sdk.Derivative{Symbol: "AAPL", Kind: sdk.DerivativeStock},
		TimeStep:   time.Second,
		Currency:   "USD",
		Cash:       1000,
		Playback:   tape.PlaybackConfig{Dir: dir},
	}
}

func TestRun(t *testing.T) {
	result, err := Run(context.Background(), &buyOnce{}, config(writeTape(t)))
	require.NoError(t, err)

	assert.Empty(t, result.StoppedBy)
	assert.Equal(t, engine.StateTerminated, result.Status.State)
	assert.Equal(t, uint64(4), result.Status.Ticks)
	assert.Equal(t, market.Price(13), result.Status.LastPrice)
	assert.Equal(t, 1, result.Fills)
	assert.Zero(t, result.Rejections)
	// bought 2 at 11, sold 2 at 13
	assert.InDelta(t, 1004, result.Equity.Float64(), 1e-9)
	assert.InDelta(t, 4, result.PnL.Float64(), 1e-9)
	assert.Equal(t, uint64(1), result.Metrics.Collects)
	assert.Equal(t, uint64(1), result.Metrics.Fills)
}

func TestRunRiskRejects(t *testing.T) {
	cfg := config(writeTape(t))
	cfg.Risk = risk.Config{KillSwitch: true}

	result, err := Run(context.Background(), &buyOnce{}, cfg)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Rejections)
	assert.Zero(t, result.Fills)
	assert.Equal(t, market.Price(1000), result.Equity)
}

func TestRunStopsOnFault(t *testing.T) {
	result, err := Run(context.Background(), &buyOnce{panics: true}, config(writeTape(t)))
	require.NoError(t, err)
	assert.Contains(t, result.StoppedBy, exception.ErrAlgorithmFault.Error())
	assert.Equal(t, engine.StateTerminated, result.Status.State)
	assert.Equal(t, uint64(2), result.Status.Ticks)
}

func TestRunMissingTape(t *testing.T) {
	cfg := config(t.TempDir() + "/missing")
	_, err := Run(context.Background(), &buyOnce{}, cfg)
	require.Error(t, err)

	_, err = Run(context.Background(), &buyOnce{}, Config{TimeStep: time.Second})
	require.Error(t, err)
}
