package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradingdesk/internal/obs"
	"tradingdesk/pkg/ledger"
	"tradingdesk/pkg/market"
	"tradingdesk/pkg/sdk"
)

func TestRunnerDrivesSessions(t *testing.T) {
	aapl := &fakeHandle{max: sdk.Variable()}
	msft := &fakeHandle{max: sdk.Variable()}

	m := obs.NewMetrics()
	r := NewRunner(WithQueueCapacity(8), WithRunnerMetrics(m))
	r.Add(NewSession(aapl, ledger.NewDeposit(1, "USD", 0), derivative, time.Second))
	r.Add(NewSession(msft, ledger.NewDeposit(2, "USD", 0), sdk.Derivative{Symbol: "MSFT"}, time.Second))

	now := time.Now()
	r.Publish(market.Tick{Symbol: "AAPL", Price: 1, At: now})
	r.Publish(market.Tick{Symbol: "AAPL", Price: 2, At: now})
	r.Publish(market.Tick{Symbol: "MSFT", Price: 3, At: now})
	r.Publish(market.Tick{Symbol: "TSLA", Price: 4, At: now})
	r.Close()

	require.NoError(t, r.Run(context.Background()))

	assert.Equal(t, [][]market.Price{{1}, {1, 2}}, aapl.ticked)
	assert.Equal(t, [][]market.Price{{3}}, msft.ticked)

	statuses := r.Status()
	require.Len(t, statuses, 2)
	for _, st := range statuses {
		assert.Equal(t, StateTerminated, st.State)
	}
	assert.Equal(t, uint64(2), statuses[0].Ticks)
	assert.Equal(t, uint64(0), m.Snapshot().QueueDrops)
}

func TestRunnerCountsDrops(t *testing.T) {
	m := obs.NewMetrics()
	r := NewRunner(WithQueueCapacity(1), WithRunnerMetrics(m))
	r.Add(NewSession(&fakeHandle{max: sdk.Variable()}, ledger.NewDeposit(1, "USD", 0), derivative, time.Second))

	r.Publish(market.Tick{Symbol: "AAPL", Price: 1})
	r.Publish(market.Tick{Symbol: "AAPL", Price: 2})
	assert.Equal(t, uint64(1), m.Snapshot().QueueDrops)
	assert.Len(t, r.Sessions(), 1)
}

func TestRunnerStopsOnCancel(t *testing.T) {
	h := &fakeHandle{max: sdk.Variable()}
	r := NewRunner()
	r.Add(NewSession(h, ledger.NewDeposit(1, "USD", 0), derivative, time.Second))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	r.Publish(market.Tick{Symbol: "AAPL", Price: 1, At: time.Now()})
	require.Eventually(t, func() bool { return r.Status()[0].Ticks == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("runner did not stop")
	}
	assert.Equal(t, StateTerminated, r.Status()[0].State)
}
