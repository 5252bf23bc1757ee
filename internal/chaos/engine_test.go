package chaos

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradingdesk/pkg/market"
)

var at = time.Date(2024, 3, 1, 14, 30, 0, 0, time.UTC)

func stream(n int) []market.Tick {
	out := make([]market.Tick, n)
	for i := range out {
		out[i] = market.Tick{Symbol: "AAPL", Price: market.Price(100 + i), At: at.Add(time.Duration(i) * time.Second)}
	}
	return out
}

func run(e *Engine, in []market.Tick) []market.Tick {
	var out []market.Tick
	for _, tick := range in {
		out = append(out, e.Process(tick)...)
	}
	return append(out, e.Flush()...)
}

func TestPassThrough(t *testing.T) {
	e, err := NewEngine(Config{Seed: 1})
	require.NoError(t, err)
	assert.Equal(t, stream(5), run(e, stream(5)))

	var nilEngine *Engine
	assert.Equal(t, stream(1), nilEngine.Process(stream(1)[0]))
	assert.Nil(t, nilEngine.Flush())
}

func TestDropAndDuplicate(t *testing.T) {
	drop, err := NewEngine(Config{Seed: 1, DropRate: 1})
	require.NoError(t, err)
	assert.Empty(t, run(drop, stream(5)))

	dup, err := NewEngine(Config{Seed: 1, DuplicateRate: 1})
	require.NoError(t, err)
	out := run(dup, stream(3))
	require.Len(t, out, 6)
	assert.Equal(t, out[0], out[1])
}

func TestReorderKeepsEveryTick(t *testing.T) {
	e, err := NewEngine(Config{Seed: 7, ReorderWindow: 3})
	require.NoError(t, err)

	assert.Empty(t, e.Process(stream(1)[0]), "window not full")
	e, err = NewEngine(Config{Seed: 7, ReorderWindow: 3})
	require.NoError(t, err)
	assert.ElementsMatch(t, stream(10), run(e, stream(10)))
}

func TestDelayOnlyMovesForward(t *testing.T) {
	e, err := NewEngine(Config{Seed: 3, MaxDelay: 500 * time.Millisecond})
	require.NoError(t, err)
	in := stream(20)
	out := run(e, in)
	require.Len(t, out, len(in))
	for i := range in {
		d := out[i].At.Sub(in[i].At)
		assert.GreaterOrEqual(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, 500*time.Millisecond)
		assert.Equal(t, in[i].Price, out[i].Price)
	}
}

func TestSameSeedSameOutput(t *testing.T) {
	cfg := Config{Seed: 42, DropRate: 0.3, DuplicateRate: 0.2, ReorderWindow: 4, MaxDelay: time.Second}
	a, err := NewEngine(cfg)
	require.NoError(t, err)
	b, err := NewEngine(cfg)
	require.NoError(t, err)
	assert.Equal(t, run(a, stream(50)), run(b, stream(50)))
}

func TestValidate(t *testing.T) {
	for _, cfg := range []Config{
		{DropRate: -0.1},
		{DropRate: 1.1},
		{DuplicateRate: 2},
		{MaxDelay: -time.Second},
	} {
		_, err := NewEngine(cfg)
		require.Error(t, err)
	}
	require.Error(t, Config{}.Validate(), "zero window")
}
