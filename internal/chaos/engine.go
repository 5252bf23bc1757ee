// Package chaos perturbs a tick stream to see how algorithms cope with a
// lossy feed.
package chaos

import (
	"fmt"
	"math/rand"
	"time"

	"tradingdesk/pkg/market"
)

type Config struct {
	Seed          int64
	DropRate      float64
	DuplicateRate float64
	ReorderWindow int
	// MaxDelay shifts tick timestamps forward by up to this much.
	MaxDelay time.Duration
}

// Engine applies chaos rules to ticks. It is not safe for concurrent use.
type Engine struct {
	cfg     Config
	rng     *rand.Rand
	pending []market.Tick
}

func NewEngine(cfg Config) (*Engine, error) {
	if cfg.ReorderWindow <= 0 {
		cfg.ReorderWindow = 1
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UTC().UnixNano()
	}
	return &Engine{cfg: cfg, rng: rand.New(rand.NewSource(cfg.Seed))}, nil
}

func (c Config) Validate() error {
	switch {
	case c.DropRate < 0 || c.DropRate > 1:
		return fmt.Errorf("dropRate must be between 0 and 1")
	case c.DuplicateRate < 0 || c.DuplicateRate > 1:
		return fmt.Errorf("duplicateRate must be between 0 and 1")
	case c.ReorderWindow <= 0:
		return fmt.Errorf("reorderWindow must be >= 1")
	case c.MaxDelay < 0:
		return fmt.Errorf("maxDelay must be >= 0")
	}
	return nil
}

// Process returns the ticks to emit in place of tick, possibly none.
func (e *Engine) Process(tick market.Tick) []market.Tick {
	if e == nil {
		return []market.Tick{tick}
	}
	if e.cfg.DropRate > 0 && e.rng.Float64() < e.cfg.DropRate {
		return nil
	}
	tick = e.delay(tick)
	if e.cfg.ReorderWindow <= 1 {
		return e.duplicate(tick)
	}
	e.pending = append(e.pending, tick)
	if len(e.pending) < e.cfg.ReorderWindow {
		return nil
	}
	return e.duplicate(e.take())
}

// Flush empties the reorder window.
func (e *Engine) Flush() []market.Tick {
	if e == nil || len(e.pending) == 0 {
		return nil
	}
	out := make([]market.Tick, 0, len(e.pending))
	for len(e.pending) > 0 {
		out = append(out, e.duplicate(e.take())...)
	}
	return out
}

func (e *Engine) take() market.Tick {
	i := e.rng.Intn(len(e.pending))
	tick := e.pending[i]
	e.pending = append(e.pending[:i], e.pending[i+1:]...)
	return tick
}

func (e *Engine) duplicate(tick market.Tick) []market.Tick {
	if e.cfg.DuplicateRate > 0 && e.rng.Float64() < e.cfg.DuplicateRate {
		return []market.Tick{tick, tick}
	}
	return []market.Tick{tick}
}

func (e *Engine) delay(tick market.Tick) market.Tick {
	if e.cfg.MaxDelay <= 0 || tick.At.IsZero() {
		return tick
	}
	tick.At = tick.At.Add(time.Duration(e.rng.Int63n(int64(e.cfg.MaxDelay) + 1)))
	return tick
}
