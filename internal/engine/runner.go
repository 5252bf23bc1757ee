package engine

import (
	"context"
	"errors"
	"sync"

	"github.com/yanun0323/logs"
	"golang.org/x/sync/errgroup"

	"tradingdesk/internal/bus"
	"tradingdesk/internal/obs"
	"tradingdesk/pkg/exception"
	"tradingdesk/pkg/market"
)

const defaultQueueCapacity = 1024

// Runner drives sessions concurrently. Every session gets its own goroutine
// and a bounded queue, a slow algorithm drops its own ticks without blocking
// the others.
type Runner struct {
	mu       sync.RWMutex
	sessions []*Session
	queues   []*bus.Queue[market.Tick]
	capacity int
	metrics  *obs.Metrics
}

type RunnerOption func(*Runner)

func WithQueueCapacity(n int) RunnerOption {
	return func(r *Runner) {
		if n > 0 {
			r.capacity = n
		}
	}
}

func WithRunnerMetrics(m *obs.Metrics) RunnerOption {
	return func(r *Runner) { r.metrics = m }
}

func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{capacity: defaultQueueCapacity}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Add registers a session. Sessions added after Run starts are not driven.
func (r *Runner) Add(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions = append(r.sessions, s)
	r.queues = append(r.queues, bus.NewQueue[market.Tick](r.capacity))
}

// Publish fans tick out to every session trading its symbol.
func (r *Runner) Publish(tick market.Tick) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for i, s := range r.sessions {
		if s.Symbol() != tick.Symbol {
			continue
		}
		if err := r.queues[i].TryPublish(tick); err != nil {
			if errors.Is(err, bus.ErrQueueFull) {
				r.metrics.IncQueueDrop()
			}
		}
	}
}

// Sessions returns the registered sessions.
func (r *Runner) Sessions() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Session, len(r.sessions))
	copy(out, r.sessions)
	return out
}

func (r *Runner) Status() []Status {
	sessions := r.Sessions()
	out := make([]Status, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, s.Status())
	}
	return out
}

// Close stops accepting ticks. Run returns once queued ticks are drained.
func (r *Runner) Close() {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, q := range r.queues {
		q.Close()
	}
}

// Run initializes every session and drives it until ctx is done or the
// runner is closed, then shuts every live session down.
func (r *Runner) Run(ctx context.Context) error {
	r.mu.RLock()
	sessions := append([]*Session(nil), r.sessions...)
	queues := append([]*bus.Queue[market.Tick](nil), r.queues...)
	r.mu.RUnlock()

	eg, ctx := errgroup.WithContext(ctx)
	for i := range sessions {
		s, q := sessions[i], queues[i]
		eg.Go(func() error {
			drive(ctx, s, q)
			return nil
		})
	}
	return eg.Wait()
}

func drive(ctx context.Context, s *Session, q *bus.Queue[market.Tick]) {
	defer q.Close()
	defer func() {
		if _, err := s.Shutdown(context.WithoutCancel(ctx)); err != nil && !errors.Is(err, exception.ErrInvalidState) {
			logs.Errorf("session %s shutdown, err: %+v", s.ID(), err)
		}
	}()

	if err := s.Init(ctx); err != nil {
		logs.Errorf("session %s init, err: %+v", s.ID(), err)
		return
	}

	err := q.Run(ctx, func(tick market.Tick) error {
		_, err := s.Tick(ctx, tick.Price, tick.At)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, exception.ErrTickOverrun), errors.Is(err, exception.ErrAlgorithmFault), errors.Is(err, exception.ErrInvalidState):
			return err
		default:
			logs.Errorf("session %s tick, err: %+v", s.ID(), err)
			return nil
		}
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		logs.Errorf("session %s stopped, err: %+v", s.ID(), err)
	}
}
