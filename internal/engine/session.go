package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/yanun0323/logs"

	"tradingdesk/internal/broker"
	"tradingdesk/internal/obs"
	"tradingdesk/internal/risk"
	"tradingdesk/pkg/exception"
	"tradingdesk/pkg/ledger"
	"tradingdesk/pkg/market"
	"tradingdesk/pkg/sdk"
)

// DefaultHistoryLimit caps the price history of algorithms with a Variable maximum.
const DefaultHistoryLimit = 4096

// Session drives one algorithm instance against one deposit and symbol.
// Methods are safe for concurrent use, algorithm calls are serialized.
type Session struct {
	mu sync.Mutex

	id         uuid.UUID
	algo       Handle
	deposit    *ledger.Deposit
	derivative sdk.Derivative
	timeStep   time.Duration

	state     State
	history   []market.Price
	limit     int
	lastPrice market.Price
	lastErr   error
	ticks     uint64

	risk     *risk.Engine
	executor broker.Executor
	recorder Recorder
	metrics  *obs.Metrics
	clock    Clock
}

type SessionOption func(*Session)

func WithRisk(e *risk.Engine) SessionOption {
	return func(s *Session) { s.risk = e }
}

// WithExecutor fills resting orders after every tick.
func WithExecutor(e broker.Executor) SessionOption {
	return func(s *Session) { s.executor = e }
}

func WithRecorder(r Recorder) SessionOption {
	return func(s *Session) { s.recorder = r }
}

func WithMetrics(m *obs.Metrics) SessionOption {
	return func(s *Session) { s.metrics = m }
}

func WithClock(c Clock) SessionOption {
	return func(s *Session) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithHistoryLimit caps the history of algorithms without a fixed maximum.
func WithHistoryLimit(n int) SessionOption {
	return func(s *Session) {
		if n > 0 {
			s.limit = n
		}
	}
}

// NewSession creates a session in StateInstantiated.
func NewSession(algo Handle, deposit *ledger.Deposit, derivative sdk.Derivative, timeStep time.Duration, opts ...SessionOption) *Session {
	s := &Session{
		id:         uuid.New(),
		algo:       algo,
		deposit:    deposit,
		derivative: derivative,
		timeStep:   timeStep,
		state:      StateInstantiated,
		limit:      DefaultHistoryLimit,
		clock:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	if m, fixed := algo.MaxDataLength().Len(); fixed {
		s.limit = clampLimit(m)
	}
	if low := clampLimit(algo.MinDataLength().Min()); s.limit < low {
		s.limit = low
	}
	return s
}

// clampLimit converts a data length into a history capacity, saturating at
// math.MaxInt.
func clampLimit(n uint64) int {
	if n > uint64(math.MaxInt) {
		return math.MaxInt
	}
	return int(n)
}

func (s *Session) ID() uuid.UUID { return s.id }

func (s *Session) Algorithm() string { return s.algo.Name() }

func (s *Session) Symbol() string { return s.derivative.Symbol }

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Init hands the derivative and time step to the algorithm. It runs once.
func (s *Session) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateInstantiated {
		return s.fail(fmt.Errorf("%w: init in state %s", exception.ErrInvalidState, s.state))
	}
	if s.timeStep <= 0 {
		return s.fail(fmt.Errorf("%w: time step %s", exception.ErrInvalidState, s.timeStep))
	}

	if err := s.algo.Init(s.derivative, s.timeStep); err != nil {
		if errors.Is(err, exception.ErrModuleFault) {
			return s.fault(err)
		}
		s.transition(ctx, StateTerminated, "init failed")
		return s.fail(fmt.Errorf("init %s: %w", s.algo.Name(), err))
	}

	next := StateTrading
	if s.algo.MinDataLength().Min() > 0 {
		next = StateCollecting
	}
	s.transition(ctx, next, "")
	return nil
}

// Tick appends price to the history and runs one step. While the history is
// shorter than the minimum data length the algorithm only collects prices.
// A tick that takes longer than the time step moves the session to
// StateShuttingDown and its instructions are discarded.
func (s *Session) Tick(ctx context.Context, price market.Price, at time.Time) (TickReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return TickReport{}, err
	}
	if s.state != StateCollecting && s.state != StateTrading {
		return TickReport{}, fmt.Errorf("%w: tick in state %s", exception.ErrInvalidState, s.state)
	}

	s.ticks++
	s.lastPrice = price
	s.history = append(s.history, price)
	if over := len(s.history) - s.limit; over > 0 {
		s.history = append(s.history[:0], s.history[over:]...)
	}
	report := TickReport{Seq: s.ticks, Price: price, At: at}

	if uint64(len(s.history)) < s.algo.MinDataLength().Min() {
		err := s.algo.CollectPrices(s.window())
		s.metrics.IncCollect()
		if err != nil {
			if errors.Is(err, exception.ErrModuleFault) {
				return report, s.fault(err)
			}
			return report, s.fail(fmt.Errorf("collect prices %s: %w", s.algo.Name(), err))
		}
		return report, nil
	}

	if s.state == StateCollecting {
		s.transition(ctx, StateTrading, "")
	}

	start := s.clock()
	out, err := s.algo.Tick(s.deposit.Positions(), s.window())
	elapsed := s.clock().Sub(start)
	s.metrics.ObserveTick(elapsed)
	report.Elapsed = elapsed

	if err != nil && errors.Is(err, exception.ErrModuleFault) {
		return report, s.fault(err)
	}
	if elapsed > s.timeStep {
		s.metrics.IncOverrun()
		s.transition(ctx, StateShuttingDown, "tick overrun")
		logs.Errorf("session %s algorithm %s tick took %s, time step %s, discard %d instructions", s.id, s.algo.Name(), elapsed, s.timeStep, len(out))
		return report, s.fail(fmt.Errorf("%w: %s > %s", exception.ErrTickOverrun, elapsed, s.timeStep))
	}
	if err != nil {
		return report, s.fail(fmt.Errorf("tick %s: %w", s.algo.Name(), err))
	}

	s.apply(ctx, &report, out, at, false)
	s.execute(ctx, &report, price, at)
	return report, nil
}

// Shutdown asks the algorithm for its final instructions and terminates the
// session. Instructions that open exposure are rejected. Positions left open
// stay on the deposit for the host to handle.
func (s *Session) Shutdown(ctx context.Context) (TickReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateCollecting, StateTrading, StateShuttingDown:
	default:
		return TickReport{}, fmt.Errorf("%w: shutdown in state %s", exception.ErrInvalidState, s.state)
	}

	if s.state != StateShuttingDown {
		s.transition(ctx, StateShuttingDown, "")
	}

	at := s.clock()
	report := TickReport{Seq: s.ticks, Price: s.lastPrice, At: at}
	out, err := s.algo.Shutdown(s.deposit.Positions(), s.window())
	if err != nil {
		if errors.Is(err, exception.ErrModuleFault) {
			return report, s.fault(err)
		}
		s.transition(ctx, StateTerminated, "shutdown failed")
		return report, s.fail(fmt.Errorf("shutdown %s: %w", s.algo.Name(), err))
	}

	s.apply(ctx, &report, out, at, true)
	s.transition(ctx, StateTerminated, "")
	return report, nil
}

// window returns a copy of the history so the plugin cannot alias it.
func (s *Session) window() []market.Price {
	out := make([]market.Price, len(s.history))
	copy(out, s.history)
	return out
}

func (s *Session) execute(ctx context.Context, report *TickReport, price market.Price, at time.Time) {
	if s.executor == nil || s.deposit.OrderCount() == 0 {
		return
	}

	fills, err := s.executor.Execute(s.deposit, price, at)
	if err != nil {
		logs.Errorf("session %s execute orders, err: %+v", s.id, err)
	}
	for _, f := range fills {
		s.metrics.IncFill()
		s.record(ctx, Event{Kind: EventOrderExecuted, OrderID: f.OrderID, PositionID: f.PositionID, Price: f.BuyPrice, At: f.At})
	}
	report.Fills = append(report.Fills, fills...)
}

// fault terminates the session after a recovered algorithm panic.
func (s *Session) fault(err error) error {
	s.metrics.IncFault()
	s.transition(context.Background(), StateTerminated, "algorithm fault")
	logs.Errorf("session %s algorithm %s fault, err: %+v", s.id, s.algo.Name(), err)
	return s.fail(fmt.Errorf("%w: %w", exception.ErrAlgorithmFault, err))
}

func (s *Session) fail(err error) error {
	s.lastErr = err
	return err
}

func (s *Session) transition(ctx context.Context, next State, detail string) {
	if s.state == next {
		return
	}
	prev := s.state
	s.state = next
	logs.Infof("session %s algorithm %s %s -> %s", s.id, s.algo.Name(), prev, next)
	s.record(ctx, Event{Kind: EventStateChanged, Price: s.lastPrice, Detail: prev.String() + " -> " + next.String() + suffix(detail), At: s.clock()})
}

func (s *Session) record(ctx context.Context, e Event) {
	if s.recorder == nil {
		return
	}
	e.Session = s.id
	e.Algorithm = s.algo.Name()
	e.Deposit = s.deposit.ID()
	if err := s.recorder.Record(ctx, e); err != nil {
		logs.Errorf("session %s record %s, err: %+v", s.id, e.Kind, err)
	}
}

func suffix(detail string) string {
	if detail == "" {
		return ""
	}
	return ": " + detail
}

// Status is a point-in-time view of a session.
type Status struct {
	ID            uuid.UUID    `json:"id"`
	Algorithm     string       `json:"algorithm"`
	Symbol        string       `json:"symbol"`
	Deposit       uint64       `json:"deposit"`
	State         State        `json:"state"`
	Cash          market.Price `json:"cash"`
	OpenOrders    int          `json:"openOrders"`
	OpenPositions int          `json:"openPositions"`
	HistoryLen    int          `json:"historyLen"`
	LastPrice     market.Price `json:"lastPrice"`
	Ticks         uint64       `json:"ticks"`
	LastError     string       `json:"lastError,omitempty"`
}

func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{
		ID:            s.id,
		Algorithm:     s.algo.Name(),
		Symbol:        s.derivative.Symbol,
		Deposit:       s.deposit.ID(),
		State:         s.state,
		Cash:          s.deposit.Cash(),
		OpenOrders:    s.deposit.OrderCount(),
		OpenPositions: s.deposit.PositionCount(),
		HistoryLen:    len(s.history),
		LastPrice:     s.lastPrice,
		Ticks:         s.ticks,
	}
	if s.lastErr != nil {
		st.LastError = s.lastErr.Error()
	}
	return st
}
