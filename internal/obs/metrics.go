package obs

import (
	"sync/atomic"
	"time"

	"tradingdesk/pkg/sdk"
)

const maxInstructionKind = int(sdk.InstructionUpdateStopLoss)

// Metrics collects lightweight counters and latency stats.
type Metrics struct {
	instructionCounts [maxInstructionKind + 1]uint64
	ticks             uint64
	collects          uint64
	overruns          uint64
	faults            uint64
	rejections        uint64
	fills             uint64
	queueDrops        uint64
	loads             uint64
	loadFailures      uint64

	tickLatency LatencyStats
	loadLatency LatencyStats
}

// LatencyStats aggregates duration samples in nanoseconds.
type LatencyStats struct {
	count uint64
	sum   uint64
	min   uint64
	max   uint64
}

// LatencySnapshot is a point-in-time view of latency stats.
type LatencySnapshot struct {
	Count uint64        `json:"count"`
	Min   time.Duration `json:"min"`
	Max   time.Duration `json:"max"`
	Avg   time.Duration `json:"avg"`
}

// Snapshot captures the current metrics values.
type Snapshot struct {
	InstructionCounts map[string]uint64 `json:"instructionCounts"`
	Ticks             uint64            `json:"ticks"`
	Collects          uint64            `json:"collects"`
	Overruns          uint64            `json:"overruns"`
	Faults            uint64            `json:"faults"`
	Rejections        uint64            `json:"rejections"`
	Fills             uint64            `json:"fills"`
	QueueDrops        uint64            `json:"queueDrops"`
	Loads             uint64            `json:"loads"`
	LoadFailures      uint64            `json:"loadFailures"`
	TickLatency       LatencySnapshot   `json:"tickLatency"`
	LoadLatency       LatencySnapshot   `json:"loadLatency"`
}

// NewMetrics allocates a metrics container.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// ObserveTick counts a steady-state tick and its algorithm latency.
func (m *Metrics) ObserveTick(d time.Duration) {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.ticks, 1)
	m.tickLatency.Observe(d)
}

// IncCollect records a warm-up call.
func (m *Metrics) IncCollect() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.collects, 1)
}

// IncOverrun records a tick that exceeded its time step.
func (m *Metrics) IncOverrun() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.overruns, 1)
}

// IncFault records a recovered algorithm panic.
func (m *Metrics) IncFault() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.faults, 1)
}

// IncInstruction records an applied instruction.
func (m *Metrics) IncInstruction(kind sdk.InstructionKind) {
	if m == nil {
		return
	}
	idx := int(kind)
	if idx >= 0 && idx < len(m.instructionCounts) {
		atomic.AddUint64(&m.instructionCounts[idx], 1)
	}
}

// IncRejection records an instruction the host refused.
func (m *Metrics) IncRejection() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.rejections, 1)
}

// IncFill records an order filled by the executor.
func (m *Metrics) IncFill() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.fills, 1)
}

// IncQueueDrop records a tick dropped because a session queue was full.
func (m *Metrics) IncQueueDrop() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.queueDrops, 1)
}

// ObserveLoad records a module load attempt.
func (m *Metrics) ObserveLoad(d time.Duration, err error) {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.loads, 1)
	if err != nil {
		atomic.AddUint64(&m.loadFailures, 1)
	}
	m.loadLatency.Observe(d)
}

// Snapshot returns a copy of the current metrics values.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	counts := make(map[string]uint64)
	for i := range m.instructionCounts {
		if v := atomic.LoadUint64(&m.instructionCounts[i]); v > 0 {
			counts[sdk.InstructionKind(i).String()] = v
		}
	}
	return Snapshot{
		InstructionCounts: counts,
		Ticks:             atomic.LoadUint64(&m.ticks),
		Collects:          atomic.LoadUint64(&m.collects),
		Overruns:          atomic.LoadUint64(&m.overruns),
		Faults:            atomic.LoadUint64(&m.faults),
		Rejections:        atomic.LoadUint64(&m.rejections),
		Fills:             atomic.LoadUint64(&m.fills),
		QueueDrops:        atomic.LoadUint64(&m.queueDrops),
		Loads:             atomic.LoadUint64(&m.loads),
		LoadFailures:      atomic.LoadUint64(&m.loadFailures),
		TickLatency:       m.tickLatency.Snapshot(),
		LoadLatency:       m.loadLatency.Snapshot(),
	}
}

// Observe records a duration sample.
func (l *LatencyStats) Observe(d time.Duration) {
	if d < 0 {
		return
	}
	nanos := uint64(d)
	atomic.AddUint64(&l.count, 1)
	atomic.AddUint64(&l.sum, nanos)

	for {
		min := atomic.LoadUint64(&l.min)
		if min != 0 && nanos >= min {
			break
		}
		if atomic.CompareAndSwapUint64(&l.min, min, nanos) {
			break
		}
	}

	for {
		max := atomic.LoadUint64(&l.max)
		if nanos <= max {
			break
		}
		if atomic.CompareAndSwapUint64(&l.max, max, nanos) {
			break
		}
	}
}

// Snapshot returns the aggregated latency stats.
func (l *LatencyStats) Snapshot() LatencySnapshot {
	count := atomic.LoadUint64(&l.count)
	if count == 0 {
		return LatencySnapshot{}
	}
	sum := atomic.LoadUint64(&l.sum)
	min := atomic.LoadUint64(&l.min)
	max := atomic.LoadUint64(&l.max)
	return LatencySnapshot{
		Count: count,
		Min:   time.Duration(min),
		Max:   time.Duration(max),
		Avg:   time.Duration(sum / count),
	}
}
