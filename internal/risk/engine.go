package risk

import (
	"math"
	"time"

	"tradingdesk/pkg/ledger"
	"tradingdesk/pkg/market"
)

// Config defines simple limits on orders placed by an algorithm.
type Config struct {
	KillSwitch           bool          `json:"killSwitch"`
	MaxOrderPieces       uint64        `json:"maxOrderPieces"`
	MaxOrderNotional     market.Price  `json:"maxOrderNotional"`
	MaxOpenOrders        int           `json:"maxOpenOrders"`
	MaxOpenPositions     int           `json:"maxOpenPositions"`
	OrderRateLimit       int           `json:"orderRateLimit"`
	OrderRateWindow      time.Duration `json:"orderRateWindow"`
	MaxPriceDeviationBps int64         `json:"maxPriceDeviationBps"`
}

type Reason uint8

const (
	ReasonNone Reason = iota
	ReasonKillSwitch
	ReasonRateLimit
	ReasonMaxPieces
	ReasonMaxNotional
	ReasonPriceBand
	ReasonOpenOrders
	ReasonOpenPositions
)

func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonKillSwitch:
		return "kill switch"
	case ReasonRateLimit:
		return "rate limit"
	case ReasonMaxPieces:
		return "max pieces"
	case ReasonMaxNotional:
		return "max notional"
	case ReasonPriceBand:
		return "price band"
	case ReasonOpenOrders:
		return "open orders limit"
	case ReasonOpenPositions:
		return "open positions limit"
	default:
		return "unknown"
	}
}

// StateView is the ledger snapshot an order is judged against.
type StateView struct {
	OpenOrders     int
	OpenPositions  int
	ReferencePrice market.Price
	Now            time.Time
}

type Decision struct {
	Allow  bool
	Reason Reason
}

func allow() Decision             { return Decision{Allow: true} }
func deny(reason Reason) Decision { return Decision{Reason: reason} }

// Engine evaluates orders before they reach the ledger. It is not safe for
// concurrent use, each session owns one.
type Engine struct {
	cfg             Config
	rateWindowStart time.Time
	rateCount       int
}

// NewEngine creates a risk engine with static limits.
func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

func (e *Engine) Config() Config {
	return e.cfg
}

// Evaluate checks every leg of order. The rate limit counts orders, not legs.
func (e *Engine) Evaluate(order ledger.Order, state StateView) Decision {
	if e.cfg.KillSwitch {
		return deny(ReasonKillSwitch)
	}

	now := state.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	if e.cfg.OrderRateLimit > 0 && e.cfg.OrderRateWindow > 0 {
		if e.rateWindowStart.IsZero() || now.Sub(e.rateWindowStart) >= e.cfg.OrderRateWindow {
			e.rateWindowStart = now
			e.rateCount = 0
		}
		e.rateCount++
		if e.rateCount > e.cfg.OrderRateLimit {
			return deny(ReasonRateLimit)
		}
	}

	if e.cfg.MaxOpenOrders > 0 && state.OpenOrders >= e.cfg.MaxOpenOrders {
		return deny(ReasonOpenOrders)
	}
	if e.cfg.MaxOpenPositions > 0 && state.OpenPositions >= e.cfg.MaxOpenPositions {
		return deny(ReasonOpenPositions)
	}

	for _, data := range order.Data {
		if d := e.evaluateLeg(data, state.ReferencePrice); !d.Allow {
			return d
		}
	}
	return allow()
}

func (e *Engine) evaluateLeg(data ledger.OrderData, ref market.Price) Decision {
	if e.cfg.MaxOrderPieces > 0 && data.Pieces > e.cfg.MaxOrderPieces {
		return deny(ReasonMaxPieces)
	}

	price := ref
	if data.Type.Kind != ledger.OrderTypeMarket && data.Type.Price > 0 {
		price = data.Type.Price
	}

	if e.cfg.MaxPriceDeviationBps > 0 && data.Type.Kind == ledger.OrderTypeLimit && ref > 0 {
		if exceedsDeviation(data.Type.Price, ref, e.cfg.MaxPriceDeviationBps) {
			return deny(ReasonPriceBand)
		}
	}

	notional := price * market.Price(data.Pieces)
	if math.IsInf(notional.Float64(), 0) || math.IsNaN(notional.Float64()) {
		return deny(ReasonMaxNotional)
	}
	if e.cfg.MaxOrderNotional > 0 && notional > e.cfg.MaxOrderNotional {
		return deny(ReasonMaxNotional)
	}
	return allow()
}

func exceedsDeviation(price, ref market.Price, bps int64) bool {
	if ref <= 0 || bps <= 0 {
		return false
	}
	diff := math.Abs((price - ref).Float64())
	return diff*10000 > ref.Float64()*float64(bps)
}
