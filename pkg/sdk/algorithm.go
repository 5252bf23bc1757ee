package sdk

import (
	"time"

	"tradingdesk/pkg/ledger"
	"tradingdesk/pkg/market"
)

// Algorithm is the one method every plugin implements. Tick is called once per
// time step with the open positions and the price window, and must return
// within the time step. Instructions of a tick that overran are discarded.
type Algorithm interface {
	Tick(positions []ledger.Position, prices []market.Price) ([]Instruction, error)
}

// Initializer is called exactly once before any price is seen. It is the only
// time the algorithm learns what it trades and how often.
type Initializer interface {
	Init(derivative Derivative, timeStep time.Duration) error
}

// Collector receives the price history while it is shorter than the declared
// minimum data length. It cannot trade.
type Collector interface {
	CollectPrices(prices []market.Price) error
}

// Finalizer is called once when trading stops. Opening instructions returned
// here are rejected. Positions left open are handled by the host.
type Finalizer interface {
	Shutdown(positions []ledger.Position, prices []market.Price) ([]Instruction, error)
}

type DerivativeKind uint8

const (
	DerivativeStock DerivativeKind = iota + 1
	DerivativeETF
	DerivativeFuture
	DerivativeOption
	DerivativeCFD
	DerivativeCrypto
)

func (k DerivativeKind) String() string {
	switch k {
	case DerivativeStock:
		return "Stock"
	case DerivativeETF:
		return "ETF"
	case DerivativeFuture:
		return "Future"
	case DerivativeOption:
		return "Option"
	case DerivativeCFD:
		return "CFD"
	case DerivativeCrypto:
		return "Crypto"
	default:
		return "Unknown"
	}
}

// Derivative is the traded instrument.
type Derivative struct {
	Symbol   string
	Kind     DerivativeKind
	Exchange ledger.StockExchange
}
