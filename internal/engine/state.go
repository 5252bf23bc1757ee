package engine

import (
	"time"

	"tradingdesk/pkg/ledger"
	"tradingdesk/pkg/market"
	"tradingdesk/pkg/sdk"
)

// State is the lifecycle position of a session. It only moves forward.
type State uint8

const (
	StateInstantiated State = iota + 1
	StateCollecting
	StateTrading
	StateShuttingDown
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateInstantiated:
		return "Instantiated"
	case StateCollecting:
		return "Collecting"
	case StateTrading:
		return "Trading"
	case StateShuttingDown:
		return "ShuttingDown"
	case StateTerminated:
		return "Terminated"
	default:
		return "Unknown"
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Handle is a loaded algorithm as the engine drives it. *loader.Algorithm
// implements it and converts plugin panics into exception.ErrModuleFault.
type Handle interface {
	Name() string
	MinDataLength() sdk.DataLength
	MaxDataLength() sdk.DataLength

	Init(derivative sdk.Derivative, timeStep time.Duration) error
	CollectPrices(prices []market.Price) error
	Tick(positions []ledger.Position, prices []market.Price) ([]sdk.Instruction, error)
	Shutdown(positions []ledger.Position, prices []market.Price) ([]sdk.Instruction, error)
}

// Clock returns the current time. Sessions measure algorithm calls with it.
type Clock func() time.Time
