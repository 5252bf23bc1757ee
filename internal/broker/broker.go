package broker

import (
	"context"
	"slices"
	"time"

	"tradingdesk/pkg/ledger"
	"tradingdesk/pkg/market"
)

// Broker is the account side of the desk. Implementations talk to a real
// broker or keep the accounts in memory.
type Broker interface {
	Name() string
	Capabilities() []Capability
	Exchanges() []ledger.StockExchange

	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	IsLoggedIn() bool

	Deposits(ctx context.Context) ([]*ledger.Deposit, error)
	Deposit(ctx context.Context, id uint64) (*ledger.Deposit, error)
}

// Supports reports whether b declares every capability in want.
func Supports(b Broker, want ...Capability) bool {
	caps := b.Capabilities()
	for _, c := range want {
		if !slices.Contains(caps, c) {
			return false
		}
	}
	return true
}

type Capability uint8

const (
	MultipleDeposits Capability = iota + 1
	DepositBalances
	DepositTransactions

	OrderOverview
	OrderChange
	OrderDelete

	BuyMarketOrder
	BuyLimitOrder
	BuyStopOrder
	SellMarketOrder
	SellLimitOrder
	SellStopOrder

	AllOrNoneOrder
	ImmediateOrCancelOrder
	FillOrKillOrder

	PositionOverview
	PositionChange

	LongCallPosition
	LongPutPosition
	ShortCallPosition
	ShortPutPosition

	TrailingStopLoss
	TakeProfit
)

var capabilityNames = map[Capability]string{
	MultipleDeposits:       "MultipleDeposits",
	DepositBalances:        "DepositBalances",
	DepositTransactions:    "DepositTransactions",
	OrderOverview:          "OrderOverview",
	OrderChange:            "OrderChange",
	OrderDelete:            "OrderDelete",
	BuyMarketOrder:         "BuyMarketOrder",
	BuyLimitOrder:          "BuyLimitOrder",
	BuyStopOrder:           "BuyStopOrder",
	SellMarketOrder:        "SellMarketOrder",
	SellLimitOrder:         "SellLimitOrder",
	SellStopOrder:          "SellStopOrder",
	AllOrNoneOrder:         "AllOrNoneOrder",
	ImmediateOrCancelOrder: "ImmediateOrCancelOrder",
	FillOrKillOrder:        "FillOrKillOrder",
	PositionOverview:       "PositionOverview",
	PositionChange:         "PositionChange",
	LongCallPosition:       "LongCallPosition",
	LongPutPosition:        "LongPutPosition",
	ShortCallPosition:      "ShortCallPosition",
	ShortPutPosition:       "ShortPutPosition",
	TrailingStopLoss:       "TrailingStopLoss",
	TakeProfit:             "TakeProfit",
}

func (c Capability) String() string {
	if name, ok := capabilityNames[c]; ok {
		return name
	}
	return "Unknown"
}

// Fill is an order executed by an Executor.
type Fill struct {
	OrderID    uint64
	PositionID uint64
	BuyPrice   market.Price
	At         time.Time
}

// Executor fills resting orders of a deposit at the current price. Filled
// orders go through Deposit.ExecuteOrder.
type Executor interface {
	Execute(deposit *ledger.Deposit, price market.Price, at time.Time) ([]Fill, error)
}
