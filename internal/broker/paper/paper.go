// Package paper is an in-memory broker that fills orders against the last
// observed price. It is used for dry runs and tests.
package paper

import (
	"context"
	"sort"
	"sync"
	"time"

	"tradingdesk/internal/broker"
	"tradingdesk/internal/obs"
	"tradingdesk/pkg/exception"
	"tradingdesk/pkg/ledger"
	"tradingdesk/pkg/market"
)

var _ broker.Broker = (*Broker)(nil)
var _ broker.Executor = (*Broker)(nil)

const Name = "paper"

type Broker struct {
	mu       sync.RWMutex
	loggedIn bool
	deposits map[uint64]*ledger.Deposit
	ids      *obs.Sequence
}

// New creates a broker holding deposits. Position ids start after seed.
func New(seed uint64, deposits ...*ledger.Deposit) *Broker {
	b := &Broker{
		deposits: make(map[uint64]*ledger.Deposit, len(deposits)),
		ids:      obs.NewSequence(seed),
	}
	for _, d := range deposits {
		b.deposits[d.ID()] = d
	}
	return b
}

func (b *Broker) Name() string { return Name }

func (b *Broker) Capabilities() []broker.Capability {
	return []broker.Capability{
		broker.MultipleDeposits,
		broker.DepositBalances,
		broker.OrderOverview,
		broker.OrderChange,
		broker.OrderDelete,
		broker.BuyMarketOrder,
		broker.BuyLimitOrder,
		broker.BuyStopOrder,
		broker.PositionOverview,
		broker.PositionChange,
		broker.LongCallPosition,
		broker.TakeProfit,
	}
}

func (b *Broker) Exchanges() []ledger.StockExchange { return nil }

func (b *Broker) Login(context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.loggedIn = true
	return nil
}

func (b *Broker) Logout(context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.loggedIn = false
	return nil
}

func (b *Broker) IsLoggedIn() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.loggedIn
}

// Add registers a deposit, replacing one with the same id.
func (b *Broker) Add(d *ledger.Deposit) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.deposits[d.ID()] = d
}

// Deposits returns the deposits ordered by id.
func (b *Broker) Deposits(context.Context) ([]*ledger.Deposit, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.loggedIn {
		return nil, exception.ErrBrokerNotLoggedIn
	}
	out := make([]*ledger.Deposit, 0, len(b.deposits))
	for _, d := range b.deposits {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out, nil
}

func (b *Broker) Deposit(_ context.Context, id uint64) (*ledger.Deposit, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.loggedIn {
		return nil, exception.ErrBrokerNotLoggedIn
	}
	d, ok := b.deposits[id]
	if !ok {
		return nil, exception.ErrBrokerUnknownDeposit
	}
	return d, nil
}

// Execute fills every resting order with a leg that triggers at price. Only
// the first triggering leg is executed, the other legs go with the order.
// Orders that expired are deleted without a fill.
func (b *Broker) Execute(deposit *ledger.Deposit, price market.Price, at time.Time) ([]broker.Fill, error) {
	var fills []broker.Fill
	for _, order := range deposit.Orders() {
		leg, ok := trigger(order, price, at)
		if !ok {
			if expired(order, at) {
				if _, err := deposit.DeleteOrder(order.Data[0].ID); err != nil {
					return fills, err
				}
			}
			continue
		}

		fill := broker.Fill{
			OrderID:    leg.ID,
			PositionID: b.ids.Next(),
			BuyPrice:   price * market.Price(leg.Pieces),
			At:         at,
		}
		if _, err := deposit.ExecuteOrder(fill.OrderID, fill.PositionID, fill.BuyPrice, at); err != nil {
			return fills, err
		}
		fills = append(fills, fill)
	}
	return fills, nil
}

func trigger(order ledger.Order, price market.Price, at time.Time) (ledger.OrderData, bool) {
	for _, leg := range order.Data {
		if !leg.Moment.IsNowOrPassed(at) {
			continue
		}
		if Match(leg.Type, price) {
			return leg, true
		}
	}
	return ledger.OrderData{}, false
}

// expired reports whether an order that did not trigger can no longer rest.
// Instant orders have no placement time on the ledger, only planned ones age.
func expired(order ledger.Order, at time.Time) bool {
	if order.Kind == ledger.OrderImmediateOrCancel || order.Kind == ledger.OrderFillOrKill {
		return true
	}
	for _, leg := range order.Data {
		if !leg.Moment.IsNowOrPassed(at) {
			return false
		}
		if leg.Validity == ledger.ValidNow {
			continue
		}
		if leg.Moment.IsInstant() || leg.Validity.IsValid(leg.Moment.At, at) {
			return false
		}
	}
	return true
}

// Match reports whether an order of type t fills at price. Market orders
// always fill, limit buys fill at or below the limit, stops at or above the stop.
func Match(t ledger.OrderType, price market.Price) bool {
	switch t.Kind {
	case ledger.OrderTypeMarket:
		return true
	case ledger.OrderTypeLimit:
		return price <= t.Price
	case ledger.OrderTypeStop:
		return price >= t.Price
	default:
		return false
	}
}
