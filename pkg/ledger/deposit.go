package ledger

import (
	"time"

	"tradingdesk/pkg/exception"
	"tradingdesk/pkg/market"
)

// Deposit is the ledger of one trading account.
//
// Cash only moves in ExecuteOrder and ClosePosition. Lookups are by identifier,
// removal swaps with the last element, so the order of Orders and Positions is
// not stable. A Deposit is not safe for concurrent use.
type Deposit struct {
	id       uint64
	currency Currency
	cash     market.Price

	orders    []Order
	positions []Position
}

// NewDeposit creates a deposit with the cash a broker reported.
func NewDeposit(id uint64, currency Currency, cash market.Price) *Deposit {
	return &Deposit{
		id:       id,
		currency: currency,
		cash:     cash,
	}
}

// EmptyDeposit creates a deposit without cash.
func EmptyDeposit(id uint64, currency Currency) *Deposit {
	return NewDeposit(id, currency, 0)
}

func (d *Deposit) ID() uint64         { return d.id }
func (d *Deposit) Currency() Currency { return d.currency }
func (d *Deposit) Cash() market.Price { return d.cash }
func (d *Deposit) OrderCount() int    { return len(d.orders) }
func (d *Deposit) PositionCount() int { return len(d.positions) }

// Orders returns a copy of the open orders.
func (d *Deposit) Orders() []Order {
	orders := make([]Order, len(d.orders))
	for i := range d.orders {
		orders[i] = d.orders[i].clone()
	}
	return orders
}

// Positions returns a copy of the open positions.
func (d *Deposit) Positions() []Position {
	positions := make([]Position, len(d.positions))
	copy(positions, d.positions)
	return positions
}

func (d *Deposit) OrderExists(id uint64) bool {
	return d.orderIndex(id) >= 0
}

func (d *Deposit) GetOrder(id uint64) (Order, bool) {
	if i := d.orderIndex(id); i >= 0 {
		return d.orders[i].clone(), true
	}
	return Order{}, false
}

// PlaceOrder appends order. Identifiers are trusted to be unique.
func (d *Deposit) PlaceOrder(order Order) {
	d.orders = append(d.orders, order.clone())
}

// EditOrder applies change to the order containing id.
func (d *Deposit) EditOrder(id uint64, change func(*Order)) error {
	i := d.orderIndex(id)
	if i < 0 {
		return exception.ErrNoSuchOrder
	}
	change(&d.orders[i])
	return nil
}

// ExecuteOrder turns the order data orderID into a position and debits buyPrice.
// The whole order is removed. On error the deposit is unchanged.
func (d *Deposit) ExecuteOrder(orderID, positionID uint64, buyPrice market.Price, at time.Time) (Order, error) {
	i := d.orderIndex(orderID)
	if i < 0 {
		return Order{}, exception.ErrNoSuchOrder
	}
	data, _ := d.orders[i].Get(orderID)
	order := d.removeOrder(i)

	d.positions = append(d.positions, PositionFromOrderData(positionID, at, buyPrice, data))
	d.cash -= buyPrice
	return order, nil
}

// DeleteOrder removes and returns the order containing id.
func (d *Deposit) DeleteOrder(id uint64) (Order, error) {
	i := d.orderIndex(id)
	if i < 0 {
		return Order{}, exception.ErrNoSuchOrder
	}
	return d.removeOrder(i), nil
}

func (d *Deposit) PositionExists(id uint64) bool {
	return d.positionIndex(id) >= 0
}

func (d *Deposit) GetPosition(id uint64) (Position, bool) {
	if i := d.positionIndex(id); i >= 0 {
		return d.positions[i], true
	}
	return Position{}, false
}

// EditPosition replaces the take profit and stop loss of a position.
func (d *Deposit) EditPosition(id uint64, change func(*PositionPolicy)) error {
	i := d.positionIndex(id)
	if i < 0 {
		return exception.ErrNoSuchPosition
	}
	pos := &d.positions[i]
	policy := PositionPolicy{TakeProfit: pos.TakeProfit, StopLoss: pos.StopLoss}
	change(&policy)
	pos.TakeProfit = policy.TakeProfit
	pos.StopLoss = policy.StopLoss
	return nil
}

// ClosePosition removes the position and credits sellPrice.
func (d *Deposit) ClosePosition(id uint64, sellPrice market.Price) (Position, error) {
	i := d.positionIndex(id)
	if i < 0 {
		return Position{}, exception.ErrNoSuchPosition
	}
	last := len(d.positions) - 1
	pos := d.positions[i]
	d.positions[i] = d.positions[last]
	d.positions[last] = Position{}
	d.positions = d.positions[:last]

	d.cash += sellPrice
	return pos, nil
}

func (d *Deposit) removeOrder(i int) Order {
	last := len(d.orders) - 1
	order := d.orders[i]
	d.orders[i] = d.orders[last]
	d.orders[last] = Order{}
	d.orders = d.orders[:last]
	return order
}

func (d *Deposit) orderIndex(id uint64) int {
	for i := range d.orders {
		if d.orders[i].HasID(id) {
			return i
		}
	}
	return -1
}

func (d *Deposit) positionIndex(id uint64) int {
	for i := range d.positions {
		if d.positions[i].HasID(id) {
			return i
		}
	}
	return -1
}
