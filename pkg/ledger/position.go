package ledger

import (
	"time"

	"tradingdesk/pkg/market"
)

// Position is an executed order. Only the risk policies change until it is closed.
type Position struct {
	ID           uint64
	OrderID      uint64
	Exchange     StockExchange
	Pieces       uint64
	PositionType PositionType
	BuyPrice     market.Price
	Bought       time.Time
	TakeProfit   TakeProfit
	StopLoss     StopLoss
}

// PositionFromOrderData derives the position opened by executing data.
func PositionFromOrderData(id uint64, bought time.Time, buyPrice market.Price, data OrderData) Position {
	return Position{
		ID:           id,
		OrderID:      data.ID,
		Exchange:     data.Exchange,
		Pieces:       data.Pieces,
		PositionType: data.PositionType,
		BuyPrice:     buyPrice,
		Bought:       bought,
		TakeProfit:   data.TakeProfit,
		StopLoss:     data.StopLoss,
	}
}

func (p Position) HasID(id uint64) bool {
	return p.ID == id
}

// PositionPolicy is the mutable part of a Position.
type PositionPolicy struct {
	TakeProfit TakeProfit
	StopLoss   StopLoss
}
