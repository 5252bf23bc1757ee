package broker

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/yanun0323/decimal"

	"tradingdesk/pkg/exception"
	"tradingdesk/pkg/ledger"
	"tradingdesk/pkg/market"
)

// Snapshot is the account document brokers return. Amounts are decimals so
// raw broker strings are parsed without float rounding before they reach the ledger.
type Snapshot struct {
	ID       string          `json:"id"`
	Currency string          `json:"currency"`
	Cash     decimal.Decimal `json:"cash"`
	Orders   []SnapshotOrder `json:"orders"`
}

type SnapshotOrder struct {
	ID         string           `json:"id"`
	Kind       string           `json:"kind"`
	Exchange   string           `json:"exchange"`
	Pieces     uint64           `json:"pieces"`
	Type       string           `json:"type"`
	Price      decimal.Decimal  `json:"price"`
	Position   string           `json:"position"`
	TakeProfit *decimal.Decimal `json:"takeProfit,omitempty"`
	StopLoss   *decimal.Decimal `json:"stopLoss,omitempty"`
	PlannedAt  *time.Time       `json:"plannedAt,omitempty"`
	Validity   string           `json:"validity"`
	Legs       []SnapshotOrder  `json:"legs,omitempty"`
}

// DecodeSnapshot parses a broker account document into a Deposit with its
// cash and open orders. Positions are never part of a snapshot, they only
// come from executing orders.
func DecodeSnapshot(data []byte) (*ledger.Deposit, error) {
	var snap Snapshot
	if err := sonic.ConfigFastest.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("%w: %w", exception.ErrBrokerSnapshot, err)
	}
	return snap.Deposit()
}

func (s Snapshot) Deposit() (*ledger.Deposit, error) {
	if s.ID == "" {
		return nil, fmt.Errorf("%w: empty deposit id", exception.ErrBrokerSnapshot)
	}

	cash, err := price(s.Cash)
	if err != nil {
		return nil, fmt.Errorf("%w: cash: %w", exception.ErrBrokerSnapshot, err)
	}
	deposit := ledger.NewDeposit(ledger.HashRawID(s.ID), ledger.Currency(strings.ToUpper(s.Currency)), cash)
	for _, so := range s.Orders {
		order, err := so.order()
		if err != nil {
			return nil, fmt.Errorf("%w: order %s: %w", exception.ErrBrokerSnapshot, so.ID, err)
		}
		deposit.PlaceOrder(order)
	}
	return deposit, nil
}

func (o SnapshotOrder) order() (ledger.Order, error) {
	kind := strings.ToLower(o.Kind)
	legs := o.Legs
	if len(legs) == 0 {
		legs = []SnapshotOrder{o}
	}

	data := make([]ledger.OrderData, 0, len(legs))
	for _, leg := range legs {
		d, err := leg.data()
		if err != nil {
			return ledger.Order{}, err
		}
		data = append(data, d)
	}

	switch kind {
	case "", "normal", "ioc", "immediate_or_cancel":
		if len(data) != 1 {
			return ledger.Order{}, fmt.Errorf("%s order with %d legs", o.Kind, len(data))
		}
	}

	switch kind {
	case "", "normal":
		return ledger.NewNormalOrder(data[0]), nil
	case "ioc", "immediate_or_cancel":
		return ledger.NewImmediateOrCancelOrder(data[0]), nil
	case "oco", "one_cancels_the_other":
		return ledger.NewOneCancelsTheOtherOrder(data...), nil
	case "aon", "all_or_none":
		return ledger.NewAllOrNoneOrder(data...), nil
	case "fok", "fill_or_kill":
		return ledger.NewFillOrKillOrder(data...), nil
	default:
		return ledger.Order{}, fmt.Errorf("unknown order kind %q", o.Kind)
	}
}

func (o SnapshotOrder) data() (ledger.OrderData, error) {
	if o.ID == "" {
		return ledger.OrderData{}, fmt.Errorf("empty order id")
	}

	at, err := price(o.Price)
	if err != nil {
		return ledger.OrderData{}, err
	}

	var typ ledger.OrderType
	switch strings.ToLower(o.Type) {
	case "", "market":
		typ = ledger.MarketOrder()
	case "limit":
		typ = ledger.LimitOrder(at)
	case "stop":
		typ = ledger.StopOrder(at)
	default:
		return ledger.OrderData{}, fmt.Errorf("unknown order type %q", o.Type)
	}

	var pos ledger.PositionType
	switch strings.ToLower(o.Position) {
	case "", "long_call":
		pos = ledger.LongCall
	case "long_put":
		pos = ledger.LongPut
	case "short_call":
		pos = ledger.ShortCall
	case "short_put":
		pos = ledger.ShortPut
	default:
		return ledger.OrderData{}, fmt.Errorf("unknown position type %q", o.Position)
	}

	validity, ok := validities[strings.ToLower(o.Validity)]
	if !ok {
		return ledger.OrderData{}, fmt.Errorf("unknown validity %q", o.Validity)
	}

	d := ledger.OrderData{
		Exchange:     ledger.StockExchange(o.Exchange),
		Pieces:       o.Pieces,
		Type:         typ,
		PositionType: pos,
		TakeProfit:   ledger.NoTakeProfit(),
		StopLoss:     ledger.NoStopLoss(),
		Moment:       ledger.Instant(),
		Validity:     validity,
	}
	if o.TakeProfit != nil {
		tp, err := price(*o.TakeProfit)
		if err != nil {
			return ledger.OrderData{}, err
		}
		d.TakeProfit = ledger.AbsoluteTakeProfit(tp)
	}
	if o.StopLoss != nil {
		sl, err := price(*o.StopLoss)
		if err != nil {
			return ledger.OrderData{}, err
		}
		d.StopLoss = ledger.AbsoluteStopLoss(sl)
	}
	if o.PlannedAt != nil {
		d.Moment = ledger.Planned(*o.PlannedAt)
	}
	return ledger.NewOrderData(o.ID, d), nil
}

var validities = map[string]ledger.OrderValidity{
	"":        ledger.ValidForever,
	"now":     ledger.ValidNow,
	"day":     ledger.ValidOneDay,
	"week":    ledger.ValidOneWeek,
	"month":   ledger.ValidOneMonth,
	"year":    ledger.ValidOneYear,
	"forever": ledger.ValidForever,
}

// price converts a broker amount through its decimal text, so the ledger sees
// the nearest float to what the broker sent.
func price(d decimal.Decimal) (market.Price, error) {
	text := d.String()
	if text == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, fmt.Errorf("amount %q: %w", text, err)
	}
	return market.NewPrice(f), nil
}
