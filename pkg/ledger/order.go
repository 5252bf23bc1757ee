package ledger

import (
	"math"
	"time"

	"tradingdesk/pkg/market"
)

// OrderKind is the execution constraint of an Order.
type OrderKind uint8

const (
	OrderNormal OrderKind = iota + 1
	OrderOneCancelsTheOther
	OrderAllOrNone
	OrderImmediateOrCancel
	OrderFillOrKill
)

func (k OrderKind) String() string {
	switch k {
	case OrderNormal:
		return "Normal"
	case OrderOneCancelsTheOther:
		return "OneCancelsTheOther"
	case OrderAllOrNone:
		return "AllOrNone"
	case OrderImmediateOrCancel:
		return "ImmediateOrCancel"
	case OrderFillOrKill:
		return "FillOrKill"
	default:
		return "Unknown"
	}
}

// Order groups one or more OrderData under an execution constraint.
// Normal and ImmediateOrCancel carry exactly one OrderData.
type Order struct {
	Kind OrderKind
	Data []OrderData
}

func NewNormalOrder(data OrderData) Order {
	return Order{Kind: OrderNormal, Data: []OrderData{data}}
}

func NewImmediateOrCancelOrder(data OrderData) Order {
	return Order{Kind: OrderImmediateOrCancel, Data: []OrderData{data}}
}

func NewOneCancelsTheOtherOrder(data ...OrderData) Order {
	return Order{Kind: OrderOneCancelsTheOther, Data: data}
}

func NewAllOrNoneOrder(data ...OrderData) Order {
	return Order{Kind: OrderAllOrNone, Data: data}
}

func NewFillOrKillOrder(data ...OrderData) Order {
	return Order{Kind: OrderFillOrKill, Data: data}
}

// HasID reports whether any of the order's data carries id.
func (o Order) HasID(id uint64) bool {
	_, ok := o.Get(id)
	return ok
}

// Get returns the order data with the given id.
func (o Order) Get(id uint64) (OrderData, bool) {
	if i := o.index(id); i >= 0 {
		return o.Data[i], true
	}
	return OrderData{}, false
}

func (o Order) index(id uint64) int {
	for i := range o.Data {
		if o.Data[i].ID == id {
			return i
		}
	}
	return -1
}

func (o Order) clone() Order {
	data := make([]OrderData, len(o.Data))
	copy(data, o.Data)
	return Order{Kind: o.Kind, Data: data}
}

// OrderData is a single instruction to a broker.
//
// ID is always HashRawID of the broker's raw identifier, many brokers hand out
// strings instead of integers.
type OrderData struct {
	ID           uint64
	Exchange     StockExchange
	Pieces       uint64
	Type         OrderType
	PositionType PositionType
	TakeProfit   TakeProfit
	StopLoss     StopLoss
	Moment       OrderMoment
	Validity     OrderValidity
}

// NewOrderData sets ID from rawID and copies the rest from data.
func NewOrderData(rawID string, data OrderData) OrderData {
	data.ID = HashRawID(rawID)
	return data
}

// OrderTypeKind selects how the order price is determined.
type OrderTypeKind uint8

const (
	OrderTypeMarket OrderTypeKind = iota + 1
	OrderTypeLimit
	OrderTypeStop
)

// OrderType is Market, Limit(price) or Stop(price).
type OrderType struct {
	Kind  OrderTypeKind
	Price market.Price
}

func MarketOrder() OrderType                  { return OrderType{Kind: OrderTypeMarket} }
func LimitOrder(price market.Price) OrderType { return OrderType{Kind: OrderTypeLimit, Price: price} }
func StopOrder(price market.Price) OrderType  { return OrderType{Kind: OrderTypeStop, Price: price} }

func (t OrderType) String() string {
	switch t.Kind {
	case OrderTypeMarket:
		return "Market"
	case OrderTypeLimit:
		return "Limit(" + t.Price.String() + ")"
	case OrderTypeStop:
		return "Stop(" + t.Price.String() + ")"
	default:
		return "Unknown"
	}
}

// PositionType is the direction of the exposure an order opens.
type PositionType uint8

const (
	LongCall PositionType = iota + 1
	LongPut
	ShortCall
	ShortPut
)

func (p PositionType) String() string {
	switch p {
	case LongCall:
		return "LongCall"
	case LongPut:
		return "LongPut"
	case ShortCall:
		return "ShortCall"
	case ShortPut:
		return "ShortPut"
	default:
		return "Unknown"
	}
}

type TakeProfitKind uint8

const (
	TakeProfitNone TakeProfitKind = iota
	TakeProfitAbsolute
	TakeProfitRelative
)

// TakeProfit is None, Absolute(price) or Relative(delta).
type TakeProfit struct {
	Kind  TakeProfitKind
	Price market.Price
}

func NoTakeProfit() TakeProfit { return TakeProfit{} }

func AbsoluteTakeProfit(price market.Price) TakeProfit {
	return TakeProfit{Kind: TakeProfitAbsolute, Price: price}
}

func RelativeTakeProfit(delta market.RelativePrice) TakeProfit {
	return TakeProfit{Kind: TakeProfitRelative, Price: delta}
}

type StopLossKind uint8

const (
	StopLossNone StopLossKind = iota
	StopLossAbsolute
	StopLossRelative
	StopLossTrailing
)

// StopLoss is None, Absolute(price), Relative(delta) or Trailing(delta).
type StopLoss struct {
	Kind  StopLossKind
	Price market.Price
}

func NoStopLoss() StopLoss { return StopLoss{} }

func AbsoluteStopLoss(price market.Price) StopLoss {
	return StopLoss{Kind: StopLossAbsolute, Price: price}
}

func RelativeStopLoss(delta market.RelativePrice) StopLoss {
	return StopLoss{Kind: StopLossRelative, Price: delta}
}

func TrailingStopLoss(delta market.RelativePrice) StopLoss {
	return StopLoss{Kind: StopLossTrailing, Price: delta}
}

// OrderMoment is Instant when At is zero, otherwise planned for At.
type OrderMoment struct {
	At time.Time
}

func Instant() OrderMoment             { return OrderMoment{} }
func Planned(at time.Time) OrderMoment { return OrderMoment{At: at} }
func (m OrderMoment) IsInstant() bool  { return m.At.IsZero() }

// Until returns the time left before the order may be placed, zero for Instant.
func (m OrderMoment) Until(now time.Time) time.Duration {
	if m.IsInstant() {
		return 0
	}
	return m.At.Sub(now)
}

// IsNowOrPassed reports whether the planned moment has been reached.
func (m OrderMoment) IsNowOrPassed(now time.Time) bool {
	return m.Until(now) <= 0
}

// OrderValidity is how long an order stays open after placement.
type OrderValidity uint8

const (
	ValidNow OrderValidity = iota
	ValidOneDay
	ValidOneWeek
	ValidOneMonth
	ValidOneYear
	ValidForever
)

const day = 24 * time.Hour

// Duration returns the validity window. Forever is the largest duration.
func (v OrderValidity) Duration() time.Duration {
	switch v {
	case ValidOneDay:
		return day
	case ValidOneWeek:
		return 7 * day
	case ValidOneMonth:
		return 30 * day
	case ValidOneYear:
		return 365 * day
	case ValidForever:
		return math.MaxInt64
	default:
		return 0
	}
}

// IsValid reports whether an order placed at start is still open at now.
func (v OrderValidity) IsValid(start, now time.Time) bool {
	if v == ValidForever {
		return true
	}
	return !now.After(start.Add(v.Duration()))
}
