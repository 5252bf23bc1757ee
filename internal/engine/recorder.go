package engine

import (
	"context"
	"time"

	"github.com/google/uuid"

	"tradingdesk/pkg/market"
)

type EventKind string

const (
	EventOrderPlaced     EventKind = "order_placed"
	EventOrderDeleted    EventKind = "order_deleted"
	EventOrderExecuted   EventKind = "order_executed"
	EventPositionClosed  EventKind = "position_closed"
	EventPositionUpdated EventKind = "position_updated"
	EventRejected        EventKind = "rejected"
	EventStateChanged    EventKind = "state_changed"
)

// Event is one change a session made to its deposit or lifecycle.
type Event struct {
	Session    uuid.UUID
	Algorithm  string
	Deposit    uint64
	Kind       EventKind
	OrderID    uint64
	PositionID uint64
	Price      market.Price
	Detail     string
	At         time.Time
}

// Recorder persists session events. A failing recorder never stops trading.
type Recorder interface {
	Record(ctx context.Context, events ...Event) error
}
