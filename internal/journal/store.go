// Package journal keeps an append-only audit trail of what sessions did to
// their deposits. It does not store ledger state.
package journal

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/yanun0323/errors"
	"gorm.io/gorm"

	"tradingdesk/internal/engine"
)

var _ engine.Recorder = (*Store)(nil)

// Event is one journal row. Ledger ids are unsigned 64-bit hashes and are
// stored as decimal strings since postgres has no unsigned bigint.
type Event struct {
	ID         uuid.UUID       `gorm:"type:uuid;primaryKey"`
	SessionID  uuid.UUID       `gorm:"type:uuid;index:idx_journal_session_at,priority:1"`
	Algorithm  string          `gorm:"size:128;not null"`
	DepositID  string          `gorm:"size:20;not null"`
	Kind       string          `gorm:"size:32;not null"`
	OrderID    string          `gorm:"size:20"`
	PositionID string          `gorm:"size:20"`
	Price      decimal.Decimal `gorm:"type:numeric(24,8)"`
	Detail     string          `gorm:"type:text"`
	At         time.Time       `gorm:"index:idx_journal_session_at,priority:2"`
	CreatedAt  time.Time
}

func (Event) TableName() string {
	return "journal_events"
}

// FromEngine converts a session event into a row with a fresh id.
func FromEngine(e engine.Event) Event {
	return Event{
		ID:         uuid.New(),
		SessionID:  e.Session,
		Algorithm:  e.Algorithm,
		DepositID:  strconv.FormatUint(e.Deposit, 10),
		Kind:       string(e.Kind),
		OrderID:    formatID(e.OrderID),
		PositionID: formatID(e.PositionID),
		Price:      decimal.NewFromFloat(e.Price.Float64()),
		Detail:     e.Detail,
		At:         e.At.UTC(),
	}
}

func formatID(id uint64) string {
	if id == 0 {
		return ""
	}
	return strconv.FormatUint(id, 10)
}

type Store struct {
	db *gorm.DB
}

// Open connects to postgres and migrates the journal table.
func Open(ctx context.Context, opt Option) (*Store, error) {
	db, err := dial(opt)
	if err != nil {
		return nil, errors.Wrap(err, "open journal")
	}
	s := NewStore(db)
	if err := s.Migrate(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

// NewStore wraps an existing connection.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&Event{}); err != nil {
		return errors.Wrap(err, "migrate journal")
	}
	return nil
}

// Record inserts events in one statement.
func (s *Store) Record(ctx context.Context, events ...engine.Event) error {
	if len(events) == 0 {
		return nil
	}
	rows := make([]Event, 0, len(events))
	for _, e := range events {
		rows = append(rows, FromEngine(e))
	}
	if err := s.db.WithContext(ctx).Create(&rows).Error; err != nil {
		return errors.Wrap(err, "record events").With("count", len(rows))
	}
	return nil
}

// Events returns the latest events of a session, newest first.
func (s *Store) Events(ctx context.Context, session uuid.UUID, limit int) ([]Event, error) {
	var rows []Event
	if err := s.sessionQuery(ctx, session, limit).Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "query events").With("session", session.String())
	}
	return rows, nil
}

func (s *Store) sessionQuery(ctx context.Context, session uuid.UUID, limit int) *gorm.DB {
	if limit <= 0 {
		limit = 100
	}
	return s.db.WithContext(ctx).
		Where("session_id = ?", session).
		Order("at DESC").
		Limit(limit)
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
