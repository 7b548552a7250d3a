package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// RecordMeta captures identifiers and audit fields shared across SQL records.
type RecordMeta struct {
	ID        uuid.UUID `bun:",pk,type:uuid" json:"id"`
	CreatedAt time.Time `bun:",nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt time.Time `bun:",nullzero,notnull,default:current_timestamp" json:"updated_at"`
}

// EnsureID assigns a UUID when the struct is about to be persisted.
func (m *RecordMeta) EnsureID() {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
}

// RawJSON persists an already encoded JSON document.
type RawJSON json.RawMessage

// Value implements driver.Valuer.
func (r RawJSON) Value() (driver.Value, error) {
	if len(r) == 0 {
		return []byte("null"), nil
	}
	if !json.Valid(r) {
		return nil, errors.New("RawJSON: invalid JSON document")
	}
	return []byte(r), nil
}

// Scan implements sql.Scanner.
func (r *RawJSON) Scan(value any) error {
	if r == nil {
		return errors.New("RawJSON: Scan on nil pointer")
	}
	switch v := value.(type) {
	case nil:
		*r = nil
		return nil
	case []byte:
		*r = append(RawJSON(nil), v...)
		return nil
	case string:
		*r = RawJSON(v)
		return nil
	default:
		return fmt.Errorf("RawJSON: unsupported type %T", value)
	}
}

// NotificationRecord stores the full notification document keyed by its feed id.
type NotificationRecord struct {
	bun.BaseModel `bun:"table:notifications"`
	RecordMeta

	NotificationID string  `bun:",unique,nullzero,notnull" json:"notification_id"`
	Payload        RawJSON `bun:"type:jsonb,nullzero" json:"payload"`
}

// ContentLinkSet stores the content links selected for one notification.
type ContentLinkSet struct {
	bun.BaseModel `bun:"table:notification_content_links"`
	RecordMeta

	NotificationID string  `bun:",unique,nullzero,notnull" json:"notification_id"`
	Count          int     `bun:",notnull,default:0" json:"count"`
	Links          RawJSON `bun:"type:jsonb,nullzero" json:"links"`
}
