package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/orderdesk/pkg/enums"
)

// OutboxEvent is one row of the transactional outbox. Payload holds the
// versioned envelope written by outbox.Service; the row is claimed by the
// publisher until PublishedAt is set or AttemptCount reaches the budget.
type OutboxEvent struct {
	ID            uuid.UUID                 `gorm:"column:id;type:uuid;primaryKey"`
	AggregateType enums.OutboxAggregateType `gorm:"column:aggregate_type;type:text;not null"`
	AggregateID   uuid.UUID                 `gorm:"column:aggregate_id;type:uuid;not null"`
	EventType     enums.OutboxEventType     `gorm:"column:event_type;type:text;not null"`
	Payload       json.RawMessage           `gorm:"column:payload;type:jsonb;not null"`

	AttemptCount int        `gorm:"column:attempt_count;not null;default:0"`
	LastError    *string    `gorm:"column:last_error"`
	PublishedAt  *time.Time `gorm:"column:published_at"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime"`
}

func (OutboxEvent) TableName() string { return "outbox_events" }

// LastAttempt reports whether a failure on the next delivery exhausts the
// retry budget.
func (e OutboxEvent) LastAttempt(maxAttempts int) bool {
	return e.AttemptCount+1 >= maxAttempts
}
