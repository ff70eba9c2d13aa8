package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/orderdesk/pkg/enums"
)

// MirrorWrite is a pending copy of a primary order record into the
// counterparty namespace. Rows are drained by the reconciler.
type MirrorWrite struct {
	ID              uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	OrderID         uuid.UUID       `gorm:"column:order_id;type:uuid;not null"`
	SourceNamespace enums.Namespace `gorm:"column:source_namespace;type:text;not null"`
	TargetNamespace enums.Namespace `gorm:"column:target_namespace;type:text;not null"`
	TargetOwnerID   uuid.UUID       `gorm:"column:target_owner_id;type:uuid;not null"`
	Revision        int64           `gorm:"column:revision;not null"`
	AttemptCount    int             `gorm:"column:attempt_count;not null;default:0"`
	LastError       *string         `gorm:"column:last_error"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime"`
	SyncedAt        *time.Time      `gorm:"column:synced_at"`
}

func (MirrorWrite) TableName() string { return "mirror_writes" }
