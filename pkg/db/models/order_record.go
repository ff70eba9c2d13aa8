package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/orderdesk/pkg/enums"
)

// OrderRecord is one party's copy of an order. Every order has exactly one
// record per namespace; the document holds the full serialized order.
type OrderRecord struct {
	ID        uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	OrderID   uuid.UUID         `gorm:"column:order_id;type:uuid;not null;uniqueIndex:ux_order_records_order_namespace"`
	Namespace enums.Namespace   `gorm:"column:namespace;type:text;not null;uniqueIndex:ux_order_records_order_namespace"`
	OwnerID   uuid.UUID         `gorm:"column:owner_id;type:uuid;not null"`
	PeerID    uuid.UUID         `gorm:"column:peer_id;type:uuid;not null"`
	Status    enums.OrderStatus `gorm:"column:status;type:text;not null"`
	Revision  int64             `gorm:"column:revision;not null;default:0"`
	Document  json.RawMessage   `gorm:"column:document;type:jsonb;not null"`
	CreatedAt time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (OrderRecord) TableName() string { return "order_records" }
