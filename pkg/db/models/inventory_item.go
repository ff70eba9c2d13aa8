package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InventoryItem tracks on-hand stock per seller SKU.
type InventoryItem struct {
	SellerID     uuid.UUID       `gorm:"column:seller_id;type:uuid;primaryKey"`
	SKU          string          `gorm:"column:sku;type:text;primaryKey"`
	AvailableQty decimal.Decimal `gorm:"column:available_qty;type:numeric(14,3);not null;default:0"`
	UpdatedAt    time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (InventoryItem) TableName() string { return "inventory_items" }
