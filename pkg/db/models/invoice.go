package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/orderdesk/pkg/enums"
)

// Invoice stores the materialized invoice document, one per order.
type Invoice struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	OrderID       uuid.UUID           `gorm:"column:order_id;type:uuid;not null;uniqueIndex:ux_invoices_order_id"`
	InvoiceNumber string              `gorm:"column:invoice_number;type:text;not null;uniqueIndex:ux_invoices_invoice_number"`
	Status        enums.InvoiceStatus `gorm:"column:status;type:text;not null;default:'ISSUED'"`
	PaymentStatus enums.PaymentStatus `gorm:"column:payment_status;type:text;not null;default:'UNPAID'"`
	GrandTotal    decimal.Decimal     `gorm:"column:grand_total;type:numeric(14,2);not null"`
	Document      json.RawMessage     `gorm:"column:document;type:jsonb;not null"`
	IssuedAt      time.Time           `gorm:"column:issued_at;not null"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime"`
}

func (Invoice) TableName() string { return "invoices" }
