package payloads

import (
	"time"

	"github.com/angelmondragon/orderdesk/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderCreatedEvent signals a new order in its initial status.
type OrderCreatedEvent struct {
	OrderID   uuid.UUID         `json:"orderId"`
	BuyerID   uuid.UUID         `json:"buyerId"`
	SellerID  uuid.UUID         `json:"sellerId"`
	Status    enums.OrderStatus `json:"status"`
	CreatedBy enums.Namespace   `json:"createdBy"`
	LineCount int               `json:"lineCount"`
}

// OrderQuotedEvent carries the headline figures of a fresh quote.
type OrderQuotedEvent struct {
	OrderID    uuid.UUID       `json:"orderId"`
	BuyerID    uuid.UUID       `json:"buyerId"`
	SellerID   uuid.UUID       `json:"sellerId"`
	TaxType    enums.TaxType   `json:"taxType"`
	GrandTotal decimal.Decimal `json:"grandTotal"`
	Revision   int64           `json:"revision"`
}

// OrderStatusChangedEvent is emitted for every accepted transition.
type OrderStatusChangedEvent struct {
	OrderID  uuid.UUID         `json:"orderId"`
	BuyerID  uuid.UUID         `json:"buyerId"`
	SellerID uuid.UUID         `json:"sellerId"`
	From     enums.OrderStatus `json:"from"`
	To       enums.OrderStatus `json:"to"`
	Notes    string            `json:"notes,omitempty"`
	Revision int64             `json:"revision"`
	At       time.Time         `json:"at"`
}

// InvoiceMaterializedEvent is emitted once when an order's invoice is created.
type InvoiceMaterializedEvent struct {
	InvoiceID     uuid.UUID           `json:"invoiceId"`
	OrderID       uuid.UUID           `json:"orderId"`
	InvoiceNumber string              `json:"invoiceNumber"`
	GrandTotal    decimal.Decimal     `json:"grandTotal"`
	PaymentStatus enums.PaymentStatus `json:"paymentStatus"`
	IssuedAt      time.Time           `json:"issuedAt"`
}
