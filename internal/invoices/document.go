package invoices

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/orderdesk/internal/proforma"
	"github.com/angelmondragon/orderdesk/pkg/enums"
)

// Party is the identity snapshot printed on an invoice. GSTNumber is only
// carried for the seller.
type Party struct {
	BusinessName string `json:"businessName"`
	Email        string `json:"email,omitempty"`
	Phone        string `json:"phone,omitempty"`
	City         string `json:"city,omitempty"`
	State        string `json:"state,omitempty"`
	GSTNumber    string `json:"gstNumber,omitempty"`
}

// Payment is the settlement snapshot taken at materialization.
type Payment struct {
	Mode   enums.PaymentMode   `json:"mode"`
	IsPaid bool                `json:"isPaid"`
	Status enums.PaymentStatus `json:"status"`
}

// Invoice is the financial document created once per delivered order.
type Invoice struct {
	ID            uuid.UUID            `json:"id"`
	OrderID       uuid.UUID            `json:"orderId"`
	InvoiceNumber string               `json:"invoiceNumber"`
	Buyer         Party                `json:"buyer"`
	Seller        Party                `json:"seller"`
	Totals        proforma.Breakdown   `json:"totals"`
	Lines         []proforma.LineTotal `json:"lines,omitempty"`
	Payment       Payment              `json:"payment"`
	IssuedAt      time.Time            `json:"issuedAt"`
	Status        enums.InvoiceStatus  `json:"status"`
}

// Source is what the materializer needs from an order.
type Source struct {
	OrderID uuid.UUID
	Buyer   Party
	Seller  Party
	// Breakdown is the quoted breakdown; when nil one is computed from Pricing.
	Breakdown   *proforma.Breakdown
	Pricing     proforma.Input
	PaymentMode enums.PaymentMode
	IsPaid      bool
}

func paymentFor(mode enums.PaymentMode, paid bool) Payment {
	if mode == "" {
		mode = enums.PaymentModeCash
	}
	return Payment{Mode: mode, IsPaid: paid, Status: enums.PaymentStatusOf(paid)}
}
