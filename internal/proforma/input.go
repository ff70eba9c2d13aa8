package proforma

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/orderdesk/internal/pricing"
	"github.com/angelmondragon/orderdesk/pkg/enums"
)

// Charges are the order-level additions on top of the line subtotal.
type Charges struct {
	Delivery  decimal.Decimal `json:"delivery"`
	Packing   decimal.Decimal `json:"packing"`
	Insurance decimal.Decimal `json:"insurance"`
	Other     decimal.Decimal `json:"other"`
}

// Sanitized clamps every charge to be non-negative and rounds to cents.
func (c Charges) Sanitized() Charges {
	return Charges{
		Delivery:  pricing.Round(pricing.NonNegative(c.Delivery)),
		Packing:   pricing.Round(pricing.NonNegative(c.Packing)),
		Insurance: pricing.Round(pricing.NonNegative(c.Insurance)),
		Other:     pricing.Round(pricing.NonNegative(c.Other)),
	}
}

// Total sums all charges.
func (c Charges) Total() decimal.Decimal {
	return c.Delivery.Add(c.Packing).Add(c.Insurance).Add(c.Other)
}

// Discount is an order-level discount as entered. Source says which of the
// two fields the user edited; the calculator derives the other.
type Discount struct {
	Pct    decimal.Decimal      `json:"pct"`
	Amt    decimal.Decimal      `json:"amt"`
	Source enums.DiscountSource `json:"source,omitempty"`
}

// PercentAuthoritative reports whether the percentage drives the amount.
// Without an explicit source, a non-zero amount wins.
func (d Discount) PercentAuthoritative() bool {
	switch d.Source {
	case enums.DiscountSourcePct:
		return true
	case enums.DiscountSourceAmt:
		return false
	}
	return d.Amt.IsZero() && d.Pct.IsPositive()
}

// Rounding configures the whole-unit rounding of the grand total.
type Rounding struct {
	Enabled bool               `json:"enabled"`
	Rule    enums.RoundingRule `json:"rule"`
}

// Input is everything the calculator needs.
type Input struct {
	Lines       []pricing.Line
	Charges     Charges
	Discount    Discount
	BuyerState  string
	SellerState string
	Rounding    Rounding
}
