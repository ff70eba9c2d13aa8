package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/orderdesk/pkg/enums"
)

func init() {
	// Money fields are persisted and served as plain JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

// Line is one purchasable unit within an order. Which of MRP, BasePrice and
// FinalPrice is authoritative depends on PricingMode.
type Line struct {
	Name                  string               `json:"name"`
	SKU                   string               `json:"sku"`
	Quantity              decimal.Decimal      `json:"quantity"`
	PricingMode           enums.PricingMode    `json:"pricingMode"`
	MRP                   decimal.Decimal      `json:"mrp"`
	BasePrice             decimal.Decimal      `json:"basePrice"`
	FinalPrice            decimal.Decimal      `json:"finalPrice"`
	GSTRate               decimal.Decimal      `json:"gstRate"`
	ItemDiscountPct       decimal.Decimal      `json:"itemDiscountPct"`
	ItemDiscountAmt       decimal.Decimal      `json:"itemDiscountAmt"`
	ItemDiscountChangedBy enums.DiscountSource `json:"itemDiscountChangedBy,omitempty"`
}

// Split is the canonical per-unit price decomposition.
type Split struct {
	Base  decimal.Decimal `json:"base"`
	Tax   decimal.Decimal `json:"tax"`
	Final decimal.Decimal `json:"final"`
}

// EffectiveRate is the GST rate the line contributes to tax computation.
// Legacy lines carry no tax decomposition, so their rate is zero.
func (l Line) EffectiveRate() decimal.Decimal {
	if l.mode() == enums.PricingModeLegacy {
		return decimal.Zero
	}
	return SanitizeRate(l.GSTRate)
}

// Qty returns the sanitized quantity.
func (l Line) Qty() decimal.Decimal {
	return NonNegative(l.Quantity)
}

// Normalized rewrites the derived price fields from the authoritative one so
// the stored line is self-consistent.
func (l Line) Normalized() Line {
	split := Normalize(l, l.GSTRate)
	out := l
	out.PricingMode = l.mode()
	out.Quantity = l.Qty()
	out.GSTRate = SanitizeRate(l.GSTRate)
	out.BasePrice = split.Base
	out.FinalPrice = split.Final
	if out.PricingMode == enums.PricingModeMRPInclusive && out.MRP.IsZero() {
		out.MRP = split.Final
	}
	out.ItemDiscountPct = clamp(l.ItemDiscountPct, decimal.Zero, hundred)
	out.ItemDiscountAmt = NonNegative(l.ItemDiscountAmt)
	return out
}

func (l Line) mode() enums.PricingMode {
	if l.PricingMode.IsValid() {
		return l.PricingMode
	}
	return enums.PricingModeLegacy
}
