package proforma

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/orderdesk/pkg/enums"
)

// TaxBreakup holds the GST components. Either IGST is zero (intrastate) or
// CGST and SGST are both zero (interstate).
type TaxBreakup struct {
	CGST decimal.Decimal `json:"cgst"`
	SGST decimal.Decimal `json:"sgst"`
	IGST decimal.Decimal `json:"igst"`
}

// Total sums the three components.
func (t TaxBreakup) Total() decimal.Decimal {
	return t.CGST.Add(t.SGST).Add(t.IGST)
}

// Breakdown is the immutable price computation attached to a quote.
type Breakdown struct {
	GrossItems        decimal.Decimal `json:"grossItems"`
	LineDiscountTotal decimal.Decimal `json:"lineDiscountTotal"`
	ItemsSubTotal     decimal.Decimal `json:"itemsSubTotal"`
	Delivery          decimal.Decimal `json:"delivery"`
	Packing           decimal.Decimal `json:"packing"`
	Insurance         decimal.Decimal `json:"insurance"`
	Other             decimal.Decimal `json:"other"`
	DiscountPct       decimal.Decimal `json:"discountPct"`
	DiscountAmt       decimal.Decimal `json:"discountAmt"`
	TaxableBase       decimal.Decimal `json:"taxableBase"`
	TaxType           enums.TaxType   `json:"taxType"`
	TaxBreakup        TaxBreakup      `json:"taxBreakup"`
	RoundOff          decimal.Decimal `json:"roundOff"`
	GrandTotal        decimal.Decimal `json:"grandTotal"`
}

// Charges returns the order-level charges carried by the breakdown.
func (b Breakdown) Charges() Charges {
	return Charges{Delivery: b.Delivery, Packing: b.Packing, Insurance: b.Insurance, Other: b.Other}
}

// PreDiscountTotal is the line subtotal plus all order-level charges.
func (b Breakdown) PreDiscountTotal() decimal.Decimal {
	return b.ItemsSubTotal.Add(b.Charges().Total())
}

// Check asserts grandTotal == taxableBase + cgst + sgst + igst + roundOff.
func (b Breakdown) Check() error {
	want := b.TaxableBase.Add(b.TaxBreakup.Total()).Add(b.RoundOff)
	if !want.Equal(b.GrandTotal) {
		return fmt.Errorf("grand total %s does not match components %s", b.GrandTotal, want)
	}
	switch b.TaxType {
	case enums.TaxTypeCGSTSGST:
		if !b.TaxBreakup.IGST.IsZero() || !b.TaxBreakup.CGST.Equal(b.TaxBreakup.SGST) {
			return fmt.Errorf("intrastate breakup must have igst=0 and cgst=sgst")
		}
	case enums.TaxTypeIGST:
		if !b.TaxBreakup.CGST.IsZero() || !b.TaxBreakup.SGST.IsZero() {
			return fmt.Errorf("interstate breakup must have cgst=sgst=0")
		}
	default:
		return fmt.Errorf("unknown tax type %q", b.TaxType)
	}
	return nil
}

// LineTotal is the per-line intermediate result of a calculation.
type LineTotal struct {
	Name      string          `json:"name"`
	SKU       string          `json:"sku"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitBase  decimal.Decimal `json:"unitBase"`
	UnitTax   decimal.Decimal `json:"unitTax"`
	UnitFinal decimal.Decimal `json:"unitFinal"`
	GSTRate   decimal.Decimal `json:"gstRate"`
	Gross     decimal.Decimal `json:"gross"`
	Discount  decimal.Decimal `json:"discount"`
	Net       decimal.Decimal `json:"net"`
	Tax       decimal.Decimal `json:"tax"`
}

// Result bundles the breakdown with the per-line figures it was built from.
type Result struct {
	Breakdown Breakdown   `json:"breakdown"`
	Lines     []LineTotal `json:"lines"`
}
