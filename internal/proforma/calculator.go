package proforma

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/orderdesk/internal/pricing"
	"github.com/angelmondragon/orderdesk/pkg/enums"
)

var (
	hundred = decimal.NewFromInt(100)
	two     = decimal.NewFromInt(2)
)

// Calculate produces the price breakdown for the input.
func Calculate(in Input) Breakdown {
	return Compute(in).Breakdown
}

// Compute produces the breakdown together with per-line figures. It is pure
// and never fails; malformed amounts have already collapsed to zero.
func Compute(in Input) Result {
	lines := make([]LineTotal, 0, len(in.Lines))
	rates := make([]decimal.Decimal, 0, len(in.Lines))

	var out Breakdown
	for _, line := range in.Lines {
		lt, rate := computeLine(line)
		lines = append(lines, lt)
		rates = append(rates, rate)
		out.GrossItems = out.GrossItems.Add(lt.Gross)
		out.LineDiscountTotal = out.LineDiscountTotal.Add(lt.Discount)
		out.ItemsSubTotal = out.ItemsSubTotal.Add(lt.Net)
	}

	charges := in.Charges.Sanitized()
	out.Delivery = charges.Delivery
	out.Packing = charges.Packing
	out.Insurance = charges.Insurance
	out.Other = charges.Other

	pre := out.ItemsSubTotal.Add(charges.Total())
	out.DiscountAmt, out.DiscountPct = resolveDiscount(in.Discount, pre)
	out.TaxableBase = pre.Sub(out.DiscountAmt)

	out.TaxType = TaxTypeFor(in.BuyerState, in.SellerState)
	out.TaxBreakup = splitTax(out.TaxType, out.TaxableBase, out.ItemsSubTotal, lines, rates)

	total := out.TaxableBase.Add(out.TaxBreakup.Total())
	out.RoundOff = roundOff(total, in.Rounding)
	out.GrandTotal = total.Add(out.RoundOff)

	return Result{Breakdown: out, Lines: lines}
}

func computeLine(line pricing.Line) (LineTotal, decimal.Decimal) {
	rate := line.EffectiveRate()
	split := pricing.Normalize(line, line.GSTRate)
	qty := line.Qty()

	gross := pricing.Round(qty.Mul(split.Base))
	discount := lineDiscount(line, gross)

	return LineTotal{
		Name:      line.Name,
		SKU:       line.SKU,
		Quantity:  qty,
		UnitBase:  split.Base,
		UnitTax:   split.Tax,
		UnitFinal: split.Final,
		GSTRate:   rate,
		Gross:     gross,
		Discount:  discount,
		Net:       gross.Sub(discount),
	}, rate
}

func lineDiscount(line pricing.Line, gross decimal.Decimal) decimal.Decimal {
	pct := pricing.NonNegative(line.ItemDiscountPct)
	amt := pricing.NonNegative(line.ItemDiscountAmt)

	var usePct bool
	switch line.ItemDiscountChangedBy {
	case enums.DiscountSourcePct:
		usePct = true
	case enums.DiscountSourceAmt:
		usePct = false
	default:
		usePct = amt.IsZero() && pct.IsPositive()
	}

	discount := amt
	if usePct {
		discount = gross.Mul(pct).Div(hundred)
	}
	return clampMoney(discount, gross)
}

// resolveDiscount returns the canonical discount amount and its derived
// percentage of the pre-discount total.
func resolveDiscount(d Discount, pre decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	if !pre.IsPositive() {
		return decimal.Zero, decimal.Zero
	}
	amt := pricing.NonNegative(d.Amt)
	if d.PercentAuthoritative() {
		amt = pre.Mul(pricing.NonNegative(d.Pct)).Div(hundred)
	}
	amt = clampMoney(amt, pre)
	pct := pricing.Round(amt.Div(pre).Mul(hundred))
	return amt, pct
}

// splitTax applies each line's rate to its share of the taxable base. Shares
// are proportional to the line's contribution to the items subtotal, so
// order-level charges and discounts are spread across lines.
func splitTax(taxType enums.TaxType, taxableBase, itemsSubTotal decimal.Decimal, lines []LineTotal, rates []decimal.Decimal) TaxBreakup {
	breakup := TaxBreakup{CGST: decimal.Zero, SGST: decimal.Zero, IGST: decimal.Zero}
	if !itemsSubTotal.IsPositive() || !taxableBase.IsPositive() {
		return breakup
	}

	total := decimal.Zero
	for i := range lines {
		share := taxableBase.Mul(lines[i].Net).Div(itemsSubTotal)
		lineTax := share.Mul(rates[i]).Div(hundred)
		lines[i].Tax = pricing.Round(lineTax)
		total = total.Add(lineTax)
	}

	if taxType == enums.TaxTypeIGST {
		breakup.IGST = pricing.Round(total)
		return breakup
	}
	half := pricing.Round(total.Div(two))
	breakup.CGST = half
	breakup.SGST = half
	return breakup
}

func roundOff(total decimal.Decimal, r Rounding) decimal.Decimal {
	if !r.Enabled {
		return decimal.Zero
	}
	var rounded decimal.Decimal
	switch r.Rule {
	case enums.RoundingUp:
		rounded = total.Ceil()
	case enums.RoundingDown:
		rounded = total.Floor()
	default:
		rounded = total.Round(0)
	}
	return rounded.Sub(total)
}

// TaxTypeFor picks CGST_SGST when both parties are in the same state and IGST
// otherwise. States compare case- and whitespace-insensitively.
func TaxTypeFor(buyerState, sellerState string) enums.TaxType {
	if normalizeState(buyerState) == normalizeState(sellerState) {
		return enums.TaxTypeCGSTSGST
	}
	return enums.TaxTypeIGST
}

func normalizeState(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToLower(r)
	}, s)
}

func clampMoney(d, ceiling decimal.Decimal) decimal.Decimal {
	d = pricing.Round(pricing.NonNegative(d))
	if d.GreaterThan(ceiling) {
		return ceiling
	}
	return d
}
