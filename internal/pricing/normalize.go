package pricing

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/orderdesk/pkg/enums"
)

// MoneyPlaces is the precision of every stored monetary amount.
const MoneyPlaces = 2

var (
	hundred = decimal.NewFromInt(100)
	maxRate = decimal.NewFromInt(28)
)

// maxExponent bounds the decimal exponent any amount may carry. Rescaling a
// value past it costs time proportional to the exponent.
const maxExponent = 128

// Normalize reduces a line's pricing representation to a per-unit
// {base, tax, final} triple for the given GST rate. It never fails: malformed
// amounts are treated as zero.
func Normalize(line Line, rate decimal.Decimal) Split {
	switch line.mode() {
	case enums.PricingModeMRPInclusive:
		final := NonNegative(line.FinalPrice)
		if final.IsZero() {
			final = NonNegative(line.MRP)
		}
		return SplitFromMRP(final, rate)
	case enums.PricingModeBasePlusTax:
		return CalcBasePlusTax(line.BasePrice, rate)
	default:
		final := Round(NonNegative(line.FinalPrice))
		return Split{Base: final, Tax: decimal.Zero, Final: final}
	}
}

// SplitFromMRP decomposes a tax-inclusive price.
func SplitFromMRP(mrp, rate decimal.Decimal) Split {
	final := Round(NonNegative(mrp))
	rate = SanitizeRate(rate)
	if rate.IsZero() {
		return Split{Base: final, Tax: decimal.Zero, Final: final}
	}
	base := Round(final.Div(decimal.NewFromInt(1).Add(rate.Div(hundred))))
	return Split{Base: base, Tax: final.Sub(base), Final: final}
}

// CalcBasePlusTax adds GST on top of a pre-tax price.
func CalcBasePlusTax(base, rate decimal.Decimal) Split {
	base = Round(NonNegative(base))
	tax := Round(base.Mul(SanitizeRate(rate)).Div(hundred))
	return Split{Base: base, Tax: tax, Final: base.Add(tax)}
}

// Round rounds to cents, half away from zero.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyPlaces)
}

// SanitizeRate clamps a GST rate into [0, 28].
func SanitizeRate(rate decimal.Decimal) decimal.Decimal {
	return clamp(rate, decimal.Zero, maxRate)
}

// SanitizeAmount converts a float input to a non-negative decimal, mapping
// NaN and infinities to zero.
func SanitizeAmount(f float64) decimal.Decimal {
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return decimal.Zero
	}
	return decimal.NewFromFloat(f)
}

// NonNegative returns zero for negative or out-of-scale input.
func NonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() || outOfScale(d) {
		return decimal.Zero
	}
	return d
}

func clamp(d, lo, hi decimal.Decimal) decimal.Decimal {
	if outOfScale(d) {
		return lo
	}
	if d.LessThan(lo) {
		return lo
	}
	if d.GreaterThan(hi) {
		return hi
	}
	return d
}

func outOfScale(d decimal.Decimal) bool {
	exp := d.Exponent()
	return exp > maxExponent || exp < -maxExponent
}
