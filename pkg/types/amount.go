package types

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// MaxAmount is the exclusive upper bound on any accepted magnitude; it is the
// largest value a numeric(14,2) column holds, plus one cent.
var MaxAmount = decimal.New(1, 12)

// maxExponent keeps exponent notation like 1e20000000 from being expanded.
const maxExponent = 32

// Amount is a lenient numeric input. It accepts JSON numbers, numeric strings,
// null and empty strings. Anything malformed or non-finite decodes to zero
// instead of failing the request. Present tracks whether the field was sent.
type Amount struct {
	Present bool
	Value   decimal.Decimal
}

// NewAmount wraps a decimal as a present Amount.
func NewAmount(d decimal.Decimal) Amount {
	return Amount{Present: true, Value: d}
}

// UnmarshalJSON implements json.Unmarshaler.
func (a *Amount) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil
	}
	a.Present = true
	a.Value = decimal.Zero
	if bytes.Equal(trimmed, []byte("null")) {
		a.Present = false
		return nil
	}

	raw := string(trimmed)
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return nil
		}
		raw = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	}
	a.Value = ParseAmount(raw)
	return nil
}

// MarshalJSON implements json.Marshaler.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.Value.String()), nil
}

// Decimal returns the parsed value, zero when absent.
func (a Amount) Decimal() decimal.Decimal {
	return a.Value
}

// ParseAmount converts free-form numeric text to a decimal. Malformed,
// non-finite or out-of-range input yields zero.
func ParseAmount(raw string) decimal.Decimal {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero
	}
	lower := strings.ToLower(raw)
	if strings.Contains(lower, "nan") || strings.Contains(lower, "inf") {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero
	}
	if exp := d.Exponent(); exp > maxExponent || exp < -maxExponent {
		return decimal.Zero
	}
	if d.Abs().Cmp(MaxAmount) >= 0 {
		return decimal.Zero
	}
	return d
}

// FloatAmount converts a float to a decimal, mapping NaN and infinities to zero.
func FloatAmount(f float64) decimal.Decimal {
	if math.IsNaN(f) || math.IsInf(f, 0) || math.Abs(f) >= 1e12 {
		return decimal.Zero
	}
	return decimal.NewFromFloat(f)
}
