package enums

// DiscountSource records which representation of a discount the user edited last.
type DiscountSource string

const (
	DiscountSourcePct DiscountSource = "PCT"
	DiscountSourceAmt DiscountSource = "AMT"
)

// IsValid reports whether the value is a known DiscountSource.
func (d DiscountSource) IsValid() bool {
	return d == DiscountSourcePct || d == DiscountSourceAmt
}
