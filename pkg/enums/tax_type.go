package enums

// TaxType is the GST regime applied to an order.
type TaxType string

const (
	// TaxTypeCGSTSGST applies when buyer and seller are in the same state.
	TaxTypeCGSTSGST TaxType = "CGST_SGST"
	// TaxTypeIGST applies to interstate supply.
	TaxTypeIGST TaxType = "IGST"
)

// String implements fmt.Stringer.
func (t TaxType) String() string {
	return string(t)
}

// IsValid reports whether the value is a known TaxType.
func (t TaxType) IsValid() bool {
	return t == TaxTypeCGSTSGST || t == TaxTypeIGST
}
