package proforma

import (
	"github.com/shopspring/decimal"

	pkgerrors "github.com/angelmondragon/orderdesk/pkg/errors"
)

// VerifyTolerance is the largest accepted gap between a client-computed grand
// total and the server recomputation.
var VerifyTolerance = decimal.New(1, -2)

// Verify compares a client-supplied grand total against the computed
// breakdown and fails with a validation error when they diverge.
func Verify(expected decimal.Decimal, computed Breakdown) error {
	if err := computed.Check(); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "breakdown failed integrity check")
	}
	diff := expected.Sub(computed.GrandTotal).Abs()
	if diff.GreaterThan(VerifyTolerance) {
		return pkgerrors.New(pkgerrors.CodeValidation, "grand total does not match server computation").
			WithDetails(map[string]any{
				"expectedGrandTotal": expected.StringFixed(2),
				"computedGrandTotal": computed.GrandTotal.StringFixed(2),
			})
	}
	return nil
}
