package orders

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/orderdesk/internal/invoices"
	"github.com/angelmondragon/orderdesk/internal/pricing"
	"github.com/angelmondragon/orderdesk/internal/proforma"
	"github.com/angelmondragon/orderdesk/pkg/enums"
	pkgerrors "github.com/angelmondragon/orderdesk/pkg/errors"
)

// CreateInput opens an order. As says which side the actor is on: a buyer
// request starts in REQUESTED, a seller assignment in ASSIGNED.
type CreateInput struct {
	Actor       Actor
	As          enums.Namespace
	Buyer       Party
	Seller      Party
	Lines       []pricing.Line
	PaymentMode enums.PaymentMode
	IsPaid      bool
	Notes       string
}

// QuoteInput prices a requested order. Nil Lines keeps the requested lines.
type QuoteInput struct {
	OrderID            uuid.UUID
	Actor              Actor
	Lines              []pricing.Line
	Charges            proforma.Charges
	Discount           proforma.Discount
	Rounding           *proforma.Rounding
	ExpectedGrandTotal *decimal.Decimal
	Notes              string
}

// TransitionInput asks for a single status change.
type TransitionInput struct {
	OrderID uuid.UUID
	Actor   Actor
	Status  enums.OrderStatus
	Notes   string
}

// PreviewInput overrides parts of an order's terms for a dry-run computation.
// Nil fields fall back to the stored order.
type PreviewInput struct {
	OrderID  uuid.UUID
	Actor    Actor
	Lines    []pricing.Line
	Charges  *proforma.Charges
	Discount *proforma.Discount
	Rounding *proforma.Rounding
}

// Result is the outcome of a mutation. Warnings carry non-fatal failures such
// as a counterparty copy that was not yet updated.
type Result struct {
	Order    *Order
	Invoice  *invoices.Invoice
	Warnings []*pkgerrors.Error
}

func (r *Result) warn(err error) {
	if pkgErr := pkgerrors.As(err); pkgErr != nil {
		r.Warnings = append(r.Warnings, pkgErr)
		return
	}
	r.Warnings = append(r.Warnings, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "unexpected warning"))
}

// Defaults are the configured pricing terms applied when the seller gives none.
type Defaults struct {
	Rounding      proforma.Rounding
	DirectCharges proforma.Charges
}
