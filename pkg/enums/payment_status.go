package enums

// PaymentStatus is the settlement state snapshotted onto an invoice.
type PaymentStatus string

const (
	PaymentStatusUnpaid PaymentStatus = "UNPAID"
	PaymentStatusPaid   PaymentStatus = "PAID"
)

// PaymentStatusOf maps the order's paid flag onto an invoice payment status.
func PaymentStatusOf(paid bool) PaymentStatus {
	if paid {
		return PaymentStatusPaid
	}
	return PaymentStatusUnpaid
}

func (p PaymentStatus) String() string { return string(p) }

// IsValid reports whether p is UNPAID or PAID.
func (p PaymentStatus) IsValid() bool {
	return p == PaymentStatusUnpaid || p == PaymentStatusPaid
}

// InvoiceStatus tracks the invoice document lifecycle. Invoices are only ever
// issued; there is no void or credit-note flow.
type InvoiceStatus string

const (
	InvoiceStatusIssued InvoiceStatus = "ISSUED"
)
