package enums

import "fmt"

// Namespace identifies which party's copy of an order a record belongs to.
type Namespace string

const (
	NamespaceBuyer  Namespace = "buyer"
	NamespaceSeller Namespace = "seller"
)

// String implements fmt.Stringer.
func (n Namespace) String() string {
	return string(n)
}

// IsValid reports whether the value is a known Namespace.
func (n Namespace) IsValid() bool {
	return n == NamespaceBuyer || n == NamespaceSeller
}

// Counterparty returns the opposite namespace.
func (n Namespace) Counterparty() Namespace {
	if n == NamespaceBuyer {
		return NamespaceSeller
	}
	return NamespaceBuyer
}

// ParseNamespace converts raw input into a Namespace.
func ParseNamespace(value string) (Namespace, error) {
	switch Namespace(value) {
	case NamespaceBuyer, NamespaceSeller:
		return Namespace(value), nil
	}
	return "", fmt.Errorf("invalid namespace %q", value)
}
