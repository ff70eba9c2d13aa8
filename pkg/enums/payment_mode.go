package enums

import (
	"fmt"
	"strings"
)

// PaymentMode describes how the buyer settles an order.
type PaymentMode string

const (
	PaymentModeCash   PaymentMode = "CASH"
	PaymentModeUPI    PaymentMode = "UPI"
	PaymentModeCard   PaymentMode = "CARD"
	PaymentModeCredit PaymentMode = "CREDIT"
	PaymentModeBank   PaymentMode = "BANK_TRANSFER"
)

var validPaymentModes = []PaymentMode{
	PaymentModeCash,
	PaymentModeUPI,
	PaymentModeCard,
	PaymentModeCredit,
	PaymentModeBank,
}

// String implements fmt.Stringer.
func (p PaymentMode) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentMode.
func (p PaymentMode) IsValid() bool {
	for _, candidate := range validPaymentModes {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePaymentMode converts raw input into a PaymentMode. Empty input maps to CASH.
func ParsePaymentMode(value string) (PaymentMode, error) {
	trimmed := strings.ToUpper(strings.TrimSpace(value))
	if trimmed == "" {
		return PaymentModeCash, nil
	}
	for _, candidate := range validPaymentModes {
		if string(candidate) == trimmed {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment mode %q", value)
}
