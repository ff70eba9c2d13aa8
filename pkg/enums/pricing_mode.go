package enums

import (
	"fmt"
	"strings"
)

// PricingMode declares which price field on a line is authoritative.
type PricingMode string

const (
	PricingModeLegacy       PricingMode = "LEGACY"
	PricingModeMRPInclusive PricingMode = "MRP_INCLUSIVE"
	PricingModeBasePlusTax  PricingMode = "BASE_PLUS_TAX"
)

var validPricingModes = []PricingMode{
	PricingModeLegacy,
	PricingModeMRPInclusive,
	PricingModeBasePlusTax,
}

// String implements fmt.Stringer.
func (p PricingMode) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PricingMode.
func (p PricingMode) IsValid() bool {
	for _, candidate := range validPricingModes {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePricingMode converts raw input into a PricingMode. Empty input maps to LEGACY.
func ParsePricingMode(value string) (PricingMode, error) {
	trimmed := strings.ToUpper(strings.TrimSpace(value))
	if trimmed == "" {
		return PricingModeLegacy, nil
	}
	for _, candidate := range validPricingModes {
		if string(candidate) == trimmed {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid pricing mode %q", value)
}
