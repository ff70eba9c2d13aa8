package enums

import (
	"fmt"
	"strings"
)

// RoundingRule selects how the grand total is rounded to whole currency units.
type RoundingRule string

const (
	RoundingNearest RoundingRule = "NEAREST"
	RoundingUp      RoundingRule = "UP"
	RoundingDown    RoundingRule = "DOWN"
)

var validRoundingRules = []RoundingRule{
	RoundingNearest,
	RoundingUp,
	RoundingDown,
}

// String implements fmt.Stringer.
func (r RoundingRule) String() string {
	return string(r)
}

// IsValid reports whether the value is a known RoundingRule.
func (r RoundingRule) IsValid() bool {
	for _, candidate := range validRoundingRules {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseRoundingRule converts raw input into a RoundingRule. Empty input maps to NEAREST.
func ParseRoundingRule(value string) (RoundingRule, error) {
	trimmed := strings.ToUpper(strings.TrimSpace(value))
	if trimmed == "" {
		return RoundingNearest, nil
	}
	for _, candidate := range validRoundingRules {
		if string(candidate) == trimmed {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid rounding rule %q", value)
}
