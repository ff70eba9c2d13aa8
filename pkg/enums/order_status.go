package enums

import (
	"fmt"
	"strings"
)

// OrderStatus is the lifecycle state of an order. The string values are the wire codes.
type OrderStatus string

const (
	OrderStatusRequested      OrderStatus = "REQUESTED"
	OrderStatusQuoted         OrderStatus = "QUOTED"
	OrderStatusAccepted       OrderStatus = "ACCEPTED"
	OrderStatusRejected       OrderStatus = "REJECTED"
	OrderStatusDirect         OrderStatus = "DIRECT"
	OrderStatusAssigned       OrderStatus = "ASSIGNED"
	OrderStatusPacked         OrderStatus = "PACKED"
	OrderStatusShipped        OrderStatus = "SHIPPED"
	OrderStatusOutForDelivery OrderStatus = "OUT_FOR_DELIVERY"
	OrderStatusDelivered      OrderStatus = "DELIVERED"
	OrderStatusInvoiced       OrderStatus = "INVOICED"
)

// validOrderStatuses is ordered the same way the lifecycle is documented.
var validOrderStatuses = []OrderStatus{
	OrderStatusRequested,
	OrderStatusQuoted,
	OrderStatusAccepted,
	OrderStatusRejected,
	OrderStatusDirect,
	OrderStatusAssigned,
	OrderStatusPacked,
	OrderStatusShipped,
	OrderStatusOutForDelivery,
	OrderStatusDelivered,
	OrderStatusInvoiced,
}

// OrderStatuses returns every known status in lifecycle order.
func OrderStatuses() []OrderStatus {
	out := make([]OrderStatus, len(validOrderStatuses))
	copy(out, validOrderStatuses)
	return out
}

// String implements fmt.Stringer.
func (s OrderStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known OrderStatus.
func (s OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are possible.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusRejected || s == OrderStatusInvoiced
}

// TimestampKey returns the statusTimestamps key for the status,
// e.g. OUT_FOR_DELIVERY -> outForDeliveryAt.
func (s OrderStatus) TimestampKey() string {
	parts := strings.Split(strings.ToLower(string(s)), "_")
	var b strings.Builder
	for i, part := range parts {
		if part == "" {
			continue
		}
		if i == 0 {
			b.WriteString(part)
			continue
		}
		b.WriteString(strings.ToUpper(part[:1]))
		b.WriteString(part[1:])
	}
	b.WriteString("At")
	return b.String()
}

// Label renders the status for display, e.g. OUT_FOR_DELIVERY -> "Out For Delivery".
func (s OrderStatus) Label() string {
	parts := strings.Split(strings.ToLower(string(s)), "_")
	for i, part := range parts {
		if part == "" {
			continue
		}
		parts[i] = strings.ToUpper(part[:1]) + part[1:]
	}
	return strings.Join(parts, " ")
}

// ParseOrderStatus converts raw input into an OrderStatus. Matching ignores case and
// surrounding whitespace so legacy free-text values still resolve.
func ParseOrderStatus(value string) (OrderStatus, error) {
	normalized := strings.ToUpper(strings.TrimSpace(value))
	normalized = strings.ReplaceAll(normalized, " ", "_")
	for _, candidate := range validOrderStatuses {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}
