package enums

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderStatusKeys(t *testing.T) {
	tests := []struct {
		status OrderStatus
		key    string
		label  string
	}{
		{OrderStatusRequested, "requestedAt", "Requested"},
		{OrderStatusOutForDelivery, "outForDeliveryAt", "Out For Delivery"},
		{OrderStatusInvoiced, "invoicedAt", "Invoiced"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.key, tt.status.TimestampKey())
		assert.Equal(t, tt.label, tt.status.Label())
	}
}

func TestParseOrderStatus(t *testing.T) {
	got, err := ParseOrderStatus(" out for delivery ")
	require.NoError(t, err)
	assert.Equal(t, OrderStatusOutForDelivery, got)

	_, err = ParseOrderStatus("LOST")
	assert.Error(t, err)

	all := OrderStatuses()
	assert.Len(t, all, 11)
	all[0] = "MUTATED"
	assert.Equal(t, OrderStatusRequested, OrderStatuses()[0])
}

func TestOrderStatusTerminal(t *testing.T) {
	for _, s := range OrderStatuses() {
		want := s == OrderStatusRejected || s == OrderStatusInvoiced
		assert.Equal(t, want, s.IsTerminal(), s.String())
		assert.True(t, s.IsValid())
	}
}

func TestNamespaceCounterparty(t *testing.T) {
	assert.Equal(t, NamespaceSeller, NamespaceBuyer.Counterparty())
	assert.Equal(t, NamespaceBuyer, NamespaceSeller.Counterparty())

	_, err := ParseNamespace("admin")
	assert.Error(t, err)
}

func TestParsePaymentModeDefaultsToCash(t *testing.T) {
	got, err := ParsePaymentMode("  ")
	require.NoError(t, err)
	assert.Equal(t, PaymentModeCash, got)

	got, err = ParsePaymentMode("upi")
	require.NoError(t, err)
	assert.Equal(t, PaymentModeUPI, got)

	_, err = ParsePaymentMode("CHEQUE")
	assert.Error(t, err)
}

func TestPaymentStatusOf(t *testing.T) {
	assert.Equal(t, PaymentStatusPaid, PaymentStatusOf(true))
	assert.Equal(t, PaymentStatusUnpaid, PaymentStatusOf(false))
	assert.False(t, PaymentStatus("REFUNDED").IsValid())
}

func TestDLQReasonTerminal(t *testing.T) {
	assert.True(t, OutboxDLQReasonUnroutable.Terminal())
	assert.True(t, OutboxDLQReasonNonRetryable.Terminal())
	assert.False(t, OutboxDLQReasonMaxAttempts.Terminal())
}
