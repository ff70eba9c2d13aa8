package enums

// OutboxDLQErrorReason records why an event was parked instead of published.
type OutboxDLQErrorReason string

const (
	// OutboxDLQReasonMaxAttempts: the retry budget ran out.
	OutboxDLQReasonMaxAttempts OutboxDLQErrorReason = "max_attempts"
	// OutboxDLQReasonNonRetryable: the broker rejected the message outright.
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
	// OutboxDLQReasonUnroutable: no topic or payload decoder matched the row.
	OutboxDLQReasonUnroutable OutboxDLQErrorReason = "unroutable"
)

func (r OutboxDLQErrorReason) String() string { return string(r) }

// Terminal reports whether a requeue is unlikely to help without an operator
// fix first.
func (r OutboxDLQErrorReason) Terminal() bool {
	return r == OutboxDLQReasonUnroutable || r == OutboxDLQReasonNonRetryable
}
