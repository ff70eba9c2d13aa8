package types

// SuccessEnvelope wraps every 2xx body. Warnings is only set when a mutation
// committed but a follow-up step (counterparty copy, invoice) did not.
type SuccessEnvelope struct {
	Data     any          `json:"data"`
	Warnings []APIWarning `json:"warnings,omitempty"`
}

// ErrorEnvelope wraps every non-2xx body.
type ErrorEnvelope struct {
	Error     APIError `json:"error"`
	RequestID string   `json:"requestId,omitempty"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// APIWarning is an APIError that did not fail the request. Retryable tells the
// caller whether replaying the same operation can complete the missing step.
type APIWarning struct {
	APIError
	Retryable bool `json:"retryable"`
}
