package errors

import (
	stdErrors "errors"
	"net/http"
)

// Code is the stable, client-visible error identifier.
type Code string

const (
	CodeValidation             Code = "VALIDATION_ERROR"
	CodeUnauthorized           Code = "UNAUTHORIZED"
	CodeForbidden              Code = "FORBIDDEN"
	CodeNotFound               Code = "NOT_FOUND"
	CodeConflict               Code = "CONFLICT"
	CodeInvalidTransition      Code = "INVALID_TRANSITION"
	CodeIdempotency            Code = "IDEMPOTENCY_KEY_REUSED"
	CodeInternal               Code = "INTERNAL_ERROR"
	CodeDependency             Code = "DEPENDENCY_ERROR"
	CodePartialPropagation     Code = "PARTIAL_PROPAGATION_FAILURE"
	CodeMaterializationSkipped Code = "MATERIALIZATION_SKIPPED"
)

// Metadata drives how a code is rendered over HTTP.
type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	PublicMessage  string
	DetailsAllowed bool
}

// Columns: status, retryable, public message, details allowed.
var metadataByCode = map[Code]Metadata{
	CodeValidation:        {http.StatusBadRequest, false, "validation failed", true},
	CodeUnauthorized:      {http.StatusUnauthorized, false, "authentication required", false},
	CodeForbidden:         {http.StatusForbidden, false, "access denied", false},
	CodeNotFound:          {http.StatusNotFound, false, "resource not found", false},
	CodeConflict:          {http.StatusConflict, false, "conflict detected", false},
	CodeInvalidTransition: {http.StatusUnprocessableEntity, false, "state transition disallowed", true},
	CodeIdempotency:       {http.StatusConflict, false, "idempotency key reused", true},
	CodeInternal:          {http.StatusInternalServerError, true, "internal server error", false},
	CodeDependency:        {http.StatusServiceUnavailable, true, "dependency unavailable", true},

	// committed mutations reported as warnings
	CodePartialPropagation:     {http.StatusOK, true, "counterparty copy not yet updated", true},
	CodeMaterializationSkipped: {http.StatusOK, false, "invoice already exists", true},
}

// MetadataFor falls back to CodeInternal for unknown codes.
func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

// Error is a coded error with an optional cause and client-safe details.
type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

// Wrap attaches code and message to err. A nil err behaves like New.
func Wrap(code Code, err error, message string) *Error {
	return &Error{code: code, message: message, cause: err}
}

// Code returns CodeInternal on a nil receiver so callers never branch on nil.
func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

// WithDetails sets details in place and returns e for chaining.
func (e *Error) WithDetails(details any) *Error {
	if e != nil {
		e.details = details
	}
	return e
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return string(e.code) + ": " + e.message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// As returns the outermost *Error in err's chain, or nil.
func As(err error) *Error {
	var typed *Error
	if err != nil && stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// IsCode reports whether err carries a typed error with the given code.
func IsCode(err error, code Code) bool {
	return As(err).codeOr("") == code
}

func (e *Error) codeOr(fallback Code) Code {
	if e == nil {
		return fallback
	}
	return e.code
}

// IsWarning reports whether the code describes a committed mutation with a
// non-blocking side failure rather than a rejected request.
func IsWarning(code Code) bool {
	switch code {
	case CodePartialPropagation, CodeMaterializationSkipped:
		return true
	}
	return false
}
