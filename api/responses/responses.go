package responses

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	pkgerrors "github.com/angelmondragon/orderdesk/pkg/errors"
	"github.com/angelmondragon/orderdesk/pkg/logger"
	"github.com/angelmondragon/orderdesk/pkg/types"
)

// RequestIDHeader is set by middleware.RequestID before handlers run.
const RequestIDHeader = "X-Request-Id"

// callerFacing codes carry messages written for the API consumer; everything
// else is replaced by the code's public message.
var callerFacing = map[pkgerrors.Code]bool{
	pkgerrors.CodeValidation:        true,
	pkgerrors.CodeForbidden:         true,
	pkgerrors.CodeUnauthorized:      true,
	pkgerrors.CodeNotFound:          true,
	pkgerrors.CodeConflict:          true,
	pkgerrors.CodeInvalidTransition: true,
	pkgerrors.CodeIdempotency:       true,
}

func WriteSuccess(w http.ResponseWriter, data any) {
	WriteSuccessStatus(w, http.StatusOK, data)
}

func WriteSuccessStatus(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, types.SuccessEnvelope{Data: data})
}

// WriteSuccessWithWarnings reports a committed mutation together with the
// non-blocking failures that accompanied it. Nil warnings are dropped.
func WriteSuccessWithWarnings(w http.ResponseWriter, status int, data any, warnings []*pkgerrors.Error) {
	envelope := types.SuccessEnvelope{Data: data}
	for _, warning := range warnings {
		if warning != nil {
			envelope.Warnings = append(envelope.Warnings, types.APIWarning{
				APIError:  publicError(warning, true),
				Retryable: pkgerrors.MetadataFor(warning.Code()).Retryable,
			})
		}
	}
	writeJSON(w, status, envelope)
}

// WriteError maps err onto its HTTP status and public envelope. Untyped errors
// become INTERNAL. The full chain is logged, never returned.
func WriteError(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error) {
	if err == nil {
		err = errors.New("unknown error")
	}
	typed := pkgerrors.As(err)
	if typed == nil {
		typed = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "unexpected error")
	}

	if logg != nil {
		ctx = logg.WithFields(ctx, pkgerrors.Dump(err).Fields())
		logg.Error(ctx, "request.error", err)
	}

	writeJSON(w, pkgerrors.MetadataFor(typed.Code()).HTTPStatus, types.ErrorEnvelope{
		Error:     publicError(typed, callerFacing[typed.Code()]),
		RequestID: w.Header().Get(RequestIDHeader),
	})
}

func publicError(err *pkgerrors.Error, ownMessage bool) types.APIError {
	meta := pkgerrors.MetadataFor(err.Code())
	out := types.APIError{Code: string(err.Code()), Message: meta.PublicMessage}
	if ownMessage && err.Message() != "" {
		out.Message = err.Message()
	}
	if meta.DetailsAllowed && err.Details() != nil {
		out.Details = err.Details()
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf(`{"level":"error","msg":"failed to encode response","err":"%v"}`, err)
	}
}
