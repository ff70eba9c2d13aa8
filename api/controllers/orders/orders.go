package orders

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/orderdesk/api/middleware"
	"github.com/angelmondragon/orderdesk/api/responses"
	"github.com/angelmondragon/orderdesk/api/validators"
	"github.com/angelmondragon/orderdesk/internal/invoices"
	internalorders "github.com/angelmondragon/orderdesk/internal/orders"
	"github.com/angelmondragon/orderdesk/pkg/enums"
	pkgerrors "github.com/angelmondragon/orderdesk/pkg/errors"
	"github.com/angelmondragon/orderdesk/pkg/logger"
)

type mutationResponse struct {
	Order   *internalorders.Order `json:"order"`
	Invoice *invoices.Invoice     `json:"invoice,omitempty"`
}

// Create opens an order as a buyer request or a seller assignment.
func Create(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		var payload createOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		lines, err := toLines(payload.Lines)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input := internalorders.CreateInput{
			Actor:  actorFromRequest(r),
			As:     enums.Namespace(payload.As),
			Buyer:  payload.Buyer.toParty(),
			Seller: payload.Seller.toParty(),
			Lines:  lines,
			IsPaid: payload.IsPaid,
			Notes:  validators.SanitizeString(payload.Notes, maxNotesLen),
		}
		if strings.TrimSpace(payload.PaymentMode) != "" {
			mode, err := enums.ParsePaymentMode(payload.PaymentMode)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment mode").
					WithDetails(map[string]string{"paymentMode": "is invalid"}))
				return
			}
			input.PaymentMode = mode
		}

		result, err := svc.Create(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeResult(w, http.StatusCreated, result)
	}
}

// Get returns the caller's copy of the order.
func Get(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.Get(r.Context(), orderID, actorFromRequest(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// Quote prices a requested order on the seller's behalf.
func Quote(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload quoteRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		lines, err := toLines(payload.Lines)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		discount, err := payload.Discount.toDiscount()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input := internalorders.QuoteInput{
			OrderID:            orderID,
			Actor:              actorFromRequest(r),
			Lines:              lines,
			Charges:            payload.Charges.toCharges(),
			Discount:           discount,
			ExpectedGrandTotal: payload.expectedTotal(),
			Notes:              validators.SanitizeString(payload.Notes, maxNotesLen),
		}
		if payload.Rounding != nil {
			rounding, err := payload.Rounding.toRounding()
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			input.Rounding = &rounding
		}

		result, err := svc.Quote(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeResult(w, http.StatusOK, result)
	}
}

// Transition applies one status change.
func Transition(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload transitionRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := enums.ParseOrderStatus(payload.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status").
				WithDetails(map[string]string{"status": "is invalid"}))
			return
		}

		result, err := svc.Transition(r.Context(), internalorders.TransitionInput{
			OrderID: orderID,
			Actor:   actorFromRequest(r),
			Status:  status,
			Notes:   validators.SanitizeString(payload.Notes, maxNotesLen),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeResult(w, http.StatusOK, result)
	}
}

// Preview computes a proforma for the order with optional overrides. Nothing
// is persisted.
func Preview(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload previewRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := payload.toInput(orderID, actorFromRequest(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Preview(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// Invoice returns the order's materialized invoice.
func Invoice(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		invoice, err := svc.GetInvoice(r.Context(), orderID, actorFromRequest(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, invoice)
	}
}

func (p previewRequest) toInput(orderID uuid.UUID, actor internalorders.Actor) (internalorders.PreviewInput, error) {
	input := internalorders.PreviewInput{OrderID: orderID, Actor: actor}
	lines, err := toLines(p.Lines)
	if err != nil {
		return input, err
	}
	input.Lines = lines
	if p.Charges != nil {
		charges := p.Charges.toCharges()
		input.Charges = &charges
	}
	if p.Discount != nil {
		discount, err := p.Discount.toDiscount()
		if err != nil {
			return input, err
		}
		input.Discount = &discount
	}
	if p.Rounding != nil {
		rounding, err := p.Rounding.toRounding()
		if err != nil {
			return input, err
		}
		input.Rounding = &rounding
	}
	return input, nil
}

func writeResult(w http.ResponseWriter, status int, result *internalorders.Result) {
	responses.WriteSuccessWithWarnings(w, status, mutationResponse{
		Order:   result.Order,
		Invoice: result.Invoice,
	}, result.Warnings)
}

func parseOrderID(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "orderId"))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	orderID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id")
	}
	return orderID, nil
}

func actorFromRequest(r *http.Request) internalorders.Actor {
	return internalorders.Actor{
		ID:   middleware.ActorIDFromContext(r.Context()),
		Name: middleware.ActorNameFromContext(r.Context()),
	}
}
