package orders

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/orderdesk/api/middleware"
	"github.com/angelmondragon/orderdesk/internal/invoices"
	internalorders "github.com/angelmondragon/orderdesk/internal/orders"
	"github.com/angelmondragon/orderdesk/internal/proforma"
	"github.com/angelmondragon/orderdesk/pkg/enums"
	pkgerrors "github.com/angelmondragon/orderdesk/pkg/errors"
	"github.com/angelmondragon/orderdesk/pkg/logger"
)

type stubOrdersService struct {
	create     func(ctx context.Context, input internalorders.CreateInput) (*internalorders.Result, error)
	get        func(ctx context.Context, orderID uuid.UUID, actor internalorders.Actor) (*internalorders.Order, error)
	quote      func(ctx context.Context, input internalorders.QuoteInput) (*internalorders.Result, error)
	transition func(ctx context.Context, input internalorders.TransitionInput) (*internalorders.Result, error)
	preview    func(ctx context.Context, input internalorders.PreviewInput) (*proforma.Result, error)
	invoice    func(ctx context.Context, orderID uuid.UUID, actor internalorders.Actor) (*invoices.Invoice, error)
}

func (s *stubOrdersService) Create(ctx context.Context, input internalorders.CreateInput) (*internalorders.Result, error) {
	return s.create(ctx, input)
}

func (s *stubOrdersService) Get(ctx context.Context, orderID uuid.UUID, actor internalorders.Actor) (*internalorders.Order, error) {
	return s.get(ctx, orderID, actor)
}

func (s *stubOrdersService) Quote(ctx context.Context, input internalorders.QuoteInput) (*internalorders.Result, error) {
	return s.quote(ctx, input)
}

func (s *stubOrdersService) Transition(ctx context.Context, input internalorders.TransitionInput) (*internalorders.Result, error) {
	return s.transition(ctx, input)
}

func (s *stubOrdersService) Preview(ctx context.Context, input internalorders.PreviewInput) (*proforma.Result, error) {
	return s.preview(ctx, input)
}

func (s *stubOrdersService) GetInvoice(ctx context.Context, orderID uuid.UUID, actor internalorders.Actor) (*invoices.Invoice, error) {
	return s.invoice(ctx, orderID, actor)
}

var (
	testActorID = uuid.MustParse("5b1d7c1e-2a9f-4e7b-9a61-7f0c1b2d3e4f")
	testOrderID = uuid.MustParse("3f2a9c1e-7b44-4d1a-9e0f-0123456789ab")
)

func newTestRouter(svc internalorders.Service) http.Handler {
	logg := logger.New(logger.Options{ServiceName: "orders-controller-test", Output: io.Discard})
	r := chi.NewRouter()
	r.Use(middleware.Actor(logg))
	r.Post("/api/v1/orders", Create(svc, logg))
	r.Get("/api/v1/orders/{orderId}", Get(svc, logg))
	r.Post("/api/v1/orders/{orderId}/quote", Quote(svc, logg))
	r.Post("/api/v1/orders/{orderId}/transitions", Transition(svc, logg))
	r.Post("/api/v1/orders/{orderId}/proforma/preview", Preview(svc, logg))
	r.Get("/api/v1/orders/{orderId}/invoice", Invoice(svc, logg))
	return r
}

func doRequest(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("X-Actor-Id", testActorID.String())
	req.Header.Set("X-Actor-Name", "Annapurna Traders")
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)
	return resp
}

type envelope struct {
	Data     json.RawMessage `json:"data"`
	Warnings []struct {
		Code      string `json:"code"`
		Retryable bool   `json:"retryable"`
	} `json:"warnings"`
	Error struct {
		Code    string `json:"code"`
		Details any    `json:"details"`
	} `json:"error"`
}

func decodeEnvelope(t *testing.T, resp *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(resp.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode response: %v (%s)", err, resp.Body.String())
	}
	return env
}

const createBody = `{
	"as": "seller",
	"buyer": {"id": "0c7e2d4a-6b1f-4a3e-8d2c-9e8f7a6b5c4d", "businessName": "Sharma General Store", "pincode": "570001"},
	"seller": {"id": "5b1d7c1e-2a9f-4e7b-9a61-7f0c1b2d3e4f", "businessName": "Annapurna Traders", "state": "Karnataka"},
	"lines": [{"name": "Basmati 1kg", "quantity": 2, "pricingMode": "mrp_inclusive", "mrp": 236, "gstRate": 18}],
	"paymentMode": "upi",
	"notes": "  weekly restock  "
}`

func TestCreateMapsRequest(t *testing.T) {
	var got internalorders.CreateInput
	svc := &stubOrdersService{create: func(ctx context.Context, input internalorders.CreateInput) (*internalorders.Result, error) {
		got = input
		return &internalorders.Result{Order: &internalorders.Order{ID: testOrderID, Status: enums.OrderStatusAssigned}}, nil
	}}

	resp := doRequest(newTestRouter(svc), http.MethodPost, "/api/v1/orders", createBody)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if got.Actor.ID != testActorID || got.Actor.Name != "Annapurna Traders" {
		t.Fatalf("unexpected actor %+v", got.Actor)
	}
	if got.As != enums.NamespaceSeller {
		t.Fatalf("expected seller namespace got %s", got.As)
	}
	if got.PaymentMode != enums.PaymentModeUPI {
		t.Fatalf("expected UPI got %s", got.PaymentMode)
	}
	if got.Notes != "weekly restock" {
		t.Fatalf("expected trimmed notes got %q", got.Notes)
	}
	if len(got.Lines) != 1 || got.Lines[0].PricingMode != enums.PricingModeMRPInclusive {
		t.Fatalf("unexpected lines %+v", got.Lines)
	}
	if !got.Lines[0].Quantity.Equal(decimal.NewFromInt(2)) {
		t.Fatalf("expected quantity 2 got %s", got.Lines[0].Quantity)
	}
	if got.Buyer.Pincode != "570001" {
		t.Fatalf("expected buyer pincode got %q", got.Buyer.Pincode)
	}

	env := decodeEnvelope(t, resp)
	var data struct {
		Order struct {
			ID         uuid.UUID `json:"id"`
			StatusCode string    `json:"statusCode"`
		} `json:"order"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if data.Order.ID != testOrderID || data.Order.StatusCode != "ASSIGNED" {
		t.Fatalf("unexpected order payload %s", string(env.Data))
	}
}

func TestCreateRejectsInvalidBodies(t *testing.T) {
	svc := &stubOrdersService{create: func(ctx context.Context, input internalorders.CreateInput) (*internalorders.Result, error) {
		t.Fatalf("service should not be called")
		return nil, nil
	}}
	h := newTestRouter(svc)

	cases := map[string]string{
		"unknown field":       `{"as":"buyer","extra":true}`,
		"bad namespace":       strings.Replace(createBody, `"as": "seller"`, `"as": "admin"`, 1),
		"negative quantity":   strings.Replace(createBody, `"quantity": 2`, `"quantity": -1`, 1),
		"rate above hundred":  strings.Replace(createBody, `"gstRate": 18`, `"gstRate": 118`, 1),
		"rate above top slab": strings.Replace(createBody, `"gstRate": 18`, `"gstRate": 40`, 1),
		"bad pricing mode":    strings.Replace(createBody, `"mrp_inclusive"`, `"wholesale"`, 1),
		"bad payment mode":    strings.Replace(createBody, `"upi"`, `"barter"`, 1),
		"short pincode":       strings.Replace(createBody, `"570001"`, `"5700"`, 1),
		"missing lines":       strings.Replace(createBody, `"lines": [{"name": "Basmati 1kg", "quantity": 2, "pricingMode": "mrp_inclusive", "mrp": 236, "gstRate": 18}]`, `"lines": []`, 1),
		"missing buyer id":    strings.Replace(createBody, `"id": "0c7e2d4a-6b1f-4a3e-8d2c-9e8f7a6b5c4d", `, ``, 1),
		"missing seller name": strings.Replace(createBody, `"businessName": "Annapurna Traders", `, ``, 1),
	}
	for name, body := range cases {
		resp := doRequest(h, http.MethodPost, "/api/v1/orders", body)
		if resp.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400 got %d: %s", name, resp.Code, resp.Body.String())
		}
		if env := decodeEnvelope(t, resp); env.Error.Code != string(pkgerrors.CodeValidation) {
			t.Fatalf("%s: expected validation code got %s", name, env.Error.Code)
		}
	}
}

func TestQuoteMapsPricingTerms(t *testing.T) {
	var got internalorders.QuoteInput
	svc := &stubOrdersService{quote: func(ctx context.Context, input internalorders.QuoteInput) (*internalorders.Result, error) {
		got = input
		return &internalorders.Result{Order: &internalorders.Order{ID: input.OrderID, Status: enums.OrderStatusQuoted}}, nil
	}}

	body := `{
		"charges": {"delivery": 40, "packing": 25.5},
		"discount": {"pct": 10, "source": "pct"},
		"rounding": {"enabled": true, "rule": "down"},
		"expectedGrandTotal": 1062
	}`
	resp := doRequest(newTestRouter(svc), http.MethodPost, "/api/v1/orders/"+testOrderID.String()+"/quote", body)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if got.OrderID != testOrderID {
		t.Fatalf("unexpected order id %s", got.OrderID)
	}
	if got.Lines != nil {
		t.Fatalf("expected nil lines to keep requested lines")
	}
	if !got.Charges.Packing.Equal(decimal.RequireFromString("25.5")) {
		t.Fatalf("unexpected packing %s", got.Charges.Packing)
	}
	if got.Discount.Source != enums.DiscountSourcePct {
		t.Fatalf("expected PCT source got %s", got.Discount.Source)
	}
	if got.Rounding == nil || got.Rounding.Rule != enums.RoundingDown || !got.Rounding.Enabled {
		t.Fatalf("unexpected rounding %+v", got.Rounding)
	}
	if got.ExpectedGrandTotal == nil || !got.ExpectedGrandTotal.Equal(decimal.NewFromInt(1062)) {
		t.Fatalf("unexpected expected total %v", got.ExpectedGrandTotal)
	}

	resp = doRequest(newTestRouter(svc), http.MethodPost, "/api/v1/orders/"+testOrderID.String()+"/quote", `{"discount":{"source":"both"}}`)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad discount source got %d", resp.Code)
	}
}

func TestQuoteCoercesMalformedNumbersToZero(t *testing.T) {
	var got internalorders.QuoteInput
	svc := &stubOrdersService{quote: func(ctx context.Context, input internalorders.QuoteInput) (*internalorders.Result, error) {
		got = input
		return &internalorders.Result{Order: &internalorders.Order{ID: input.OrderID, Status: enums.OrderStatusQuoted}}, nil
	}}

	body := `{
		"lines": [{"name": "Toor Dal 1kg", "quantity": "abc", "pricingMode": "base_plus_tax", "basePrice": "1,250.50", "gstRate": "NaN"}],
		"charges": {"delivery": "", "packing": null}
	}`
	resp := doRequest(newTestRouter(svc), http.MethodPost, "/api/v1/orders/"+testOrderID.String()+"/quote", body)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if len(got.Lines) != 1 {
		t.Fatalf("expected one line got %d", len(got.Lines))
	}
	line := got.Lines[0]
	if !line.Quantity.IsZero() || !line.GSTRate.IsZero() {
		t.Fatalf("expected malformed quantity and rate to be zero got %s %s", line.Quantity, line.GSTRate)
	}
	if !line.BasePrice.Equal(decimal.RequireFromString("1250.5")) {
		t.Fatalf("expected grouped digits to parse got %s", line.BasePrice)
	}
	if !got.Charges.Delivery.IsZero() || !got.Charges.Packing.IsZero() {
		t.Fatalf("expected empty charges to be zero got %+v", got.Charges)
	}
	if got.ExpectedGrandTotal != nil {
		t.Fatalf("expected no total check got %s", got.ExpectedGrandTotal)
	}
}

func TestTransitionReportsWarnings(t *testing.T) {
	var got internalorders.TransitionInput
	svc := &stubOrdersService{transition: func(ctx context.Context, input internalorders.TransitionInput) (*internalorders.Result, error) {
		got = input
		return &internalorders.Result{
			Order:    &internalorders.Order{ID: input.OrderID, Status: input.Status},
			Warnings: []*pkgerrors.Error{pkgerrors.New(pkgerrors.CodePartialPropagation, "buyer copy not updated")},
		}, nil
	}}

	resp := doRequest(newTestRouter(svc), http.MethodPost, "/api/v1/orders/"+testOrderID.String()+"/transitions", `{"status":"out for delivery","notes":"van 4"}`)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if got.Status != enums.OrderStatusOutForDelivery {
		t.Fatalf("expected free-text status to parse, got %s", got.Status)
	}
	env := decodeEnvelope(t, resp)
	if len(env.Warnings) != 1 || env.Warnings[0].Code != string(pkgerrors.CodePartialPropagation) || !env.Warnings[0].Retryable {
		t.Fatalf("unexpected warnings %+v", env.Warnings)
	}
}

func TestTransitionErrors(t *testing.T) {
	svc := &stubOrdersService{transition: func(ctx context.Context, input internalorders.TransitionInput) (*internalorders.Result, error) {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidTransition, "cannot move from QUOTED to SHIPPED").
			WithDetails(map[string]any{"from": "QUOTED", "to": "SHIPPED"})
	}}
	h := newTestRouter(svc)

	resp := doRequest(h, http.MethodPost, "/api/v1/orders/"+testOrderID.String()+"/transitions", `{"status":"SHIPPED"}`)
	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d", resp.Code)
	}
	if env := decodeEnvelope(t, resp); env.Error.Code != string(pkgerrors.CodeInvalidTransition) || env.Error.Details == nil {
		t.Fatalf("unexpected error payload %s", resp.Body.String())
	}

	resp = doRequest(h, http.MethodPost, "/api/v1/orders/"+testOrderID.String()+"/transitions", `{"status":"TELEPORTED"}`)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown status got %d", resp.Code)
	}

	resp = doRequest(h, http.MethodPost, "/api/v1/orders/not-a-uuid/transitions", `{"status":"SHIPPED"}`)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad order id got %d", resp.Code)
	}
}

func TestPreviewPassesOverrides(t *testing.T) {
	var got internalorders.PreviewInput
	svc := &stubOrdersService{preview: func(ctx context.Context, input internalorders.PreviewInput) (*proforma.Result, error) {
		got = input
		return &proforma.Result{Breakdown: proforma.Breakdown{GrandTotal: decimal.NewFromInt(1026)}}, nil
	}}

	resp := doRequest(newTestRouter(svc), http.MethodPost, "/api/v1/orders/"+testOrderID.String()+"/proforma/preview", `{"charges":{"packing":25.5}}`)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if got.Charges == nil || !got.Charges.Packing.Equal(decimal.RequireFromString("25.5")) {
		t.Fatalf("unexpected charges override %+v", got.Charges)
	}
	if got.Discount != nil || got.Rounding != nil || got.Lines != nil {
		t.Fatalf("unset overrides should stay nil: %+v", got)
	}
}

func TestGetAndInvoicePropagateServiceErrors(t *testing.T) {
	svc := &stubOrdersService{
		get: func(ctx context.Context, orderID uuid.UUID, actor internalorders.Actor) (*internalorders.Order, error) {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "not a party to this order")
		},
		invoice: func(ctx context.Context, orderID uuid.UUID, actor internalorders.Actor) (*invoices.Invoice, error) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "invoice not found")
		},
	}
	h := newTestRouter(svc)

	if resp := doRequest(h, http.MethodGet, "/api/v1/orders/"+testOrderID.String(), ""); resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}
	if resp := doRequest(h, http.MethodGet, "/api/v1/orders/"+testOrderID.String()+"/invoice", ""); resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
}
