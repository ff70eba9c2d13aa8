package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/angelmondragon/orderdesk/internal/invoices"
	"github.com/angelmondragon/orderdesk/internal/orders"
	"github.com/angelmondragon/orderdesk/internal/proforma"
	"github.com/angelmondragon/orderdesk/pkg/config"
	pkgerrors "github.com/angelmondragon/orderdesk/pkg/errors"
	"github.com/angelmondragon/orderdesk/pkg/logger"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type recordingOrders struct {
	calls     []string
	lastID    uuid.UUID
	lastActor orders.Actor
}

func (s *recordingOrders) Create(ctx context.Context, input orders.CreateInput) (*orders.Result, error) {
	s.calls = append(s.calls, "create")
	s.lastActor = input.Actor
	return &orders.Result{Order: &orders.Order{ID: uuid.New()}}, nil
}

func (s *recordingOrders) Get(ctx context.Context, orderID uuid.UUID, actor orders.Actor) (*orders.Order, error) {
	s.calls = append(s.calls, "get")
	s.lastID, s.lastActor = orderID, actor
	return &orders.Order{ID: orderID}, nil
}

func (s *recordingOrders) Quote(ctx context.Context, input orders.QuoteInput) (*orders.Result, error) {
	s.calls = append(s.calls, "quote")
	s.lastID = input.OrderID
	return &orders.Result{Order: &orders.Order{ID: input.OrderID}}, nil
}

func (s *recordingOrders) Transition(ctx context.Context, input orders.TransitionInput) (*orders.Result, error) {
	s.calls = append(s.calls, "transition")
	s.lastID = input.OrderID
	return &orders.Result{Order: &orders.Order{ID: input.OrderID, Status: input.Status}}, nil
}

func (s *recordingOrders) Preview(ctx context.Context, input orders.PreviewInput) (*proforma.Result, error) {
	s.calls = append(s.calls, "preview")
	s.lastID = input.OrderID
	return &proforma.Result{}, nil
}

func (s *recordingOrders) GetInvoice(ctx context.Context, orderID uuid.UUID, actor orders.Actor) (*invoices.Invoice, error) {
	s.calls = append(s.calls, "invoice")
	s.lastID = orderID
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "invoice not found")
}

func newTestRouter(svc orders.Service) http.Handler {
	cfg := &config.Config{App: config.AppConfig{Env: "test"}}
	logg := logger.New(logger.Options{ServiceName: "router-test", Output: io.Discard})
	return NewRouter(cfg, logg, stubPinger{}, nil, svc)
}

func TestHealthRoutes(t *testing.T) {
	h := newTestRouter(&recordingOrders{})
	for _, path := range []string{"/health/live", "/health/ready"} {
		resp := httptest.NewRecorder()
		h.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, path, nil))
		if resp.Code != http.StatusOK {
			t.Fatalf("%s: expected 200 got %d", path, resp.Code)
		}
		if resp.Header().Get("X-Request-Id") == "" {
			t.Fatalf("%s: expected request id header", path)
		}
	}
}

func TestOrderRoutesDispatch(t *testing.T) {
	svc := &recordingOrders{}
	h := newTestRouter(svc)
	orderID := uuid.New()
	actorID := uuid.New()
	base := "/api/v1/orders/" + orderID.String()

	tests := []struct {
		method string
		path   string
		body   string
		want   string
		status int
	}{
		{http.MethodGet, base, "", "get", http.StatusOK},
		{http.MethodPost, base + "/quote", `{}`, "quote", http.StatusOK},
		{http.MethodPost, base + "/transitions", `{"status":"ACCEPTED"}`, "transition", http.StatusOK},
		{http.MethodPost, base + "/proforma/preview", `{}`, "preview", http.StatusOK},
		{http.MethodGet, base + "/invoice", "", "invoice", http.StatusNotFound},
	}
	for _, tt := range tests {
		svc.calls = nil
		var body io.Reader
		if tt.body != "" {
			body = strings.NewReader(tt.body)
		}
		req := httptest.NewRequest(tt.method, tt.path, body)
		req.Header.Set("X-Actor-Id", actorID.String())
		resp := httptest.NewRecorder()
		h.ServeHTTP(resp, req)

		if resp.Code != tt.status {
			t.Fatalf("%s %s: expected %d got %d: %s", tt.method, tt.path, tt.status, resp.Code, resp.Body.String())
		}
		if len(svc.calls) != 1 || svc.calls[0] != tt.want {
			t.Fatalf("%s %s: expected %s got %v", tt.method, tt.path, tt.want, svc.calls)
		}
		if svc.lastID != orderID {
			t.Fatalf("%s %s: order id not routed", tt.method, tt.path)
		}
	}
	if svc.lastActor.ID != actorID {
		t.Fatalf("expected actor from header, got %s", svc.lastActor.ID)
	}
}

func TestOrderRoutesRejectMalformedActor(t *testing.T) {
	svc := &recordingOrders{}
	h := newTestRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/"+uuid.NewString(), nil)
	req.Header.Set("X-Actor-Id", "seller-42")
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
	if len(svc.calls) != 0 {
		t.Fatalf("service should not be called, got %v", svc.calls)
	}
}
