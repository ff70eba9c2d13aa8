package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/orderdesk/pkg/logger"
)

func TestRequestIDEchoesOrMints(t *testing.T) {
	cases := map[string]struct {
		header string
		echo   bool
	}{
		"caller id":   {header: "req-7f3a-01", echo: true},
		"missing":     {header: ""},
		"with spaces": {header: "bad id"},
		"too long":    {header: strings.Repeat("a", maxRequestIDLen+1)},
	}
	for name, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
		if tc.header != "" {
			req.Header.Set(requestIDHeader, tc.header)
		}
		resp := httptest.NewRecorder()
		RequestID(nil)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})).ServeHTTP(resp, req)

		got := resp.Header().Get(requestIDHeader)
		if tc.echo {
			if got != tc.header {
				t.Fatalf("%s: expected echo got %q", name, got)
			}
			continue
		}
		if _, err := uuid.Parse(got); err != nil {
			t.Fatalf("%s: expected minted uuid got %q", name, got)
		}
	}
}

func TestRecovererWritesInternalEnvelope(t *testing.T) {
	handler := Recoverer(nil)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("ledger exploded")
	}))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/v1/orders", nil))

	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", resp.Code)
	}
	var env struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Error.Code != "INTERNAL_ERROR" {
		t.Fatalf("unexpected code %s", env.Error.Code)
	}
}

func TestRecovererRepanicsAbort(t *testing.T) {
	handler := Recoverer(nil)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic(http.ErrAbortHandler)
	}))
	defer func() {
		if rec := recover(); rec != http.ErrAbortHandler {
			t.Fatalf("expected abort to propagate, got %v", rec)
		}
	}()
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
}

func TestLoggingRecordsRouteAndStatus(t *testing.T) {
	var buf bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "middleware-test", Output: &buf})

	r := chi.NewRouter()
	r.Use(Logging(logg))
	r.Get("/api/v1/orders/{orderId}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"error":{}}`)
	})
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/orders/abc", nil))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected start and complete lines, got %d: %s", len(lines), buf.String())
	}
	var complete map[string]any
	if err := json.Unmarshal([]byte(lines[1]), &complete); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if complete["route"] != "/api/v1/orders/{orderId}" {
		t.Fatalf("unexpected route %v", complete["route"])
	}
	if complete["status"] != float64(http.StatusNotFound) || complete["bytes"] != float64(12) {
		t.Fatalf("unexpected status/bytes %v %v", complete["status"], complete["bytes"])
	}
}
