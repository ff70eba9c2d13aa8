package middleware

import (
	"bytes"
	"cmp"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/orderdesk/api/responses"
	pkgerrors "github.com/angelmondragon/orderdesk/pkg/errors"
	"github.com/angelmondragon/orderdesk/pkg/logger"
	pkgredis "github.com/angelmondragon/orderdesk/pkg/redis"
)

const (
	// IdempotencyHeader carries the caller's retry key.
	IdempotencyHeader = "Idempotency-Key"
	// ReplayedHeader marks a response served from the replay store.
	ReplayedHeader = "Idempotent-Replayed"

	defaultIdempotencyTTL  = 24 * time.Hour
	criticalIdempotencyTTL = 7 * 24 * time.Hour
	inFlightTTL            = 2 * time.Minute
	inFlightMarker         = "in-flight"
)

// ReplayTTLs sets how long stored responses are replayable. Zero fields fall
// back to 24h and 7 days.
type ReplayTTLs struct {
	Default  time.Duration
	Critical time.Duration
}

// replayPolicy names a mutating route whose responses are kept for replay.
type replayPolicy struct {
	method   string
	prefix   string
	suffix   string
	exact    bool
	critical bool
}

func (p replayPolicy) matches(method, pattern string) bool {
	if method != p.method {
		return false
	}
	if p.exact {
		return pattern == p.prefix
	}
	return strings.HasPrefix(pattern, p.prefix) && strings.HasSuffix(pattern, p.suffix)
}

// Order creation is cheap to redo; quote and transition replays must outlive
// a week of client retries.
var replayPolicies = []replayPolicy{
	{method: http.MethodPost, prefix: "/api/v1/orders", exact: true},
	{method: http.MethodPost, prefix: "/api/v1/orders/", suffix: "/quote", critical: true},
	{method: http.MethodPost, prefix: "/api/v1/orders/", suffix: "/transitions", critical: true},
}

type storedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type,omitempty"`
	Body        string `json:"body"`
	RequestHash string `json:"request_hash"`
}

// Idempotency replays the first response for a repeated Idempotency-Key on
// the routes in replayPolicies. Keys are scoped to actor, method and path. A
// key is claimed before the handler runs, so a concurrent duplicate gets 409.
// 5xx outcomes release the claim so the caller can retry with the same key.
func Idempotency(store pkgredis.IdempotencyStore, logg *logger.Logger, ttls ReplayTTLs) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ttl, ok := ttls.forRoute(r.Method, routePattern(r))
			if !ok || store == nil {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()

			clientKey := strings.TrimSpace(r.Header.Get(IdempotencyHeader))
			if clientKey == "" {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key header required"))
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))
			fingerprint := hashBody(body)
			key := store.IdempotencyKey(requestScope(r), clientKey)

			claimed, err := store.SetNX(ctx, key, inFlightMarker, inFlightTTL)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim idempotency key"))
				return
			}
			if !claimed {
				replayOrReject(w, r, store, key, fingerprint, logg)
				return
			}

			capture := &responseCapture{ResponseWriter: w}
			next.ServeHTTP(capture, r)

			status := capture.statusCode()
			if status >= http.StatusInternalServerError {
				if err := store.Del(ctx, key); err != nil && logg != nil {
					logg.Error(ctx, "release idempotency key", err)
				}
				return
			}
			record, err := json.Marshal(storedResponse{
				Status:      status,
				ContentType: capture.Header().Get("Content-Type"),
				Body:        base64.StdEncoding.EncodeToString(capture.body.Bytes()),
				RequestHash: fingerprint,
			})
			if err == nil {
				err = store.Set(ctx, key, string(record), ttl)
			}
			if err != nil && logg != nil {
				logg.Error(ctx, "persist idempotency record", err)
			}
		})
	}
}

func replayOrReject(w http.ResponseWriter, r *http.Request, store pkgredis.IdempotencyStore, key, fingerprint string, logg *logger.Logger) {
	ctx := r.Context()
	raw, err := store.Get(ctx, key)
	switch {
	case errors.Is(err, redis.Nil):
		// claim expired between SetNX and Get
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeConflict, "idempotent request still in progress; retry"))
		return
	case err != nil:
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency"))
		return
	case raw == inFlightMarker:
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeConflict, "idempotent request still in progress; retry"))
		return
	}

	var stored storedResponse
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode idempotency record"))
		return
	}
	if stored.RequestHash != fingerprint {
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with different request body"))
		return
	}
	body, err := base64.StdEncoding.DecodeString(stored.Body)
	if err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode idempotency body"))
		return
	}
	if stored.ContentType != "" {
		w.Header().Set("Content-Type", stored.ContentType)
	}
	w.Header().Set(ReplayedHeader, "true")
	w.WriteHeader(stored.Status)
	_, _ = w.Write(body)
}

func requestScope(r *http.Request) string {
	return ActorIDFromContext(r.Context()).String() + "|" + r.Method + "|" + r.URL.Path
}

func hashBody(payload []byte) string {
	sum := sha256.Sum256(payload)
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// routePattern prefers chi's resolved pattern. Under a wildcard mount the
// pattern is not resolved yet, so the trimmed path stands in.
func routePattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if pattern := rc.RoutePattern(); pattern != "" && !strings.HasSuffix(pattern, "*") {
			return pattern
		}
	}
	if trimmed := strings.TrimSuffix(r.URL.Path, "/"); trimmed != "" {
		return trimmed
	}
	return r.URL.Path
}

func (t ReplayTTLs) forRoute(method, pattern string) (time.Duration, bool) {
	if pattern == "" {
		return 0, false
	}
	for _, policy := range replayPolicies {
		if !policy.matches(method, pattern) {
			continue
		}
		if policy.critical {
			return cmp.Or(t.Critical, criticalIdempotencyTTL), true
		}
		return cmp.Or(t.Default, defaultIdempotencyTTL), true
	}
	return 0, false
}

// responseCapture tees the body so it can be stored after the handler returns.
type responseCapture struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (c *responseCapture) WriteHeader(code int) {
	if c.status == 0 {
		c.status = code
	}
	c.ResponseWriter.WriteHeader(code)
}

func (c *responseCapture) Write(b []byte) (int, error) {
	if c.status == 0 {
		c.status = http.StatusOK
	}
	c.body.Write(b)
	return c.ResponseWriter.Write(b)
}

func (c *responseCapture) statusCode() int {
	if c.status == 0 {
		return http.StatusOK
	}
	return c.status
}
