package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/orderdesk/api/responses"
	pkgerrors "github.com/angelmondragon/orderdesk/pkg/errors"
	"github.com/angelmondragon/orderdesk/pkg/logger"
)

const (
	actorIDHeader   = "X-Actor-Id"
	actorNameHeader = "X-Actor-Name"
	maxActorNameLen = 120
)

// Actor reads the acting party from the X-Actor-Id and X-Actor-Name headers.
// Requests without an id pass through anonymously; handlers that mutate or
// read an order reject them.
func Actor(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get(actorIDHeader))
			if raw == "" {
				next.ServeHTTP(w, r)
				return
			}

			actorID, err := uuid.Parse(raw)
			if err != nil || actorID == uuid.Nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid actor id"))
				return
			}

			name := strings.TrimSpace(r.Header.Get(actorNameHeader))
			if len(name) > maxActorNameLen {
				name = name[:maxActorNameLen]
			}

			ctx := WithActor(r.Context(), actorID, name)
			if logg != nil {
				ctx = logg.WithField(ctx, "actor_id", actorID.String())
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
