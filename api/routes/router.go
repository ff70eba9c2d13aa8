package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/orderdesk/api/controllers"
	ordercontrollers "github.com/angelmondragon/orderdesk/api/controllers/orders"
	"github.com/angelmondragon/orderdesk/api/middleware"
	"github.com/angelmondragon/orderdesk/internal/orders"
	"github.com/angelmondragon/orderdesk/pkg/config"
	"github.com/angelmondragon/orderdesk/pkg/db"
	"github.com/angelmondragon/orderdesk/pkg/logger"
	pkgredis "github.com/angelmondragon/orderdesk/pkg/redis"
)

// NewRouter mounts health probes and the order API. redisClient may be nil,
// in which case idempotency keys are not enforced.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *pkgredis.Client,
	ordersSvc orders.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	deps := map[string]controllers.Pinger{}
	if dbP != nil {
		deps["db"] = dbP
	}
	var idempotencyStore pkgredis.IdempotencyStore
	if redisClient != nil {
		deps["redis"] = redisClient
		idempotencyStore = redisClient
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps))
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1/orders", func(r chi.Router) {
		r.Use(
			middleware.Actor(logg),
			middleware.Idempotency(idempotencyStore, logg, middleware.ReplayTTLs{
				Default:  cfg.Idempotency.ReplayTTL,
				Critical: cfg.Idempotency.CriticalTTL,
			}),
		)
		r.Post("/", ordercontrollers.Create(ordersSvc, logg))
		r.Route("/{orderId}", func(r chi.Router) {
			r.Get("/", ordercontrollers.Get(ordersSvc, logg))
			r.Post("/quote", ordercontrollers.Quote(ordersSvc, logg))
			r.Post("/transitions", ordercontrollers.Transition(ordersSvc, logg))
			r.Post("/proforma/preview", ordercontrollers.Preview(ordersSvc, logg))
			r.Get("/invoice", ordercontrollers.Invoice(ordersSvc, logg))
		})
	})

	return r
}
