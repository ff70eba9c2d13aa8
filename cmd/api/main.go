package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/orderdesk/api/routes"
	"github.com/angelmondragon/orderdesk/internal/inventory"
	"github.com/angelmondragon/orderdesk/internal/invoices"
	"github.com/angelmondragon/orderdesk/internal/ledger"
	"github.com/angelmondragon/orderdesk/internal/orders"
	"github.com/angelmondragon/orderdesk/internal/proforma"
	"github.com/angelmondragon/orderdesk/pkg/config"
	"github.com/angelmondragon/orderdesk/pkg/db"
	"github.com/angelmondragon/orderdesk/pkg/enums"
	"github.com/angelmondragon/orderdesk/pkg/instance"
	"github.com/angelmondragon/orderdesk/pkg/logger"
	"github.com/angelmondragon/orderdesk/pkg/metrics"
	"github.com/angelmondragon/orderdesk/pkg/migrate"
	"github.com/angelmondragon/orderdesk/pkg/outbox"
	"github.com/angelmondragon/orderdesk/pkg/pincode"
	"github.com/angelmondragon/orderdesk/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Env:         cfg.App.Env,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	ledgerMetrics := metrics.NewLedgerMetrics(prometheus.DefaultRegisterer)
	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	ledgerService, err := ledger.NewService(ledger.ServiceParams{
		Repo:         ledger.NewRepository(dbClient.DB()),
		Tx:           dbClient,
		Logger:       logg,
		Metrics:      ledgerMetrics,
		InlineMirror: cfg.FeatureFlags.InlineSync,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create ledger service", err)
		os.Exit(1)
	}

	invoiceService, err := invoices.NewService(invoices.ServiceParams{
		Repo:         invoices.NewRepository(dbClient.DB()),
		Tx:           dbClient,
		Outbox:       outboxService,
		Guard:        redisClient,
		Logger:       logg,
		Metrics:      ledgerMetrics,
		NumberPrefix: cfg.Invoice.NumberPrefix,
		GuardTTL:     cfg.Invoice.LockTTL,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create invoice service", err)
		os.Exit(1)
	}

	var pincodes orders.PincodeLookup
	if cfg.Pincode.Enabled() {
		pincodes = pincode.NewClient(cfg.Pincode.BaseURL, pincode.WithTimeout(cfg.Pincode.Timeout))
	}

	var stock orders.InventoryAdjuster
	if cfg.FeatureFlags.InventorySync {
		adjuster, err := inventory.NewAdjuster(inventory.NewRepository(dbClient.DB()), dbClient, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to create inventory adjuster", err)
			os.Exit(1)
		}
		stock = adjuster
	}

	ordersService, err := orders.NewService(orders.ServiceParams{
		Ledger:    ledgerService,
		Invoices:  invoiceService,
		Outbox:    outboxService,
		Pincodes:  pincodes,
		Inventory: stock,
		Logger:    logg,
		Defaults:  orderDefaults(cfg.Proforma),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"addr":     addr,
		"instance": instance.GetID(),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, ordersService),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func orderDefaults(cfg config.ProformaConfig) orders.Defaults {
	rule, err := enums.ParseRoundingRule(cfg.RoundingRule)
	if err != nil {
		rule = enums.RoundingNearest
	}
	delivery, packing, insurance, other := cfg.DirectCharges()
	return orders.Defaults{
		Rounding: proforma.Rounding{Enabled: cfg.RoundingEnabled, Rule: rule},
		DirectCharges: proforma.Charges{
			Delivery:  delivery,
			Packing:   packing,
			Insurance: insurance,
			Other:     other,
		},
	}
}
