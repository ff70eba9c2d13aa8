package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/orderdesk/pkg/config"
	"github.com/angelmondragon/orderdesk/pkg/db"
	"github.com/angelmondragon/orderdesk/pkg/db/models"
	"github.com/angelmondragon/orderdesk/pkg/instance"
	"github.com/angelmondragon/orderdesk/pkg/logger"
	"github.com/angelmondragon/orderdesk/pkg/metrics"
	"github.com/angelmondragon/orderdesk/pkg/migrate"
	"github.com/angelmondragon/orderdesk/pkg/outbox"
	"github.com/angelmondragon/orderdesk/pkg/outbox/registry"
	"github.com/angelmondragon/orderdesk/pkg/pubsub"
)

const serviceKind = "outbox-publisher"

// adminFlags switch the binary into one-shot DLQ maintenance instead of polling.
type adminFlags struct {
	listDLQ bool
	requeue string
}

func main() {
	var admin adminFlags
	flag.BoolVar(&admin.listDLQ, "dlq-list", false, "print the newest dead-lettered events and exit")
	flag.StringVar(&admin.requeue, "requeue", "", "event id to move from the DLQ back to the outbox, then exit")
	flag.Parse()

	boot := logger.New(logger.Options{ServiceName: serviceKind})
	if err := godotenv.Load(); err != nil {
		boot.Warn(context.Background(), ".env file not found, relying on environment")
	}
	if err := run(boot, admin); err != nil && !errors.Is(err, context.Canceled) {
		boot.Error(context.Background(), "outbox publisher stopped unexpectedly", err)
		os.Exit(1)
	}
}

// run owns every resource so deferred closes execute before exit.
func run(boot *logger.Logger, admin adminFlags) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg.Service.Kind = serviceKind

	logg := logger.New(logger.Options{
		ServiceName: serviceKind,
		Env:         cfg.App.Env,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"serviceKind": serviceKind,
		"instance":    instance.GetID(),
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return fmt.Errorf("bootstrap database: %w", err)
	}
	defer closeWith(logg, "database", dbClient.Close)

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return fmt.Errorf("dev migrations: %w", err)
	}

	dlq := outbox.NewDLQRepository(dbClient.DB())
	if admin.listDLQ || admin.requeue != "" {
		return runAdmin(ctx, logg, dlq, admin, os.Stdout)
	}

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		return fmt.Errorf("bootstrap pubsub: %w", err)
	}
	defer closeWith(logg, "pubsub client", pubsubClient.Close)

	eventRegistry, err := registry.NewEventRegistry(cfg.PubSub)
	if err != nil {
		return fmt.Errorf("build event registry: %w", err)
	}

	service, err := NewService(ServiceParams{
		Config:        cfg,
		Logger:        logg,
		DB:            dbClient,
		PubSub:        pubsubClient,
		Repository:    outbox.NewRepository(dbClient.DB()),
		Registry:      eventRegistry,
		DLQRepository: dlq,
		Metrics:       metrics.NewOutboxMetrics(prometheus.DefaultRegisterer),
	})
	if err != nil {
		return fmt.Errorf("create outbox publisher: %w", err)
	}
	defer service.Stop()

	metricsServer := &http.Server{Addr: cfg.Outbox.MetricsAddr, Handler: promhttp.Handler(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(logg.WithField(ctx, "addr", cfg.Outbox.MetricsAddr), "metrics server stopped", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	logg.Info(ctx, "starting outbox publisher")
	err = service.Run(ctx)
	if errors.Is(err, context.Canceled) {
		logg.Info(ctx, "outbox publisher shutting down gracefully")
		return nil
	}
	return err
}

type dlqAdmin interface {
	List(ctx context.Context, limit int) ([]models.OutboxDLQ, error)
	Requeue(ctx context.Context, eventID uuid.UUID) error
}

func runAdmin(ctx context.Context, logg *logger.Logger, dlq dlqAdmin, admin adminFlags, out io.Writer) error {
	if admin.requeue != "" {
		eventID, err := uuid.Parse(admin.requeue)
		if err != nil {
			return fmt.Errorf("invalid -requeue id: %w", err)
		}
		if err := dlq.Requeue(ctx, eventID); err != nil {
			return fmt.Errorf("requeue %s: %w", eventID, err)
		}
		logg.Info(logg.WithField(ctx, "outbox_id", eventID.String()), "dead-lettered event requeued")
		return nil
	}
	rows, err := dlq.List(ctx, 0)
	if err != nil {
		return fmt.Errorf("list dlq: %w", err)
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "EVENT ID\tTYPE\tREASON\tATTEMPTS\tFAILED AT")
	for _, row := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", row.EventID, row.EventType, row.ErrorReason, row.AttemptCount, row.FailedAt.UTC().Format(time.RFC3339))
	}
	return tw.Flush()
}

func closeWith(logg *logger.Logger, name string, closeFn func() error) {
	if err := closeFn(); err != nil {
		logg.Error(context.Background(), "error closing "+name, err)
	}
}
