package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/orderdesk/pkg/config"
	"github.com/angelmondragon/orderdesk/pkg/db/models"
	"github.com/angelmondragon/orderdesk/pkg/logger"
	"github.com/angelmondragon/orderdesk/pkg/metrics"
	"github.com/angelmondragon/orderdesk/pkg/outbox/registry"
)

type dbClient interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type pubSubClient interface {
	Ping(context.Context) error
	Publisher(name string) *gcppubsub.Publisher
}

type outboxRepository interface {
	FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error
	MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error
}

type dlqRepository interface {
	InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error
}

type registryResolver interface {
	Resolve(models.OutboxEvent) (*registry.ResolvedEvent, error)
}

// ServiceParams wires the publisher. Metrics and PublisherFactory are optional.
type ServiceParams struct {
	Config           *config.Config
	Logger           *logger.Logger
	DB               dbClient
	PubSub           pubSubClient
	Repository       outboxRepository
	Registry         registryResolver
	PublisherFactory publisherFactory
	DLQRepository    dlqRepository
	Metrics          *metrics.OutboxMetrics
}

// Service drains the outbox table into Pub/Sub topics. Each batch is claimed
// and settled inside one transaction so concurrent publishers skip locked rows.
type Service struct {
	logg             *logger.Logger
	db               dbClient
	repo             outboxRepository
	pubsub           pubSubClient
	registry         registryResolver
	dlq              dlqRepository
	metrics          *metrics.OutboxMetrics
	publisherFactory publisherFactory
	topics           *topicCache
	pacing           pacing
	batchSize        int
	maxAttempts      int
}

func NewService(params ServiceParams) (*Service, error) {
	required := []struct {
		ok   bool
		name string
	}{
		{params.Config != nil, "config"},
		{params.Logger != nil, "logger"},
		{params.DB != nil, "database client"},
		{params.PubSub != nil, "pubsub client"},
		{params.Repository != nil, "outbox repository"},
		{params.Registry != nil, "event registry"},
		{params.DLQRepository != nil, "dlq repository"},
	}
	for _, dep := range required {
		if !dep.ok {
			return nil, fmt.Errorf("%s is required", dep.name)
		}
	}

	cfg := params.Config.Outbox
	s := &Service{
		logg:        params.Logger,
		db:          params.DB,
		repo:        params.Repository,
		pubsub:      params.PubSub,
		registry:    params.Registry,
		dlq:         params.DLQRepository,
		metrics:     params.Metrics,
		topics:      newTopicCache(params.PubSub),
		pacing:      newPacing(time.Duration(positiveOr(cfg.PollIntervalMS, defaultPollMs)) * time.Millisecond),
		batchSize:   positiveOr(cfg.BatchSize, defaultBatchSize),
		maxAttempts: positiveOr(cfg.MaxAttempts, defaultMaxAttempts),
	}
	s.publisherFactory = params.PublisherFactory
	if s.publisherFactory == nil {
		s.publisherFactory = s.cachedPublisher
	}
	return s, nil
}

// Stop flushes every cached topic publisher.
func (s *Service) Stop() {
	s.topics.stopAll()
}

// Run polls until ctx ends. Empty batches wait one poll interval; failed
// batches back off exponentially.
func (s *Service) Run(ctx context.Context) error {
	for _, dep := range []struct {
		name string
		ping func(context.Context) error
	}{
		{"database", s.db.Ping},
		{"pubsub", s.pubsub.Ping},
	} {
		if err := dep.ping(ctx); err != nil {
			s.logg.Error(ctx, dep.name+" ping failed", err)
			return fmt.Errorf("%s ping failed: %w", dep.name, err)
		}
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"batch_size":   s.batchSize,
		"max_attempts": s.maxAttempts,
		"poll":         s.pacing.base.String(),
	}), "outbox publisher polling")

	for {
		if err := ctx.Err(); err != nil {
			s.logg.Info(ctx, "outbox publisher context canceled")
			return err
		}

		processed, err := s.processBatch(ctx)
		var wait time.Duration
		switch {
		case err != nil:
			s.logg.Error(ctx, "outbox publisher batch error", err)
			wait = s.pacing.failed()
		case processed:
			s.pacing.reset()
			continue
		default:
			wait = s.pacing.idle()
		}
		if err := sleepCtx(ctx, wait); err != nil {
			return err
		}
	}
}

// processBatch reports whether any rows were claimed. A returned error rolls
// back every settlement in the batch.
func (s *Service) processBatch(ctx context.Context) (bool, error) {
	claimed := 0
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		events, err := s.repo.FetchUnpublishedForPublish(tx, s.batchSize, s.maxAttempts)
		if err != nil {
			return fmt.Errorf("claim batch: %w", err)
		}
		claimed = len(events)
		for _, event := range events {
			if err := s.settle(ctx, tx, event, s.deliver(ctx, event)); err != nil {
				return err
			}
		}
		return nil
	})
	s.metrics.ObserveBatch(claimed)
	return claimed > 0, err
}

func positiveOr(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}

var errNilResult = errors.New("publish result is nil")
