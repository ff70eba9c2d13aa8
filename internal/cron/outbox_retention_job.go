package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/orderdesk/pkg/logger"
)

const outboxRetentionDays = 30

type OutboxRetentionJobParams struct {
	Logger    *logger.Logger
	Outbox    publishedPurger
	Mirrors   syncedMirrorPurger
	Retention int
}

type publishedPurger interface {
	DeletePublishedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type syncedMirrorPurger interface {
	DeleteSyncedMirrorsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// NewOutboxRetentionJob prunes published outbox rows and, when Mirrors is
// set, settled mirror writes past the retention window.
func NewOutboxRetentionJob(params OutboxRetentionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox repository required")
	}
	retention := params.Retention
	if retention <= 0 {
		retention = outboxRetentionDays
	}
	return &outboxRetentionJob{
		logg:      params.Logger,
		outbox:    params.Outbox,
		mirrors:   params.Mirrors,
		retention: retention,
		now:       time.Now,
	}, nil
}

type outboxRetentionJob struct {
	logg      *logger.Logger
	outbox    publishedPurger
	mirrors   syncedMirrorPurger
	retention int
	now       func() time.Time
}

func (j *outboxRetentionJob) Name() string { return "outbox-retention" }

func (j *outboxRetentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-time.Duration(j.retention) * 24 * time.Hour)
	events, err := j.outbox.DeletePublishedBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("outbox retention: %w", err)
	}
	var mirrors int64
	if j.mirrors != nil {
		mirrors, err = j.mirrors.DeleteSyncedMirrorsBefore(ctx, cutoff)
		if err != nil {
			return fmt.Errorf("mirror write retention: %w", err)
		}
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":          cutoff,
		"retention_days":  j.retention,
		"events_deleted":  events,
		"mirrors_deleted": mirrors,
	})
	j.logg.Info(logCtx, "outbox retention cleanup complete")
	return nil
}
