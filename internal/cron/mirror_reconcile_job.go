package cron

import (
	"context"
	"fmt"

	"github.com/angelmondragon/orderdesk/internal/ledger"
	"github.com/angelmondragon/orderdesk/pkg/logger"
)

const (
	defaultReconcileBatch    = 100
	defaultReconcileAttempts = 20
)

type MirrorReconcileJobParams struct {
	Logger      *logger.Logger
	Ledger      pendingReconciler
	BatchSize   int
	MaxAttempts int
}

type pendingReconciler interface {
	ReconcilePending(ctx context.Context, limit, maxAttempts int) (ledger.ReconcileResult, error)
}

// NewMirrorReconcileJob drains counterparty copies that were not written inline.
func NewMirrorReconcileJob(params MirrorReconcileJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger synchronizer required")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultReconcileBatch
	}
	attempts := params.MaxAttempts
	if attempts <= 0 {
		attempts = defaultReconcileAttempts
	}
	return &mirrorReconcileJob{
		logg:        params.Logger,
		ledger:      params.Ledger,
		batchSize:   batch,
		maxAttempts: attempts,
	}, nil
}

type mirrorReconcileJob struct {
	logg        *logger.Logger
	ledger      pendingReconciler
	batchSize   int
	maxAttempts int
}

func (j *mirrorReconcileJob) Name() string { return "mirror-reconcile" }

func (j *mirrorReconcileJob) Run(ctx context.Context) error {
	result, err := j.ledger.ReconcilePending(ctx, j.batchSize, j.maxAttempts)
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"scanned": result.Scanned,
		"synced":  result.Synced,
		"failed":  result.Failed,
	})
	if err != nil {
		return fmt.Errorf("mirror reconcile: %w", err)
	}
	j.logg.Info(logCtx, "mirror reconcile complete")
	return nil
}
