package cron

import (
	"context"
	"errors"
	"testing"

	"github.com/angelmondragon/orderdesk/internal/ledger"
)

type fakeReconciler struct {
	limit       int
	maxAttempts int
	result      ledger.ReconcileResult
	err         error
}

func (f *fakeReconciler) ReconcilePending(ctx context.Context, limit, maxAttempts int) (ledger.ReconcileResult, error) {
	f.limit = limit
	f.maxAttempts = maxAttempts
	return f.result, f.err
}

func TestMirrorReconcileJobUsesDefaults(t *testing.T) {
	rec := &fakeReconciler{result: ledger.ReconcileResult{Scanned: 3, Synced: 3}}
	job, err := NewMirrorReconcileJob(MirrorReconcileJobParams{Logger: testLogger(), Ledger: rec})
	if err != nil {
		t.Fatalf("NewMirrorReconcileJob: %v", err)
	}
	if job.Name() != "mirror-reconcile" {
		t.Fatalf("unexpected name %q", job.Name())
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rec.limit != defaultReconcileBatch || rec.maxAttempts != defaultReconcileAttempts {
		t.Fatalf("unexpected limits %d/%d", rec.limit, rec.maxAttempts)
	}
}

func TestMirrorReconcileJobSurfacesRowFailures(t *testing.T) {
	rec := &fakeReconciler{result: ledger.ReconcileResult{Scanned: 2, Synced: 1, Failed: 1}, err: errors.New("mirror write x: store down")}
	job, err := NewMirrorReconcileJob(MirrorReconcileJobParams{Logger: testLogger(), Ledger: rec, BatchSize: 5, MaxAttempts: 2})
	if err != nil {
		t.Fatalf("NewMirrorReconcileJob: %v", err)
	}
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if rec.limit != 5 || rec.maxAttempts != 2 {
		t.Fatalf("configured limits not used")
	}
}

func TestNewMirrorReconcileJobRequiresLedger(t *testing.T) {
	if _, err := NewMirrorReconcileJob(MirrorReconcileJobParams{Logger: testLogger()}); err == nil {
		t.Fatal("expected error")
	}
}
