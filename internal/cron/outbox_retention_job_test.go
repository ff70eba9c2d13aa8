package cron

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/angelmondragon/orderdesk/pkg/logger"
)

func TestOutboxRetentionJobDeletesPublishedRows(t *testing.T) {
	now := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	outbox := &fakePurger{}
	mirrors := &fakePurger{}
	job := newOutboxRetentionJob(t, outbox, mirrors)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	expectedCutoff := now.UTC().Add(-outboxRetentionDays * 24 * time.Hour)
	if !outbox.lastCutoff.Equal(expectedCutoff) || !mirrors.lastCutoff.Equal(expectedCutoff) {
		t.Fatalf("expected cutoff %s, got %s / %s", expectedCutoff, outbox.lastCutoff, mirrors.lastCutoff)
	}
	if outbox.called != 1 || mirrors.called != 1 {
		t.Fatalf("expected each purger called once, got %d/%d", outbox.called, mirrors.called)
	}
}

func TestOutboxRetentionJobWithoutMirrors(t *testing.T) {
	outbox := &fakePurger{}
	job := newOutboxRetentionJob(t, outbox, nil)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if outbox.called != 1 {
		t.Fatalf("expected outbox purge")
	}
}

func TestOutboxRetentionJobPropagatesError(t *testing.T) {
	job := newOutboxRetentionJob(t, &fakePurger{err: errors.New("boom")}, &fakePurger{})
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}

	mirrors := &fakePurger{err: errors.New("boom")}
	job = newOutboxRetentionJob(t, &fakePurger{}, mirrors)
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected mirror purge error")
	}
}

func TestNewOutboxRetentionJobRequiresOutbox(t *testing.T) {
	if _, err := NewOutboxRetentionJob(OutboxRetentionJobParams{Logger: testLogger()}); err == nil {
		t.Fatal("expected error")
	}
}

func newOutboxRetentionJob(t *testing.T, outbox *fakePurger, mirrors *fakePurger) *outboxRetentionJob {
	t.Helper()
	params := OutboxRetentionJobParams{Logger: testLogger(), Outbox: outbox}
	if mirrors != nil {
		params.Mirrors = mirrors
	}
	jobIface, err := NewOutboxRetentionJob(params)
	if err != nil {
		t.Fatalf("NewOutboxRetentionJob: %v", err)
	}
	job, ok := jobIface.(*outboxRetentionJob)
	if !ok {
		t.Fatalf("expected outboxRetentionJob, got %T", jobIface)
	}
	return job
}

type fakePurger struct {
	lastCutoff time.Time
	called     int
	err        error
}

func (f *fakePurger) DeletePublishedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return f.purge(cutoff)
}

func (f *fakePurger) DeleteSyncedMirrorsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return f.purge(cutoff)
}

func (f *fakePurger) purge(cutoff time.Time) (int64, error) {
	f.called++
	f.lastCutoff = cutoff
	if f.err != nil {
		return 0, f.err
	}
	return 7, nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "cron-test", Output: io.Discard})
}
