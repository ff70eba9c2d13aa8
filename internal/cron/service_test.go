package cron

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/orderdesk/pkg/logger"
	"github.com/angelmondragon/orderdesk/pkg/metrics"
)

type fakeLock struct {
	held     bool
	owner    string
	err      error
	releases int
}

func (f *fakeLock) Acquire(context.Context) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	if f.held {
		return false, nil
	}
	f.held = true
	return true, nil
}

func (f *fakeLock) Release(context.Context) error {
	f.held = false
	f.releases++
	return nil
}

func (f *fakeLock) Holder(context.Context) (string, error) { return f.owner, nil }

type testJob struct {
	name string
	err  error
	runs int
}

func (t *testJob) Name() string { return t.name }

func (t *testJob) Run(context.Context) error {
	t.runs++
	return t.err
}

func newTestService(t *testing.T, lock Lock, jobs ...Job) *Service {
	t.Helper()
	registry, err := NewRegistry(jobs...)
	require.NoError(t, err)
	svc, err := NewService(ServiceParams{
		Logger:   logger.New(logger.Options{ServiceName: "cron-test", Output: io.Discard}),
		Registry: registry,
		Lock:     lock,
		Metrics:  metrics.NewJobMetrics(prometheus.NewRegistry()),
	})
	require.NoError(t, err)
	return svc
}

func TestCycleRunsAllJobsEvenOnFailure(t *testing.T) {
	ok := &testJob{name: "mirror-reconcile"}
	bad := &testJob{name: "outbox-retention", err: errors.New("boom")}
	after := &testJob{name: "after"}
	lock := &fakeLock{}
	svc := newTestService(t, lock, ok, bad, after)

	report, err := svc.cycle(context.Background())
	require.NoError(t, err)
	assert.False(t, report.Skipped)
	assert.Equal(t, []string{"mirror-reconcile", "outbox-retention", "after"}, report.Ran)
	assert.Equal(t, []string{"outbox-retention"}, report.Failed)
	assert.ErrorContains(t, report.Err, "outbox-retention: boom")
	assert.Equal(t, 1, ok.runs)
	assert.Equal(t, 1, bad.runs)
	assert.Equal(t, 1, after.runs)
	assert.Equal(t, 1, lock.releases)
	assert.False(t, lock.held)
}

func TestRunOnceSurfacesJobFailures(t *testing.T) {
	svc := newTestService(t, &fakeLock{}, &testJob{name: "a", err: errors.New("db down")})
	err := svc.RunOnce(context.Background())
	require.Error(t, err)
	assert.ErrorContains(t, err, "db down")

	clean := newTestService(t, &fakeLock{}, &testJob{name: "a"})
	assert.NoError(t, clean.RunOnce(context.Background()))
}

func TestCycleSkipsWhenLockHeld(t *testing.T) {
	job := &testJob{name: "mirror-reconcile"}
	lock := &fakeLock{held: true, owner: "worker-7:abc"}
	svc := newTestService(t, lock, job)

	report, err := svc.cycle(context.Background())
	require.NoError(t, err)
	assert.True(t, report.Skipped)
	assert.Equal(t, "worker-7:abc", report.Holder)
	assert.Zero(t, job.runs)
	assert.Zero(t, lock.releases)
	assert.NoError(t, svc.RunOnce(context.Background()))
}

func TestCycleFailsWhenLockUnavailable(t *testing.T) {
	job := &testJob{name: "mirror-reconcile"}
	svc := newTestService(t, &fakeLock{err: errors.New("redis down")}, job)

	err := svc.RunOnce(context.Background())
	require.Error(t, err)
	assert.Zero(t, job.runs)
}

func TestRunStopsOnCancel(t *testing.T) {
	job := &testJob{name: "a"}
	svc := newTestService(t, &fakeLock{}, job)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := svc.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, job.runs, "first cycle runs before the loop waits")
}

func TestNewServiceValidates(t *testing.T) {
	_, err := NewService(ServiceParams{Lock: &fakeLock{}})
	assert.Error(t, err)
	_, err = NewService(ServiceParams{Logger: logger.New(logger.Options{Output: io.Discard})})
	assert.Error(t, err)

	svc, err := NewService(ServiceParams{Logger: logger.New(logger.Options{Output: io.Discard}), Lock: &fakeLock{}})
	require.NoError(t, err)
	assert.Equal(t, defaultInterval, svc.interval)
	assert.Empty(t, svc.registry.Names())
}
