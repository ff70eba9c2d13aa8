package cron

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubJob struct {
	name string
}

func (s *stubJob) Name() string              { return s.name }
func (s *stubJob) Run(context.Context) error { return nil }

func TestRegistryKeepsOrderAndCopies(t *testing.T) {
	reconcile := &stubJob{name: "mirror-reconcile"}
	retention := &stubJob{name: "outbox-retention"}
	registry, err := NewRegistry(reconcile, nil, retention)
	require.NoError(t, err)

	jobs := registry.Jobs()
	require.Len(t, jobs, 2)
	assert.Same(t, reconcile, jobs[0])
	assert.Same(t, retention, jobs[1])
	assert.Equal(t, []string{"mirror-reconcile", "outbox-retention"}, registry.Names())

	jobs[0] = nil
	assert.NotNil(t, registry.Jobs()[0])
}

func TestRegistryRejectsDuplicateAndBlankNames(t *testing.T) {
	_, err := NewRegistry(&stubJob{name: "mirror-reconcile"}, &stubJob{name: "mirror-reconcile"})
	require.Error(t, err)

	registry := &Registry{}
	require.Error(t, registry.Register(&stubJob{name: "  "}))
	require.NoError(t, registry.Register(&stubJob{name: "outbox-retention"}))
	assert.Len(t, registry.Jobs(), 1)
}
