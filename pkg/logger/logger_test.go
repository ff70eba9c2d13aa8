package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/orderdesk/pkg/errors"
)

func lastEntry(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[len(lines)-1], &entry), "entry=%s", buf.String())
	return entry
}

func TestErrorIncludesContextFields(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Level: ParseLevel("debug"), Output: buf})

	ctx := log.WithRequestID(context.Background(), "req-123")
	ctx = log.WithOrderID(ctx, "order-1")
	log.Error(ctx, "boom", errors.New("boom"))

	entry := lastEntry(t, buf)
	assert.Equal(t, "req-123", entry["request_id"])
	assert.Equal(t, "order-1", entry["order_id"])
	assert.Equal(t, "test", entry["service"])
	assert.Contains(t, entry, "stack")
}

func TestFieldsStayOnDerivedContext(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Output: buf})

	parent := log.WithActor(context.Background(), "actor-9", "seller")
	child := log.WithFields(parent, map[string]any{"revision": 4})
	log.Info(child, "transition applied")
	entry := lastEntry(t, buf)
	assert.Equal(t, "seller", entry["namespace"])
	assert.Equal(t, "actor-9", entry["actor_id"])
	assert.EqualValues(t, 4, entry["revision"])

	log.Info(parent, "parent only")
	assert.NotContains(t, lastEntry(t, buf), "revision")

	log.Info(context.Background(), "bare")
	assert.NotContains(t, lastEntry(t, buf), "actor_id")
}

func TestWarnStackToggle(t *testing.T) {
	buf := &bytes.Buffer{}
	New(Options{ServiceName: "test", Output: buf, WarnStack: true}).Warn(context.Background(), "warny")
	assert.Contains(t, lastEntry(t, buf), "stack")

	buf.Reset()
	New(Options{ServiceName: "test", Output: buf}).Warn(context.Background(), "warny")
	assert.NotContains(t, lastEntry(t, buf), "stack")
}

func TestDebugRespectsLevel(t *testing.T) {
	buf := &bytes.Buffer{}
	New(Options{ServiceName: "test", Output: buf}).Debug(context.Background(), "hidden")
	assert.Zero(t, buf.Len())

	New(Options{ServiceName: "test", Level: zerolog.DebugLevel, Output: buf}).Debug(context.Background(), "shown")
	assert.Equal(t, "shown", lastEntry(t, buf)["message"])
}

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"":        zerolog.InfoLevel,
		"invalid": zerolog.InfoLevel,
		" WARN ":  zerolog.WarnLevel,
		"debug":   zerolog.DebugLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), "input %q", in)
	}
}

func TestErrorStackOnlyForServerFaults(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Env: "test", Format: FormatJSON, Output: buf})

	ctx := log.WithTransition(context.Background(), "QUOTED", "SHIPPED")
	log.Error(ctx, "transition rejected", pkgerrors.New(pkgerrors.CodeInvalidTransition, "cannot move from QUOTED to SHIPPED"))
	entry := lastEntry(t, buf)
	assert.Equal(t, "INVALID_TRANSITION", entry["error_code"])
	assert.Equal(t, "QUOTED", entry["from_status"])
	assert.Equal(t, "SHIPPED", entry["to_status"])
	assert.Equal(t, "test", entry["env"])
	assert.NotContains(t, entry, "stack")

	log.Error(context.Background(), "write failed", pkgerrors.New(pkgerrors.CodeDependency, "primary write failed"))
	assert.Contains(t, lastEntry(t, buf), "stack")
}
