package logger

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/log/embedded"
	"go.opentelemetry.io/otel/log/noop"
)

type recordingLogger struct {
	embedded.Logger
	mu      sync.Mutex
	records []log.Record
}

func (r *recordingLogger) Emit(_ context.Context, record log.Record) {
	r.mu.Lock()
	r.records = append(r.records, record)
	r.mu.Unlock()
}

func (r *recordingLogger) Enabled(context.Context, log.EnabledParameters) bool {
	return true
}

func TestOtelLoggerWithMergesMetadata(t *testing.T) {
	base := NewOtelLogger(noop.NewLoggerProvider().Logger("test"), LevelTrace)

	extended := base.With(map[string]interface{}{
		"base_key": "base_value",
		"shared":   "from_base",
	}).With(map[string]interface{}{
		"extra_key": "extra_value",
		"shared":    "from_extended",
	}).(*otelLogger)

	assert.Len(t, extended.metadata, 3)
	assert.Equal(t, "base_value", extended.metadata["base_key"].AsString())
	assert.Equal(t, "from_extended", extended.metadata["shared"].AsString())
	assert.Empty(t, base.(*otelLogger).metadata)
}

func TestOtelLoggerEmits(t *testing.T) {
	rec := &recordingLogger{}
	l := NewOtelLogger(rec, LevelInfo).WithPrefix("[cache]").With(map[string]interface{}{"n": 1})

	l.Debug("hidden")
	l.Warn("refresh of %q failed", "a")

	assert.Len(t, rec.records, 1)
	r := rec.records[0]
	assert.Equal(t, `[cache] refresh of "a" failed`, r.Body().AsString())
	assert.Equal(t, log.SeverityWarn, r.Severity())
	assert.Equal(t, 1, r.AttributesLen())
}

func TestTee(t *testing.T) {
	a := NewTestLogger()
	b := NewTestLogger()
	l := Tee(a, b).WithPrefix("[x]")

	l.Info("hello %s", "world")
	assert.True(t, a.Contains("INFO", "hello world"))
	assert.True(t, b.Contains("INFO", "hello world"))
	assert.True(t, l.IsLevelEnabled(LevelTrace))
	assert.False(t, Tee(Discard()).IsLevelEnabled(LevelError))
}
