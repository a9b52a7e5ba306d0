package logger

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConsoleLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	l := NewConsoleLoggerWithWriter(&buf, LevelWarn)

	l.Debug("hidden")
	l.Info("hidden")
	l.Warn("careful %s", "now")
	l.Error("broken")

	out := ansiColorStripper.ReplaceAllString(buf.String(), "")
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "[WARN ] careful now")
	assert.Contains(t, out, "[ERROR] broken")
	assert.Equal(t, 2, strings.Count(out, "\n"))
}

func TestConsoleLoggerPrefixAndMetadata(t *testing.T) {
	var buf bytes.Buffer
	base := NewConsoleLoggerWithWriter(&buf, LevelTrace)
	l := base.WithPrefix("[cache]").WithPrefix("[cache]").With(map[string]interface{}{"key": "a"})

	l.Info("hello")
	out := ansiColorStripper.ReplaceAllString(buf.String(), "")
	assert.Equal(t, 1, strings.Count(out, "[cache]"))
	assert.Contains(t, out, `{"key":"a"}`)

	// the parent is not affected by derived loggers
	buf.Reset()
	base.Info("plain")
	out = ansiColorStripper.ReplaceAllString(buf.String(), "")
	assert.NotContains(t, out, "[cache]")
	assert.NotContains(t, out, "key")
}

func TestDiscard(t *testing.T) {
	l := Discard()
	assert.False(t, l.IsLevelEnabled(LevelError))
	l.Error("nothing happens")
}
