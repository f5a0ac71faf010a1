package logger

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoggerPrefixes(t *testing.T) {
	var buf bytes.Buffer
	l := NewLoggerTo(&buf)

	l.Info("engine started")
	l.Warnf("slot %q unreadable", "beer-clicker-save")
	l.Error("write failed")
	l.Event("BONUS_CLAIMED", "engine", "+200")

	out := buf.String()
	assert.Contains(t, out, "[BEER-INFO] ")
	assert.Contains(t, out, "engine started")
	assert.Contains(t, out, `[BEER-WARN] `)
	assert.Contains(t, out, `slot "beer-clicker-save" unreadable`)
	assert.Contains(t, out, "[BEER-ERROR] ")
	assert.Contains(t, out, "[EVENT:BONUS_CLAIMED] Source:engine | +200")
	assert.Contains(t, out, "logger_test.go")
}

func TestDiscard(t *testing.T) {
	l := Discard()
	l.Info("nothing")
	l.Errorf("nothing %d", 1)
}
