package utils

import (
	"bytes"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
)

func TestNewLogger_KeyValues(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf, log.InfoLevel)

	l.Info("hand started", "game", "t1", "players", 3)
	l.Debug("hidden")

	out := buf.String()
	assert.Contains(t, out, "hand started")
	assert.Contains(t, out, "game=t1")
	assert.Contains(t, out, "players=3")
	assert.NotContains(t, out, "hidden")
}

func TestDiscard(t *testing.T) {
	l := Discard()
	l.Error("nothing")
	assert.Equal(t, log.FatalLevel, l.GetLevel())
}
