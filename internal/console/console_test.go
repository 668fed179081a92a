package console

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLog(t *testing.T) {
	t.Run("debug is gated by the debug level", func(t *testing.T) {
		// Arrange
		var buf bytes.Buffer
		log := New(&buf, true)

		// Act
		log.Debug("hidden %d", 1)
		log.DebugLevel = 1
		log.Debug("shown %d\n", 2)

		// Assert
		assert.NotContains(t, buf.String(), "hidden")
		assert.Contains(t, buf.String(), "shown 2")
		assert.Contains(t, buf.String(), "DBG")
	})

	t.Run("context attributes are attached", func(t *testing.T) {
		var buf bytes.Buffer
		log := New(&buf, true)
		ctx := Append(context.Background(), slog.String("document", "api.yaml"))

		log.InfoContext(ctx, "loaded")

		assert.Contains(t, buf.String(), "loaded")
		assert.Contains(t, buf.String(), "document=api.yaml")
	})

	t.Run("quiet drops info", func(t *testing.T) {
		var buf bytes.Buffer
		log := New(&buf, true)
		log.SetQuiet(true)

		log.Info("chatter")
		log.Warn("careful")

		assert.NotContains(t, buf.String(), "chatter")
		assert.Contains(t, buf.String(), "careful")
	})

	t.Run("printf is a debug adapter", func(t *testing.T) {
		var buf bytes.Buffer
		log := New(&buf, true)
		log.DebugLevel = 1

		log.Printf("step %s", "one")

		assert.Contains(t, buf.String(), "step one")
	})
}
