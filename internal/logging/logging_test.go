package logging_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"mtrack/internal/logging"
)

func TestNew_DebugWritesToWriter(t *testing.T) {
	var buf bytes.Buffer
	log := logging.New(true, &buf)
	log.Debug("fetching", zap.String("path", "/categories"))

	assert.Contains(t, buf.String(), "fetching")
	assert.Contains(t, buf.String(), "/categories")
}

func TestNew_QuietWhenNotDebug(t *testing.T) {
	var buf bytes.Buffer
	log := logging.New(false, &buf)
	log.Debug("hidden")
	log.Info("hidden")

	assert.Empty(t, buf.String())
}

func TestNew_WarningsWithoutDebug(t *testing.T) {
	var buf bytes.Buffer
	log := logging.New(false, &buf)
	log.Warn("request failed", zap.String("path", "/categories"))

	assert.Contains(t, buf.String(), "WARN")
	assert.Contains(t, buf.String(), "request failed")
	assert.Contains(t, buf.String(), "/categories")
}
