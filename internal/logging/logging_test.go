package logging

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestLevel(t *testing.T) {

	lvl, err := Level("", false)
	require.NoError(t, err)
	assert.Equal(t, zapcore.InfoLevel, lvl)

	lvl, err = Level("warn", false)
	require.NoError(t, err)
	assert.Equal(t, zapcore.WarnLevel, lvl)

	lvl, err = Level("warn", true)
	require.NoError(t, err)
	assert.Equal(t, zapcore.DebugLevel, lvl)

	_, err = Level("loud", false)
	assert.Error(t, err)
}

func TestNew(t *testing.T) {

	var buf bytes.Buffer
	log, err := New(&buf, "info", false)
	require.NoError(t, err)

	log.Debug("hidden")
	log.Info("figure written", zap.String("path", "km.png"))
	require.NoError(t, log.Sync())

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "INFO")
	assert.Contains(t, out, "figure written")
	assert.Contains(t, out, `"path": "km.png"`)

	buf.Reset()
	log, err = New(&buf, "info", true)
	require.NoError(t, err)
	log.Debug("shown")
	assert.Contains(t, buf.String(), "shown")

	_, err = New(&buf, "loud", false)
	assert.Error(t, err)
}
