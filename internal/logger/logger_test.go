package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestInit(t *testing.T) {
	t.Cleanup(func() { zap.ReplaceGlobals(zap.NewNop()) })

	require.NoError(t, Init("production", "warn"))
	assert.False(t, zap.L().Core().Enabled(zapcore.InfoLevel))
	assert.True(t, zap.L().Core().Enabled(zapcore.WarnLevel))

	require.NoError(t, Init("development", "debug"))
	assert.True(t, zap.L().Core().Enabled(zapcore.DebugLevel))
}

func TestInitRejectsUnknownLevel(t *testing.T) {
	assert.Error(t, Init("production", "loud"))
}
