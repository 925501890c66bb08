package logger

import (
	"errors"
	"syscall"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/Additional-Code/medequip/internal/config"
)

func TestBuild_Level(t *testing.T) {
	logger, err := Build(config.Observability{ServiceName: "medequip", LogLevel: "warn", LogEncoding: "json"})
	require.NoError(t, err)
	require.False(t, logger.Core().Enabled(zapcore.InfoLevel))
	require.True(t, logger.Core().Enabled(zapcore.WarnLevel))
}

func TestBuild_UnknownLevelFallsBackToInfo(t *testing.T) {
	logger, err := Build(config.Observability{LogLevel: "chatty", LogEncoding: "console"})
	require.NoError(t, err)
	require.True(t, logger.Core().Enabled(zapcore.InfoLevel))
	require.False(t, logger.Core().Enabled(zapcore.DebugLevel))
}

func TestIgnoreSyncError(t *testing.T) {
	require.NoError(t, ignoreSyncError(nil))
	require.NoError(t, ignoreSyncError(syscall.EINVAL))
	boom := errors.New("boom")
	require.ErrorIs(t, ignoreSyncError(boom), boom)
}
