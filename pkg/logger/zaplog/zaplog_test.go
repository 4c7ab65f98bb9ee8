package zaplog

import (
	"testing"

	"github.com/chmielvu/Forge-Text/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestFacadeFansOutToZap(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger.Init(NewWithCore(core))
	t.Cleanup(func() { logger.Init() })

	logger.Info("[Index] Rebuild finished", "turn", 12)
	logger.Warn("[Cache] Save failed", "err", "disk full")
	logger.Debug("[Mutation] Dropped record", "index", 3)

	entries := logs.All()
	require.Len(t, entries, 3)
	assert.Equal(t, "[Index] Rebuild finished", entries[0].Message)
	assert.Equal(t, int64(12), entries[0].ContextMap()["turn"])
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, "disk full", entries[1].ContextMap()["err"])
	assert.Equal(t, zapcore.DebugLevel, entries[2].Level)
}

func TestNewZapLoggerBuildsBothEncoders(t *testing.T) {
	for _, json := range []bool{true, false} {
		l, err := NewZapLogger(ZapLoggerParams{JSON: json})
		require.NoError(t, err)
		assert.NotNil(t, l)
	}
}
