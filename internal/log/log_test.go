package log

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestHelpersUseConfiguredLogger(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	SetLogger(zap.New(core))

	Infow("forecast refreshed", "zone", "arid", "viable_hours", 3)
	Warnf("provider slow: %dms", 1200)
	Debugw("window", "start", 5)

	entries := logs.All()
	if assert.Len(t, entries, 3) {
		assert.Equal(t, "forecast refreshed", entries[0].Message)
		assert.Equal(t, "arid", entries[0].ContextMap()["zone"])
		assert.Equal(t, int64(3), entries[0].ContextMap()["viable_hours"])
		assert.Equal(t, "provider slow: 1200ms", entries[1].Message)
		assert.Equal(t, zap.DebugLevel, entries[2].Level)
	}
}

func TestInit(t *testing.T) {
	assert.NoError(t, Init(true))
	assert.NotNil(t, GetZapLogger())
	assert.NotNil(t, GetSugaredLogger())
	Sync()
}
