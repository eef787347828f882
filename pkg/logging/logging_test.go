package logging

import (
	"flag"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitAppliesDebugFlag(t *testing.T) {
	require.NoError(t, flag.Set("logging.debug", "true"))
	t.Cleanup(func() {
		flag.Set("logging.debug", "false")
		programLevel.Set(slog.LevelInfo)
	})

	Init()

	assert.Equal(t, slog.LevelDebug, programLevel.Level())
}

func TestInitKeepsInfoByDefault(t *testing.T) {
	require.NoError(t, flag.Set("logging.debug", "false"))
	programLevel.Set(slog.LevelInfo)

	Init()

	assert.Equal(t, slog.LevelInfo, programLevel.Level())
}

func TestSetLevel(t *testing.T) {
	t.Cleanup(func() { programLevel.Set(slog.LevelInfo) })

	SetLevel(slog.LevelWarn)

	assert.Equal(t, slog.LevelWarn, programLevel.Level())
}
