package logger_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/vaxportal/internal/pkg/logger"
)

func TestConfigure_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	logger.Configure(logger.Config{Level: logger.InfoLevel, Output: &buf})
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })

	logger.Debug().Msg("hidden")
	drives := logger.WithComponent("drives")
	drives.Info().Int64("driveID", 7).Msg("drive created")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "drive created", entry["message"])
	assert.Equal(t, "drives", entry["component"])
	assert.EqualValues(t, 7, entry["driveID"])
}

func TestConfigFromStrings(t *testing.T) {
	cfg := logger.ConfigFromStrings(" DEBUG ", "text")
	assert.Equal(t, logger.DebugLevel, cfg.Level)
	assert.True(t, cfg.Pretty)

	cfg = logger.ConfigFromStrings("warn", "json")
	assert.Equal(t, logger.WarnLevel, cfg.Level)
	assert.False(t, cfg.Pretty)
}
