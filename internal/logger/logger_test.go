package logger_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"news_hub/internal/logger"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestConfigure_JSONFieldMap(t *testing.T) {
	t.Setenv("DEBUG", "")
	var buf bytes.Buffer
	require.NoError(t, logger.Configure(logger.Options{Level: "warn", Output: &buf}))

	logger.Log.Info("dropped")
	logger.Log.WithField("feed", "bbc").Warn("kept")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "kept", line["message"])
	require.Equal(t, "warning", line["level"])
	require.Equal(t, "bbc", line["feed"])
	require.Contains(t, line, "timestamp")
}

func TestConfigure_DebugEnvWins(t *testing.T) {
	t.Setenv("DEBUG", "true")
	require.NoError(t, logger.Configure(logger.Options{Level: "error", Output: &bytes.Buffer{}}))
	require.Equal(t, logrus.DebugLevel, logger.Log.GetLevel())
}

func TestConfigure_Errors(t *testing.T) {
	require.Error(t, logger.Configure(logger.Options{Format: "xml"}))
	require.Error(t, logger.Configure(logger.Options{Level: "loud"}))
}
