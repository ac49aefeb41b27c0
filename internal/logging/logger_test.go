package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/StephanOrgiazzi/convertav1/internal/config"
	"github.com/StephanOrgiazzi/convertav1/internal/term"
)

func TestNewLogger_NoFile(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.ColorMode = config.ColorNever
	l, err := NewLogger(&cfg)
	require.NoError(t, err)
	defer l.Close()
	l.Info("test message")
}

func TestNewLogger_WithFile(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.ColorMode = config.ColorNever
	cfg.LogFile = filepath.Join(t.TempDir(), "logs", "convertav1.log")
	l, err := NewLogger(&cfg)
	require.NoError(t, err)

	l.Info("to file")
	require.NoError(t, l.Close())

	b, err := os.ReadFile(cfg.LogFile)
	require.NoError(t, err)
	var rec map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(b), &rec))
	assert.Equal(t, "info", rec["level"])
	assert.Equal(t, "to file", rec["message"])
}

func TestLevels_RouteToStreams(t *testing.T) {
	term.Configure(config.ColorNever)
	var out, errOut, sink bytes.Buffer
	l := New(&out, &errOut, &sink)

	l.Info("starting %s", "clip.mp4")
	l.Success("done")
	l.Warn("careful")
	l.Error("broken")
	l.Debug(false, "hidden")
	l.Debug(true, "shown")

	stdout := out.String()
	assert.Contains(t, stdout, "[INFO] starting clip.mp4")
	assert.Contains(t, stdout, "[SUCCESS] done")
	assert.Contains(t, stdout, "[WARN] careful")
	assert.Contains(t, stdout, "[DEBUG] shown")
	assert.NotContains(t, stdout, "hidden")
	assert.NotContains(t, stdout, "broken")
	assert.Contains(t, errOut.String(), "[ERROR] broken")

	lines := strings.Split(strings.TrimSpace(sink.String()), "\n")
	require.Len(t, lines, 5)
	var last map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &last))
	assert.Equal(t, "success", last["level"])
}
