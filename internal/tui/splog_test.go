package tui_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"prstack.dev/prstack/internal/tui"
)

func TestSplog(t *testing.T) {
	t.Run("console output is plain with level prefixes", func(t *testing.T) {
		var buf bytes.Buffer
		splog, err := tui.NewSplogWithOptions(tui.SplogOptions{Writer: &buf})
		require.NoError(t, err)

		splog.Info("pushed %d branches", 3)
		splog.Warn("stack is behind")
		splog.Error("push failed")
		splog.Tip("run prstack install-hook")
		splog.Debug("hidden")

		require.Equal(t, "pushed 3 branches\n⚠️  stack is behind\n❌ push failed\n💡 run prstack install-hook\n", buf.String())
	})

	t.Run("verbose enables debug", func(t *testing.T) {
		var buf bytes.Buffer
		splog, err := tui.NewSplogWithOptions(tui.SplogOptions{Writer: &buf, Verbose: true})
		require.NoError(t, err)

		splog.Debug("fetching %s", "origin")
		require.Equal(t, "fetching origin\n", buf.String())
	})

	t.Run("file log records everything with timestamps", func(t *testing.T) {
		var buf bytes.Buffer
		logPath := filepath.Join(t.TempDir(), "logs", "prstack.log")
		splog, err := tui.NewSplogWithOptions(tui.SplogOptions{Writer: &buf, LogFilePath: logPath})
		require.NoError(t, err)

		splog.Debug("debug detail")
		splog.Info("hello")
		require.NoError(t, splog.Close())

		content, err := os.ReadFile(logPath)
		require.NoError(t, err)
		require.Contains(t, string(content), "level=DEBUG msg=\"debug detail\"")
		require.Contains(t, string(content), "level=INFO msg=hello")
		require.Equal(t, "hello\n", buf.String())
	})
}

func TestGetLogFilePath(t *testing.T) {
	t.Setenv("PRSTACK_LOG_FILE", "/tmp/custom.log")
	require.Equal(t, "/tmp/custom.log", tui.GetLogFilePath())
}
