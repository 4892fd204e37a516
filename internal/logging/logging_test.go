package logging

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	clog "github.com/charmbracelet/log"
	"github.com/cristianoliveira/mailnotify/internal/config"
	"github.com/stretchr/testify/require"
)

func setupTest(t *testing.T) string {
	t.Helper()
	tmp := t.TempDir()
	t.Setenv("XDG_STATE_HOME", filepath.Join(tmp, "state"))
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmp, "config"))
	t.Setenv("HOME", tmp)
	config.Load()
	return tmp
}

func enableLogging(t *testing.T) {
	t.Helper()
	t.Setenv("MAILNOTIFY_LOGGING_ENABLED", "true")
	config.Load()
}

func readLastLine(t *testing.T) string {
	t.Helper()
	logDir := filepath.Join(config.Get("state_dir", ""), "logs")
	entries, err := os.ReadDir(logDir)
	require.NoError(t, err)
	require.NotEmpty(t, entries)
	data, err := os.ReadFile(filepath.Join(logDir, entries[0].Name()))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	return lines[len(lines)-1]
}

func TestConfigFromGlobal(t *testing.T) {
	setupTest(t)
	t.Setenv("MAILNOTIFY_LOGGING_ENABLED", "true")
	t.Setenv("MAILNOTIFY_LOGGING_LEVEL", "warn")
	t.Setenv("MAILNOTIFY_LOGGING_MAX_FILES", "5")
	config.Load()

	cfg := FromGlobalConfig()
	require.True(t, cfg.Enabled)
	require.Equal(t, "warn", cfg.Level)
	require.Equal(t, 5, cfg.MaxFiles)
	require.Equal(t, filepath.Base(os.Args[0]), cfg.Command)
	require.Equal(t, os.Getpid(), cfg.PID)
}

func TestDebugForcesDebugLevel(t *testing.T) {
	setupTest(t)
	t.Setenv("MAILNOTIFY_DEBUG", "true")
	t.Setenv("MAILNOTIFY_LOGGING_LEVEL", "error")
	config.Load()

	require.Equal(t, "debug", FromGlobalConfig().Level)
}

func TestLogDir(t *testing.T) {
	tmp := setupTest(t)

	stateDir := config.Get("state_dir", "")
	require.True(t, strings.HasPrefix(stateDir, tmp), "state_dir %s not in temp dir %s", stateDir, tmp)

	logDir, err := LogDir()
	require.NoError(t, err)
	require.Equal(t, filepath.Join(stateDir, "logs"), logDir)
	info, err := os.Stat(logDir)
	require.NoError(t, err)
	require.True(t, info.IsDir())
	require.Equal(t, os.FileMode(0700), info.Mode().Perm())
}

func TestLogDirFallback(t *testing.T) {
	tmp := setupTest(t)
	blocker := filepath.Join(tmp, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0600))
	t.Setenv("MAILNOTIFY_STATE_DIR", filepath.Join(blocker, "state"))
	config.Load()

	logDir, err := LogDir()
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(logDir, os.TempDir()))
	require.True(t, strings.HasSuffix(logDir, filepath.Join("mailnotify", "logs")))
}

func TestInitDisabled(t *testing.T) {
	logger, err := Init(Config{Enabled: false})
	require.NoError(t, err)
	require.IsType(t, noopLogger{}, logger)
	logger.Debug("test")
	logger.Info("test")
	logger.With("a", 1).Warn("test")
	logger.Error("test")
	require.NoError(t, logger.Shutdown())
}

func TestInitEnabledCreatesFile(t *testing.T) {
	setupTest(t)
	enableLogging(t)

	cfg := FromGlobalConfig()
	cfg.Command = "run"
	logger, err := Init(cfg)
	require.NoError(t, err)
	defer logger.Shutdown()

	logDir := filepath.Join(config.Get("state_dir", ""), "logs")
	entries, err := os.ReadDir(logDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	fname := entries[0].Name()
	require.True(t, strings.HasPrefix(fname, "mailnotify_"))
	require.Contains(t, fname, fmt.Sprintf("_PID%d_", os.Getpid()))
	require.True(t, strings.HasSuffix(fname, "_run.log"))
	info, err := os.Stat(filepath.Join(logDir, fname))
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestLoggingWritesJSON(t *testing.T) {
	setupTest(t)
	enableLogging(t)

	logger, err := Init(FromGlobalConfig())
	require.NoError(t, err)
	logger.Info("delivery sent", "event", "new", "messages", 2)
	require.NoError(t, logger.Shutdown())

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(readLastLine(t)), &entry))
	require.Equal(t, "info", entry["level"])
	require.Equal(t, "delivery sent", entry["msg"])
	require.Equal(t, float64(os.Getpid()), entry["pid"])
	require.IsType(t, "", entry["command"])
	require.Equal(t, "new", entry["event"])
	require.Equal(t, float64(2), entry["messages"])
}

func TestLevelFiltersEntries(t *testing.T) {
	setupTest(t)
	enableLogging(t)

	cfg := FromGlobalConfig()
	cfg.Level = "warn"
	logger, err := Init(cfg)
	require.NoError(t, err)
	logger.Warn("kept")
	logger.Info("dropped")
	require.NoError(t, logger.Shutdown())

	require.Contains(t, readLastLine(t), `"msg":"kept"`)
}

func TestRedaction(t *testing.T) {
	setupTest(t)
	enableLogging(t)

	logger, err := Init(FromGlobalConfig())
	require.NoError(t, err)
	logger.Info("login", "password", "supersecret", "auth_token", "xyz", "account", "work")
	require.NoError(t, logger.Shutdown())

	line := readLastLine(t)
	require.Contains(t, line, `"password":"[REDACTED]"`)
	require.Contains(t, line, `"auth_token":"[REDACTED]"`)
	require.Contains(t, line, `"account":"work"`)
	require.NotContains(t, line, "supersecret")
}

func TestRedactionEdgeCases(t *testing.T) {
	r := newRedactor()

	require.Equal(t, []any{"PASSWORD", redacted}, r.redact([]any{"PASSWORD", "secret"}))
	require.Equal(t, []any{"password_env", redacted}, r.redact([]any{"password_env", "IMAP_PASS"}))
	require.Equal(t, []any{"api-token", redacted}, r.redact([]any{"api-token", "xyz"}))
	require.Equal(t, []any{"imap.passwd", redacted}, r.redact([]any{"imap.passwd", "xyz"}))

	require.Equal(t, []any{"apitoken", "xyz"}, r.redact([]any{"apitoken", "xyz"}))
	require.Equal(t, []any{"secretary", "value"}, r.redact([]any{"secretary", "value"}))
	require.Equal(t, []any{"key", "scriptType"}, r.redact([]any{"key", "scriptType"}))

	input := []any{"password", "hidden", "folder", "INBOX", "age", 30}
	require.Equal(t, []any{"password", redacted, "folder", "INBOX", "age", 30}, r.redact(input))
	require.Equal(t, "hidden", input[1])

	require.Equal(t, []any{"token", redacted, "extra"}, r.redact([]any{"token", "hidden", "extra"}))
	require.Empty(t, r.redact([]any{}))
}

func createLogFiles(t *testing.T, dir string, n int) []string {
	t.Helper()
	paths := make([]string, n)
	for i := 0; i < n; i++ {
		path := filepath.Join(dir, fmt.Sprintf("mailnotify_20260101_12000%d_PID999_run.log", i))
		require.NoError(t, os.WriteFile(path, nil, 0600))
		mtime := time.Now().Add(-time.Duration(n-i) * time.Hour)
		require.NoError(t, os.Chtimes(path, mtime, mtime))
		paths[i] = path
	}
	return paths
}

func TestRotationRemovesOldest(t *testing.T) {
	setupTest(t)
	enableLogging(t)

	logDir, err := LogDir()
	require.NoError(t, err)
	paths := createLogFiles(t, logDir, 3)
	require.NoError(t, os.WriteFile(filepath.Join(logDir, "unrelated.log"), nil, 0600))

	cfg := FromGlobalConfig()
	cfg.MaxFiles = 2
	logger, err := Init(cfg)
	require.NoError(t, err)
	require.NoError(t, logger.Shutdown())

	require.NoFileExists(t, paths[0])
	require.NoFileExists(t, paths[1])
	require.FileExists(t, paths[2])
	require.FileExists(t, filepath.Join(logDir, "unrelated.log"))

	entries, err := os.ReadDir(logDir)
	require.NoError(t, err)
	require.Len(t, entries, 3)
}

func TestRotationUnderLimitKeepsFiles(t *testing.T) {
	setupTest(t)
	t.Setenv("MAILNOTIFY_LOGGING_MAX_FILES", "0")
	enableLogging(t)

	cfg := FromGlobalConfig()
	require.Equal(t, 10, cfg.MaxFiles)

	logDir, err := LogDir()
	require.NoError(t, err)
	createLogFiles(t, logDir, 5)

	logger, err := Init(cfg)
	require.NoError(t, err)
	require.NoError(t, logger.Shutdown())

	entries, err := os.ReadDir(logDir)
	require.NoError(t, err)
	require.Len(t, entries, 6)
}

func TestGlobalLogger(t *testing.T) {
	setupTest(t)
	enableLogging(t)

	require.NoError(t, InitGlobal("history"))
	defer ShutdownGlobal()

	require.True(t, strings.HasSuffix(CurrentLogFile(), "_history.log"))
	With("component", "router").Info("global info")
	require.Contains(t, readLastLine(t), `"component":"router"`)

	require.NoError(t, ShutdownGlobal())
	require.Empty(t, CurrentLogFile())
	require.IsType(t, noopLogger{}, GetGlobal())
}

func TestWith(t *testing.T) {
	setupTest(t)
	enableLogging(t)

	logger, err := Init(FromGlobalConfig())
	require.NoError(t, err)
	child := logger.With("account", "work")
	child.With("folder", "INBOX").Info("with context")
	logger.Info("parent")
	require.NoError(t, logger.Shutdown())

	data, err := os.ReadFile(filepath.Join(config.Get("state_dir", ""), "logs", filepath.Base(logger.(*fileLogger).path)))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	require.Contains(t, lines[0], `"account":"work"`)
	require.Contains(t, lines[0], `"folder":"INBOX"`)
	require.NotContains(t, lines[1], `"account"`)
}

func TestLevelParsing(t *testing.T) {
	require.Equal(t, clog.DebugLevel, parseLevel("debug"))
	require.Equal(t, clog.InfoLevel, parseLevel("info"))
	require.Equal(t, clog.WarnLevel, parseLevel("warn"))
	require.Equal(t, clog.WarnLevel, parseLevel("warning"))
	require.Equal(t, clog.ErrorLevel, parseLevel("error"))
	require.Equal(t, clog.InfoLevel, parseLevel("unknown"))
}
