package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observe(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	SetLogger(zap.New(core))
	t.Cleanup(func() { _ = Initialize(Options{}) })
	return logs
}

func TestDisabledByDefault(t *testing.T) {
	require.NoError(t, Initialize(Options{}))
	assert.False(t, IsDebugMode())
	assert.False(t, IsCategoryEnabled(CategorySession))

	// must not panic on the no-op logger
	Get(CategorySession).Info("dropped %d", 1)
	Transport("dropped")
}

func TestCategoriesCarryField(t *testing.T) {
	logs := observe(t)

	Transport("fetched %s", "form-1")
	BootWarn("no submit URL, %s", "read-only")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "fetched form-1", entries[0].Message)
	assert.Equal(t, "transport", entries[0].ContextMap()["category"])
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, "boot", entries[1].ContextMap()["category"])
}

func TestCategoryToggle(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	SetLogger(zap.New(core))
	t.Cleanup(func() { _ = Initialize(Options{}) })

	mu.Lock()
	opts.Categories = map[string]bool{"ui": false}
	loggers = make(map[Category]*Logger)
	mu.Unlock()

	UIDebug("hidden")
	Source("shown")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "shown", logs.All()[0].Message)
	assert.False(t, IsCategoryEnabled(CategoryUI))
	assert.True(t, IsCategoryEnabled(CategorySource))
}

func TestWithSessionID(t *testing.T) {
	logs := observe(t)

	WithSessionID(CategorySession, "abc-123").Info("loaded")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "abc-123", logs.All()[0].ContextMap()["session_id"])
}

func TestTimer(t *testing.T) {
	logs := observe(t)

	StartTimer(CategoryTransport, "fetch").StopWithThreshold(time.Hour)
	StartTimer(CategoryTransport, "submit").StopWithThreshold(-time.Second)

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.True(t, strings.HasPrefix(entries[1].Message, "submit took"))
}

func TestInitializeWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "formwidget.log")
	require.NoError(t, Initialize(Options{DebugMode: true, Level: "debug", Format: "json", File: path}))
	t.Cleanup(func() { _ = Initialize(Options{}) })

	BootDebug("hello %s", "file")
	Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"hello file"`)
	assert.Contains(t, string(data), `"category":"session"`)
}

func TestInitializeRejectsBadLevel(t *testing.T) {
	err := Initialize(Options{DebugMode: true, Level: "loud"})
	assert.Error(t, err)
	require.NoError(t, Initialize(Options{}))
}
