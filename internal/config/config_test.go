package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"formwidget/internal/selection"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"FORMWIDGET_API_KEY", "FORMWIDGET_FETCH_URL", "FORMWIDGET_SUBMIT_URL",
		"FORMWIDGET_THEME", "GOOGLE_APPLICATION_CREDENTIALS",
	} {
		t.Setenv(k, "")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, selection.CodecPacked, cfg.Answers.Codec)
	assert.Equal(t, "auto", cfg.UI.Theme)
	assert.False(t, cfg.Logging.DebugMode)
	assert.Equal(t, 30*time.Second, cfg.GetEndpointTimeout())
	assert.Equal(t, 1500*time.Millisecond, cfg.GetPostSubmitDelay())
}

func TestConfig_SaveLoad(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Endpoint.FetchURL = "https://forms.example.com/form/1"
	cfg.Endpoint.APIKey = "k-1"
	cfg.Answers.Codec = selection.CodecDelimited
	require.NoError(t, cfg.Save(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("endpoint:\n  fetch_url: http://localhost:9000/f\nui:\n  theme: dark\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9000/f", cfg.Endpoint.FetchURL)
	assert.Equal(t, "dark", cfg.UI.Theme)
	assert.Equal(t, "30s", cfg.Endpoint.Timeout)
}

func TestLoad_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("endpoint: [unterminated"), 0644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	cfg := DefaultConfig()
	assert.Error(t, cfg.Validate(), "fetch URL is required")

	cfg.Endpoint.FetchURL = "https://forms.example.com/f"
	assert.NoError(t, cfg.Validate())

	cfg.Endpoint.SubmitURL = "not a url"
	assert.Error(t, cfg.Validate())
	cfg.Endpoint.SubmitURL = "https://forms.example.com/r"

	cfg.UI.Theme = "neon"
	assert.Error(t, cfg.Validate())
	cfg.UI.Theme = "light"

	cfg.Answers.Codec = "base64"
	assert.Error(t, cfg.Validate())
}

func TestConfig_Codec(t *testing.T) {
	cfg := DefaultConfig()
	codec, err := cfg.Codec()
	require.NoError(t, err)
	assert.Equal(t, selection.CodecPacked, codec.Name())

	cfg.Answers.Codec = selection.CodecDelimited
	cfg.Answers.Separator = "|"
	codec, err = cfg.Codec()
	require.NoError(t, err)
	assert.Equal(t, selection.DelimitedCodec{Sep: "|"}, codec)
}

func TestConfig_DurationFallbacks(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Endpoint.Timeout = "soon"
	cfg.UI.PostSubmitDelay = "-1s"
	assert.Equal(t, 30*time.Second, cfg.GetEndpointTimeout())
	assert.Equal(t, 1500*time.Millisecond, cfg.GetPostSubmitDelay())

	cfg.UI.PostSubmitDelay = "0s"
	assert.Equal(t, time.Duration(0), cfg.GetPostSubmitDelay())
}

func TestLoggingConfig_IsCategoryEnabled(t *testing.T) {
	lc := LoggingConfig{}
	assert.False(t, lc.IsCategoryEnabled("session"))

	lc.DebugMode = true
	assert.True(t, lc.IsCategoryEnabled("session"))

	lc.Categories = map[string]bool{"ui": false}
	assert.False(t, lc.IsCategoryEnabled("ui"))
	assert.True(t, lc.IsCategoryEnabled("transport"))
}
