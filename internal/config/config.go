package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"formwidget/internal/selection"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all formwidget configuration.
type Config struct {
	// Form endpoints
	Endpoint EndpointConfig `yaml:"endpoint"`

	// How choice answers are encoded on the wire
	Answers AnswersConfig `yaml:"answers"`

	// Terminal UI
	UI UIConfig `yaml:"ui"`

	// Google Forms import
	Google GoogleConfig `yaml:"google"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// EndpointConfig configures the fetch and submit endpoints.
type EndpointConfig struct {
	FetchURL  string `yaml:"fetch_url"`
	SubmitURL string `yaml:"submit_url"`
	APIKey    string `yaml:"api_key"` // sent as the aKey header
	Timeout   string `yaml:"timeout"`
}

// AnswersConfig selects the selection codec.
type AnswersConfig struct {
	Codec     string `yaml:"codec"`     // packed, delimited
	Separator string `yaml:"separator"` // delimited only
}

// UIConfig configures the terminal UI.
type UIConfig struct {
	Theme           string `yaml:"theme"` // auto, light, dark
	PostSubmitDelay string `yaml:"post_submit_delay"`
	Markdown        bool   `yaml:"markdown"` // render descriptions with glamour
}

// GoogleConfig configures read-only Google Forms import.
type GoogleConfig struct {
	CredentialsFile string `yaml:"credentials_file"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Endpoint: EndpointConfig{
			Timeout: "30s",
		},
		Answers: AnswersConfig{
			Codec:     selection.CodecPacked,
			Separator: selection.DefaultSeparator,
		},
		UI: UIConfig{
			Theme:           "auto",
			PostSubmitDelay: "1500ms",
			Markdown:        true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
			File:   "formwidget.log",
		},
	}
}

// DefaultConfigPath returns ~/.config/formwidget/config.yaml, falling back to
// the working directory.
func DefaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "formwidget.yaml"
	}
	return filepath.Join(dir, "formwidget", "config.yaml")
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Defaults if config file doesn't exist
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Override with environment variables
	cfg.applyEnvOverrides()

	return cfg, nil
}

// LoadDotEnv loads KEY=value files into the process environment. Missing
// files are skipped; variables already set are not overwritten.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// The file may hold the API key.
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("FORMWIDGET_API_KEY"); key != "" {
		c.Endpoint.APIKey = key
	}
	if u := os.Getenv("FORMWIDGET_FETCH_URL"); u != "" {
		c.Endpoint.FetchURL = u
	}
	if u := os.Getenv("FORMWIDGET_SUBMIT_URL"); u != "" {
		c.Endpoint.SubmitURL = u
	}
	if theme := os.Getenv("FORMWIDGET_THEME"); theme != "" {
		c.UI.Theme = theme
	}
	if creds := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); creds != "" && c.Google.CredentialsFile == "" {
		c.Google.CredentialsFile = creds
	}
}

// GetEndpointTimeout returns the HTTP timeout as a duration.
func (c *Config) GetEndpointTimeout() time.Duration {
	d, err := time.ParseDuration(c.Endpoint.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// GetPostSubmitDelay returns the pause before the thank-you screen.
func (c *Config) GetPostSubmitDelay() time.Duration {
	d, err := time.ParseDuration(c.UI.PostSubmitDelay)
	if err != nil || d < 0 {
		return 1500 * time.Millisecond
	}
	return d
}

// Codec returns the configured selection codec.
func (c *Config) Codec() (selection.Codec, error) {
	codec, err := selection.CodecByName(c.Answers.Codec)
	if err != nil {
		return nil, err
	}
	if d, ok := codec.(selection.DelimitedCodec); ok && c.Answers.Separator != "" {
		d.Sep = c.Answers.Separator
		return d, nil
	}
	return codec, nil
}

// ValidThemes lists the accepted ui.theme values.
var ValidThemes = []string{"auto", "light", "dark"}

// Validate validates the configuration for a fill session.
func (c *Config) Validate() error {
	if c.Endpoint.FetchURL == "" {
		return fmt.Errorf("fetch URL not configured (set endpoint.fetch_url or FORMWIDGET_FETCH_URL)")
	}
	for name, raw := range map[string]string{"fetch_url": c.Endpoint.FetchURL, "submit_url": c.Endpoint.SubmitURL} {
		if raw == "" {
			continue
		}
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("invalid endpoint.%s: %q", name, raw)
		}
	}

	if _, err := c.Codec(); err != nil {
		return fmt.Errorf("invalid answers.codec: %w", err)
	}

	validTheme := false
	for _, t := range ValidThemes {
		if c.UI.Theme == t {
			validTheme = true
			break
		}
	}
	if !validTheme {
		return fmt.Errorf("invalid ui.theme: %s (valid: %v)", c.UI.Theme, ValidThemes)
	}

	return nil
}

// CanSubmit returns whether a submit endpoint is configured.
func (c *Config) CanSubmit() bool {
	return c.Endpoint.SubmitURL != ""
}
