package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"formwidget/internal/config"
	"formwidget/internal/logging"
	"formwidget/internal/session"
	"formwidget/internal/source"
	"formwidget/internal/transport"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Global flags
	verbose    bool
	configPath string
	fetchURL   string
	submitURL  string
	apiKey     string
	timeout    time.Duration

	// Loaded in PersistentPreRunE
	cfg    *config.Config
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "formwidget",
	Short: "Fill in remote forms from the terminal",
	Long: `formwidget fetches a form definition, lets you answer it in a terminal UI
and submits the response.

Run without arguments to fill the form at the configured fetch URL.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.LoadDotEnv(".env"); err != nil {
			return err
		}

		path := configPath
		if path == "" {
			path = config.DefaultConfigPath()
		}
		var err error
		cfg, err = config.Load(path)
		if err != nil {
			return err
		}
		applyFlagOverrides(cfg)

		if err := logging.Initialize(logging.Options{
			DebugMode:  cfg.Logging.DebugMode,
			Level:      cfg.Logging.Level,
			Format:     cfg.Logging.Format,
			File:       cfg.Logging.File,
			Categories: cfg.Logging.Categories,
		}); err != nil {
			return err
		}
		if err := logging.InitAudit(cfg.Logging.AuditFile); err != nil {
			return err
		}
		logging.BootDebug("config %s: fetch=%q submit=%q", path, cfg.Endpoint.FetchURL, cfg.Endpoint.SubmitURL)

		// Interactive commands own the terminal; they log to the file only.
		if isInteractive(cmd) {
			logger = zap.NewNop()
			return nil
		}

		zc := zap.NewProductionConfig()
		if verbose {
			zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		logger, err = zc.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		if verbose {
			logging.SetLogger(logger)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		logging.Sync()
		logging.CloseAudit()
	},
	RunE: runFill,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: user config dir)")
	rootCmd.PersistentFlags().StringVar(&fetchURL, "fetch-url", "", "Form fetch endpoint (or set FORMWIDGET_FETCH_URL)")
	rootCmd.PersistentFlags().StringVar(&submitURL, "submit-url", "", "Response submit endpoint (or set FORMWIDGET_SUBMIT_URL)")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", "", "API key sent as aKey (or set FORMWIDGET_API_KEY)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 2*time.Minute, "Timeout for non-interactive commands")

	previewCmd.Flags().BoolVar(&previewWatch, "watch", false, "Reload when the file changes")
	previewCmd.Flags().BoolVar(&previewSubmit, "submit", false, "Allow submitting to the configured submit URL")

	submitCmd.Flags().StringVar(&answersPath, "answers", "", "YAML file of answers keyed by question id (required)")
	submitCmd.Flags().StringVar(&submitFormPath, "form", "", "Load the form definition from a file instead of the fetch URL")
	_ = submitCmd.MarkFlagRequired("answers")

	inspectCmd.Flags().IntVar(&inspectParallel, "parallel", 4, "Maximum concurrent fetches")

	importGoogleCmd.Flags().StringVar(&importFormat, "format", "json", "Output format: json or yaml")
	importGoogleCmd.Flags().StringVar(&importCredentials, "credentials", "", "Service account credentials file (default: google.credentials_file)")

	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite an existing config file")
	configCmd.AddCommand(configInitCmd)

	rootCmd.AddCommand(fillCmd)
	rootCmd.AddCommand(previewCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(submitCmd)
	rootCmd.AddCommand(importGoogleCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func applyFlagOverrides(c *config.Config) {
	if fetchURL != "" {
		c.Endpoint.FetchURL = fetchURL
	}
	if submitURL != "" {
		c.Endpoint.SubmitURL = submitURL
	}
	if apiKey != "" {
		c.Endpoint.APIKey = apiKey
	}
}

func isInteractive(cmd *cobra.Command) bool {
	switch cmd.Name() {
	case "formwidget", "fill", "preview":
		return true
	}
	return false
}

// commandContext returns a context cancelled on SIGINT/SIGTERM and, when d is
// positive, after d.
func commandContext(d time.Duration) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	if d <= 0 {
		return ctx, stop
	}
	tctx, cancel := context.WithTimeout(ctx, d)
	return tctx, func() {
		cancel()
		stop()
	}
}

func newClient(c *config.Config) *transport.Client {
	return transport.NewClient(c.Endpoint.FetchURL, c.Endpoint.SubmitURL, c.Endpoint.APIKey, c.GetEndpointTimeout())
}

// newSession builds a session over src. A nil submitter makes it read-only.
func newSession(c *config.Config, src source.Source, sub session.Submitter) (*session.Session, error) {
	codec, err := c.Codec()
	if err != nil {
		return nil, err
	}
	return session.New(src, session.Options{
		Codec:           codec,
		Submitter:       sub,
		PostSubmitDelay: c.GetPostSubmitDelay(),
	}), nil
}

// submitterFor returns the HTTP client when a submit URL is configured.
func submitterFor(c *config.Config, client *transport.Client) session.Submitter {
	if !c.CanSubmit() {
		return nil
	}
	return client
}
