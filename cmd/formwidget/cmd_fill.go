package main

import (
	"context"
	"fmt"

	"formwidget/cmd/formwidget/ui"
	"formwidget/internal/logging"
	"formwidget/internal/session"
	"formwidget/internal/source"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

var (
	previewWatch  bool
	previewSubmit bool
)

// fillCmd fills the form served by the fetch endpoint
var fillCmd = &cobra.Command{
	Use:   "fill",
	Short: "Fill in the form at the configured fetch URL (default)",
	Long: `Fetches the form definition, shows it in a terminal UI and submits the
response to the submit URL. Without a submit URL the form is shown read-only.`,
	Args: cobra.NoArgs,
	RunE: runFill,
}

// previewCmd shows a local form definition
var previewCmd = &cobra.Command{
	Use:   "preview [file]",
	Short: "Preview a JSON or YAML form definition",
	Long: `Renders a form definition from a local file. Submission is disabled
unless --submit is given. With --watch the form reloads whenever the file is
saved; answers entered so far are discarded on reload.

Example:
  formwidget preview survey.yaml --watch`,
	Args: cobra.ExactArgs(1),
	RunE: runPreview,
}

func runFill(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	client := newClient(cfg)
	sess, err := newSession(cfg, source.HTTP{Client: client}, submitterFor(cfg, client))
	if err != nil {
		return err
	}
	logging.Boot("fill session %s for %s", sess.ID(), cfg.Endpoint.FetchURL)
	if sess.ReadOnly() {
		logging.BootWarn("no submit URL configured, session %s is read-only", sess.ID())
	}
	return runTUI(cmd.Context(), sess, nil, nil)
}

func runPreview(cmd *cobra.Command, args []string) error {
	file := source.File{Path: args[0]}

	var sub session.Submitter
	if previewSubmit {
		if !cfg.CanSubmit() {
			return fmt.Errorf("--submit needs a submit URL (set endpoint.submit_url or FORMWIDGET_SUBMIT_URL)")
		}
		sub = newClient(cfg)
	}
	build := func() (*session.Session, error) {
		return newSession(cfg, file, sub)
	}

	sess, err := build()
	if err != nil {
		return err
	}
	logging.Boot("preview session %s for %s", sess.ID(), file)

	ctx, cancel := context.WithCancel(contextOrBackground(cmd.Context()))
	defer cancel()

	var w *source.Watcher
	if previewWatch {
		w, err = file.Watch(ctx)
		if err != nil {
			return err
		}
		defer w.Stop()
	}
	return runTUI(ctx, sess, w, build)
}

// runTUI runs the form UI until the user quits. Each change reported by w
// replaces the session with a fresh one from rebuild.
func runTUI(ctx context.Context, sess *session.Session, w *source.Watcher, rebuild func() (*session.Session, error)) error {
	ctx = contextOrBackground(ctx)
	model := ui.New(ctx, sess, ui.Options{
		Styles:   ui.NewStyles(ui.ThemeByName(cfg.UI.Theme)),
		Markdown: cfg.UI.Markdown,
	})

	p := tea.NewProgram(
		model,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(ctx),
	)

	if w != nil && rebuild != nil {
		go func() {
			for range w.Changes() {
				next, err := rebuild()
				if err != nil {
					logging.SourceWarn("reload failed: %v", err)
					continue
				}
				logging.Source("reloading preview as session %s", next.ID())
				p.Send(ui.ReloadMsg{Session: next})
			}
		}()
	}

	final, err := p.Run()
	if err != nil {
		return err
	}
	if m, ok := final.(ui.Model); ok {
		s := m.Session()
		logging.Boot("session %s ended in state %s", s.ID(), s.State())
	}
	return nil
}

func contextOrBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
