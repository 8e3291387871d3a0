package main

import (
	"errors"
	"fmt"
	"os"

	"formwidget/internal/session"
	"formwidget/internal/source"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	answersPath    string
	submitFormPath string
)

// submitCmd answers a form without the UI
var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Submit answers from a YAML file without the UI",
	Long: `Loads the form, applies answers through the same controls the UI uses
and submits the response. Required questions must be answered.

Answers are keyed by question id. Text questions take a string, choice
questions take an option id or a list of option ids:

  name: Ada
  size: "1"
  colors: ["0", "2"]`,
	Args: cobra.NoArgs,
	RunE: runSubmit,
}

func runSubmit(cmd *cobra.Command, args []string) error {
	if !cfg.CanSubmit() {
		return fmt.Errorf("submit URL not configured (set endpoint.submit_url or FORMWIDGET_SUBMIT_URL)")
	}

	f, err := os.Open(answersPath)
	if err != nil {
		return fmt.Errorf("failed to open answers: %w", err)
	}
	answers, err := session.DecodeAnswers(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("%s: %w", answersPath, err)
	}

	client := newClient(cfg)
	var src source.Source = source.HTTP{Client: client}
	if submitFormPath != "" {
		src = source.File{Path: submitFormPath}
	} else if err := cfg.Validate(); err != nil {
		return err
	}

	sess, err := newSession(cfg, src, client)
	if err != nil {
		return err
	}

	ctx, cancel := commandContext(timeout)
	defer cancel()

	if err := sess.Load(ctx); err != nil {
		return err
	}
	if sess.State() == session.Closed {
		return session.ErrFormClosed
	}
	if err := sess.Apply(answers); err != nil {
		return err
	}

	if err := sess.Submit(ctx); err != nil {
		var missing *session.RequiredMissingError
		if errors.As(err, &missing) {
			return fmt.Errorf("required questions unanswered: %v", missing.QuestionIDs)
		}
		return err
	}

	logger.Info("Submitted", zap.String("form", sess.Form().ID), zap.String("session", sess.ID()))
	fmt.Fprintf(cmd.OutOrStdout(), "Submitted %s (%d answers)\n", sess.Form().Name, len(sess.Snapshot()))
	return nil
}
