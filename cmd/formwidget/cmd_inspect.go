package main

import (
	"context"
	"fmt"
	"io"

	"formwidget/internal/form"
	"formwidget/internal/transport"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var inspectParallel int

// inspectCmd summarizes one or more forms without opening the UI
var inspectCmd = &cobra.Command{
	Use:   "inspect [fetch-url...]",
	Short: "Fetch forms and print a summary",
	Long: `Fetches each form definition concurrently and prints its name, question
count and whether it still accepts responses. With no arguments the
configured fetch URL is used.`,
	RunE: runInspect,
}

type inspectResult struct {
	url  string
	form *form.Form
	err  error
}

func runInspect(cmd *cobra.Command, args []string) error {
	urls := args
	if len(urls) == 0 {
		if cfg.Endpoint.FetchURL == "" {
			return fmt.Errorf("no fetch URL given and none configured")
		}
		urls = []string{cfg.Endpoint.FetchURL}
	}

	ctx, cancel := commandContext(timeout)
	defer cancel()

	results := inspectForms(ctx, urls, cfg.Endpoint.APIKey, inspectParallel)

	failed := 0
	for _, r := range results {
		if r.err != nil {
			failed++
			logger.Warn("Inspect failed", zap.String("url", r.url), zap.Error(r.err))
		}
		printInspectResult(cmd.OutOrStdout(), r)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d forms failed to load", failed, len(results))
	}
	return nil
}

// inspectForms fetches every url, at most parallel at a time. Results keep the
// order of urls; one failure does not cancel the others.
func inspectForms(ctx context.Context, urls []string, key string, parallel int) []inspectResult {
	results := make([]inspectResult, len(urls))

	g, gctx := errgroup.WithContext(ctx)
	if parallel > 0 {
		g.SetLimit(parallel)
	}
	for i, u := range urls {
		g.Go(func() error {
			client := transport.NewClient(u, "", key, cfg.GetEndpointTimeout())
			f, err := client.FetchForm(gctx)
			results[i] = inspectResult{url: u, form: f, err: err}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func printInspectResult(w io.Writer, r inspectResult) {
	if r.err != nil {
		fmt.Fprintf(w, "%s\n  error: %v\n", r.url, r.err)
		return
	}

	f := r.form
	status := "accepting responses"
	if !f.StillAccepting {
		status = "closed"
	}
	fmt.Fprintf(w, "%s\n  %s (%s), %d questions, %s\n", r.url, f.Name, f.ID, len(f.Questions), status)

	required := 0
	counts := make(map[form.QuestionType]int)
	for _, q := range f.Questions {
		counts[q.Type]++
		if q.Required {
			required++
		}
	}
	for _, t := range form.AllTypes {
		if n := counts[t]; n > 0 {
			fmt.Fprintf(w, "    %-26s %d\n", t, n)
		}
	}
	if required > 0 {
		fmt.Fprintf(w, "    %-26s %d\n", "required", required)
	}
}
