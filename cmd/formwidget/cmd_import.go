package main

import (
	"context"
	"fmt"

	"formwidget/internal/form"
	"formwidget/internal/source"
	"formwidget/internal/source/googleforms"

	"github.com/spf13/cobra"
	"google.golang.org/api/option"
	"gopkg.in/yaml.v3"
)

var (
	importFormat      string
	importCredentials string

	// importOptions is appended to the Google client options; tests point it
	// at a local server.
	importOptions []option.ClientOption
)

// importGoogleCmd converts a Google Form into a form definition
var importGoogleCmd = &cobra.Command{
	Use:   "import-google [form-id]",
	Short: "Convert a Google Form into a form definition",
	Long: `Reads a Google Forms document with the Forms API and prints it as a form
definition that preview can show. Imported forms are read-only.

Example:
  formwidget import-google 1FAIpQLSf... --format yaml > survey.yaml
  formwidget preview survey.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runImportGoogle,
}

func runImportGoogle(cmd *cobra.Command, args []string) error {
	if importFormat != "json" && importFormat != "yaml" {
		return fmt.Errorf("invalid --format %q (json or yaml)", importFormat)
	}

	creds := importCredentials
	if creds == "" {
		creds = cfg.Google.CredentialsFile
	}

	ctx, cancel := commandContext(timeout)
	defer cancel()

	src, err := googleforms.New(ctx, args[0], creds, importOptions...)
	if err != nil {
		return err
	}
	f, err := loadValidated(ctx, src)
	if err != nil {
		return err
	}

	var out []byte
	if importFormat == "yaml" {
		out, err = yaml.Marshal(f)
	} else {
		out, err = form.MarshalIndent(f)
	}
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(out)
	return err
}

func loadValidated(ctx context.Context, src source.Source) (*form.Form, error) {
	f, err := src.Load(ctx)
	if err != nil {
		return nil, err
	}
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", src, err)
	}
	return f, nil
}
