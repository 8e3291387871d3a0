// Package source resolves where a form definition comes from: the fetch
// endpoint, a local authoring file, or an imported Google Form.
package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"formwidget/internal/form"
	"formwidget/internal/logging"
	"formwidget/internal/transport"
)

// Source loads one form definition.
type Source interface {
	Load(ctx context.Context) (*form.Form, error)
	// String names the source for display and logs.
	String() string
}

// HTTP loads the form from the fetch endpoint.
type HTTP struct {
	Client *transport.Client
}

func (h HTTP) Load(ctx context.Context) (*form.Form, error) {
	return h.Client.FetchForm(ctx)
}

func (h HTTP) String() string { return h.Client.FetchURL }

// File loads a form definition from a JSON or YAML file. The format is chosen
// by extension (.yaml and .yml are YAML, anything else is JSON).
type File struct {
	Path string
}

func (f File) String() string { return f.Path }

// IsYAML reports whether path is read as YAML.
func IsYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

func (f File) Load(ctx context.Context) (*form.Form, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	file, err := os.Open(f.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open form file: %w", err)
	}
	defer file.Close()

	var def *form.Form
	if IsYAML(f.Path) {
		def, err = form.DecodeYAML(file)
	} else {
		def, err = form.DecodeJSON(file)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f.Path, err)
	}

	logging.SourceDebug("loaded %s (%d questions)", f.Path, len(def.Questions))
	return def, nil
}

// Watch starts a Watcher on the file. Stop it when done.
func (f File) Watch(ctx context.Context) (*Watcher, error) {
	w, err := NewWatcher(f.Path)
	if err != nil {
		return nil, err
	}
	if err := w.Start(ctx); err != nil {
		w.Stop()
		return nil, err
	}
	return w, nil
}
