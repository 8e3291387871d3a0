package source

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"formwidget/internal/form"
	"formwidget/internal/transport"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const yamlForm = `id: local
name: Draft
stillAccepting: true
questions:
  - id: q1
    type: multi-choice
    prompt: Pick some
    options:
      - {id: "0", title: A}
      - {id: "1", title: B}
`

const jsonForm = `{"id":"local","name":"Draft","stillAccepting":true,"questions":[{"id":"q1","type":"long-answer","prompt":"Tell us"}]}`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestIsYAML(t *testing.T) {
	assert.True(t, IsYAML("form.yaml"))
	assert.True(t, IsYAML("FORM.YML"))
	assert.False(t, IsYAML("form.json"))
	assert.False(t, IsYAML("form"))
}

func TestFile_LoadYAMLAndJSON(t *testing.T) {
	dir := t.TempDir()

	f, err := File{Path: writeFile(t, dir, "form.yaml", yamlForm)}.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "local", f.ID)
	require.Len(t, f.Questions, 1)
	assert.Equal(t, form.TypeMultiChoice, f.Questions[0].Type)
	assert.Len(t, f.Questions[0].Options, 2)

	f, err = File{Path: writeFile(t, dir, "form.json", jsonForm)}.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, form.TypeLongAnswer, f.Questions[0].Type)
}

func TestFile_LoadErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := File{Path: filepath.Join(dir, "missing.json")}.Load(context.Background())
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = File{Path: writeFile(t, dir, "bad.json", "{")}.Load(context.Background())
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = File{Path: writeFile(t, dir, "ok.json", jsonForm)}.Load(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestHTTP_Load(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "k", r.Header.Get(transport.APIKeyHeader))
		_, _ = io.WriteString(w, jsonForm)
	}))
	defer srv.Close()

	client := transport.NewClient(srv.URL, "", "k", time.Second)
	client.HTTPClient = srv.Client()
	src := HTTP{Client: client}

	f, err := src.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "local", f.ID)
	assert.Equal(t, srv.URL, src.String())
}

func TestWatcher_NotifiesOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "form.yaml", yamlForm)
	writeFile(t, dir, "other.yaml", yamlForm)

	w, err := File{Path: path}.Watch(context.Background())
	require.NoError(t, err)
	defer w.Stop()

	// unrelated file in the same directory
	writeFile(t, dir, "other.yaml", jsonForm)
	select {
	case <-w.Changes():
		t.Fatal("unexpected change for another file")
	case <-time.After(400 * time.Millisecond):
	}

	// a burst of writes settles into one notification
	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(path, []byte(yamlForm), 0644))
	}
	select {
	case _, ok := <-w.Changes():
		require.True(t, ok)
	case <-time.After(3 * time.Second):
		t.Fatal("no change notification")
	}
	select {
	case <-w.Changes():
		t.Fatal("burst produced more than one notification")
	case <-time.After(400 * time.Millisecond):
	}
}

func TestWatcher_NotifiesOnRenameOver(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "form.json", jsonForm)

	w, err := File{Path: path}.Watch(context.Background())
	require.NoError(t, err)
	defer w.Stop()

	tmp := writeFile(t, dir, ".form.json.swp", jsonForm)
	require.NoError(t, os.Rename(tmp, path))

	select {
	case <-w.Changes():
	case <-time.After(3 * time.Second):
		t.Fatal("no change notification after rename")
	}
}

func TestWatcher_StopClosesChanges(t *testing.T) {
	path := writeFile(t, t.TempDir(), "form.json", jsonForm)
	w, err := NewWatcher(path)
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))

	w.Stop()
	w.Stop()

	_, ok := <-w.Changes()
	assert.False(t, ok)
}

func TestWatcher_ContextCancelStopsLoop(t *testing.T) {
	path := writeFile(t, t.TempDir(), "form.json", jsonForm)
	ctx, cancel := context.WithCancel(context.Background())
	w, err := File{Path: path}.Watch(ctx)
	require.NoError(t, err)

	cancel()
	select {
	case _, ok := <-w.Changes():
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not exit on cancel")
	}
	w.Stop()
}

func TestWatcher_StopWithoutStart(t *testing.T) {
	w, err := NewWatcher(filepath.Join(t.TempDir(), "form.json"))
	require.NoError(t, err)
	w.Stop()
	_, ok := <-w.Changes()
	assert.False(t, ok)
}
