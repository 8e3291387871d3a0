package session

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"formwidget/internal/control"
	"formwidget/internal/form"
	"formwidget/internal/logging"
	"formwidget/internal/selection"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleForm() *form.Form {
	return &form.Form{
		ID:             "f1",
		Name:           "Survey",
		StillAccepting: true,
		Questions: []form.Question{
			{ID: "color", Type: form.TypeMultiChoice, Prompt: "Colors", Options: []form.Option{
				{ID: "0", Title: "Red"}, {ID: "1", Title: "Green"}, {ID: "2", Title: "Blue"},
			}},
			{ID: "name", Type: form.TypeShortAnswer, Prompt: "Name", Required: true},
			{ID: "size", Type: form.TypeSingleChoice, Prompt: "Size", Required: true, Options: []form.Option{
				{ID: "0", Title: "S"}, {ID: "1", Title: "L"},
			}},
		},
	}
}

func staticSource(f *form.Form) *MockSource {
	return &MockSource{LoadFunc: func(context.Context) (*form.Form, error) { return f, nil }}
}

func loaded(t *testing.T, sub Submitter) *Session {
	t.Helper()
	s := New(staticSource(sampleForm()), Options{Submitter: sub})
	require.NoError(t, s.Load(context.Background()))
	require.Equal(t, Filling, s.State())
	return s
}

func fill(t *testing.T, s *Session) {
	t.Helper()
	cs := s.Controls()
	_, err := cs[0].(*control.Choice).Toggle("0")
	require.NoError(t, err)
	_, err = cs[0].(*control.Choice).Toggle("2")
	require.NoError(t, err)
	_, err = cs[1].(*control.Text).SetValue("Ada")
	require.NoError(t, err)
	_, err = cs[2].(*control.Choice).Toggle("1")
	require.NoError(t, err)
}

func TestLoad_BuildsControlsAndAggregator(t *testing.T) {
	src := staticSource(sampleForm())
	s := New(src, Options{})
	assert.Equal(t, Loading, s.State())
	assert.False(t, s.Editable())

	require.NoError(t, s.Load(context.Background()))
	assert.Equal(t, Filling, s.State())
	assert.True(t, s.Editable())
	assert.Len(t, s.Controls(), 3)
	assert.Equal(t, []form.Entry{
		{QuestionID: "color"}, {QuestionID: "name"}, {QuestionID: "size"},
	}, s.Snapshot())
	assert.Equal(t, []string{s.ID()}, src.requestIDs, "session id travels as request id")

	assert.Error(t, s.Load(context.Background()), "a session loads once")
}

func TestLoad_Failure(t *testing.T) {
	boom := errors.New("status 500")
	s := New(&MockSource{LoadFunc: func(context.Context) (*form.Form, error) { return nil, boom }}, Options{})

	err := s.Load(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, LoadFailed, s.State())
	assert.ErrorIs(t, s.Err(), boom)
	assert.Nil(t, s.Form())

	_, err = s.BeginSubmit()
	assert.ErrorIs(t, err, ErrNotLoaded)
}

func TestLoad_InvalidDefinition(t *testing.T) {
	f := sampleForm()
	f.Questions[1].ID = "color"
	s := New(staticSource(f), Options{})
	assert.ErrorIs(t, s.Load(context.Background()), form.ErrInvalidForm)
	assert.Equal(t, LoadFailed, s.State())
}

func TestLoad_TextQuestionOptionsIgnored(t *testing.T) {
	f := sampleForm()
	f.Questions[1].Options = []form.Option{{ID: "x", Title: "stray"}}
	s := New(staticSource(f), Options{})

	require.NoError(t, s.Load(context.Background()))
	assert.Equal(t, Filling, s.State())
	text, ok := s.Controls()[1].(*control.Text)
	require.True(t, ok)
	_, err := text.SetValue("Ada")
	require.NoError(t, err)
	assert.Contains(t, s.Snapshot(), form.Entry{QuestionID: "name", Value: "Ada"})
}

func TestLoad_CodecCannotRepresentOptions(t *testing.T) {
	f := sampleForm()
	f.Questions[0].Options[0].ID = "red"
	s := New(staticSource(f), Options{Codec: selection.PackedCodec{}})
	assert.ErrorIs(t, s.Load(context.Background()), selection.ErrInvalidOptionID)
	assert.Equal(t, LoadFailed, s.State())

	ok := New(staticSource(f), Options{Codec: selection.DelimitedCodec{}})
	require.NoError(t, ok.Load(context.Background()))
}

func TestLoad_ClosedForm(t *testing.T) {
	f := sampleForm()
	f.StillAccepting = false
	sub := &MockSubmitter{}
	s := New(staticSource(f), Options{Submitter: sub})

	require.NoError(t, s.Load(context.Background()))
	assert.Equal(t, Closed, s.State())
	assert.Equal(t, "f1", s.Form().ID)
	assert.Empty(t, s.Controls())

	_, err := s.BeginSubmit()
	assert.ErrorIs(t, err, ErrFormClosed)
	assert.Empty(t, sub.Calls())
}

func TestSubmit_RequiredMissing(t *testing.T) {
	sub := &MockSubmitter{}
	s := loaded(t, sub)

	err := s.Submit(context.Background())
	require.ErrorIs(t, err, ErrRequiredMissing)
	var missing *RequiredMissingError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, []string{"name", "size"}, missing.QuestionIDs)
	assert.True(t, strings.HasSuffix(err.Error(), "name, size"))
	assert.Equal(t, Filling, s.State())
	assert.Empty(t, sub.Calls())
	assert.Equal(t, 0, s.Attempts())
}

func TestSubmit_Success(t *testing.T) {
	sub := &MockSubmitter{}
	s := loaded(t, sub)
	fill(t, s)

	require.NoError(t, s.Submit(context.Background()))
	assert.Equal(t, Submitted, s.State())

	want := []form.FormResponse{{
		FormID: "f1",
		QuestionResponses: []form.Entry{
			{QuestionID: "color", Value: "02"},
			{QuestionID: "name", Value: "Ada"},
			{QuestionID: "size", Value: "1"},
		},
	}}
	if diff := cmp.Diff(want, sub.Calls()); diff != "" {
		t.Errorf("submitted mismatch (-want +got):\n%s", diff)
	}

	assert.ErrorIs(t, s.Submit(context.Background()), ErrAlreadySubmitted)
	assert.Len(t, sub.Calls(), 1)
}

func TestBeginSubmit_GuardsInFlight(t *testing.T) {
	s := loaded(t, &MockSubmitter{})
	fill(t, s)

	first, err := s.BeginSubmit()
	require.NoError(t, err)
	assert.Equal(t, Submitting, s.State())
	assert.False(t, s.Editable())

	_, err = s.BeginSubmit()
	assert.ErrorIs(t, err, ErrSubmitInFlight)

	// the snapshot taken at BeginSubmit is isolated from later edits
	_, err = s.Controls()[1].(*control.Text).SetValue("Grace")
	require.NoError(t, err)
	assert.Equal(t, "Ada", first.QuestionResponses[1].Value)

	s.FinishSubmit(nil)
	assert.Equal(t, Submitted, s.State())
}

func TestSubmit_FailureThenRetry(t *testing.T) {
	fail := true
	sub := &MockSubmitter{SubmitFunc: func(context.Context, form.FormResponse) error {
		if fail {
			return errors.New("502 bad gateway")
		}
		return nil
	}}
	s := loaded(t, sub)
	fill(t, s)

	err := s.Submit(context.Background())
	require.Error(t, err)
	assert.Equal(t, SubmitFailed, s.State())
	assert.EqualError(t, s.Err(), "502 bad gateway")
	assert.True(t, s.Editable(), "answers can be fixed before retrying")

	fail = false
	require.NoError(t, s.Submit(context.Background()))
	assert.Equal(t, Submitted, s.State())
	assert.NoError(t, s.Err())
	assert.Equal(t, 2, s.Attempts())
	assert.Len(t, sub.Calls(), 2)
}

func TestSubmit_ReadOnly(t *testing.T) {
	s := loaded(t, nil)
	fill(t, s)
	assert.True(t, s.ReadOnly())

	assert.ErrorIs(t, s.Submit(context.Background()), ErrReadOnly)
	assert.Equal(t, Filling, s.State())
	assert.ErrorIs(t, s.Send(context.Background(), form.FormResponse{}), ErrReadOnly)
}

func TestSend_CarriesRequestID(t *testing.T) {
	var got string
	sub := &MockSubmitter{SubmitFunc: func(ctx context.Context, _ form.FormResponse) error {
		got = requestIDFrom(ctx)
		return nil
	}}
	s := loaded(t, sub)
	fill(t, s)
	require.NoError(t, s.Submit(context.Background()))
	assert.Equal(t, s.ID(), got)
}

func TestFinishSubmit_IgnoredOutsideSubmitting(t *testing.T) {
	s := loaded(t, &MockSubmitter{})
	s.FinishSubmit(errors.New("late"))
	assert.Equal(t, Filling, s.State())
	assert.NoError(t, s.Err())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "submit-failed", SubmitFailed.String())
	assert.Equal(t, "State(42)", State(42).String())
}

func TestAuditTrail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	require.NoError(t, logging.InitAudit(path))
	t.Cleanup(logging.CloseAudit)

	fail := true
	sub := &MockSubmitter{SubmitFunc: func(context.Context, form.FormResponse) error {
		if fail {
			return errors.New("503")
		}
		return nil
	}}
	s := loaded(t, sub)
	fill(t, s)
	require.Error(t, s.Submit(context.Background()))
	fail = false
	require.NoError(t, s.Submit(context.Background()))
	logging.CloseAudit()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var events []string
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		var e struct {
			Event   string `json:"event"`
			Session string `json:"session"`
		}
		require.NoError(t, json.Unmarshal([]byte(line), &e))
		assert.Equal(t, s.ID(), e.Session)
		events = append(events, e.Event)
	}
	assert.Equal(t, []string{
		"session_start", "form_loaded",
		"submit_attempt", "submit_failed",
		"submit_attempt", "submit_ok",
	}, events)
}
