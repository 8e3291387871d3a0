// Package session drives one form from load to submission.
//
// A Session owns the response aggregator and the question controls for a
// single form. Its state machine is:
//
//	Loading ──load ok──▶ Filling ──BeginSubmit──▶ Submitting ──ok──▶ Submitted
//	   │                    ▲                         │
//	   ├─load error─▶ LoadFailed                      └─error─▶ SubmitFailed
//	   └─not accepting─▶ Closed                                    │
//	                         ▲──────────── BeginSubmit (retry) ◀───┘
//
// Only one submission can be outstanding; a second BeginSubmit while
// Submitting, or any after Submitted, is refused.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"formwidget/internal/control"
	"formwidget/internal/form"
	"formwidget/internal/logging"
	"formwidget/internal/response"
	"formwidget/internal/selection"
	"formwidget/internal/source"
	"formwidget/internal/transport"

	"github.com/google/uuid"
)

// State is the lifecycle position of a session.
type State int

const (
	Loading State = iota
	LoadFailed
	Closed
	Filling
	Submitting
	SubmitFailed
	Submitted
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case LoadFailed:
		return "load-failed"
	case Closed:
		return "closed"
	case Filling:
		return "filling"
	case Submitting:
		return "submitting"
	case SubmitFailed:
		return "submit-failed"
	case Submitted:
		return "submitted"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

var (
	ErrNotLoaded        = errors.New("form is not loaded")
	ErrSubmitInFlight   = errors.New("a submission is already in flight")
	ErrAlreadySubmitted = errors.New("form already submitted")
	ErrReadOnly         = errors.New("session is read-only")
	ErrFormClosed       = errors.New("form is no longer accepting responses")
	ErrRequiredMissing  = errors.New("required questions are unanswered")
)

// RequiredMissingError lists the unanswered required questions. It matches
// ErrRequiredMissing with errors.Is.
type RequiredMissingError struct {
	QuestionIDs []string
}

func (e *RequiredMissingError) Error() string {
	return ErrRequiredMissing.Error() + ": " + strings.Join(e.QuestionIDs, ", ")
}

func (e *RequiredMissingError) Is(target error) bool { return target == ErrRequiredMissing }

// Submitter delivers a finished response. transport.Client implements it.
type Submitter interface {
	Submit(ctx context.Context, r form.FormResponse) error
}

// Options configures a session.
type Options struct {
	// Codec encodes choice selections; nil means the packed codec.
	Codec selection.Codec
	// Submitter is nil for read-only sessions (previews, imports).
	Submitter Submitter
	// PostSubmitDelay paces the switch to the thank-you screen.
	PostSubmitDelay time.Duration
}

// Session is one form being filled in.
type Session struct {
	mu sync.Mutex

	id    string
	src   source.Source
	opts  Options
	log   *logging.Logger
	audit *logging.AuditLogger

	state    State
	err      error
	def      *form.Form
	agg      *response.Aggregator
	controls []control.Control
	attempts int
	sentAt   time.Time
}

// New creates a session in the Loading state.
func New(src source.Source, opts Options) *Session {
	if opts.Codec == nil {
		opts.Codec = selection.PackedCodec{}
	}
	id := uuid.NewString()
	s := &Session{
		id:    id,
		src:   src,
		opts:  opts,
		log:   logging.WithSessionID(logging.CategorySession, id),
		audit: logging.AuditWithSession(id),
		state: Loading,
	}
	s.audit.SessionStart(src.String())
	return s
}

// ID is the session id, sent as X-Request-ID.
func (s *Session) ID() string { return s.id }

// Source describes where the form came from.
func (s *Session) Source() string { return s.src.String() }

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err is the load or last submission error.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Form is the loaded definition, nil before a successful load.
func (s *Session) Form() *form.Form {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.def
}

// Controls are the per-question controls in question order.
func (s *Session) Controls() []control.Control {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.controls
}

// Snapshot is a copy of the current answers.
func (s *Session) Snapshot() []form.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.agg == nil {
		return nil
	}
	return s.agg.Snapshot()
}

// ReadOnly reports whether the session can never submit.
func (s *Session) ReadOnly() bool { return s.opts.Submitter == nil }

// PostSubmitDelay is the configured pause before the thank-you screen.
func (s *Session) PostSubmitDelay() time.Duration { return s.opts.PostSubmitDelay }

// Attempts counts submissions started, including failed ones.
func (s *Session) Attempts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts
}

// Editable reports whether controls accept input.
func (s *Session) Editable() bool {
	st := s.State()
	return st == Filling || st == SubmitFailed
}

// Load fetches the form and builds the aggregator and controls. A failed load
// is final for this session.
func (s *Session) Load(ctx context.Context) error {
	s.mu.Lock()
	if s.state != Loading {
		s.mu.Unlock()
		return fmt.Errorf("load in state %s", s.state)
	}
	s.mu.Unlock()

	def, err := s.src.Load(transport.WithRequestID(ctx, s.id))
	if err == nil {
		err = def.Validate()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.state, s.err = LoadFailed, err
		s.log.Error("load from %s failed: %v", s.src, err)
		s.audit.FormLoaded("", s.src.String(), false, err)
		return err
	}

	s.def = def
	if !def.StillAccepting {
		s.state = Closed
		s.log.Info("form %s is closed", def.ID)
		s.audit.FormLoaded(def.ID, s.src.String(), false, nil)
		return nil
	}

	agg := response.New(def.Questions)
	controls, err := control.BuildAll(def.Questions, agg, s.opts.Codec)
	if err != nil {
		s.state, s.err = LoadFailed, err
		s.log.Error("form %s: %v", def.ID, err)
		s.audit.FormLoaded(def.ID, s.src.String(), true, err)
		return err
	}
	s.agg, s.controls = agg, controls
	s.state = Filling
	s.log.Info("loaded form %s (%d questions) from %s", def.ID, len(def.Questions), s.src)
	s.audit.FormLoaded(def.ID, s.src.String(), true, nil)
	return nil
}

// Missing returns the ids of required questions without an answer.
func (s *Session) Missing() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.missingLocked()
}

func (s *Session) missingLocked() []string {
	var ids []string
	for _, c := range s.controls {
		if c.Missing() {
			ids = append(ids, c.Question().ID)
		}
	}
	return ids
}

// BeginSubmit moves to Submitting and returns the response to send. The
// snapshot is taken here, synchronously, so edits made while the request is
// in flight cannot leak into it.
func (s *Session) BeginSubmit() (form.FormResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case Filling, SubmitFailed:
	case Submitting:
		return form.FormResponse{}, ErrSubmitInFlight
	case Submitted:
		return form.FormResponse{}, ErrAlreadySubmitted
	case Closed:
		return form.FormResponse{}, ErrFormClosed
	default:
		return form.FormResponse{}, ErrNotLoaded
	}
	if s.opts.Submitter == nil {
		return form.FormResponse{}, ErrReadOnly
	}
	if missing := s.missingLocked(); len(missing) > 0 {
		return form.FormResponse{}, &RequiredMissingError{QuestionIDs: missing}
	}

	s.state = Submitting
	s.err = nil
	s.attempts++
	s.log.Info("submitting form %s (attempt %d)", s.def.ID, s.attempts)
	r := s.agg.Response(s.def.ID)
	s.sentAt = time.Now()
	s.audit.SubmitAttempt(s.def.ID, s.attempts, len(r.QuestionResponses))
	return r, nil
}

// Send delivers r through the submitter. It does not change state; call
// FinishSubmit with its result.
func (s *Session) Send(ctx context.Context, r form.FormResponse) error {
	if s.opts.Submitter == nil {
		return ErrReadOnly
	}
	return s.opts.Submitter.Submit(transport.WithRequestID(ctx, s.id), r)
}

// FinishSubmit records the outcome of a submission started with BeginSubmit.
func (s *Session) FinishSubmit(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Submitting {
		s.log.Warn("FinishSubmit in state %s ignored", s.state)
		return
	}
	if err != nil {
		s.state, s.err = SubmitFailed, err
		s.log.Warn("submit failed: %v", err)
		s.audit.SubmitResult(s.def.ID, s.attempts, time.Since(s.sentAt), err)
		return
	}
	s.audit.SubmitResult(s.def.ID, s.attempts, time.Since(s.sentAt), nil)
	s.state = Submitted
	s.log.Info("form %s submitted", s.def.ID)
}

// Submit runs BeginSubmit, Send and FinishSubmit in one call.
func (s *Session) Submit(ctx context.Context) error {
	r, err := s.BeginSubmit()
	if err != nil {
		return err
	}
	err = s.Send(ctx, r)
	s.FinishSubmit(err)
	return err
}
