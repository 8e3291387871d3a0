package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// AuditEventType names one entry in the submission audit trail.
type AuditEventType string

const (
	AuditSessionStart  AuditEventType = "session_start"
	AuditFormLoaded    AuditEventType = "form_loaded"
	AuditLoadFailed    AuditEventType = "load_failed"
	AuditFormClosed    AuditEventType = "form_closed"
	AuditSubmitAttempt AuditEventType = "submit_attempt"
	AuditSubmitOK      AuditEventType = "submit_ok"
	AuditSubmitFailed  AuditEventType = "submit_failed"
)

// AuditEvent is one JSON line in the audit file.
type AuditEvent struct {
	EventType  AuditEventType
	SessionID  string
	FormID     string
	Source     string
	Attempt    int
	Answers    int
	Success    bool
	DurationMs int64
	Error      string
	Message    string
}

func (e AuditEvent) fields() []zap.Field {
	fs := []zap.Field{
		zap.String("event", string(e.EventType)),
		zap.String("session", e.SessionID),
		zap.Bool("success", e.Success),
	}
	if e.FormID != "" {
		fs = append(fs, zap.String("form", e.FormID))
	}
	if e.Source != "" {
		fs = append(fs, zap.String("source", e.Source))
	}
	if e.Attempt > 0 {
		fs = append(fs, zap.Int("attempt", e.Attempt))
	}
	if e.Answers > 0 {
		fs = append(fs, zap.Int("answers", e.Answers))
	}
	if e.DurationMs > 0 {
		fs = append(fs, zap.Int64("dur_ms", e.DurationMs))
	}
	if e.Error != "" {
		fs = append(fs, zap.String("error", e.Error))
	}
	return fs
}

var (
	auditMu   sync.Mutex
	auditFile *os.File
	auditZap  = zap.NewNop()
)

// AuditLogger writes audit events for one session.
type AuditLogger struct {
	sessionID string
}

// InitAudit opens path for appending and starts recording audit events.
// Unlike category logging it does not depend on debug mode. An empty path
// disables the audit trail.
func InitAudit(path string) error {
	auditMu.Lock()
	defer auditMu.Unlock()

	closeAuditLocked()
	if path == "" {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create audit directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return fmt.Errorf("failed to open audit log: %w", err)
	}

	enc := zap.NewProductionEncoderConfig()
	enc.TimeKey = "ts"
	enc.MessageKey = "msg"
	enc.LevelKey = ""
	enc.CallerKey = ""
	enc.EncodeTime = zapcore.EpochMillisTimeEncoder

	core := zapcore.NewCore(zapcore.NewJSONEncoder(enc), zapcore.AddSync(file), zapcore.InfoLevel)
	auditFile = file
	auditZap = zap.New(core)
	return nil
}

// CloseAudit flushes and closes the audit file.
func CloseAudit() {
	auditMu.Lock()
	defer auditMu.Unlock()
	closeAuditLocked()
}

func closeAuditLocked() {
	if auditFile == nil {
		return
	}
	_ = auditZap.Sync()
	_ = auditFile.Close()
	auditFile = nil
	auditZap = zap.NewNop()
}

// AuditWithSession returns an audit logger scoped to a session.
func AuditWithSession(sessionID string) *AuditLogger {
	return &AuditLogger{sessionID: sessionID}
}

// Log writes an audit event.
func (a *AuditLogger) Log(event AuditEvent) {
	if event.SessionID == "" {
		event.SessionID = a.sessionID
	}

	auditMu.Lock()
	defer auditMu.Unlock()
	auditZap.Info(event.Message, event.fields()...)
}

func (a *AuditLogger) SessionStart(source string) {
	a.Log(AuditEvent{
		EventType: AuditSessionStart,
		Source:    source,
		Success:   true,
		Message:   "session started",
	})
}

// FormLoaded records a load outcome. A nil err with accepting false records
// a closed form.
func (a *AuditLogger) FormLoaded(formID, source string, accepting bool, err error) {
	e := AuditEvent{
		EventType: AuditFormLoaded,
		FormID:    formID,
		Source:    source,
		Success:   err == nil,
		Message:   "form loaded",
	}
	switch {
	case err != nil:
		e.EventType, e.Error, e.Message = AuditLoadFailed, err.Error(), "form load failed"
	case !accepting:
		e.EventType, e.Message = AuditFormClosed, "form closed"
	}
	a.Log(e)
}

func (a *AuditLogger) SubmitAttempt(formID string, attempt, answers int) {
	a.Log(AuditEvent{
		EventType: AuditSubmitAttempt,
		FormID:    formID,
		Attempt:   attempt,
		Answers:   answers,
		Success:   true,
		Message:   fmt.Sprintf("submit attempt %d", attempt),
	})
}

func (a *AuditLogger) SubmitResult(formID string, attempt int, elapsed time.Duration, err error) {
	e := AuditEvent{
		EventType:  AuditSubmitOK,
		FormID:     formID,
		Attempt:    attempt,
		Success:    err == nil,
		DurationMs: elapsed.Milliseconds(),
		Message:    "response submitted",
	}
	if err != nil {
		e.EventType, e.Error, e.Message = AuditSubmitFailed, err.Error(), "submit failed"
	}
	a.Log(e)
}
