package session

import (
	"context"
	"sync"

	"formwidget/internal/form"
	"formwidget/internal/transport"
)

// --- MockSource ---

// MockSource implements source.Source for testing.
type MockSource struct {
	LoadFunc func(ctx context.Context) (*form.Form, error)

	mu         sync.Mutex
	requestIDs []string
}

func (m *MockSource) Load(ctx context.Context) (*form.Form, error) {
	m.mu.Lock()
	m.requestIDs = append(m.requestIDs, transport.RequestID(ctx))
	m.mu.Unlock()
	return m.LoadFunc(ctx)
}

func (m *MockSource) String() string { return "mock" }

// --- MockSubmitter ---

// MockSubmitter implements Submitter for testing.
type MockSubmitter struct {
	SubmitFunc func(ctx context.Context, r form.FormResponse) error

	mu        sync.Mutex
	submitted []form.FormResponse
}

func (m *MockSubmitter) Submit(ctx context.Context, r form.FormResponse) error {
	m.mu.Lock()
	m.submitted = append(m.submitted, r)
	m.mu.Unlock()
	if m.SubmitFunc != nil {
		return m.SubmitFunc(ctx, r)
	}
	return nil
}

func (m *MockSubmitter) Calls() []form.FormResponse {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]form.FormResponse(nil), m.submitted...)
}
