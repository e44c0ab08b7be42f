package sheets

import (
	"context"
	"sync"
)

// MockWriter records reports instead of publishing them.
type MockWriter struct {
	LastReport *Report
	err        error
	calls      int
	mu         sync.Mutex
}

func NewMockWriter() *MockWriter { return &MockWriter{} }

func (m *MockWriter) Write(_ context.Context, report Report) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	m.LastReport = &report
	if m.err != nil {
		return "", m.err
	}
	return "mock-spreadsheet", nil
}

// SetWriteError makes every later Write fail with err.
func (m *MockWriter) SetWriteError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *MockWriter) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
