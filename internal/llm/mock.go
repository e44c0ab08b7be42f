package llm

import (
	"context"
	"fmt"
	"sync"
)

// MockResponse is one scripted reply of a MockClient.
type MockResponse struct {
	Err     error
	Content string
}

// MockClient is a scripted Client for tests. Responses are consumed in order;
// once exhausted, the last one repeats. Every request is recorded.
type MockClient struct {
	// Handler, when set, takes precedence over scripted responses.
	Handler   func(ctx context.Context, req Request) (string, error)
	ModelName string
	responses []MockResponse
	requests  []Request
	mu        sync.Mutex
}

// NewMockClient creates a mock that returns the given contents in order.
func NewMockClient(contents ...string) *MockClient {
	m := &MockClient{ModelName: "mock-model"}
	for _, c := range contents {
		m.responses = append(m.responses, MockResponse{Content: c})
	}
	return m
}

// Enqueue appends scripted responses.
func (m *MockClient) Enqueue(responses ...MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, responses...)
}

// Generate returns the next scripted response.
func (m *MockClient) Generate(ctx context.Context, req Request) (string, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	handler := m.Handler
	var next MockResponse
	var ok bool
	if len(m.responses) > 0 {
		next, ok = m.responses[0], true
		if len(m.responses) > 1 {
			m.responses = m.responses[1:]
		}
	}
	m.mu.Unlock()

	if handler != nil {
		return handler(ctx, req)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("mock client: no scripted response")
	}
	return next.Content, next.Err
}

// Model returns the mock model name.
func (m *MockClient) Model() string {
	return m.ModelName
}

// Requests returns a copy of the recorded requests.
func (m *MockClient) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.requests))
	copy(out, m.requests)
	return out
}

// Calls returns the number of recorded requests.
func (m *MockClient) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}
