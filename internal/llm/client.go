package llm

import (
	"context"
	"fmt"

	"github.com/Veraticus/spice-ledger/internal/common"
)

// Client defines the interface for LLM providers.
type Client interface {
	// Generate sends one request and returns the raw text of the model's reply.
	Generate(ctx context.Context, req Request) (string, error)
	// Model identifies the model used, for provenance.
	Model() string
}

// Request is a single provider call.
type Request struct {
	Image     *Image
	Schema    *Schema // nil requests free text
	System    string
	Prompt    string
	MaxTokens int
}

// Image is an inline image attachment.
type Image struct {
	MIMEType string
	Data     []byte
}

// offlineClient answers every request with ErrRemoteUnavailable. It stands in
// when no API key is configured so non-model operations keep working.
type offlineClient struct {
	provider string
}

// NewOfflineClient returns a client that never reaches a provider.
func NewOfflineClient(provider string) Client {
	return offlineClient{provider: provider}
}

func (c offlineClient) Generate(context.Context, Request) (string, error) {
	return "", &common.RetryableError{
		Err: fmt.Errorf("%w: no API key configured for %s", common.ErrRemoteUnavailable, c.provider),
	}
}

func (c offlineClient) Model() string {
	return "offline"
}
