package llm

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

const (
	anthropicBaseURL      = "https://api.anthropic.com/v1"
	anthropicVersion      = "2023-06-01"
	anthropicDefaultModel = "claude-3-5-haiku-latest"
)

type anthropicClient struct {
	httpClient  *http.Client
	apiKey      string
	baseURL     string
	model       string
	temperature float64
	maxTokens   int
}

func newAnthropicClient(cfg Config) (Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("anthropic API key is required")
	}
	c := &anthropicClient{
		httpClient:  newHTTPClient(cfg.Timeout),
		apiKey:      cfg.APIKey,
		baseURL:     anthropicBaseURL,
		model:       anthropicDefaultModel,
		temperature: cfg.temperature(),
		maxTokens:   cfg.maxTokens(),
	}
	if cfg.BaseURL != "" {
		c.baseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	if cfg.Model != "" {
		c.model = cfg.Model
	}
	return c, nil
}

func (c *anthropicClient) Model() string { return c.model }

type anthropicSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type anthropicBlock struct {
	Source *anthropicSource `json:"source,omitempty"`
	Type   string           `json:"type"`
	Text   string           `json:"text,omitempty"`
}

type anthropicMessage struct {
	Role    string           `json:"role"`
	Content []anthropicBlock `json:"content"`
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	System      string             `json:"system"`
	Messages    []anthropicMessage `json:"messages"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float64            `json:"temperature"`
}

type anthropicResponse struct {
	StopReason string           `json:"stop_reason"`
	Content    []anthropicBlock `json:"content"`
}

// request builds the Messages call. The API has no structured output mode,
// so the schema is spelled out at the end of the system prompt.
func (c *anthropicClient) request(req Request) anthropicRequest {
	system := req.System
	if req.Schema != nil {
		system += "\n\n" + req.Schema.Describe()
	}

	var blocks []anthropicBlock
	if req.Image != nil {
		blocks = append(blocks, anthropicBlock{Type: "image", Source: &anthropicSource{
			Type:      "base64",
			MediaType: req.Image.MIMEType,
			Data:      base64.StdEncoding.EncodeToString(req.Image.Data),
		}})
	}
	blocks = append(blocks, anthropicBlock{Type: "text", Text: req.Prompt})

	out := anthropicRequest{
		Model:       c.model,
		System:      system,
		Messages:    []anthropicMessage{{Role: "user", Content: blocks}},
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	}
	if req.MaxTokens > 0 {
		out.MaxTokens = req.MaxTokens
	}
	return out
}

// Generate concatenates the text blocks of the reply.
func (c *anthropicClient) Generate(ctx context.Context, req Request) (string, error) {
	body, err := postJSON(ctx, c.httpClient, c.baseURL+"/messages", map[string]string{
		"x-api-key":         c.apiKey,
		"anthropic-version": anthropicVersion,
	}, c.request(req), "Anthropic")
	if err != nil {
		return "", err
	}

	var resp anthropicResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("failed to parse Anthropic response: %w", err)
	}

	var text strings.Builder
	for _, b := range resp.Content {
		if b.Type == "text" {
			text.WriteString(b.Text)
		}
	}
	if text.Len() == 0 {
		return "", fmt.Errorf("anthropic reply had no text (stop reason %q)", resp.StopReason)
	}
	return text.String(), nil
}
