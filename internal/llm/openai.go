package llm

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/Veraticus/spice-ledger/internal/common"
)

const (
	openAIBaseURL      = "https://api.openai.com/v1"
	openAIDefaultModel = "gpt-4o-mini"
)

type openAIClient struct {
	httpClient  *http.Client
	apiKey      string
	baseURL     string
	model       string
	temperature float64
	maxTokens   int
}

func newOpenAIClient(cfg Config) (Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("OpenAI API key is required")
	}
	c := &openAIClient{
		httpClient:  newHTTPClient(cfg.Timeout),
		apiKey:      cfg.APIKey,
		baseURL:     openAIBaseURL,
		model:       openAIDefaultModel,
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

func (c *openAIClient) Model() string { return c.model }

type openAIMessage struct {
	Role string `json:"role"`
	// Content is a string, or a list of parts when an image is attached.
	Content any `json:"content"`
}

type openAIPart struct {
	ImageURL *openAIImageURL `json:"image_url,omitempty"`
	Type     string          `json:"type"`
	Text     string          `json:"text,omitempty"`
}

type openAIImageURL struct {
	URL string `json:"url"`
}

type openAIJSONSchema struct {
	Schema map[string]any `json:"schema"`
	Name   string         `json:"name"`
	Strict bool           `json:"strict"`
}

type openAIResponseFormat struct {
	JSONSchema *openAIJSONSchema `json:"json_schema,omitempty"`
	Type       string            `json:"type"`
}

type openAIRequest struct {
	ResponseFormat *openAIResponseFormat `json:"response_format,omitempty"`
	Model          string                `json:"model"`
	Messages       []openAIMessage       `json:"messages"`
	Temperature    float64               `json:"temperature"`
	MaxTokens      int                   `json:"max_tokens"`
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
			Refusal string `json:"refusal"`
		} `json:"message"`
	} `json:"choices"`
}

func (c *openAIClient) request(req Request) openAIRequest {
	user := openAIMessage{Role: "user", Content: req.Prompt}
	if req.Image != nil {
		url := "data:" + req.Image.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(req.Image.Data)
		user.Content = []openAIPart{
			{Type: "text", Text: req.Prompt},
			{Type: "image_url", ImageURL: &openAIImageURL{URL: url}},
		}
	}

	out := openAIRequest{
		Model:       c.model,
		Messages:    []openAIMessage{{Role: "system", Content: req.System}, user},
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	}
	if req.MaxTokens > 0 {
		out.MaxTokens = req.MaxTokens
	}
	if req.Schema != nil {
		out.ResponseFormat = &openAIResponseFormat{
			Type:       "json_schema",
			JSONSchema: &openAIJSONSchema{Name: req.Schema.Name, Strict: true, Schema: req.Schema.JSONSchema(true)},
		}
	}
	return out
}

// Generate runs one chat completion and returns the first choice's text.
// A refusal is not retried.
func (c *openAIClient) Generate(ctx context.Context, req Request) (string, error) {
	body, err := postJSON(ctx, c.httpClient, c.baseURL+"/chat/completions",
		map[string]string{"Authorization": "Bearer " + c.apiKey}, c.request(req), "OpenAI")
	if err != nil {
		return "", err
	}

	var resp openAIResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("failed to parse OpenAI response: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("OpenAI returned no choices")
	}
	msg := resp.Choices[0].Message
	if msg.Refusal != "" {
		return "", common.Permanent(fmt.Errorf("OpenAI refused: %s", msg.Refusal))
	}
	return msg.Content, nil
}
