package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/Veraticus/spice-ledger/internal/common"
	"google.golang.org/genai"
)

// geminiClient implements the Client interface on the Gen AI SDK.
type geminiClient struct {
	client      *genai.Client
	model       string
	temperature float32
	maxTokens   int32
}

// newGeminiClient creates a Gemini client. Vertex AI can be selected through
// the SDK's GOOGLE_GENAI_USE_VERTEXAI environment variables.
func newGeminiClient(ctx context.Context, cfg Config) (Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	model := cfg.Model
	if model == "" {
		model = "gemini-2.5-flash"
	}

	clientConfig := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &geminiClient{
		client:      client,
		model:       model,
		temperature: float32(cfg.temperature()),
		maxTokens:   int32(cfg.maxTokens()),
	}, nil
}

func (c *geminiClient) Model() string {
	return c.model
}

// Generate calls GenerateContent, attaching the image inline and requesting
// JSON output under the native response schema when one is given.
func (c *geminiClient) Generate(ctx context.Context, req Request) (string, error) {
	maxTokens := c.maxTokens
	if req.MaxTokens > 0 {
		maxTokens = int32(req.MaxTokens)
	}

	parts := []*genai.Part{{Text: req.Prompt}}
	if req.Image != nil {
		parts = append(parts, &genai.Part{
			InlineData: &genai.Blob{
				MIMEType: req.Image.MIMEType,
				Data:     req.Image.Data,
			},
		})
	}
	contents := []*genai.Content{{Role: genai.RoleUser, Parts: parts}}

	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(c.temperature),
		MaxOutputTokens: maxTokens,
	}
	if req.System != "" {
		config.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: req.System}}}
	}
	if req.Schema != nil {
		config.ResponseMIMEType = "application/json"
		config.ResponseSchema = toGenaiSchema(*req.Schema)
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, config)
	if err != nil {
		return "", classifyGeminiError(err)
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("gemini returned no text")
	}
	return text, nil
}

func toGenaiSchema(s Schema) *genai.Schema {
	out := &genai.Schema{
		Type:       genai.TypeObject,
		Properties: make(map[string]*genai.Schema, len(s.Properties)),
		Required:   s.RequiredFields(),
	}
	for _, p := range s.Properties {
		prop := &genai.Schema{Description: p.Description, Enum: p.Enum}
		switch p.Type {
		case TypeString:
			prop.Type = genai.TypeString
		case TypeNumber:
			prop.Type = genai.TypeNumber
		case TypeBoolean:
			prop.Type = genai.TypeBoolean
		case TypeArray:
			prop.Type = genai.TypeArray
			prop.Items = &genai.Schema{Type: genai.TypeString}
		}
		if !p.Required {
			prop.Nullable = genai.Ptr(true)
		}
		out.Properties[p.Name] = prop
	}
	return out
}

// classifyGeminiError marks quota and server errors retryable.
func classifyGeminiError(err error) error {
	retryable := true
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		retryable = apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= http.StatusInternalServerError
	}
	return &common.RetryableError{Err: fmt.Errorf("gemini generate content: %w", err), Retryable: retryable}
}
