package llm

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const (
	defaultTimeout     = 30 * time.Second
	defaultTemperature = 0.2
	defaultMaxTokens   = 512
)

// Config holds configuration for LLM clients and the gateway around them.
type Config struct {
	Provider    string
	APIKey      string
	Model       string
	BaseURL     string // overrides the provider endpoint, mostly for tests
	Temperature float64
	MaxTokens   int
	MaxRetries  int
	RetryDelay  time.Duration
	CacheTTL    time.Duration
	RateLimit   int // requests per minute
	Timeout     time.Duration
}

func (c Config) temperature() float64 {
	if c.Temperature == 0 {
		return defaultTemperature
	}
	return c.Temperature
}

func (c Config) maxTokens() int {
	if c.MaxTokens == 0 {
		return defaultMaxTokens
	}
	return c.MaxTokens
}

// Providers lists the supported provider names.
var Providers = []string{"openai", "anthropic", "gemini"}

// NewClient creates a raw LLM client based on the provided configuration.
func NewClient(ctx context.Context, cfg Config) (Client, error) {
	switch strings.ToLower(cfg.Provider) {
	case "openai":
		return newOpenAIClient(cfg)
	case "anthropic":
		return newAnthropicClient(cfg)
	case "gemini":
		return newGeminiClient(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}
