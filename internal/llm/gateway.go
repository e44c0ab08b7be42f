package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/Veraticus/spice-ledger/internal/service"
)

// Gateway runs extraction and advice requests against a Client with timeouts,
// rate limiting, retries and caching. It implements service.Extractor and
// service.Advisor.
type Gateway struct {
	client  Client
	limiter *rateLimiter
	cache   *extractionCache
	logger  *slog.Logger
	now     func() time.Time
	retry   service.RetryOptions
	timeout time.Duration
}

var (
	_ service.Extractor = (*Gateway)(nil)
	_ service.Advisor   = (*Gateway)(nil)
)

// NewGateway wraps client using the retry, rate limit, cache and timeout settings of cfg.
func NewGateway(client Client, cfg Config, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	retryDelay := cfg.RetryDelay
	if retryDelay <= 0 {
		retryDelay = time.Second
	}

	return &Gateway{
		client:  client,
		limiter: newRateLimiter(cfg.RateLimit),
		cache:   newExtractionCache(cfg.CacheTTL),
		logger:  logger,
		now:     time.Now,
		timeout: timeout,
		retry: service.RetryOptions{
			MaxAttempts:  maxRetries,
			InitialDelay: retryDelay,
			MaxDelay:     30 * time.Second,
			Multiplier:   2.0,
		},
	}
}

// WithClock returns a gateway that resolves "today" with clock. The copy
// shares the client, limiter and cache of g.
func (g *Gateway) WithClock(clock func() time.Time) *Gateway {
	clone := *g
	if clock != nil {
		clone.now = clock
	}
	return &clone
}

// Model reports the model behind the gateway.
func (g *Gateway) Model() string {
	return g.client.Model()
}

// ParseText extracts a transaction from free text. It returns an empty record
// when the model is unreachable or its reply does not fit the schema.
func (g *Gateway) ParseText(ctx context.Context, input string) model.PartialRecord {
	input = strings.TrimSpace(input)
	if input == "" {
		return model.PartialRecord{}
	}

	today := model.DateOf(g.now())
	key := cacheKey(input, today)
	if rec, ok := g.cache.get(key); ok {
		g.logger.Debug("extraction cache hit", "input_length", len(input))
		return rec
	}

	schema := TextSchema()
	rec := g.extract(ctx, Request{
		System: extractionSystemPrompt,
		Prompt: buildTextPrompt(input, today),
		Schema: &schema,
	}, "text")

	if !rec.IsEmpty() {
		g.cache.set(key, rec)
	}
	return rec
}

// ParseImage extracts a transaction from a receipt image.
func (g *Gateway) ParseImage(ctx context.Context, data []byte, mimeType string) model.PartialRecord {
	if len(data) == 0 {
		return model.PartialRecord{}
	}

	schema := ImageSchema()
	return g.extract(ctx, Request{
		System: extractionSystemPrompt,
		Prompt: buildImagePrompt(model.DateOf(g.now())),
		Schema: &schema,
		Image:  &Image{MIMEType: mimeType, Data: data},
	}, "image")
}

// Ask answers a question about history, using at most the first MaxAskHistory
// transactions. Any failure yields FallbackAnswer.
func (g *Gateway) Ask(ctx context.Context, history []model.Transaction, query string) string {
	content, err := g.generate(ctx, Request{
		System:    coachSystemPrompt,
		Prompt:    buildAskPrompt(history, query),
		MaxTokens: 1024,
	})
	if err != nil {
		g.logger.Warn("ask failed", "error", fmt.Errorf("%w: %w", common.ErrRemoteUnavailable, err))
		return FallbackAnswer
	}

	answer := strings.TrimSpace(content)
	if answer == "" {
		return FallbackAnswer
	}
	return answer
}

func (g *Gateway) extract(ctx context.Context, req Request, kind string) model.PartialRecord {
	content, err := g.generate(ctx, req)
	if err != nil {
		g.logger.Warn("extraction failed",
			"kind", kind,
			"model", g.client.Model(),
			"error", fmt.Errorf("%w: %w", common.ErrRemoteUnavailable, err))
		return model.PartialRecord{}
	}

	rec, err := decodeRecord(content, *req.Schema)
	if err != nil {
		g.logger.Warn("extraction rejected",
			"kind", kind,
			"model", g.client.Model(),
			"error", fmt.Errorf("%w: %w", common.ErrExtractionInconclusive, err))
		return model.PartialRecord{}
	}
	return rec
}

func (g *Gateway) generate(ctx context.Context, req Request) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	var content string
	err := common.WithRetry(ctx, func() error {
		if err := g.limiter.wait(ctx); err != nil {
			return common.Permanent(err)
		}

		var genErr error
		content, genErr = g.client.Generate(ctx, req)
		if genErr != nil && errors.Is(genErr, context.DeadlineExceeded) {
			return common.Permanent(genErr)
		}
		return genErr
	}, g.retry)
	if err != nil {
		return "", err
	}
	return content, nil
}
