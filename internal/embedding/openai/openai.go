package openai

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	openaisdk "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"admissionsbot/internal/domain"
	"admissionsbot/internal/logging"
)

var (
	// ErrEmptyInput is returned when a text to embed is blank.
	ErrEmptyInput = errors.New("openai: input text is empty")
	// ErrNoEmbeddingInResponse is returned when the API response carries fewer embeddings than inputs.
	ErrNoEmbeddingInResponse = errors.New("openai: no embedding in response")
	// ErrMissingAPIKey is returned when neither the config nor the request carries a key.
	ErrMissingAPIKey = errors.New("openai: missing API key")
)

// Client is an OpenAI embeddings client implementing the Embedder interface.
type Client struct {
	sdk     openaisdk.Client
	apiKey  string
	model   string
	limiter *rate.Limiter
	logger  *zap.Logger
}

// Config configures the OpenAI embeddings client.
type Config struct {
	BaseURL   string
	APIKeyEnv string
	// APIKey takes precedence over APIKeyEnv.
	APIKey  string
	Model   string
	Timeout time.Duration
	// RateLimit caps requests per second; zero means unlimited.
	RateLimit float64
}

// NewClient creates a new embeddings client using the provided configuration.
// Without a configured key, requests fall back to the credential carried by ctx.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	key := cfg.APIKey
	if key == "" && cfg.APIKeyEnv != "" {
		key = os.Getenv(cfg.APIKeyEnv)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "text-embedding-3-small"
	}
	t := cfg.Timeout
	if t == 0 {
		t = 30 * time.Second
	}
	return &Client{
		sdk: openaisdk.NewClient(
			option.WithBaseURL(cfg.BaseURL),
			option.WithRequestTimeout(t),
			option.WithMaxRetries(0),
		),
		apiKey:  key,
		model:   cfg.Model,
		limiter: newLimiter(cfg.RateLimit),
		logger:  logging.OrNop(logger),
	}
}

// Name returns the identifier of this embedder implementation.
func (c *Client) Name() string { return "openai:" + c.model }

// EmbedQuery returns an embedding vector for the given text.
func (c *Client) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	out, err := c.EmbedDocuments(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// EmbedDocuments embeds all texts in a single request. The result is in input order.
func (c *Client) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, ErrEmptyInput
	}
	for i, t := range texts {
		if strings.TrimSpace(t) == "" {
			return nil, fmt.Errorf("%w (index %d)", ErrEmptyInput, i)
		}
	}
	key := c.apiKey
	if cred, ok := domain.CredentialFrom(ctx); ok && key == "" {
		key = cred
	}
	if key == "" {
		return nil, ErrMissingAPIKey
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	start := time.Now()
	resp, err := c.sdk.Embeddings.New(ctx, openaisdk.EmbeddingNewParams{
		Input:          openaisdk.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		Model:          openaisdk.EmbeddingModel(c.model),
		EncodingFormat: openaisdk.EmbeddingNewParamsEncodingFormatFloat,
	}, option.WithAPIKey(key))
	if err != nil {
		return nil, fmt.Errorf("openai embeddings: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrNoEmbeddingInResponse, len(resp.Data), len(texts))
	}

	data := resp.Data
	sort.Slice(data, func(i, j int) bool { return data[i].Index < data[j].Index })
	out := make([][]float32, len(data))
	for i, d := range data {
		if len(d.Embedding) == 0 {
			return nil, fmt.Errorf("%w (index %d)", ErrNoEmbeddingInResponse, i)
		}
		v := make([]float32, len(d.Embedding))
		for j, f := range d.Embedding {
			v[j] = float32(f)
		}
		out[i] = v
	}

	c.logger.Debug("embedded texts",
		zap.String("model", c.model),
		zap.Int("count", len(texts)),
		zap.Int("dimension", len(out[0])),
		zap.Duration("took", time.Since(start)),
	)
	return out, nil
}

func newLimiter(perSecond float64) *rate.Limiter {
	if perSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Limit(perSecond), 1)
}
