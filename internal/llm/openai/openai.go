// Package openai implements llm.Completer on the OpenAI chat completions API.
package openai

import (
	"context"
	"errors"
	"fmt"
	"time"

	openaisdk "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"admissionsbot/internal/llm"
	"admissionsbot/internal/logging"
)

const providerName = "openai"

// Config configures the chat client.
type Config struct {
	BaseURL string
	Model   string
	Timeout time.Duration
	// RateLimit caps requests per second; zero means unlimited.
	RateLimit float64
}

// Client sends single-turn chat completions.
type Client struct {
	sdk     openaisdk.Client
	model   string
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewClient creates a chat client. The credential is supplied per call.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = string(openaisdk.ChatModelGPT4oMini)
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	c := &Client{
		sdk: openaisdk.NewClient(
			option.WithBaseURL(cfg.BaseURL),
			option.WithRequestTimeout(cfg.Timeout),
			option.WithMaxRetries(0),
		),
		model:   cfg.Model,
		limiter: rate.NewLimiter(rate.Inf, 1),
		logger:  logging.OrNop(logger),
	}
	if cfg.RateLimit > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}
	return c
}

// Complete sends prompt as a single user message and returns the reply text unmodified.
func (c *Client) Complete(ctx context.Context, prompt, credential string) (string, error) {
	if credential == "" {
		return "", &llm.ProviderError{Provider: providerName, Message: "missing API key"}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return "", &llm.ProviderError{Provider: providerName, Message: fmt.Sprintf("rate limiter: %v", err), Err: err}
	}

	start := time.Now()
	resp, err := c.sdk.Chat.Completions.New(ctx, openaisdk.ChatCompletionNewParams{
		Model: openaisdk.ChatModel(c.model),
		Messages: []openaisdk.ChatCompletionMessageParamUnion{
			openaisdk.UserMessage(prompt),
		},
	}, option.WithAPIKey(credential))
	if err != nil {
		return "", toProviderError(err)
	}
	if len(resp.Choices) == 0 {
		return "", &llm.ProviderError{Provider: providerName, Message: "no choices in response"}
	}

	c.logger.Debug("chat completion",
		zap.String("model", c.model),
		zap.Int64("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int64("completion_tokens", resp.Usage.CompletionTokens),
		zap.Duration("took", time.Since(start)),
	)
	return resp.Choices[0].Message.Content, nil
}

func toProviderError(err error) *llm.ProviderError {
	var apiErr *openaisdk.Error
	if errors.As(err, &apiErr) {
		msg := apiErr.Message
		if msg == "" {
			msg = apiErr.Error()
		}
		return &llm.ProviderError{Provider: providerName, StatusCode: apiErr.StatusCode, Message: msg, Err: err}
	}
	return &llm.ProviderError{Provider: providerName, Message: err.Error(), Err: err}
}
