package providers

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// CompleterConfig controls how a Completer calls its provider.
// MaxAttempts defaults to 1: one call, no retry.
type CompleterConfig struct {
	Model       string
	MaxTokens   int
	Timeout     time.Duration
	MaxAttempts int
	RetryDelay  time.Duration
}

// Completer turns a Provider into a generate(messages, temperature) call.
// Only retryable provider errors are attempted again, up to MaxAttempts.
type Completer struct {
	provider Provider
	config   CompleterConfig
	logger   *zap.Logger
}

// NewCompleter creates a completer bound to one provider and model
func NewCompleter(provider Provider, config CompleterConfig, logger *zap.Logger) *Completer {
	if config.MaxAttempts < 1 {
		config.MaxAttempts = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Completer{
		provider: provider,
		config:   config,
		logger:   logger,
	}
}

// Provider returns the wrapped provider
func (c *Completer) Provider() Provider {
	return c.provider
}

// Generate sends the conversation and returns the trimmed answer text
func (c *Completer) Generate(ctx context.Context, messages []Message, temperature float64) (string, error) {
	req := &ChatRequest{
		Model:       c.config.Model,
		Messages:    messages,
		MaxTokens:   c.config.MaxTokens,
		Temperature: temperature,
	}

	var lastErr error
	for attempt := 1; attempt <= c.config.MaxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-time.After(c.config.RetryDelay * time.Duration(attempt-1)):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		text, err := c.complete(ctx, req)
		if err == nil {
			return text, nil
		}
		lastErr = err

		if !IsRetryable(err) {
			break
		}
		c.logger.Warn("generation attempt failed",
			zap.String("provider", c.provider.Name()),
			zap.Int("attempt", attempt),
			zap.Error(err))
	}

	return "", fmt.Errorf("%s completion failed: %w", c.provider.Name(), lastErr)
}

func (c *Completer) complete(ctx context.Context, req *ChatRequest) (string, error) {
	if c.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.Timeout)
		defer cancel()
	}

	resp, err := c.provider.ChatCompletion(ctx, req)
	if err != nil {
		return "", err
	}

	c.logger.Debug("completion received",
		zap.String("provider", resp.Provider),
		zap.String("model", resp.Model),
		zap.Int("total_tokens", resp.Usage.TotalTokens),
		zap.Duration("latency", resp.Latency))

	return resp.Text()
}
