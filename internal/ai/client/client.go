package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/robalyx/lumi/internal/setup/config"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// AIClient sends chat completion requests through a pool of provider clients.
// Concurrency is bounded by a weighted semaphore and failures are tracked by
// a circuit breaker.
type AIClient struct {
	clients   []openai.Client
	next      atomic.Uint64
	breaker   *gobreaker.CircuitBreaker
	semaphore *semaphore.Weighted
	timeout   time.Duration
	logger    *zap.Logger
}

// NewClient creates a new AIClient.
func NewClient(cfg *config.OpenAI, logger *zap.Logger) (*AIClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: openai.api_key is required", config.ErrInvalidConfig)
	}

	logger = logger.Named("ai_client")
	poolSize := max(cfg.PoolSize, 1)
	timeout := cfg.RequestTimeoutDuration()

	clients := make([]openai.Client, 0, poolSize)
	for range poolSize {
		clients = append(clients, openai.NewClient(
			option.WithAPIKey(cfg.APIKey),
			option.WithBaseURL(cfg.BaseURL),
			option.WithHTTPClient(&http.Client{}),
			option.WithMaxRetries(0),
		))
	}

	settings := gobreaker.Settings{
		Name:        "openai",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		Interval:    0,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 10 && failureRatio >= 0.6
		},
		IsSuccessful: func(err error) bool {
			// Refusals and caller cancellations say nothing about provider health
			return err == nil || errors.Is(err, ErrContentBlocked) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(_ string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	}

	return &AIClient{
		clients:   clients,
		breaker:   gobreaker.NewCircuitBreaker(settings),
		semaphore: semaphore.NewWeighted(max(cfg.MaxConcurrent, 1)),
		timeout:   timeout,
		logger:    logger,
	}, nil
}

// Chat returns a ChatCompletions implementation.
func (c *AIClient) Chat() ChatCompletions {
	return &chatCompletions{client: c}
}

// pick returns the next pooled client in round-robin order.
func (c *AIClient) pick() *openai.Client {
	i := c.next.Add(1) - 1
	return &c.clients[i%uint64(len(c.clients))]
}

// chatCompletions implements the ChatCompletions interface.
type chatCompletions struct {
	client *AIClient
}

// New makes a chat completion request.
func (c *chatCompletions) New(
	ctx context.Context, params openai.ChatCompletionNewParams,
) (*openai.ChatCompletion, error) {
	if err := c.client.semaphore.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("failed to acquire semaphore: %w", err)
	}
	defer c.client.semaphore.Release(1)

	if c.client.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.client.timeout)
		defer cancel()
	}

	start := time.Now()
	result, err := c.client.breaker.Execute(func() (any, error) {
		resp, err := c.client.pick().Chat.Completions.New(ctx, params)
		if err != nil {
			return nil, err
		}
		if err := c.checkBlockReasons(resp, params.Model); err != nil {
			return nil, err
		}
		return resp, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
			return nil, fmt.Errorf("%w: %w", ErrCircuitOpen, err)
		case errors.Is(err, ErrContentBlocked):
			return nil, err
		default:
			c.client.logger.Warn("Failed to make request",
				zap.String("model", params.Model),
				zap.Duration("duration", time.Since(start)),
				zap.Error(err))
			return nil, err
		}
	}

	resp := result.(*openai.ChatCompletion)
	c.client.logger.Debug("Completed request",
		zap.String("model", params.Model),
		zap.Int("choices", len(resp.Choices)),
		zap.Int64("totalTokens", resp.Usage.TotalTokens),
		zap.Duration("duration", time.Since(start)))

	return resp, nil
}

// checkBlockReasons checks if the response was refused by content filtering.
// Empty choices are left for the caller to interpret.
func (c *chatCompletions) checkBlockReasons(resp *openai.ChatCompletion, model string) error {
	for _, choice := range resp.Choices {
		if choice.FinishReason == "content_filter" {
			c.client.logger.Warn("Content blocked",
				zap.String("model", model),
				zap.String("finishReason", choice.FinishReason))
			return fmt.Errorf("%w: finish reason %s", ErrContentBlocked, choice.FinishReason)
		}
	}
	return nil
}
