// Package ai wraps the hosted chat-completion API: prompt construction,
// classified retries, and token/cost accounting.
package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"nutriplan/internal/models"
	"nutriplan/pkg/logger"
)

const systemPrompt = "You are an experienced nutritionist and meal-planning assistant. " +
	"You create practical, personalized plans based on the user's profile and always " +
	"follow the requested output format exactly."

// completionAPI is the slice of the OpenAI client the generation client
// uses. Tests substitute a fake here.
type completionAPI interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Result carries the model output and its accounting metadata.
type Result struct {
	Content          string  `json:"content"`
	PromptTokens     int     `json:"prompt_tokens"`
	CompletionTokens int     `json:"completion_tokens"`
	TotalTokens      int     `json:"total_tokens"`
	Cost             float64 `json:"cost"`
}

type Client struct {
	api          completionAPI
	model        string
	maxTokens    int
	temperature  float32
	maxAttempts  int
	retryBackoff time.Duration
	costPerToken float64
	logger       *logger.Logger
}

type Options struct {
	APIKey       string
	BaseURL      string
	Model        string
	MaxTokens    int
	Temperature  float64
	MaxAttempts  int
	RetryBackoff time.Duration
	CostPerToken float64
}

func NewClient(opts Options, log *logger.Logger) *Client {
	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}

	if opts.Model == "" {
		opts.Model = openai.GPT4
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = 2 * time.Second
	}

	return &Client{
		api:          openai.NewClientWithConfig(cfg),
		model:        opts.Model,
		maxTokens:    opts.MaxTokens,
		temperature:  float32(opts.Temperature),
		maxAttempts:  opts.MaxAttempts,
		retryBackoff: opts.RetryBackoff,
		costPerToken: opts.CostPerToken,
		logger:       log.Named("ai"),
	}
}

// Generate sends the prompt to the chat-completion endpoint. Transient
// upstream failures are retried with linearly increasing backoff; errors
// the classifier marks terminal propagate immediately so a malformed
// request never burns the retry budget.
func (c *Client) Generate(ctx context.Context, prompt string, feature models.Feature) (*Result, error) {
	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	}

	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		resp, err := c.api.CreateChatCompletion(ctx, req)
		if err == nil {
			if len(resp.Choices) == 0 {
				return nil, fmt.Errorf("no response choices from completion API")
			}

			result := &Result{
				Content:          resp.Choices[0].Message.Content,
				PromptTokens:     resp.Usage.PromptTokens,
				CompletionTokens: resp.Usage.CompletionTokens,
				TotalTokens:      resp.Usage.TotalTokens,
				Cost:             float64(resp.Usage.TotalTokens) * c.costPerToken,
			}

			c.logger.Infow("generation completed",
				"feature", feature,
				"attempt", attempt,
				"total_tokens", result.TotalTokens,
				"cost", result.Cost,
			)
			return result, nil
		}

		lastErr = err
		if !Retryable(err) {
			c.logger.Errorw("terminal completion error", "feature", feature, "error", err)
			return nil, fmt.Errorf("completion request failed: %w", err)
		}

		c.logger.Warnw("completion attempt failed",
			"feature", feature,
			"attempt", attempt,
			"max_attempts", c.maxAttempts,
			"error", err,
		)

		if attempt < c.maxAttempts {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.retryBackoff * time.Duration(attempt)):
			}
		}
	}

	return nil, fmt.Errorf("completion request failed after %d attempts: %w", c.maxAttempts, lastErr)
}

// Retryable classifies upstream errors. Rate limiting and server-side
// failures are worth retrying; other HTTP errors (bad request, auth) are
// terminal. Anything without an API status is a transport failure and is
// retried.
func Retryable(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests || apiErr.HTTPStatusCode >= 500
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == http.StatusTooManyRequests || reqErr.HTTPStatusCode >= 500
	}

	return true
}
