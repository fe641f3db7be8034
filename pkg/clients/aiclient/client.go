package aiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/jakechorley/support-match/pkg/metrics"
)

var (
	// ErrInvalidCredential is returned for HTTP 401 or a missing API key
	ErrInvalidCredential = errors.New("invalid AI credential")

	// ErrRateLimited is returned for HTTP 429 once retries are exhausted
	ErrRateLimited = errors.New("AI rate limit exceeded")

	// ErrBadPrompt is returned for HTTP 400
	ErrBadPrompt = errors.New("AI endpoint rejected the prompt")

	// ErrEmptyResponse is returned when the completion has no choices
	ErrEmptyResponse = errors.New("AI response contained no choices")
)

// StatusError is any other non-2xx response
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("AI endpoint returned status %d: %s", e.StatusCode, e.Body)
}

// ChatCompletionRequest is the request body of a chat completion call
type ChatCompletionRequest struct {
	Model       string                  `json:"model"`
	Messages    []ChatCompletionMessage `json:"messages"`
	Temperature float64                 `json:"temperature"`
	MaxTokens   int                     `json:"max_tokens"`
	TopP        float64                 `json:"top_p"`
	Stream      bool                    `json:"stream"`
}

// ChatCompletionMessage is one message in the conversation
type ChatCompletionMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatCompletionResponse is the subset of the response body that is read
type ChatCompletionResponse struct {
	Choices []struct {
		Message ChatCompletionMessage `json:"message"`
	} `json:"choices"`
}

// Options configures a Client
type Options struct {
	Endpoint     string
	APIKey       string
	Model        string
	SystemPrompt string
	Temperature  float64
	MaxTokens    int
	TopP         float64
	MaxRetries   int
	BaseDelay    time.Duration
	HTTPClient   *http.Client
}

// Client calls an OpenAI-compatible chat completion endpoint
type Client struct {
	opts    Options
	http    *http.Client
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// New creates a client. A nil HTTPClient uses a client with a 60s timeout.
func New(opts Options, logger *zap.Logger, m *metrics.Metrics) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = time.Second
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	return &Client{opts: opts, http: httpClient, logger: logger, metrics: m}
}

// Complete sends prompt as the user message and returns the first choice's content.
// 429, 5xx and network failures are retried with exponential backoff; 400 and 401 are not.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	if c.opts.APIKey == "" {
		c.metrics.ObserveAIRequest("invalid_credential")
		return "", fmt.Errorf("%w: no API key configured", ErrInvalidCredential)
	}

	messages := []ChatCompletionMessage{}
	if c.opts.SystemPrompt != "" {
		messages = append(messages, ChatCompletionMessage{Role: "system", Content: c.opts.SystemPrompt})
	}
	messages = append(messages, ChatCompletionMessage{Role: "user", Content: prompt})

	body, err := json.Marshal(ChatCompletionRequest{
		Model:       c.opts.Model,
		Messages:    messages,
		Temperature: c.opts.Temperature,
		MaxTokens:   c.opts.MaxTokens,
		TopP:        c.opts.TopP,
		Stream:      false,
	})
	if err != nil {
		return "", fmt.Errorf("failed to serialize request: %w", err)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.opts.BaseDelay
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	b.Reset()
	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(c.opts.MaxRetries)), ctx)

	attempt := 0
	var content string
	operation := func() error {
		attempt++
		result, err := c.do(ctx, body)
		if err != nil {
			if isPermanent(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		content = result
		return nil
	}
	notify := func(err error, wait time.Duration) {
		c.logger.Warn("AI request failed, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err))
	}

	if err := backoff.RetryNotify(operation, policy, notify); err != nil {
		c.metrics.ObserveAIRequest(resultLabel(err))
		return "", err
	}

	c.metrics.ObserveAIRequest("ok")
	c.logger.Debug("AI request succeeded", zap.Int("attempts", attempt), zap.Int("response_length", len(content)))
	return content, nil
}

func (c *Client) do(ctx context.Context, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.opts.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.opts.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return "", ErrInvalidCredential
	case resp.StatusCode == http.StatusBadRequest:
		return "", fmt.Errorf("%w: %s", ErrBadPrompt, truncate(respBody))
	case resp.StatusCode == http.StatusTooManyRequests:
		return "", ErrRateLimited
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return "", &StatusError{StatusCode: resp.StatusCode, Body: truncate(respBody)}
	}

	var completion ChatCompletionResponse
	if err := json.Unmarshal(respBody, &completion); err != nil {
		return "", backoff.Permanent(fmt.Errorf("failed to decode AI response: %w", err))
	}
	if len(completion.Choices) == 0 {
		return "", backoff.Permanent(ErrEmptyResponse)
	}

	return completion.Choices[0].Message.Content, nil
}

// isPermanent reports whether retrying cannot help
func isPermanent(err error) bool {
	if errors.Is(err, ErrInvalidCredential) || errors.Is(err, ErrBadPrompt) {
		return true
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode < 500
	}
	return false
}

func resultLabel(err error) string {
	var statusErr *StatusError
	switch {
	case errors.Is(err, ErrInvalidCredential):
		return "invalid_credential"
	case errors.Is(err, ErrBadPrompt):
		return "bad_prompt"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.As(err, &statusErr):
		return "status_error"
	}
	return "error"
}

func truncate(body []byte) string {
	const max = 512
	if len(body) > max {
		return string(body[:max]) + "..."
	}
	return string(body)
}
