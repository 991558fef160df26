// Package llm talks to the Anthropic messages API and unwraps its reply
// into a candidate event document.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	defaultEndpoint = "https://api.anthropic.com/v1/messages"
	defaultModel    = "claude-3-5-haiku-latest"
	apiVersion      = "2023-06-01"
	keyPrefix       = "sk-ant-"
	maxTokens       = 1024
)

var (
	// ErrInvalidAPIKey means the key failed the local format check; no
	// request was sent.
	ErrInvalidAPIKey = errors.New("api key is missing or malformed")
	// ErrUnauthorized means the provider rejected the credential.
	ErrUnauthorized = errors.New("api key rejected by provider")
	// ErrRateLimited is the provider's backpressure signal.
	ErrRateLimited = errors.New("rate limited by provider")
	// ErrBadEnvelope means the reply was not the expected response shape.
	ErrBadEnvelope = errors.New("unexpected response envelope")
)

// TransportError wraps network-level failures, including timeouts.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return "llm transport: " + e.Err.Error() }
func (e *TransportError) Unwrap() error { return e.Err }

// Client performs single completion requests. It keeps no completion
// cache; every call goes upstream.
type Client struct {
	endpoint string
	apiKey   string
	model    string
	http     *http.Client
	logger   *slog.Logger
}

// NewClient validates the key format before anything else so a bad
// configuration fails without a network call.
func NewClient(logger *slog.Logger, apiKey, model string, timeout time.Duration) (*Client, error) {
	if !strings.HasPrefix(apiKey, keyPrefix) {
		return nil, ErrInvalidAPIKey
	}
	if model == "" {
		model = defaultModel
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		endpoint: defaultEndpoint,
		apiKey:   apiKey,
		model:    model,
		http:     &http.Client{Timeout: timeout},
		logger:   logger,
	}, nil
}

// SetEndpoint overrides the API URL. Used by tests.
func (c *Client) SetEndpoint(url string) { c.endpoint = url }

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	Messages  []message `json:"messages"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type completionResponse struct {
	Content []contentBlock `json:"content"`
}

// Complete sends one prompt and returns the raw text of the first content
// block. It performs exactly one request and never retries; retry policy
// belongs to the caller.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(completionRequest{
		Model:     c.model,
		MaxTokens: maxTokens,
		Messages:  []message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", apiVersion)

	c.logger.Debug("Sending completion request", "model", c.model)
	resp, err := c.http.Do(req)
	if err != nil {
		return "", &TransportError{Err: err}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		return "", ErrUnauthorized
	case http.StatusTooManyRequests:
		return "", ErrRateLimited
	default:
		diag, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("%w: status %d: %s", ErrBadEnvelope, resp.StatusCode, strings.TrimSpace(string(diag)))
	}

	var envelope completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return "", fmt.Errorf("%w: %v", ErrBadEnvelope, err)
	}
	if len(envelope.Content) == 0 || envelope.Content[0].Text == "" {
		return "", fmt.Errorf("%w: no content blocks", ErrBadEnvelope)
	}

	c.logger.Debug("Received completion", "chars", len(envelope.Content[0].Text))
	return envelope.Content[0].Text, nil
}
