// Package llmoracle is a plain net/http client for an OpenAI-compatible
// chat-completions endpoint. Every pipeline stage that needs a completion
// (intent routing, SQL generation, insight narration) goes through a single
// narrow, synchronous Complete method — there is no streaming here, unlike
// the teacher's chunk-oriented agent.LLMClient, because no stage needs more
// than one finished completion.
package llmoracle

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/codeready-toolchain/tarsy/pkg/version"
)

// ErrUpstreamUnavailable is returned when every retry attempt against the
// oracle failed with a retryable condition (502/503/504, timeout, network).
var ErrUpstreamUnavailable = errors.New("llm oracle unavailable")

// Message is one chat-completion turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request parameterizes a single completion call.
type Request struct {
	Messages    []Message
	Temperature float64
	MaxTokens   int
}

// Client is a retrying HTTP client against an OpenAI-compatible
// chat-completions endpoint (Groq, OpenAI, vLLM, etc. all fit this shape).
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
	maxRetries int
}

// New creates a Client. timeout bounds a single HTTP attempt, not the sum of
// all retries.
func New(baseURL, apiKey, model string, timeout time.Duration, maxRetries int) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		apiKey:     apiKey,
		model:      model,
		maxRetries: maxRetries,
	}
}

type chatRequestBody struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

type chatResponseBody struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		Text string `json:"text"`
	} `json:"choices"`
	Text string `json:"text"`
}

// Complete sends a chat-completions request and returns the model's text,
// retrying on 502/503/504 and network/timeout errors with exponential
// backoff, grounded on llm_client.py's retry loop. 4xx responses are never
// retried.
func (c *Client) Complete(ctx context.Context, req Request) (string, error) {
	body, err := json.Marshal(chatRequestBody{
		Model:       c.model,
		Messages:    req.Messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("llmoracle: marshal request: %w", err)
	}

	retryDelay := 2 * time.Second
	var lastErr error

	for attempt := 0; attempt < c.maxRetries; attempt++ {
		text, retryable, err := c.attempt(ctx, body)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if !retryable || attempt == c.maxRetries-1 {
			break
		}
		wait := retryDelay * time.Duration(1<<uint(attempt))
		slog.Warn("llm oracle call failed, retrying", "attempt", attempt+1, "max_retries", c.maxRetries, "wait", wait, "error", err)
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(wait):
		}
	}

	return "", fmt.Errorf("%w: %v", ErrUpstreamUnavailable, lastErr)
}

// attempt makes a single HTTP round trip. retryable reports whether the
// failure is transient and worth retrying.
func (c *Client) attempt(ctx context.Context, body []byte) (text string, retryable bool, err error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", false, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("User-Agent", version.Full())
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", true, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusBadGateway || resp.StatusCode == http.StatusServiceUnavailable || resp.StatusCode == http.StatusGatewayTimeout {
		io.Copy(io.Discard, resp.Body)
		return "", true, fmt.Errorf("status %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", false, fmt.Errorf("status %d: %s", resp.StatusCode, string(data))
	}

	var parsed chatResponseBody
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", false, fmt.Errorf("decode response: %w", err)
	}

	if len(parsed.Choices) > 0 {
		choice := parsed.Choices[0]
		if choice.Message.Content != "" {
			return choice.Message.Content, false, nil
		}
		if choice.Text != "" {
			return choice.Text, false, nil
		}
	}
	if parsed.Text != "" {
		return parsed.Text, false, nil
	}

	return "", false, errors.New("response contained no completion text")
}
