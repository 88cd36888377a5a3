// Package llm drives the external text-generation service: an
// OpenAI-compatible chat-completions endpoint reachable over HTTP.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"git.home.luguber.info/inful/bookforge/internal/config"
	"git.home.luguber.info/inful/bookforge/internal/metrics"
)

// Generator is the generation capability: prompt in, text out. Calls may
// block for minutes and may fail transiently; callers own retry policy.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

const systemPrompt = "You are a helpful writing assistant who writes in markdown."

// Client talks to an OpenAI-compatible chat completions endpoint.
type Client struct {
	baseURL     string
	model       string
	temperature float64
	basePrompt  string
	hc          *http.Client
}

// NewClient builds a client from generation config. basePrompt (persona or
// project prompt) is prefixed to every user prompt; it may be empty.
func NewClient(gc config.GenerationConfig, basePrompt string) *Client {
	return &Client{
		baseURL:     strings.TrimRight(gc.BaseURL, "/"),
		model:       gc.Model,
		temperature: gc.Temperature,
		basePrompt:  basePrompt,
		hc:          &http.Client{Timeout: time.Duration(gc.Timeout) * time.Second},
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// RenderPrompt returns the full user prompt as sent to the service,
// including the base persona prefix.
func (c *Client) RenderPrompt(prompt string) string {
	if c.basePrompt == "" {
		return strings.TrimSpace(prompt)
	}
	return strings.TrimSpace(c.basePrompt + "\n\n" + prompt)
}

// Generate sends one chat completion request and returns the model text.
// Failures are classified as transient (network, timeout, throttling,
// server-side) or fatal (bad request, auth) via GenerationError.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	metrics.GenerationCalls.Inc()
	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: c.RenderPrompt(prompt)},
		},
		Temperature: c.temperature,
	})
	if err != nil {
		return "", &GenerationError{Err: fmt.Errorf("marshal request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", &GenerationError{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		metrics.GenerationFailures.WithLabelValues("transient").Inc()
		return "", &GenerationError{Transient: true, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.GenerationFailures.WithLabelValues("transient").Inc()
		return "", &GenerationError{Transient: true, Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		transient := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		kind := "fatal"
		if transient {
			kind = "transient"
		}
		metrics.GenerationFailures.WithLabelValues(kind).Inc()
		return "", &GenerationError{
			Transient: transient,
			Err:       fmt.Errorf("generation service returned %s", resp.Status),
		}
	}

	var parsed chatResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		metrics.GenerationFailures.WithLabelValues("fatal").Inc()
		return "", &GenerationError{Err: fmt.Errorf("decode response: %w", err)}
	}
	if len(parsed.Choices) == 0 {
		metrics.GenerationFailures.WithLabelValues("fatal").Inc()
		return "", &GenerationError{Err: errors.New("response contained no choices")}
	}
	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}

// GenerationError classifies a failed generation call.
type GenerationError struct {
	Transient bool
	Err       error
}

func (e *GenerationError) Error() string {
	if e.Transient {
		return "generation failed (transient): " + e.Err.Error()
	}
	return "generation failed: " + e.Err.Error()
}

func (e *GenerationError) Unwrap() error { return e.Err }

// IsTransient reports whether the error is worth retrying.
func IsTransient(err error) bool {
	var ge *GenerationError
	if errors.As(err, &ge) {
		return ge.Transient
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return ne.Timeout()
	}
	return false
}
