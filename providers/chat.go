package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ChatConfig points at an OpenAI-compatible chat completions endpoint
type ChatConfig struct {
	Endpoint     string
	APIKey       string
	Model        string
	SystemPrompt string
	// RateLimit is requests per second; zero disables limiting
	RateLimit float64
	Timeout   time.Duration
}

// ChatClient talks to OpenAI-compatible chat completion APIs
type ChatClient struct {
	cfg  ChatConfig
	http *HTTPClient
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// NewChatClient builds a client from configuration
func NewChatClient(cfg ChatConfig) *ChatClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &ChatClient{cfg: cfg, http: NewHTTPClient(cfg.Timeout, cfg.RateLimit)}
}

// Configured reports whether the client has what it needs to make calls
func (c *ChatClient) Configured() bool {
	return c != nil && c.cfg.Endpoint != "" && c.cfg.APIKey != "" && c.cfg.Model != ""
}

// Complete sends one system and one user message and returns the reply text
func (c *ChatClient) Complete(ctx context.Context, system, user string) (string, error) {
	if !c.Configured() {
		return "", errors.New("chat client misconfigured")
	}
	if system == "" {
		system = c.cfg.SystemPrompt
	}

	var resp chatResponse
	err := c.http.PostJSON(ctx, c.cfg.Endpoint,
		map[string]string{"Authorization": "Bearer " + c.cfg.APIKey},
		chatRequest{
			Model: c.cfg.Model,
			Messages: []chatMessage{
				{Role: "system", Content: safePrompt(system)},
				{Role: "user", Content: user},
			},
			Temperature: 0.7,
		}, &resp)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func safePrompt(prompt string) string {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "You are a helpful assistant for a content marketing team."
	}
	return prompt
}
