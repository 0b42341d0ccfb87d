// Package llm talks to the OpenRouter completions API and decides which
// model answers each request. The structural generate/repair retry loop
// lives in the sanitizer; the only retry behavior here is the gateway's
// single primary-to-fallback hop on quota-class failures.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Message is one role-tagged entry of a chat completion request.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Completer is the request surface the gateway (and tests) program against.
type Completer interface {
	Complete(ctx context.Context, model string, messages []Message, temperature float64, maxTokens int) (string, error)
}

// Client is an OpenRouter chat-completions client.
type Client struct {
	apiKey     string
	baseURL    string
	siteURL    string
	siteName   string
	httpClient *http.Client
	log        *zap.Logger
}

// ClientConfig holds Client construction parameters.
type ClientConfig struct {
	APIKey   string
	BaseURL  string
	SiteURL  string
	SiteName string
	Timeout  time.Duration
	Logger   *zap.Logger
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig(apiKey string) ClientConfig {
	return ClientConfig{
		APIKey:   apiKey,
		BaseURL:  "https://openrouter.ai/api/v1",
		SiteName: "dataclinic",
		Timeout:  120 * time.Second,
	}
}

// NewClient creates a client with default config.
func NewClient(apiKey string) *Client {
	return NewClientWithConfig(DefaultClientConfig(apiKey))
}

// NewClientWithConfig creates a client with custom config.
func NewClientWithConfig(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://openrouter.ai/api/v1"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	return &Client{
		apiKey:   cfg.APIKey,
		baseURL:  cfg.BaseURL,
		siteURL:  cfg.SiteURL,
		siteName: cfg.SiteName,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		log: logger,
	}
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    any    `json:"code"`
	} `json:"error,omitempty"`
}

// Complete sends a role-tagged message sequence to the named model and
// returns the trimmed completion text.
func (c *Client) Complete(ctx context.Context, model string, messages []Message, temperature float64, maxTokens int) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("API key not configured")
	}

	// Auto-apply timeout if the caller gave no deadline.
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.httpClient.Timeout)
		defer cancel()
	}

	start := time.Now()
	c.log.Debug("sending completion request",
		zap.String("model", model),
		zap.Int("messages", len(messages)),
		zap.Int("max_tokens", maxTokens))

	reqBody := chatRequest{
		Model:       model,
		Messages:    messages,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/chat/completions", bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("HTTP-Referer", c.siteURL)
	req.Header.Set("X-Title", c.siteName)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 10*1024*1024))
	resp.Body.Close()
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	}

	var chatResp chatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if chatResp.Error != nil {
		return "", fmt.Errorf("API error: %s", chatResp.Error.Message)
	}
	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("no completion returned")
	}

	text := strings.TrimSpace(chatResp.Choices[0].Message.Content)
	c.log.Debug("completion received",
		zap.String("model", model),
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("response_len", len(text)))
	return text, nil
}
