package llms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// AnthropicClient implements Client against the Anthropic Messages API.
type AnthropicClient struct {
	apiKey      string
	model       string
	host        string
	httpClient  *http.Client
	maxAttempts int
	baseDelay   time.Duration
}

// NewAnthropicClient creates a client for the given model. host defaults to
// the public Anthropic API if empty, so tests can point it at a fake server.
func NewAnthropicClient(apiKey, model, host string) *AnthropicClient {
	if host == "" {
		host = "https://api.anthropic.com"
	}
	return &AnthropicClient{
		apiKey:      apiKey,
		model:       model,
		host:        host,
		httpClient:  &http.Client{Timeout: 120 * time.Second},
		maxAttempts: 3,
		baseDelay:   500 * time.Millisecond,
	}
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model       string              `json:"model"`
	System      string              `json:"system,omitempty"`
	Messages    []anthropicMessage  `json:"messages"`
	MaxTokens   int                 `json:"max_tokens"`
	Temperature float64             `json:"temperature,omitempty"`
}

type anthropicContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type anthropicUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type anthropicError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type anthropicResponse struct {
	Content []anthropicContent `json:"content"`
	Model   string             `json:"model"`
	Usage   anthropicUsage     `json:"usage"`
	Error   *anthropicError    `json:"error,omitempty"`
}

func (c *AnthropicClient) ModelName() string { return c.model }

// Invoke sends messages to Anthropic with retry on transient failures,
// classifying 429/5xx as retryable and everything else (auth, bad request)
// as fatal.
func (c *AnthropicClient) Invoke(ctx context.Context, messages []Message, opts Options) (Response, error) {
	return WithRetry(ctx, c.maxAttempts, c.baseDelay, func() (Response, error) {
		return c.attempt(ctx, messages, opts)
	})
}

func (c *AnthropicClient) attempt(ctx context.Context, messages []Message, opts Options) (Response, error) {
	var system string
	var chatMessages []anthropicMessage
	for _, m := range messages {
		if m.Role == RoleSystem {
			system = m.Content
			continue
		}
		chatMessages = append(chatMessages, anthropicMessage{Role: string(m.Role), Content: m.Content})
	}

	model := c.model
	if opts.Model != "" {
		model = opts.Model
	}
	maxTokens := opts.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}

	body, err := json.Marshal(anthropicRequest{
		Model:       model,
		System:      system,
		Messages:    chatMessages,
		MaxTokens:   maxTokens,
		Temperature: opts.Temperature,
	})
	if err != nil {
		return Response{}, &InvokeError{Retryable: false, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return Response{}, &InvokeError{Retryable: false, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Response{}, &InvokeError{Retryable: true, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, &InvokeError{Retryable: true, Err: err}
	}

	var parsed anthropicResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return Response{}, &InvokeError{Retryable: false, Err: fmt.Errorf("decode anthropic response: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		msg := fmt.Sprintf("anthropic status %d", resp.StatusCode)
		if parsed.Error != nil {
			msg = parsed.Error.Message
		}
		retryable := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		return Response{}, &InvokeError{Retryable: retryable, Err: fmt.Errorf("%s", msg)}
	}

	var text string
	for _, block := range parsed.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}

	return Response{
		Content: text,
		Model:   parsed.Model,
		Usage: Usage{
			InputTokens:  parsed.Usage.InputTokens,
			OutputTokens: parsed.Usage.OutputTokens,
		},
	}, nil
}
