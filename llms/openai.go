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

// OpenAIClient implements Client against the OpenAI-compatible chat
// completions API (also used by many local/self-hosted servers).
type OpenAIClient struct {
	apiKey      string
	model       string
	host        string
	httpClient  *http.Client
	maxAttempts int
	baseDelay   time.Duration
}

func NewOpenAIClient(apiKey, model, host string) *OpenAIClient {
	if host == "" {
		host = "https://api.openai.com"
	}
	return &OpenAIClient{
		apiKey:      apiKey,
		model:       model,
		host:        host,
		httpClient:  &http.Client{Timeout: 120 * time.Second},
		maxAttempts: 3,
		baseDelay:   500 * time.Millisecond,
	}
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	Temperature float64         `json:"temperature,omitempty"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
}

type openAIUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

type openAIChoice struct {
	Message openAIMessage `json:"message"`
}

type openAIErrorBody struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

type openAIResponse struct {
	Model   string          `json:"model"`
	Choices []openAIChoice  `json:"choices"`
	Usage   openAIUsage     `json:"usage"`
	Error   *openAIErrorBody `json:"error,omitempty"`
}

func (c *OpenAIClient) ModelName() string { return c.model }

func (c *OpenAIClient) Invoke(ctx context.Context, messages []Message, opts Options) (Response, error) {
	return WithRetry(ctx, c.maxAttempts, c.baseDelay, func() (Response, error) {
		return c.attempt(ctx, messages, opts)
	})
}

func (c *OpenAIClient) attempt(ctx context.Context, messages []Message, opts Options) (Response, error) {
	chatMessages := make([]openAIMessage, 0, len(messages))
	for _, m := range messages {
		chatMessages = append(chatMessages, openAIMessage{Role: string(m.Role), Content: m.Content})
	}

	model := c.model
	if opts.Model != "" {
		model = opts.Model
	}

	body, err := json.Marshal(openAIRequest{
		Model:       model,
		Messages:    chatMessages,
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
	})
	if err != nil {
		return Response{}, &InvokeError{Retryable: false, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return Response{}, &InvokeError{Retryable: false, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Response{}, &InvokeError{Retryable: true, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, &InvokeError{Retryable: true, Err: err}
	}

	var parsed openAIResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return Response{}, &InvokeError{Retryable: false, Err: fmt.Errorf("decode openai response: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		msg := fmt.Sprintf("openai status %d", resp.StatusCode)
		if parsed.Error != nil {
			msg = parsed.Error.Message
		}
		retryable := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		return Response{}, &InvokeError{Retryable: retryable, Err: fmt.Errorf("%s", msg)}
	}

	if len(parsed.Choices) == 0 {
		return Response{}, &InvokeError{Retryable: false, Err: fmt.Errorf("openai response had no choices")}
	}

	return Response{
		Content: parsed.Choices[0].Message.Content,
		Model:   parsed.Model,
		Usage: Usage{
			InputTokens:  parsed.Usage.PromptTokens,
			OutputTokens: parsed.Usage.CompletionTokens,
		},
	}, nil
}
