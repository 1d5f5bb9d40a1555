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

// OllamaClient implements Client against a local Ollama server. Ollama
// doesn't report prompt/completion token counts the way hosted providers
// do, so usage is estimated with EstimateMessageTokens/EstimateTokens.
type OllamaClient struct {
	model       string
	host        string
	httpClient  *http.Client
	maxAttempts int
	baseDelay   time.Duration
}

func NewOllamaClient(model, host string) *OllamaClient {
	if host == "" {
		host = "http://localhost:11434"
	}
	return &OllamaClient{
		model:       model,
		host:        host,
		httpClient:  &http.Client{Timeout: 180 * time.Second},
		maxAttempts: 2,
		baseDelay:   time.Second,
	}
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  ollamaOptions   `json:"options,omitempty"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaResponse struct {
	Model   string        `json:"model"`
	Message ollamaMessage `json:"message"`
	Done    bool          `json:"done"`
}

func (c *OllamaClient) ModelName() string { return c.model }

func (c *OllamaClient) Invoke(ctx context.Context, messages []Message, opts Options) (Response, error) {
	return WithRetry(ctx, c.maxAttempts, c.baseDelay, func() (Response, error) {
		return c.attempt(ctx, messages, opts)
	})
}

func (c *OllamaClient) attempt(ctx context.Context, messages []Message, opts Options) (Response, error) {
	chatMessages := make([]ollamaMessage, 0, len(messages))
	for _, m := range messages {
		chatMessages = append(chatMessages, ollamaMessage{Role: string(m.Role), Content: m.Content})
	}

	model := c.model
	if opts.Model != "" {
		model = opts.Model
	}

	body, err := json.Marshal(ollamaRequest{
		Model:    model,
		Messages: chatMessages,
		Stream:   false,
		Options: ollamaOptions{
			Temperature: opts.Temperature,
			NumPredict:  opts.MaxTokens,
		},
	})
	if err != nil {
		return Response{}, &InvokeError{Retryable: false, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return Response{}, &InvokeError{Retryable: false, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Response{}, &InvokeError{Retryable: true, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, &InvokeError{Retryable: true, Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		retryable := resp.StatusCode >= 500
		return Response{}, &InvokeError{Retryable: retryable, Err: fmt.Errorf("ollama status %d: %s", resp.StatusCode, string(raw))}
	}

	var parsed ollamaResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return Response{}, &InvokeError{Retryable: false, Err: fmt.Errorf("decode ollama response: %w", err)}
	}

	return Response{
		Content: parsed.Message.Content,
		Model:   parsed.Model,
		Usage: Usage{
			InputTokens:  EstimateMessageTokens(messages),
			OutputTokens: EstimateTokens(parsed.Message.Content),
		},
	}, nil
}
