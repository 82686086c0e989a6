// Package openaicompat talks to OpenAI-compatible chat completion backends.
package openaicompat

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"diagramgen/internal/domain/models"
	llmSvc "diagramgen/internal/domain/services/llm"

	openai "github.com/sashabaranov/go-openai"
)

// Client is the ChatClient for one provider record.
type Client struct {
	provider string
	client   *openai.Client
	logger   *slog.Logger
}

// NewClient builds a client posting to {baseURL}/chat/completions.
// httpClient may be nil to use the library default.
func NewClient(rec models.ProviderRecord, httpClient *http.Client, logger *slog.Logger) *Client {
	cfg := openai.DefaultConfig(rec.APIKey)
	cfg.BaseURL = trimSlash(rec.BaseURL)
	if httpClient != nil {
		cfg.HTTPClient = httpClient
	}

	return &Client{
		provider: rec.Name,
		client:   openai.NewClientWithConfig(cfg),
		logger:   logger,
	}
}

// Complete performs a buffered chat completion
func (c *Client) Complete(ctx context.Context, req *llmSvc.ChatRequest) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, buildRequest(req, false))
	if err != nil {
		return "", c.transportError(err)
	}
	if len(resp.Choices) == 0 {
		return "", llmSvc.ErrEmptyContent
	}
	return resp.Choices[0].Message.Content, nil
}

// Stream opens a streaming chat completion
func (c *Client) Stream(ctx context.Context, req *llmSvc.ChatRequest) (llmSvc.ChatStream, error) {
	stream, err := c.client.CreateChatCompletionStream(ctx, buildRequest(req, true))
	if err != nil {
		return nil, c.transportError(err)
	}
	return &chatStream{client: c, stream: stream}, nil
}

func buildRequest(req *llmSvc.ChatRequest, stream bool) openai.ChatCompletionRequest {
	messages := make([]openai.ChatCompletionMessage, len(req.Messages))
	for i, m := range req.Messages {
		messages[i] = openai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
	}
	return openai.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    messages,
		Temperature: req.Temperature,
		Stream:      stream,
	}
}

// transportError attaches the provider name and HTTP status, when there is one
func (c *Client) transportError(err error) error {
	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}
	return &llmSvc.TransportError{Provider: c.provider, StatusCode: status, Err: err}
}

// chatStream yields the delta content of each choice-bearing chunk
type chatStream struct {
	client  *Client
	stream  *openai.ChatCompletionStream
	skipped int
}

func (s *chatStream) Recv() (string, error) {
	for {
		raw, err := s.stream.RecvRaw()
		if errors.Is(err, io.EOF) {
			if s.skipped > 0 {
				s.client.logger.Debug("skipped malformed stream chunks", "provider", s.client.provider, "count", s.skipped)
			}
			return "", io.EOF
		}
		if err != nil {
			return "", s.client.transportError(err)
		}

		var chunk openai.ChatCompletionStreamResponse
		if err := json.Unmarshal(raw, &chunk); err != nil {
			s.skipped++
			continue
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		return chunk.Choices[0].Delta.Content, nil
	}
}

func (s *chatStream) Close() error {
	return s.stream.Close()
}

func trimSlash(u string) string {
	for len(u) > 0 && u[len(u)-1] == '/' {
		u = u[:len(u)-1]
	}
	return u
}
