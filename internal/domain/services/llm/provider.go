package llm

import (
	"context"

	"diagramgen/internal/domain/models"
)

// ChatRequest is a single chat completion call to one provider.
type ChatRequest struct {
	Model       string
	Messages    []models.ConversationTurn
	Temperature float32
}

// ChatClient talks to one OpenAI-compatible backend.
type ChatClient interface {
	// Complete performs a buffered call and returns choices[0].message.content.
	// Returns ErrEmptyContent if the response carried no choices.
	Complete(ctx context.Context, req *ChatRequest) (string, error)

	// Stream opens a streaming call.
	Stream(ctx context.Context, req *ChatRequest) (ChatStream, error)
}

// ChatStream is an open streaming response.
type ChatStream interface {
	// Recv returns the content delta of the next choice-bearing chunk.
	// Malformed chunks are skipped. Returns io.EOF after the end marker.
	Recv() (string, error)

	// Close releases the underlying connection.
	Close() error
}

// ClientFactory resolves the ChatClient for a provider record.
type ClientFactory interface {
	ClientFor(provider models.ProviderRecord) (ChatClient, error)
}
