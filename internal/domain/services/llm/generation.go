package llm

import (
	"context"

	"diagramgen/internal/domain/models"
)

// GenerationService runs the failover pipeline.
type GenerationService interface {
	// Generate returns the first valid document, or a *ValidationFailure or
	// *ExhaustedError.
	Generate(ctx context.Context, req *models.GenerationRequest) (*models.GenerationResult, error)

	// Stream runs the same pipeline and relays progress as events. The channel
	// is closed after the terminal event or when ctx is cancelled.
	Stream(ctx context.Context, req *models.GenerationRequest) <-chan models.GenerationEvent

	// Probe sends a short greeting to every enabled provider.
	Probe(ctx context.Context) []ProbeResult
}

// ProbeResult is the outcome of probing one provider.
type ProbeResult struct {
	Provider        string `json:"api"`
	Status          string `json:"status"`
	StatusCode      int    `json:"status_code,omitempty"`
	ResponsePreview string `json:"response_preview,omitempty"`
	Error           string `json:"error,omitempty"`
	ErrorType       string `json:"error_type,omitempty"`
}
