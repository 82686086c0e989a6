// Package generation runs the multi-provider failover pipeline that turns a
// prompt into a validated draw.io document.
package generation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"diagramgen/internal/domain/models"
	"diagramgen/internal/domain/services"
	llmSvc "diagramgen/internal/domain/services/llm"
	"diagramgen/internal/service/llm/conversation"
	"diagramgen/internal/service/llm/drawio"
)

const noProvidersAvailable = "no providers available"

// Options bounds provider calls.
type Options struct {
	Timeout          time.Duration // buffered call
	StreamTimeout    time.Duration // whole streamed call
	Temperature      float32
	ProbeTimeout     time.Duration
	ProbeConcurrency int
}

// DefaultOptions matches the service defaults.
func DefaultOptions() Options {
	return Options{
		Timeout:          60 * time.Second,
		StreamTimeout:    120 * time.Second,
		Temperature:      0.7,
		ProbeTimeout:     30 * time.Second,
		ProbeConcurrency: 4,
	}
}

// Executor tries enabled providers in priority order until one returns a
// document. Transport failures move on to the next provider; a document that
// fails validation ends the whole generation.
type Executor struct {
	registry services.ProviderRegistry
	clients  llmSvc.ClientFactory
	prompts  *conversation.SystemPrompts
	opts     Options
	logger   *slog.Logger
}

var _ llmSvc.GenerationService = (*Executor)(nil)

// NewExecutor creates a failover executor
func NewExecutor(
	registry services.ProviderRegistry,
	clients llmSvc.ClientFactory,
	prompts *conversation.SystemPrompts,
	opts Options,
	logger *slog.Logger,
) *Executor {
	return &Executor{
		registry: registry,
		clients:  clients,
		prompts:  prompts,
		opts:     opts,
		logger:   logger,
	}
}

// Generate runs the buffered pipeline
func (e *Executor) Generate(ctx context.Context, req *models.GenerationRequest) (*models.GenerationResult, error) {
	messages := e.buildMessages(req)
	lastErr := noProvidersAvailable

	for i, p := range e.registry.ListEnabledOrdered() {
		if req.Excludes(p.Name) {
			e.logger.Debug("provider skipped by caller", "provider", p.Name, "index", i)
			continue
		}

		e.logger.Info("calling provider", "provider", p.Name, "index", i, "model", p.Model, "history", len(req.History))
		raw, err := e.complete(ctx, p, messages)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = e.describe(p, err, e.opts.Timeout)
			e.logger.Warn("provider failed", "provider", p.Name, "index", i, "error", lastErr)
			continue
		}

		result, vf := e.finalize(p, req, raw)
		if vf != nil {
			return nil, vf
		}
		return result, nil
	}

	e.logger.Warn("generation exhausted providers", "last_error", lastErr)
	return nil, &llmSvc.ExhaustedError{LastError: lastErr}
}

func (e *Executor) complete(ctx context.Context, p models.ProviderRecord, messages []models.ConversationTurn) (string, error) {
	client, err := e.clients.ClientFor(p)
	if err != nil {
		return "", err
	}

	callCtx, cancel := context.WithTimeout(ctx, e.opts.Timeout)
	defer cancel()

	return client.Complete(callCtx, &llmSvc.ChatRequest{
		Model:       p.Model,
		Messages:    messages,
		Temperature: e.opts.Temperature,
	})
}

// finalize sanitizes and validates the provider's raw answer
func (e *Executor) finalize(p models.ProviderRecord, req *models.GenerationRequest, raw string) (*models.GenerationResult, *llmSvc.ValidationFailure) {
	doc := drawio.Sanitize(raw)
	if res := drawio.Validate(doc); !res.Valid {
		e.logger.Warn("document failed validation", "provider", p.Name, "reason", res.Reason, "bytes", len(raw))
		return nil, &llmSvc.ValidationFailure{Provider: p.Name, Reason: res.Reason}
	}

	e.logger.Info("document generated", "provider", p.Name, "bytes", len(doc))
	return &models.GenerationResult{
		Document:     doc,
		ProviderUsed: p.Name,
		History:      conversation.ExtendHistory(req.History, req.Prompt, doc),
	}, nil
}

func (e *Executor) buildMessages(req *models.GenerationRequest) []models.ConversationTurn {
	return conversation.BuildMessages(e.prompts.Resolve(req.SystemPrompt), req.History, req.Prompt)
}

// describe renders a per-provider failure as the "last error" text
func (e *Executor) describe(p models.ProviderRecord, err error, timeout time.Duration) string {
	var te *llmSvc.TransportError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Sprintf("%s: request timed out after %s", p.Name, timeout)
	case errors.As(err, &te):
		return te.Error()
	default:
		return fmt.Sprintf("%s: %v", p.Name, err)
	}
}
