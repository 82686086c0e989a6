package generation

import (
	"context"
	"errors"
	"io"
	"strings"

	"diagramgen/internal/domain/models"
	llmSvc "diagramgen/internal/domain/services/llm"
)

// emitFunc delivers one event; it returns false once the caller has gone away.
type emitFunc func(models.GenerationEvent) bool

// Stream runs the pipeline with a streamed call per provider. The returned
// channel is unbuffered and closed after the terminal event, or early when
// ctx is cancelled.
func (e *Executor) Stream(ctx context.Context, req *models.GenerationRequest) <-chan models.GenerationEvent {
	events := make(chan models.GenerationEvent)

	emit := func(ev models.GenerationEvent) bool {
		select {
		case events <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}

	go func() {
		defer close(events)
		e.runStream(ctx, req, emit)
	}()

	return events
}

func (e *Executor) runStream(ctx context.Context, req *models.GenerationRequest, emit emitFunc) {
	messages := e.buildMessages(req)
	lastErr := noProvidersAvailable

	for i, p := range e.registry.ListEnabledOrdered() {
		if req.Excludes(p.Name) {
			if !emit(models.GenerationEvent{Type: models.EventSkip, Provider: p.Name}) {
				return
			}
			continue
		}

		if !emit(models.GenerationEvent{Type: models.EventStart, Provider: p.Name}) {
			return
		}

		e.logger.Info("streaming from provider", "provider", p.Name, "index", i, "model", p.Model)
		raw, err := e.relay(ctx, p, messages, emit)
		if err != nil {
			if ctx.Err() != nil {
				e.logger.Info("stream cancelled by caller", "provider", p.Name)
				return
			}
			lastErr = e.describe(p, err, e.opts.StreamTimeout)
			e.logger.Warn("provider stream failed", "provider", p.Name, "index", i, "error", lastErr)
			if !emit(models.GenerationEvent{Type: models.EventError, Message: lastErr}) {
				return
			}
			continue
		}

		result, vf := e.finalize(p, req, raw)
		if vf != nil {
			emit(models.GenerationEvent{
				Type:    models.EventValidationFailed,
				Message: "validation failed: " + vf.Reason,
				Reason:  vf.Reason,
			})
			return
		}

		emit(models.GenerationEvent{
			Type:         models.EventComplete,
			Document:     result.Document,
			ProviderUsed: result.ProviderUsed,
			History:      result.History,
		})
		return
	}

	exhausted := &llmSvc.ExhaustedError{LastError: lastErr}
	e.logger.Warn("stream exhausted providers", "last_error", lastErr)
	emit(models.GenerationEvent{
		Type:      models.EventFailed,
		Message:   exhausted.Error(),
		LastError: lastErr,
	})
}

// relay forwards each non-empty fragment as a content event while
// accumulating the full text. A stream that ends without any choice-bearing
// chunk is ErrEmptyContent.
func (e *Executor) relay(ctx context.Context, p models.ProviderRecord, messages []models.ConversationTurn, emit emitFunc) (string, error) {
	client, err := e.clients.ClientFor(p)
	if err != nil {
		return "", err
	}

	callCtx, cancel := context.WithTimeout(ctx, e.opts.StreamTimeout)
	defer cancel()

	stream, err := client.Stream(callCtx, &llmSvc.ChatRequest{
		Model:       p.Model,
		Messages:    messages,
		Temperature: e.opts.Temperature,
	})
	if err != nil {
		return "", err
	}
	defer stream.Close()

	var (
		text      strings.Builder
		gotChoice bool
	)
	for {
		frag, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}

		gotChoice = true
		if frag == "" {
			continue
		}
		text.WriteString(frag)
		if !emit(models.GenerationEvent{Type: models.EventContent, Fragment: frag}) {
			return "", ctx.Err()
		}
	}

	if !gotChoice {
		return "", llmSvc.ErrEmptyContent
	}
	return text.String(), nil
}
