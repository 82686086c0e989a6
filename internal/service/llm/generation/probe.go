package generation

import (
	"context"
	"errors"
	"fmt"
	"net"

	"diagramgen/internal/domain/models"
	llmSvc "diagramgen/internal/domain/services/llm"

	"golang.org/x/sync/errgroup"
)

// Probe statuses
const (
	ProbeOK               = "ok"
	ProbeFailed           = "failed"
	ProbeTimeout          = "timeout"
	ProbeConnectionFailed = "connection_failed"
	ProbeError            = "error"
)

const (
	probePrompt     = "Hello"
	previewRunes    = 100
	errorTextLength = 200
)

// Probe sends a greeting to every enabled provider concurrently. Results keep
// the registry's priority order.
func (e *Executor) Probe(ctx context.Context) []llmSvc.ProbeResult {
	providers := e.registry.ListEnabledOrdered()
	results := make([]llmSvc.ProbeResult, len(providers))

	var g errgroup.Group
	limit := e.opts.ProbeConcurrency
	if limit <= 0 {
		limit = 1
	}
	g.SetLimit(limit)

	for i, p := range providers {
		g.Go(func() error {
			results[i] = e.probeOne(ctx, p)
			return nil
		})
	}
	g.Wait()

	return results
}

func (e *Executor) probeOne(ctx context.Context, p models.ProviderRecord) llmSvc.ProbeResult {
	result := llmSvc.ProbeResult{Provider: p.Name}

	client, err := e.clients.ClientFor(p)
	if err != nil {
		result.Status = ProbeError
		result.Error = err.Error()
		return result
	}

	callCtx, cancel := context.WithTimeout(ctx, e.opts.ProbeTimeout)
	defer cancel()

	content, err := client.Complete(callCtx, &llmSvc.ChatRequest{
		Model:    p.Model,
		Messages: []models.ConversationTurn{{Role: models.RoleUser, Content: probePrompt}},
	})

	var (
		te    *llmSvc.TransportError
		opErr *net.OpError
	)
	switch {
	case err == nil || errors.Is(err, llmSvc.ErrEmptyContent):
		result.Status = ProbeOK
		result.StatusCode = 200
		result.ResponsePreview = truncate(content, previewRunes)
	case errors.Is(err, context.DeadlineExceeded):
		result.Status = ProbeTimeout
		result.Error = fmt.Sprintf("request timed out after %s", e.opts.ProbeTimeout)
		result.ErrorType = "timeout"
	case errors.As(err, &te) && te.StatusCode != 0:
		result.Status = ProbeFailed
		result.StatusCode = te.StatusCode
		result.Error = truncate(te.Err.Error(), errorTextLength)
	case errors.As(err, &opErr):
		result.Status = ProbeConnectionFailed
		result.Error = opErr.Error()
		result.ErrorType = fmt.Sprintf("%T", opErr.Err)
	default:
		result.Status = ProbeError
		result.Error = truncate(err.Error(), errorTextLength)
		cause := err
		if inner := errors.Unwrap(err); inner != nil {
			cause = inner
		}
		result.ErrorType = fmt.Sprintf("%T", cause)
	}

	e.logger.Info("provider probed", "provider", p.Name, "status", result.Status, "status_code", result.StatusCode)
	return result
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
