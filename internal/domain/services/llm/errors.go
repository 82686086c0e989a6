package llm

import (
	"errors"
	"fmt"
)

// ErrEmptyContent means a provider answered without any content at all.
// It is retried on the next provider like a transport error.
var ErrEmptyContent = errors.New("provider returned no content")

// TransportError wraps timeouts, connection failures, non-2xx responses and
// malformed response bodies from one provider.
type TransportError struct {
	Provider   string
	StatusCode int // 0 when no HTTP response was received
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ValidationFailure ends a generation when a provider's document fails the
// structural checks. Later providers are not tried.
type ValidationFailure struct {
	Provider string
	Reason   string
}

func (e *ValidationFailure) Error() string {
	return fmt.Sprintf("validation failed for %s: %s", e.Provider, e.Reason)
}

// ExhaustedError means no provider produced a document.
type ExhaustedError struct {
	LastError string
}

func (e *ExhaustedError) Error() string {
	return "all providers failed: " + e.LastError
}
