package models

// Generation stream event types
const (
	EventStart            = "start"
	EventSkip             = "skip"
	EventContent          = "content"
	EventError            = "error"
	EventComplete         = "complete"
	EventValidationFailed = "validation_failed"
	EventFailed           = "failed"
)

// GenerationEvent is one event of a streaming generation.
// Only the fields relevant to Type are set.
type GenerationEvent struct {
	Type string `json:"type"`

	// Provider is set on start and skip.
	Provider string `json:"api,omitempty"`

	// Fragment is the incremental model output of a content event.
	Fragment string `json:"content,omitempty"`

	// Document, ProviderUsed and History are set on complete.
	Document     string             `json:"xml,omitempty"`
	ProviderUsed string             `json:"api_used,omitempty"`
	History      []ConversationTurn `json:"messages,omitempty"`

	// Message is a human readable description for error, validation_failed and failed.
	Message string `json:"message,omitempty"`

	// Reason is the structural validation reason of validation_failed.
	Reason string `json:"error,omitempty"`

	// LastError is the last per-provider error of failed.
	LastError string `json:"last_error,omitempty"`
}

// IsTerminal reports whether the event ends a generation stream.
func (e GenerationEvent) IsTerminal() bool {
	switch e.Type {
	case EventComplete, EventValidationFailed, EventFailed:
		return true
	}
	return false
}
