package models

// GenerationRequest is a caller's request for a new diagram.
type GenerationRequest struct {
	Prompt string `json:"prompt"`

	// History holds earlier user/assistant turns, oldest first.
	History []ConversationTurn `json:"messages"`

	// ExcludedProviders lists provider names the caller wants skipped.
	ExcludedProviders []string `json:"skip_apis"`

	// SystemPrompt overrides the default system prompt when non-empty.
	SystemPrompt *string `json:"system_prompt,omitempty"`
}

// Excludes reports whether the provider name was excluded by the caller.
func (r *GenerationRequest) Excludes(name string) bool {
	for _, n := range r.ExcludedProviders {
		if n == name {
			return true
		}
	}
	return false
}

// GenerationResult is a successful generation.
type GenerationResult struct {
	Document     string             `json:"xml"`
	ProviderUsed string             `json:"api_used"`
	History      []ConversationTurn `json:"messages"`
}

// ValidationResult is the outcome of a structural check.
type ValidationResult struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}
