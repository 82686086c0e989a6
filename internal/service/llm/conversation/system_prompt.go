package conversation

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
)

//go:embed prompts/drawio_system.md
var defaultSystemPrompt string

// SystemPrompts picks the system prompt for a request.
type SystemPrompts struct {
	base string
}

// NewSystemPrompts loads the global prompt from path, or falls back to the
// embedded draw.io prompt when path is empty.
func NewSystemPrompts(path string) (*SystemPrompts, error) {
	if path == "" {
		return &SystemPrompts{base: defaultSystemPrompt}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read system prompt %s: %w", path, err)
	}
	prompt := strings.TrimSpace(string(data))
	if prompt == "" {
		return nil, fmt.Errorf("system prompt %s is empty", path)
	}
	return &SystemPrompts{base: prompt}, nil
}

// Resolve returns the per-request override when it is non-blank.
func (p *SystemPrompts) Resolve(override *string) string {
	if override != nil && strings.TrimSpace(*override) != "" {
		return *override
	}
	return p.base
}

// Default returns the global prompt.
func (p *SystemPrompts) Default() string {
	return p.base
}
