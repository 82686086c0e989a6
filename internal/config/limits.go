package config

const (
	// MaxProviderNameLength is the maximum length for provider names.
	// Names are also the keys callers use to skip providers.
	MaxProviderNameLength = 100

	// MaxDiagramNameLength is the maximum length for diagram names.
	// Limited to 255 to fit in PostgreSQL VARCHAR(255).
	MaxDiagramNameLength = 255

	// MaxPromptLength bounds a single user prompt in bytes.
	MaxPromptLength = 32 << 10
)
