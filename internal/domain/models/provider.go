package models

// Provider record field names, as they appear on the wire.
const (
	FieldName     = "name"
	FieldBaseURL  = "base_url"
	FieldAPIKey   = "api_key"
	FieldModel    = "model"
	FieldEnabled  = "enabled"
	FieldPriority = "priority"
)

// ProviderRecord is a configured OpenAI-compatible chat backend.
// Lower Priority values are tried first.
type ProviderRecord struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	BaseURL  string `json:"base_url"`
	APIKey   string `json:"api_key"`
	Model    string `json:"model"`
	Enabled  bool   `json:"enabled"`
	Priority int    `json:"priority"`
	IsSystem bool   `json:"is_system"`

	// Seq is the insertion sequence, used to break priority ties.
	Seq uint64 `json:"-"`
}

// CreateProviderRequest holds the fields of a new, non-system provider record.
type CreateProviderRequest struct {
	Name     string `json:"name" yaml:"name"`
	BaseURL  string `json:"base_url" yaml:"base_url"`
	APIKey   string `json:"api_key" yaml:"api_key"`
	Model    string `json:"model" yaml:"model"`
	Enabled  *bool  `json:"enabled,omitempty" yaml:"enabled"`
	Priority int    `json:"priority" yaml:"priority"`
}

// Patch is a single optional field of a partial update.
// This is transport-agnostic (no JSON tags) - handler maps from httputil.Optional.
//   - Present=false: field absent from request (don't change)
//   - Present=true, Value=nil: field was explicitly null
//   - Present=true, Value!=nil: field has a value
type Patch[T any] struct {
	Present bool
	Value   *T
}

// Set returns a present patch holding v.
func Set[T any](v T) Patch[T] {
	return Patch[T]{Present: true, Value: &v}
}

// ProviderUpdate is a partial update of a provider record.
type ProviderUpdate struct {
	Name     Patch[string]
	BaseURL  Patch[string]
	APIKey   Patch[string]
	Model    Patch[string]
	Enabled  Patch[bool]
	Priority Patch[int]
}

// PresentFields returns the wire names of every field present in the update,
// in declaration order. Explicit nulls count as present.
func (u *ProviderUpdate) PresentFields() []string {
	var fields []string
	if u.Name.Present {
		fields = append(fields, FieldName)
	}
	if u.BaseURL.Present {
		fields = append(fields, FieldBaseURL)
	}
	if u.APIKey.Present {
		fields = append(fields, FieldAPIKey)
	}
	if u.Model.Present {
		fields = append(fields, FieldModel)
	}
	if u.Enabled.Present {
		fields = append(fields, FieldEnabled)
	}
	if u.Priority.Present {
		fields = append(fields, FieldPriority)
	}
	return fields
}
