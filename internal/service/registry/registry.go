package registry

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strconv"
	"sync"

	"diagramgen/internal/config"
	"diagramgen/internal/domain"
	"diagramgen/internal/domain/models"
	"diagramgen/internal/domain/services"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Registry is the in-process store of provider records.
// Records are never mutated in place; writes swap in a new value under the lock.
type Registry struct {
	mu      sync.RWMutex
	records map[string]models.ProviderRecord
	nextID  uint64
	nextSeq uint64
	logger  *slog.Logger
}

var _ services.ProviderRegistry = (*Registry)(nil)

// New creates an empty registry
func New(logger *slog.Logger) *Registry {
	return &Registry{
		records: make(map[string]models.ProviderRecord),
		logger:  logger,
	}
}

// ListEnabledOrdered returns the enabled records, lowest priority first
func (r *Registry) ListEnabledOrdered() []models.ProviderRecord {
	all := r.ListAll()
	enabled := all[:0]
	for _, rec := range all {
		if rec.Enabled {
			enabled = append(enabled, rec)
		}
	}
	return enabled
}

// ListAll returns every record, lowest priority first, ties by insertion order
func (r *Registry) ListAll() []models.ProviderRecord {
	r.mu.RLock()
	out := make([]models.ProviderRecord, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, rec)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority < out[j].Priority
		}
		return out[i].Seq < out[j].Seq
	})
	return out
}

// Get retrieves a record by ID
func (r *Registry) Get(id string) (*models.ProviderRecord, error) {
	r.mu.RLock()
	rec, ok := r.records[id]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("provider %s: %w", id, domain.ErrNotFound)
	}
	return &rec, nil
}

// Create adds a non-system record. Enabled defaults to true.
func (r *Registry) Create(req *models.CreateProviderRequest) (*models.ProviderRecord, error) {
	if err := validateCreate(req); err != nil {
		return nil, err
	}

	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}

	rec := r.insert(models.ProviderRecord{
		Name:     req.Name,
		BaseURL:  req.BaseURL,
		APIKey:   req.APIKey,
		Model:    req.Model,
		Enabled:  enabled,
		Priority: req.Priority,
	})

	r.logger.Info("provider created", "id", rec.ID, "name", rec.Name, "priority", rec.Priority)
	return &rec, nil
}

// addSystem registers the protected bootstrap record
func (r *Registry) addSystem(rec models.ProviderRecord) models.ProviderRecord {
	rec.IsSystem = true
	return r.insert(rec)
}

func (r *Registry) insert(rec models.ProviderRecord) models.ProviderRecord {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	r.nextSeq++
	rec.ID = strconv.FormatUint(r.nextID, 10)
	rec.Seq = r.nextSeq
	r.records[rec.ID] = rec
	return rec
}

// Update applies a partial update. System records only accept enabled.
func (r *Registry) Update(id string, update *models.ProviderUpdate) (*models.ProviderRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.records[id]
	if !ok {
		return nil, fmt.Errorf("provider %s: %w", id, domain.ErrNotFound)
	}

	if current.IsSystem {
		var locked []string
		for _, f := range update.PresentFields() {
			if f != models.FieldEnabled {
				locked = append(locked, f)
			}
		}
		if len(locked) > 0 {
			return nil, &domain.ForbiddenFieldsError{ResourceID: id, Fields: locked}
		}
	}

	next, err := applyUpdate(current, update)
	if err != nil {
		return nil, err
	}
	if err := validateRecord(&next); err != nil {
		return nil, err
	}

	r.records[id] = next
	r.logger.Info("provider updated", "id", id, "fields", update.PresentFields())
	return &next, nil
}

// Delete removes a non-system record
func (r *Registry) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok {
		return fmt.Errorf("provider %s: %w", id, domain.ErrNotFound)
	}
	if rec.IsSystem {
		return fmt.Errorf("system provider %s cannot be deleted: %w", id, domain.ErrForbidden)
	}

	delete(r.records, id)
	r.logger.Info("provider deleted", "id", id, "name", rec.Name)
	return nil
}

// applyUpdate returns a copy of rec with the present fields replaced.
// Explicit nulls are rejected.
func applyUpdate(rec models.ProviderRecord, u *models.ProviderUpdate) (models.ProviderRecord, error) {
	var nulls []string
	setString := func(field string, p models.Patch[string], dst *string) {
		if !p.Present {
			return
		}
		if p.Value == nil {
			nulls = append(nulls, field)
			return
		}
		*dst = *p.Value
	}

	setString(models.FieldName, u.Name, &rec.Name)
	setString(models.FieldBaseURL, u.BaseURL, &rec.BaseURL)
	setString(models.FieldAPIKey, u.APIKey, &rec.APIKey)
	setString(models.FieldModel, u.Model, &rec.Model)

	if u.Enabled.Present {
		if u.Enabled.Value == nil {
			nulls = append(nulls, models.FieldEnabled)
		} else {
			rec.Enabled = *u.Enabled.Value
		}
	}
	if u.Priority.Present {
		if u.Priority.Value == nil {
			nulls = append(nulls, models.FieldPriority)
		} else {
			rec.Priority = *u.Priority.Value
		}
	}

	if len(nulls) > 0 {
		return rec, fmt.Errorf("%w: fields cannot be null: %v", domain.ErrValidation, nulls)
	}
	return rec, nil
}

func validateCreate(req *models.CreateProviderRequest) error {
	err := validation.ValidateStruct(req,
		validation.Field(&req.Name, validation.Required, validation.RuneLength(1, config.MaxProviderNameLength)),
		validation.Field(&req.BaseURL, validation.Required, validation.By(httpURL)),
		validation.Field(&req.Model, validation.Required),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	return nil
}

func validateRecord(rec *models.ProviderRecord) error {
	err := validation.ValidateStruct(rec,
		validation.Field(&rec.Name, validation.Required, validation.RuneLength(1, config.MaxProviderNameLength)),
		validation.Field(&rec.BaseURL, validation.Required, validation.By(httpURL)),
		validation.Field(&rec.Model, validation.Required),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	return nil
}

// httpURL requires an absolute http or https URL
func httpURL(value interface{}) error {
	s, _ := value.(string)
	u, err := url.Parse(s)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.New("must be an absolute http(s) URL")
	}
	return nil
}
