package handler

import (
	"log/slog"
	"net/http"

	"diagramgen/internal/domain/models"
	"diagramgen/internal/domain/services"
	"diagramgen/internal/httputil"
)

// systemMask replaces the connection details of system provider records
const systemMask = "***system***"

// ProviderConfigHandler handles provider registry HTTP requests
type ProviderConfigHandler struct {
	registry services.ProviderRegistry
	logger   *slog.Logger
}

// NewProviderConfigHandler creates a new provider config handler
func NewProviderConfigHandler(registry services.ProviderRegistry, logger *slog.Logger) *ProviderConfigHandler {
	return &ProviderConfigHandler{
		registry: registry,
		logger:   logger,
	}
}

// UpdateProviderRequest is the PUT/PATCH body; absent fields are left alone
type UpdateProviderRequest struct {
	Name     httputil.Optional[string] `json:"name"`
	BaseURL  httputil.Optional[string] `json:"base_url"`
	APIKey   httputil.Optional[string] `json:"api_key"`
	Model    httputil.Optional[string] `json:"model"`
	Enabled  httputil.Optional[bool]   `json:"enabled"`
	Priority httputil.Optional[int]    `json:"priority"`
}

func (req *UpdateProviderRequest) toUpdate() *models.ProviderUpdate {
	return &models.ProviderUpdate{
		Name:     patch(req.Name),
		BaseURL:  patch(req.BaseURL),
		APIKey:   patch(req.APIKey),
		Model:    patch(req.Model),
		Enabled:  patch(req.Enabled),
		Priority: patch(req.Priority),
	}
}

func patch[T any](o httputil.Optional[T]) models.Patch[T] {
	return models.Patch[T]{Present: o.Present, Value: o.Value}
}

// masked hides base_url and api_key of system records
func masked(rec models.ProviderRecord) models.ProviderRecord {
	if rec.IsSystem {
		rec.BaseURL = systemMask
		rec.APIKey = systemMask
	}
	return rec
}

// ListConfigs returns every provider record in failover order
// GET /api/ai-configs
func (h *ProviderConfigHandler) ListConfigs(w http.ResponseWriter, r *http.Request) {
	records := h.registry.ListAll()
	configs := make([]models.ProviderRecord, len(records))
	for i, rec := range records {
		configs[i] = masked(rec)
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"total":   len(configs),
		"configs": configs,
	})
}

// GetConfig returns a single provider record
// GET /api/ai-configs/{id}
func (h *ProviderConfigHandler) GetConfig(w http.ResponseWriter, r *http.Request) {
	id, ok := PathParam(w, r, "id", "Config ID")
	if !ok {
		return
	}

	rec, err := h.registry.Get(id)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"config":  masked(*rec),
	})
}

// CreateConfig adds a provider record
// POST /api/ai-configs
func (h *ProviderConfigHandler) CreateConfig(w http.ResponseWriter, r *http.Request) {
	var req models.CreateProviderRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	rec, err := h.registry.Create(&req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"message": "config created",
		"config":  rec,
	})
}

// UpdateConfig applies a partial update
// PUT /api/ai-configs/{id}
// PATCH /api/ai-configs/{id}
func (h *ProviderConfigHandler) UpdateConfig(w http.ResponseWriter, r *http.Request) {
	id, ok := PathParam(w, r, "id", "Config ID")
	if !ok {
		return
	}

	var req UpdateProviderRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	rec, err := h.registry.Update(id, req.toUpdate())
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "config updated",
		"config":  masked(*rec),
	})
}

// DeleteConfig removes a provider record
// DELETE /api/ai-configs/{id}
func (h *ProviderConfigHandler) DeleteConfig(w http.ResponseWriter, r *http.Request) {
	id, ok := PathParam(w, r, "id", "Config ID")
	if !ok {
		return
	}

	if err := h.registry.Delete(id); err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "config deleted",
	})
}
