package handler

import (
	"log/slog"
	"net/http"

	"diagramgen/internal/domain/models"
	"diagramgen/internal/domain/services"
	"diagramgen/internal/httputil"
)

// DiagramHandler handles saved diagram HTTP requests
type DiagramHandler struct {
	diagramService services.DiagramService
	logger         *slog.Logger
}

// NewDiagramHandler creates a new diagram handler
func NewDiagramHandler(diagramService services.DiagramService, logger *slog.Logger) *DiagramHandler {
	return &DiagramHandler{
		diagramService: diagramService,
		logger:         logger,
	}
}

// SaveDiagram stores a new diagram
// POST /api/save-diagram
func (h *DiagramHandler) SaveDiagram(w http.ResponseWriter, r *http.Request) {
	var req services.SaveDiagramRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	diagram, err := h.diagramService.SaveDiagram(r.Context(), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]any{
		"id":      diagram.ID,
		"message": "saved",
		"name":    diagram.Name,
	})
}

// GetDiagram retrieves a diagram by ID
// GET /api/diagram/{id}
func (h *DiagramHandler) GetDiagram(w http.ResponseWriter, r *http.Request) {
	id, ok := PathParam(w, r, "id", "Diagram ID")
	if !ok {
		return
	}

	diagram, err := h.diagramService.GetDiagram(r.Context(), id)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, diagram)
}

// UpdateDiagram replaces a diagram's XML
// PUT /api/diagram/{id}
func (h *DiagramHandler) UpdateDiagram(w http.ResponseWriter, r *http.Request) {
	id, ok := PathParam(w, r, "id", "Diagram ID")
	if !ok {
		return
	}

	var req services.SaveDiagramRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	diagram, err := h.diagramService.UpdateDiagram(r.Context(), id, &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]any{
		"id":      diagram.ID,
		"message": "updated",
	})
}

// ListDiagrams returns summaries of all saved diagrams
// GET /api/diagrams
func (h *DiagramHandler) ListDiagrams(w http.ResponseWriter, r *http.Request) {
	diagrams, err := h.diagramService.ListDiagrams(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}
	if diagrams == nil {
		diagrams = []models.DiagramSummary{}
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]any{
		"total":    len(diagrams),
		"diagrams": diagrams,
	})
}

// DeleteDiagram removes a diagram
// DELETE /api/diagram/{id}
func (h *DiagramHandler) DeleteDiagram(w http.ResponseWriter, r *http.Request) {
	id, ok := PathParam(w, r, "id", "Diagram ID")
	if !ok {
		return
	}

	if err := h.diagramService.DeleteDiagram(r.Context(), id); err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]any{
		"message": "deleted",
	})
}

// Health reports liveness and the number of saved diagrams
// GET /health
func (h *DiagramHandler) Health(w http.ResponseWriter, r *http.Request) {
	count, err := h.diagramService.CountDiagrams(r.Context())
	if err != nil {
		h.logger.Error("failed to count diagrams", "error", err)
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]any{
		"status":         "healthy",
		"diagrams_count": count,
	})
}
