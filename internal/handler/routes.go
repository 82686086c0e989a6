package handler

import "net/http"

// Handlers groups the HTTP handlers mounted by RegisterRoutes
type Handlers struct {
	Generate  *GenerateHandler
	Providers *ProviderConfigHandler
	Diagrams  *DiagramHandler
}

// RegisterRoutes mounts every API route on mux (Go 1.22+ enhanced patterns).
// limit wraps the generation endpoints; nil leaves them unwrapped.
func RegisterRoutes(mux *http.ServeMux, h Handlers, limit func(http.Handler) http.Handler) {
	if limit == nil {
		limit = func(next http.Handler) http.Handler { return next }
	}

	// Health check
	mux.HandleFunc("GET /health", h.Diagrams.Health)

	// Generation routes
	mux.Handle("POST /api/generate-diagram", limit(http.HandlerFunc(h.Generate.Generate)))
	mux.Handle("POST /api/generate-diagram-stream", limit(http.HandlerFunc(h.Generate.Stream))) // SSE streaming endpoint
	mux.Handle("GET /api/test-ai", limit(http.HandlerFunc(h.Generate.TestProviders)))

	// Provider config routes
	mux.HandleFunc("GET /api/ai-configs", h.Providers.ListConfigs)
	mux.HandleFunc("POST /api/ai-configs", h.Providers.CreateConfig)
	mux.HandleFunc("GET /api/ai-configs/{id}", h.Providers.GetConfig)
	mux.HandleFunc("PUT /api/ai-configs/{id}", h.Providers.UpdateConfig)
	mux.HandleFunc("PATCH /api/ai-configs/{id}", h.Providers.UpdateConfig)
	mux.HandleFunc("DELETE /api/ai-configs/{id}", h.Providers.DeleteConfig)

	// Diagram routes
	mux.HandleFunc("POST /api/save-diagram", h.Diagrams.SaveDiagram)
	mux.HandleFunc("GET /api/diagrams", h.Diagrams.ListDiagrams)
	mux.HandleFunc("GET /api/diagram/{id}", h.Diagrams.GetDiagram)
	mux.HandleFunc("PUT /api/diagram/{id}", h.Diagrams.UpdateDiagram)
	mux.HandleFunc("DELETE /api/diagram/{id}", h.Diagrams.DeleteDiagram)
}
