package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"diagramgen/internal/config"
	"diagramgen/internal/domain"
	"diagramgen/internal/domain/models"
	llmSvc "diagramgen/internal/domain/services/llm"
	"diagramgen/internal/handler/sse"
	"diagramgen/internal/httputil"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// GenerateHandler handles diagram generation and provider probing
type GenerateHandler struct {
	generation llmSvc.GenerationService
	sseConfig  *sse.Config
	logger     *slog.Logger
}

// NewGenerateHandler creates a new generation handler. sseConfig may be nil.
func NewGenerateHandler(generation llmSvc.GenerationService, sseConfig *sse.Config, logger *slog.Logger) *GenerateHandler {
	if sseConfig == nil {
		sseConfig = sse.DefaultConfig()
	}
	return &GenerateHandler{
		generation: generation,
		sseConfig:  sseConfig,
		logger:     logger,
	}
}

type generateResponse struct {
	XML      string                    `json:"xml"`
	Prompt   string                    `json:"prompt"`
	APIUsed  string                    `json:"api_used"`
	Messages []models.ConversationTurn `json:"messages"`
}

// Generate runs the buffered pipeline
// POST /api/generate-diagram
func (h *GenerateHandler) Generate(w http.ResponseWriter, r *http.Request) {
	req, ok := h.parseRequest(w, r)
	if !ok {
		return
	}

	result, err := h.generation.Generate(r.Context(), req)
	if err != nil {
		if clientGone(r, err) {
			h.logger.Info("client went away during generation", "client_ip", httputil.ClientIP(r))
			return
		}
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, generateResponse{
		XML:      result.Document,
		Prompt:   req.Prompt,
		APIUsed:  result.ProviderUsed,
		Messages: result.History,
	})
}

// Stream runs the pipeline and relays its events over SSE
// POST /api/generate-diagram-stream
func (h *GenerateHandler) Stream(w http.ResponseWriter, r *http.Request) {
	req, ok := h.parseRequest(w, r)
	if !ok {
		return
	}

	writer, err := sse.NewWriter(w)
	if err != nil {
		h.logger.Error("response does not support streaming", "error", err)
		httputil.RespondError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	clientIP := httputil.ClientIP(r)
	h.logger.Info("SSE generation started", "client_ip", clientIP, "history", len(req.History))

	keepAlive := sse.NewTickerKeepAlive(h.sseConfig.KeepAliveInterval)
	keepAliveStopped := keepAlive.Start(writer, h.logger)
	defer keepAlive.Stop()

	events := h.generation.Stream(r.Context(), req)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				h.logger.Debug("event channel closed, ending stream", "client_ip", clientIP)
				return
			}
			if err := writer.WriteEvent(ev.Type, ev); err != nil {
				h.logger.Info("client disconnected during event write", "client_ip", clientIP, "error", err)
				return
			}
			if ev.IsTerminal() {
				h.logger.Info("SSE generation finished", "client_ip", clientIP, "event", ev.Type)
			}

		case <-keepAliveStopped:
			h.logger.Info("client disconnected during keepalive", "client_ip", clientIP)
			return

		case <-r.Context().Done():
			h.logger.Info("client disconnected", "client_ip", clientIP)
			return
		}
	}
}

// TestProviders probes every enabled provider
// GET /api/test-ai
func (h *GenerateHandler) TestProviders(w http.ResponseWriter, r *http.Request) {
	results := h.generation.Probe(r.Context())
	if results == nil {
		results = []llmSvc.ProbeResult{}
	}
	httputil.RespondJSON(w, http.StatusOK, map[string]any{
		"test_results": results,
	})
}

func (h *GenerateHandler) parseRequest(w http.ResponseWriter, r *http.Request) (*models.GenerationRequest, bool) {
	var req models.GenerationRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return nil, false
	}

	req.Prompt = strings.TrimSpace(req.Prompt)
	if err := validateGenerationRequest(&req); err != nil {
		handleError(w, err)
		return nil, false
	}
	return &req, true
}

func validateGenerationRequest(req *models.GenerationRequest) error {
	err := validation.ValidateStruct(req,
		validation.Field(&req.Prompt, validation.Required, validation.RuneLength(1, config.MaxPromptLength)),
		validation.Field(&req.History, validation.Each(validation.By(conversationTurn))),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	return nil
}

func conversationTurn(value interface{}) error {
	turn, ok := value.(models.ConversationTurn)
	if !ok {
		return validation.NewError("validation_invalid_turn", "must be a conversation turn")
	}
	return validation.Validate(turn.Role, validation.Required, validation.In(models.RoleUser, models.RoleAssistant))
}
