package llm

import (
	"fmt"
	"log/slog"
	"net/http"

	"diagramgen/internal/config"
	"diagramgen/internal/domain/services"
	llmSvc "diagramgen/internal/domain/services/llm"
	"diagramgen/internal/service/llm/conversation"
	"diagramgen/internal/service/llm/generation"
	"diagramgen/internal/service/llm/providers/openaicompat"
)

// Services holds all LLM-related services
type Services struct {
	Generation llmSvc.GenerationService
}

// SetupServices wires the provider clients, system prompt and failover
// executor on top of the given registry.
func SetupServices(registry services.ProviderRegistry, cfg *config.Config, logger *slog.Logger) (*Services, error) {
	prompts, err := conversation.NewSystemPrompts(cfg.SystemPromptFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load system prompt: %w", err)
	}
	if cfg.SystemPromptFile != "" {
		logger.Info("system prompt loaded", "path", cfg.SystemPromptFile)
	}

	// Per-call deadlines come from the executor's contexts
	clients := openaicompat.NewFactory(&http.Client{}, logger)

	opts := generation.DefaultOptions()
	opts.Timeout = cfg.ProviderTimeout
	opts.StreamTimeout = cfg.ProviderStreamTimeout
	opts.Temperature = cfg.Temperature
	opts.ProbeConcurrency = cfg.ProbeConcurrency

	executor := generation.NewExecutor(registry, clients, prompts, opts, logger)

	enabled := registry.ListEnabledOrdered()
	if len(enabled) == 0 {
		logger.Warn("no enabled providers configured - generation requests will fail until one is added")
	} else {
		for i, p := range enabled {
			logger.Info("provider available", "name", p.Name, "model", p.Model, "priority", p.Priority, "index", i)
		}
	}

	return &Services{Generation: executor}, nil
}
