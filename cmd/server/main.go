package main

import (
	"context"
	"errors"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"diagramgen/internal/config"
	"diagramgen/internal/domain/repositories"
	"diagramgen/internal/handler"
	"diagramgen/internal/handler/sse"
	"diagramgen/internal/httputil"
	"diagramgen/internal/middleware"
	"diagramgen/internal/repository/memory"
	"diagramgen/internal/repository/postgres"
	serviceDiagram "diagramgen/internal/service/diagram"
	serviceLLM "diagramgen/internal/service/llm"
	"diagramgen/internal/service/registry"

	"github.com/joho/godotenv"
	"github.com/rs/cors"
)

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	// Load configuration
	cfg := config.Load()

	// Setup structured logging
	logLevel := slog.LevelInfo
	if cfg.Environment == "dev" {
		logLevel = slog.LevelDebug
	}

	var logOut io.Writer = os.Stdout
	if cfg.LogDir != "" {
		logFile, err := config.SetupLogFile(cfg.LogDir, cfg.LogMaxFiles)
		if err != nil {
			log.Fatalf("Failed to set up log file: %v", err)
		}
		defer logFile.Close()
		logOut = io.MultiWriter(os.Stdout, logFile)
	}

	logger := slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger) // Set as default logger

	logger.Info("server starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"table_prefix", cfg.TablePrefix,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Diagram storage: PostgreSQL when configured, otherwise in memory
	var diagramRepo repositories.DiagramRepository
	if cfg.DatabaseURL != "" {
		pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to create connection pool: %v", err)
		}
		defer pool.Close()

		repoConfig := &postgres.RepositoryConfig{
			Pool:   pool,
			Tables: postgres.NewTableNames(cfg.TablePrefix),
			Logger: logger,
		}
		if err := postgres.EnsureSchema(ctx, repoConfig); err != nil {
			log.Fatalf("Failed to ensure schema: %v", err)
		}
		diagramRepo = postgres.NewDiagramRepository(repoConfig)

		logger.Info("database connected",
			"max_conns", 25,
			"min_conns", 2,
		)
	} else {
		diagramRepo = memory.NewDiagramRepository()
		logger.Warn("DATABASE_URL not set - diagrams are kept in memory and lost on restart")
	}

	// Provider registry: system provider from env, extras from PROVIDERS_FILE
	providerRegistry := registry.New(logger)
	if err := registry.Bootstrap(providerRegistry, cfg); err != nil {
		log.Fatalf("Failed to bootstrap provider registry: %v", err)
	}

	// Setup LLM services (clients, system prompt, failover executor)
	llmServices, err := serviceLLM.SetupServices(providerRegistry, cfg, logger)
	if err != nil {
		log.Fatalf("Failed to setup LLM services: %v", err)
	}

	diagramService := serviceDiagram.NewService(diagramRepo, logger)

	// Create handlers
	handlers := handler.Handlers{
		Generate:  handler.NewGenerateHandler(llmServices.Generation, sse.DefaultConfig(), logger),
		Providers: handler.NewProviderConfigHandler(providerRegistry, logger),
		Diagrams:  handler.NewDiagramHandler(diagramService, logger),
	}

	trustedProxies, err := httputil.ParseTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		log.Fatalf("Invalid TRUSTED_PROXIES: %v", err)
	}
	rateLimiter := middleware.NewRateLimiter(ctx, cfg.RateLimitRPM, cfg.RateLimitBurst, trustedProxies, logger)
	if rateLimiter.Enabled() {
		logger.Info("rate limiting enabled", "rpm", cfg.RateLimitRPM, "burst", cfg.RateLimitBurst, "trusted_proxies", cfg.TrustedProxies)
	}

	logger.Info("services initialized")

	// Create HTTP router
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux, handlers, rateLimiter.Middleware)

	// Frontend bundle, if built
	if info, err := os.Stat(cfg.StaticDir); err == nil && info.IsDir() {
		mux.Handle("GET /", http.FileServer(http.Dir(cfg.StaticDir)))
		logger.Info("serving static files", "dir", cfg.StaticDir)
	}

	// Build middleware chain
	// Order: CORS → Recovery → Routes
	var h http.Handler = mux
	h = middleware.Recovery(logger)(h)

	origins := strings.Split(cfg.CORSOrigins, ",")
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Last-Event-ID"},
		AllowCredentials: cfg.CORSOrigins != "*",
	})
	h = corsHandler.Handler(h)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // Disabled to allow long-lived SSE streams
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", "port", cfg.Port)
		serverErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
	logger.Info("server stopped")
}
