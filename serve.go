package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/philippgille/chromem-go"
	"github.com/spf13/cobra"

	"github.com/xiaot623/entertainbot/internal/adapter/httpclient"
	"github.com/xiaot623/entertainbot/internal/adapter/jikan"
	"github.com/xiaot623/entertainbot/internal/adapter/llm"
	"github.com/xiaot623/entertainbot/internal/adapter/openlibrary"
	"github.com/xiaot623/entertainbot/internal/adapter/tvmaze"
	"github.com/xiaot623/entertainbot/internal/config"
	"github.com/xiaot623/entertainbot/internal/contextstore"
	"github.com/xiaot623/entertainbot/internal/convlog"
	"github.com/xiaot623/entertainbot/internal/logging"
	"github.com/xiaot623/entertainbot/internal/policy"
	"github.com/xiaot623/entertainbot/internal/prompts"
	"github.com/xiaot623/entertainbot/internal/repository"
	"github.com/xiaot623/entertainbot/internal/service"
	"github.com/xiaot623/entertainbot/internal/tools"
	handler "github.com/xiaot623/entertainbot/internal/transport/http"
	"github.com/xiaot623/entertainbot/internal/transport/ws"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP and WebSocket chat server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}
	logger := logging.Setup(os.Stderr, cfg.LogLevel, cfg.LogFormat)

	logger.Info("server_starting",
		"port", cfg.HTTPPort,
		"model", cfg.OpenRouterModel,
		"database", cfg.DatabasePath,
		"llm_mode", cfg.LLMMode,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.close()

	go a.svc.RunSessionSweeper(ctx, cfg.SessionSweepInterval, cfg.SessionTTL)

	errCh := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		if err := a.server.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	logger.Info("server_started", "port", cfg.HTTPPort)

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	}

	logger.Info("server_shutting_down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server_shutdown_failed", "error", err)
	}

	logger.Info("server_stopped")
	return nil
}

type app struct {
	svc    *service.Service
	server *echo.Echo
	store  *repository.SQLiteStore
}

func (a *app) close() {
	if a.store != nil {
		a.store.Close()
	}
}

// buildApp wires the adapters, tool router, LLM client, stores and
// transports from cfg.
func buildApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{}

	if cfg.ConversationLogEnabled {
		if dir := filepath.Dir(cfg.DatabasePath); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
		store, err := repository.NewSQLiteStore(cfg.DatabasePath)
		if err != nil {
			return nil, err
		}
		a.store = store
	}

	// Content APIs
	clientLogger := logging.Component(logger, "httpclient")
	newHTTPClient := func(name, baseURL string, rateLimit time.Duration) *httpclient.Client {
		return httpclient.New(httpclient.Config{
			Name:       name,
			BaseURL:    baseURL,
			RateLimit:  rateLimit,
			Timeout:    cfg.HTTPTimeout,
			MaxRetries: cfg.HTTPMaxRetries,
			CacheTTL:   cfg.CacheTTL,
			CacheSize:  cfg.CacheMaxSize,
			Logger:     clientLogger,
		})
	}
	anime := jikan.New(newHTTPClient("jikan", cfg.JikanBaseURL, cfg.JikanRateLimit))
	tv := tvmaze.New(newHTTPClient("tvmaze", cfg.TVMazeBaseURL, cfg.TVMazeRateLimit))
	books := openlibrary.New(newHTTPClient("openlibrary", cfg.OpenLibraryBaseURL, cfg.OpenLibraryRateLimit))

	// Tools
	registry, err := tools.NewRegistry(tools.Builtin(anime, tv, books)...)
	if err != nil {
		a.close()
		return nil, err
	}
	defs, err := tools.Definitions()
	if err != nil {
		a.close()
		return nil, err
	}
	if err := tools.CheckDefinitions(defs, registry); err != nil {
		a.close()
		return nil, err
	}
	engine, err := policy.NewEngine(ctx, policy.DefaultPolicy)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("failed to initialize policy engine: %w", err)
	}
	router := tools.NewRouter(registry,
		tools.WithGate(engine, cfg.DisabledTools),
		tools.WithLogger(logging.Component(logger, "tools")),
	)

	// LLM
	llmClient := llm.NewClient(cfg.LLMMode, llm.Config{
		APIKey:      cfg.OpenRouterAPIKey,
		Model:       cfg.OpenRouterModel,
		BaseURL:     cfg.OpenRouterBaseURL,
		Timeout:     cfg.HTTPTimeout,
		MaxRetries:  cfg.HTTPMaxRetries,
		Temperature: float32(cfg.LLMTemperature),
		MaxTokens:   cfg.LLMMaxTokens,
		Referer:     cfg.SiteURL,
		Title:       cfg.AppName,
		Logger:      logging.Component(logger, "llm"),
	})

	deps := service.Deps{
		Sessions: service.NewSessionStore(cfg.MaxConversationHistory, prompts.System(), logging.Component(logger, "sessions")),
		LLM:      llmClient,
		Router:   router,
		Tools:    defs,
		Logger:   logging.Component(logger, "service"),
		Dependencies: []service.Dependency{
			{Name: "jikan_api", Checker: anime},
			{Name: "tvmaze_api", Checker: tv},
			{Name: "openlibrary_api", Checker: books},
		},
	}

	if cfg.ConversationLogEnabled {
		deps.ConvLog = convlog.New(a.store, router.ClientFor, logging.Component(logger, "convlog"))
	}

	if cfg.ContextEnabled {
		store, err := newContextStore(cfg, logging.Component(logger, "contextstore"))
		if err != nil {
			a.close()
			return nil, err
		}
		deps.Context = store
	}

	a.svc = service.New(deps, service.Options{
		MaxToolIterations:   cfg.MaxToolIterations,
		ContextMaxResults:   cfg.ContextMaxResults,
		ContextCrossSession: cfg.ContextCrossSession,
	})

	wsServer := ws.NewServer(ws.Config{MaxMessageSize: cfg.WSMaxMessageSize}, a.svc, logging.Component(logger, "ws"))
	a.server = handler.NewServer(a.svc, wsServer, logging.Component(logger, "http"))
	return a, nil
}

// newContextStore opens the vector index under ContextDBPath, or in memory
// when the path is empty.
func newContextStore(cfg *config.Config, logger *slog.Logger) (*contextstore.Store, error) {
	db := chromem.NewDB()
	if cfg.ContextDBPath != "" {
		var err error
		db, err = chromem.NewPersistentDB(cfg.ContextDBPath, false)
		if err != nil {
			return nil, fmt.Errorf("failed to open context index: %w", err)
		}
	}
	return contextstore.New(db, newEmbedder(cfg), contextstore.Config{
		MaxResults: cfg.ContextMaxResults,
		Threshold:  cfg.ContextSimilarityThreshold,
		Logger:     logger,
	})
}

func newEmbedder(cfg *config.Config) contextstore.Embedder {
	if cfg.EmbeddingProvider == "openai" {
		return contextstore.NewOpenAIEmbedder(cfg.OpenRouterAPIKey, cfg.EmbeddingBaseURL, cfg.EmbeddingModel)
	}
	return contextstore.NewHashEmbedder(cfg.EmbeddingDimensions)
}
