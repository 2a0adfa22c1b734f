// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/clyqra/anthra/internal/api"
	"github.com/clyqra/anthra/internal/contextsvc"
	"github.com/clyqra/anthra/internal/docs"
	"github.com/clyqra/anthra/internal/mcpserver"
	"github.com/clyqra/anthra/internal/redact"
	"github.com/clyqra/anthra/internal/respond"
	"github.com/clyqra/anthra/internal/routing"
	"github.com/clyqra/anthra/internal/sse"
	"github.com/clyqra/anthra/internal/store"
)

type services struct {
	store     store.Store
	assembler *contextsvc.Assembler
	writer    *respond.Writer
	engine    *routing.Engine
	redactor  *redact.Redactor
	docs      *docs.Manager
}

func buildServices(cfg *Config) (*services, error) {
	db, err := store.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	lex := routing.DefaultLexicon()
	if cfg.Routing.LexiconPath != "" {
		lex, err = routing.LoadLexicon(cfg.Routing.LexiconPath)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("load lexicon: %w", err)
		}
	}

	names := redact.DefaultNames()
	if cfg.Redaction.NamesPath != "" {
		names, err = redact.LoadNames(cfg.Redaction.NamesPath)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("load redaction names: %w", err)
		}
	}

	return &services{
		store:     db,
		assembler: contextsvc.NewAssembler(db, nil),
		writer:    respond.NewWriter(db, nil),
		engine:    routing.NewEngine(lex, db),
		redactor:  redact.New(names),
		docs:      docs.NewManager(db, nil),
	}, nil
}

// Run starts the HTTP application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	svcs, err := buildServices(cfg)
	if err != nil {
		return err
	}
	defer svcs.store.Close()

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	// Build API handler and router.
	h := api.NewHandler(svcs.store, svcs.assembler, svcs.writer, svcs.engine, svcs.redactor, svcs.docs, broker)
	apiRouter := api.NewRouter(h, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Watch the lexicon file for edits when one is configured.
	if cfg.Routing.LexiconPath != "" {
		g.Go(func() error {
			return svcs.engine.Watch(gCtx, cfg.Routing.LexiconPath, logger)
		})
	}

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunMCP starts the MCP server on stdin/stdout with the given options.
// Logs go to stderr so they never corrupt the stdio transport.
func RunMCP(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	svcs, err := buildServices(cfg)
	if err != nil {
		return err
	}
	defer svcs.store.Close()

	srv := mcpserver.New(svcs.store, svcs.assembler, svcs.writer, svcs.engine, svcs.redactor, svcs.docs)

	logger.Info("Starting MCP server on stdio")
	if err := srv.ServeStdio(); err != nil {
		return fmt.Errorf("MCP server error: %w", err)
	}
	return nil
}
