// ABOUTME: Gateway assembles the store, hub, model client, tools, and HTTP API
// ABOUTME: Owns server lifecycle: listen, serve, graceful shutdown

package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/coursly/coursly-gateway/internal/config"
	"github.com/coursly/coursly-gateway/internal/httpapi"
	"github.com/coursly/coursly-gateway/internal/llm"
	"github.com/coursly/coursly-gateway/internal/mailer"
	"github.com/coursly/coursly-gateway/internal/orchestrator"
	"github.com/coursly/coursly-gateway/internal/realtime"
	"github.com/coursly/coursly-gateway/internal/store"
	"github.com/coursly/coursly-gateway/internal/tools"
)

// Gateway wires all components together and runs the HTTP server.
type Gateway struct {
	config *config.Config
	logger *slog.Logger

	store        *store.SQLiteStore
	hub          *realtime.Hub
	orchestrator *orchestrator.Orchestrator
	httpServer   *http.Server
}

// New creates a fully wired gateway from configuration.
func New(cfg *config.Config, logger *slog.Logger) (*Gateway, error) {
	if logger == nil {
		logger = slog.Default()
	}

	sqlStore, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	hub := realtime.NewHub(logger)
	wsHandler := realtime.NewHandler(hub, cfg.Realtime.AllowedOrigins, logger)

	notifier := mailer.New(mailer.Config{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
		To:       cfg.SMTP.To,
	}, logger)

	catalog, err := tools.NewCatalog(sqlStore, notifier, logger)
	if err != nil {
		_ = sqlStore.Close()
		return nil, fmt.Errorf("building tool catalog: %w", err)
	}

	var modelOpts []llm.OpenAIOption
	if cfg.OpenAI.Model != "" {
		modelOpts = append(modelOpts, llm.WithModel(cfg.OpenAI.Model))
	}
	if cfg.OpenAI.Endpoint != "" {
		modelOpts = append(modelOpts, llm.WithEndpoint(cfg.OpenAI.Endpoint))
	}
	model := llm.NewOpenAIClient(cfg.OpenAI.APIKey, modelOpts...)

	var orchOpts []orchestrator.Option
	if cfg.OpenAI.TurnTimeout > 0 {
		orchOpts = append(orchOpts, orchestrator.WithTurnTimeout(cfg.OpenAI.TurnTimeout))
	}
	orch := orchestrator.New(sqlStore, model, catalog, hub, logger, orchOpts...)

	api := httpapi.New(sqlStore, orch, wsHandler, notifier, logger)
	mux := http.NewServeMux()
	api.RegisterRoutes(mux)

	return &Gateway{
		config:       cfg,
		logger:       logger.With("component", "gateway"),
		store:        sqlStore,
		hub:          hub,
		orchestrator: orch,
		httpServer: &http.Server{
			Addr:              cfg.Server.HTTPAddr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}, nil
}

// Run starts the HTTP server and blocks until the context is canceled.
// Returns nil on graceful shutdown, or an error if the server fails.
func (g *Gateway) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", g.config.Server.HTTPAddr)
	if err != nil {
		return fmt.Errorf("listening on HTTP address: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		g.logger.Info("HTTP server listening", "addr", ln.Addr().String())
		if err := g.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("HTTP server: %w", err)
		}
	}()

	var serverErr error
	select {
	case <-ctx.Done():
		g.logger.Info("context canceled, initiating shutdown")
	case serverErr = <-errCh:
		g.logger.Error("server error", "error", serverErr)
	}

	shutdownErr := g.gracefulShutdown()

	if serverErr != nil {
		return serverErr
	}
	return shutdownErr
}

// gracefulShutdown performs shutdown with a fresh context and timeout.
// Uses context.Background() intentionally since the original context is already canceled.
func (g *Gateway) gracefulShutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return g.Shutdown(ctx)
}

// Shutdown stops the HTTP server, drains in-flight turns, and closes the
// store. Safe to call once.
func (g *Gateway) Shutdown(ctx context.Context) error {
	var errs []error

	if err := g.httpServer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("HTTP shutdown: %w", err))
	}

	// Stop accepting turns and wait for the queues to drain before the
	// store goes away underneath them.
	g.orchestrator.Close()

	if err := g.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("store close: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %v", errs)
	}

	g.logger.Info("gateway shut down cleanly")
	return nil
}
