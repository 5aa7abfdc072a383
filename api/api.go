package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/minutes/pkg/broadcast"
	"github.com/papercomputeco/minutes/pkg/llm"
	"github.com/papercomputeco/minutes/pkg/prompt"
	"github.com/papercomputeco/minutes/pkg/storage"
	"github.com/papercomputeco/minutes/pkg/summary"
	"github.com/papercomputeco/minutes/pkg/transcript"
)

const shutdownTimeout = 5 * time.Second

// Ingestor accepts fragments from HTTP producers.
type Ingestor interface {
	Put(f transcript.Fragment)
	Len() int
}

// Deps are the running components the API exposes.
type Deps struct {
	Bus     Ingestor
	Driver  storage.Driver
	Loop    *summary.Loop
	Hub     *broadcast.Hub
	LLM     llm.Client
	Prompts *prompt.Store

	// MCP is mounted at /mcp when set.
	MCP http.Handler
}

// Server is the API server for controlling and observing a running
// summarizer.
type Server struct {
	config Config
	deps   Deps
	caps   llm.Caps
	logger *slog.Logger
	app    *fiber.App
	mux    *http.ServeMux
}

// NewServer creates a new API server.
// The components are injected so the API shares them with the summary loop.
func NewServer(config Config, deps Deps, logger *slog.Logger) (*Server, error) {
	if deps.Bus == nil {
		return nil, errors.New("fragment bus is required")
	}
	if deps.Driver == nil {
		return nil, errors.New("storage driver is required")
	}
	if deps.Loop == nil {
		return nil, errors.New("summary loop is required")
	}
	if deps.Hub == nil {
		return nil, errors.New("broadcast hub is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s := &Server{
		config: config,
		deps:   deps,
		logger: logger,
		app:    app,
		mux:    http.NewServeMux(),
	}
	if deps.LLM != nil {
		s.caps = llm.Capabilities(deps.LLM)
	}

	app.Get("/ping", s.handlePing)
	app.Get("/v1/status", s.handleStatus)
	app.Post("/v1/segments", s.handleIngest)
	app.Get("/v1/segments", s.handleListSegments)
	app.Get("/v1/summaries", s.handleListSummaries)
	app.Get("/v1/summary", s.handleCurrentSummary)
	app.Get("/v1/summarizer/state", s.handleGetState)
	app.Post("/v1/summarizer/state", s.handleSetState)
	app.Post("/v1/summarizer/flush", s.handleFlush)
	app.Get("/v1/model", s.handleGetModel)
	app.Post("/v1/model", s.handleSetModel)
	app.Post("/v1/prompt/reload", s.handleReloadPrompt)

	// Streaming routes need the raw net/http connection, so they bypass fiber.
	s.mux.HandleFunc("GET /v1/ws", s.handleWebSocket)
	s.mux.HandleFunc("GET /v1/events", s.handleEvents)
	if deps.MCP != nil {
		s.mux.Handle("/mcp", deps.MCP)
		s.mux.Handle("/mcp/", deps.MCP)
	}
	s.mux.Handle("/", adaptor.FiberApp(app))

	return s, nil
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Run serves on the configured address until ctx is done, then shuts down
// gracefully. Open streams observe ctx and end with it.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.config.ListenAddr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting API server", "listen", s.config.ListenAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("api server: %w", err)

	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		s.logger.Info("shutting down API server")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("api server shutdown: %w", err)
		}
		if err := s.app.Shutdown(); err != nil {
			s.logger.Warn("fiber shutdown", "error", err)
		}
		return nil
	}
}
