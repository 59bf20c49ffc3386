// Package server exposes the alignment pipeline over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/m-mizutani/goerr/v2"

	"github.com/concordhq/concord/pkg/model"
	"github.com/concordhq/concord/pkg/usecase/reply"
	"github.com/concordhq/concord/pkg/utils/logging"
)

// Analyzer is the alignment check boundary consumed by handlers.
type Analyzer interface {
	Analyze(ctx context.Context, message string, history []model.ConversationTurn) (*model.AlignmentResult, error)
}

// Pinger reports whether the decision store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Config holds HTTP server configuration.
type Config struct {
	Addr string
}

// Server wires the two independent pipelines (teammate reply and alignment
// check) behind HTTP endpoints. The pipelines share no state; the chat
// handler fans them out concurrently and reconciles both results.
type Server struct {
	echo     *echo.Echo
	analyzer Analyzer
	replier  reply.Generator
	store    Pinger
	sessions *SessionTracker
	config   Config
}

func New(analyzer Analyzer, replier reply.Generator, store Pinger, cfg Config) (*Server, error) {
	if analyzer == nil {
		return nil, goerr.New("analyzer is required")
	}
	if store == nil {
		return nil, goerr.New("store is required")
	}
	if cfg.Addr == "" {
		cfg.Addr = "localhost:8080"
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			logging.From(c.Request().Context()).Info("http request",
				"method", c.Request().Method,
				"uri", c.Request().RequestURI,
				"status", c.Response().Status,
				"duration", time.Since(start),
				"request_id", c.Response().Header().Get(echo.HeaderXRequestID),
			)
			return err
		}
	})

	s := &Server{
		echo:     e,
		analyzer: analyzer,
		replier:  replier,
		store:    store,
		sessions: NewSessionTracker(),
		config:   cfg,
	}
	s.registerRoutes()

	return s, nil
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)

	v1 := s.echo.Group("/api/v1")
	v1.POST("/alignment", s.handleAlignment)
	v1.POST("/chat", s.handleChat)
}

// AlignmentRequest is the body of POST /api/v1/alignment.
type AlignmentRequest struct {
	Message string                   `json:"message"`
	History []model.ConversationTurn `json:"history"`
}

// ChatRequest is the body of POST /api/v1/chat. SessionID is optional; a new
// session is opened when it is absent.
type ChatRequest struct {
	SessionID *uuid.UUID               `json:"session_id"`
	Message   string                   `json:"message"`
	History   []model.ConversationTurn `json:"history"`
}

// ChatResponse carries both pipeline outcomes plus the session transition.
type ChatResponse struct {
	SessionID uuid.UUID              `json:"session_id"`
	Reply     string                 `json:"reply"`
	Alignment *model.AlignmentResult `json:"alignment"`
	State     State                  `json:"state"`
	Resolved  bool                   `json:"resolved"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

func (s *Server) handleHealth(c echo.Context) error {
	ctx := c.Request().Context()
	if err := s.store.Ping(ctx); err != nil {
		logging.From(ctx).Error("health check failed", "error", err)
		return c.JSON(http.StatusServiceUnavailable, HealthResponse{
			Status:   "unhealthy",
			Database: "unreachable",
		})
	}
	return c.JSON(http.StatusOK, HealthResponse{Status: "healthy", Database: "connected"})
}

// handleAlignment runs the bare pipeline and reports typed failures as 502.
func (s *Server) handleAlignment(c echo.Context) error {
	var req AlignmentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Message == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "message field is required")
	}

	result, err := s.analyzer.Analyze(c.Request().Context(), req.Message, req.History)
	if err != nil {
		logging.From(c.Request().Context()).Error("alignment check failed", "error", err)
		return echo.NewHTTPError(http.StatusBadGateway, errorKind(err))
	}

	return c.JSON(http.StatusOK, result)
}

// handleChat fans out the teammate reply and the alignment check
// concurrently. The two calls have no data dependency and no ordering
// guarantee; both are reconciled here after both resolve. A failed alignment
// check degrades to a skipped check rather than an error response.
func (s *Server) handleChat(c echo.Context) error {
	if s.replier == nil {
		return echo.NewHTTPError(http.StatusNotImplemented, "reply generation is not configured")
	}

	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Message == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "message field is required")
	}

	sessionID := uuid.New()
	if req.SessionID != nil {
		sessionID = *req.SessionID
	}

	ctx := c.Request().Context()

	var (
		wg        sync.WaitGroup
		replyText string
		replyErr  error
		alignment *model.AlignmentResult
		alignErr  error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		replyText, replyErr = s.replier.Generate(ctx, req.Message, req.History)
	}()
	go func() {
		defer wg.Done()
		alignment, alignErr = s.analyzer.Analyze(ctx, req.Message, req.History)
	}()
	wg.Wait()

	if replyErr != nil {
		logging.From(ctx).Error("reply generation failed", "error", replyErr)
		return echo.NewHTTPError(http.StatusBadGateway, "reply generation failed")
	}

	if alignErr != nil {
		// Treat the turn as if it gated below the threshold.
		logging.From(ctx).Warn("alignment check skipped", "error", alignErr, "kind", errorKind(alignErr))
		alignment = model.AlignedResult(0)
	}

	state, resolved := s.sessions.Apply(sessionID, alignment.Aligned)

	return c.JSON(http.StatusOK, ChatResponse{
		SessionID: sessionID,
		Reply:     replyText,
		Alignment: alignment,
		State:     state,
		Resolved:  resolved,
	})
}

// errorKind maps a pipeline error onto its sentinel name for responses and
// logs.
func errorKind(err error) string {
	switch {
	case errors.Is(err, model.ErrEmbeddingService):
		return "embedding_service_error"
	case errors.Is(err, model.ErrRetrieval):
		return "retrieval_error"
	case errors.Is(err, model.ErrJudgmentParse):
		return "judgment_parse_error"
	case errors.Is(err, model.ErrJudgmentService):
		return "judgment_service_error"
	default:
		return "internal_error"
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	logging.Default().Info("starting http server", "addr", s.config.Addr)
	return s.echo.Start(s.config.Addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Handler exposes the root handler for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}
