package api

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/minutes/pkg/broadcast"
	"github.com/papercomputeco/minutes/pkg/storage"
	"github.com/papercomputeco/minutes/pkg/summary"
	"github.com/papercomputeco/minutes/pkg/transcript"
)

const (
	defaultListLimit = 50
	maxListLimit     = 1000
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// StatusResponse reports the state of the running server.
type StatusResponse struct {
	summary.Snapshot
	Backlog        int    `json:"backlog"`
	Subscribers    int    `json:"subscribers"`
	Provider       string `json:"provider,omitempty"`
	Meeting        string `json:"meeting,omitempty"`
	CanSwitchModel bool   `json:"can_switch_model"`
}

// IngestRequest is one fragment posted by an external producer.
type IngestRequest struct {
	Text      string     `json:"text"`
	Speaker   string     `json:"speaker,omitempty"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

// StateRequest sets the summarizer run state.
type StateRequest struct {
	Running *bool `json:"running"`
}

// StateResponse reports the summarizer run state.
type StateResponse struct {
	Running bool `json:"running"`
	Changed bool `json:"changed,omitempty"`
}

// ModelRequest switches the active model.
type ModelRequest struct {
	Model string `json:"model"`
}

// ModelResponse reports the active model.
type ModelResponse struct {
	Provider       string `json:"provider,omitempty"`
	Model          string `json:"model"`
	CanSwitchModel bool   `json:"can_switch_model"`
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(StatusResponse{
		Snapshot:       s.deps.Loop.Snapshot(),
		Backlog:        s.deps.Bus.Len(),
		Subscribers:    s.deps.Hub.Len(),
		Provider:       s.provider(),
		Meeting:        s.config.Meeting,
		CanSwitchModel: s.caps.CanSwitchModel(),
	})
}

// handleIngest enqueues one fragment. The summary loop persists and
// broadcasts it when it reaches the head of the bus.
func (s *Server) handleIngest(c *fiber.Ctx) error {
	var req IngestRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}

	text := strings.TrimSpace(req.Text)
	if text == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "text is required"})
	}

	ts := time.Now()
	if req.Timestamp != nil && !req.Timestamp.IsZero() {
		ts = *req.Timestamp
	}

	f := transcript.New(ts, req.Speaker, text)
	s.deps.Bus.Put(f)

	return c.Status(fiber.StatusAccepted).JSON(f)
}

func (s *Server) handleListSegments(c *fiber.Ctx) error {
	limit, err := listLimit(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: err.Error()})
	}

	segments, err := s.deps.Driver.Segments(c.Context(), limit)
	if err != nil {
		s.logger.Error("failed to list segments", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to list segments"})
	}
	if segments == nil {
		segments = []storage.Segment{}
	}

	return c.JSON(segments)
}

func (s *Server) handleListSummaries(c *fiber.Ctx) error {
	limit, err := listLimit(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: err.Error()})
	}

	summaries, err := s.deps.Driver.Summaries(c.Context(), limit)
	if err != nil {
		s.logger.Error("failed to list summaries", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to list summaries"})
	}
	if summaries == nil {
		summaries = []storage.SummaryRecord{}
	}

	return c.JSON(summaries)
}

// handleCurrentSummary returns the newest persisted summary.
func (s *Server) handleCurrentSummary(c *fiber.Ctx) error {
	rec, err := s.deps.Driver.LatestSummary(c.Context())
	if errors.Is(err, storage.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: "no summary yet"})
	}
	if err != nil {
		s.logger.Error("failed to load latest summary", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to load summary"})
	}

	return c.JSON(rec)
}

func (s *Server) handleGetState(c *fiber.Ctx) error {
	return c.JSON(StateResponse{Running: s.deps.Loop.State().Running()})
}

// handleSetState pauses or resumes the summarizer and broadcasts the
// transition. Setting the current state again is a no-op.
func (s *Server) handleSetState(c *fiber.Ctx) error {
	var req StateRequest
	if err := c.BodyParser(&req); err != nil || req.Running == nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "running is required"})
	}

	running := *req.Running
	changed := s.deps.Loop.State().Set(running)
	if changed {
		s.logger.Info("summarizer state changed", "running", running)
		s.deps.Hub.Broadcast(broadcast.SummarizerStateEvent(running))
	}

	return c.JSON(StateResponse{Running: running, Changed: changed})
}

func (s *Server) handleFlush(c *fiber.Ctx) error {
	s.deps.Loop.SummarizeNow()
	return c.SendStatus(fiber.StatusAccepted)
}

func (s *Server) handleGetModel(c *fiber.Ctx) error {
	return c.JSON(ModelResponse{
		Provider:       s.provider(),
		Model:          s.caps.Model(),
		CanSwitchModel: s.caps.CanSwitchModel(),
	})
}

func (s *Server) handleSetModel(c *fiber.Ctx) error {
	var req ModelRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}

	model := strings.TrimSpace(req.Model)
	if model == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "model is required"})
	}
	if !s.caps.CanSwitchModel() {
		return c.Status(fiber.StatusConflict).JSON(ErrorResponse{Error: "provider does not support model switching"})
	}

	if err := s.caps.Switcher.SetModel(model); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: err.Error()})
	}

	s.logger.Info("model changed", "provider", s.provider(), "model", model)
	s.deps.Hub.Broadcast(broadcast.ModelChangedEvent(model))

	return c.JSON(ModelResponse{
		Provider:       s.provider(),
		Model:          model,
		CanSwitchModel: true,
	})
}

func (s *Server) handleReloadPrompt(c *fiber.Ctx) error {
	if s.deps.Prompts == nil {
		return c.Status(fiber.StatusConflict).JSON(ErrorResponse{Error: "no prompt store configured"})
	}

	if err := s.deps.Prompts.Reload(); err != nil {
		s.logger.Warn("prompt reload failed", "path", s.deps.Prompts.Path(), "error", err)
		return c.Status(fiber.StatusUnprocessableEntity).JSON(ErrorResponse{Error: err.Error()})
	}

	s.deps.Hub.Broadcast(broadcast.PromptChangedEvent())
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) provider() string {
	if s.caps.Provider != "" {
		return s.caps.Provider
	}
	return s.config.Provider
}

// listLimit reads ?limit=, defaulting to defaultListLimit and capping at
// maxListLimit.
func listLimit(c *fiber.Ctx) (int, error) {
	if c.Query("limit") == "" {
		return defaultListLimit, nil
	}

	limit := c.QueryInt("limit", -1)
	if limit <= 0 {
		return 0, errors.New("limit must be a positive integer")
	}
	return min(limit, maxListLimit), nil
}
