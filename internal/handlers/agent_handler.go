package handlers

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"profiler-pipeline/internal/models"
	"profiler-pipeline/internal/pkg/logger"
	"profiler-pipeline/internal/services"
)

// TurnRunner is the orchestrator surface the agent handler needs.
type TurnRunner interface {
	RunTurn(ctx context.Context, sessionID string, history []models.ConversationMessage, emit services.EmitFunc) (*models.ConversationMessage, error)
}

// DecisionRouter is the response router surface the agent handler needs.
type DecisionRouter interface {
	Route(ctx context.Context, sessionID string, message *models.ConversationMessage) models.RouteDecision
}

// SessionSaver is the subset of the session store the agent handler writes.
type SessionSaver interface {
	SaveWebsiteURL(ctx context.Context, sessionID, url string) error
	SaveOriginalPrompt(ctx context.Context, sessionID, prompt string) error
}

type AgentTurnRequest struct {
	SessionID  string                       `json:"session_id"`
	WebsiteURL string                       `json:"website_url"`
	Email      string                       `json:"email"`
	POC        string                       `json:"poc"`
	Messages   []models.ConversationMessage `json:"messages"`
}

type AgentHandler struct {
	orchestrator TurnRunner
	router       DecisionRouter
	sessions     SessionSaver
	logger       *logger.Logger
}

func NewAgentHandler(orchestrator TurnRunner, router DecisionRouter, sessions SessionSaver, log *logger.Logger) *AgentHandler {
	return &AgentHandler{
		orchestrator: orchestrator,
		router:       router,
		sessions:     sessions,
		logger:       log,
	}
}

// HandleTurn runs one agent turn and streams its events back over SSE. The
// final event is the routing decision. If the turn fails before producing
// any output, the handler responds with a plain 500 instead of a stream.
// Clients may send the conversation themselves or just the website URL and
// contact details, in which case the opening analysis prompt is synthesized.
func (h *AgentHandler) HandleTurn(c *gin.Context) {
	var req AgentTurnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data"})
		return
	}

	if len(req.Messages) == 0 {
		if req.WebsiteURL == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data"})
			return
		}
		prompt := services.BuildAnalysisPrompt(req.WebsiteURL, req.Email, req.POC)
		req.Messages = []models.ConversationMessage{models.NewUserMessage(prompt)}
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	ctx := c.Request.Context()

	if req.WebsiteURL != "" {
		if err := h.sessions.SaveWebsiteURL(ctx, sessionID, req.WebsiteURL); err != nil {
			h.logger.WithError(err).Warn("failed to save website url", "session_id", sessionID)
		}
	}
	if prompt := firstUserContent(req.Messages); prompt != "" {
		if err := h.sessions.SaveOriginalPrompt(ctx, sessionID, prompt); err != nil {
			h.logger.WithError(err).Warn("failed to save original prompt", "session_id", sessionID)
		}
	}

	events := make(chan services.AgentEvent, 32)
	go func() {
		defer close(events)

		// A disconnected client stops draining the channel; sends must
		// give up on request cancellation or the goroutine leaks.
		emit := func(ev services.AgentEvent) {
			select {
			case events <- ev:
			case <-ctx.Done():
			}
		}

		message, err := h.orchestrator.RunTurn(ctx, sessionID, req.Messages, emit)
		if err != nil {
			h.logger.WithError(err).Error("agent turn failed", "session_id", sessionID)
			emit(services.AgentEvent{Type: services.EventError, Error: "Failed to process agent request"})
			return
		}

		decision := h.router.Route(ctx, sessionID, message)
		emit(services.AgentEvent{Type: services.EventDecision, Decision: &decision})
	}()

	first, ok := <-events
	if !ok || first.Type == services.EventError {
		for range events {
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process agent request"})
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Session-ID", sessionID)

	c.SSEvent(string(first.Type), first)
	c.Writer.Flush()

	c.Stream(func(w io.Writer) bool {
		ev, ok := <-events
		if !ok {
			return false
		}
		c.SSEvent(string(ev.Type), ev)
		return true
	})
}

func firstUserContent(messages []models.ConversationMessage) string {
	for _, msg := range messages {
		if msg.Role == models.RoleUser && msg.Content != "" {
			return msg.Content
		}
	}
	return ""
}
