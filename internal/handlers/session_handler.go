package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"profiler-pipeline/internal/models"
	"profiler-pipeline/internal/pkg/logger"
)

// SessionCleaner clears per-session state and reports store health.
type SessionCleaner interface {
	ClearSession(ctx context.Context, sessionID string) error
	HealthCheck(ctx context.Context) error
}

// ContactCache stores returning-user contact details for form pre-fill.
type ContactCache interface {
	SaveContact(ctx context.Context, contact models.CachedContact) error
	GetContact(ctx context.Context, email string) (*models.CachedContact, error)
}

type SessionHandler struct {
	sessions SessionCleaner
	contacts ContactCache
	logger   *logger.Logger
}

func NewSessionHandler(sessions SessionCleaner, contacts ContactCache, log *logger.Logger) *SessionHandler {
	return &SessionHandler{
		sessions: sessions,
		contacts: contacts,
		logger:   log,
	}
}

// HandleClear drops all stored state for a session. Called when the profile
// view unmounts or a new analysis starts.
func (h *SessionHandler) HandleClear(c *gin.Context) {
	sessionID := c.Param("id")

	if err := h.sessions.ClearSession(c.Request.Context(), sessionID); err != nil {
		h.logger.WithError(err).Error("failed to clear session", "session_id", sessionID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to clear session"})
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *SessionHandler) HandleHealth(c *gin.Context) {
	if err := h.sessions.HealthCheck(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// HandleSaveContact remembers submitted contact details for 30 days.
func (h *SessionHandler) HandleSaveContact(c *gin.Context) {
	var contact models.CachedContact
	if err := c.ShouldBindJSON(&contact); err != nil || contact.Email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data"})
		return
	}

	if err := h.contacts.SaveContact(c.Request.Context(), contact); err != nil {
		h.logger.WithError(err).Error("failed to save contact", "email", contact.Email)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save contact"})
		return
	}

	c.Status(http.StatusNoContent)
}

// HandleGetContact returns cached contact details for pre-filling the form.
func (h *SessionHandler) HandleGetContact(c *gin.Context) {
	email := c.Param("email")

	contact, err := h.contacts.GetContact(c.Request.Context(), email)
	if err != nil {
		h.logger.WithError(err).Error("failed to load contact", "email", email)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load contact"})
		return
	}
	if contact == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Contact not found"})
		return
	}

	c.JSON(http.StatusOK, contact)
}
