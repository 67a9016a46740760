package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"profiler-pipeline/internal/models"
	"profiler-pipeline/internal/pkg/logger"
)

// ServiceLineGenerator is the follow-up generator surface the handler needs.
type ServiceLineGenerator interface {
	Generate(ctx context.Context, req *models.ServiceLineRequest) ([]string, error)
}

// SnapshotLoader loads the persisted analysis conversation for a session.
type SnapshotLoader interface {
	GetSnapshot(ctx context.Context, sessionID string) (*models.ConversationSnapshot, error)
}

type FollowUpHandler struct {
	generator ServiceLineGenerator
	snapshots SnapshotLoader
	logger    *logger.Logger
}

func NewFollowUpHandler(generator ServiceLineGenerator, snapshots SnapshotLoader, log *logger.Logger) *FollowUpHandler {
	return &FollowUpHandler{
		generator: generator,
		snapshots: snapshots,
		logger:    log,
	}
}

// HandleGenerate produces additional service lines for an analyzed profile.
// When the client sends no agent memory, the persisted conversation snapshot
// for the session (if any) is replayed instead.
func (h *FollowUpHandler) HandleGenerate(c *gin.Context) {
	var req models.ServiceLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ServiceLineResponse{
			Success: false,
			Error:   "Invalid request data",
		})
		return
	}

	ctx := c.Request.Context()

	if len(req.AgentMemory) == 0 {
		if sessionID := c.Query("session_id"); sessionID != "" {
			snapshot, err := h.snapshots.GetSnapshot(ctx, sessionID)
			if err == nil && snapshot != nil {
				req.AgentMemory = snapshot.Messages()
			} else if err != nil && err != models.ErrSnapshotNotFound {
				h.logger.WithError(err).Warn("failed to load conversation snapshot", "session_id", sessionID)
			}
		}
	}

	serviceLines, err := h.generator.Generate(ctx, &req)
	if err != nil {
		h.logger.WithError(err).Error("service line generation failed", "company", req.CompanyProfile.CompanyName)
		c.JSON(http.StatusInternalServerError, models.ServiceLineResponse{
			Success: false,
			Error:   "Failed to generate service lines",
		})
		return
	}

	c.JSON(http.StatusOK, models.ServiceLineResponse{
		Success:      true,
		ServiceLines: serviceLines,
	})
}
