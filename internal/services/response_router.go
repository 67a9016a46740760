package services

import (
	"context"
	"encoding/json"
	"strings"

	"profiler-pipeline/internal/models"
	"profiler-pipeline/internal/pkg/logger"
)

const routerErrorMessage = "Error processing analysis response."

// ResponseRouter turns a finished assistant message into exactly one routing
// decision. Decide is pure; Route adds the snapshot persistence side effect.
type ResponseRouter struct {
	store  *SessionStore
	logger *logger.Logger
}

func NewResponseRouter(store *SessionStore, log *logger.Logger) *ResponseRouter {
	return &ResponseRouter{store: store, logger: log}
}

// Decide scans the message parts in order. The first terminal tool invocation
// wins; anything that goes wrong while interpreting the message degrades to
// an error redirect rather than leaving the user stranded.
func (r *ResponseRouter) Decide(message *models.ConversationMessage) (decision models.RouteDecision) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("panic while routing assistant message", "panic", rec)
			decision = models.ErrorRedirectDecision(routerErrorMessage)
		}
	}()

	if message == nil || message.Parts == nil {
		return models.ErrorRedirectDecision(routerErrorMessage)
	}

	var summary strings.Builder

	for _, part := range message.Parts {
		if part.Type == models.PartTypeText {
			summary.WriteString(part.Text)
			summary.WriteString("\n")
			continue
		}

		if part.Type != models.PartTypeToolInvocation || part.ToolInvocation == nil {
			continue
		}

		switch part.ToolInvocation.ToolName {
		case toolReturnToHomeWithErr:
			var args struct {
				ErrorMessage string `json:"error_message"`
			}
			if err := json.Unmarshal(part.ToolInvocation.Args, &args); err != nil || args.ErrorMessage == "" {
				return models.ErrorRedirectDecision(routerErrorMessage)
			}
			return models.ErrorRedirectDecision(args.ErrorMessage)

		case toolRedirectToProfile:
			var profile models.ProfileData
			if err := json.Unmarshal(part.ToolInvocation.Args, &profile); err != nil {
				return models.ErrorRedirectDecision(routerErrorMessage)
			}
			profile.Normalize()
			return models.ProfileRedirectDecision(&profile, strings.TrimSpace(summary.String()))
		}
	}

	return models.NoOpDecision(strings.TrimSpace(summary.String()))
}

// Route decides and, on a profile redirect, persists the conversation
// snapshot the follow-up generator replays later. Snapshot write failures are
// logged but never block the redirect.
func (r *ResponseRouter) Route(ctx context.Context, sessionID string, message *models.ConversationMessage) models.RouteDecision {
	decision := r.Decide(message)

	switch decision.Kind {
	case models.RouteProfileRedirect:
		prompt, err := r.store.GetOriginalPrompt(ctx, sessionID)
		if err != nil || prompt == "" {
			prompt = "Analyze company website"
		}

		summary := decision.Summary
		if summary == "" {
			summary = fallbackSummary(decision.Profile.CompanyName)
		}

		snapshot := models.NewConversationSnapshot(prompt, summary)
		if err := r.store.SaveSnapshot(ctx, sessionID, snapshot); err != nil {
			r.logger.WithError(err).Warn("failed to save conversation snapshot", "session_id", sessionID)
		}

	case models.RouteNoOp:
		if decision.Summary != "" {
			r.logger.Info("agent provided summary without redirect", "session_id", sessionID)
		}
	}

	return decision
}
