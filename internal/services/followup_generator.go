package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"profiler-pipeline/internal/models"
	"profiler-pipeline/internal/pkg/logger"
)

// memoryWindow caps how much replayed conversation conditions the follow-up
// generation.
const memoryWindow = 4

// FollowUpGenerator produces additional service lines for an already
// analyzed company profile, conditioned on the tail of the agent memory.
type FollowUpGenerator struct {
	llm    *LLMService
	logger *logger.Logger
}

func NewFollowUpGenerator(llm *LLMService, log *logger.Logger) *FollowUpGenerator {
	return &FollowUpGenerator{llm: llm, logger: log}
}

// Generate returns the model's new service lines, deduplicated against the
// profile's existing ones. The whole deduplicated set comes back even when
// the model over-delivers; the requested quantity only shapes the prompt.
func (g *FollowUpGenerator) Generate(ctx context.Context, req *models.ServiceLineRequest) ([]string, error) {
	startTime := time.Now()

	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: serviceLineSystemPrompt},
	}

	memory := req.AgentMemory
	if len(memory) > memoryWindow {
		memory = memory[len(memory)-memoryWindow:]
	}
	for _, msg := range memory {
		if msg.Role != models.RoleUser && msg.Role != models.RoleAssistant {
			continue
		}
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		})
	}

	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: buildServiceLinePrompt(req),
	})

	resp, err := g.llm.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Messages:    messages,
		Temperature: 0.3,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate service lines: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("failed to generate service lines: %w",
			models.NewModelError("EMPTY_COMPLETION", "model returned no choices"))
	}

	serviceLines, err := parseServiceLines(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, fmt.Errorf("failed to generate service lines: %w", err)
	}

	serviceLines = dedupeServiceLines(serviceLines, req.CompanyProfile.ServiceLines)

	g.logger.LogService("followup_generator", "generate", time.Since(startTime), map[string]interface{}{
		"company":  req.CompanyProfile.CompanyName,
		"quantity": req.Quantity,
		"returned": len(serviceLines),
		"memory":   len(memory),
	}, nil)

	return serviceLines, nil
}

// parseServiceLines tolerates markdown code fences around the JSON body.
func parseServiceLines(content string) ([]string, error) {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimPrefix(content, "```")
		content = strings.TrimSuffix(strings.TrimSpace(content), "```")
		content = strings.TrimSpace(content)
	}

	var payload struct {
		ServiceLines []string `json:"service_lines"`
	}
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		return nil, models.NewParseError("SERVICE_LINES_PARSE", "model response is not valid service line JSON").WithCause(err)
	}
	return payload.ServiceLines, nil
}

// dedupeServiceLines drops empties, repeats within the batch, and lines the
// profile already has. Comparison is exact; "IT Consulting" and
// "it consulting" are considered distinct suggestions.
func dedupeServiceLines(generated, existing []string) []string {
	seen := make(map[string]bool, len(existing)+len(generated))
	for _, line := range existing {
		seen[strings.TrimSpace(line)] = true
	}

	result := make([]string, 0, len(generated))
	for _, line := range generated {
		line = strings.TrimSpace(line)
		if line == "" || seen[line] {
			continue
		}
		seen[line] = true
		result = append(result, line)
	}
	return result
}
