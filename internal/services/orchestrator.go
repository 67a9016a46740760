package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"

	"profiler-pipeline/internal/models"
	"profiler-pipeline/internal/pkg/logger"
)

// maxAgentSteps bounds the tool loop. A well-behaved turn needs two steps
// (fetch, redirect); the headroom absorbs model retries and logo calls.
const maxAgentSteps = 10

const (
	toolGetWebsiteContent   = "getWebsiteContent"
	toolGetCompanyLogo      = "getCompanyLogo"
	toolReturnToHomeWithErr = "returnToHomeWithError"
	toolRedirectToProfile   = "redirectToProfile"
)

type AgentEventType string

const (
	EventText           AgentEventType = "text"
	EventToolInvocation AgentEventType = "tool_invocation"
	EventToolResult     AgentEventType = "tool_result"
	EventMessage        AgentEventType = "message"
	EventDecision       AgentEventType = "decision"
	EventError          AgentEventType = "error"
)

// AgentEvent is one unit of the turn's output stream, relayed to the client
// over SSE as it happens.
type AgentEvent struct {
	Type           AgentEventType              `json:"type"`
	Text           string                      `json:"text,omitempty"`
	ToolInvocation *models.ToolInvocation      `json:"tool_invocation,omitempty"`
	ToolName       string                      `json:"tool_name,omitempty"`
	ToolResult     json.RawMessage             `json:"tool_result,omitempty"`
	Message        *models.ConversationMessage `json:"message,omitempty"`
	Decision       *models.RouteDecision       `json:"decision,omitempty"`
	Error          string                      `json:"error,omitempty"`
}

// EmitFunc receives events in production order. Implementations must be
// cheap; the orchestrator calls it from the streaming read loop.
type EmitFunc func(AgentEvent)

// AgentOrchestrator runs one analysis turn: it streams the model, executes
// tool calls against the fetcher and icon resolver, and stops when the model
// invokes a terminal tool or runs out of things to say.
type AgentOrchestrator struct {
	llm     *LLMService
	fetcher *ContentFetcher
	icons   *IconResolver
	store   *SessionStore
	logger  *logger.Logger
}

func NewAgentOrchestrator(llm *LLMService, fetcher *ContentFetcher, icons *IconResolver, store *SessionStore, log *logger.Logger) *AgentOrchestrator {
	return &AgentOrchestrator{
		llm:     llm,
		fetcher: fetcher,
		icons:   icons,
		store:   store,
		logger:  log,
	}
}

func agentTools() []openai.Tool {
	return []openai.Tool{
		{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        toolGetWebsiteContent,
				Description: "Retrieve and clean the text content of a company website for analysis.",
				Parameters: jsonschema.Definition{
					Type: jsonschema.Object,
					Properties: map[string]jsonschema.Definition{
						"url": {Type: jsonschema.String, Description: "The full URL of the company website to analyze"},
					},
					Required: []string{"url"},
				},
			},
		},
		{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        toolGetCompanyLogo,
				Description: "Extract the company logo (favicon) from the website HTML and return it as a base64 data URL.",
				Parameters: jsonschema.Definition{
					Type: jsonschema.Object,
					Properties: map[string]jsonschema.Definition{
						"html": {Type: jsonschema.String, Description: "The HTML content of the website"},
						"url":  {Type: jsonschema.String, Description: "The website URL, used to resolve relative icon paths"},
					},
					Required: []string{"html", "url"},
				},
			},
		},
		{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        toolReturnToHomeWithErr,
				Description: "Abort the analysis and send the user back to the home view with an error message. Use when website content retrieval failed.",
				Parameters: jsonschema.Definition{
					Type: jsonschema.Object,
					Properties: map[string]jsonschema.Definition{
						"error_message": {Type: jsonschema.String, Description: "User-facing explanation of why the analysis failed"},
					},
					Required: []string{"error_message"},
				},
			},
		},
		{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        toolRedirectToProfile,
				Description: "Redirect the user to the profile view with the extracted company information.",
				Parameters: jsonschema.Definition{
					Type: jsonschema.Object,
					Properties: map[string]jsonschema.Definition{
						"company_name":        {Type: jsonschema.String, Description: "The official company name"},
						"service_line":        {Type: jsonschema.Array, Items: &jsonschema.Definition{Type: jsonschema.String}, Description: "Core business services, at most two"},
						"company_description": {Type: jsonschema.String, Description: "Brief company description, maximum 240 characters"},
						"tier1_keywords":      {Type: jsonschema.Array, Items: &jsonschema.Definition{Type: jsonschema.String}, Description: "Primary single-word search keywords"},
						"tier2_keywords":      {Type: jsonschema.Array, Items: &jsonschema.Definition{Type: jsonschema.String}, Description: "Secondary single-word search keywords"},
						"emails":              {Type: jsonschema.Array, Items: &jsonschema.Definition{Type: jsonschema.String}, Description: "Contact email addresses"},
						"poc":                 {Type: jsonschema.String, Description: "Point of contact name"},
						"logo_base64":         {Type: jsonschema.String, Description: "Always an empty string; the logo is loaded asynchronously"},
					},
					Required: []string{"company_name", "service_line", "company_description", "tier1_keywords", "tier2_keywords", "emails", "poc", "logo_base64"},
				},
			},
		},
	}
}

func isTerminalTool(name string) bool {
	return name == toolReturnToHomeWithErr || name == toolRedirectToProfile
}

// RunTurn executes one agent turn over the given history and returns the
// assembled assistant message. Terminal tool calls are recorded as parts and
// end the turn without being sent back to the model.
func (o *AgentOrchestrator) RunTurn(ctx context.Context, sessionID string, history []models.ConversationMessage, emit EmitFunc) (*models.ConversationMessage, error) {
	startTime := time.Now()

	chatMessages := make([]openai.ChatCompletionMessage, 0, len(history)+1)
	chatMessages = append(chatMessages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: agentSystemPrompt,
	})
	for _, msg := range history {
		chatMessages = append(chatMessages, openai.ChatCompletionMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		})
	}

	assistant := models.NewAssistantMessage()
	contentFetched := false

	for step := 1; step <= maxAgentSteps; step++ {
		text, toolCalls, err := o.streamStep(ctx, chatMessages, emit)
		if err != nil {
			return nil, err
		}

		if text != "" {
			assistant.AddTextPart(text)
			assistant.Content += text
		}

		if len(toolCalls) == 0 {
			// The model finished talking without a terminal tool; the
			// router will treat this as a no-op summary.
			o.logTurn(sessionID, step, time.Since(startTime), nil)
			emit(AgentEvent{Type: EventMessage, Message: &assistant})
			return &assistant, nil
		}

		chatMessages = append(chatMessages, openai.ChatCompletionMessage{
			Role:      openai.ChatMessageRoleAssistant,
			Content:   text,
			ToolCalls: toolCalls,
		})

		for _, call := range toolCalls {
			inv := models.ToolInvocation{
				ToolCallID: call.ID,
				ToolName:   call.Function.Name,
				Args:       json.RawMessage(call.Function.Arguments),
			}
			assistant.AddToolInvocation(inv)
			emit(AgentEvent{Type: EventToolInvocation, ToolInvocation: &inv})

			if isTerminalTool(call.Function.Name) && !contentFetched {
				err := models.NewModelError("TOOL_ORDER", "terminal tool invoked before website content was fetched")
				o.logTurn(sessionID, step, time.Since(startTime), err)
				return nil, err
			}

			if isTerminalTool(call.Function.Name) {
				if call.Function.Name == toolRedirectToProfile {
					o.dispatchAsyncLogo(sessionID, inv.Args)
				}
				o.logTurn(sessionID, step, time.Since(startTime), nil)
				emit(AgentEvent{Type: EventMessage, Message: &assistant})
				return &assistant, nil
			}

			result := o.executeTool(ctx, call.Function.Name, inv.Args)
			if call.Function.Name == toolGetWebsiteContent {
				contentFetched = true
			}

			emit(AgentEvent{Type: EventToolResult, ToolName: call.Function.Name, ToolResult: result})

			chatMessages = append(chatMessages, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				ToolCallID: call.ID,
				Content:    string(result),
			})
		}
	}

	err := models.NewModelError("AGENT_MAX_STEPS", "agent exceeded the maximum number of tool steps")
	o.logTurn(sessionID, maxAgentSteps, time.Since(startTime), err)
	return nil, err
}

// streamStep runs a single streaming completion and accumulates the text and
// tool call deltas. Text deltas are emitted as they arrive.
func (o *AgentOrchestrator) streamStep(ctx context.Context, chatMessages []openai.ChatCompletionMessage, emit EmitFunc) (string, []openai.ToolCall, error) {
	stream, err := o.llm.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Messages: chatMessages,
		Tools:    agentTools(),
	})
	if err != nil {
		return "", nil, err
	}
	defer stream.Close()

	var text string
	calls := make(map[int]*openai.ToolCall)
	order := []int{}

	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", nil, models.NewModelError("LLM_STREAM", "model stream failed").WithCause(err)
		}
		if len(chunk.Choices) == 0 {
			continue
		}

		delta := chunk.Choices[0].Delta
		if delta.Content != "" {
			text += delta.Content
			emit(AgentEvent{Type: EventText, Text: delta.Content})
		}

		for _, tc := range delta.ToolCalls {
			idx := 0
			if tc.Index != nil {
				idx = *tc.Index
			}
			call, ok := calls[idx]
			if !ok {
				call = &openai.ToolCall{Type: openai.ToolTypeFunction}
				calls[idx] = call
				order = append(order, idx)
			}
			if tc.ID != "" {
				call.ID = tc.ID
			}
			if tc.Function.Name != "" {
				call.Function.Name = tc.Function.Name
			}
			call.Function.Arguments += tc.Function.Arguments
		}
	}

	assembled := make([]openai.ToolCall, 0, len(order))
	for _, idx := range order {
		assembled = append(assembled, *calls[idx])
	}
	return text, assembled, nil
}

// executeTool dispatches a non-terminal tool call. Tool failures never abort
// the turn; the error is serialized into the result so the model can react.
func (o *AgentOrchestrator) executeTool(ctx context.Context, name string, args json.RawMessage) json.RawMessage {
	startTime := time.Now()

	var result interface{}
	switch name {
	case toolGetWebsiteContent:
		var params struct {
			URL string `json:"url"`
		}
		if err := json.Unmarshal(args, &params); err != nil {
			result = models.ExtractionResult{Error: "Unknown error accessing the website. Please try again or check the address."}
		} else {
			result = o.fetcher.Fetch(ctx, params.URL)
		}

	case toolGetCompanyLogo:
		var params struct {
			HTML string `json:"html"`
			URL  string `json:"url"`
		}
		if err := json.Unmarshal(args, &params); err != nil {
			result = models.LogoResult{Error: "Error getting logo: invalid arguments"}
		} else {
			result = o.icons.Resolve(ctx, params.HTML, params.URL)
		}

	default:
		result = map[string]string{"error": "unknown tool: " + name}
	}

	o.logger.LogTool(name, time.Since(startTime), nil, nil)

	payload, err := json.Marshal(result)
	if err != nil {
		payload = []byte(`{"error":"internal serialization failure"}`)
	}
	return payload
}

// dispatchAsyncLogo resolves the company logo in the background after a
// profile redirect. It must never delay the redirect, so it runs detached
// from the request context and only writes to the logo cache.
func (o *AgentOrchestrator) dispatchAsyncLogo(sessionID string, redirectArgs json.RawMessage) {
	var profile models.ProfileData
	if err := json.Unmarshal(redirectArgs, &profile); err != nil || profile.CompanyName == "" {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), o.fetcher.cfg.LogoPageTimeout+o.icons.cfg.IconTimeout)
		defer cancel()

		websiteURL, err := o.store.GetWebsiteURL(ctx, sessionID)
		if err != nil || websiteURL == "" {
			o.logger.Warn("async logo skipped, no website url for session", "session_id", sessionID)
			return
		}

		if cached, err := o.store.GetLogo(ctx, profile.CompanyName); err == nil && cached != nil {
			return
		}

		html, err := o.fetcher.FetchHTML(ctx, websiteURL)
		if err != nil {
			o.logger.WithError(err).Warn("async logo page fetch failed", "session_id", sessionID, "url", websiteURL)
			return
		}

		result := o.icons.Resolve(ctx, html, websiteURL)
		if !result.Success {
			o.logger.Warn("async logo resolution failed", "session_id", sessionID, "error", result.Error)
			return
		}

		if err := o.store.SaveLogo(ctx, profile.CompanyName, result); err != nil {
			o.logger.WithError(err).Warn("async logo cache write failed", "company", profile.CompanyName)
		}
	}()
}

func (o *AgentOrchestrator) logTurn(sessionID string, steps int, duration time.Duration, err error) {
	o.logger.LogService("orchestrator", "run_turn", duration, map[string]interface{}{
		"session_id": sessionID,
		"steps":      steps,
	}, err)
}
