package services

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"profiler-pipeline/internal/models"
)

func sseBody(chunks ...string) string {
	var b strings.Builder
	for _, chunk := range chunks {
		b.WriteString("data: " + chunk + "\n\n")
	}
	b.WriteString("data: [DONE]\n\n")
	return b.String()
}

func textChunk(text string) string {
	return fmt.Sprintf(`{"id":"chunk","object":"chat.completion.chunk","created":1,"model":"gpt-4.1-mini","choices":[{"index":0,"delta":{"content":%s},"finish_reason":null}]}`, jsonString(text))
}

func toolCallChunk(callID, name, args string) string {
	return fmt.Sprintf(`{"id":"chunk","object":"chat.completion.chunk","created":1,"model":"gpt-4.1-mini","choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"id":%s,"type":"function","function":{"name":%s,"arguments":%s}}]},"finish_reason":null}]}`,
		jsonString(callID), jsonString(name), jsonString(args))
}

// fakeStreamServer serves a scripted SSE body per request, in order.
func fakeStreamServer(t *testing.T, responses []string) *httptest.Server {
	t.Helper()

	var calls int64
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		idx := atomic.AddInt64(&calls, 1) - 1
		if int(idx) >= len(responses) {
			t.Errorf("Unexpected extra model request %d", idx+1)
			http.Error(w, "no more scripted responses", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		w.Write([]byte(responses[idx]))
	}))
}

func orchestratorForTest(t *testing.T, llmBaseURL string) (*AgentOrchestrator, *SessionStore) {
	t.Helper()

	store, _ := testSessionStore(t)
	llm := testLLMService(t, llmBaseURL)
	fetcher := NewContentFetcher(testFetcherConfig(), testLogger(t))
	icons := NewIconResolver(testFetcherConfig(), testLogger(t))

	return NewAgentOrchestrator(llm, fetcher, icons, store, testLogger(t)), store
}

func TestRunTurnFullAnalysis(t *testing.T) {
	website := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(samplePage))
	}))
	defer website.Close()

	profileArgs := `{"company_name":"Acme Corp","service_line":["Software Development"],"company_description":"Builds software.","tier1_keywords":["software"],"tier2_keywords":["consulting"],"emails":["info@acme.com"],"poc":"Jane Doe","logo_base64":""}`

	llm := fakeStreamServer(t, []string{
		sseBody(toolCallChunk("call_1", "getWebsiteContent", fmt.Sprintf(`{"url":%s}`, jsonString(website.URL)))),
		sseBody(
			textChunk("Acme Corp builds software for agencies."),
			toolCallChunk("call_2", "redirectToProfile", profileArgs),
		),
	})
	defer llm.Close()

	orchestrator, _ := orchestratorForTest(t, llm.URL+"/v1")

	var events []AgentEvent
	message, err := orchestrator.RunTurn(context.Background(), "sess-1", []models.ConversationMessage{
		models.NewUserMessage("Analyze " + website.URL),
	}, func(ev AgentEvent) {
		events = append(events, ev)
	})
	if err != nil {
		t.Fatalf("RunTurn failed: %v", err)
	}

	var toolNames []string
	var textParts int
	for _, part := range message.Parts {
		switch part.Type {
		case models.PartTypeText:
			textParts++
		case models.PartTypeToolInvocation:
			toolNames = append(toolNames, part.ToolInvocation.ToolName)
		}
	}

	if len(toolNames) != 2 || toolNames[0] != "getWebsiteContent" || toolNames[1] != "redirectToProfile" {
		t.Errorf("Unexpected tool sequence: %v", toolNames)
	}
	if textParts != 1 {
		t.Errorf("Expected 1 text part, got %d", textParts)
	}
	if !strings.Contains(message.Content, "builds software") {
		t.Errorf("Message content missing summary: %q", message.Content)
	}

	var sawToolResult, sawMessage bool
	for _, ev := range events {
		switch ev.Type {
		case EventToolResult:
			sawToolResult = true
			if ev.ToolName != "getWebsiteContent" {
				t.Errorf("Unexpected tool result for %s", ev.ToolName)
			}
			if !strings.Contains(string(ev.ToolResult), "software development") {
				t.Errorf("Tool result missing page text: %s", ev.ToolResult)
			}
		case EventMessage:
			sawMessage = true
		}
	}
	if !sawToolResult || !sawMessage {
		t.Errorf("Missing expected events, got %d events", len(events))
	}
}

func TestRunTurnFetchErrorThenHomeRedirect(t *testing.T) {
	website := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer website.Close()

	llm := fakeStreamServer(t, []string{
		sseBody(toolCallChunk("call_1", "getWebsiteContent", fmt.Sprintf(`{"url":%s}`, jsonString(website.URL)))),
		sseBody(toolCallChunk("call_2", "returnToHomeWithError", `{"error_message":"Website not accessible."}`)),
	})
	defer llm.Close()

	orchestrator, _ := orchestratorForTest(t, llm.URL+"/v1")

	message, err := orchestrator.RunTurn(context.Background(), "sess-2", []models.ConversationMessage{
		models.NewUserMessage("Analyze " + website.URL),
	}, func(AgentEvent) {})
	if err != nil {
		t.Fatalf("RunTurn failed: %v", err)
	}

	last := message.Parts[len(message.Parts)-1]
	if last.Type != models.PartTypeToolInvocation || last.ToolInvocation.ToolName != "returnToHomeWithError" {
		t.Errorf("Expected terminal returnToHomeWithError part, got %+v", last)
	}
}

func TestRunTurnRejectsTerminalToolBeforeFetch(t *testing.T) {
	llm := fakeStreamServer(t, []string{
		sseBody(toolCallChunk("call_1", "redirectToProfile", `{"company_name":"Eager Corp"}`)),
	})
	defer llm.Close()

	orchestrator, _ := orchestratorForTest(t, llm.URL+"/v1")

	_, err := orchestrator.RunTurn(context.Background(), "sess-3", []models.ConversationMessage{
		models.NewUserMessage("Analyze https://eager.example"),
	}, func(AgentEvent) {})

	if err == nil {
		t.Fatal("Expected error for terminal tool before content fetch")
	}
	if !models.IsErrorType(err, models.ErrorTypeModel) {
		t.Errorf("Expected model error, got %v", err)
	}
}

func TestRunTurnTextOnly(t *testing.T) {
	llm := fakeStreamServer(t, []string{
		sseBody(textChunk("I need a website URL to start the analysis.")),
	})
	defer llm.Close()

	orchestrator, _ := orchestratorForTest(t, llm.URL+"/v1")

	var textEvents int
	message, err := orchestrator.RunTurn(context.Background(), "sess-4", []models.ConversationMessage{
		models.NewUserMessage("Hello"),
	}, func(ev AgentEvent) {
		if ev.Type == EventText {
			textEvents++
		}
	})
	if err != nil {
		t.Fatalf("RunTurn failed: %v", err)
	}

	if message.Content != "I need a website URL to start the analysis." {
		t.Errorf("Unexpected content: %q", message.Content)
	}
	if textEvents == 0 {
		t.Error("Expected streamed text events")
	}
}
