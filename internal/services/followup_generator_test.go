package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"profiler-pipeline/internal/config"
	"profiler-pipeline/internal/models"
)

func fakeCompletionServer(t *testing.T, content string) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		body := `{
			"id": "chatcmpl-test",
			"object": "chat.completion",
			"created": 1700000000,
			"model": "gpt-4.1-mini",
			"choices": [{
				"index": 0,
				"message": {"role": "assistant", "content": ` + jsonString(content) + `},
				"finish_reason": "stop"
			}]
		}`
		w.Write([]byte(body))
	}))
}

func jsonString(s string) string {
	encoded, _ := json.Marshal(s)
	return string(encoded)
}

func testLLMService(t *testing.T, baseURL string) *LLMService {
	t.Helper()

	return NewLLMService(config.OpenAIConfig{
		APIKey:     "test-key",
		BaseURL:    baseURL,
		Model:      "gpt-4.1-mini",
		MaxRetries: 1,
		RetryDelay: 10 * time.Millisecond,
		Timeout:    5 * time.Second,
	}, testLogger(t))
}

func serviceLineRequest(quantity int) *models.ServiceLineRequest {
	return &models.ServiceLineRequest{
		CompanyProfile: models.CompanyProfile{
			CompanyName:   "Acme Corp",
			Description:   "Builds software.",
			ServiceLines:  []string{"Software Development"},
			Tier1Keywords: []string{"software"},
			Tier2Keywords: []string{"consulting"},
		},
		Quantity: quantity,
	}
}

func TestGenerateServiceLines(t *testing.T) {
	server := fakeCompletionServer(t, `{"service_lines": ["Cybersecurity Consulting", "Cloud Migration Services"]}`)
	defer server.Close()

	generator := NewFollowUpGenerator(testLLMService(t, server.URL+"/v1"), testLogger(t))

	lines, err := generator.Generate(context.Background(), serviceLineRequest(2))
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if len(lines) != 2 {
		t.Fatalf("Expected 2 service lines, got %d: %v", len(lines), lines)
	}
	if lines[0] != "Cybersecurity Consulting" {
		t.Errorf("Unexpected first line: %s", lines[0])
	}
}

func TestGenerateStripsCodeFences(t *testing.T) {
	server := fakeCompletionServer(t, "```json\n{\"service_lines\": [\"Data Analytics Solutions\"]}\n```")
	defer server.Close()

	generator := NewFollowUpGenerator(testLLMService(t, server.URL+"/v1"), testLogger(t))

	lines, err := generator.Generate(context.Background(), serviceLineRequest(1))
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if len(lines) != 1 || lines[0] != "Data Analytics Solutions" {
		t.Errorf("Fenced JSON not parsed: %v", lines)
	}
}

func TestGenerateDeduplicatesExisting(t *testing.T) {
	server := fakeCompletionServer(t, `{"service_lines": ["Software Development", "Infrastructure Management"]}`)
	defer server.Close()

	generator := NewFollowUpGenerator(testLLMService(t, server.URL+"/v1"), testLogger(t))

	lines, err := generator.Generate(context.Background(), serviceLineRequest(2))
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if len(lines) != 1 || lines[0] != "Infrastructure Management" {
		t.Errorf("Existing service line must be dropped, got %v", lines)
	}
}

func TestGenerateKeepsOverDelivery(t *testing.T) {
	server := fakeCompletionServer(t, `{"service_lines": ["Cybersecurity Consulting", "Cloud Migration Services", "Data Analytics Solutions"]}`)
	defer server.Close()

	generator := NewFollowUpGenerator(testLLMService(t, server.URL+"/v1"), testLogger(t))

	lines, err := generator.Generate(context.Background(), serviceLineRequest(2))
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if len(lines) != 3 {
		t.Errorf("Deduplicated set must come back whole, got %v", lines)
	}
}

func TestGenerateInvalidJSON(t *testing.T) {
	server := fakeCompletionServer(t, "I would suggest consulting services.")
	defer server.Close()

	generator := NewFollowUpGenerator(testLLMService(t, server.URL+"/v1"), testLogger(t))

	if _, err := generator.Generate(context.Background(), serviceLineRequest(1)); err == nil {
		t.Error("Expected parse error for non-JSON response")
	}
}

func TestParseServiceLines(t *testing.T) {
	lines, err := parseServiceLines(`{"service_lines": ["A", "B"]}`)
	if err != nil {
		t.Fatalf("parseServiceLines failed: %v", err)
	}
	if len(lines) != 2 {
		t.Errorf("Expected 2 lines, got %v", lines)
	}

	if _, err := parseServiceLines("not json"); err == nil {
		t.Error("Expected error for invalid JSON")
	}
}

func TestDedupeServiceLines(t *testing.T) {
	result := dedupeServiceLines(
		[]string{" Consulting ", "Consulting", "", "Engineering", "it consulting"},
		[]string{"Engineering"},
	)

	if len(result) != 2 {
		t.Fatalf("Expected 2 lines after dedupe, got %v", result)
	}
	if result[0] != "Consulting" || result[1] != "it consulting" {
		t.Errorf("Unexpected dedupe result: %v", result)
	}
}
