package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

const samplePage = `<!DOCTYPE html>
<html>
<head>
<title>Acme Corp</title>
<style>body { color: red; }</style>
<script>console.log("tracking");</script>
</head>
<body>
<h1>Acme Corp</h1>
<p>Acme Corp provides software development and cybersecurity consulting services
for government agencies and commercial clients across the country.</p>
<noscript>Please enable JavaScript</noscript>
</body>
</html>`

func TestFetchSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(samplePage))
	}))
	defer server.Close()

	fetcher := NewContentFetcher(testFetcherConfig(), testLogger(t))
	result := fetcher.Fetch(context.Background(), server.URL)

	if result.Failed() {
		t.Fatalf("Expected success, got error: %s", result.Error)
	}
	if !strings.Contains(result.Content, "software development") {
		t.Errorf("Expected page text in content, got: %s", result.Content)
	}
	if strings.Contains(result.Content, "tracking") {
		t.Error("Script content must be stripped")
	}
	if strings.Contains(result.Content, "color: red") {
		t.Error("Style content must be stripped")
	}
	if strings.Contains(result.Content, "enable JavaScript") {
		t.Error("Noscript content must be stripped")
	}
	if strings.Contains(result.Content, "\n") {
		t.Error("Whitespace must be collapsed to single spaces")
	}
}

func TestFetchHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer server.Close()

	fetcher := NewContentFetcher(testFetcherConfig(), testLogger(t))
	result := fetcher.Fetch(context.Background(), server.URL)

	if !result.Failed() {
		t.Fatal("Expected failure on 404")
	}
	if !strings.Contains(result.Error, "Website not accessible (HTTP 404") {
		t.Errorf("Unexpected error message: %s", result.Error)
	}
}

func TestFetchNonHTMLContentType(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"not":"a page"}`))
	}))
	defer server.Close()

	fetcher := NewContentFetcher(testFetcherConfig(), testLogger(t))
	result := fetcher.Fetch(context.Background(), server.URL)

	if !strings.Contains(result.Error, "does not point to a valid web page") {
		t.Errorf("Unexpected error message: %s", result.Error)
	}
}

func TestFetchEmptyBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
	}))
	defer server.Close()

	fetcher := NewContentFetcher(testFetcherConfig(), testLogger(t))
	result := fetcher.Fetch(context.Background(), server.URL)

	if !strings.Contains(result.Error, "empty or did not return valid content") {
		t.Errorf("Unexpected error message: %s", result.Error)
	}
}

func TestFetchInsufficientContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><body><p>Tiny.</p></body></html>`))
	}))
	defer server.Close()

	fetcher := NewContentFetcher(testFetcherConfig(), testLogger(t))
	result := fetcher.Fetch(context.Background(), server.URL)

	if !strings.Contains(result.Error, "too little content for analysis") {
		t.Errorf("Unexpected error message: %s", result.Error)
	}
	if result.Content != "Tiny." {
		t.Errorf("Partial content should still be returned, got: %q", result.Content)
	}
}

func TestFetchTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(5 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer server.Close()

	cfg := testFetcherConfig()
	cfg.ContentTimeout = 100 * time.Millisecond

	fetcher := NewContentFetcher(cfg, testLogger(t))
	result := fetcher.Fetch(context.Background(), server.URL)

	if !result.Failed() {
		t.Fatal("Expected failure for a stalled server")
	}
	if !strings.Contains(result.Error, "Timeout accessing the website") {
		t.Errorf("Expected timeout-specific message, got: %s", result.Error)
	}
	if strings.Contains(result.Error, "Could not connect") {
		t.Errorf("Timeout must not be reported as a connection failure: %s", result.Error)
	}
}

func TestFetchInvalidURL(t *testing.T) {
	fetcher := NewContentFetcher(testFetcherConfig(), testLogger(t))
	result := fetcher.Fetch(context.Background(), "not-a-url")

	if !result.Failed() {
		t.Fatal("Expected failure for invalid URL")
	}
	if !strings.Contains(result.Error, "Please check if the address is correct") {
		t.Errorf("Unexpected error message: %s", result.Error)
	}
}

func TestFetchHTMLLenient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Content type deliberately not HTML; FetchHTML must not care.
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Write([]byte("<html><head></head></html>"))
	}))
	defer server.Close()

	fetcher := NewContentFetcher(testFetcherConfig(), testLogger(t))
	html, err := fetcher.FetchHTML(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("FetchHTML failed: %v", err)
	}
	if !strings.Contains(html, "<html>") {
		t.Errorf("Expected raw HTML back, got: %s", html)
	}
}

func TestFetchHTMLErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer server.Close()

	fetcher := NewContentFetcher(testFetcherConfig(), testLogger(t))
	if _, err := fetcher.FetchHTML(context.Background(), server.URL); err == nil {
		t.Error("Expected error for 403 response")
	}
}
