package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"

	"profiler-pipeline/internal/config"
	"profiler-pipeline/internal/models"
	"profiler-pipeline/internal/pkg/logger"
)

// ContentFetcher retrieves a single page and reduces it to analyzable text.
// It never returns a Go error: every failure mode is flattened into the
// ExtractionResult's Error field with a user-facing explanation.
type ContentFetcher struct {
	cfg    config.FetcherConfig
	client *http.Client
	logger *logger.Logger
}

var whitespaceRe = regexp.MustCompile(`\s+`)

func NewContentFetcher(cfg config.FetcherConfig, log *logger.Logger) *ContentFetcher {
	return &ContentFetcher{
		cfg:    cfg,
		client: &http.Client{},
		logger: log,
	}
}

// Fetch downloads targetURL, validates it is an HTML page, strips
// script/style/noscript and returns the collapsed visible body text.
// Cleaned text shorter than the configured minimum is returned alongside an
// insufficient-content error.
func (f *ContentFetcher) Fetch(ctx context.Context, targetURL string) models.ExtractionResult {
	startTime := time.Now()
	result := models.ExtractionResult{URL: targetURL}

	parsed, err := url.Parse(targetURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		result.Error = fmt.Sprintf("Error accessing the website: invalid URL %q. Please check if the address is correct.", targetURL)
		return result
	}

	ctx, cancel := context.WithTimeout(ctx, f.cfg.ContentTimeout)
	defer cancel()

	collector := colly.NewCollector(
		colly.UserAgent(f.cfg.UserAgent),
		colly.IgnoreRobotsTxt(),
	)
	collector.SetRequestTimeout(f.cfg.ContentTimeout)

	collector.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
		r.Headers.Set("Accept-Language", "en-US,en;q=0.9")
		r.Headers.Set("Upgrade-Insecure-Requests", "1")
	})

	var (
		statusCode  int
		contentType string
		body        []byte
		fetchErr    error
	)

	collector.OnResponse(func(r *colly.Response) {
		statusCode = r.StatusCode
		contentType = r.Headers.Get("Content-Type")
		body = r.Body
	})

	collector.OnError(func(r *colly.Response, err error) {
		fetchErr = err
		if r != nil {
			statusCode = r.StatusCode
		}
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := collector.Visit(targetURL); err != nil && fetchErr == nil {
			fetchErr = err
		}
		collector.Wait()
	}()

	select {
	case <-done:
	case <-ctx.Done():
		result.Error = f.timeoutMessage()
		f.logger.LogService("content_fetcher", "fetch", time.Since(startTime), map[string]interface{}{
			"url": targetURL,
		}, ctx.Err())
		return result
	}

	if fetchErr != nil && statusCode >= http.StatusBadRequest {
		result.Error = fmt.Sprintf(
			"Website not accessible (HTTP %d: %s). Please check if the address is correct and the site is working.",
			statusCode, http.StatusText(statusCode))
	} else if fetchErr != nil {
		result.Error = f.classifyFetchError(fetchErr)
	} else if !strings.Contains(strings.ToLower(contentType), "text/html") {
		result.Error = "The provided URL does not point to a valid web page. Please make sure it is a company website."
	} else if len(bytes.TrimSpace(body)) == 0 {
		result.Error = "The website is empty or did not return valid content."
	} else {
		cleaned, err := extractVisibleText(body)
		if err != nil {
			result.Error = fmt.Sprintf("Error accessing the website: %v. Please check if the address is correct.", err)
		} else if len(cleaned) < f.cfg.MinContentLength {
			result.Content = cleaned
			result.Error = "The website contains too little content for analysis. Please check if it is a complete corporate website."
		} else {
			result.Content = cleaned
		}
	}

	f.logger.LogService("content_fetcher", "fetch", time.Since(startTime), map[string]interface{}{
		"url":            targetURL,
		"status_code":    statusCode,
		"content_type":   contentType,
		"content_length": len(result.Content),
		"error":          result.Error,
	}, nil)

	return result
}

// FetchHTML retrieves the raw HTML of a page for icon extraction. Unlike
// Fetch it does not validate content type or length; the icon resolver
// degrades to the /favicon.ico fallback on unusable input anyway.
func (f *ContentFetcher) FetchHTML(ctx context.Context, targetURL string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, f.cfg.LogoPageTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return "", models.NewNetworkError("LOGO_PAGE_REQUEST", "invalid logo page request").WithCause(err)
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		if isTimeoutError(err) {
			return "", models.NewTimeoutError("LOGO_PAGE_TIMEOUT", "logo page fetch timed out").WithCause(err)
		}
		return "", models.NewNetworkError("LOGO_PAGE_FETCH", "logo page fetch failed").WithCause(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return "", models.NewNetworkError("LOGO_PAGE_STATUS", fmt.Sprintf("HTTP %d", resp.StatusCode))
	}

	html, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", models.NewNetworkError("LOGO_PAGE_READ", "failed to read logo page body").WithCause(err)
	}

	return string(html), nil
}

func extractVisibleText(body []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", err
	}

	doc.Find("script, style, noscript").Remove()

	text := doc.Find("body").Text()
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(text, " ")), nil
}

func (f *ContentFetcher) timeoutMessage() string {
	return fmt.Sprintf("Timeout accessing the website (%s). The site may be very slow or unavailable at the moment.",
		f.cfg.ContentTimeout.Truncate(time.Second))
}

func (f *ContentFetcher) classifyFetchError(err error) string {
	switch {
	case isTimeoutError(err):
		return f.timeoutMessage()
	case isNetworkError(err):
		return "Could not connect to the website. Please check if the address is correct and the site is online."
	default:
		return fmt.Sprintf("Error accessing the website: %v. Please check if the address is correct.", err)
	}
}

func isTimeoutError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return strings.Contains(err.Error(), "Client.Timeout")
}

func isNetworkError(err error) bool {
	if err == nil {
		return false
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "connection refused") || strings.Contains(msg, "no such host")
}
