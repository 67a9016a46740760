package services

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"profiler-pipeline/internal/config"
	"profiler-pipeline/internal/models"
	"profiler-pipeline/internal/pkg/logger"
)

// iconSelectors in priority order. Vector and high-resolution declarations
// win over the generic rel="icon"; /favicon.ico is the implicit last resort.
var iconSelectors = []string{
	`link[rel="icon"][type="image/svg+xml"]`,
	`link[rel="icon"][type="image/png"]`,
	`link[rel="shortcut icon"]`,
	`link[rel="icon"]`,
	`link[rel="apple-touch-icon"]`,
	`link[rel="apple-touch-icon-precomposed"]`,
}

// IconResolver extracts the best favicon declaration from a page's HTML,
// downloads it and inlines it as a base64 data-URL. Like the content
// fetcher, it never returns a Go error: failures are flattened into the
// LogoResult.
type IconResolver struct {
	cfg    config.FetcherConfig
	client *http.Client
	logger *logger.Logger
}

func NewIconResolver(cfg config.FetcherConfig, log *logger.Logger) *IconResolver {
	return &IconResolver{
		cfg:    cfg,
		client: &http.Client{},
		logger: log,
	}
}

// Resolve picks an icon URL out of pageHTML, resolving relative references
// against pageURL's origin, then downloads and inlines it.
func (r *IconResolver) Resolve(ctx context.Context, pageHTML, pageURL string) models.LogoResult {
	startTime := time.Now()

	iconURL := r.selectIconURL(pageHTML, pageURL)
	result, err := r.download(ctx, iconURL)

	r.logger.LogService("icon_resolver", "resolve", time.Since(startTime), map[string]interface{}{
		"page_url":     pageURL,
		"icon_url":     iconURL,
		"success":      result.Success,
		"content_type": result.ContentType,
	}, err)

	return result
}

// selectIconURL walks the priority selectors over the document head and
// returns the first usable href. Hrefs with a scheme pass through as-is;
// everything else, including protocol-relative ones, resolves against the
// page origin. Unparseable HTML or no matching link both fall back to
// /favicon.ico.
func (r *IconResolver) selectIconURL(pageHTML, pageURL string) string {
	origin := pageOrigin(pageURL)

	fallback := strings.TrimSuffix(pageURL, "/") + "/favicon.ico"
	if origin != nil {
		fallback = origin.ResolveReference(&url.URL{Path: "/favicon.ico"}).String()
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(pageHTML))
	if err != nil {
		return fallback
	}

	for _, selector := range iconSelectors {
		href, exists := doc.Find(selector).First().Attr("href")
		href = strings.TrimSpace(href)
		if !exists || href == "" {
			continue
		}

		ref, err := url.Parse(href)
		if err != nil {
			continue
		}
		if ref.IsAbs() {
			return ref.String()
		}
		if origin == nil {
			continue
		}
		return origin.ResolveReference(ref).String()
	}

	return fallback
}

func pageOrigin(pageURL string) *url.URL {
	parsed, err := url.Parse(pageURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil
	}
	return &url.URL{Scheme: parsed.Scheme, Host: parsed.Host, Path: "/"}
}

// download fetches the icon and inlines it. The second return is the typed
// classification of the failure, for logging only; the user-facing message
// lives in the result.
func (r *IconResolver) download(ctx context.Context, iconURL string) (models.LogoResult, error) {
	result := models.LogoResult{OriginalURL: iconURL}

	ctx, cancel := context.WithTimeout(ctx, r.cfg.IconTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, iconURL, nil)
	if err != nil {
		result.Error = fmt.Sprintf("Error getting logo: %v", err)
		return result, models.NewNetworkError("ICON_REQUEST", "invalid icon request").WithCause(err)
	}
	req.Header.Set("User-Agent", r.cfg.UserAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		if isTimeoutError(err) {
			result.Error = fmt.Sprintf("Timeout getting company logo (%s)", r.cfg.IconTimeout.Truncate(time.Second))
			return result, models.NewTimeoutError("ICON_TIMEOUT", "icon download timed out").WithCause(err)
		}
		result.Error = fmt.Sprintf("Error getting logo: %v", err)
		return result, models.NewNetworkError("ICON_FETCH", "icon download failed").WithCause(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		result.Error = fmt.Sprintf("Icon not accessible: HTTP %d from %s", resp.StatusCode, iconURL)
		return result, models.NewNetworkError("ICON_STATUS", fmt.Sprintf("HTTP %d", resp.StatusCode))
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(strings.ToLower(contentType), "image/") {
		result.Error = fmt.Sprintf("Invalid image type: %s from %s", contentType, iconURL)
		return result, models.NewContentTypeError("ICON_CONTENT_TYPE", fmt.Sprintf("unexpected content type %q", contentType))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		result.Error = fmt.Sprintf("Error getting logo: %v", err)
		return result, models.NewNetworkError("ICON_READ", "failed to read icon body").WithCause(err)
	}

	result.Success = true
	result.ContentType = contentType
	result.LogoBase64 = fmt.Sprintf("data:%s;base64,%s", contentType, base64.StdEncoding.EncodeToString(data))
	return result, nil
}
