package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"profiler-pipeline/internal/models"
	"profiler-pipeline/internal/pkg/logger"
)

// PageFetcher retrieves raw page HTML for icon extraction.
type PageFetcher interface {
	FetchHTML(ctx context.Context, url string) (string, error)
}

// LogoResolver resolves a page's icon into an inlined data URL.
type LogoResolver interface {
	Resolve(ctx context.Context, pageHTML, pageURL string) models.LogoResult
}

// LogoCache reads and writes resolved logos keyed by company name.
type LogoCache interface {
	GetLogo(ctx context.Context, companyName string) (*models.LogoResult, error)
	SaveLogo(ctx context.Context, companyName string, result models.LogoResult) error
}

type LogoHandler struct {
	fetcher  PageFetcher
	resolver LogoResolver
	cache    LogoCache
	logger   *logger.Logger
}

func NewLogoHandler(fetcher PageFetcher, resolver LogoResolver, cache LogoCache, log *logger.Logger) *LogoHandler {
	return &LogoHandler{
		fetcher:  fetcher,
		resolver: resolver,
		cache:    cache,
		logger:   log,
	}
}

// HandleResolve fetches the requested page and returns its icon as a base64
// data URL. Failures come back as 200 with success=false; the profile view
// treats a missing logo as a cosmetic gap, not an error.
func (h *LogoHandler) HandleResolve(c *gin.Context) {
	var req models.LogoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.LogoResult{
			Success: false,
			Error:   "Invalid request data",
		})
		return
	}

	ctx := c.Request.Context()

	if req.CompanyName != "" {
		if cached, err := h.cache.GetLogo(ctx, req.CompanyName); err == nil && cached != nil {
			c.JSON(http.StatusOK, cached)
			return
		}
	}

	html, err := h.fetcher.FetchHTML(ctx, req.URL)
	if err != nil {
		c.JSON(http.StatusOK, models.LogoResult{
			Success: false,
			Error:   fmt.Sprintf("Failed to fetch website: %v", err),
		})
		return
	}

	result := h.resolver.Resolve(ctx, html, req.URL)

	if result.Success && req.CompanyName != "" {
		if err := h.cache.SaveLogo(ctx, req.CompanyName, result); err != nil {
			h.logger.WithError(err).Warn("failed to cache logo", "company", req.CompanyName)
		}
	}

	c.JSON(http.StatusOK, result)
}
