package models

import (
	"strings"
	"time"
)

// ExtractionResult is the typed outcome of a website text extraction. It
// never carries a Go error: Content non-empty with Error empty is the
// successful branch. Both may be set when the page had some text but too
// little to analyze; Content then holds the partial text.
type ExtractionResult struct {
	URL     string `json:"url"`
	Content string `json:"content"`
	Error   string `json:"error,omitempty"`
}

func (r ExtractionResult) Failed() bool {
	return r.Error != ""
}

// LogoResult is the typed outcome of a favicon/logo resolution. Success
// implies LogoBase64 is a data-URL and ContentType starts with "image/".
type LogoResult struct {
	Success     bool   `json:"success"`
	LogoBase64  string `json:"logoBase64,omitempty"`
	OriginalURL string `json:"originalUrl,omitempty"`
	ContentType string `json:"contentType,omitempty"`
	Error       string `json:"error,omitempty"`
}

const (
	MaxDescriptionLength = 240
	MaxServiceLines      = 2
	MaxTierKeywords      = 3
)

// ProfileData is the structured company profile emitted by the
// redirectToProfile tool. Field names follow the tool's wire schema.
type ProfileData struct {
	CompanyName        string   `json:"company_name"`
	ServiceLine        []string `json:"service_line"`
	CompanyDescription string   `json:"company_description"`
	Tier1Keywords      []string `json:"tier1_keywords"`
	Tier2Keywords      []string `json:"tier2_keywords"`
	Emails             []string `json:"emails"`
	POC                string   `json:"poc"`
	LogoBase64         string   `json:"logo_base64"`
}

// Normalize clamps the prompt's soft constraints after the fact: description
// length, list sizes, trimmed entries. The model usually respects them; this
// makes them hard guarantees for downstream consumers.
func (p *ProfileData) Normalize() {
	p.CompanyName = strings.TrimSpace(p.CompanyName)
	p.POC = strings.TrimSpace(p.POC)

	p.CompanyDescription = strings.TrimSpace(p.CompanyDescription)
	// The limit is in characters; byte slicing could split a rune.
	if runes := []rune(p.CompanyDescription); len(runes) > MaxDescriptionLength {
		p.CompanyDescription = string(runes[:MaxDescriptionLength])
	}

	p.ServiceLine = trimList(p.ServiceLine, MaxServiceLines)
	p.Tier1Keywords = trimList(p.Tier1Keywords, MaxTierKeywords)
	p.Tier2Keywords = trimList(p.Tier2Keywords, MaxTierKeywords)
	p.Emails = trimList(p.Emails, len(p.Emails))
}

func trimList(values []string, max int) []string {
	cleaned := make([]string, 0, len(values))
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	if len(cleaned) > max {
		cleaned = cleaned[:max]
	}
	return cleaned
}

// CompanyProfile is the camelCase profile shape the follow-up endpoint
// accepts; it mirrors what the profile view holds client-side.
type CompanyProfile struct {
	CompanyName   string   `json:"companyName" binding:"required"`
	Description   string   `json:"description"`
	ServiceLines  []string `json:"serviceLines"`
	Tier1Keywords []string `json:"tier1Keywords"`
	Tier2Keywords []string `json:"tier2Keywords"`
}

type ServiceLineRequest struct {
	CompanyProfile    CompanyProfile        `json:"companyProfile" binding:"required"`
	AdditionalContext string                `json:"additionalContext"`
	Quantity          int                   `json:"quantity" binding:"required,min=1,max=10"`
	AgentMemory       []ConversationMessage `json:"agentMemory"`
}

type ServiceLineResponse struct {
	Success      bool     `json:"success"`
	ServiceLines []string `json:"serviceLines,omitempty"`
	Error        string   `json:"error,omitempty"`
}

type LogoRequest struct {
	URL         string `json:"url" binding:"required"`
	CompanyName string `json:"companyName"`
}

// CachedContact is the user's prior contact details, kept for pre-filling
// the analysis form. Expires after 30 days.
type CachedContact struct {
	Email    string    `json:"email"`
	POC      string    `json:"poc"`
	LastUsed time.Time `json:"last_used"`
}

const ContactCacheTTL = 30 * 24 * time.Hour
