package services

import (
	"fmt"
	"strings"

	"profiler-pipeline/internal/models"
)

// agentSystemPrompt drives the analysis loop. The mandatory tool sequence is
// also enforced server-side; the prompt keeps the model from wasting steps.
const agentSystemPrompt = `You are a specialized AI agent designed to analyze company websites and extract structured business information to create comprehensive company profiles. Your primary function is to help users understand companies and their potential for government contracting opportunities.

IMPORTANT: You must follow this EXACT sequence when processing a company website:

1. FIRST: Use the getWebsiteContent tool to retrieve and analyze the website content
2. IF ERROR: If getWebsiteContent returns an error (check if result contains 'error' field), immediately use returnToHomeWithError tool and STOP processing
3. IF SUCCESS: After successful website content retrieval, immediately use the redirectToProfile tool with:
   - All extracted company information
   - The logo_base64 parameter: set to empty string "" (logo will be loaded asynchronously)
4. OPTIONAL: After redirectToProfile, you MAY use the getCompanyLogo tool to fetch the company logo asynchronously, but this should NOT block the profile redirect

The logo loading is handled asynchronously, so DO NOT wait for getCompanyLogo before calling redirectToProfile.

Focus on extracting:
- Company name and description (keep description concise, maximum 240 characters)
- Service lines: The core business services or solutions the company provides.
    * For this parameter you should analyze deeply the company's business profile and define if the company has a single or multiple service lines.
    * If the company has multiple service lines, you should choose the two most relevant to the company's business profile.
    * Good examples include:
        - "Software Development" (not just "Software")
        - "Cybersecurity Consulting" (not just "Security")
        - "Infrastructure Management" (not just "IT")
        - "Data Analytics Solutions" (not just "Analytics")
        - "Project Management Services" (not just "Management")
- Keywords: MUST be single words only (no phrases or multiple words). Certify that the keywords are correlated to the company's business profile:
  * Tier 1: Primary single words this company would use when searching for opportunities (avoid generic words like "Technology", "Services", "Solutions")
        - E.g. solar would be a good keyword for a company that sells solar panels
  * Tier 2: Secondary single words for broader or related searches
- Contact information (emails, points of contact)

When identifying keywords, think about SAM.gov categories and NAICS codes. Keywords should be high-level procurement terms, not specific technologies or company-specific terms.

Examples of good vs bad keywords:
- Good: "Software", "Consulting", "Engineering", "Healthcare", "Construction"
- Bad: "JavaScript", "React", "AI/ML", "Cloud Computing", "Digital Transformation"

Always provide clear, actionable insights about the company's business profile and potential government contracting relevance. Keep all outputs concise and focused on the most relevant information. All communication should be in English.`

// serviceLineSystemPrompt conditions the follow-up generator.
const serviceLineSystemPrompt = `You are a specialized AI agent designed to analyze company websites and extract structured business information to create comprehensive company profiles. Your primary function is to help users understand companies and their potential for government contracting opportunities.

When a user asks to generate new service lines for their company profile, analyze the existing company information and generate relevant service lines that complement the existing ones.

Focus on generating service lines that:
- Are specific and relevant to the company's business
- Complement existing service lines without duplication
- Consider government contracting opportunities
- Align with the company's tier 1 and tier 2 keywords
- Are professionally worded and clear

Always respond with only the requested JSON format containing the service lines array.`

// BuildAnalysisPrompt produces the opening user message of an analysis turn.
func BuildAnalysisPrompt(url, email, poc string) string {
	return fmt.Sprintf(`Please analyze the website %s and extract comprehensive company information. Use the getWebsiteContent tool to retrieve the website content first, then use the redirectToProfile tool to redirect to the profile page with the extracted data:

- company_name: The official company name
- company_description: A brief description of what the company does
- service_line: Array of services the company provides
- tier1_keywords: Primary keywords this company would use to search for government opportunities
- tier2_keywords: Secondary keywords for government contracting
- emails: Use only this email: [%s]
- poc: Use this contact name: %s

Please ensure you use the redirectToProfile tool to redirect to the profile page with the extracted information.`, url, email, poc)
}

// buildServiceLinePrompt produces the follow-up user message. The prompt
// references "past" suggestions because the snapshot memory replays the
// original analysis summary ahead of it.
func buildServiceLinePrompt(req *models.ServiceLineRequest) string {
	var b strings.Builder

	fmt.Fprintf(&b, `Based on the company profile you have already analyzed, generate %d new service line that would complement the past one you have generated.

Services line generated: %s

`, req.Quantity, strings.Join(req.CompanyProfile.ServiceLines, ", "))

	if req.AdditionalContext != "" {
		fmt.Fprintf(&b, "Additional Context: %s\n\n", req.AdditionalContext)
	}

	fmt.Fprintf(&b, `Please respond with ONLY a JSON object in this exact format:
{
  "service_lines": ["Service Line 1", "Service Line 2"]
}

Generate exactly %d service line(s). Make them specific and relevant to the company's business. Consider our previous conversation to avoid repetition and build upon previous suggestions.`, req.Quantity)

	return b.String()
}

// fallbackSummary is the canned assistant memory used when the analysis turn
// redirected without emitting any summary text.
func fallbackSummary(companyName string) string {
	if companyName == "" {
		companyName = "the company"
	}
	return fmt.Sprintf("I analyzed the website and extracted a structured business profile for %s, including its service lines, keywords and contact information.", companyName)
}
