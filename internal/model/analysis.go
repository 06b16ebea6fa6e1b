package model

import "time"

// IssueSeverity ranks website issues.
type IssueSeverity string

const (
	SeverityCritical IssueSeverity = "critical"
	SeverityHigh     IssueSeverity = "high"
	SeverityMedium   IssueSeverity = "medium"
	SeverityLow      IssueSeverity = "low"
)

// Rank returns the sort order of a severity, lower is more severe.
func (s IssueSeverity) Rank() int {
	switch s {
	case SeverityCritical:
		return 0
	case SeverityHigh:
		return 1
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 3
	}
	return 4
}

// Issue is a single website problem found during analysis.
type Issue struct {
	Code        string        `json:"code"`
	Severity    IssueSeverity `json:"severity"`
	Description string        `json:"description"`
	Suggestion  string        `json:"suggestion"`
}

// WebsiteAnalysis is the derived quality assessment of a lead's website.
// One per lead; re-analysis overwrites in place.
type WebsiteAnalysis struct {
	LeadID     string `json:"lead_id"`
	URL        string `json:"url"`
	FinalURL   string `json:"final_url,omitempty"`
	Accessible bool   `json:"accessible"`
	StatusCode int    `json:"status_code,omitempty"`
	LoadTimeMS int64  `json:"load_time_ms,omitempty"`

	HasSSL         bool `json:"has_ssl"`
	MobileFriendly bool `json:"mobile_friendly"`
	HasTitle       bool `json:"has_title"`
	HasDescription bool `json:"has_description"`
	HasContactForm bool `json:"has_contact_form"`
	HasSocialLinks bool `json:"has_social_links"`
	HasFavicon     bool `json:"has_favicon"`

	CMS          string   `json:"cms,omitempty"`
	Technologies []string `json:"technologies,omitempty"`

	PerformanceScore float64 `json:"performance_score"`
	SEOScore         float64 `json:"seo_score"`
	MobileScore      float64 `json:"mobile_score"`
	OverallScore     float64 `json:"overall_score"`

	Issues     []Issue   `json:"issues,omitempty"`
	AnalyzedAt time.Time `json:"analyzed_at"`
}
