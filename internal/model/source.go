package model

import "time"

// SourceType identifies a parser family.
type SourceType string

const (
	SourceTypeTelegramChannel   SourceType = "telegram_channel"
	SourceTypeClassifiedAds     SourceType = "classified_ads"
	SourceTypeFreelancePlatform SourceType = "freelance_platform"
	SourceTypeForum             SourceType = "forum"
)

// Valid reports whether t names a known parser family.
func (t SourceType) Valid() bool {
	switch t {
	case SourceTypeTelegramChannel, SourceTypeClassifiedAds,
		SourceTypeFreelancePlatform, SourceTypeForum:
		return true
	}
	return false
}

// Source is a configured origin that parsers scan for candidates.
type Source struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Type        SourceType `json:"type"`
	URL         string     `json:"url,omitempty"`
	Description string     `json:"description,omitempty"`
	Active      bool       `json:"active"`

	// Keywords overrides the default relevance keyword set when non-empty.
	Keywords []string `json:"keywords,omitempty"`
	// ParserConfig holds parser-specific settings (target lists, location).
	ParserConfig map[string]string `json:"parser_config,omitempty"`

	TotalLeadsFound int        `json:"total_leads_found"`
	QualifiedCount  int        `json:"qualified_count"`
	LastSearchAt    *time.Time `json:"last_search_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}
