package model

import "time"

// Candidate is an ephemeral record yielded by a source parser. It is
// immutable after creation and owned by the parser until handed to the
// orchestrator, which decides whether it becomes a Lead.
type Candidate struct {
	Name            string `json:"name"`
	SourceURL       string `json:"source_url"`
	OriginalRequest string `json:"original_request"`

	// Contact information.
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Telegram string `json:"telegram,omitempty"`
	Website  string `json:"website,omitempty"`

	// Business information.
	CompanyName         string `json:"company_name,omitempty"`
	BusinessDescription string `json:"business_description,omitempty"`
	Industry            string `json:"industry,omitempty"`

	// Lead details.
	NeedsDescription string `json:"needs_description,omitempty"`
	BudgetMentioned  string `json:"budget_mentioned,omitempty"`
	Urgency          string `json:"urgency,omitempty"`

	FoundAt time.Time `json:"found_at"`
	// Raw holds source-specific payload fields (channel, location, price).
	Raw map[string]string `json:"raw,omitempty"`
}
