// Package model defines the core domain types shared across the pipeline.
package model

import (
	"encoding/json"
	"time"
)

// LeadStatus tracks a lead through the acquisition pipeline.
type LeadStatus string

const (
	LeadStatusNew          LeadStatus = "new"
	LeadStatusQualifying   LeadStatus = "qualifying"
	LeadStatusQualified    LeadStatus = "qualified"
	LeadStatusContacted    LeadStatus = "contacted"
	LeadStatusResponded    LeadStatus = "responded"
	LeadStatusNegotiating  LeadStatus = "negotiating"
	LeadStatusWon          LeadStatus = "won"
	LeadStatusLost         LeadStatus = "lost"
	LeadStatusDisqualified LeadStatus = "disqualified"
	LeadStatusSpam         LeadStatus = "spam"
)

// Valid reports whether s is a known lead status.
func (s LeadStatus) Valid() bool {
	switch s {
	case LeadStatusNew, LeadStatusQualifying, LeadStatusQualified,
		LeadStatusContacted, LeadStatusResponded, LeadStatusNegotiating,
		LeadStatusWon, LeadStatusLost, LeadStatusDisqualified, LeadStatusSpam:
		return true
	}
	return false
}

// Lead is a persisted potential client with contact data and scores.
type Lead struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	CompanyName string `json:"company_name,omitempty"`

	// Contact information.
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Telegram string `json:"telegram,omitempty"`
	Website  string `json:"website,omitempty"`

	// Business information.
	BusinessDescription string `json:"business_description,omitempty"`
	Industry            string `json:"industry,omitempty"`

	// Lead details.
	OriginalRequest  string `json:"original_request,omitempty"`
	NeedsDescription string `json:"needs_description,omitempty"`
	BudgetMentioned  string `json:"budget_mentioned,omitempty"`
	Urgency          string `json:"urgency,omitempty"`

	// Originating source (weak reference).
	SourceID  string    `json:"source_id,omitempty"`
	SourceURL string    `json:"source_url"`
	FoundAt   time.Time `json:"found_at"`

	// Qualification scores, 0-100, nil when not yet scored.
	QualificationScore *float64 `json:"qualification_score,omitempty"`
	BudgetScore        *float64 `json:"budget_score,omitempty"`
	UrgencyScore       *float64 `json:"urgency_score,omitempty"`
	FitScore           *float64 `json:"fit_score,omitempty"`

	Status   LeadStatus `json:"status"`
	Priority int        `json:"priority"`

	// AIAnalysis holds the raw JSON payload from the AI qualification
	// path, when that path was used.
	AIAnalysis         json.RawMessage `json:"ai_analysis,omitempty"`
	QualificationNotes string          `json:"qualification_notes,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ContactAvailable reports whether any direct contact channel is known.
func (l *Lead) ContactAvailable() bool {
	return l.Email != "" || l.Phone != "" || l.Telegram != ""
}

// IsHot reports whether the lead is high-priority outreach material.
func (l *Lead) IsHot() bool {
	if l.QualificationScore == nil {
		return false
	}
	if *l.QualificationScore < 70 {
		return false
	}
	return l.Status == LeadStatusNew || l.Status == LeadStatusQualified
}

// LeadUpdate carries a partial update for a lead. Nil fields are left
// untouched by the store.
type LeadUpdate struct {
	Industry           *string
	Urgency            *string
	QualificationScore *float64
	BudgetScore        *float64
	UrgencyScore       *float64
	FitScore           *float64
	Status             *LeadStatus
	Priority           *int
	AIAnalysis         json.RawMessage
	QualificationNotes *string
}

// LeadRef is a minimal lead reference returned in search results.
type LeadRef struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	SourceURL string `json:"source_url"`
}
