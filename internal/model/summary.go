package model

// SearchSummary aggregates the outcome of a multi-source search run.
// Errors holds per-source failure strings; a failing source never fails
// the run itself.
type SearchSummary struct {
	TotalFound int            `json:"total_found"`
	BySource   map[string]int `json:"by_source"`
	Errors     []string       `json:"errors,omitempty"`
}

// QualifySummary aggregates a qualification batch.
type QualifySummary struct {
	Qualified    int      `json:"qualified"`
	Disqualified int      `json:"disqualified"`
	Spam         int      `json:"spam"`
	Errors       []string `json:"errors,omitempty"`
}

// CustomSearchResult reports a single-source custom search.
type CustomSearchResult struct {
	SourceName string     `json:"source_name"`
	ParserType SourceType `json:"parser_type"`
	LeadsFound int        `json:"leads_found"`
	Leads      []LeadRef  `json:"leads"`
}
