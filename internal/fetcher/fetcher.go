// Package fetcher implements the HTTP fetch contract consumed by the
// source parsers and the website analyzer.
package fetcher

import "context"

// Result is the outcome of a successful fetch.
type Result struct {
	StatusCode int
	Body       []byte
	FinalURL   string
	ElapsedMS  int64
}

// Fetcher downloads a single URL. Implementations own their connection
// pool; Close releases it (scoped acquisition).
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*Result, error)
	Close()
}
