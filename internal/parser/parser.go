// Package parser implements the source parsers that turn public web
// pages into lead candidates.
package parser

import (
	"context"
	"strings"

	"github.com/webtailor-studio/leadgen-cli/internal/extract"
	"github.com/webtailor-studio/leadgen-cli/internal/fetcher"
	"github.com/webtailor-studio/leadgen-cli/internal/model"
)

// Parser scans one source family for lead candidates.
type Parser interface {
	// Search streams up to max candidates and closes the channel when
	// done. The channel is not restartable.
	Search(ctx context.Context, max int) <-chan model.Candidate
	// SourceName is the human-readable source label.
	SourceName() string
	// SourceType identifies the parser family.
	SourceType() model.SourceType
}

// Config configures a parser instance.
type Config struct {
	// Keywords overrides the default relevance keyword set when non-empty.
	Keywords []string
	// Settings holds parser-specific options (channels, queries,
	// platforms, base_url).
	Settings map[string]string
	// Fetcher overrides the parser-owned HTTP fetcher, mainly for tests.
	Fetcher fetcher.Fetcher
}

func (c Config) keywords() []string {
	if len(c.Keywords) > 0 {
		return c.Keywords
	}
	return extract.DefaultKeywords
}

func (c Config) setting(key string) string {
	return c.Settings[key]
}

// settingList splits a comma-separated setting into trimmed values.
func (c Config) settingList(key string) []string {
	raw := c.Settings[key]
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (c Config) fetcher() fetcher.Fetcher {
	if c.Fetcher != nil {
		return c.Fetcher
	}
	return fetcher.NewHTTP(fetcher.Options{})
}

// ValidationError marks a request with an unknown or malformed parser
// type. It surfaces to the client unchanged.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string { return e.msg }

// Registry maps source types to parser constructors.
var registry = map[model.SourceType]func(Config) Parser{
	model.SourceTypeTelegramChannel:   func(cfg Config) Parser { return NewTelegram(cfg) },
	model.SourceTypeClassifiedAds:     func(cfg Config) Parser { return NewClassifieds(cfg) },
	model.SourceTypeFreelancePlatform: func(cfg Config) Parser { return NewFreelance(cfg) },
	model.SourceTypeForum:             func(cfg Config) Parser { return NewForum(cfg) },
}

// New creates a parser for the given source type.
func New(typ model.SourceType, cfg Config) (Parser, error) {
	ctor, ok := registry[typ]
	if !ok {
		return nil, &ValidationError{msg: "parser: unknown source type " + string(typ)}
	}
	return ctor(cfg), nil
}

// isRequest reports whether the text reads like a work request rather
// than a service ad.
func isRequest(text string) bool {
	return extract.ContainsKeyword(text, extract.LookingForMarkers)
}

// emit sends a candidate unless the context is done. It reports whether
// the send happened.
func emit(ctx context.Context, out chan<- model.Candidate, c model.Candidate) bool {
	select {
	case out <- c:
		return true
	case <-ctx.Done():
		return false
	}
}
