// Package store implements the persistence contract for leads, sources
// and website analyses behind a driver-selectable interface.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/webtailor-studio/leadgen-cli/internal/model"
)

// ErrDuplicate is returned by InsertLead when a uniqueness constraint
// (source URL, email or telegram handle) rejects the row. Callers treat
// it as "already known, skip", never as a failure.
var ErrDuplicate = eris.New("store: duplicate lead")

// ErrNotFound is returned when a referenced entity does not exist. It is
// the one store error that surfaces to callers as a client-visible
// failure.
var ErrNotFound = eris.New("store: not found")

// Store is the persistence contract consumed by the pipeline.
type Store interface {
	// Leads. The dedup keys are checked individually so the gate can
	// short-circuit in priority order.
	FindLeadByURL(ctx context.Context, sourceURL string) (*model.Lead, error)
	FindLeadByEmail(ctx context.Context, email string) (*model.Lead, error)
	FindLeadByTelegram(ctx context.Context, handle string) (*model.Lead, error)
	InsertLead(ctx context.Context, lead *model.Lead) (*model.Lead, error)
	UpdateLead(ctx context.Context, id string, upd model.LeadUpdate) error
	GetLead(ctx context.Context, id string) (*model.Lead, error)
	ListLeadsByStatus(ctx context.Context, status model.LeadStatus, limit int) ([]model.Lead, error)
	ListHotLeads(ctx context.Context, minScore float64, limit int) ([]model.Lead, error)

	// Sources.
	FindSource(ctx context.Context, name string, typ model.SourceType) (*model.Source, error)
	InsertSource(ctx context.Context, src *model.Source) (*model.Source, error)
	ListActiveSources(ctx context.Context, types []model.SourceType) ([]model.Source, error)
	UpdateSourceStats(ctx context.Context, id string, foundDelta, qualifiedDelta int) error
	TouchSourceSearch(ctx context.Context, id string) error

	// Website analyses, one row per lead, overwritten on re-analysis.
	GetWebsiteAnalysis(ctx context.Context, leadID string) (*model.WebsiteAnalysis, error)
	UpsertWebsiteAnalysis(ctx context.Context, wa *model.WebsiteAnalysis) error

	// Lifecycle.
	Migrate(ctx context.Context) error
	Close() error
}

// Open creates a Store for the configured driver ("sqlite" or "postgres").
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	switch driver {
	case "sqlite", "":
		return NewSQLite(dsn)
	case "postgres":
		return NewPostgres(ctx, dsn)
	default:
		return nil, eris.Errorf("store: unknown driver %q", driver)
	}
}
