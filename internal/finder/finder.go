// Package finder orchestrates source scans: it runs parsers, dedups
// their candidates against the store and persists new leads.
package finder

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/webtailor-studio/leadgen-cli/internal/fetcher"
	"github.com/webtailor-studio/leadgen-cli/internal/model"
	"github.com/webtailor-studio/leadgen-cli/internal/parser"
	"github.com/webtailor-studio/leadgen-cli/internal/store"
)

// Options bounds a SearchAll run.
type Options struct {
	// Types restricts the scan to the given source types; nil means all.
	Types []model.SourceType
	// MaxPerSource caps candidates taken from each source, default 50.
	MaxPerSource int
	// Concurrency bounds parallel source tasks, default 3.
	Concurrency int
	// PerSourceTimeout bounds each source task, default 2 minutes.
	PerSourceTimeout time.Duration
	// NewFetcher builds the HTTP fetcher for each parser a run creates.
	// Every parser gets its own instance so user-agent and cookie state
	// stay isolated; nil uses the parsers' defaults.
	NewFetcher func() fetcher.Fetcher
}

func (o *Options) defaults() {
	if o.MaxPerSource <= 0 {
		o.MaxPerSource = 50
	}
	if o.Concurrency <= 0 {
		o.Concurrency = 3
	}
	if o.PerSourceTimeout <= 0 {
		o.PerSourceTimeout = 2 * time.Minute
	}
}

// Finder runs source scans against the store.
type Finder struct {
	store store.Store
}

// New creates a Finder.
func New(st store.Store) *Finder {
	return &Finder{store: st}
}

// IsDuplicate reports whether a candidate matches an existing lead.
// Keys are checked in priority order: source URL, then email, then
// telegram handle; the first hit short-circuits.
func (f *Finder) IsDuplicate(ctx context.Context, c model.Candidate) (bool, error) {
	if _, err := f.store.FindLeadByURL(ctx, c.SourceURL); err == nil {
		return true, nil
	} else if !eris.Is(err, store.ErrNotFound) {
		return false, err
	}
	if c.Email != "" {
		if _, err := f.store.FindLeadByEmail(ctx, c.Email); err == nil {
			return true, nil
		} else if !eris.Is(err, store.ErrNotFound) {
			return false, err
		}
	}
	if c.Telegram != "" {
		if _, err := f.store.FindLeadByTelegram(ctx, c.Telegram); err == nil {
			return true, nil
		} else if !eris.Is(err, store.ErrNotFound) {
			return false, err
		}
	}
	return false, nil
}

// SearchSource drains one parser into the store. Duplicates are skipped
// silently; per-candidate store failures become error strings. Source
// stats are bumped by the number of inserted leads only.
func (f *Finder) SearchSource(ctx context.Context, p parser.Parser, src *model.Source, max int) ([]model.LeadRef, []string) {
	var (
		inserted []model.LeadRef
		errs     []string
	)

	for candidate := range p.Search(ctx, max) {
		dup, err := f.IsDuplicate(ctx, candidate)
		if err != nil {
			errs = append(errs, eris.ToString(err, false))
			continue
		}
		if dup {
			continue
		}

		lead := leadFromCandidate(candidate, src.ID)
		saved, err := f.store.InsertLead(ctx, lead)
		if err != nil {
			if eris.Is(err, store.ErrDuplicate) {
				// Lost the race to a concurrent task; same outcome as the
				// dedup gate.
				continue
			}
			errs = append(errs, eris.ToString(err, false))
			continue
		}
		inserted = append(inserted, model.LeadRef{
			ID:        saved.ID,
			Name:      saved.Name,
			SourceURL: saved.SourceURL,
		})
	}

	if src.ID != "" {
		if err := f.store.UpdateSourceStats(ctx, src.ID, len(inserted), 0); err != nil {
			zap.L().Warn("finder: source stats update failed",
				zap.String("source", src.Name), zap.Error(err))
		}
		if err := f.store.TouchSourceSearch(ctx, src.ID); err != nil {
			zap.L().Warn("finder: source touch failed",
				zap.String("source", src.Name), zap.Error(err))
		}
	}

	zap.L().Info("finder: source scan done",
		zap.String("source", src.Name),
		zap.Int("inserted", len(inserted)),
		zap.Int("errors", len(errs)),
	)
	return inserted, errs
}

// SearchAll scans every active source concurrently and aggregates a run
// summary. Individual source failures are reported in the summary, never
// as a returned error.
func (f *Finder) SearchAll(ctx context.Context, opts Options) (*model.SearchSummary, error) {
	opts.defaults()

	sources, err := f.store.ListActiveSources(ctx, opts.Types)
	if err != nil {
		return nil, eris.Wrap(err, "finder: list sources")
	}
	if len(sources) == 0 {
		sources, err = f.seedDefaultSources(ctx, opts.Types)
		if err != nil {
			return nil, err
		}
	}

	summary := &model.SearchSummary{BySource: make(map[string]int)}
	var mu sync.Mutex

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)

	for _, src := range sources {
		g.Go(func() error {
			var fetch fetcher.Fetcher
			if opts.NewFetcher != nil {
				fetch = opts.NewFetcher()
			}
			p, err := parser.New(src.Type, parser.Config{
				Keywords: src.Keywords,
				Settings: src.ParserConfig,
				Fetcher:  fetch,
			})
			if err != nil {
				mu.Lock()
				summary.Errors = append(summary.Errors, src.Name+": "+err.Error())
				mu.Unlock()
				return nil
			}

			taskCtx, cancel := context.WithTimeout(gCtx, opts.PerSourceTimeout)
			defer cancel()

			inserted, errs := f.SearchSource(taskCtx, p, &src, opts.MaxPerSource)

			mu.Lock()
			summary.TotalFound += len(inserted)
			summary.BySource[src.Name] += len(inserted)
			for _, e := range errs {
				summary.Errors = append(summary.Errors, src.Name+": "+e)
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	zap.L().Info("finder: search run complete",
		zap.Int("total_found", summary.TotalFound),
		zap.Int("sources", len(sources)),
		zap.Int("errors", len(summary.Errors)),
	)
	return summary, nil
}

// SearchCustom runs a one-off scan for an explicit parser type and
// config, creating the backing source row when missing.
func (f *Finder) SearchCustom(ctx context.Context, parserType model.SourceType, cfg map[string]string, sourceName string, max int) (*model.CustomSearchResult, error) {
	p, err := parser.New(parserType, parser.Config{Settings: cfg})
	if err != nil {
		return nil, err
	}
	if sourceName == "" {
		sourceName = p.SourceName()
	}

	src, err := f.getOrCreateSource(ctx, sourceName, parserType, cfg)
	if err != nil {
		return nil, err
	}
	if max <= 0 {
		max = 50
	}

	inserted, errs := f.SearchSource(ctx, p, src, max)
	for _, e := range errs {
		zap.L().Warn("finder: custom search error", zap.String("source", sourceName), zap.String("error", e))
	}

	return &model.CustomSearchResult{
		SourceName: src.Name,
		ParserType: parserType,
		LeadsFound: len(inserted),
		Leads:      inserted,
	}, nil
}

func (f *Finder) getOrCreateSource(ctx context.Context, name string, typ model.SourceType, cfg map[string]string) (*model.Source, error) {
	src, err := f.store.FindSource(ctx, name, typ)
	if err == nil {
		return src, nil
	}
	if !eris.Is(err, store.ErrNotFound) {
		return nil, eris.Wrap(err, "finder: find source")
	}
	src, err = f.store.InsertSource(ctx, &model.Source{
		Name:         name,
		Type:         typ,
		Active:       true,
		ParserConfig: cfg,
	})
	if err != nil {
		return nil, eris.Wrap(err, "finder: create source")
	}
	return src, nil
}

// defaultSources are seeded on the first run against an empty database.
var defaultSources = []model.Source{
	{Name: "Telegram Channels", Type: model.SourceTypeTelegramChannel, Active: true,
		Description: "Public freelance channels via t.me web previews"},
	{Name: "Avito", Type: model.SourceTypeClassifiedAds, Active: true,
		Description: "Avito services section, website requests"},
	{Name: "Freelance Platforms", Type: model.SourceTypeFreelancePlatform, Active: true,
		Description: "FL.ru, Kwork and Habr Freelance project listings"},
	{Name: "Forums", Type: model.SourceTypeForum, Active: true,
		Description: "Webmaster forums, request threads"},
}

func (f *Finder) seedDefaultSources(ctx context.Context, types []model.SourceType) ([]model.Source, error) {
	wanted := make(map[model.SourceType]bool, len(types))
	for _, t := range types {
		wanted[t] = true
	}

	var seeded []model.Source
	for _, src := range defaultSources {
		if len(types) > 0 && !wanted[src.Type] {
			continue
		}
		created, err := f.store.InsertSource(ctx, &src)
		if err != nil {
			return nil, eris.Wrap(err, "finder: seed default sources")
		}
		seeded = append(seeded, *created)
	}
	zap.L().Info("finder: seeded default sources", zap.Int("count", len(seeded)))
	return seeded, nil
}

func leadFromCandidate(c model.Candidate, sourceID string) *model.Lead {
	return &model.Lead{
		Name:                c.Name,
		CompanyName:         c.CompanyName,
		Email:               c.Email,
		Phone:               c.Phone,
		Telegram:            c.Telegram,
		Website:             c.Website,
		BusinessDescription: c.BusinessDescription,
		Industry:            c.Industry,
		OriginalRequest:     c.OriginalRequest,
		NeedsDescription:    c.NeedsDescription,
		BudgetMentioned:     c.BudgetMentioned,
		Urgency:             c.Urgency,
		SourceID:            sourceID,
		SourceURL:           c.SourceURL,
		FoundAt:             c.FoundAt,
		Status:              model.LeadStatusNew,
	}
}
