// Package qualifier scores leads and routes them through the pipeline
// statuses. Scoring is deterministic by default; an AI provider chain
// can refine it with a rule-based fallback.
package qualifier

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/webtailor-studio/leadgen-cli/internal/aichain"
	"github.com/webtailor-studio/leadgen-cli/internal/extract"
	"github.com/webtailor-studio/leadgen-cli/internal/model"
	"github.com/webtailor-studio/leadgen-cli/internal/store"
)

// hotLeadMinScore is the qualification score floor for outreach lists.
const hotLeadMinScore = 60

// Qualifier scores leads against the store.
type Qualifier struct {
	store store.Store
	chain *aichain.Chain
}

// New creates a Qualifier. The chain may be nil, which disables the AI
// path entirely.
func New(st store.Store, chain *aichain.Chain) *Qualifier {
	return &Qualifier{store: st, chain: chain}
}

func containsFold(folded, keyword string) bool {
	return strings.Contains(folded, extract.Fold(keyword))
}

func leadText(lead *model.Lead) string {
	parts := []string{lead.OriginalRequest, lead.NeedsDescription, lead.BusinessDescription}
	var nonEmpty []string
	for _, p := range parts {
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, " ")
}

// QualifyLead scores one lead with the deterministic rule path and
// persists the result. Returns the updated lead.
func (q *Qualifier) QualifyLead(ctx context.Context, id string) (*model.Lead, error) {
	lead, err := q.store.GetLead(ctx, id)
	if err != nil {
		return nil, eris.Wrapf(err, "qualifier: load lead %s", id)
	}

	text := leadText(lead)
	folded := extract.Fold(text)

	if bad, pattern := checkDisqualification(folded); bad {
		zero := 0.0
		status := model.LeadStatusDisqualified
		notes := "Matched disqualification pattern: " + pattern
		upd := model.LeadUpdate{
			QualificationScore: &zero,
			Status:             &status,
			QualificationNotes: &notes,
		}
		if err := q.store.UpdateLead(ctx, id, upd); err != nil {
			return nil, eris.Wrapf(err, "qualifier: disqualify lead %s", id)
		}
		return q.store.GetLead(ctx, id)
	}

	industry := detectIndustry(folded)
	budgetLevel, budgetScore := matchTier(budgetTiers, folded, budgetUnknownLevel, budgetUnknownScore)
	urgencyLevel, urgencyScore := matchTier(urgencyTiers, folded, urgencyNormalLevel, urgencyNormalScore)

	var websiteScore *float64
	if lead.Website != "" {
		if wa, err := q.store.GetWebsiteAnalysis(ctx, id); err == nil {
			websiteScore = &wa.OverallScore
		} else if !eris.Is(err, store.ErrNotFound) {
			return nil, eris.Wrapf(err, "qualifier: load website analysis %s", id)
		}
	}

	fit := fitScore(lead.ContactAvailable(), lead.Website != "", websiteScore,
		budgetLevel, urgencyLevel, industry)
	qualification := (budgetScore + urgencyScore + fit) / 3

	status, priority := statusForScore(qualification)

	notes := []string{
		"Отрасль: " + orDefault(industry, "не определена"),
		fmt.Sprintf("Бюджет: %s (оценка: %.0f)", budgetLevel, budgetScore),
		fmt.Sprintf("Срочность: %s (оценка: %.0f)", urgencyLevel, urgencyScore),
		fmt.Sprintf("Соответствие: %.0f", fit),
	}
	if websiteScore != nil {
		notes = append(notes, fmt.Sprintf("Качество сайта: %.0f", *websiteScore))
	}
	notesStr := strings.Join(notes, "\n")

	upd := model.LeadUpdate{
		QualificationScore: &qualification,
		BudgetScore:        &budgetScore,
		UrgencyScore:       &urgencyScore,
		FitScore:           &fit,
		Status:             &status,
		Priority:           &priority,
		QualificationNotes: &notesStr,
	}
	if industry != "" && lead.Industry == "" {
		upd.Industry = &industry
	}
	if lead.Urgency == "" {
		upd.Urgency = &urgencyLevel
	}

	if err := q.store.UpdateLead(ctx, id, upd); err != nil {
		return nil, eris.Wrapf(err, "qualifier: update lead %s", id)
	}
	return q.store.GetLead(ctx, id)
}

func statusForScore(score float64) (model.LeadStatus, int) {
	switch {
	case score >= 70:
		return model.LeadStatusQualified, 2
	case score >= 50:
		return model.LeadStatusQualified, 1
	default:
		return model.LeadStatusNew, 0
	}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// QualifyAllNew qualifies every lead in NEW status. Per-lead failures
// are collected as strings, never aborting the batch.
func (q *Qualifier) QualifyAllNew(ctx context.Context, useAI bool, concurrency int) (*model.QualifySummary, error) {
	if concurrency <= 0 {
		concurrency = 3
	}
	leads, err := q.store.ListLeadsByStatus(ctx, model.LeadStatusNew, 0)
	if err != nil {
		return nil, eris.Wrap(err, "qualifier: list new leads")
	}

	summary := &model.QualifySummary{}
	var mu sync.Mutex

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for _, lead := range leads {
		g.Go(func() error {
			var (
				scored *model.Lead
				err    error
			)
			if useAI {
				scored, err = q.QualifyLeadAI(gCtx, lead.ID)
			} else {
				scored, err = q.QualifyLead(gCtx, lead.ID)
			}

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				summary.Errors = append(summary.Errors, "lead "+lead.ID+": "+eris.ToString(err, false))
				return nil
			}
			switch scored.Status {
			case model.LeadStatusQualified:
				summary.Qualified++
			case model.LeadStatusDisqualified:
				summary.Disqualified++
			case model.LeadStatusSpam:
				summary.Spam++
			}
			return nil
		})
	}
	_ = g.Wait()

	zap.L().Info("qualifier: batch done",
		zap.Int("total", len(leads)),
		zap.Int("qualified", summary.Qualified),
		zap.Int("disqualified", summary.Disqualified),
		zap.Int("spam", summary.Spam),
		zap.Int("errors", len(summary.Errors)),
	)
	return summary, nil
}

// HotLeads returns the top qualified leads for outreach.
func (q *Qualifier) HotLeads(ctx context.Context, limit int) ([]model.Lead, error) {
	return q.store.ListHotLeads(ctx, hotLeadMinScore, limit)
}
