package qualifier

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webtailor-studio/leadgen-cli/internal/aichain"
	"github.com/webtailor-studio/leadgen-cli/internal/model"
	"github.com/webtailor-studio/leadgen-cli/internal/store"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	s, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { s.Close() }) //nolint:errcheck
	return s
}

func insertLead(t *testing.T, st store.Store, lead *model.Lead) *model.Lead {
	t.Helper()
	if lead.Name == "" {
		lead.Name = "test lead"
	}
	saved, err := st.InsertLead(context.Background(), lead)
	require.NoError(t, err)
	return saved
}

func TestQualifyLeadHighBudgetUrgent(t *testing.T) {
	st := newTestStore(t)
	q := New(st, nil)
	ctx := context.Background()

	lead := insertLead(t, st, &model.Lead{
		SourceURL:       "https://example.com/1",
		Telegram:        "owner",
		OriginalRequest: "Срочно нужен сайт, бюджет 200 тыс рублей",
	})

	got, err := q.QualifyLead(ctx, lead.ID)
	require.NoError(t, err)

	require.NotNil(t, got.BudgetScore)
	assert.Equal(t, 85.0, *got.BudgetScore)
	require.NotNil(t, got.UrgencyScore)
	assert.Equal(t, 95.0, *got.UrgencyScore)
	// Contact, no website, high budget and urgency push fit to the cap.
	require.NotNil(t, got.FitScore)
	assert.Equal(t, 100.0, *got.FitScore)

	require.NotNil(t, got.QualificationScore)
	assert.Greater(t, *got.QualificationScore, 70.0)
	assert.Equal(t, model.LeadStatusQualified, got.Status)
	assert.Equal(t, 2, got.Priority)
	assert.Equal(t, "urgent", got.Urgency)
	assert.Contains(t, got.QualificationNotes, "Бюджет: high")
	assert.Contains(t, got.QualificationNotes, "Срочность: urgent")
}

func TestQualifyLeadDisqualifies(t *testing.T) {
	st := newTestStore(t)
	q := New(st, nil)

	lead := insertLead(t, st, &model.Lead{
		SourceURL:       "https://example.com/2",
		OriginalRequest: "Нужен сайт бесплатно, за отзыв",
	})

	got, err := q.QualifyLead(context.Background(), lead.ID)
	require.NoError(t, err)

	assert.Equal(t, model.LeadStatusDisqualified, got.Status)
	require.NotNil(t, got.QualificationScore)
	assert.Equal(t, 0.0, *got.QualificationScore)
	assert.Contains(t, got.QualificationNotes, "бесплатно")
}

func TestQualifyLeadDetectsIndustry(t *testing.T) {
	st := newTestStore(t)
	q := New(st, nil)

	lead := insertLead(t, st, &model.Lead{
		SourceURL:       "https://example.com/3",
		OriginalRequest: "Нужен интернет-магазин одежды",
	})

	got, err := q.QualifyLead(context.Background(), lead.ID)
	require.NoError(t, err)

	assert.Equal(t, "e-commerce", got.Industry)
	// Unknown budget 50, normal urgency 40, fit 65.
	require.NotNil(t, got.QualificationScore)
	assert.InDelta(t, 51.67, *got.QualificationScore, 0.1)
	assert.Equal(t, model.LeadStatusQualified, got.Status)
	assert.Equal(t, 1, got.Priority)
}

func TestQualifyLeadKeepsExistingIndustry(t *testing.T) {
	st := newTestStore(t)
	q := New(st, nil)

	lead := insertLead(t, st, &model.Lead{
		SourceURL:       "https://example.com/4",
		Industry:        "beauty",
		OriginalRequest: "Нужен интернет-магазин одежды",
	})

	got, err := q.QualifyLead(context.Background(), lead.ID)
	require.NoError(t, err)
	assert.Equal(t, "beauty", got.Industry)
}

func TestQualifyLeadUsesWebsiteScore(t *testing.T) {
	st := newTestStore(t)
	q := New(st, nil)
	ctx := context.Background()

	lead := insertLead(t, st, &model.Lead{
		SourceURL:       "https://example.com/5",
		Website:         "https://old-site.ru",
		OriginalRequest: "Хочу обновить сайт салона красоты",
	})
	require.NoError(t, st.UpsertWebsiteAnalysis(ctx, &model.WebsiteAnalysis{
		LeadID:       lead.ID,
		URL:          "https://old-site.ru",
		Accessible:   true,
		OverallScore: 40,
	}))

	got, err := q.QualifyLead(ctx, lead.ID)
	require.NoError(t, err)

	// Weak existing website adds 15 fit points over an unanalyzed one.
	// Base 50, weak site +15, beauty industry +5.
	require.NotNil(t, got.FitScore)
	assert.Equal(t, 70.0, *got.FitScore)
	assert.Contains(t, got.QualificationNotes, "Качество сайта: 40")
}

func TestQualifyLeadDeterministic(t *testing.T) {
	st := newTestStore(t)
	q := New(st, nil)
	ctx := context.Background()

	lead := insertLead(t, st, &model.Lead{
		SourceURL:       "https://example.com/6",
		Email:           "client@ex.ru",
		OriginalRequest: "Нужен сайт для автосервиса, бюджет 50 тыс, на этой неделе",
	})

	first, err := q.QualifyLead(ctx, lead.ID)
	require.NoError(t, err)
	second, err := q.QualifyLead(ctx, lead.ID)
	require.NoError(t, err)

	assert.Equal(t, *first.QualificationScore, *second.QualificationScore)
	assert.Equal(t, *first.BudgetScore, *second.BudgetScore)
	assert.Equal(t, *first.UrgencyScore, *second.UrgencyScore)
	assert.Equal(t, *first.FitScore, *second.FitScore)
	assert.Equal(t, first.QualificationNotes, second.QualificationNotes)
}

func TestQualifyLeadNotFound(t *testing.T) {
	st := newTestStore(t)
	q := New(st, nil)

	_, err := q.QualifyLead(context.Background(), "no-such-id")
	require.Error(t, err)
	assert.True(t, eris.Is(err, store.ErrNotFound))
}

// fakeProvider scripts one chain participant.
type fakeProvider struct {
	name       string
	configured bool
	out        string
	err        error
}

func (p *fakeProvider) Name() string     { return p.name }
func (p *fakeProvider) Configured() bool { return p.configured }

func (p *fakeProvider) Generate(context.Context, string, string) (string, error) {
	return p.out, p.err
}

func TestQualifyLeadAIFallsBackToRules(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	// Two identical leads, one scored by a broken chain, one by rules.
	ruleLead := insertLead(t, st, &model.Lead{
		SourceURL:       "https://example.com/rule",
		Telegram:        "client",
		OriginalRequest: "Срочно нужен сайт, бюджет 200 тыс рублей",
	})
	aiLead := insertLead(t, st, &model.Lead{
		SourceURL:       "https://example.com/ai",
		Telegram:        "client2",
		OriginalRequest: "Срочно нужен сайт, бюджет 200 тыс рублей",
	})

	broken := aichain.NewChain(&fakeProvider{
		name: "broken", configured: true, err: eris.New("provider down"),
	})

	ruleGot, err := New(st, nil).QualifyLead(ctx, ruleLead.ID)
	require.NoError(t, err)
	aiGot, err := New(st, broken).QualifyLeadAI(ctx, aiLead.ID)
	require.NoError(t, err)

	// The fallback must be indistinguishable from the rule path.
	assert.Equal(t, *ruleGot.QualificationScore, *aiGot.QualificationScore)
	assert.Equal(t, *ruleGot.BudgetScore, *aiGot.BudgetScore)
	assert.Equal(t, *ruleGot.UrgencyScore, *aiGot.UrgencyScore)
	assert.Equal(t, *ruleGot.FitScore, *aiGot.FitScore)
	assert.Equal(t, ruleGot.Status, aiGot.Status)
	assert.Equal(t, ruleGot.Priority, aiGot.Priority)
	assert.Equal(t, ruleGot.QualificationNotes, aiGot.QualificationNotes)
	assert.Empty(t, aiGot.AIAnalysis)
}

func TestQualifyLeadAIWeighted(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	lead := insertLead(t, st, &model.Lead{
		SourceURL:       "https://example.com/ai-ok",
		OriginalRequest: "Нужен корпоративный сайт",
	})

	chain := aichain.NewChain(&fakeProvider{
		name: "scripted", configured: true,
		out: `{"industry":"services","budget_score":80,"urgency_score":60,
			"fit_score":90,"is_spam":false,"project_type":"корпоративный сайт",
			"estimated_budget_range":"100-200 тыс","key_needs":["каталог","форма заявки"],
			"notes":"перспективный клиент"}`,
	})

	got, err := New(st, chain).QualifyLeadAI(ctx, lead.ID)
	require.NoError(t, err)

	// 80*0.3 + 60*0.2 + 90*0.5 = 81.
	require.NotNil(t, got.QualificationScore)
	assert.InDelta(t, 81.0, *got.QualificationScore, 0.001)
	assert.Equal(t, model.LeadStatusQualified, got.Status)
	assert.Equal(t, 2, got.Priority)
	assert.Equal(t, "services", got.Industry)
	assert.Contains(t, got.QualificationNotes, "Тип проекта: корпоративный сайт")
	assert.Contains(t, got.QualificationNotes, "каталог, форма заявки")

	require.NotEmpty(t, got.AIAnalysis)
	var stored aiAssessment
	require.NoError(t, json.Unmarshal(got.AIAnalysis, &stored))
	assert.Equal(t, 90.0, stored.FitScore)
}

func TestQualifyLeadAISpam(t *testing.T) {
	st := newTestStore(t)

	lead := insertLead(t, st, &model.Lead{
		SourceURL:       "https://example.com/spam",
		OriginalRequest: "Заработок на инвестициях, пишите в лс",
	})

	chain := aichain.NewChain(&fakeProvider{
		name: "scripted", configured: true,
		out: `{"is_spam":true,"spam_reason":"Реклама заработка, не запрос на сайт"}`,
	})

	got, err := New(st, chain).QualifyLeadAI(context.Background(), lead.ID)
	require.NoError(t, err)

	assert.Equal(t, model.LeadStatusSpam, got.Status)
	require.NotNil(t, got.QualificationScore)
	assert.Equal(t, 0.0, *got.QualificationScore)
	assert.Equal(t, "Реклама заработка, не запрос на сайт", got.QualificationNotes)
}

func TestQualifyAllNew(t *testing.T) {
	st := newTestStore(t)
	q := New(st, nil)
	ctx := context.Background()

	insertLead(t, st, &model.Lead{
		SourceURL:       "https://example.com/b1",
		Telegram:        "a",
		OriginalRequest: "Срочно нужен сайт, бюджет 200 тыс",
	})
	insertLead(t, st, &model.Lead{
		SourceURL:       "https://example.com/b2",
		OriginalRequest: "Сделайте сайт бесплатно",
	})
	insertLead(t, st, &model.Lead{
		SourceURL:       "https://example.com/b3",
		OriginalRequest: "Нужен сайт, бюджет до 20 тыс", // stays NEW
	})

	summary, err := q.QualifyAllNew(ctx, false, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Qualified)
	assert.Equal(t, 1, summary.Disqualified)
	assert.Equal(t, 0, summary.Spam)
	assert.Empty(t, summary.Errors)

	// A second run only sees the lead that stayed NEW.
	again, err := q.QualifyAllNew(ctx, false, 2)
	require.NoError(t, err)
	assert.Equal(t, 0, again.Qualified)
	assert.Equal(t, 0, again.Disqualified)
}

func TestHotLeads(t *testing.T) {
	st := newTestStore(t)
	q := New(st, nil)
	ctx := context.Background()

	hot := insertLead(t, st, &model.Lead{
		SourceURL:       "https://example.com/h1",
		Telegram:        "hot_client",
		OriginalRequest: "Срочно нужен сайт, бюджет 200 тыс рублей",
	})
	insertLead(t, st, &model.Lead{
		SourceURL:       "https://example.com/h2",
		OriginalRequest: "Посоветуйте студию", // stays below the floor
	})

	_, err := q.QualifyAllNew(ctx, false, 2)
	require.NoError(t, err)

	leads, err := q.HotLeads(ctx, 10)
	require.NoError(t, err)
	require.Len(t, leads, 1)
	assert.Equal(t, hot.ID, leads[0].ID)
}
