package qualifier

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/webtailor-studio/leadgen-cli/internal/model"
)

const aiSystemPrompt = `Ты - эксперт по квалификации лидов для веб-студии. ` +
	`Оцениваешь запросы на разработку сайтов.`

// aiAssessment is the JSON contract the provider must honour.
type aiAssessment struct {
	Industry             string   `json:"industry"`
	BudgetScore          float64  `json:"budget_score"`
	UrgencyScore         float64  `json:"urgency_score"`
	FitScore             float64  `json:"fit_score"`
	IsSpam               bool     `json:"is_spam"`
	SpamReason           string   `json:"spam_reason"`
	ProjectType          string   `json:"project_type"`
	EstimatedBudgetRange string   `json:"estimated_budget_range"`
	KeyNeeds             []string `json:"key_needs"`
	Notes                string   `json:"notes"`
}

func aiPrompt(lead *model.Lead) string {
	var b strings.Builder
	b.WriteString("Оцени этот лид для веб-студии (разработка сайтов):\n\n")
	fmt.Fprintf(&b, "Имя: %s\n", lead.Name)
	if lead.CompanyName != "" {
		fmt.Fprintf(&b, "Компания: %s\n", lead.CompanyName)
	}
	fmt.Fprintf(&b, "Запрос: %s\n", lead.OriginalRequest)
	if lead.NeedsDescription != "" {
		fmt.Fprintf(&b, "Потребности: %s\n", lead.NeedsDescription)
	}
	if lead.BusinessDescription != "" {
		fmt.Fprintf(&b, "О бизнесе: %s\n", lead.BusinessDescription)
	}
	if lead.BudgetMentioned != "" {
		fmt.Fprintf(&b, "Упомянутый бюджет: %s\n", lead.BudgetMentioned)
	}
	if lead.Website != "" {
		fmt.Fprintf(&b, "Сайт: %s\n", lead.Website)
	}
	fmt.Fprintf(&b, "Есть контакт: %v\n", lead.ContactAvailable())

	b.WriteString(`
Верни JSON со следующими полями:
{
  "industry": "отрасль клиента или пустая строка",
  "budget_score": 0-100,
  "urgency_score": 0-100,
  "fit_score": 0-100,
  "is_spam": true/false,
  "spam_reason": "причина, если спам",
  "project_type": "тип проекта (лендинг, корпоративный сайт, магазин...)",
  "estimated_budget_range": "оценка бюджета",
  "key_needs": ["ключевые потребности"],
  "notes": "краткий комментарий для менеджера"
}`)
	return b.String()
}

// QualifyLeadAI scores a lead through the provider chain. Any chain
// failure falls back to the deterministic rule path so a lead is never
// left unscored.
func (q *Qualifier) QualifyLeadAI(ctx context.Context, id string) (*model.Lead, error) {
	if q.chain == nil || !q.chain.Available() {
		return q.QualifyLead(ctx, id)
	}

	lead, err := q.store.GetLead(ctx, id)
	if err != nil {
		return nil, eris.Wrapf(err, "qualifier: load lead %s", id)
	}

	var assessment aiAssessment
	provider, err := q.chain.GenerateJSON(ctx, aiPrompt(lead), aiSystemPrompt, &assessment)
	if err != nil {
		zap.L().Warn("qualifier: ai qualification failed, using rules",
			zap.String("lead", id), zap.Error(err))
		return q.QualifyLead(ctx, id)
	}

	if assessment.IsSpam {
		zero := 0.0
		status := model.LeadStatusSpam
		notes := assessment.SpamReason
		if notes == "" {
			notes = "Помечено как спам"
		}
		upd := model.LeadUpdate{
			QualificationScore: &zero,
			Status:             &status,
			QualificationNotes: &notes,
		}
		if raw, err := json.Marshal(assessment); err == nil {
			upd.AIAnalysis = raw
		}
		if err := q.store.UpdateLead(ctx, id, upd); err != nil {
			return nil, eris.Wrapf(err, "qualifier: mark spam %s", id)
		}
		return q.store.GetLead(ctx, id)
	}

	budget := clampScore(assessment.BudgetScore)
	urgency := clampScore(assessment.UrgencyScore)
	fit := clampScore(assessment.FitScore)
	qualification := budget*0.3 + urgency*0.2 + fit*0.5

	status, priority := statusForScore(qualification)

	notes := []string{}
	if assessment.ProjectType != "" {
		notes = append(notes, "Тип проекта: "+assessment.ProjectType)
	}
	if assessment.EstimatedBudgetRange != "" {
		notes = append(notes, "Оценка бюджета: "+assessment.EstimatedBudgetRange)
	}
	if len(assessment.KeyNeeds) > 0 {
		notes = append(notes, "Потребности: "+strings.Join(assessment.KeyNeeds, ", "))
	}
	if assessment.Notes != "" {
		notes = append(notes, assessment.Notes)
	}
	notesStr := strings.Join(notes, "\n")

	upd := model.LeadUpdate{
		QualificationScore: &qualification,
		BudgetScore:        &budget,
		UrgencyScore:       &urgency,
		FitScore:           &fit,
		Status:             &status,
		Priority:           &priority,
		QualificationNotes: &notesStr,
	}
	if assessment.Industry != "" && lead.Industry == "" {
		upd.Industry = &assessment.Industry
	}
	if raw, err := json.Marshal(assessment); err == nil {
		upd.AIAnalysis = raw
	}

	if err := q.store.UpdateLead(ctx, id, upd); err != nil {
		return nil, eris.Wrapf(err, "qualifier: update lead %s", id)
	}

	zap.L().Debug("qualifier: ai path scored lead",
		zap.String("lead", id),
		zap.String("provider", provider),
		zap.Float64("score", qualification),
	)
	return q.store.GetLead(ctx, id)
}

func clampScore(v float64) float64 {
	return min(100, max(0, v))
}
