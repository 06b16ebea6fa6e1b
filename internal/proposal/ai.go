package proposal

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/webtailor-studio/leadgen-cli/internal/model"
	"github.com/webtailor-studio/leadgen-cli/internal/store"
)

const aiSystemPrompt = `Ты - опытный менеджер по продажам веб-студии. ` +
	`Создаёшь персонализированные, убедительные предложения.`

var toneInstructions = map[string]string{
	"professional": "Используй профессиональный, деловой тон.",
	"friendly":     "Используй дружелюбный, но профессиональный тон.",
	"casual":       "Используй неформальный, разговорный тон.",
}

var channelInstructions = map[Channel]string{
	ChannelEmail:    "Это email-письмо. Добавь тему письма. Формат: более формальный, структурированный.",
	ChannelTelegram: "Это сообщение в Telegram. Короче, без лишних формальностей, с эмодзи если уместно.",
}

type aiProposal struct {
	Subject      string   `json:"subject"`
	Content      string   `json:"content"`
	KeyPoints    []string `json:"key_points"`
	CallToAction string   `json:"call_to_action"`
}

type aiLeadContext struct {
	LeadName        string        `json:"lead_name"`
	Company         string        `json:"company,omitempty"`
	Industry        string        `json:"industry,omitempty"`
	OriginalRequest string        `json:"original_request"`
	Needs           string        `json:"needs,omitempty"`
	Budget          string        `json:"budget,omitempty"`
	Urgency         string        `json:"urgency,omitempty"`
	Website         string        `json:"website,omitempty"`
	WebsiteIssues   []model.Issue `json:"website_issues,omitempty"`
	WebsiteScore    *float64      `json:"website_score,omitempty"`
}

func aiComposePrompt(lead *model.Lead, wa *model.WebsiteAnalysis, channel Channel, tone string) string {
	leadCtx := aiLeadContext{
		LeadName:        lead.Name,
		Company:         lead.CompanyName,
		Industry:        lead.Industry,
		OriginalRequest: lead.OriginalRequest,
		Needs:           lead.NeedsDescription,
		Budget:          lead.BudgetMentioned,
		Urgency:         lead.Urgency,
		Website:         lead.Website,
	}
	if wa != nil {
		leadCtx.WebsiteIssues = wa.Issues
		leadCtx.WebsiteScore = &wa.OverallScore
	}
	ctxJSON, _ := json.MarshalIndent(leadCtx, "", "  ")

	toneLine, ok := toneInstructions[tone]
	if !ok {
		toneLine = toneInstructions["professional"]
	}

	var b strings.Builder
	b.WriteString("Создай персонализированное предложение для потенциального клиента веб-студии.\n\n")
	b.WriteString("Информация о клиенте:\n")
	b.Write(ctxJSON)
	b.WriteString("\n\nТребования:\n")
	b.WriteString("- " + toneLine + "\n")
	if line, ok := channelInstructions[channel]; ok {
		b.WriteString("- " + line + "\n")
	}
	b.WriteString(`- Обращайся на "вы"
- Упомяни конкретные проблемы их сайта если есть
- Предложи конкретное решение
- Добавь призыв к действию

Ответь ТОЛЬКО в формате JSON:
{
  "subject": "тема письма (только для email)",
  "content": "текст предложения",
  "key_points": ["ключевой момент 1", "ключевой момент 2"],
  "call_to_action": "призыв к действию"
}`)
	return b.String()
}

// ComposeAI builds a proposal through the provider chain. Any failure
// falls back to the template path so a proposal is always produced.
func (c *Composer) ComposeAI(ctx context.Context, leadID string, channel Channel, opts Options) (*Proposal, error) {
	if c.chain == nil || !c.chain.Available() {
		return c.ComposeForLead(ctx, leadID, channel, opts)
	}

	lead, err := c.store.GetLead(ctx, leadID)
	if err != nil {
		return nil, eris.Wrapf(err, "proposal: load lead %s", leadID)
	}

	var wa *model.WebsiteAnalysis
	if lead.Website != "" {
		wa, err = c.store.GetWebsiteAnalysis(ctx, leadID)
		if err != nil {
			if !eris.Is(err, store.ErrNotFound) {
				return nil, eris.Wrapf(err, "proposal: load website analysis %s", leadID)
			}
			wa = nil
		}
	}

	tone := opts.Tone
	if tone == "" {
		tone = "professional"
	}

	var generated aiProposal
	provider, err := c.chain.GenerateJSON(ctx, aiComposePrompt(lead, wa, channel, tone), aiSystemPrompt, &generated)
	if err != nil || strings.TrimSpace(generated.Content) == "" {
		zap.L().Warn("proposal: ai composition failed, using templates",
			zap.String("lead", leadID), zap.Error(err))
		return c.Compose(lead, wa, channel, opts), nil
	}

	content := strings.TrimSpace(generated.Content)
	if cta := strings.TrimSpace(generated.CallToAction); cta != "" && !strings.Contains(content, cta) {
		content += "\n\n" + cta
	}

	p := &Proposal{
		LeadID:      lead.ID,
		Content:     content,
		Channel:     channel,
		ProjectType: detectProjectType(lead),
		KeyPoints:   generated.KeyPoints,
		AIGenerated: true,
	}
	if channel == ChannelEmail {
		p.Subject = generated.Subject
		if p.Subject == "" {
			p.Subject = subjectLine(lead, p.ProjectType)
		}
	}

	zap.L().Debug("proposal: ai composed",
		zap.String("lead", leadID), zap.String("provider", provider))
	return p, nil
}
