// Package proposal composes personalized outreach messages for
// qualified leads, from templates or through the AI provider chain.
package proposal

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/webtailor-studio/leadgen-cli/internal/aichain"
	"github.com/webtailor-studio/leadgen-cli/internal/model"
	"github.com/webtailor-studio/leadgen-cli/internal/store"
)

// Channel selects the outreach medium a proposal is written for.
type Channel string

const (
	ChannelEmail    Channel = "email"
	ChannelTelegram Channel = "telegram"
)

// Sender identifies the studio in the proposal signature.
type Sender struct {
	Name     string
	Company  string
	Contacts string
}

// Options tunes a single composition.
type Options struct {
	// Tone is professional (default), friendly or casual. Only the AI
	// path honours it; the template path has a fixed tone.
	Tone             string
	SkipPortfolio    bool
	SkipSiteFindings bool
}

// Proposal is a composed outreach message.
type Proposal struct {
	LeadID      string   `json:"lead_id"`
	Subject     string   `json:"subject,omitempty"`
	Content     string   `json:"content"`
	Channel     Channel  `json:"channel"`
	ProjectType string   `json:"project_type"`
	KeyPoints   []string `json:"key_points,omitempty"`
	AIGenerated bool     `json:"ai_generated"`
}

// Composer builds proposals for leads.
type Composer struct {
	store  store.Store
	chain  *aichain.Chain
	lib    *Library
	sender Sender
}

// New creates a Composer. A nil library falls back to the built-in one;
// a nil chain disables ComposeAI's AI path.
func New(st store.Store, chain *aichain.Chain, lib *Library, sender Sender) *Composer {
	if lib == nil {
		lib = DefaultLibrary()
	}
	if sender.Name == "" {
		sender.Name = "Ваш веб-разработчик"
	}
	return &Composer{store: st, chain: chain, lib: lib, sender: sender}
}

// detectProjectType buckets the lead's request by keywords.
func detectProjectType(lead *model.Lead) string {
	text := strings.ToLower(lead.OriginalRequest + " " + lead.NeedsDescription)

	switch {
	case containsAny(text, "магазин", "shop", "ecommerce", "товар", "корзин"):
		return "ecommerce"
	case containsAny(text, "лендинг", "landing", "одностранич"):
		return "landing"
	case containsAny(text, "редизайн", "обновить", "переделать", "улучшить"):
		return "redesign"
	default:
		return "new_website"
	}
}

// sourceType infers the lead's origin from its source URL.
func sourceType(lead *model.Lead) string {
	url := strings.ToLower(lead.SourceURL)

	switch {
	case strings.Contains(url, "t.me") || strings.Contains(url, "telegram"):
		return "telegram"
	case containsAny(url, "fl.ru", "kwork", "freelance"):
		return "freelance"
	case strings.Contains(url, "avito"):
		return "avito"
	case containsAny(url, "forum", "searchengines"):
		return "forum"
	default:
		return "default"
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

var severityEmoji = map[model.IssueSeverity]string{
	model.SeverityCritical: "🔴",
	model.SeverityHigh:     "🟠",
	model.SeverityMedium:   "🟡",
	model.SeverityLow:      "🟢",
}

func siteFindingsSection(wa *model.WebsiteAnalysis) string {
	if wa == nil {
		return ""
	}
	if !wa.Accessible {
		return "Заметил, что ваш текущий сайт недоступен. Это серьёзная проблема, которую нужно решить как можно скорее."
	}

	parts := []string{"Проанализировал ваш текущий сайт и нашёл несколько моментов для улучшения:\n"}
	for i, issue := range wa.Issues {
		if i >= 3 {
			break
		}
		emoji, ok := severityEmoji[issue.Severity]
		if !ok {
			emoji = severityEmoji[model.SeverityMedium]
		}
		parts = append(parts, emoji+" "+issue.Description)
	}
	if wa.OverallScore < 60 {
		parts = append(parts, fmt.Sprintf("\nОбщая оценка сайта: %.0f/100 — есть значительный потенциал для улучшения.", wa.OverallScore))
	}
	return strings.Join(parts, "\n")
}

func (c *Composer) portfolioSection(industry string) string {
	items, ok := c.lib.Portfolio[industry]
	if !ok {
		items = c.lib.Portfolio["default"]
	}

	parts := []string{"Несколько примеров моих работ:\n"}
	for i, item := range items {
		if i >= 2 {
			break
		}
		parts = append(parts, "• "+item.Name+" — "+item.Result)
	}
	return strings.Join(parts, "\n")
}

func callToAction(channel Channel) string {
	switch channel {
	case ChannelEmail:
		return `Буду рад обсудить ваш проект подробнее. Напишите мне, и мы договоримся об удобном времени для звонка или встречи.

Также можете ответить на несколько вопросов:
1. Какой у вас примерный бюджет на проект?
2. К какому сроку нужен готовый результат?
3. Есть ли референсы сайтов, которые вам нравятся?`
	case ChannelTelegram:
		return `Напишите, если интересно обсудить проект подробнее.

Буду рад ответить на ваши вопросы и подготовить предложение с точной стоимостью и сроками.`
	default:
		return "Буду рад обсудить ваш проект. Свяжитесь со мной удобным способом."
	}
}

func subjectLine(lead *model.Lead, projectType string) string {
	switch projectType {
	case "new_website":
		company := lead.CompanyName
		if company == "" {
			company = "вашего бизнеса"
		}
		return "Создание сайта для " + company
	case "redesign":
		return "Редизайн и улучшение вашего сайта"
	case "ecommerce":
		return "Разработка интернет-магазина"
	case "landing":
		return "Создание конверсионного лендинга"
	default:
		return "Предложение по разработке сайта"
	}
}

// Compose assembles a proposal from the lead, its optional website
// analysis and the library. Pure: no store access.
func (c *Composer) Compose(lead *model.Lead, wa *model.WebsiteAnalysis, channel Channel, opts Options) *Proposal {
	projectType := detectProjectType(lead)

	greeting := "Здравствуйте!"
	if lead.Name != "" && lead.Name != "Unknown" {
		greeting = "Здравствуйте, " + lead.Name + "!"
	}

	valueProp, ok := c.lib.ValueProps[projectType]
	if !ok {
		valueProp = c.lib.ValueProps["new_website"]
	}

	sections := []string{
		greeting,
		c.lib.Intros[sourceType(lead)],
	}
	if !opts.SkipSiteFindings {
		sections = append(sections, siteFindingsSection(wa))
	}
	sections = append(sections, valueProp)
	if !opts.SkipPortfolio && channel != ChannelTelegram {
		sections = append(sections, c.portfolioSection(lead.Industry))
	}
	sections = append(sections, callToAction(channel))

	if channel != ChannelTelegram {
		signature := []string{"С уважением,", c.sender.Name}
		if c.sender.Company != "" {
			signature = append(signature, c.sender.Company)
		}
		if c.sender.Contacts != "" {
			signature = append(signature, c.sender.Contacts)
		}
		sections = append(sections, strings.Join(signature, "\n"))
	}

	p := &Proposal{
		LeadID:      lead.ID,
		Content:     joinSections(sections),
		Channel:     channel,
		ProjectType: projectType,
	}
	if channel == ChannelEmail {
		p.Subject = subjectLine(lead, projectType)
	}
	return p
}

// joinSections glues non-empty sections with blank lines and collapses
// runs of blank lines inside them.
func joinSections(sections []string) string {
	var kept []string
	for _, s := range sections {
		s = strings.TrimSpace(s)
		if s != "" {
			kept = append(kept, s)
		}
	}
	out := strings.Join(kept, "\n\n")
	for strings.Contains(out, "\n\n\n") {
		out = strings.ReplaceAll(out, "\n\n\n", "\n\n")
	}
	return out
}

// ComposeForLead loads the lead and its website analysis, then composes
// a template proposal.
func (c *Composer) ComposeForLead(ctx context.Context, leadID string, channel Channel, opts Options) (*Proposal, error) {
	lead, err := c.store.GetLead(ctx, leadID)
	if err != nil {
		return nil, eris.Wrapf(err, "proposal: load lead %s", leadID)
	}

	var wa *model.WebsiteAnalysis
	if lead.Website != "" && !opts.SkipSiteFindings {
		wa, err = c.store.GetWebsiteAnalysis(ctx, leadID)
		if err != nil {
			if !eris.Is(err, store.ErrNotFound) {
				return nil, eris.Wrapf(err, "proposal: load website analysis %s", leadID)
			}
			wa = nil
		}
	}

	return c.Compose(lead, wa, channel, opts), nil
}
