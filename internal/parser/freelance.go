package parser

import (
	"bytes"
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/webtailor-studio/leadgen-cli/internal/extract"
	"github.com/webtailor-studio/leadgen-cli/internal/fetcher"
	"github.com/webtailor-studio/leadgen-cli/internal/model"
)

// platformConfig describes how to scrape one freelance platform's
// project listing.
type platformConfig struct {
	baseURL       string
	searchPath    string
	itemSelector  string
	titleSelector string
	descSelector  string
	priceSelector string
}

// platforms lists the supported freelance boards and their web
// development listing pages.
var platforms = map[string]platformConfig{
	"fl.ru": {
		baseURL:       "https://www.fl.ru",
		searchPath:    "/projects/?kind=5&category=37",
		itemSelector:  "div.b-post",
		titleSelector: "a.b-post__link",
		descSelector:  "div.b-post__body",
		priceSelector: "div.b-post__price",
	},
	"kwork": {
		baseURL:       "https://kwork.ru",
		searchPath:    "/projects?c=41",
		itemSelector:  "div.wants-card",
		titleSelector: "a.wants-card__header-title",
		descSelector:  "div.wants-card__description",
		priceSelector: "div.wants-card__header-price",
	},
	"habr_freelance": {
		baseURL:       "https://freelance.habr.com",
		searchPath:    "/tasks?categories=development_all_inclusive,development_sites",
		itemSelector:  "article.task",
		titleSelector: "a.task__title",
		descSelector:  "div.task__description",
		priceSelector: "span.task__price",
	},
}

const maxItemsPerPlatform = 30

// FreelanceParser scans freelance platform project listings.
type FreelanceParser struct {
	platforms []string
	keywords  []string
	baseURL   string // overrides every platform base when set (tests)
	fetch     fetcher.Fetcher
}

// NewFreelance creates a FreelanceParser. Settings: "platforms" (comma
// separated subset of fl.ru/kwork/habr_freelance), "base_url".
func NewFreelance(cfg Config) *FreelanceParser {
	names := cfg.settingList("platforms")
	if len(names) == 0 {
		for name := range platforms {
			names = append(names, name)
		}
	}
	return &FreelanceParser{
		platforms: names,
		keywords:  cfg.keywords(),
		baseURL:   cfg.setting("base_url"),
		fetch:     cfg.fetcher(),
	}
}

func (p *FreelanceParser) SourceName() string           { return "Freelance Platforms" }
func (p *FreelanceParser) SourceType() model.SourceType { return model.SourceTypeFreelancePlatform }

func (p *FreelanceParser) Search(ctx context.Context, max int) <-chan model.Candidate {
	out := make(chan model.Candidate)
	go func() {
		defer close(out)
		defer p.fetch.Close()

		sent := 0
		for _, name := range p.platforms {
			if sent >= max {
				return
			}
			projects, err := p.parsePlatform(ctx, name)
			if err != nil {
				zap.L().Warn("freelance: platform scan failed",
					zap.String("platform", name),
					zap.Error(err),
				)
				continue
			}
			for _, proj := range projects {
				if sent >= max {
					return
				}
				if !emit(ctx, out, p.candidateFromProject(proj)) {
					return
				}
				sent++
			}
		}
	}()
	return out
}

type project struct {
	title       string
	url         string
	description string
	price       string
	platform    string
}

func (p *FreelanceParser) parsePlatform(ctx context.Context, name string) ([]project, error) {
	cfg, ok := platforms[name]
	if !ok {
		zap.L().Warn("freelance: unknown platform skipped", zap.String("platform", name))
		return nil, nil
	}
	base := cfg.baseURL
	if p.baseURL != "" {
		base = p.baseURL
	}

	res, err := p.fetch.Fetch(ctx, base+cfg.searchPath)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(res.Body))
	if err != nil {
		return nil, err
	}

	var projects []project
	doc.Find(cfg.itemSelector).EachWithBreak(func(i int, sel *goquery.Selection) bool {
		if i >= maxItemsPerPlatform {
			return false
		}
		titleEl := sel.Find(cfg.titleSelector)
		if titleEl.Length() == 0 {
			return true
		}
		title := strings.TrimSpace(titleEl.Text())
		href, _ := titleEl.Attr("href")
		description := strings.TrimSpace(sel.Find(cfg.descSelector).Text())
		price := strings.TrimSpace(sel.Find(cfg.priceSelector).Text())

		if !extract.ContainsKeyword(title+" "+description, p.keywords) {
			return true
		}

		projects = append(projects, project{
			title:       title,
			url:         absoluteURL(base, href),
			description: description,
			price:       price,
			platform:    name,
		})
		return true
	})
	return projects, nil
}

func (p *FreelanceParser) candidateFromProject(proj project) model.Candidate {
	text := proj.title + " " + proj.description
	contacts := extract.AllContacts(text)

	needs := proj.description
	if needs == "" {
		needs = proj.title
	}

	return model.Candidate{
		Name:             "Client from " + proj.platform,
		SourceURL:        proj.url,
		OriginalRequest:  proj.title,
		Email:            contacts.Email,
		Phone:            contacts.Phone,
		Telegram:         contacts.Telegram,
		Website:          contacts.Website,
		NeedsDescription: truncate(needs, 500),
		BudgetMentioned:  proj.price,
		Urgency:          extract.ClassifyUrgency(text),
		Raw:              map[string]string{"platform": proj.platform},
	}
}
