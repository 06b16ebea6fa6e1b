package parser

import (
	"bytes"
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/webtailor-studio/leadgen-cli/internal/extract"
	"github.com/webtailor-studio/leadgen-cli/internal/fetcher"
	"github.com/webtailor-studio/leadgen-cli/internal/model"
)

const classifiedsBase = "https://www.avito.ru"

// defaultQueries are the search phrases used against the services
// section.
var defaultQueries = []string{
	"создание сайта",
	"разработка сайта",
	"интернет магазин",
	"веб разработка",
	"лендинг",
}

// ClassifiedsParser scans classified-ad search pages for "looking for a
// website" posts.
type ClassifiedsParser struct {
	queries  []string
	location string
	keywords []string
	baseURL  string
	fetch    fetcher.Fetcher
}

// NewClassifieds creates a ClassifiedsParser. Settings: "queries" (comma
// separated), "location" (path segment, default "rossiya"), "base_url".
func NewClassifieds(cfg Config) *ClassifiedsParser {
	queries := cfg.settingList("queries")
	if len(queries) == 0 {
		queries = defaultQueries
	}
	location := cfg.setting("location")
	if location == "" {
		location = "rossiya"
	}
	baseURL := cfg.setting("base_url")
	if baseURL == "" {
		baseURL = classifiedsBase
	}
	return &ClassifiedsParser{
		queries:  queries,
		location: location,
		keywords: cfg.keywords(),
		baseURL:  baseURL,
		fetch:    cfg.fetcher(),
	}
}

func (p *ClassifiedsParser) SourceName() string           { return "Avito" }
func (p *ClassifiedsParser) SourceType() model.SourceType { return model.SourceTypeClassifiedAds }

func (p *ClassifiedsParser) Search(ctx context.Context, max int) <-chan model.Candidate {
	out := make(chan model.Candidate)
	go func() {
		defer close(out)
		defer p.fetch.Close()

		sent := 0
		for _, query := range p.queries {
			if sent >= max {
				return
			}
			// First two result pages per query.
			for page := 1; page <= 2 && sent < max; page++ {
				items, err := p.parseSearchPage(ctx, query, page)
				if err != nil {
					zap.L().Warn("classifieds: search page failed",
						zap.String("query", query),
						zap.Int("page", page),
						zap.Error(err),
					)
					continue
				}
				for _, item := range items {
					if sent >= max {
						return
					}
					if !emit(ctx, out, p.candidateFromItem(item)) {
						return
					}
					sent++
				}
			}
		}
	}()
	return out
}

type adItem struct {
	title       string
	url         string
	price       string
	description string
	location    string
	seller      string
	query       string
}

func (p *ClassifiedsParser) searchURL(query string, page int) string {
	q := url.Values{}
	q.Set("q", query)
	q.Set("p", strconv.Itoa(page))
	return p.baseURL + "/" + p.location + "/uslugi?" + q.Encode()
}

func (p *ClassifiedsParser) parseSearchPage(ctx context.Context, query string, page int) ([]adItem, error) {
	res, err := p.fetch.Fetch(ctx, p.searchURL(query, page))
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(res.Body))
	if err != nil {
		return nil, err
	}

	var items []adItem
	doc.Find(`div[data-marker="item"]`).Each(func(_ int, sel *goquery.Selection) {
		titleEl := sel.Find(`a[data-marker="item-title"]`)
		if titleEl.Length() == 0 {
			return
		}
		title, _ := titleEl.Attr("title")
		if title == "" {
			title = strings.TrimSpace(titleEl.Text())
		}
		href, _ := titleEl.Attr("href")

		price, _ := sel.Find(`meta[itemprop="price"]`).Attr("content")
		description := strings.TrimSpace(sel.Find(`div[class*="item-description"]`).Text())
		location := strings.TrimSpace(sel.Find(`div[class*="geo-address"]`).Text())
		seller := strings.TrimSpace(sel.Find(`div[data-marker="item-line"]`).Text())

		fullText := title + " " + description
		if !isRequest(fullText) || !extract.ContainsKeyword(fullText, p.keywords) {
			return
		}

		items = append(items, adItem{
			title:       title,
			url:         absoluteURL(p.baseURL, href),
			price:       price,
			description: description,
			location:    location,
			seller:      seller,
			query:       query,
		})
	})
	return items, nil
}

func (p *ClassifiedsParser) candidateFromItem(item adItem) model.Candidate {
	text := item.title + " " + item.description
	contacts := extract.AllContacts(text)

	name := "Avito User"
	if item.seller != "" {
		name = strings.Fields(item.seller)[0]
	}

	budget := item.price
	if budget == "" {
		budget = extract.Budget(text)
	}

	return model.Candidate{
		Name:                name,
		SourceURL:           item.url,
		OriginalRequest:     item.title,
		Email:               contacts.Email,
		Phone:               contacts.Phone,
		Telegram:            contacts.Telegram,
		Website:             contacts.Website,
		BusinessDescription: item.description,
		NeedsDescription:    item.title,
		BudgetMentioned:     budget,
		Urgency:             extract.ClassifyUrgency(text),
		Raw: map[string]string{
			"location": item.location,
			"seller":   item.seller,
			"query":    item.query,
		},
	}
}

// absoluteURL resolves href against base when it is relative.
func absoluteURL(base, href string) string {
	if href == "" {
		return base
	}
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	return base + href
}
