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

// forumConfig describes one forum's thread listing.
type forumConfig struct {
	name            string
	baseURL         string
	searchPath      string
	itemSelector    string
	titleSelector   string
	previewSelector string
}

var forums = map[string]forumConfig{
	"searchengines": {
		name:            "SearchEngines.guru",
		baseURL:         "https://searchengines.guru",
		searchPath:      "/forumdisplay.php?f=29",
		itemSelector:    "li.threadbit",
		titleSelector:   "a.title",
		previewSelector: "div.threadbit-preview",
	},
	"maultalk": {
		name:            "MaulTalk",
		baseURL:         "https://maultalk.com",
		searchPath:      "/forum/50-veb-razrabotka/",
		itemSelector:    "li.ipsDataItem",
		titleSelector:   "a.ipsDataItem_title",
		previewSelector: "div.ipsDataItem_meta",
	},
}

const maxThreadsPerForum = 25

// firstPostSelectors cover the common forum engines' first-post markup.
var firstPostSelectors = []string{
	"div.postcontent",
	"div.post-content",
	"div.message-body",
	"article.message-body",
	"div.cPost_contentWrap",
}

var authorSelectors = []string{
	"a.username",
	"span.author",
	"a.ipsDataItem_author",
	"div.postdetails a",
}

// ForumParser scans web development forums for request-type threads.
type ForumParser struct {
	forums       []string
	keywords     []string
	baseURL      string // overrides every forum base when set (tests)
	fetchThreads bool
	fetch        fetcher.Fetcher
}

// NewForum creates a ForumParser. Settings: "forums" (comma separated
// subset of searchengines/maultalk), "base_url", "fetch_threads"
// ("true" enables the per-thread detail fetch).
func NewForum(cfg Config) *ForumParser {
	names := cfg.settingList("forums")
	if len(names) == 0 {
		for name := range forums {
			names = append(names, name)
		}
	}
	return &ForumParser{
		forums:       names,
		keywords:     cfg.keywords(),
		baseURL:      cfg.setting("base_url"),
		fetchThreads: cfg.setting("fetch_threads") == "true",
		fetch:        cfg.fetcher(),
	}
}

func (p *ForumParser) SourceName() string           { return "Forums" }
func (p *ForumParser) SourceType() model.SourceType { return model.SourceTypeForum }

func (p *ForumParser) Search(ctx context.Context, max int) <-chan model.Candidate {
	out := make(chan model.Candidate)
	go func() {
		defer close(out)
		defer p.fetch.Close()

		sent := 0
		for _, key := range p.forums {
			if sent >= max {
				return
			}
			threads, err := p.parseForum(ctx, key)
			if err != nil {
				zap.L().Warn("forum: listing scan failed",
					zap.String("forum", key),
					zap.Error(err),
				)
				continue
			}
			for _, th := range threads {
				if sent >= max {
					return
				}
				var detail *threadDetail
				if p.fetchThreads {
					detail = p.parseThread(ctx, th.url)
				}
				if !emit(ctx, out, p.candidateFromThread(th, detail)) {
					return
				}
				sent++
			}
		}
	}()
	return out
}

type forumThread struct {
	title   string
	url     string
	preview string
	forum   string
}

type threadDetail struct {
	content string
	author  string
}

func (p *ForumParser) parseForum(ctx context.Context, key string) ([]forumThread, error) {
	cfg, ok := forums[key]
	if !ok {
		zap.L().Warn("forum: unknown forum skipped", zap.String("forum", key))
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

	var threads []forumThread
	doc.Find(cfg.itemSelector).EachWithBreak(func(i int, sel *goquery.Selection) bool {
		if i >= maxThreadsPerForum {
			return false
		}
		titleEl := sel.Find(cfg.titleSelector)
		if titleEl.Length() == 0 {
			return true
		}
		title := strings.TrimSpace(titleEl.Text())
		href, _ := titleEl.Attr("href")
		preview := strings.TrimSpace(sel.Find(cfg.previewSelector).Text())

		fullText := title + " " + preview
		if !isRequest(fullText) || !extract.ContainsKeyword(fullText, p.keywords) {
			return true
		}

		threads = append(threads, forumThread{
			title:   title,
			url:     absoluteURL(base, href),
			preview: preview,
			forum:   cfg.name,
		})
		return true
	})
	return threads, nil
}

// parseThread fetches a thread page for the first post's text and author.
// Failures degrade to listing-only data.
func (p *ForumParser) parseThread(ctx context.Context, threadURL string) *threadDetail {
	res, err := p.fetch.Fetch(ctx, threadURL)
	if err != nil {
		zap.L().Debug("forum: thread fetch failed", zap.String("url", threadURL), zap.Error(err))
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(res.Body))
	if err != nil {
		return nil
	}

	var detail threadDetail
	for _, sel := range firstPostSelectors {
		if el := doc.Find(sel).First(); el.Length() > 0 {
			detail.content = strings.TrimSpace(el.Text())
			break
		}
	}
	for _, sel := range authorSelectors {
		if el := doc.Find(sel).First(); el.Length() > 0 {
			detail.author = strings.TrimSpace(el.Text())
			break
		}
	}
	return &detail
}

func (p *ForumParser) candidateFromThread(th forumThread, detail *threadDetail) model.Candidate {
	text := th.preview
	author := ""
	if detail != nil {
		text = strings.TrimSpace(th.preview + " " + detail.content)
		author = detail.author
	}
	contacts := extract.AllContacts(text)

	name := author
	if name == "" {
		name = "User from " + th.forum
	}

	needs := text
	if needs == "" {
		needs = th.title
	}

	return model.Candidate{
		Name:             name,
		SourceURL:        th.url,
		OriginalRequest:  th.title,
		Email:            contacts.Email,
		Phone:            contacts.Phone,
		Telegram:         contacts.Telegram,
		Website:          contacts.Website,
		NeedsDescription: truncate(needs, 500),
		BudgetMentioned:  extract.Budget(text),
		Urgency:          extract.ClassifyUrgency(text),
		Raw:              map[string]string{"forum": th.forum},
	}
}
