// Package analyzer assesses the quality of a lead's existing website.
// The resulting scores feed qualification and proposal personalization.
package analyzer

import (
	"bytes"
	"context"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/webtailor-studio/leadgen-cli/internal/fetcher"
	"github.com/webtailor-studio/leadgen-cli/internal/model"
	"github.com/webtailor-studio/leadgen-cli/internal/store"
)

// issueCatalog holds the fixed set of problems the analyzer reports.
var issueCatalog = map[string]model.Issue{
	"no_ssl": {
		Code:        "no_ssl",
		Severity:    model.SeverityCritical,
		Description: "Сайт не использует HTTPS",
		Suggestion:  "Установить SSL сертификат для защиты данных пользователей",
	},
	"slow_loading": {
		Code:        "slow_loading",
		Severity:    model.SeverityHigh,
		Description: "Медленная загрузка страницы",
		Suggestion:  "Оптимизировать изображения, включить кэширование, использовать CDN",
	},
	"no_mobile": {
		Code:        "no_mobile",
		Severity:    model.SeverityHigh,
		Description: "Сайт не адаптирован для мобильных устройств",
		Suggestion:  "Внедрить адаптивный дизайн или мобильную версию",
	},
	"no_meta": {
		Code:        "no_meta",
		Severity:    model.SeverityMedium,
		Description: "Отсутствуют мета-теги для SEO",
		Suggestion:  "Добавить title, description и Open Graph теги",
	},
	"no_contact_form": {
		Code:        "no_contact_form",
		Severity:    model.SeverityMedium,
		Description: "Отсутствует форма обратной связи",
		Suggestion:  "Добавить форму для удобной связи с клиентами",
	},
	"no_social": {
		Code:        "no_social",
		Severity:    model.SeverityLow,
		Description: "Нет ссылок на социальные сети",
		Suggestion:  "Добавить ссылки на социальные сети для увеличения доверия",
	},
	"no_favicon": {
		Code:        "no_favicon",
		Severity:    model.SeverityLow,
		Description: "Отсутствует favicon",
		Suggestion:  "Добавить иконку сайта для лучшего брендинга",
	},
}

// techPatterns detect frameworks and CMSes from raw markup.
var techPatterns = map[string][]string{
	"WordPress": {"wp-content", "wp-includes", "wordpress"},
	"Joomla":    {"com_content", "joomla"},
	"Drupal":    {"drupal", "sites/default"},
	"1C-Bitrix": {"bitrix", "/bitrix/"},
	"Tilda":     {"tilda", "tildacdn"},
	"Wix":       {"wixsite", "wix.com"},
	"Shopify":   {"shopify", "cdn.shopify"},
	"OpenCart":  {"opencart", "route=common"},
	"ModX":      {"modx"},
	"React":     {"react", "_next", "__next_data__"},
	"Vue.js":    {"vue", "__vue__"},
	"Angular":   {"ng-version", "angular"},
	"Bootstrap": {"bootstrap"},
	"jQuery":    {"jquery"},
}

// cmsNames is the subset of techPatterns that counts as a CMS, checked
// in order.
var cmsNames = []string{
	"WordPress", "Joomla", "Drupal", "1C-Bitrix", "Tilda",
	"Wix", "Shopify", "OpenCart", "ModX",
}

var (
	responsiveRe = regexp.MustCompile(`(?i)responsive|mobile|col-\d+|col-sm-|col-md-|col-lg-`)
	socialRe     = regexp.MustCompile(`(?i)facebook\.com|vk\.com|instagram\.com|twitter\.com|linkedin\.com|youtube\.com|t\.me|telegram\.me`)
)

var contactFormWords = []string{
	"contact", "feedback", "message", "email", "phone",
	"обратн", "связ", "контакт",
}

const slowLoadThresholdMS = 3000

// Analyzer fetches and scores lead websites.
type Analyzer struct {
	store store.Store
	fetch fetcher.Fetcher
}

// New creates an Analyzer. A nil fetcher gets a default HTTP one.
func New(st store.Store, f fetcher.Fetcher) *Analyzer {
	if f == nil {
		f = fetcher.NewHTTP(fetcher.Options{})
	}
	return &Analyzer{store: st, fetch: f}
}

// NormalizeURL trims the input and defaults the scheme to https.
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		raw = "https://" + raw
	}
	return raw
}

// Analyze fetches the lead's website, scores it and upserts the
// analysis. Re-running overwrites the previous result.
func (a *Analyzer) Analyze(ctx context.Context, leadID string) (*model.WebsiteAnalysis, error) {
	lead, err := a.store.GetLead(ctx, leadID)
	if err != nil {
		return nil, eris.Wrapf(err, "analyzer: load lead %s", leadID)
	}
	if lead.Website == "" {
		return nil, eris.Errorf("analyzer: lead %s has no website", leadID)
	}

	wa := a.analyzeURL(ctx, lead.Website)
	wa.LeadID = leadID
	wa.AnalyzedAt = time.Now().UTC()

	if err := a.store.UpsertWebsiteAnalysis(ctx, wa); err != nil {
		return nil, eris.Wrapf(err, "analyzer: save analysis %s", leadID)
	}

	zap.L().Info("analyzer: website analyzed",
		zap.String("lead", leadID),
		zap.String("url", wa.URL),
		zap.Bool("accessible", wa.Accessible),
		zap.Float64("score", wa.OverallScore),
	)
	return wa, nil
}

func (a *Analyzer) analyzeURL(ctx context.Context, raw string) *model.WebsiteAnalysis {
	url := NormalizeURL(raw)
	wa := &model.WebsiteAnalysis{URL: url}

	res, err := a.fetch.Fetch(ctx, url)
	if err != nil {
		if res != nil {
			wa.StatusCode = res.StatusCode
		}
		zap.L().Debug("analyzer: fetch failed", zap.String("url", url), zap.Error(err))
		return wa
	}

	wa.Accessible = true
	wa.StatusCode = res.StatusCode
	wa.FinalURL = res.FinalURL
	wa.LoadTimeMS = res.ElapsedMS
	wa.HasSSL = strings.HasPrefix(res.FinalURL, "https://")

	html := string(res.Body)
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(res.Body))
	if err != nil {
		zap.L().Warn("analyzer: parse failed", zap.String("url", url), zap.Error(err))
		return wa
	}

	wa.MobileFriendly = checkMobileFriendly(doc, html)
	wa.HasTitle = strings.TrimSpace(doc.Find("title").First().Text()) != ""
	desc, _ := doc.Find(`meta[name="description"]`).First().Attr("content")
	wa.HasDescription = strings.TrimSpace(desc) != ""
	wa.HasContactForm = checkContactForm(doc)
	wa.HasSocialLinks = socialRe.MatchString(html)
	wa.HasFavicon = doc.Find(`link[rel*="icon"]`).Length() > 0

	wa.Technologies = detectTechnologies(html)
	wa.CMS = detectCMS(wa.Technologies)

	wa.PerformanceScore = performanceScore(wa.LoadTimeMS)
	wa.SEOScore = seoScore(wa.HasTitle, wa.HasDescription, wa.HasSSL)
	wa.MobileScore = mobileScore(wa.MobileFriendly, wa.Technologies)
	wa.OverallScore = (wa.PerformanceScore + wa.SEOScore + wa.MobileScore) / 3

	wa.Issues = findIssues(wa)
	return wa
}

func checkMobileFriendly(doc *goquery.Document, html string) bool {
	if doc.Find(`meta[name="viewport"]`).Length() > 0 {
		return true
	}
	return responsiveRe.MatchString(html)
}

func checkContactForm(doc *goquery.Document) bool {
	found := false
	doc.Find("form").EachWithBreak(func(_ int, form *goquery.Selection) bool {
		markup, err := goquery.OuterHtml(form)
		if err != nil {
			return true
		}
		lower := strings.ToLower(markup)
		for _, word := range contactFormWords {
			if strings.Contains(lower, word) {
				found = true
				return false
			}
		}
		return true
	})
	return found
}

func detectTechnologies(html string) []string {
	lower := strings.ToLower(html)
	var techs []string
	for tech, markers := range techPatterns {
		for _, marker := range markers {
			if strings.Contains(lower, marker) {
				techs = append(techs, tech)
				break
			}
		}
	}
	sort.Strings(techs)
	return techs
}

func detectCMS(technologies []string) string {
	present := make(map[string]bool, len(technologies))
	for _, t := range technologies {
		present[t] = true
	}
	for _, cms := range cmsNames {
		if present[cms] {
			return cms
		}
	}
	return ""
}

func performanceScore(loadTimeMS int64) float64 {
	switch {
	case loadTimeMS < 1000:
		return 100
	case loadTimeMS < 2000:
		return 85
	case loadTimeMS < 3000:
		return 70
	case loadTimeMS < 5000:
		return 55
	case loadTimeMS < 10000:
		return 40
	default:
		return 25
	}
}

func seoScore(hasTitle, hasDescription, hasSSL bool) float64 {
	score := 0.0
	if hasTitle {
		score += 35
	}
	if hasDescription {
		score += 35
	}
	if hasSSL {
		score += 30
	}
	return score
}

func mobileScore(mobileFriendly bool, technologies []string) float64 {
	if !mobileFriendly {
		return 30
	}
	score := 85.0
	for _, t := range technologies {
		if t == "Bootstrap" || t == "React" || t == "Vue.js" {
			score += 15
			break
		}
	}
	return min(100, score)
}

func findIssues(wa *model.WebsiteAnalysis) []model.Issue {
	var issues []model.Issue
	add := func(code string) { issues = append(issues, issueCatalog[code]) }

	if !wa.HasSSL {
		add("no_ssl")
	}
	if wa.LoadTimeMS > slowLoadThresholdMS {
		add("slow_loading")
	}
	if !wa.MobileFriendly {
		add("no_mobile")
	}
	if !wa.HasTitle || !wa.HasDescription {
		add("no_meta")
	}
	if !wa.HasContactForm {
		add("no_contact_form")
	}
	if !wa.HasSocialLinks {
		add("no_social")
	}
	if !wa.HasFavicon {
		add("no_favicon")
	}

	sort.SliceStable(issues, func(i, j int) bool {
		return issues[i].Severity.Rank() < issues[j].Severity.Rank()
	})
	return issues
}
