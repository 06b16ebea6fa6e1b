package qualifier

import "regexp"

// industryRule maps detection keywords to an industry label. Rules are
// ordered; the first keyword hit wins.
type industryRule struct {
	name     string
	keywords []string
}

var industryRules = []industryRule{
	{"e-commerce", []string{"магазин", "shop", "товар", "продаж", "интернет-магазин", "e-commerce", "marketplace"}},
	{"services", []string{"услуг", "сервис", "service", "консалтинг", "юрист", "врач", "клиника"}},
	{"restaurant", []string{"ресторан", "кафе", "еда", "доставка еды", "restaurant", "food"}},
	{"real_estate", []string{"недвижимость", "квартир", "дом", "аренд", "real estate", "property"}},
	{"education", []string{"обучение", "курс", "школа", "education", "training", "course"}},
	{"beauty", []string{"салон", "красот", "косметик", "beauty", "spa", "wellness"}},
	{"auto", []string{"авто", "машин", "car", "auto", "transport"}},
	{"fitness", []string{"фитнес", "спорт", "gym", "fitness", "sport"}},
	{"tech", []string{"it", "технолог", "software", "приложение", "app", "tech"}},
	{"manufacturing", []string{"производств", "завод", "фабрик", "manufacturing", "factory"}},
}

// scoreTier is a named score bucket matched by regex indicators, checked
// in order from the richest tier down.
type scoreTier struct {
	level    string
	score    float64
	patterns []*regexp.Regexp
}

func compileAll(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(`(?i)` + p)
	}
	return out
}

var budgetTiers = []scoreTier{
	{"high", 85, compileAll(
		`\d{3,}\s*(?:тыс|k|К)`,
		`(?:от|from)\s*\d{2,}\s*(?:тыс|k|К)`,
		`бюджет\s*(?:не\s*)?ограничен`,
		`budget\s*(?:is\s*)?(?:not\s*)?limited`,
	)},
	{"medium", 60, compileAll(
		`(?:30|40|50|60|70|80|90)\s*(?:тыс|k|К)`,
		`(?:от|from)\s*(?:30|40|50)\s*(?:тыс|k|К)`,
	)},
	{"low", 35, compileAll(
		`(?:5|10|15|20|25)\s*(?:тыс|k|К)`,
		`(?:до|up\s*to)\s*(?:20|30)\s*(?:тыс|k|К)`,
		`минимальн|cheap|дешев`,
	)},
}

const (
	budgetUnknownLevel = "unknown"
	budgetUnknownScore = 50
)

var urgencyTiers = []scoreTier{
	{"urgent", 95, compileAll(
		`срочно`, `asap`, `urgent`, `как\s*можно\s*скорее`, `сегодня`, `завтра`,
	)},
	{"high", 75, compileAll(
		`быстро`, `скоро`, `на\s*этой\s*неделе`, `в\s*ближайшее\s*время`, `this\s*week`,
	)},
	{"medium", 55, compileAll(
		`в\s*течение\s*месяца`, `на\s*следующей\s*неделе`, `next\s*week`,
	)},
}

const (
	urgencyNormalLevel = "normal"
	urgencyNormalScore = 40
)

// disqualifyPatterns flag spam and non-viable requests.
var disqualifyPatterns = compileAll(
	`бесплатно`,
	`free`,
	`(?:без|no)\s*(?:оплаты|payment)`,
	`(?:очень\s*)?(?:маленький|small)\s*бюджет`,
	`тестов(?:ое|ый)\s*задани`,
	`test\s*(?:task|assignment)`,
	`(?:крипт|crypto)`,
	`(?:казино|casino|betting|ставк)`,
	`(?:адалт|adult|porn|xxx)`,
)

// detectIndustry returns the first matching industry label, or "".
func detectIndustry(folded string) string {
	for _, rule := range industryRules {
		for _, kw := range rule.keywords {
			if containsFold(folded, kw) {
				return rule.name
			}
		}
	}
	return ""
}

// matchTier returns the first tier whose indicators hit, or the given
// default level and score.
func matchTier(tiers []scoreTier, text, defaultLevel string, defaultScore float64) (string, float64) {
	for _, tier := range tiers {
		for _, re := range tier.patterns {
			if re.MatchString(text) {
				return tier.level, tier.score
			}
		}
	}
	return defaultLevel, defaultScore
}

// checkDisqualification returns the matched pattern when the text trips
// a disqualifier.
func checkDisqualification(text string) (bool, string) {
	for _, re := range disqualifyPatterns {
		if re.MatchString(text) {
			return true, re.String()
		}
	}
	return false, ""
}

// fitScore combines the lead's situation into a 0-100 opportunity score.
func fitScore(hasContact, hasWebsite bool, websiteScore *float64, budgetLevel, urgencyLevel, industry string) float64 {
	score := 50.0

	if hasContact {
		score += 20
	}

	// A weak or missing website is the sales opportunity.
	if hasWebsite {
		if websiteScore != nil {
			switch {
			case *websiteScore < 50:
				score += 15
			case *websiteScore < 70:
				score += 10
			}
		}
	} else {
		score += 10
	}

	switch budgetLevel {
	case "high":
		score += 15
	case "medium":
		score += 10
	case "low":
		score -= 10
	}

	switch urgencyLevel {
	case "urgent":
		score += 10
	case "high":
		score += 7
	}

	if industry != "" {
		score += 5
	}

	return min(100, max(0, score))
}
