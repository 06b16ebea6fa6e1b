// Package extract provides stateless text heuristics shared by all source
// parsers: contact extraction, keyword relevance and urgency estimation.
// All extractors are first-match-wins; at most one value of each kind is
// ever returned for a given text.
package extract

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
)

var (
	emailRe    = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
	phoneRe    = regexp.MustCompile(`[+]?[(]?[0-9]{1,3}[)]?[-\s.]?[(]?[0-9]{1,3}[)]?[-\s.]?[0-9]{3,6}[-\s.]?[0-9]{3,6}`)
	telegramRe = regexp.MustCompile(`@([a-zA-Z][a-zA-Z0-9_]{4,31})|t\.me/([a-zA-Z][a-zA-Z0-9_]{4,31})`)
	websiteRe  = regexp.MustCompile(`https?://[^\s<>"{}|\\^` + "`" + `\[\]]+|www\.[^\s<>"{}|\\^` + "`" + `\[\]]+`)
	budgetRe   = regexp.MustCompile(`(?i)бюджет[:\s]*([0-9\s]+(?:тыс|к|руб|₽|usd|\$|euro|€)?)|([0-9]+\s*(?:тыс|к|руб|₽|usd|\$|euro|€))`)
)

// folder performs Unicode case folding, which lowercases Cyrillic text
// correctly for case-insensitive matching.
var folder = cases.Fold()

// Fold returns the case-folded form of s.
func Fold(s string) string {
	return folder.String(s)
}

// Email returns the first email address in text, or "".
func Email(text string) string {
	return emailRe.FindString(text)
}

// Phone returns the first phone number in text, or "". The pattern
// tolerates separators, parentheses and an international prefix.
func Phone(text string) string {
	return phoneRe.FindString(text)
}

// TelegramHandle returns the first Telegram username in text, without the
// leading "@" or "t.me/", or "". Handles are 5-32 characters and start
// with a letter.
func TelegramHandle(text string) string {
	m := telegramRe.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	if m[1] != "" {
		return m[1]
	}
	return m[2]
}

// Website returns the first URL in text, or "". Matches http(s):// URLs
// and bare www. tokens, terminated at whitespace, quotes and brackets.
func Website(text string) string {
	return websiteRe.FindString(text)
}

// Budget returns the first budget mention in text, or "". Matches both
// "бюджет: N ..." and bare "N тыс/руб/$/..." forms.
func Budget(text string) string {
	return budgetRe.FindString(text)
}

// Contacts holds all contact fields extracted from a single text.
type Contacts struct {
	Email    string
	Phone    string
	Telegram string
	Website  string
}

// AllContacts runs every contact extractor over text.
func AllContacts(text string) Contacts {
	return Contacts{
		Email:    Email(text),
		Phone:    Phone(text),
		Telegram: TelegramHandle(text),
		Website:  Website(text),
	}
}

// ContainsKeyword reports whether text contains any of the keywords,
// case-insensitively.
func ContainsKeyword(text string, keywords []string) bool {
	folded := Fold(text)
	for _, kw := range keywords {
		if strings.Contains(folded, Fold(kw)) {
			return true
		}
	}
	return false
}

var (
	urgentMarkers = []string{"срочно", "asap", "urgent", "быстро", "сегодня", "завтра", "на этой неделе"}
	highMarkers   = []string{"скоро", "в ближайшее время", "на следующей неделе"}
)

// ClassifyUrgency buckets text into urgent/high/medium based on marker
// phrases, defaulting to medium when nothing matches.
func ClassifyUrgency(text string) string {
	folded := Fold(text)
	for _, m := range urgentMarkers {
		if strings.Contains(folded, m) {
			return "urgent"
		}
	}
	for _, m := range highMarkers {
		if strings.Contains(folded, m) {
			return "high"
		}
	}
	return "medium"
}
