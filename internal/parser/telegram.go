package parser

import (
	"bytes"
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/webtailor-studio/leadgen-cli/internal/extract"
	"github.com/webtailor-studio/leadgen-cli/internal/fetcher"
	"github.com/webtailor-studio/leadgen-cli/internal/model"
)

const telegramPreviewBase = "https://t.me/s"

// defaultChannels are public channels where web development requests are
// posted.
var defaultChannels = []string{
	"freelancetavern",
	"web_freelance",
	"it_freelance",
	"freelance_ru",
	"devjobs",
}

// namePatterns pull a person's name out of Russian request text.
var namePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)меня зовут\s+([А-Яа-яЁёA-Za-z]+)`),
	regexp.MustCompile(`(?i)я\s+([А-Яа-яЁёA-Za-z]+)`),
	regexp.MustCompile(`(?i)обращаться к\s+([А-Яа-яЁёA-Za-z]+)`),
}

// TelegramParser reads public channel web previews at t.me/s/<channel>.
type TelegramParser struct {
	channels []string
	keywords []string
	baseURL  string
	fetch    fetcher.Fetcher
}

// NewTelegram creates a TelegramParser. Settings: "channels" (comma
// separated), "base_url" (preview host override).
func NewTelegram(cfg Config) *TelegramParser {
	channels := cfg.settingList("channels")
	if len(channels) == 0 {
		channels = defaultChannels
	}
	baseURL := cfg.setting("base_url")
	if baseURL == "" {
		baseURL = telegramPreviewBase
	}
	return &TelegramParser{
		channels: channels,
		keywords: cfg.keywords(),
		baseURL:  baseURL,
		fetch:    cfg.fetcher(),
	}
}

func (p *TelegramParser) SourceName() string           { return "Telegram Channels" }
func (p *TelegramParser) SourceType() model.SourceType { return model.SourceTypeTelegramChannel }

func (p *TelegramParser) Search(ctx context.Context, max int) <-chan model.Candidate {
	out := make(chan model.Candidate)
	go func() {
		defer close(out)
		defer p.fetch.Close()

		sent := 0
		for _, channel := range p.channels {
			if sent >= max {
				return
			}
			messages, err := p.parseChannel(ctx, channel)
			if err != nil {
				zap.L().Warn("telegram: channel scan failed",
					zap.String("channel", channel),
					zap.Error(err),
				)
				continue
			}
			for _, msg := range messages {
				if sent >= max {
					return
				}
				if !emit(ctx, out, p.candidateFromMessage(msg)) {
					return
				}
				sent++
			}
		}
	}()
	return out
}

type tgMessage struct {
	text    string
	url     string
	channel string
	author  string
	date    time.Time
}

func (p *TelegramParser) parseChannel(ctx context.Context, channel string) ([]tgMessage, error) {
	pageURL := p.baseURL + "/" + channel
	res, err := p.fetch.Fetch(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(res.Body))
	if err != nil {
		return nil, err
	}

	var messages []tgMessage
	doc.Find("div.tgme_widget_message_wrap").Each(func(_ int, widget *goquery.Selection) {
		text := strings.TrimSpace(widget.Find("div.tgme_widget_message_text").Text())
		if text == "" || !extract.ContainsKeyword(text, p.keywords) {
			return
		}

		msgURL, _ := widget.Find("a.tgme_widget_message_date").Attr("href")
		if msgURL == "" {
			msgURL = pageURL
		}

		date := time.Now().UTC()
		if dt, ok := widget.Find("time").Attr("datetime"); ok {
			if parsed, err := time.Parse(time.RFC3339, dt); err == nil {
				date = parsed
			}
		}

		author := strings.TrimSpace(widget.Find("a.tgme_widget_message_owner_name").Text())
		if author == "" {
			author = channel
		}

		messages = append(messages, tgMessage{
			text:    text,
			url:     msgURL,
			channel: channel,
			author:  author,
			date:    date,
		})
	})
	return messages, nil
}

func (p *TelegramParser) candidateFromMessage(msg tgMessage) model.Candidate {
	contacts := extract.AllContacts(msg.text)

	name := msg.author
	for _, re := range namePatterns {
		if m := re.FindStringSubmatch(msg.text); m != nil {
			name = m[1]
			break
		}
	}

	telegram := contacts.Telegram
	if telegram == "" {
		// The channel itself is a reachable contact point.
		telegram = msg.channel
	}

	return model.Candidate{
		Name:             name,
		SourceURL:        msg.url,
		OriginalRequest:  msg.text,
		Email:            contacts.Email,
		Phone:            contacts.Phone,
		Telegram:         telegram,
		Website:          contacts.Website,
		NeedsDescription: truncate(msg.text, 500),
		BudgetMentioned:  extract.Budget(msg.text),
		Urgency:          extract.ClassifyUrgency(msg.text),
		FoundAt:          msg.date,
		Raw:              map[string]string{"channel": msg.channel, "author": msg.author},
	}
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
