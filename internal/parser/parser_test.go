package parser

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webtailor-studio/leadgen-cli/internal/fetcher"
	"github.com/webtailor-studio/leadgen-cli/internal/model"
)

func TestRegistry(t *testing.T) {
	for _, typ := range []model.SourceType{
		model.SourceTypeTelegramChannel,
		model.SourceTypeClassifiedAds,
		model.SourceTypeFreelancePlatform,
		model.SourceTypeForum,
	} {
		p, err := New(typ, Config{})
		require.NoError(t, err)
		assert.Equal(t, typ, p.SourceType())
	}

	_, err := New("rss_feed", Config{})
	require.Error(t, err)
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

const telegramFixture = `<html><body>
<div class="tgme_widget_message_wrap">
  <a class="tgme_widget_message_owner_name">Web Channel</a>
  <div class="tgme_widget_message_text">Всем привет! Нужен сайт для кофейни, бюджет 100 тыс руб. Писать @coffee_owner, срочно!</div>
  <a class="tgme_widget_message_date" href="https://t.me/testchan/42"><time datetime="2026-07-01T10:00:00+00:00"></time></a>
</div>
<div class="tgme_widget_message_wrap">
  <div class="tgme_widget_message_text">Продаю гараж, недорого.</div>
  <a class="tgme_widget_message_date" href="https://t.me/testchan/43"></a>
</div>
<div class="tgme_widget_message_wrap">
  <div class="tgme_widget_message_text">Ищу веб-разработчика, меня зовут Анна, пишите anna@ex.ru</div>
  <a class="tgme_widget_message_date" href="https://t.me/testchan/44"></a>
</div>
</body></html>`

func collect(t *testing.T, p Parser, max int) []model.Candidate {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var out []model.Candidate
	for c := range p.Search(ctx, max) {
		out = append(out, c)
	}
	return out
}

func TestTelegramParser(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/testchan", r.URL.Path)
		_, _ = w.Write([]byte(telegramFixture))
	}))
	defer srv.Close()

	p := NewTelegram(Config{
		Settings: map[string]string{"channels": "testchan", "base_url": srv.URL},
		Fetcher:  fetcher.NewHTTP(fetcher.Options{}),
	})

	candidates := collect(t, p, 10)
	require.Len(t, candidates, 2)

	first := candidates[0]
	assert.Equal(t, "https://t.me/testchan/42", first.SourceURL)
	assert.Equal(t, "coffee_owner", first.Telegram)
	assert.Contains(t, first.BudgetMentioned, "100")
	assert.Equal(t, "urgent", first.Urgency)
	assert.Equal(t, "testchan", first.Raw["channel"])
	assert.Equal(t, time.Date(2026, 7, 1, 10, 0, 0, 0, time.UTC), first.FoundAt.UTC())

	second := candidates[1]
	assert.Equal(t, "Анна", second.Name)
	assert.Equal(t, "anna@ex.ru", second.Email)
	// No handle in the text, the channel itself is the contact.
	assert.Equal(t, "testchan", second.Telegram)
}

func TestTelegramParserRespectsMax(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(telegramFixture))
	}))
	defer srv.Close()

	p := NewTelegram(Config{
		Settings: map[string]string{"channels": "testchan", "base_url": srv.URL},
	})
	assert.Len(t, collect(t, p, 1), 1)
}

func TestTelegramParserFetchFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "blocked", http.StatusForbidden)
	}))
	defer srv.Close()

	p := NewTelegram(Config{
		Settings: map[string]string{"channels": "testchan", "base_url": srv.URL},
	})
	// Channel closes cleanly with no candidates.
	assert.Empty(t, collect(t, p, 10))
}

const kworkFixture = `<html><body>
<div class="wants-card">
  <a class="wants-card__header-title" href="/projects/555">Нужен интернет-магазин под ключ</a>
  <div class="wants-card__description">Интернет-магазин одежды, каталог и оплата</div>
  <div class="wants-card__header-price">до 150 000 руб</div>
</div>
<div class="wants-card">
  <a class="wants-card__header-title" href="/projects/556">Настроить принтер</a>
  <div class="wants-card__description">Не печатает</div>
</div>
</body></html>`

func TestFreelanceParser(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/projects", r.URL.Path)
		_, _ = w.Write([]byte(kworkFixture))
	}))
	defer srv.Close()

	p := NewFreelance(Config{
		Settings: map[string]string{"platforms": "kwork", "base_url": srv.URL},
	})

	candidates := collect(t, p, 10)
	require.Len(t, candidates, 1)
	c := candidates[0]
	assert.Equal(t, "Client from kwork", c.Name)
	assert.Equal(t, srv.URL+"/projects/555", c.SourceURL)
	assert.Equal(t, "Нужен интернет-магазин под ключ", c.OriginalRequest)
	assert.Equal(t, "до 150 000 руб", c.BudgetMentioned)
	assert.Equal(t, "kwork", c.Raw["platform"])
}

const avitoFixture = `<html><body>
<div data-marker="item">
  <a data-marker="item-title" href="/moskva/uslugi/item1" title="Нужен сайт для автосервиса"></a>
  <meta itemprop="price" content="50000">
  <div class="iva-item-description">Требуется создание сайта с записью онлайн</div>
  <div class="geo-address-block">Москва</div>
</div>
<div data-marker="item">
  <a data-marker="item-title" href="/moskva/uslugi/item2" title="Создание сайтов недорого"></a>
  <div class="iva-item-description">Веб-студия предлагает услуги</div>
</div>
</body></html>`

func TestClassifiedsParserFiltersRequests(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Only the first result page has items.
		if r.URL.Query().Get("p") != "1" {
			_, _ = w.Write([]byte("<html><body></body></html>"))
			return
		}
		_, _ = w.Write([]byte(avitoFixture))
	}))
	defer srv.Close()

	p := NewClassifieds(Config{
		Settings: map[string]string{"queries": "создание сайта", "base_url": srv.URL},
	})

	candidates := collect(t, p, 10)
	// The second item is a service ad, not a request.
	require.Len(t, candidates, 1)
	c := candidates[0]
	assert.Equal(t, "Нужен сайт для автосервиса", c.OriginalRequest)
	assert.Equal(t, srv.URL+"/moskva/uslugi/item1", c.SourceURL)
	assert.Equal(t, "50000", c.BudgetMentioned)
}

const forumFixture = `<html><body>
<li class="threadbit">
  <a class="title" href="/showthread.php?t=77">Ищу разработчика сайта для стоматологии</a>
  <div class="threadbit-preview">Нужен сайт с онлайн-записью, пишите в личку</div>
</li>
<li class="threadbit">
  <a class="title" href="/showthread.php?t=78">Обсуждение алгоритмов Яндекса</a>
  <div class="threadbit-preview">Что думаете про последний апдейт?</div>
</li>
</body></html>`

func TestForumParser(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(forumFixture))
	}))
	defer srv.Close()

	p := NewForum(Config{
		Settings: map[string]string{"forums": "searchengines", "base_url": srv.URL},
	})

	candidates := collect(t, p, 10)
	require.Len(t, candidates, 1)
	c := candidates[0]
	assert.Equal(t, "Ищу разработчика сайта для стоматологии", c.OriginalRequest)
	assert.Equal(t, srv.URL+"/showthread.php?t=77", c.SourceURL)
	assert.Equal(t, "User from SearchEngines.guru", c.Name)
}

func TestSearchCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(telegramFixture))
	}))
	defer srv.Close()

	p := NewTelegram(Config{
		Settings: map[string]string{"channels": "a,b,c", "base_url": srv.URL},
	})

	ctx, cancel := context.WithCancel(context.Background())
	ch := p.Search(ctx, 100)
	<-ch // take one, then walk away
	cancel()

	// The producer goroutine must close the channel rather than block.
	deadline := time.After(5 * time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("search channel never closed after cancellation")
		}
	}
}
