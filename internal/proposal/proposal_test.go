package proposal

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webtailor-studio/leadgen-cli/internal/aichain"
	"github.com/webtailor-studio/leadgen-cli/internal/model"
	"github.com/webtailor-studio/leadgen-cli/internal/store"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	s, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { s.Close() }) //nolint:errcheck
	return s
}

func TestDetectProjectType(t *testing.T) {
	tests := []struct {
		request string
		want    string
	}{
		{"Нужен интернет-магазин с корзиной", "ecommerce"},
		{"Сделайте лендинг для курса", "landing"},
		{"Хочу обновить старый сайт", "redesign"},
		{"Нужен сайт для клиники", "new_website"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			lead := &model.Lead{OriginalRequest: tt.request}
			assert.Equal(t, tt.want, detectProjectType(lead))
		})
	}
}

func TestSourceType(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://t.me/freelancetavern/42", "telegram"},
		{"https://kwork.ru/projects/5", "freelance"},
		{"https://www.fl.ru/projects/9", "freelance"},
		{"https://www.avito.ru/moskva/uslugi/1", "avito"},
		{"https://searchengines.guru/showthread.php?t=7", "forum"},
		{"https://example.com/somewhere", "default"},
	}
	for _, tt := range tests {
		t.Run(tt.want+"_"+tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, sourceType(&model.Lead{SourceURL: tt.url}))
		})
	}
}

func TestComposeEmail(t *testing.T) {
	c := New(nil, nil, nil, Sender{Name: "Иван Петров", Company: "WebTailor Studio"})

	lead := &model.Lead{
		ID:              "lead-1",
		Name:            "Анна",
		Industry:        "e-commerce",
		OriginalRequest: "Нужен интернет-магазин одежды",
		SourceURL:       "https://t.me/freelancetavern/42",
	}

	p := c.Compose(lead, nil, ChannelEmail, Options{})

	assert.Equal(t, "Разработка интернет-магазина", p.Subject)
	assert.Equal(t, "ecommerce", p.ProjectType)
	assert.False(t, p.AIGenerated)

	assert.Contains(t, p.Content, "Здравствуйте, Анна!")
	assert.Contains(t, p.Content, "Увидел ваш запрос в Telegram-канале")
	assert.Contains(t, p.Content, "интернет-магазины, которые продают")
	// Industry-matched portfolio, capped at two items.
	assert.Contains(t, p.Content, "Интернет-магазин одежды")
	assert.Contains(t, p.Content, "Маркетплейс товаров для дома")
	assert.Contains(t, p.Content, "Какой у вас примерный бюджет")
	assert.Contains(t, p.Content, "С уважением,\nИван Петров\nWebTailor Studio")

	assert.NotContains(t, p.Content, "\n\n\n")
}

func TestComposeTelegramOmitsPortfolioAndSignature(t *testing.T) {
	c := New(nil, nil, nil, Sender{})

	lead := &model.Lead{
		ID:              "lead-2",
		OriginalRequest: "Нужен лендинг",
		SourceURL:       "https://kwork.ru/projects/5",
	}

	p := c.Compose(lead, nil, ChannelTelegram, Options{})

	assert.Empty(t, p.Subject)
	assert.Contains(t, p.Content, "Здравствуйте!")
	assert.Contains(t, p.Content, "фриланс-бирже")
	assert.NotContains(t, p.Content, "примеров моих работ")
	assert.NotContains(t, p.Content, "С уважением")
	assert.Contains(t, p.Content, "Напишите, если интересно обсудить проект")
}

func TestComposeUnknownIndustryUsesDefaultPortfolio(t *testing.T) {
	c := New(nil, nil, nil, Sender{})

	lead := &model.Lead{
		ID:              "lead-3",
		Industry:        "manufacturing",
		OriginalRequest: "Нужен сайт завода",
		SourceURL:       "https://example.com/1",
	}

	p := c.Compose(lead, nil, ChannelEmail, Options{})
	assert.Contains(t, p.Content, "Корпоративный сайт")
	assert.Contains(t, p.Content, "Обратил внимание на ваш запрос")
}

func TestComposeSiteFindings(t *testing.T) {
	c := New(nil, nil, nil, Sender{})
	lead := &model.Lead{ID: "lead-4", OriginalRequest: "Обновить сайт", SourceURL: "https://example.com/2"}

	wa := &model.WebsiteAnalysis{
		Accessible:   true,
		OverallScore: 45,
		Issues: []model.Issue{
			{Code: "no_ssl", Severity: model.SeverityCritical, Description: "Сайт не использует HTTPS"},
			{Code: "no_mobile", Severity: model.SeverityHigh, Description: "Сайт не адаптирован для мобильных устройств"},
			{Code: "no_meta", Severity: model.SeverityMedium, Description: "Отсутствуют мета-теги для SEO"},
			{Code: "no_favicon", Severity: model.SeverityLow, Description: "Отсутствует favicon"},
		},
	}

	p := c.Compose(lead, wa, ChannelEmail, Options{})

	assert.Contains(t, p.Content, "🔴 Сайт не использует HTTPS")
	assert.Contains(t, p.Content, "🟠 Сайт не адаптирован")
	assert.Contains(t, p.Content, "🟡 Отсутствуют мета-теги")
	// Only the top three issues make it into the message.
	assert.NotContains(t, p.Content, "favicon")
	assert.Contains(t, p.Content, "Общая оценка сайта: 45/100")
}

func TestComposeInaccessibleSite(t *testing.T) {
	c := New(nil, nil, nil, Sender{})
	lead := &model.Lead{ID: "lead-5", OriginalRequest: "Нужен сайт", SourceURL: "https://example.com/3"}

	p := c.Compose(lead, &model.WebsiteAnalysis{Accessible: false}, ChannelEmail, Options{})
	assert.Contains(t, p.Content, "ваш текущий сайт недоступен")
}

func TestLoadLibraryOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "library.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
portfolio:
  fitness:
    - name: "Сайт сети фитнес-клубов"
      result: "Рост записей на 70%"
intros:
  telegram: "Нашёл ваш запрос в Telegram."
`), 0o644))

	lib, err := LoadLibrary(path)
	require.NoError(t, err)

	// New industry added, defaults still intact.
	require.Len(t, lib.Portfolio["fitness"], 1)
	assert.Equal(t, "Сайт сети фитнес-клубов", lib.Portfolio["fitness"][0].Name)
	assert.NotEmpty(t, lib.Portfolio["default"])
	assert.Equal(t, "Нашёл ваш запрос в Telegram.", lib.Intros["telegram"])
	assert.NotEmpty(t, lib.Intros["avito"])
	assert.NotEmpty(t, lib.ValueProps["landing"])
}

func TestLoadLibraryMissingFile(t *testing.T) {
	_, err := LoadLibrary(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestComposeForLead(t *testing.T) {
	st := newTestStore(t)
	c := New(st, nil, nil, Sender{})
	ctx := context.Background()

	lead, err := st.InsertLead(ctx, &model.Lead{
		Name:            "Олег",
		SourceURL:       "https://www.avito.ru/moskva/uslugi/9",
		Website:         "https://old.ru",
		OriginalRequest: "Хочу обновить сайт автосервиса",
	})
	require.NoError(t, err)
	require.NoError(t, st.UpsertWebsiteAnalysis(ctx, &model.WebsiteAnalysis{
		LeadID:       lead.ID,
		URL:          "https://old.ru",
		Accessible:   true,
		OverallScore: 40,
		Issues: []model.Issue{
			{Code: "no_ssl", Severity: model.SeverityCritical, Description: "Сайт не использует HTTPS"},
		},
	}))

	p, err := c.ComposeForLead(ctx, lead.ID, ChannelEmail, Options{})
	require.NoError(t, err)

	assert.Equal(t, "redesign", p.ProjectType)
	assert.Contains(t, p.Content, "Здравствуйте, Олег!")
	assert.Contains(t, p.Content, "ваше объявление")
	assert.Contains(t, p.Content, "Сайт не использует HTTPS")
}

func TestComposeForLeadNotFound(t *testing.T) {
	st := newTestStore(t)
	c := New(st, nil, nil, Sender{})

	_, err := c.ComposeForLead(context.Background(), "no-such-id", ChannelEmail, Options{})
	require.Error(t, err)
	assert.True(t, eris.Is(err, store.ErrNotFound))
}

type fakeProvider struct {
	name       string
	configured bool
	out        string
	err        error
}

func (p *fakeProvider) Name() string     { return p.name }
func (p *fakeProvider) Configured() bool { return p.configured }

func (p *fakeProvider) Generate(context.Context, string, string) (string, error) {
	return p.out, p.err
}

func TestComposeAIFallsBackToTemplates(t *testing.T) {
	st := newTestStore(t)
	broken := aichain.NewChain(&fakeProvider{
		name: "broken", configured: true, err: eris.New("provider down"),
	})
	c := New(st, broken, nil, Sender{})
	ctx := context.Background()

	lead, err := st.InsertLead(ctx, &model.Lead{
		Name:            "Мария",
		SourceURL:       "https://t.me/chan/1",
		OriginalRequest: "Нужен лендинг для вебинара",
	})
	require.NoError(t, err)

	p, err := c.ComposeAI(ctx, lead.ID, ChannelEmail, Options{})
	require.NoError(t, err)

	assert.False(t, p.AIGenerated)
	assert.Equal(t, "Создание конверсионного лендинга", p.Subject)
	assert.Contains(t, p.Content, "Здравствуйте, Мария!")
}

func TestComposeAI(t *testing.T) {
	st := newTestStore(t)
	scripted := aichain.NewChain(&fakeProvider{
		name: "scripted", configured: true,
		out: `{"subject":"Лендинг для вашего вебинара",
			"content":"Мария, здравствуйте! Предлагаю сделать лендинг.",
			"key_points":["высокая конверсия"],
			"call_to_action":"Напишите мне сегодня."}`,
	})
	c := New(st, scripted, nil, Sender{})
	ctx := context.Background()

	lead, err := st.InsertLead(ctx, &model.Lead{
		Name:            "Мария",
		SourceURL:       "https://t.me/chan/2",
		OriginalRequest: "Нужен лендинг для вебинара",
	})
	require.NoError(t, err)

	p, err := c.ComposeAI(ctx, lead.ID, ChannelEmail, Options{})
	require.NoError(t, err)

	assert.True(t, p.AIGenerated)
	assert.Equal(t, "Лендинг для вашего вебинара", p.Subject)
	assert.Contains(t, p.Content, "Предлагаю сделать лендинг.")
	assert.Contains(t, p.Content, "Напишите мне сегодня.")
	assert.Equal(t, []string{"высокая конверсия"}, p.KeyPoints)
}
