package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmail(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"plain", "пишите на ivan@example.com", "ivan@example.com"},
		{"first_of_two", "a@b.com or c@d.org", "a@b.com"},
		{"subdomain", "contact: dev@mail.studio.ru ok", "dev@mail.studio.ru"},
		{"none", "пишите в личку", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Email(tt.text))
		})
	}
}

func TestPhone(t *testing.T) {
	assert.Equal(t, "+7 905 123 4567", Phone("звоните +7 905 123 4567 днем"))
	assert.Equal(t, "", Phone("без телефона"))

	// Only the first number is ever extracted.
	got := Phone("тел 8 916 111 2233, запасной 8 916 444 5566")
	assert.Contains(t, got, "8 916 111 2233")
}

func TestTelegramHandle(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"at_form", "пишите @ivan_dev в тг", "ivan_dev"},
		{"tme_form", "контакт t.me/web_orders", "web_orders"},
		{"too_short", "ник @abc короткий", ""},
		{"digit_start", "@1abcde не хэндл", ""},
		{"first_wins", "@first_handle и @second_handle", "first_handle"},
		{"none", "без контактов", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TelegramHandle(tt.text))
		})
	}
}

func TestWebsite(t *testing.T) {
	assert.Equal(t, "https://example.com/page", Website(`смотрите https://example.com/page тут`))
	assert.Equal(t, "www.shop.ru", Website("наш сайт www.shop.ru работает"))
	assert.Equal(t, "http://a.ru", Website(`"http://a.ru" в кавычках`))
	assert.Equal(t, "", Website("сайта нет"))
}

func TestBudget(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"labeled", "бюджет: 100 тыс", "бюджет: 100 тыс"},
		{"bare_scale", "готов отдать 50 тыс за работу", "50 тыс"},
		{"currency", "оплата 500$", "500$"},
		{"none", "оплата по договоренности", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Budget(tt.text))
		})
	}
}

func TestAllContactsFirstMatchOnly(t *testing.T) {
	text := "Я Иван, ivan@a.ru / second@b.ru, @ivan_master, сайт https://old.ru и https://new.ru"
	c := AllContacts(text)
	assert.Equal(t, "ivan@a.ru", c.Email)
	assert.Equal(t, "ivan_master", c.Telegram)
	assert.Equal(t, "https://old.ru", c.Website)
}

func TestContainsKeyword(t *testing.T) {
	assert.True(t, ContainsKeyword("Срочно НУЖЕН САЙТ для магазина", DefaultKeywords))
	assert.True(t, ContainsKeyword("Looking for web developer", DefaultKeywords))
	assert.False(t, ContainsKeyword("продаю гараж", DefaultKeywords))

	custom := []string{"телеграм-бот"}
	assert.True(t, ContainsKeyword("нужен Телеграм-Бот", custom))
}

func TestClassifyUrgency(t *testing.T) {
	assert.Equal(t, "urgent", ClassifyUrgency("нужно СРОЧНО, до завтра"))
	assert.Equal(t, "urgent", ClassifyUrgency("need it asap"))
	assert.Equal(t, "high", ClassifyUrgency("желательно в ближайшее время"))
	assert.Equal(t, "medium", ClassifyUrgency("когда-нибудь потом"))
}
