package proposal

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// PortfolioItem is one case study shown in a proposal.
type PortfolioItem struct {
	Name   string `yaml:"name"`
	Result string `yaml:"result"`
}

// Library holds the text building blocks proposals are assembled from.
// Keys of Portfolio are industry labels; "default" backs unknown ones.
type Library struct {
	Portfolio  map[string][]PortfolioItem `yaml:"portfolio"`
	ValueProps map[string]string          `yaml:"value_props"`
	Intros     map[string]string          `yaml:"intros"`
}

// DefaultLibrary returns the built-in proposal library.
func DefaultLibrary() *Library {
	return &Library{
		Portfolio: map[string][]PortfolioItem{
			"e-commerce": {
				{Name: "Интернет-магазин одежды", Result: "Увеличение конверсии на 35%"},
				{Name: "Маркетплейс товаров для дома", Result: "Рост продаж в 2 раза за 3 месяца"},
			},
			"services": {
				{Name: "Сайт юридической компании", Result: "Увеличение заявок на 50%"},
				{Name: "Корпоративный сайт IT-компании", Result: "Снижение bounce rate на 40%"},
			},
			"restaurant": {
				{Name: "Сайт ресторана с онлайн-бронированием", Result: "Рост бронирований на 60%"},
				{Name: "Сервис доставки еды", Result: "Снижение времени оформления заказа в 2 раза"},
			},
			"real_estate": {
				{Name: "Каталог недвижимости", Result: "Увеличение заявок на просмотры на 45%"},
				{Name: "Сайт агентства недвижимости", Result: "Рост органического трафика на 80%"},
			},
			"default": {
				{Name: "Корпоративный сайт", Result: "Улучшение пользовательского опыта"},
				{Name: "Лендинг для услуги", Result: "Высокая конверсия"},
			},
		},
		ValueProps: map[string]string{
			"new_website": `Я специализируюсь на создании современных, быстрых и конверсионных сайтов.

Что вы получите:
- Уникальный дизайн, адаптированный под вашу целевую аудиторию
- Мобильная версия и адаптивный дизайн
- SEO-оптимизация для продвижения в поисковиках
- Высокая скорость загрузки
- Удобная админ-панель для управления контентом`,
			"redesign": `Я помогу обновить ваш сайт и сделать его более современным и эффективным.

Что я предлагаю:
- Современный дизайн с учётом последних трендов
- Улучшение пользовательского опыта (UX)
- Оптимизация скорости загрузки
- Адаптация под мобильные устройства
- Сохранение существующего контента и SEO-позиций`,
			"ecommerce": `Я создаю интернет-магазины, которые продают.

Что входит в разработку:
- Каталог товаров с фильтрами и поиском
- Корзина и оформление заказа
- Интеграция с платёжными системами
- Личный кабинет покупателя
- Интеграция с CRM и системами учёта
- SEO-оптимизация карточек товаров`,
			"landing": `Создаю лендинги с высокой конверсией.

Преимущества работы со мной:
- Продающий дизайн и копирайтинг
- A/B тестирование
- Интеграция с CRM и аналитикой
- Быстрая загрузка страницы
- Адаптация под мобильные устройства`,
		},
		Intros: map[string]string{
			"telegram":  "Увидел ваш запрос в Telegram-канале и хотел бы предложить свои услуги.",
			"freelance": "Заметил ваш проект на фриланс-бирже и уверен, что могу помочь.",
			"forum":     "Прочитал вашу публикацию на форуме и готов предложить решение.",
			"avito":     "Увидел ваше объявление и хочу предложить сотрудничество.",
			"default":   "Обратил внимание на ваш запрос и хотел бы предложить свои услуги.",
		},
	}
}

// LoadLibrary reads a YAML library file and overlays it on the default
// library, so a partial file only overrides what it names.
func LoadLibrary(path string) (*Library, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "proposal: read library %s", path)
	}

	var loaded Library
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return nil, eris.Wrapf(err, "proposal: parse library %s", path)
	}

	lib := DefaultLibrary()
	for industry, items := range loaded.Portfolio {
		lib.Portfolio[industry] = items
	}
	for key, text := range loaded.ValueProps {
		lib.ValueProps[key] = text
	}
	for key, text := range loaded.Intros {
		lib.Intros[key] = text
	}
	return lib, nil
}
