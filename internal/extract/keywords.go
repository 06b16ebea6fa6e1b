package extract

// DefaultKeywords is the stock relevance keyword set for website-request
// detection, Russian first, then English. Sources may override it.
var DefaultKeywords = []string{
	"нужен сайт",
	"создать сайт",
	"разработка сайта",
	"сделать сайт",
	"заказать сайт",
	"ищу веб-разработчика",
	"ищу разработчика сайта",
	"нужен интернет-магазин",
	"создать интернет-магазин",
	"разработка интернет-магазина",
	"лендинг",
	"landing page",
	"нужен лендинг",
	"редизайн сайта",
	"обновить сайт",
	"переделать сайт",
	"доработка сайта",
	"веб-студия",
	"верстка сайта",
	"программист сайт",
	"фрилансер сайт",
	"need website",
	"create website",
	"web developer needed",
	"looking for web developer",
	"website development",
	"e-commerce website",
	"online store",
	"web design",
	"website redesign",
}

// LookingForMarkers are phrases indicating the author is requesting work
// rather than offering services. Parsers use them as a secondary
// relevance filter on top of the keyword check.
var LookingForMarkers = []string{
	"ищу", "нужен", "нужна", "нужно", "требуется", "заказать",
	"закажу", "куплю", "посоветуйте", "подскажите", "помогите",
	"looking for", "need", "hiring", "wanted",
}
