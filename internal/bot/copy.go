package bot

import "strings"

// flowCopy holds the per-flow user-facing texts.
type flowCopy struct {
	Emoji            string
	Label            string
	CategoryPrompt   string
	AttributesPrompt string
	LocationPrompt   string
	SecretsPrompt    string
	SecretsLabel     string
	ConfirmPrompt    string
	SummaryTitle     string
	IntroText        string
	EmptyText        string
}

var flowCopies = map[string]flowCopy{
	flowLost: {
		Emoji:            "🆘",
		Label:            "Потерял",
		CategoryPrompt:   "Что потерялось? Выберите категорию — так мы подберём правильные вопросы.",
		AttributesPrompt: "Опишите предмет: бренд, цвет, приметы. Можно перечислить несколькими предложениями.",
		LocationPrompt:   "Где и когда это произошло? Напишите адрес, ориентиры и время. Можно прикрепить геопозицию.",
		SecretsPrompt:    "Придумайте до трёх секретных признаков (каждый с новой строки). Если хотите пропустить, напишите /skip.",
		SecretsLabel:     "Секреты",
		ConfirmPrompt:    "Проверьте данные перед публикацией.",
		SummaryTitle:     "Черновик «Потерял»",
	},
	flowFound: {
		Emoji:            "📦",
		Label:            "Нашёл",
		CategoryPrompt:   "Что нашлось? Выберите категорию, чтобы подсказать владельцу.",
		AttributesPrompt: "Опишите находку так, чтобы владелец узнал её: внешний вид, состояние, важные детали. Уникальные метки для вещей можно сохранить в «секретах».",
		LocationPrompt:   "Где нашли предмет и где храните сейчас? Для безопасности укажите район/ориентир.",
		SecretsPrompt:    "Задайте до трёх вопросов для владельца (каждый с новой строки). Пример: «Какой брелок был на рюкзаке?»",
		SecretsLabel:     "Вопросы",
		ConfirmPrompt:    "Проверьте карточку перед публикацией.",
		SummaryTitle:     "Черновик «Нашёл»",
	},
	flowOwner: {
		Emoji:        "🛡️",
		Label:        "Проверка владельца",
		SummaryTitle: "Проверка владельца",
	},
	flowVolunteer: {
		Emoji:     "🐾",
		Label:     "Волонтёрить",
		IntroText: "Помогаем искать потерявшихся питомцев. Ниже покажем ближайшие активные заявки по животным. Выберите карточку, чтобы посмотреть детали и связаться с владельцем.",
		EmptyText: "Сейчас нет активных заявок по животным. Загляните позже или включите уведомления — сообщим, когда появится новая.",
	},
	flowMy: {
		Emoji:     "📂",
		Label:     "Мои объявления",
		EmptyText: "У вас ещё нет объявлений. Нажмите «Потерял» или «Нашёл», чтобы создать первое.",
	},
}

var flowKeywords = map[string][]string{
	flowLost:      {"потерял", "потеряла", "потеряли", "/lost"},
	flowFound:     {"нашёл", "нашел", "нашла", "нашли", "/found"},
	flowVolunteer: {"волонтёрить", "волонтерить", "/volunteer"},
	flowMy:        {"мои объявления", "мои объявление", "/my"},
}

var notificationKeywords = map[string]bool{
	"уведомления":    true,
	"уведомление":    true,
	"notifications":  true,
	"/notifications": true,
}

var statsKeywords = map[string]bool{
	"/stats":     true,
	"статистика": true,
}

var (
	cancelKeywords  = []string{"/cancel", "отмена"}
	backKeywords    = []string{"/back", "назад"}
	previewKeywords = []string{"/preview", "черновик"}
)

const attributeStepLabel = "Шаг 2/6 — описание"

// Location modes.
const (
	locationModeExact   = "exact"
	locationModeApprox  = "approx"
	locationModeTransit = "transit"
)

// Location stages within the location step.
const (
	locationStageTransit  = "transitRoute"
	locationStageDetails  = "details"
	locationStageTime     = "time"
	locationStageComplete = "complete"
)

const (
	legalFoundGeneral   = "⚖️ Если владелец неизвестен, сообщите о находке в полицию или ОМСУ. Если предмет найден в помещении или транспорте — передайте администратору или перевозчику."
	legalFoundSixMonths = "ℹ️ Информируем: если после заявления владелец не найдётся в течение 6 месяцев, находку можно оформить на себя."
	legalFoundPet       = "🐾 Животные: сообщите о находке в полицию или ОМСУ в течение 3 дней и постарайтесь обеспечить безопасность питомцу."
)

var categoryWarnings = map[string]string{
	"document":    "📄 Документы не выкладываем с видимыми персональными данными. Замажьте их на фото и передайте оригинал в полицию или выдавший орган.",
	"electronics": "📱 Для электроники не раскрывайте полный серийный номер. Уникальные детали лучше сохранить в «секретах».",
	"wear":        "🎒 Сумка/пакет/чемодан — снимайте с безопасного расстояния, не вскрывайте, при сомнениях звоните 112/102.",
	"valuable":    "💍 Если вещь может быть подозрительной, сделайте снимок с безопасного расстояния и при сомнениях обратитесь по 112/102.",
	"keys":        "🔑 Связку, которая выглядит подозрительно, лучше не трогать и сообщить по 112/102.",
}

const (
	secretQuestionLimit = 160
	secretAnswerLimit   = 200
)

func matchesFlowKeyword(lower, flow string) bool {
	for _, keyword := range flowKeywords[flow] {
		if lower == keyword || strings.HasPrefix(lower, keyword+" ") {
			return true
		}
	}
	return false
}

func containsKeyword(keywords []string, lower string) bool {
	for _, keyword := range keywords {
		if keyword == lower {
			return true
		}
	}
	return false
}

func isSkipCommand(lower string) bool {
	return lower == "/skip" || lower == "skip" || lower == "пропустить"
}

func describeLocationMode(mode string) string {
	switch mode {
	case locationModeExact:
		return "точная точка"
	case locationModeApprox:
		return "примерное место"
	case locationModeTransit:
		return "в пути / транспорт"
	default:
		return "не указано"
	}
}
