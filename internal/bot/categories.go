package bot

import "strings"

// CategoryOption is one intake category the keyboards offer.
type CategoryOption struct {
	ID    string
	Title string
	Emoji string
}

var categoryOptions = []CategoryOption{
	{ID: "pet", Title: "Животные", Emoji: "🐾"},
	{ID: "electronics", Title: "Электроника", Emoji: "📱"},
	{ID: "wear", Title: "Одежда и аксессуары", Emoji: "👜"},
	{ID: "document", Title: "Документы", Emoji: "📄"},
	{ID: "valuable", Title: "Ценности", Emoji: "💍"},
	{ID: "keys", Title: "Ключи", Emoji: "🔑"},
	{ID: "other", Title: "Другое", Emoji: "❓"},
}

// Legacy and colloquial ids map onto the canonical seven.
var categoryAliases = map[string]string{
	"phone":       "electronics",
	"electronics": "electronics",
	"gadget":      "electronics",
	"bag":         "wear",
	"clothes":     "wear",
	"clothing":    "wear",
	"wallet":      "valuable",
	"valuables":   "valuable",
	"jewelry":     "valuable",
	"misc":        "other",
	"unknown":     "other",
}

// Categories whose identifying marks must not leak into photos or public
// descriptions.
var riskyCategories = map[string]bool{
	"electronics": true,
	"valuable":    true,
	"document":    true,
	"keys":        true,
}

const (
	volunteerCategory  = "pet"
	volunteerListLimit = 5
)

func normalizeCategory(category string) string {
	if category == "" {
		return ""
	}
	lower := strings.ToLower(category)
	if canonical, ok := categoryAliases[lower]; ok {
		return canonical
	}
	return lower
}

func categoryOption(categoryID string) *CategoryOption {
	normalized := normalizeCategory(categoryID)
	for i := range categoryOptions {
		if categoryOptions[i].ID == normalized {
			return &categoryOptions[i]
		}
	}
	return nil
}

func describeCategory(categoryID string) string {
	if categoryID == "" {
		return "—"
	}
	if option := categoryOption(categoryID); option != nil {
		return option.Emoji + " " + option.Title
	}
	return categoryID
}

func categoryTitle(categoryID string) string {
	if option := categoryOption(categoryID); option != nil {
		return option.Title
	}
	return categoryID
}

// AttributeField is one intake question in a category's questionnaire.
// QuestionFound overrides Question for the found flow; StoreSecretHint
// marks answers that should resurface as secret hints later.
type AttributeField struct {
	Key             string
	Label           string
	Question        string
	QuestionFound   string
	Hint            string
	Required        bool
	StoreSecretHint bool
}

var categoryFieldSets = map[string][]AttributeField{
	"pet": {
		{
			Key: "species", Label: "Вид",
			Question:      "Какое животное потерялось? (вид)",
			QuestionFound: "Какое животное нашли? (вид)",
			Hint:          "Например: кошка, собака, хорёк.",
			Required:      true,
		},
		{
			Key: "breed", Label: "Порода",
			Question: "Какая порода? Если не знаете — напишите «не знаю» или /skip.",
		},
		{
			Key: "color", Label: "Окрас / приметы",
			Question: "Опишите окрас или особые приметы. Можно несколько слов.",
			Required: true,
		},
		{
			Key: "size", Label: "Размер",
			Question: "Размер животного (крупный, средний, маленький).",
		},
		{
			Key: "nickname", Label: "Кличка / опознавательные знаки",
			Question:      "Какая кличка у питомца? (если есть)",
			QuestionFound: "Есть ли ошейник, жетон или другая опознавательная метка?",
		},
	},
	"electronics": {
		{
			Key: "device", Label: "Устройство",
			Question:      "Что за устройство потерялось? (тип, модель)",
			QuestionFound: "Что за устройство нашли? (тип, модель)",
			Hint:          "Например: смартфон iPhone 13, планшет Samsung Tab S7.",
			Required:      true,
		},
		{
			Key: "color", Label: "Цвет",
			Question: "Какой цвет корпуса/чехла?",
			Required: true,
		},
		{
			Key: "condition", Label: "Особенности",
			Question: "Есть ли особенности: трещины, наклейки, чехол?",
		},
		{
			Key: "serial_hint", Label: "Уникальная метка",
			Question:        "Укажите уникальную метку (последние цифры IMEI/серийника или защитный знак). Она сохранится в секретах.",
			QuestionFound:   "Опишите уникальные метки (не раскрывая полностью). Например, наклейка или часть серийника.",
			Hint:            "Например: IMEI заканчивается на 4821, наклейка внизу.",
			StoreSecretHint: true,
		},
	},
	"wear": {
		{
			Key: "item_type", Label: "Тип предмета",
			Question: "Что именно? (куртка, шарф, рюкзак, портфель и т.п.)",
			Required: true,
		},
		{
			Key: "brand", Label: "Бренд / марка",
			Question: "Если есть бренд/марка — напишите.",
		},
		{
			Key: "color", Label: "Цвет / материал",
			Question: "Цвет и материал? (например, чёрная кожа, синяя ткань)",
			Required: true,
		},
		{
			Key: "features", Label: "Отличительные приметы",
			Question: "Есть ли отличительные приметы: нашивки, брелоки, содержимое?",
		},
	},
	"document": {
		{
			Key: "doc_type", Label: "Тип документа",
			Question: "Какой документ? (паспорт, ВУ, студенческий и т.д.)",
			Required: true,
		},
		{
			Key: "name_hint", Label: "Фамилия/инициалы",
			Question:      "Укажите инициалы или фамилию (без полного номера).",
			QuestionFound: "Укажите, на какую фамилию оформлен документ (если видно).",
			Required:      true,
		},
		{
			Key: "extra", Label: "Дополнительные данные",
			Question:        "Есть ли характерная особенность? (серия начинается на 45 XX, выдан в МФЦ и т.п.)",
			QuestionFound:   "Есть ли характерная особенность? (печати, отметки, часть номера).",
			Hint:            "Полные серии/номера писать не нужно — используйте подсказки для секрета.",
			StoreSecretHint: true,
		},
	},
	"valuable": {
		{
			Key: "item", Label: "Предмет",
			Question: "Что за ценность? (кошелёк, украшение, техника и т.д.)",
			Required: true,
		},
		{
			Key: "looks", Label: "Внешний вид",
			Question: "Как выглядит предмет? Цвет, материал, форма.",
			Required: true,
		},
		{
			Key: "value_hint", Label: "Уникальные детали",
			Question:        "Какие уникальные детали есть? (внутри записка, гравировка — можно упомянуть частично)",
			QuestionFound:   "Опишите без раскрытия полной информации: гравировка, инициалы, особенность упаковки.",
			StoreSecretHint: true,
		},
	},
	"keys": {
		{
			Key: "key_type", Label: "Тип ключей",
			Question: "Какие ключи? (квартира, авто, домофон, сейф...)",
			Required: true,
		},
		{
			Key: "bundle", Label: "Связка / аксессуары",
			Question: "Есть ли связка, брелок, чехол? Опишите.",
		},
		{
			Key: "unique", Label: "Уникальные признаки",
			Question:      "Опишите отличительные зубья/метки (если можно рассказать безопасно).",
			QuestionFound: "Опишите отличительные признаки (без возможности изготовить копию).",
		},
	},
	"other": {
		{
			Key: "item", Label: "Что за предмет",
			Question: "Опишите предмет: что это и для чего нужно.",
			Required: true,
		},
		{
			Key: "appearance", Label: "Внешний вид",
			Question: "Как выглядит предмет? Цвет, форма, размер.",
			Required: true,
		},
		{
			Key: "tags", Label: "Дополнительные приметы",
			Question: "Укажите до трёх примет через запятую (например: «новый, в коробке, с чеком»).",
		},
	},
}

func categoryFields(category string) []AttributeField {
	normalized := normalizeCategory(category)
	if normalized == "" {
		return nil
	}
	return categoryFieldSets[normalized]
}

func attributeField(category, key string) *AttributeField {
	if key == "" {
		return nil
	}
	fields := categoryFields(category)
	for i := range fields {
		if fields[i].Key == key {
			return &fields[i]
		}
	}
	return nil
}

func (f *AttributeField) questionFor(flow string) string {
	if flow == flowFound && f.QuestionFound != "" {
		return f.QuestionFound
	}
	return f.Question
}

func (f *AttributeField) hintLine() string {
	if f.Hint == "" {
		return ""
	}
	return "💡 " + f.Hint
}

func hasAttributeAnswer(attributes map[string]*string, key string) bool {
	_, ok := attributes[key]
	return ok
}

// prepareAttributes normalizes the draft and picks the next unanswered
// field, recording it as the current attribute key. Returns nil when the
// questionnaire is complete.
func (p *Payload) prepareAttributes(flow string) *AttributeField {
	listing := p.ensureListing(flow)
	meta := p.ensureMeta()

	if normalized := normalizeCategory(listing.Category); normalized != "" {
		listing.Category = normalized
	}

	fields := categoryFields(listing.Category)
	if len(fields) == 0 {
		meta.CurrentAttributeKey = ""
		return nil
	}

	if key := meta.CurrentAttributeKey; key != "" && !hasAttributeAnswer(listing.Attributes, key) {
		if field := attributeField(listing.Category, key); field != nil {
			return field
		}
	}

	for i := range fields {
		if !hasAttributeAnswer(listing.Attributes, fields[i].Key) {
			meta.CurrentAttributeKey = fields[i].Key
			return &fields[i]
		}
	}

	meta.CurrentAttributeKey = ""
	return nil
}

func buildAttributeLines(listing *Draft) []string {
	if listing == nil {
		return nil
	}
	var lines []string
	for _, field := range categoryFields(listing.Category) {
		value, answered := listing.Attributes[field.Key]
		if !answered {
			continue
		}
		if value == nil || strings.TrimSpace(*value) == "" {
			lines = append(lines, field.Label+": (пропущено)")
			continue
		}
		lines = append(lines, field.Label+": "+strings.TrimSpace(*value))
	}
	return lines
}
