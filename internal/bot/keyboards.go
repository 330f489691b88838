package bot

import (
	"fmt"
	"strings"

	"lostfound-bot/internal/push"
)

// Action is a parsed inline button payload of the form
// flow:<flow>:<action>[:<value>].
type Action struct {
	Flow   string
	Action string
	Value  string
}

func flowPayload(flow, action string, value ...string) string {
	parts := []string{"flow", flow, action}
	if len(value) > 0 && value[0] != "" {
		parts = append(parts, value[0])
	}
	return strings.Join(parts, ":")
}

func parseFlowPayload(raw string) (Action, bool) {
	parts := strings.SplitN(raw, ":", 4)
	if len(parts) < 3 || parts[0] != "flow" {
		return Action{}, false
	}
	act := Action{Flow: parts[1], Action: parts[2]}
	if len(parts) == 4 {
		act.Value = parts[3]
	}

	_, knownFlow := flowCopies[act.Flow]
	if !knownFlow && act.Flow != flowMenu &&
		act.Action != "start" && act.Action != "menu" && act.Action != "cancel" {
		return Action{}, false
	}
	return act, true
}

func callbackButton(text, flow, action string, value ...string) push.Button {
	return push.Button{Text: text, Payload: flowPayload(flow, action, value...)}
}

func (e *Engine) mainMenuKeyboard() *push.Keyboard {
	kb := &push.Keyboard{Rows: [][]push.Button{
		push.Row(
			callbackButton("🆘 Потерял", flowLost, "start"),
			callbackButton("📦 Нашёл", flowFound, "start"),
		),
		push.Row(callbackButton("📂 Мои объявления", flowMy, "start")),
		push.Row(callbackButton("🐾 Волонтёрить", flowVolunteer, "start")),
		push.Row(callbackButton("🔔 Уведомления", flowMenu, "notifications")),
	}}
	if e.frontURL != "" {
		kb.Rows = append(kb.Rows, push.Row(push.Button{Text: "🗺️ Открыть карту", URL: e.frontURL}))
	}
	return kb
}

func categoryKeyboard(flow string) *push.Keyboard {
	buttons := make([]push.Button, 0, len(categoryOptions))
	for _, option := range categoryOptions {
		buttons = append(buttons, callbackButton(option.Emoji+" "+option.Title, flow, "category", option.ID))
	}

	kb := &push.Keyboard{}
	for i := 0; i < len(buttons); i += 2 {
		end := i + 2
		if end > len(buttons) {
			end = len(buttons)
		}
		kb.Rows = append(kb.Rows, buttons[i:end])
	}
	kb.Rows = append(kb.Rows, push.Row(callbackButton("❌ Отменить", flow, "cancel")))
	return kb
}

func confirmKeyboard(flow string) *push.Keyboard {
	return &push.Keyboard{Rows: [][]push.Button{
		push.Row(callbackButton("✅ Опубликовать", flow, "confirm", "publish")),
		push.Row(
			callbackButton("✏️ Изменить описание", flow, "confirm", "edit"),
			callbackButton("❌ Отменить", flow, "cancel"),
		),
		push.Row(callbackButton("⬅️ Главное меню", flow, "menu")),
	}}
}

func locationModeKeyboard(flow string) *push.Keyboard {
	return &push.Keyboard{Rows: [][]push.Button{
		push.Row(
			callbackButton("📍 Точно", flow, "location_mode", locationModeExact),
			callbackButton("📌 Примерно", flow, "location_mode", locationModeApprox),
		),
		push.Row(callbackButton("🚆 В пути", flow, "location_mode", locationModeTransit)),
		push.Row(callbackButton("❌ Отменить", flow, "cancel")),
	}}
}

func photoAckKeyboard(flow string) *push.Keyboard {
	return &push.Keyboard{Rows: [][]push.Button{
		push.Row(callbackButton("✅ Ознакомлен", flow, "photo_ack")),
		push.Row(callbackButton("❌ Отменить", flow, "cancel")),
	}}
}

func legalAckKeyboard(flow string) *push.Keyboard {
	return &push.Keyboard{Rows: [][]push.Button{
		push.Row(callbackButton("✅ Ознакомлен", flow, "confirm", "legal_ack")),
		push.Row(callbackButton("❌ Отменить", flow, "cancel")),
	}}
}

func ownerReviewKeyboard(chatID string) *push.Keyboard {
	return &push.Keyboard{Rows: [][]push.Button{
		push.Row(
			callbackButton("✅ Совпадает", flowOwner, "review", chatID+"|confirm"),
			callbackButton("❌ Не совпало", flowOwner, "review", chatID+"|decline"),
		),
	}}
}

func contactRequestKeyboard(chatID string) *push.Keyboard {
	return &push.Keyboard{Rows: [][]push.Button{
		push.Row(callbackButton("🤝 Обменяться контактами", flowOwner, "contact_request", chatID)),
	}}
}

func requestContactKeyboard(label string) *push.Keyboard {
	return &push.Keyboard{Rows: [][]push.Button{
		push.Row(push.Button{Text: label, RequestContact: true}),
	}}
}

func matchesKeyboard(flow string, matches []matchSuggestion, originID string) *push.Keyboard {
	kb := &push.Keyboard{}
	for i, match := range matches {
		if i >= 3 {
			break
		}
		kb.Rows = append(kb.Rows, push.Row(callbackButton(
			fmt.Sprintf("✉️ Написать (%d%%)", match.Score),
			flow, "match", match.ID+"|"+originID,
		)))
	}
	return kb
}

func volunteerLocationKeyboard() *push.Keyboard {
	return &push.Keyboard{Rows: [][]push.Button{
		push.Row(callbackButton("⤴️ Без гео", flowVolunteer, "location_skip")),
	}}
}
