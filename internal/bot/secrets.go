package bot

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"lostfound-bot/internal/models"
)

const maxSecretEntries = 3

// parseSecretEntries turns the free-text secrets message into pairs. One
// entry per line, question and answer split by the first delimiter found.
// FOUND entries must carry both halves since the question is shown to
// claimants; LOST lines without a delimiter become answer-only secrets with
// a generated question.
func parseSecretEntries(text, flow string) ([]models.SecretPair, []string) {
	var pairs []models.SecretPair
	var problems []string

	lines := strings.Split(text, "\n")
	index := 0
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		index++
		if index > maxSecretEntries {
			problems = append(problems, fmt.Sprintf("Можно не больше %d секретов, лишние строки не сохранены.", maxSecretEntries))
			break
		}

		question, answer, split := splitSecretLine(line)
		if !split {
			if flow == flowFound {
				problems = append(problems, fmt.Sprintf("Строка %d: нужен вопрос и ответ, например «Какой брелок? : синий».", index))
				continue
			}
			question = fmt.Sprintf("Секрет %d", index)
			answer = line
		}

		if utf8.RuneCountInString(question) > secretQuestionLimit {
			problems = append(problems, fmt.Sprintf("Строка %d: вопрос длиннее %d символов.", index, secretQuestionLimit))
			continue
		}
		if utf8.RuneCountInString(answer) > secretAnswerLimit {
			problems = append(problems, fmt.Sprintf("Строка %d: ответ длиннее %d символов.", index, secretAnswerLimit))
			continue
		}
		if answer == "" {
			problems = append(problems, fmt.Sprintf("Строка %d: не хватает ответа.", index))
			continue
		}

		pairs = append(pairs, models.SecretPair{Question: question, Answer: answer})
	}

	return pairs, problems
}

// splitSecretLine tries delimiters in priority order. A question mark keeps
// itself on the question side.
func splitSecretLine(line string) (question, answer string, ok bool) {
	for _, delim := range []string{"::", "—", " - ", ":", "?"} {
		idx := strings.Index(line, delim)
		if idx <= 0 {
			continue
		}
		question = strings.TrimSpace(line[:idx])
		answer = strings.TrimSpace(line[idx+len(delim):])
		if delim == "?" {
			question += "?"
		}
		if question == "" || answer == "" {
			continue
		}
		return question, answer, true
	}
	return "", "", false
}

// pendingToSecrets turns attribute answers earmarked as secret hints into
// proper pairs, the field label serving as the question.
func pendingToSecrets(listing *Draft) []models.SecretPair {
	var pairs []models.SecretPair
	for _, hint := range listing.PendingSecrets {
		question := "Уникальная примета"
		if field := attributeField(listing.Category, hint.Key); field != nil {
			question = field.Label + "?"
		}
		pairs = append(pairs, models.SecretPair{Question: question, Answer: hint.Value})
	}
	return pairs
}

func secretsFormatHint(flow string) string {
	if flow == flowFound {
		return "Формат: «вопрос :: ответ», по одному на строку. Владелец увидит только вопрос."
	}
	return "Формат: «вопрос :: ответ» или просто приметы по одной на строку."
}

func buildSecretsSummary(entries []models.SecretPair, label string) string {
	if len(entries) == 0 {
		return label + ": нет"
	}
	lines := make([]string, 0, len(entries)+1)
	lines = append(lines, fmt.Sprintf("%s (%d):", label, len(entries)))
	for i, entry := range entries {
		lines = append(lines, fmt.Sprintf("%d. %s", i+1, entry.Question))
	}
	return strings.Join(lines, "\n")
}

// buildPhotoAcknowledgementCopy picks the safety text the photo step shows
// before accepting uploads.
func buildPhotoAcknowledgementCopy(flow, category string) []string {
	var parts []string
	if warning, ok := categoryWarnings[category]; ok {
		parts = append(parts, warning)
	}
	if flow == flowFound {
		switch category {
		case "document":
			parts = append(parts, legalFoundGeneral)
		case "pet":
			parts = append(parts, legalFoundPet)
		default:
			if riskyCategories[category] {
				parts = append(parts, legalFoundGeneral)
			}
		}
	}
	return parts
}

// photoAckRequired reports whether the photo step must be confirmed with a
// button before uploads are accepted.
func photoAckRequired(flow, category string) bool {
	if flow == flowFound && category == "wear" {
		return true
	}
	return riskyCategories[category]
}
