package bot

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSecretEntriesDelimiters(t *testing.T) {
	pairs, problems := parseSecretEntries(
		"Какой брелок был на рюкзаке? синий\nГравировка :: для Саши\nЦвет подкладки : красный",
		flowFound)
	require.Empty(t, problems)
	require.Len(t, pairs, 3)
	assert.Equal(t, "Какой брелок был на рюкзаке?", pairs[0].Question)
	assert.Equal(t, "синий", pairs[0].Answer)
	assert.Equal(t, "Гравировка", pairs[1].Question)
	assert.Equal(t, "для Саши", pairs[1].Answer)
	assert.Equal(t, "Цвет подкладки", pairs[2].Question)
	assert.Equal(t, "красный", pairs[2].Answer)
}

func TestParseSecretEntriesFoundRequiresBothHalves(t *testing.T) {
	pairs, problems := parseSecretEntries("просто примета без вопроса", flowFound)
	assert.Empty(t, pairs)
	require.Len(t, problems, 1)
	assert.Contains(t, problems[0], "Строка 1")
}

func TestParseSecretEntriesLostFallbackQuestion(t *testing.T) {
	pairs, problems := parseSecretEntries("царапина на задней крышке\nнаклейка внутри", flowLost)
	require.Empty(t, problems)
	require.Len(t, pairs, 2)
	assert.Equal(t, "Секрет 1", pairs[0].Question)
	assert.Equal(t, "царапина на задней крышке", pairs[0].Answer)
	assert.Equal(t, "Секрет 2", pairs[1].Question)
}

func TestParseSecretEntriesCapsAtThree(t *testing.T) {
	pairs, problems := parseSecretEntries("один\nдва\nтри\nчетыре", flowLost)
	assert.Len(t, pairs, 3)
	require.Len(t, problems, 1)
	assert.Contains(t, problems[0], "не больше 3")
}

func TestParseSecretEntriesLengthLimits(t *testing.T) {
	long := strings.Repeat("о", secretAnswerLimit+1)
	pairs, problems := parseSecretEntries("Вопрос :: "+long, flowFound)
	assert.Empty(t, pairs)
	require.Len(t, problems, 1)
	assert.Contains(t, problems[0], "длиннее")
}

func TestSplitSecretLinePrefersDoubleColon(t *testing.T) {
	question, answer, ok := splitSecretLine("время 12:30 :: на вокзале")
	require.True(t, ok)
	assert.Equal(t, "время 12:30", question)
	assert.Equal(t, "на вокзале", answer)
}

func TestPendingToSecretsUsesFieldLabel(t *testing.T) {
	draft := &Draft{
		Category:       "electronics",
		PendingSecrets: []SecretHint{{Key: "serial_hint", Value: "IMEI ...4821"}},
	}
	pairs := pendingToSecrets(draft)
	require.Len(t, pairs, 1)
	assert.Equal(t, "Уникальная метка?", pairs[0].Question)
	assert.Equal(t, "IMEI ...4821", pairs[0].Answer)
}

func TestPhotoAckRequired(t *testing.T) {
	assert.True(t, photoAckRequired(flowLost, "document"))
	assert.True(t, photoAckRequired(flowFound, "wear"))
	assert.False(t, photoAckRequired(flowLost, "wear"))
	assert.False(t, photoAckRequired(flowFound, "pet"))
}
