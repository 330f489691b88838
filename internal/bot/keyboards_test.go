package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlowPayloadRoundTrip(t *testing.T) {
	raw := flowPayload(flowOwner, "review", "chat-1|confirm")
	assert.Equal(t, "flow:owner:review:chat-1|confirm", raw)

	act, ok := parseFlowPayload(raw)
	require.True(t, ok)
	assert.Equal(t, flowOwner, act.Flow)
	assert.Equal(t, "review", act.Action)
	assert.Equal(t, "chat-1|confirm", act.Value)
}

func TestParseFlowPayloadWithoutValue(t *testing.T) {
	act, ok := parseFlowPayload("flow:lost:start")
	require.True(t, ok)
	assert.Equal(t, flowLost, act.Flow)
	assert.Equal(t, "start", act.Action)
	assert.Empty(t, act.Value)
}

func TestParseFlowPayloadRejectsGarbage(t *testing.T) {
	for _, raw := range []string{"", "flow:lost", "other:lost:start", "flow:bogus:confirm"} {
		_, ok := parseFlowPayload(raw)
		assert.False(t, ok, "payload %q", raw)
	}
}

func TestParseFlowPayloadAllowsMenuFlow(t *testing.T) {
	act, ok := parseFlowPayload("flow:menu:notifications")
	require.True(t, ok)
	assert.Equal(t, flowMenu, act.Flow)
	assert.Equal(t, "notifications", act.Action)
}

func TestCategoryKeyboardLayout(t *testing.T) {
	kb := categoryKeyboard(flowLost)
	// Seven categories two per row plus the cancel row.
	require.Len(t, kb.Rows, 5)
	assert.Len(t, kb.Rows[0], 2)
	assert.Len(t, kb.Rows[3], 1)
	assert.Equal(t, "flow:lost:cancel", kb.Rows[4][0].Payload)
}

func TestMatchesKeyboardCapsAtThree(t *testing.T) {
	suggestions := []matchSuggestion{
		{ID: "a", Score: 90}, {ID: "b", Score: 80}, {ID: "c", Score: 70}, {ID: "d", Score: 60},
	}
	kb := matchesKeyboard(flowLost, suggestions, "origin")
	require.Len(t, kb.Rows, 3)
	assert.Equal(t, "flow:lost:match:a|origin", kb.Rows[0][0].Payload)
}
