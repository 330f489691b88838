package push

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoopWhenTokenMissing(t *testing.T) {
	s := NewSender("http://unused", "")
	assert.Equal(t, "noop", SenderMode(s))
	assert.NoError(t, s.SendMessage(context.Background(), "42", "hi", nil))
	assert.NoError(t, s.AnswerCallback(context.Background(), "cb", ""))
}

func TestSendMessageEncodesKeyboard(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "token-1", r.Header.Get("Authorization"))
		require.Equal(t, "42", r.URL.Query().Get("user_id"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewSender(srv.URL, "token-1")
	require.Equal(t, "http", SenderMode(s))

	kb := &Keyboard{Rows: [][]Button{
		Row(Button{Text: "Да", Payload: "flow:owner:confirm"}),
		Row(Button{Text: "Телефон", RequestContact: true}),
	}}
	require.NoError(t, s.SendMessage(context.Background(), "42", "вопрос", kb))

	assert.Equal(t, "вопрос", got["text"])
	attachments := got["attachments"].([]any)
	require.Len(t, attachments, 1)
	payload := attachments[0].(map[string]any)["payload"].(map[string]any)
	buttons := payload["buttons"].([]any)
	require.Len(t, buttons, 2)

	first := buttons[0].([]any)[0].(map[string]any)
	assert.Equal(t, "callback", first["type"])
	assert.Equal(t, "flow:owner:confirm", first["payload"])

	second := buttons[1].([]any)[0].(map[string]any)
	assert.Equal(t, "request_contact", second["type"])
}

func TestSendMessageSurfacesAPIErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad token", http.StatusUnauthorized)
	}))
	defer srv.Close()

	s := NewSender(srv.URL, "token-1")
	err := s.SendMessage(context.Background(), "42", "hi", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestAnswerCallback(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "cb-7", r.URL.Query().Get("callback_id"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
	}))
	defer srv.Close()

	s := NewSender(srv.URL, "token-1")
	require.NoError(t, s.AnswerCallback(context.Background(), "cb-7", "Принято"))
	assert.Equal(t, "Принято", got["notification"])
}
