// Package push delivers bot messages to messenger users through the
// platform REST API.
package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"
)

// Button is one inline keyboard button. Payload buttons come back as
// callbacks, RequestContact buttons ask the messenger for the user's phone.
type Button struct {
	Text           string `json:"text"`
	Payload        string `json:"payload,omitempty"`
	URL            string `json:"url,omitempty"`
	RequestContact bool   `json:"request_contact,omitempty"`
}

// Keyboard is an inline keyboard, rows of buttons.
type Keyboard struct {
	Rows [][]Button `json:"rows"`
}

// Row is a convenience constructor for a single keyboard row.
func Row(buttons ...Button) []Button {
	return buttons
}

// Sender delivers messages to a messenger user identified by platform id.
type Sender interface {
	SendMessage(ctx context.Context, platformID string, text string, keyboard *Keyboard) error
	AnswerCallback(ctx context.Context, callbackID string, toast string) error
}

// NewSender builds an HTTP sender or a noop sender when the bot token is
// not configured.
func NewSender(apiBase, botToken string) Sender {
	if botToken == "" {
		log.Printf("push disabled, using noop: empty bot token")
		return noopSender{reason: "empty bot token"}
	}
	return &httpSender{
		apiBase:  apiBase,
		botToken: botToken,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

type httpSender struct {
	apiBase  string
	botToken string
	client   *http.Client
}

type attachmentPayload struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type keyboardPayload struct {
	Buttons [][]apiButton `json:"buttons"`
}

type apiButton struct {
	Type    string `json:"type"`
	Text    string `json:"text"`
	Payload string `json:"payload,omitempty"`
	URL     string `json:"url,omitempty"`
}

func toAPIButton(b Button) apiButton {
	switch {
	case b.RequestContact:
		return apiButton{Type: "request_contact", Text: b.Text}
	case b.URL != "":
		return apiButton{Type: "link", Text: b.Text, URL: b.URL}
	default:
		return apiButton{Type: "callback", Text: b.Text, Payload: b.Payload}
	}
}

// SendMessage posts a text message with an optional inline keyboard.
func (s *httpSender) SendMessage(ctx context.Context, platformID string, text string, keyboard *Keyboard) error {
	body := map[string]any{"text": text}
	if keyboard != nil && len(keyboard.Rows) > 0 {
		rows := make([][]apiButton, 0, len(keyboard.Rows))
		for _, row := range keyboard.Rows {
			apiRow := make([]apiButton, 0, len(row))
			for _, b := range row {
				apiRow = append(apiRow, toAPIButton(b))
			}
			rows = append(rows, apiRow)
		}
		body["attachments"] = []attachmentPayload{{
			Type:    "inline_keyboard",
			Payload: keyboardPayload{Buttons: rows},
		}}
	}

	endpoint := fmt.Sprintf("%s/messages?user_id=%s", s.apiBase, url.QueryEscape(platformID))
	return s.post(ctx, endpoint, body)
}

// AnswerCallback acknowledges a callback button press, optionally with a
// toast shown to the user.
func (s *httpSender) AnswerCallback(ctx context.Context, callbackID string, toast string) error {
	body := map[string]any{}
	if toast != "" {
		body["notification"] = toast
	}
	endpoint := fmt.Sprintf("%s/answers?callback_id=%s", s.apiBase, url.QueryEscape(callbackID))
	return s.post(ctx, endpoint, body)
}

func (s *httpSender) post(ctx context.Context, endpoint string, body any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", s.botToken)

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("push api status %d: %s", resp.StatusCode, payload)
	}
	return nil
}

type noopSender struct {
	reason string
}

func (n noopSender) SendMessage(ctx context.Context, platformID string, text string, keyboard *Keyboard) error {
	log.Printf("push noop send user=%s len=%d", platformID, len(text))
	return nil
}

func (n noopSender) AnswerCallback(ctx context.Context, callbackID string, toast string) error {
	log.Printf("push noop answer callback=%s", callbackID)
	return nil
}

// SenderMode reports the sender mode for logging.
func SenderMode(s Sender) string {
	switch s.(type) {
	case *httpSender:
		return "http"
	case noopSender:
		return "noop"
	default:
		return "unknown"
	}
}
