// Package handlers exposes the HTTP surface: the messenger webhook and the
// health endpoint.
package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"lostfound-bot/internal/bot"
)

// WebhookHandler receives platform updates and feeds them to the engine.
type WebhookHandler struct {
	engine *bot.Engine
	secret string
}

// NewWebhookHandler builds a WebhookHandler. An empty secret disables the
// token check.
func NewWebhookHandler(engine *bot.Engine, secret string) *WebhookHandler {
	return &WebhookHandler{engine: engine, secret: secret}
}

type webhookUpdate struct {
	UpdateType string           `json:"update_type"`
	Message    *inboundMessage  `json:"message,omitempty"`
	Callback   *inboundCallback `json:"callback,omitempty"`
}

type inboundMessage struct {
	Sender      inboundSender       `json:"sender"`
	Text        string              `json:"text"`
	Attachments []inboundAttachment `json:"attachments,omitempty"`
}

type inboundCallback struct {
	CallbackID string        `json:"callback_id"`
	Payload    string        `json:"payload"`
	Sender     inboundSender `json:"sender"`
}

type inboundSender struct {
	UserID string `json:"user_id"`
}

type inboundAttachment struct {
	Type    string            `json:"type"`
	Payload attachmentPayload `json:"payload"`
}

type attachmentPayload struct {
	ID        string  `json:"id,omitempty"`
	URL       string  `json:"url,omitempty"`
	Token     string  `json:"token,omitempty"`
	Latitude  float64 `json:"latitude,omitempty"`
	Longitude float64 `json:"longitude,omitempty"`
	Phone     string  `json:"phone,omitempty"`
}

// Handle processes one webhook POST. The platform retries non-2xx
// responses, so engine failures are logged and acknowledged.
func (h *WebhookHandler) Handle(c *gin.Context) {
	if h.secret != "" && c.Query("secret") != h.secret {
		c.JSON(http.StatusForbidden, gin.H{"error": "bad secret"})
		return
	}

	var update webhookUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	ctx := c.Request.Context()
	requestID := requestIDFromContext(c)
	switch update.UpdateType {
	case "message_created":
		if update.Message == nil || update.Message.Sender.UserID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "message missing"})
			return
		}
		msg := buildMessage(*update.Message)
		if err := h.engine.HandleMessage(ctx, update.Message.Sender.UserID, msg); err != nil {
			log.Printf("webhook: request_id=%s handle message from %s: %v",
				requestID, update.Message.Sender.UserID, err)
			h.engine.ReportFailure(ctx, update.Message.Sender.UserID, "")
		}
	case "message_callback":
		if update.Callback == nil || update.Callback.Sender.UserID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "callback missing"})
			return
		}
		if err := h.engine.HandleCallback(ctx, update.Callback.Sender.UserID,
			update.Callback.CallbackID, update.Callback.Payload); err != nil {
			log.Printf("webhook: request_id=%s handle callback from %s: %v",
				requestID, update.Callback.Sender.UserID, err)
			h.engine.ReportFailure(ctx, update.Callback.Sender.UserID, update.Callback.CallbackID)
		}
	default:
		// Unknown update types are acknowledged and dropped.
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func buildMessage(in inboundMessage) bot.Message {
	msg := bot.Message{Text: in.Text}
	for _, attachment := range in.Attachments {
		switch attachment.Type {
		case "image", "photo":
			msg.Photos = append(msg.Photos, bot.PhotoAttachment{
				ID:    attachment.Payload.ID,
				URL:   attachment.Payload.URL,
				Token: attachment.Payload.Token,
			})
		case "location":
			msg.Location = &bot.GeoPoint{
				Latitude:  attachment.Payload.Latitude,
				Longitude: attachment.Payload.Longitude,
			}
		case "contact":
			if attachment.Payload.Phone != "" {
				msg.Contact = &bot.Contact{Phone: attachment.Payload.Phone}
			}
		}
	}
	return msg
}

// Health reports liveness.
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
