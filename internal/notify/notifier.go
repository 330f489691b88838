// Package notify fans a single business event out to its three sinks: the
// durable notification row, a push message to the messenger, and the AMQP
// event stream. The row is written first and is the source of truth, the
// other two are best effort.
package notify

import (
	"context"
	"log"

	"lostfound-bot/internal/events"
	"lostfound-bot/internal/models"
	"lostfound-bot/internal/observability"
	"lostfound-bot/internal/push"
	"lostfound-bot/internal/repositories"
)

// Notifier delivers notifications to users.
type Notifier struct {
	notifications repositories.NotificationRepository
	users         repositories.UserRepository
	sender        push.Sender
	publisher     events.Publisher
}

// New constructs a Notifier.
func New(
	notifications repositories.NotificationRepository,
	users repositories.UserRepository,
	sender push.Sender,
	publisher events.Publisher,
) *Notifier {
	return &Notifier{
		notifications: notifications,
		users:         users,
		sender:        sender,
		publisher:     publisher,
	}
}

// Push sends a plain message to the user without recording anything.
func (n *Notifier) Push(ctx context.Context, userID string, text string, keyboard *push.Keyboard) {
	user, err := n.users.GetByID(ctx, userID)
	if err != nil {
		log.Printf("notify: resolve user %s: %v", userID, err)
		return
	}
	if err := n.sender.SendMessage(ctx, user.PlatformID, text, keyboard); err != nil {
		observability.IncPushError()
		log.Printf("notify: push to %s failed: %v", user.PlatformID, err)
	}
}

// Create records a notification and pushes it. Returns the row id; push and
// publish failures are logged, never returned.
func (n *Notifier) Create(ctx context.Context, notification models.Notification, keyboard *push.Keyboard) (string, error) {
	id, err := n.notifications.Create(ctx, notification)
	if err != nil {
		return "", err
	}
	n.deliver(ctx, notification, keyboard)
	return id, nil
}

// Upsert records through the (user, type, chat) upsert and pushes the fresh
// text.
func (n *Notifier) Upsert(ctx context.Context, key repositories.NotificationKey, patch repositories.NotificationPatch, keyboard *push.Keyboard) (string, error) {
	id, err := n.notifications.Upsert(ctx, key, patch)
	if err != nil {
		return "", err
	}

	notification := models.Notification{UserID: key.UserID, ChatID: key.ChatID, Type: key.Type}
	if patch.Title != nil {
		notification.Title = *patch.Title
	}
	if patch.Body != nil {
		notification.Body = *patch.Body
	}
	n.deliver(ctx, notification, keyboard)
	return id, nil
}

func (n *Notifier) deliver(ctx context.Context, notification models.Notification, keyboard *push.Keyboard) {
	text := notification.Body
	if notification.Title != "" {
		text = notification.Title
		if notification.Body != "" {
			text += "\n\n" + notification.Body
		}
	}
	if text != "" {
		n.Push(ctx, notification.UserID, text, keyboard)
	}

	envelope := events.NewEnvelope(events.KeyNotification, map[string]any{
		"user_id":    notification.UserID,
		"type":       notification.Type,
		"chat_id":    notification.ChatID,
		"listing_id": notification.ListingID,
	})
	if err := n.publisher.Publish(ctx, events.KeyNotification, envelope); err != nil {
		observability.IncAMQPPublishError()
	}
}

// MarkRead proxies to the repository, shared by feed rendering.
func (n *Notifier) MarkRead(ctx context.Context, id string) error {
	return n.notifications.MarkRead(ctx, id)
}

// Publish emits a bare business event with no user notification attached.
func (n *Notifier) Publish(ctx context.Context, routingKey string, payload any) {
	if err := n.publisher.Publish(ctx, routingKey, events.NewEnvelope(routingKey, payload)); err != nil {
		observability.IncAMQPPublishError()
	}
}
