package bot

import (
	"context"
	"fmt"
	"log"
	"strings"

	"lostfound-bot/internal/models"
	"lostfound-bot/internal/push"
)

const notificationFeedLimit = 20

func notificationIcon(status string) string {
	switch status {
	case models.NotificationAction:
		return "⏳"
	case models.NotificationUnread:
		return "🆕"
	case models.NotificationResolved:
		return "✅"
	case models.NotificationRead:
		return "📬"
	case models.NotificationArchived:
		return "📁"
	default:
		return "🔔"
	}
}

func defaultNotificationTitle(notifyType string) string {
	switch notifyType {
	case models.NotifyOwnerReview:
		return "Проверка владельца"
	case models.NotifyOwnerWaiting:
		return "Ждём решения нашедшего"
	case models.NotifyOwnerApproved:
		return "Нашедший подтвердил совпадение"
	case models.NotifyOwnerDeclined:
		return "Ответы не совпали"
	case models.NotifyContactShareRequest:
		return "Запрос на обмен контактами"
	case models.NotifyContactAvailable:
		return "Контакты доступны"
	case models.NotifyListingPublished:
		return "Объявление опубликовано"
	case models.NotifyMatchFound:
		return "Возможное совпадение"
	case models.NotifyVolunteerAssigned:
		return "Волонтёр подключился"
	case models.NotifyVolunteerActive:
		return "Вы помогаете в поиске"
	default:
		return "Уведомление"
	}
}

// notificationKeyboard rebuilds the action keyboard a feed entry still
// needs. Settled entries get at most a listing link.
func (e *Engine) notificationKeyboard(n models.Notification) *push.Keyboard {
	if n.Status == models.NotificationAction && n.ChatID != nil {
		switch n.Type {
		case models.NotifyOwnerReview:
			return ownerReviewKeyboard(*n.ChatID)
		case models.NotifyContactShareRequest:
			return contactRequestKeyboard(*n.ChatID)
		case models.NotifyOwnerApproved:
			return shareContactKeyboard(*n.ChatID)
		}
	}
	if n.Type == models.NotifyMatchFound {
		if target, origin, ok := matchPayloadIDs(n.Payload); ok {
			kb := &push.Keyboard{Rows: [][]push.Button{
				push.Row(callbackButton("🛡️ Проверить и связаться", flowLost, "match", target+"|"+origin)),
			}}
			if n.ListingID != nil {
				kb.Rows = append(kb.Rows, listingLinkKeyboard(*n.ListingID).Rows...)
			}
			return kb
		}
	}
	if n.ListingID != nil {
		switch n.Type {
		case models.NotifyListingPublished, models.NotifyVolunteerAssigned, models.NotifyVolunteerActive, models.NotifyMatchFound:
			return listingLinkKeyboard(*n.ListingID)
		}
	}
	return nil
}

// showNotifications renders the feed and marks unread entries as read.
func (e *Engine) showNotifications(ctx context.Context, c *Ctx, user models.User) error {
	feed, err := e.notifications.List(ctx, user.ID, notificationFeedLimit, false)
	if err != nil {
		return fmt.Errorf("list notifications: %w", err)
	}
	if len(feed) == 0 {
		return e.sendMainMenu(ctx, c, "🔔 Уведомлений пока нет.")
	}

	if err := c.Reply(ctx, fmt.Sprintf("🔔 Уведомления (%d)", len(feed)), nil); err != nil {
		return err
	}
	for _, n := range feed {
		title := n.Title
		if title == "" {
			title = defaultNotificationTitle(n.Type)
		}
		text := notificationIcon(n.Status) + " " + title
		if n.Body != "" {
			text += "\n" + n.Body
		}
		if err := c.Reply(ctx, text, e.notificationKeyboard(n)); err != nil {
			return err
		}
		if n.Status == models.NotificationUnread {
			if err := e.notifier.MarkRead(ctx, n.ID); err != nil {
				log.Printf("bot: mark read %s: %v", n.ID, err)
			}
		}
	}
	return nil
}

// showStats summarizes the user's listings and volunteer work.
func (e *Engine) showStats(ctx context.Context, c *Ctx, user models.User) error {
	listings, err := e.listings.ListByAuthor(ctx, user.ID, 50)
	if err != nil {
		return fmt.Errorf("list by author: %w", err)
	}
	assignments, err := e.volunteers.ListForVolunteer(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("list assignments: %w", err)
	}

	var active, closed int
	for _, listing := range listings {
		if listing.Status == models.ListingActive {
			active++
		} else {
			closed++
		}
	}
	lines := []string{
		"📊 Ваша статистика",
		fmt.Sprintf("Активных объявлений: %d", active),
		fmt.Sprintf("Закрытых объявлений: %d", closed),
	}
	if len(assignments) > 0 {
		lines = append(lines, fmt.Sprintf("Поисков, где вы волонтёр: %d", len(assignments)))
	}
	return c.Reply(ctx, strings.Join(lines, "\n"), e.mainMenuKeyboard())
}

// handleShowListingAction renders a listing card if the user may see it.
func (e *Engine) handleShowListingAction(ctx context.Context, c *Ctx, user models.User, listingID string) error {
	listing, err := e.listings.GetByID(ctx, listingID)
	if err != nil {
		return c.Toast(ctx, "Объявление не найдено.")
	}
	ok, err := e.userHasListingAccess(ctx, user, listing)
	if err != nil {
		return err
	}
	if !ok {
		return c.Toast(ctx, "Объявление недоступно.")
	}

	photos, err := e.listings.Photos(ctx, listing.ID)
	if err != nil {
		return err
	}
	if err := c.Toast(ctx, ""); err != nil {
		log.Printf("bot: answer callback: %v", err)
	}
	return c.Reply(ctx, formatListingPreview(listing, photos), nil)
}

// userHasListingAccess checks whether the user owns the listing, was
// notified about it, or may see it as a volunteer-visible pet search.
func (e *Engine) userHasListingAccess(ctx context.Context, user models.User, listing models.Listing) (bool, error) {
	if listing.AuthorID == user.ID {
		return true, nil
	}
	if listing.Type == models.ListingLost &&
		listing.Status == models.ListingActive &&
		normalizeCategory(listing.Category) == volunteerCategory {
		return true, nil
	}

	feed, err := e.notifications.List(ctx, user.ID, 100, true)
	if err != nil {
		return false, err
	}
	for _, n := range feed {
		if n.ListingID != nil && *n.ListingID == listing.ID {
			return true, nil
		}
	}
	return false, nil
}

func formatListingPreview(listing models.Listing, photos []models.Photo) string {
	lines := []string{listing.Title, ""}
	lines = append(lines, "Категория: "+describeCategory(listing.Category))
	if listing.Description != "" {
		lines = append(lines, listing.Description)
	}
	lines = append(lines, "Когда: "+formatDisplayDate(listing.OccurredAt))
	if listing.Lat != nil && listing.Lng != nil {
		lines = append(lines, fmt.Sprintf("Координаты: %s, %s",
			formatCoordinate(*listing.Lat), formatCoordinate(*listing.Lng)))
	}
	if len(photos) > 0 {
		lines = append(lines, fmt.Sprintf("Фото: %d", len(photos)))
	}
	if listing.Status == models.ListingClosed {
		lines = append(lines, "Статус: закрыто")
	}
	return strings.Join(lines, "\n")
}
