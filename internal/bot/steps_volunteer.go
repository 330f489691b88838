package bot

import (
	"context"
	"fmt"
	"log"
	"strings"

	"lostfound-bot/internal/events"
	"lostfound-bot/internal/matching"
	"lostfound-bot/internal/models"
	"lostfound-bot/internal/push"
)

// volunteerIntroStep greets and immediately moves to the location question.
type volunteerIntroStep struct {
	e *Engine
}

func (s *volunteerIntroStep) Enter(ctx context.Context, c *Ctx, rt *Runtime) error {
	if !rt.SkipIntro {
		copy := flowCopies[flowVolunteer]
		if err := c.Reply(ctx, copy.Emoji+" "+copy.IntroText, nil); err != nil {
			return err
		}
	}
	return s.e.transitionTo(ctx, c, rt, stepVolunteerLocation)
}

// volunteerLocationStep asks for an optional reference point to sort the
// list by distance.
type volunteerLocationStep struct {
	e *Engine
}

func (s *volunteerLocationStep) Enter(ctx context.Context, c *Ctx, rt *Runtime) error {
	return c.Reply(ctx, "Пришлите геопозицию, чтобы показать ближайшие заявки, или продолжите без неё.", volunteerLocationKeyboard())
}

func (s *volunteerLocationStep) OnMessage(ctx context.Context, c *Ctx, rt *Runtime, msg Message) error {
	if msg.Location != nil {
		loc := *msg.Location
		rt.Payload.ensureVolunteer().Location = &loc
		return s.e.transitionTo(ctx, c, rt, stepVolunteerList)
	}
	if isSkipCommand(msg.Lower) {
		return s.e.transitionTo(ctx, c, rt, stepVolunteerList)
	}
	return s.Enter(ctx, c, rt)
}

func (s *volunteerLocationStep) OnCallback(ctx context.Context, c *Ctx, rt *Runtime, act Action) error {
	if act.Action != "location_skip" {
		return c.Toast(ctx, "Кнопка устарела.")
	}
	if err := c.Toast(ctx, ""); err != nil {
		return err
	}
	return s.e.transitionTo(ctx, c, rt, stepVolunteerList)
}

// volunteerListStep renders active pet listings and takes assignments.
type volunteerListStep struct {
	e *Engine
}

func (s *volunteerListStep) Enter(ctx context.Context, c *Ctx, rt *Runtime) error {
	return s.render(ctx, c, rt, false)
}

func (s *volunteerListStep) render(ctx context.Context, c *Ctx, rt *Runtime, refresh bool) error {
	listings, err := s.e.listings.VolunteerListings(ctx, volunteerCategory, volunteerListLimit)
	if err != nil {
		return fmt.Errorf("volunteer listings: %w", err)
	}
	if len(listings) == 0 {
		if err := c.Reply(ctx, flowCopies[flowVolunteer].EmptyText, nil); err != nil {
			return err
		}
		if err := s.e.clearState(ctx, rt.User.ID); err != nil {
			return err
		}
		return s.e.sendMainMenu(ctx, c, "Главное меню.")
	}

	header := "🔥 Активные заявки по животным:"
	if refresh {
		header = "🔄 Обновили список заявок:"
	}
	if err := c.Reply(ctx, header, nil); err != nil {
		return err
	}

	volunteer := rt.Payload.ensureVolunteer()
	for _, listing := range listings {
		if listing.AuthorID == rt.User.ID {
			continue
		}
		kb := &push.Keyboard{Rows: [][]push.Button{
			push.Row(callbackButton("✅ Готов помочь", flowVolunteer, "accept", listing.ID)),
		}}
		kb.Rows = append(kb.Rows, listingLinkKeyboard(listing.ID).Rows...)
		if err := c.Reply(ctx, formatVolunteerCard(listing, volunteer.Location), kb); err != nil {
			return err
		}
	}

	footer := &push.Keyboard{Rows: [][]push.Button{
		push.Row(
			callbackButton("🔄 Обновить", flowVolunteer, "refresh"),
			callbackButton("⬅️ Меню", flowVolunteer, "menu"),
		),
	}}
	return c.Reply(ctx, "Выберите заявку или обновите список.", footer)
}

func (s *volunteerListStep) OnCallback(ctx context.Context, c *Ctx, rt *Runtime, act Action) error {
	switch act.Action {
	case "refresh":
		if err := c.Toast(ctx, ""); err != nil {
			return err
		}
		return s.render(ctx, c, rt, true)
	case "accept":
		return s.e.volunteerAccept(ctx, c, rt, act.Value)
	}
	return c.Toast(ctx, "Кнопка устарела.")
}

func (s *volunteerListStep) OnMessage(ctx context.Context, c *Ctx, rt *Runtime, msg Message) error {
	if msg.Location != nil {
		loc := *msg.Location
		rt.Payload.ensureVolunteer().Location = &loc
		if err := s.e.saveState(ctx, rt); err != nil {
			return err
		}
		return s.render(ctx, c, rt, true)
	}
	return c.Reply(ctx, "Выберите заявку кнопками выше или напишите /cancel.", nil)
}

func formatVolunteerCard(listing models.Listing, from *GeoPoint) string {
	lines := []string{"🐾 " + formatListingTitle(listing.Title)}
	if listing.OccurredAt != nil {
		lines = append(lines, "Когда: "+formatDisplayDate(listing.OccurredAt))
	}
	if from != nil && listing.Lat != nil && listing.Lng != nil {
		km := matching.Haversine(from.Latitude, from.Longitude, *listing.Lat, *listing.Lng)
		lines = append(lines, "До места: "+formatDistance(km))
	}
	if listing.Description != "" {
		lines = append(lines, truncateText(listing.Description, 200))
	}
	return strings.Join(lines, "\n")
}

// volunteerAccept assigns the volunteer to a listing and exchanges contacts
// with the owner. Repeat taps are idempotent.
func (e *Engine) volunteerAccept(ctx context.Context, c *Ctx, rt *Runtime, listingID string) error {
	listing, err := e.listings.GetByID(ctx, listingID)
	if err != nil {
		return c.Toast(ctx, "Заявка уже недоступна.")
	}
	if listing.Status != models.ListingActive || listing.Type != models.ListingLost {
		return c.Toast(ctx, "Заявка уже закрыта.")
	}
	if listing.AuthorID == rt.User.ID {
		return c.Toast(ctx, "Это ваша собственная заявка.")
	}

	if !rt.User.HasPhone() {
		rt.Payload.ensureVolunteer().SelectedListingID = listing.ID
		if err := e.saveState(ctx, rt); err != nil {
			return err
		}
		if err := c.Toast(ctx, ""); err != nil {
			log.Printf("bot: answer callback: %v", err)
		}
		return c.Reply(ctx, "Чтобы владелец мог связаться с вами, поделитесь номером телефона.", requestContactKeyboard("📱 Отправить номер"))
	}

	assignment, created, err := e.volunteers.SaveAssignment(ctx, listing.ID, rt.User.ID)
	if err != nil {
		return fmt.Errorf("save assignment: %w", err)
	}
	if !created {
		return c.Toast(ctx, "Вы уже помогаете по этой заявке.")
	}

	owner, err := e.users.GetByID(ctx, listing.AuthorID)
	if err != nil {
		return err
	}

	if err := c.Toast(ctx, "Вы в деле!"); err != nil {
		log.Printf("bot: answer callback: %v", err)
	}

	e.notifier.Push(ctx, owner.ID, fmt.Sprintf(
		"🐾 Волонтёр подключился к поиску «%s».\n%s", formatListingTitle(listing.Title),
		formatContactAnnouncement("Волонтёр", rt.User)), nil)
	e.notifier.Push(ctx, rt.User.ID, formatContactAnnouncement("Владелец", owner), nil)

	if _, err := e.notifier.Create(ctx, models.Notification{
		UserID:    owner.ID,
		ListingID: &listing.ID,
		Type:      models.NotifyVolunteerAssigned,
		Title:     "🐾 К поиску подключился волонтёр",
		Body:      fmt.Sprintf("По заявке «%s» появился помощник, контакты отправили выше.", formatListingTitle(listing.Title)),
		Status:    models.NotificationUnread,
	}, listingLinkKeyboard(listing.ID)); err != nil {
		log.Printf("bot: volunteer assigned notification: %v", err)
	}
	if _, err := e.notifier.Create(ctx, models.Notification{
		UserID:    rt.User.ID,
		ListingID: &listing.ID,
		Type:      models.NotifyVolunteerActive,
		Title:     "✅ Вы помогаете в поиске",
		Body:      fmt.Sprintf("Заявка «%s» закреплена за вами.", formatListingTitle(listing.Title)),
		Status:    models.NotificationUnread,
	}, listingLinkKeyboard(listing.ID)); err != nil {
		log.Printf("bot: volunteer active notification: %v", err)
	}

	if err := e.volunteers.MarkNotified(ctx, assignment.ID, true, true); err != nil {
		log.Printf("bot: mark notified %s: %v", assignment.ID, err)
	}
	e.notifier.Publish(ctx, events.KeyVolunteerAssigned, map[string]any{
		"listing_id":   listing.ID,
		"volunteer_id": rt.User.ID,
	})

	rt.Payload.ensureVolunteer().SelectedListingID = ""
	return e.saveState(ctx, rt)
}

// resumeVolunteerAccept retries a pending assignment after the user finally
// shared a phone number.
func (e *Engine) resumeVolunteerAccept(ctx context.Context, c *Ctx, user models.User) error {
	rt, err := e.loadRuntime(ctx, user)
	if err != nil {
		return err
	}
	if rt.Payload == nil || rt.Payload.Volunteer == nil || rt.Payload.Volunteer.SelectedListingID == "" {
		return nil
	}
	return e.volunteerAccept(ctx, c, rt, rt.Payload.Volunteer.SelectedListingID)
}
