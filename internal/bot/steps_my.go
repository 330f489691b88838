package bot

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"lostfound-bot/internal/models"
	"lostfound-bot/internal/push"
	"lostfound-bot/internal/repositories"
)

const (
	titleMinLen       = 5
	titleMaxLen       = 120
	descriptionMinLen = 10
	myListLimit       = 10
)

// myListStep shows the user's listings with per-card controls.
type myListStep struct {
	e *Engine
}

func (s *myListStep) Enter(ctx context.Context, c *Ctx, rt *Runtime) error {
	return s.render(ctx, c, rt, false)
}

func (s *myListStep) render(ctx context.Context, c *Ctx, rt *Runtime, refresh bool) error {
	listings, err := s.e.listings.ListByAuthor(ctx, rt.User.ID, myListLimit)
	if err != nil {
		return fmt.Errorf("list by author: %w", err)
	}
	if len(listings) == 0 {
		if err := s.e.clearState(ctx, rt.User.ID); err != nil {
			return err
		}
		return s.e.sendMainMenu(ctx, c, flowCopies[flowMy].EmptyText)
	}

	header := fmt.Sprintf("📂 Ваши объявления (%d):", len(listings))
	if refresh {
		header = "🔄 Обновили список:"
	}
	if err := c.Reply(ctx, header, nil); err != nil {
		return err
	}

	for _, listing := range listings {
		toggleLabel := "✅ Закрыть"
		if listing.Status == models.ListingClosed {
			toggleLabel = "♻️ Открыть заново"
		}
		kb := &push.Keyboard{Rows: [][]push.Button{
			push.Row(
				callbackButton("✏️ Редактировать", flowMy, "edit_menu", listing.ID),
				callbackButton(toggleLabel, flowMy, "toggle_status", listing.ID),
			),
		}}
		kb.Rows = append(kb.Rows, listingLinkKeyboard(listing.ID).Rows...)
		if err := c.Reply(ctx, formatMyCard(listing), kb); err != nil {
			return err
		}
	}

	footer := &push.Keyboard{Rows: [][]push.Button{
		push.Row(
			callbackButton("🔄 Обновить", flowMy, "refresh"),
			callbackButton("⬅️ Меню", flowMy, "menu"),
		),
	}}
	return c.Reply(ctx, "Выберите объявление.", footer)
}

func formatMyCard(listing models.Listing) string {
	icon := "🟢"
	if listing.Status == models.ListingClosed {
		icon = "⚪️"
	}
	lines := []string{fmt.Sprintf("%s %s", icon, formatListingTitle(listing.Title))}
	lines = append(lines, "Категория: "+describeCategory(listing.Category))
	lines = append(lines, "Когда: "+formatDisplayDate(listing.OccurredAt))
	return strings.Join(lines, "\n")
}

func (s *myListStep) OnCallback(ctx context.Context, c *Ctx, rt *Runtime, act Action) error {
	switch act.Action {
	case "refresh":
		if err := c.Toast(ctx, ""); err != nil {
			return err
		}
		return s.render(ctx, c, rt, true)
	case "edit_menu":
		if _, err := s.e.ownListing(ctx, rt.User.ID, act.Value); err != nil {
			return c.Toast(ctx, "Объявление не найдено.")
		}
		rt.Payload.ensureMy().EditingID = act.Value
		if err := c.Toast(ctx, ""); err != nil {
			return err
		}
		return s.e.transitionTo(ctx, c, rt, stepMyEditMenu)
	case "toggle_status":
		listing, err := s.e.ownListing(ctx, rt.User.ID, act.Value)
		if err != nil {
			return c.Toast(ctx, "Объявление не найдено.")
		}
		next := models.ListingClosed
		toast := "Закрыто"
		if listing.Status == models.ListingClosed {
			next = models.ListingActive
			toast = "Снова активно"
		}
		if err := s.e.listings.SetStatus(ctx, listing.ID, next); err != nil {
			return err
		}
		if err := c.Toast(ctx, toast); err != nil {
			return err
		}
		return s.render(ctx, c, rt, true)
	}
	return c.Toast(ctx, "Кнопка устарела.")
}

func (s *myListStep) OnMessage(ctx context.Context, c *Ctx, rt *Runtime, msg Message) error {
	return c.Reply(ctx, "Управляйте объявлениями кнопками выше или напишите /cancel.", nil)
}

// ownListing fetches a listing and checks it belongs to the user.
func (e *Engine) ownListing(ctx context.Context, userID, listingID string) (models.Listing, error) {
	listing, err := e.listings.GetByID(ctx, listingID)
	if err != nil {
		return models.Listing{}, err
	}
	if listing.AuthorID != userID {
		return models.Listing{}, repositories.ErrListingNotFound
	}
	return listing, nil
}

// myEditMenuStep offers the editable fields of the selected listing.
type myEditMenuStep struct {
	e *Engine
}

var myEditTargets = []struct {
	label string
	value string
	step  string
}{
	{"📝 Заголовок", "title", stepMyEditTitle},
	{"📄 Описание", "description", stepMyEditDescription},
	{"🗂️ Категория", "category", stepMyEditCategory},
	{"🕐 Дата и время", "occurred", stepMyEditOccurred},
	{"📍 Место", "location", stepMyEditLocation},
	{"🖼️ Фото", "photos", stepMyEditPhotos},
}

func (s *myEditMenuStep) Enter(ctx context.Context, c *Ctx, rt *Runtime) error {
	listing, err := s.e.ownListing(ctx, rt.User.ID, rt.Payload.ensureMy().EditingID)
	if err != nil {
		return s.e.transitionTo(ctx, c, rt, stepMyList)
	}

	kb := &push.Keyboard{}
	for i := 0; i < len(myEditTargets); i += 2 {
		row := []push.Button{callbackButton(myEditTargets[i].label, flowMy, "edit", myEditTargets[i].value)}
		if i+1 < len(myEditTargets) {
			row = append(row, callbackButton(myEditTargets[i+1].label, flowMy, "edit", myEditTargets[i+1].value))
		}
		kb.Rows = append(kb.Rows, row)
	}
	kb.Rows = append(kb.Rows, push.Row(callbackButton("⬅️ К списку", flowMy, "back_to_list")))

	text := "✏️ Что изменить?\n\n" + formatMyCard(listing)
	if listing.Description != "" {
		text += "\n\n" + truncateText(listing.Description, 300)
	}
	return c.Reply(ctx, text, kb)
}

func (s *myEditMenuStep) OnCallback(ctx context.Context, c *Ctx, rt *Runtime, act Action) error {
	switch act.Action {
	case "back_to_list":
		if err := c.Toast(ctx, ""); err != nil {
			return err
		}
		return s.e.transitionTo(ctx, c, rt, stepMyList)
	case "edit":
		for _, target := range myEditTargets {
			if target.value == act.Value {
				if err := c.Toast(ctx, ""); err != nil {
					return err
				}
				return s.e.transitionTo(ctx, c, rt, target.step)
			}
		}
	}
	return c.Toast(ctx, "Кнопка устарела.")
}

func (s *myEditMenuStep) OnMessage(ctx context.Context, c *Ctx, rt *Runtime, msg Message) error {
	return s.Enter(ctx, c, rt)
}

// myEditFieldStep edits the plain text fields, title and description.
type myEditFieldStep struct {
	e     *Engine
	field string
}

func (s *myEditFieldStep) Enter(ctx context.Context, c *Ctx, rt *Runtime) error {
	if s.field == "title" {
		return c.Reply(ctx, fmt.Sprintf("Напишите новый заголовок (от %d до %d символов). /back — отмена.", titleMinLen, titleMaxLen), nil)
	}
	return c.Reply(ctx, fmt.Sprintf("Напишите новое описание (минимум %d символов). /back — отмена.", descriptionMinLen), nil)
}

func (s *myEditFieldStep) OnMessage(ctx context.Context, c *Ctx, rt *Runtime, msg Message) error {
	value := strings.TrimSpace(msg.Text)
	length := utf8.RuneCountInString(value)

	var patch repositories.ListingPatch
	if s.field == "title" {
		if length < titleMinLen || length > titleMaxLen {
			return c.Reply(ctx, fmt.Sprintf("Заголовок должен быть от %d до %d символов.", titleMinLen, titleMaxLen), nil)
		}
		patch.Title = &value
	} else {
		if length < descriptionMinLen {
			return c.Reply(ctx, fmt.Sprintf("Описание должно быть не короче %d символов.", descriptionMinLen), nil)
		}
		patch.Description = &value
	}

	if err := s.e.listings.UpdateFields(ctx, rt.Payload.ensureMy().EditingID, patch); err != nil {
		return err
	}
	if err := c.Reply(ctx, "✅ Сохранили.", nil); err != nil {
		return err
	}
	return s.e.transitionTo(ctx, c, rt, stepMyEditMenu)
}

// myEditCategoryStep swaps the category.
type myEditCategoryStep struct {
	e *Engine
}

func (s *myEditCategoryStep) Enter(ctx context.Context, c *Ctx, rt *Runtime) error {
	return c.Reply(ctx, "Выберите новую категорию.", categoryKeyboard(flowMy))
}

func (s *myEditCategoryStep) OnCallback(ctx context.Context, c *Ctx, rt *Runtime, act Action) error {
	if act.Action != "category" {
		return c.Toast(ctx, "Кнопка устарела.")
	}
	option := categoryOption(act.Value)
	if option == nil {
		return c.Toast(ctx, "Неизвестная категория.")
	}
	if err := s.e.listings.UpdateFields(ctx, rt.Payload.ensureMy().EditingID,
		repositories.ListingPatch{Category: &option.ID}); err != nil {
		return err
	}
	if err := c.Toast(ctx, option.Title); err != nil {
		return err
	}
	return s.e.transitionTo(ctx, c, rt, stepMyEditMenu)
}

func (s *myEditCategoryStep) OnMessage(ctx context.Context, c *Ctx, rt *Runtime, msg Message) error {
	if option := matchCategoryText(msg.Lower); option != nil {
		if err := s.e.listings.UpdateFields(ctx, rt.Payload.ensureMy().EditingID,
			repositories.ListingPatch{Category: &option.ID}); err != nil {
			return err
		}
		return s.e.transitionTo(ctx, c, rt, stepMyEditMenu)
	}
	return s.Enter(ctx, c, rt)
}

// myEditOccurredStep edits the date. /skip removes it.
type myEditOccurredStep struct {
	e *Engine
}

func (s *myEditOccurredStep) Enter(ctx context.Context, c *Ctx, rt *Runtime) error {
	return c.Reply(ctx, "Когда это произошло? Например «вчера 18:00» или «12.05 14:00». /skip уберёт дату, /back — отмена.", nil)
}

func (s *myEditOccurredStep) OnMessage(ctx context.Context, c *Ctx, rt *Runtime, msg Message) error {
	editingID := rt.Payload.ensureMy().EditingID
	if isSkipCommand(msg.Lower) {
		if err := s.e.listings.UpdateFields(ctx, editingID, repositories.ListingPatch{ClearOccurredAt: true}); err != nil {
			return err
		}
		if err := c.Reply(ctx, "🕐 Дату убрали.", nil); err != nil {
			return err
		}
		return s.e.transitionTo(ctx, c, rt, stepMyEditMenu)
	}

	occurred, ok := parseDateTimeInput(msg.Text, time.Now())
	if !ok {
		return c.Reply(ctx, "Не понял дату. Примеры: «сейчас», «вчера 18:00», «12.05 14:00».", nil)
	}
	if err := s.e.listings.UpdateFields(ctx, editingID, repositories.ListingPatch{OccurredAt: occurred}); err != nil {
		return err
	}
	if err := c.Reply(ctx, "✅ Сохранили: "+formatDisplayDate(occurred), nil); err != nil {
		return err
	}
	return s.e.transitionTo(ctx, c, rt, stepMyEditMenu)
}

// myEditLocationStep edits the coordinates. /skip removes them.
type myEditLocationStep struct {
	e *Engine
}

func (s *myEditLocationStep) Enter(ctx context.Context, c *Ctx, rt *Runtime) error {
	return c.Reply(ctx, "Пришлите новую геопозицию вложением. /skip уберёт координаты, /back — отмена.", nil)
}

func (s *myEditLocationStep) OnMessage(ctx context.Context, c *Ctx, rt *Runtime, msg Message) error {
	editingID := rt.Payload.ensureMy().EditingID
	if isSkipCommand(msg.Lower) {
		if err := s.e.listings.UpdateFields(ctx, editingID, repositories.ListingPatch{ClearLocation: true}); err != nil {
			return err
		}
		if err := c.Reply(ctx, "📍 Координаты убрали.", nil); err != nil {
			return err
		}
		return s.e.transitionTo(ctx, c, rt, stepMyEditMenu)
	}
	if msg.Location == nil {
		return s.Enter(ctx, c, rt)
	}

	listing, err := s.e.ownListing(ctx, rt.User.ID, editingID)
	if err != nil {
		return s.e.transitionTo(ctx, c, rt, stepMyList)
	}
	flow := flowLost
	if listing.Type == models.ListingFound {
		flow = flowFound
	}
	point := generalizeLocation(*msg.Location, flow, locationModeExact)

	patch := repositories.ListingPatch{Lat: &point.Latitude, Lng: &point.Longitude}
	if point.Precision != "" {
		patch.District = &point.Precision
	}
	if err := s.e.listings.UpdateFields(ctx, editingID, patch); err != nil {
		return err
	}
	if err := c.Reply(ctx, "✅ Место обновили.", nil); err != nil {
		return err
	}
	return s.e.transitionTo(ctx, c, rt, stepMyEditMenu)
}

// myEditPhotosStep replaces the photo set. /clear deletes all, /skip keeps
// the current ones.
type myEditPhotosStep struct {
	e *Engine
}

func (s *myEditPhotosStep) Enter(ctx context.Context, c *Ctx, rt *Runtime) error {
	return c.Reply(ctx, "Пришлите до 3 новых фото одним сообщением. /clear удалит все фото, /skip оставит как есть.", nil)
}

func (s *myEditPhotosStep) OnMessage(ctx context.Context, c *Ctx, rt *Runtime, msg Message) error {
	editingID := rt.Payload.ensureMy().EditingID

	switch {
	case msg.Lower == "/clear":
		if err := s.e.listings.ReplacePhotos(ctx, editingID, nil); err != nil {
			return err
		}
		if err := c.Reply(ctx, "🖼️ Фото удалили.", nil); err != nil {
			return err
		}
		return s.e.transitionTo(ctx, c, rt, stepMyEditMenu)
	case isSkipCommand(msg.Lower):
		return s.e.transitionTo(ctx, c, rt, stepMyEditMenu)
	}

	if len(msg.Photos) == 0 {
		return s.Enter(ctx, c, rt)
	}
	var urls []string
	for _, photo := range msg.Photos {
		if photo.URL != "" {
			urls = append(urls, photo.URL)
		}
	}
	if err := s.e.listings.ReplacePhotos(ctx, editingID, urls); err != nil {
		return err
	}
	if err := c.Reply(ctx, fmt.Sprintf("✅ Сохранили %d фото.", len(urls)), nil); err != nil {
		return err
	}
	return s.e.transitionTo(ctx, c, rt, stepMyEditMenu)
}
