package bot

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"lostfound-bot/internal/events"
	"lostfound-bot/internal/models"
	"lostfound-bot/internal/push"
	"lostfound-bot/internal/repositories"
)

func strPtr(s string) *string { return &s }

// handleMatchAction starts owner verification from a match button. The
// value is "<targetListingID>|<originListingID>".
func (e *Engine) handleMatchAction(ctx context.Context, c *Ctx, user models.User, value string) error {
	parts := strings.SplitN(value, "|", 2)
	if len(parts) != 2 {
		return c.Toast(ctx, "Кнопка устарела.")
	}

	target, err := e.listings.GetByID(ctx, parts[0])
	if err != nil {
		return c.Toast(ctx, "Объявление уже недоступно.")
	}
	origin, err := e.listings.GetByID(ctx, parts[1])
	if err != nil {
		return c.Toast(ctx, "Объявление уже недоступно.")
	}

	lost, found := origin, target
	if origin.Type == models.ListingFound {
		lost, found = target, origin
	}
	if lost.Type != models.ListingLost || found.Type != models.ListingFound {
		return c.Toast(ctx, "Эта пара объявлений не подходит для проверки.")
	}
	if lost.AuthorID == found.AuthorID {
		return c.Toast(ctx, "Эта пара объявлений не подходит для проверки.")
	}
	// Forged or stale payloads must not open checks on other people's
	// listings.
	if user.ID != lost.AuthorID && user.ID != found.AuthorID {
		return c.Toast(ctx, "Это объявление принадлежит другому пользователю.")
	}

	if user.ID == lost.AuthorID {
		return e.launchOwnerCheck(ctx, c, user, lost, found)
	}

	// The finder taps the match: invite the owner to verify instead.
	if err := c.Toast(ctx, "Отправили владельцу приглашение на проверку"); err != nil {
		log.Printf("bot: answer callback: %v", err)
	}
	kb := &push.Keyboard{Rows: [][]push.Button{
		push.Row(callbackButton("🛡️ Пройти проверку", flowLost, "match", found.ID+"|"+lost.ID)),
	}}
	if _, err := e.notifier.Create(ctx, models.Notification{
		UserID:    lost.AuthorID,
		ListingID: &found.ID,
		Type:      models.NotifyMatchFound,
		Title:     "🔎 Похоже, вашу вещь нашли",
		Body:      fmt.Sprintf("«%s» может быть вашей пропажей. Пройдите проверку, чтобы получить контакты.", formatListingTitle(found.Title)),
		Payload:   matchNotificationPayload(found.ID, lost.ID),
		Status:    models.NotificationAction,
	}, kb); err != nil {
		return err
	}
	return nil
}

// launchOwnerCheck opens (or resumes) the verification chat for a
// lost/found pair and walks the claimant into the question flow.
func (e *Engine) launchOwnerCheck(ctx context.Context, c *Ctx, claimant models.User, lost, found models.Listing) error {
	chat, err := e.chats.GetOrCreateOwnerCheck(ctx, repositories.OwnerCheckKey{
		LostListingID:  lost.ID,
		FoundListingID: found.ID,
		InitiatorID:    claimant.ID,
		HolderID:       found.AuthorID,
		ClaimantID:     lost.AuthorID,
	})
	if err != nil {
		return fmt.Errorf("owner check chat: %w", err)
	}

	switch chat.Status {
	case models.ChatActive, models.ChatClosed:
		if err := c.Toast(ctx, "Контакты уже раскрыты"); err != nil {
			log.Printf("bot: answer callback: %v", err)
		}
		e.revealContacts(ctx, chat)
		return nil
	case models.ChatDeclined:
		return c.Toast(ctx, "Владелец отклонил предыдущую проверку.")
	}

	secrets, err := e.listings.Secrets(ctx, found.ID)
	if err != nil {
		return fmt.Errorf("load secrets: %w", err)
	}
	var questions []OwnerQuestion
	for _, secret := range secrets {
		pair := e.vault.DecryptPair(secret.Cipher)
		if pair.Question != "" {
			questions = append(questions, OwnerQuestion{ID: secret.ID, Question: pair.Question})
		}
	}

	oc := &OwnerCheck{
		ChatID:         chat.ID,
		LostListingID:  lost.ID,
		FoundListingID: found.ID,
		HolderID:       chat.HolderID,
		ClaimantID:     chat.ClaimantID,
		Questions:      questions,
		LostTitle:      formatListingTitle(lost.Title),
		FoundTitle:     formatListingTitle(found.Title),
	}
	rt := &Runtime{User: claimant, Payload: &Payload{Flow: flowOwner, OwnerCheck: oc}}

	if err := c.Toast(ctx, ""); err != nil {
		log.Printf("bot: answer callback: %v", err)
	}
	if len(questions) == 0 {
		// Nothing to answer, hand straight over to the holder.
		if err := e.notifyOwnerForReview(ctx, chat, oc); err != nil {
			return err
		}
		return e.transitionTo(ctx, c, rt, stepOwnerCheckWaiting)
	}
	return e.transitionTo(ctx, c, rt, stepOwnerCheckIntro)
}

// ownerIntroStep explains the check before the first question.
type ownerIntroStep struct {
	e *Engine
}

func (s *ownerIntroStep) Enter(ctx context.Context, c *Ctx, rt *Runtime) error {
	oc := rt.Payload.OwnerCheck
	text := fmt.Sprintf(
		"🛡️ Проверка владельца\n\nНашедший «%s» оставил %d контрольных вопроса(ов). Ответьте на них текстом, ответы увидит только нашедший.",
		oc.FoundTitle, len(oc.Questions))
	kb := &push.Keyboard{Rows: [][]push.Button{
		push.Row(callbackButton("▶️ Начать проверку", flowOwner, "begin")),
		push.Row(callbackButton("❌ Отменить", flowOwner, "cancel")),
	}}
	return c.Reply(ctx, text, kb)
}

func (s *ownerIntroStep) OnCallback(ctx context.Context, c *Ctx, rt *Runtime, act Action) error {
	if act.Action != "begin" {
		return c.Toast(ctx, "Кнопка устарела.")
	}
	if err := c.Toast(ctx, ""); err != nil {
		return err
	}
	return s.e.transitionTo(ctx, c, rt, stepOwnerCheckQuestion)
}

// ownerQuestionStep asks the verification questions one by one.
type ownerQuestionStep struct {
	e *Engine
}

func (s *ownerQuestionStep) Enter(ctx context.Context, c *Ctx, rt *Runtime) error {
	oc := rt.Payload.OwnerCheck
	if oc.Index >= len(oc.Questions) {
		return s.e.transitionTo(ctx, c, rt, stepOwnerCheckWaiting)
	}
	question := oc.Questions[oc.Index]
	return c.Reply(ctx, fmt.Sprintf("Вопрос %d из %d:\n%s", oc.Index+1, len(oc.Questions), question.Question), nil)
}

func (s *ownerQuestionStep) OnMessage(ctx context.Context, c *Ctx, rt *Runtime, msg Message) error {
	oc := rt.Payload.OwnerCheck
	answer := strings.TrimSpace(msg.Text)
	if answer == "" {
		return s.Enter(ctx, c, rt)
	}
	if oc.Index >= len(oc.Questions) {
		return s.e.transitionTo(ctx, c, rt, stepOwnerCheckWaiting)
	}

	question := oc.Questions[oc.Index]
	oc.Answers = append(oc.Answers, OwnerAnswer{Question: question.Question, Answer: answer})

	meta, _ := json.Marshal(map[string]any{"type": "owner_answer", "index": oc.Index + 1})
	body := fmt.Sprintf("Ответ на вопрос %d: %s", oc.Index+1, answer)
	if _, err := s.e.chats.AppendMessage(ctx, oc.ChatID, rt.User.ID, body, meta); err != nil {
		return fmt.Errorf("append answer: %w", err)
	}

	oc.Index++
	if oc.Index < len(oc.Questions) {
		return s.e.transitionTo(ctx, c, rt, stepOwnerCheckQuestion)
	}

	chat, err := s.e.chats.GetChat(ctx, oc.ChatID)
	if err != nil {
		return err
	}
	if err := s.e.notifyOwnerForReview(ctx, chat, oc); err != nil {
		return err
	}
	return s.e.transitionTo(ctx, c, rt, stepOwnerCheckWaiting)
}

// ownerWaitingStep parks a participant until the other side acts.
type ownerWaitingStep struct {
	e *Engine
}

func (s *ownerWaitingStep) Enter(ctx context.Context, c *Ctx, rt *Runtime) error {
	if rt.SkipIntro {
		return nil
	}
	return c.Reply(ctx, "⏳ Ответы отправлены нашедшему. Сообщим, как только он примет решение.", nil)
}

func (s *ownerWaitingStep) OnMessage(ctx context.Context, c *Ctx, rt *Runtime, msg Message) error {
	return c.Reply(ctx, "⏳ Ждём решения второй стороны. Напишите /cancel, чтобы выйти в меню.", nil)
}

// notifyOwnerForReview records the answer summary in the chat and hands the
// decision to the holder. Both sides end up parked waiting.
func (e *Engine) notifyOwnerForReview(ctx context.Context, chat models.Chat, oc *OwnerCheck) error {
	lines := []string{fmt.Sprintf("Заявка на «%s» от владельца «%s».", oc.FoundTitle, oc.LostTitle)}
	if len(oc.Answers) == 0 {
		lines = append(lines, "Контрольных вопросов не было.")
	}
	for i, answer := range oc.Answers {
		lines = append(lines, fmt.Sprintf("%d. %s\n→ %s", i+1, answer.Question, answer.Answer))
	}
	summary := strings.Join(lines, "\n")

	meta, _ := json.Marshal(map[string]any{"type": "owner_review"})
	if _, err := e.chats.AppendSystemMessage(ctx, chat.ID, summary, meta); err != nil {
		return fmt.Errorf("append review summary: %w", err)
	}

	holderState := &Payload{Flow: flowOwner, OwnerCheck: oc}
	if err := e.sessions.Save(ctx, models.Session{
		UserID:  chat.HolderID,
		Step:    stepOwnerCheckWaiting,
		Payload: marshalPayload(holderState),
	}); err != nil {
		return err
	}

	if _, err := e.notifier.Upsert(ctx,
		repositories.NotificationKey{UserID: chat.HolderID, Type: models.NotifyOwnerReview, ChatID: &chat.ID},
		repositories.NotificationPatch{
			Title:     strPtr("🛡️ Проверка владельца"),
			Body:      strPtr(summary + "\n\nСовпадают ли ответы с вашими секретами?"),
			Status:    strPtr(models.NotificationAction),
			ListingID: &oc.FoundListingID,
		}, ownerReviewKeyboard(chat.ID)); err != nil {
		return err
	}

	_, err := e.notifier.Upsert(ctx,
		repositories.NotificationKey{UserID: chat.ClaimantID, Type: models.NotifyOwnerWaiting, ChatID: &chat.ID},
		repositories.NotificationPatch{
			Title:  strPtr("⏳ Ответы у нашедшего"),
			Body:   strPtr(fmt.Sprintf("Нашедший «%s» проверяет ваши ответы.", oc.FoundTitle)),
			Status: strPtr(models.NotificationUnread),
		}, nil)
	return err
}

// handleOwnerReview applies the holder's confirm/decline decision. The
// value is "<chatID>|confirm" or "<chatID>|decline".
func (e *Engine) handleOwnerReview(ctx context.Context, c *Ctx, user models.User, value string) error {
	parts := strings.SplitN(value, "|", 2)
	if len(parts) != 2 {
		return c.Toast(ctx, "Кнопка устарела.")
	}
	chat, err := e.chats.GetChat(ctx, parts[0])
	if err != nil {
		return c.Toast(ctx, "Диалог не найден.")
	}
	if chat.HolderID != user.ID {
		return c.Toast(ctx, "Решение принимает нашедший.")
	}

	switch chat.Status {
	case models.ChatClosed:
		return c.Toast(ctx, "Контакты уже раскрыты.")
	case models.ChatActive:
		return c.Toast(ctx, "Вы уже подтвердили. Нажмите «Обменяться контактами».")
	case models.ChatDeclined:
		return c.Toast(ctx, "Проверка уже отклонена.")
	}

	switch parts[1] {
	case "confirm":
		return e.confirmOwnerReview(ctx, c, chat)
	case "decline":
		return e.declineOwnerReview(ctx, c, chat)
	}
	return c.Toast(ctx, "Кнопка устарела.")
}

func (e *Engine) confirmOwnerReview(ctx context.Context, c *Ctx, chat models.Chat) error {
	if err := e.chats.UpdateStatus(ctx, chat.ID, models.ChatActive); err != nil {
		return err
	}
	e.notifier.Publish(ctx, events.KeyChatStatusChanged, map[string]any{
		"chat_id": chat.ID, "status": models.ChatActive,
	})

	e.resolveNotification(ctx, chat.HolderID, models.NotifyOwnerReview, chat.ID)

	if _, err := e.notifier.Upsert(ctx,
		repositories.NotificationKey{UserID: chat.HolderID, Type: models.NotifyContactShareRequest, ChatID: &chat.ID},
		repositories.NotificationPatch{
			Title:  strPtr("🤝 Ответы совпали"),
			Body:   strPtr("Запросите обмен контактами, чтобы договориться о передаче."),
			Status: strPtr(models.NotificationAction),
		}, contactRequestKeyboard(chat.ID)); err != nil {
		return err
	}

	if _, err := e.notifier.Upsert(ctx,
		repositories.NotificationKey{UserID: chat.ClaimantID, Type: models.NotifyOwnerWaiting, ChatID: &chat.ID},
		repositories.NotificationPatch{
			Title:  strPtr("✅ Нашедший подтвердил совпадение"),
			Body:   strPtr("Скоро он запросит обмен контактами."),
			Status: strPtr(models.NotificationUnread),
		}, nil); err != nil {
		return err
	}

	if err := e.clearState(ctx, chat.HolderID); err != nil {
		return err
	}
	return c.Toast(ctx, "Подтверждено")
}

func (e *Engine) declineOwnerReview(ctx context.Context, c *Ctx, chat models.Chat) error {
	if err := e.chats.UpdateStatus(ctx, chat.ID, models.ChatDeclined); err != nil {
		return err
	}
	e.notifier.Publish(ctx, events.KeyChatStatusChanged, map[string]any{
		"chat_id": chat.ID, "status": models.ChatDeclined,
	})

	e.resolveNotification(ctx, chat.HolderID, models.NotifyOwnerReview, chat.ID)
	e.resolveNotification(ctx, chat.ClaimantID, models.NotifyOwnerWaiting, chat.ID)

	if _, err := e.notifier.Create(ctx, models.Notification{
		UserID: chat.ClaimantID,
		ChatID: &chat.ID,
		Type:   models.NotifyOwnerDeclined,
		Title:  "❌ Ответы не совпали",
		Body:   "Нашедший не подтвердил совпадение. Если уверены, что это ваша вещь, проверьте детали объявления и попробуйте ещё раз.",
		Status: models.NotificationUnread,
	}, nil); err != nil {
		return err
	}

	if err := e.clearState(ctx, chat.HolderID); err != nil {
		return err
	}
	if err := e.clearState(ctx, chat.ClaimantID); err != nil {
		return err
	}
	return c.Toast(ctx, "Отклонено")
}

// handleContactRequest is the holder asking to exchange contacts.
func (e *Engine) handleContactRequest(ctx context.Context, c *Ctx, user models.User, chatID string) error {
	chat, err := e.chats.GetChat(ctx, chatID)
	if err != nil {
		return c.Toast(ctx, "Диалог не найден.")
	}
	if chat.HolderID != user.ID {
		return c.Toast(ctx, "Обмен запрашивает нашедший.")
	}

	switch chat.Status {
	case models.ChatDeclined:
		return c.Toast(ctx, "Проверка была отклонена.")
	case models.ChatPending:
		return c.Toast(ctx, "Сначала подтвердите ответы.")
	case models.ChatClosed:
		return c.Toast(ctx, "Контакты уже раскрыты.")
	}

	e.resolveNotification(ctx, chat.HolderID, models.NotifyContactShareRequest, chat.ID)
	if err := c.Toast(ctx, "Запрос отправлен"); err != nil {
		log.Printf("bot: answer callback: %v", err)
	}

	claimant, err := e.users.GetByID(ctx, chat.ClaimantID)
	if err != nil {
		return err
	}
	if claimant.HasPhone() {
		return e.finalizeContactExchange(ctx, chat)
	}

	holder, err := e.users.GetByID(ctx, chat.HolderID)
	if err != nil {
		return err
	}
	masked := "не указан"
	if holder.HasPhone() {
		masked = maskPhoneValue(*holder.Phone)
	}

	e.resolveNotification(ctx, chat.ClaimantID, models.NotifyOwnerWaiting, chat.ID)
	_, err = e.notifier.Upsert(ctx,
		repositories.NotificationKey{UserID: chat.ClaimantID, Type: models.NotifyOwnerApproved, ChatID: &chat.ID},
		repositories.NotificationPatch{
			Title:  strPtr("🤝 Нашедший готов обменяться контактами"),
			Body:   strPtr(fmt.Sprintf("Его номер %s откроется, как только вы поделитесь своим.", masked)),
			Status: strPtr(models.NotificationAction),
		}, shareContactKeyboard(chat.ID))
	return err
}

func shareContactKeyboard(chatID string) *push.Keyboard {
	kb := &push.Keyboard{Rows: [][]push.Button{
		push.Row(callbackButton("📲 Поделиться контактом", flowOwner, "share_contact", chatID)),
	}}
	kb.Rows = append(kb.Rows, requestContactKeyboard("📱 Отправить номер").Rows...)
	return kb
}

// handleShareContact is the claimant agreeing to reveal the phone number.
func (e *Engine) handleShareContact(ctx context.Context, c *Ctx, user models.User, chatID string) error {
	chat, err := e.chats.GetChat(ctx, chatID)
	if err != nil {
		return c.Toast(ctx, "Диалог не найден.")
	}
	if chat.ClaimantID != user.ID {
		return c.Toast(ctx, "Кнопка предназначена владельцу.")
	}

	switch chat.Status {
	case models.ChatPending, models.ChatDeclined:
		return c.Toast(ctx, "Проверка ещё не подтверждена.")
	case models.ChatClosed:
		return c.Toast(ctx, "Контакты уже раскрыты.")
	}

	if user.HasPhone() {
		if err := c.Toast(ctx, ""); err != nil {
			log.Printf("bot: answer callback: %v", err)
		}
		return e.finalizeContactExchange(ctx, chat)
	}

	if err := c.Toast(ctx, ""); err != nil {
		log.Printf("bot: answer callback: %v", err)
	}
	return c.Reply(ctx, "Поделитесь номером кнопкой ниже, и мы передадим его нашедшему.", requestContactKeyboard("📱 Отправить номер"))
}

// handleContactShareEvent fires when the user shares a contact card. Any
// approved owner-check exchange waiting on this phone completes now.
func (e *Engine) handleContactShareEvent(ctx context.Context, c *Ctx, user models.User) error {
	var chatIDs []string
	if feed, err := e.notifications.List(ctx, user.ID, 50, false); err == nil {
		for _, n := range feed {
			if n.Type == models.NotifyOwnerApproved && n.Status == models.NotificationAction && n.ChatID != nil {
				chatIDs = append(chatIDs, *n.ChatID)
			}
		}
	}
	if len(chatIDs) == 0 {
		chats, err := e.chats.ActiveChatsForClaimant(ctx, user.ID)
		if err != nil {
			return err
		}
		for _, chat := range chats {
			chatIDs = append(chatIDs, chat.ID)
		}
	}

	if len(chatIDs) == 0 {
		if err := e.resumeVolunteerAccept(ctx, c, user); err != nil {
			return err
		}
		return c.Reply(ctx, "📱 Номер сохранили. Он понадобится для обмена контактами.", nil)
	}

	for _, chatID := range chatIDs {
		chat, err := e.chats.GetChat(ctx, chatID)
		if err != nil {
			log.Printf("bot: contact share chat %s: %v", chatID, err)
			continue
		}
		if err := e.finalizeContactExchange(ctx, chat); err != nil {
			log.Printf("bot: finalize exchange %s: %v", chatID, err)
		}
	}
	return nil
}

// finalizeContactExchange closes the chat and reveals both contacts.
func (e *Engine) finalizeContactExchange(ctx context.Context, chat models.Chat) error {
	if chat.Status == models.ChatClosed {
		return nil
	}
	if err := e.chats.UpdateStatus(ctx, chat.ID, models.ChatClosed); err != nil {
		return err
	}
	chat.Status = models.ChatClosed
	e.notifier.Publish(ctx, events.KeyContactRevealed, map[string]any{"chat_id": chat.ID})

	e.revealContacts(ctx, chat)
	e.resolveNotification(ctx, chat.ClaimantID, models.NotifyOwnerWaiting, chat.ID)

	if err := e.clearState(ctx, chat.HolderID); err != nil {
		return err
	}
	return e.clearState(ctx, chat.ClaimantID)
}

// revealContacts pushes each side's phone to the other and settles the
// related notifications.
func (e *Engine) revealContacts(ctx context.Context, chat models.Chat) {
	holder, err := e.users.GetByID(ctx, chat.HolderID)
	if err != nil {
		log.Printf("bot: reveal holder %s: %v", chat.HolderID, err)
		return
	}
	claimant, err := e.users.GetByID(ctx, chat.ClaimantID)
	if err != nil {
		log.Printf("bot: reveal claimant %s: %v", chat.ClaimantID, err)
		return
	}

	e.notifier.Push(ctx, chat.HolderID, formatContactAnnouncement("Владелец", claimant), nil)
	e.notifier.Push(ctx, chat.ClaimantID, formatContactAnnouncement("Нашедший", holder), nil)

	e.resolveNotification(ctx, chat.HolderID, models.NotifyContactShareRequest, chat.ID)
	e.resolveNotification(ctx, chat.ClaimantID, models.NotifyOwnerApproved, chat.ID)

	for _, userID := range []string{chat.HolderID, chat.ClaimantID} {
		if _, err := e.notifier.Create(ctx, models.Notification{
			UserID: userID,
			ChatID: &chat.ID,
			Type:   models.NotifyContactAvailable,
			Title:  "📞 Контакты доступны",
			Body:   "Обмен состоялся, договоритесь о передаче напрямую.",
			Status: models.NotificationUnread,
		}, nil); err != nil {
			log.Printf("bot: contact available notification: %v", err)
		}
	}
}

// resolveNotification flips the (user, type, chat) notification to RESOLVED
// if it exists. Missing rows are fine.
func (e *Engine) resolveNotification(ctx context.Context, userID, notifyType, chatID string) {
	key := repositories.NotificationKey{UserID: userID, Type: notifyType, ChatID: &chatID}
	n, err := e.notifications.FindByKey(ctx, key)
	if err != nil {
		return
	}
	if err := e.notifications.Update(ctx, n.ID, repositories.NotificationPatch{
		Status: strPtr(models.NotificationResolved),
	}); err != nil {
		log.Printf("bot: resolve notification %s: %v", n.ID, err)
	}
}

func formatContactAnnouncement(role string, user models.User) string {
	phone := "номер не указан"
	if user.HasPhone() {
		phone = *user.Phone
	}
	return fmt.Sprintf("📞 %s на связи: %s", role, phone)
}

// maskPhoneValue hides every digit of a phone number.
func maskPhoneValue(phone string) string {
	masked := []rune(phone)
	for i, r := range masked {
		if r >= '0' && r <= '9' {
			masked[i] = '*'
		}
	}
	if len(masked) < 8 {
		return "********"
	}
	return string(masked)
}
