// Package bot implements the conversational workflow engine: persistent
// per-user sessions, the intake wizards, owner verification and the
// volunteer and listing-management flows.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"lostfound-bot/internal/models"
	"lostfound-bot/internal/notify"
	"lostfound-bot/internal/observability"
	"lostfound-bot/internal/push"
	"lostfound-bot/internal/repositories"
	"lostfound-bot/internal/vault"
)

// Contact is a shared contact card attached to an inbound message.
type Contact struct {
	Phone string
}

// Message is one inbound user message, normalized by the webhook layer.
type Message struct {
	Text     string
	Lower    string
	Location *GeoPoint
	Photos   []PhotoAttachment
	Contact  *Contact
}

// Runtime is the loaded conversation state a handler operates on. Payload is
// a fresh clone, handlers may mutate it freely.
type Runtime struct {
	User      models.User
	Step      string
	Payload   *Payload
	SkipIntro bool
}

// Ctx binds a handler invocation to the user it answers.
type Ctx struct {
	engine     *Engine
	platformID string
	callbackID string
}

// Reply sends a message back to the user this update came from.
func (c *Ctx) Reply(ctx context.Context, text string, keyboard *push.Keyboard) error {
	return c.engine.sender.SendMessage(ctx, c.platformID, text, keyboard)
}

// Toast acknowledges the pending callback with a short popup. Messages
// without a callback id fall back to a regular reply.
func (c *Ctx) Toast(ctx context.Context, text string) error {
	if c.callbackID == "" {
		if text == "" {
			return nil
		}
		return c.Reply(ctx, text, nil)
	}
	return c.engine.sender.AnswerCallback(ctx, c.callbackID, text)
}

// Dependencies wires the engine to its collaborators.
type Dependencies struct {
	Sessions      repositories.SessionRepository
	Users         repositories.UserRepository
	Listings      repositories.ListingRepository
	Chats         repositories.ChatRepository
	Notifications repositories.NotificationRepository
	Volunteers    repositories.VolunteerRepository
	Vault         *vault.Vault
	Notifier      *notify.Notifier
	Sender        push.Sender
	FrontURL      string
}

// Engine dispatches inbound updates to the step the user is parked at.
type Engine struct {
	sessions      repositories.SessionRepository
	users         repositories.UserRepository
	listings      repositories.ListingRepository
	chats         repositories.ChatRepository
	notifications repositories.NotificationRepository
	volunteers    repositories.VolunteerRepository
	vault         *vault.Vault
	notifier      *notify.Notifier
	sender        push.Sender
	frontURL      string

	steps map[string]Step
}

// NewEngine constructs the engine and its step registry.
func NewEngine(d Dependencies) *Engine {
	e := &Engine{
		sessions:      d.Sessions,
		users:         d.Users,
		listings:      d.Listings,
		chats:         d.Chats,
		notifications: d.Notifications,
		volunteers:    d.Volunteers,
		vault:         d.Vault,
		notifier:      d.Notifier,
		sender:        d.Sender,
		frontURL:      d.FrontURL,
	}

	e.steps = map[string]Step{}
	for flow, names := range intakeStepsByFlow {
		e.steps[names.category] = &categoryStep{e: e, flow: flow}
		e.steps[names.attributes] = &attributesStep{e: e, flow: flow}
		e.steps[names.photo] = &photoStep{e: e, flow: flow}
		e.steps[names.location] = &locationStep{e: e, flow: flow}
		e.steps[names.secrets] = &secretsStep{e: e, flow: flow}
		e.steps[names.confirm] = &confirmStep{e: e, flow: flow}
	}

	e.steps[stepOwnerCheckIntro] = &ownerIntroStep{e: e}
	e.steps[stepOwnerCheckQuestion] = &ownerQuestionStep{e: e}
	e.steps[stepOwnerCheckWaiting] = &ownerWaitingStep{e: e}

	e.steps[stepVolunteerIntro] = &volunteerIntroStep{e: e}
	e.steps[stepVolunteerLocation] = &volunteerLocationStep{e: e}
	e.steps[stepVolunteerList] = &volunteerListStep{e: e}

	e.steps[stepMyList] = &myListStep{e: e}
	e.steps[stepMyEditMenu] = &myEditMenuStep{e: e}
	e.steps[stepMyEditTitle] = &myEditFieldStep{e: e, field: "title"}
	e.steps[stepMyEditDescription] = &myEditFieldStep{e: e, field: "description"}
	e.steps[stepMyEditCategory] = &myEditCategoryStep{e: e}
	e.steps[stepMyEditOccurred] = &myEditOccurredStep{e: e}
	e.steps[stepMyEditLocation] = &myEditLocationStep{e: e}
	e.steps[stepMyEditPhotos] = &myEditPhotosStep{e: e}

	return e
}

// HandleMessage processes one inbound text/attachment message.
func (e *Engine) HandleMessage(ctx context.Context, platformID string, msg Message) error {
	observability.IncInboundEvent("message")

	phone := ""
	if msg.Contact != nil {
		phone = msg.Contact.Phone
	}
	user, err := e.users.EnsureUser(ctx, platformID, phone)
	if err != nil {
		return fmt.Errorf("ensure user: %w", err)
	}

	c := &Ctx{engine: e, platformID: platformID}
	msg.Lower = strings.ToLower(strings.TrimSpace(msg.Text))

	if msg.Contact != nil {
		return e.handleContactShareEvent(ctx, c, user)
	}

	if msg.Lower == "/start" {
		if err := e.clearState(ctx, user.ID); err != nil {
			return err
		}
		return e.sendMainMenu(ctx, c, "Привет! Я помогаю вернуть потерянные вещи. С чего начнём?")
	}

	rt, err := e.loadRuntime(ctx, user)
	if err != nil {
		return err
	}

	if containsKeyword(cancelKeywords, msg.Lower) {
		if err := e.clearState(ctx, user.ID); err != nil {
			return err
		}
		return e.sendMainMenu(ctx, c, "Окей, всё отменили. Возвращайтесь, когда будете готовы.")
	}

	if containsKeyword(backKeywords, msg.Lower) && rt.Step != StepIdle {
		return e.stepBack(ctx, c, rt)
	}

	if containsKeyword(previewKeywords, msg.Lower) && rt.Payload != nil && rt.Payload.Listing != nil {
		return c.Reply(ctx, buildDraftSummary(rt.Payload.Flow, rt.Payload.Listing), nil)
	}

	if rt.Step == StepIdle {
		return e.handleIdleMessage(ctx, c, rt, msg)
	}

	step, ok := e.steps[rt.Step].(MessageStep)
	if !ok {
		return c.Reply(ctx, "Здесь нужно ответить кнопками под сообщением выше.", nil)
	}
	return step.OnMessage(ctx, c, rt, msg)
}

func (e *Engine) handleIdleMessage(ctx context.Context, c *Ctx, rt *Runtime, msg Message) error {
	for _, flow := range []string{flowLost, flowFound, flowVolunteer, flowMy} {
		if matchesFlowKeyword(msg.Lower, flow) {
			return e.startFlow(ctx, c, rt.User, flow)
		}
	}
	if notificationKeywords[msg.Lower] {
		return e.showNotifications(ctx, c, rt.User)
	}
	if statsKeywords[msg.Lower] {
		return e.showStats(ctx, c, rt.User)
	}
	if msg.Lower == "" {
		return e.sendMainMenu(ctx, c, "Выберите, что нужно сделать.")
	}
	return e.sendMainMenu(ctx, c, "Не узнал команду. Вот что я умею:")
}

// HandleCallback processes one inline button press.
func (e *Engine) HandleCallback(ctx context.Context, platformID, callbackID, payload string) error {
	observability.IncInboundEvent("callback")

	user, err := e.users.EnsureUser(ctx, platformID, "")
	if err != nil {
		return fmt.Errorf("ensure user: %w", err)
	}
	c := &Ctx{engine: e, platformID: platformID, callbackID: callbackID}

	act, ok := parseFlowPayload(payload)
	if !ok {
		return c.Toast(ctx, "Кнопка устарела.")
	}

	switch act.Action {
	case "start":
		if err := c.Toast(ctx, ""); err != nil {
			log.Printf("bot: answer callback: %v", err)
		}
		return e.startFlow(ctx, c, user, act.Flow)
	case "menu":
		if err := e.clearState(ctx, user.ID); err != nil {
			return err
		}
		if err := c.Toast(ctx, ""); err != nil {
			log.Printf("bot: answer callback: %v", err)
		}
		return e.sendMainMenu(ctx, c, "Главное меню.")
	case "cancel":
		if err := e.clearState(ctx, user.ID); err != nil {
			return err
		}
		if err := c.Toast(ctx, "Отменено"); err != nil {
			log.Printf("bot: answer callback: %v", err)
		}
		return e.sendMainMenu(ctx, c, "Черновик удалён. Начать заново?")
	}

	if act.Flow == flowMenu {
		switch act.Action {
		case "notifications":
			if err := c.Toast(ctx, ""); err != nil {
				log.Printf("bot: answer callback: %v", err)
			}
			return e.showNotifications(ctx, c, user)
		case "show_listing":
			return e.handleShowListingAction(ctx, c, user, act.Value)
		}
		return c.Toast(ctx, "Кнопка устарела.")
	}

	rt, err := e.loadRuntime(ctx, user)
	if err != nil {
		return err
	}

	if act.Action == "match" {
		return e.handleMatchAction(ctx, c, user, act.Value)
	}

	// Owner review and contact exchange arrive from pushed notifications,
	// whatever step the recipient is parked at.
	if act.Flow == flowOwner {
		switch act.Action {
		case "review":
			return e.handleOwnerReview(ctx, c, user, act.Value)
		case "contact_request":
			return e.handleContactRequest(ctx, c, user, act.Value)
		case "share_contact":
			return e.handleShareContact(ctx, c, user, act.Value)
		}
	}

	if rt.Step == StepIdle {
		return c.Toast(ctx, "Сессия завершена, начните из меню.")
	}
	if stepFlow[rt.Step] != act.Flow && act.Flow != flowOwner {
		return c.Toast(ctx, "Кнопка из другого диалога.")
	}

	step, ok := e.steps[rt.Step].(CallbackStep)
	if !ok {
		return c.Toast(ctx, "Кнопка устарела.")
	}
	return step.OnCallback(ctx, c, rt, act)
}

func (e *Engine) startFlow(ctx context.Context, c *Ctx, user models.User, flow string) error {
	start, ok := flowStartStep[flow]
	if !ok {
		return e.sendMainMenu(ctx, c, "Выберите, что нужно сделать.")
	}
	rt := &Runtime{User: user, Step: StepIdle, Payload: newPayload(flow)}
	return e.transitionTo(ctx, c, rt, start)
}

// transitionTo parks the user at the target step. State is persisted before
// the prompt is rendered so a crash after the send never loses the step. The
// attributes step may be skipped entirely when every field is answered.
func (e *Engine) transitionTo(ctx context.Context, c *Ctx, rt *Runtime, step string) error {
	if isAttributesStep(step) {
		if field := rt.Payload.prepareAttributes(rt.Payload.Flow); field == nil {
			if names, ok := intakeStepsByFlow[rt.Payload.Flow]; ok {
				step = names.photo
			}
		}
	}

	rt.Step = step
	if err := e.saveState(ctx, rt); err != nil {
		return err
	}
	observability.IncStepTransition(step)

	target, ok := e.steps[step]
	if !ok {
		return fmt.Errorf("unknown step %q", step)
	}
	return target.Enter(ctx, c, rt)
}

func (e *Engine) stepBack(ctx context.Context, c *Ctx, rt *Runtime) error {
	flow := stepFlow[rt.Step]
	if flow == flowMy {
		switch rt.Step {
		case stepMyList:
			if err := e.clearState(ctx, rt.User.ID); err != nil {
				return err
			}
			return e.sendMainMenu(ctx, c, "Вернулись в меню.")
		case stepMyEditMenu:
			return e.transitionTo(ctx, c, rt, stepMyList)
		default:
			return e.transitionTo(ctx, c, rt, stepMyEditMenu)
		}
	}
	prev := previousStep(flow, rt.Step)
	if prev == stepLostSecrets {
		// The lost secrets step advances on its own, back skips over it.
		prev = stepLostLocation
	}
	if prev == "" {
		if err := e.clearState(ctx, rt.User.ID); err != nil {
			return err
		}
		return e.sendMainMenu(ctx, c, "Вернулись в меню.")
	}
	rt.SkipIntro = true
	return e.transitionTo(ctx, c, rt, prev)
}

func (e *Engine) loadRuntime(ctx context.Context, user models.User) (*Runtime, error) {
	session, err := e.sessions.Get(ctx, user.ID)
	if errors.Is(err, repositories.ErrSessionNotFound) {
		return &Runtime{User: user, Step: StepIdle}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	payload := unmarshalPayload(session.Payload)
	if payload == nil && session.Step != StepIdle {
		// Corrupt payload, drop the session rather than crash the flow.
		log.Printf("bot: dropping unreadable session for user %s", user.ID)
		if err := e.sessions.Delete(ctx, user.ID); err != nil {
			return nil, err
		}
		return &Runtime{User: user, Step: StepIdle}, nil
	}
	return &Runtime{User: user, Step: session.Step, Payload: payload.Clone()}, nil
}

func (e *Engine) saveState(ctx context.Context, rt *Runtime) error {
	return e.sessions.Save(ctx, models.Session{
		UserID:  rt.User.ID,
		Step:    rt.Step,
		Payload: marshalPayload(rt.Payload),
	})
}

func (e *Engine) clearState(ctx context.Context, userID string) error {
	if err := e.sessions.Delete(ctx, userID); err != nil && !errors.Is(err, repositories.ErrSessionNotFound) {
		return err
	}
	return nil
}

func (e *Engine) sendMainMenu(ctx context.Context, c *Ctx, text string) error {
	return c.Reply(ctx, text, e.mainMenuKeyboard())
}

const (
	failureReplyText = "Произошла ошибка. Попробуйте снова или введите /cancel."
	failureToastText = "Что-то пошло не так, попробуйте позже"
)

// ReportFailure tells the user a handler failed: a toast for callbacks, a
// plain reply for messages. Best effort, the delivery error is only logged.
func (e *Engine) ReportFailure(ctx context.Context, platformID, callbackID string) {
	c := &Ctx{engine: e, platformID: platformID, callbackID: callbackID}
	var err error
	if callbackID != "" {
		err = c.Toast(ctx, failureToastText)
	} else {
		err = c.Reply(ctx, failureReplyText, nil)
	}
	if err != nil {
		log.Printf("bot: report failure to %s: %v", platformID, err)
	}
}
