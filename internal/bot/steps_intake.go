package bot

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// categoryStep asks which of the seven categories the item belongs to.
type categoryStep struct {
	e    *Engine
	flow string
}

func (s *categoryStep) Enter(ctx context.Context, c *Ctx, rt *Runtime) error {
	copy := flowCopies[s.flow]
	text := copy.Emoji + " " + copy.CategoryPrompt
	if !rt.SkipIntro {
		text = fmt.Sprintf("%s Режим «%s».\n\n%s", copy.Emoji, copy.Label, copy.CategoryPrompt)
	}
	return c.Reply(ctx, text, categoryKeyboard(s.flow))
}

func (s *categoryStep) OnCallback(ctx context.Context, c *Ctx, rt *Runtime, act Action) error {
	if act.Action != "category" {
		return c.Toast(ctx, "Кнопка устарела.")
	}
	option := categoryOption(act.Value)
	if option == nil {
		return c.Toast(ctx, "Неизвестная категория.")
	}
	if err := c.Toast(ctx, option.Title); err != nil {
		return err
	}
	return s.applyCategory(ctx, c, rt, option.ID)
}

func (s *categoryStep) OnMessage(ctx context.Context, c *Ctx, rt *Runtime, msg Message) error {
	if option := matchCategoryText(msg.Lower); option != nil {
		return s.applyCategory(ctx, c, rt, option.ID)
	}
	return c.Reply(ctx, "Выберите категорию кнопкой ниже.", categoryKeyboard(s.flow))
}

func (s *categoryStep) applyCategory(ctx context.Context, c *Ctx, rt *Runtime, categoryID string) error {
	listing := rt.Payload.ensureListing(s.flow)
	if listing.Category != categoryID {
		// Category change invalidates answers tied to the old questionnaire.
		listing.Attributes = map[string]*string{}
		listing.PendingSecrets = nil
		rt.Payload.ensureMeta().CurrentAttributeKey = ""
	}
	listing.Category = categoryID
	steps := intakeStepsByFlow[s.flow]
	return s.e.transitionTo(ctx, c, rt, steps.attributes)
}

func matchCategoryText(lower string) *CategoryOption {
	for i := range categoryOptions {
		if strings.ToLower(categoryOptions[i].Title) == lower {
			return &categoryOptions[i]
		}
	}
	if canonical, ok := categoryAliases[lower]; ok {
		return categoryOption(canonical)
	}
	return nil
}

// attributesStep walks the category questionnaire one field at a time.
type attributesStep struct {
	e    *Engine
	flow string
}

func (s *attributesStep) Enter(ctx context.Context, c *Ctx, rt *Runtime) error {
	field := rt.Payload.prepareAttributes(s.flow)
	if field == nil {
		steps := intakeStepsByFlow[s.flow]
		return s.e.transitionTo(ctx, c, rt, steps.photo)
	}

	lines := []string{attributeStepLabel, "", field.questionFor(s.flow)}
	if hint := field.hintLine(); hint != "" {
		lines = append(lines, hint)
	}
	if !field.Required {
		lines = append(lines, "Можно пропустить: /skip")
	}
	return c.Reply(ctx, strings.Join(lines, "\n"), nil)
}

func (s *attributesStep) OnMessage(ctx context.Context, c *Ctx, rt *Runtime, msg Message) error {
	listing := rt.Payload.ensureListing(s.flow)
	field := rt.Payload.prepareAttributes(s.flow)
	if field == nil {
		steps := intakeStepsByFlow[s.flow]
		return s.e.transitionTo(ctx, c, rt, steps.photo)
	}

	if isSkipCommand(msg.Lower) {
		if field.Required {
			return c.Reply(ctx, "Этот вопрос обязательный: "+field.questionFor(s.flow), nil)
		}
		listing.Attributes[field.Key] = nil
	} else {
		answer := strings.TrimSpace(msg.Text)
		if answer == "" {
			return c.Reply(ctx, field.questionFor(s.flow), nil)
		}
		listing.Attributes[field.Key] = &answer
		if field.StoreSecretHint {
			listing.PendingSecrets = append(listing.PendingSecrets, SecretHint{Key: field.Key, Value: answer})
		}
	}
	rt.Payload.ensureMeta().CurrentAttributeKey = ""

	steps := intakeStepsByFlow[s.flow]
	return s.e.transitionTo(ctx, c, rt, steps.attributes)
}

// photoStep collects up to three photos. Risky categories must confirm the
// safety notice before uploads are accepted.
type photoStep struct {
	e    *Engine
	flow string
}

func (s *photoStep) Enter(ctx context.Context, c *Ctx, rt *Runtime) error {
	listing := rt.Payload.ensureListing(s.flow)
	meta := rt.Payload.ensureMeta()

	if photoAckRequired(s.flow, listing.Category) && !meta.PhotoAcknowledged {
		parts := buildPhotoAcknowledgementCopy(s.flow, listing.Category)
		parts = append(parts, "Подтвердите, что ознакомились, и пришлите фото.")
		return c.Reply(ctx, strings.Join(parts, "\n\n"), photoAckKeyboard(s.flow))
	}
	return c.Reply(ctx, s.prompt(len(listing.Photos)), nil)
}

func (s *photoStep) prompt(have int) string {
	if have > 0 {
		return fmt.Sprintf("Фото сохранено (%d/3). Пришлите ещё или /skip, чтобы продолжить.", have)
	}
	return "Пришлите до 3 фото предмета. Если фото нет, напишите /skip."
}

func (s *photoStep) OnCallback(ctx context.Context, c *Ctx, rt *Runtime, act Action) error {
	if act.Action != "photo_ack" {
		return c.Toast(ctx, "Кнопка устарела.")
	}
	rt.Payload.ensureMeta().PhotoAcknowledged = true
	if err := s.e.saveState(ctx, rt); err != nil {
		return err
	}
	if err := c.Toast(ctx, ""); err != nil {
		return err
	}
	return c.Reply(ctx, s.prompt(0), nil)
}

func (s *photoStep) OnMessage(ctx context.Context, c *Ctx, rt *Runtime, msg Message) error {
	listing := rt.Payload.ensureListing(s.flow)
	meta := rt.Payload.ensureMeta()
	steps := intakeStepsByFlow[s.flow]

	if photoAckRequired(s.flow, listing.Category) && !meta.PhotoAcknowledged {
		return s.Enter(ctx, c, rt)
	}

	if isSkipCommand(msg.Lower) || msg.Lower == "готово" {
		return s.e.transitionTo(ctx, c, rt, steps.location)
	}

	if len(msg.Photos) == 0 {
		return c.Reply(ctx, "Жду фото вложением или /skip.", nil)
	}

	added := appendPhotoAttachments(listing, msg.Photos)
	if err := s.e.saveState(ctx, rt); err != nil {
		return err
	}
	if added == 0 {
		return c.Reply(ctx, "Больше трёх фото сохранить нельзя. Напишите /skip, чтобы продолжить.", nil)
	}
	if len(listing.Photos) >= 3 {
		return s.e.transitionTo(ctx, c, rt, steps.location)
	}
	return c.Reply(ctx, s.prompt(len(listing.Photos)), nil)
}

// appendPhotoAttachments adds new photos up to the cap, deduplicating by id.
func appendPhotoAttachments(listing *Draft, photos []PhotoAttachment) int {
	seen := map[string]bool{}
	for _, p := range listing.Photos {
		seen[p.ID] = true
	}
	added := 0
	for _, p := range photos {
		if len(listing.Photos) >= 3 {
			break
		}
		if p.ID != "" && seen[p.ID] {
			continue
		}
		listing.Photos = append(listing.Photos, p)
		seen[p.ID] = true
		added++
	}
	return added
}

// locationStep runs the where/when sub-dialog: mode, optional transit route,
// the place itself, then the time.
type locationStep struct {
	e    *Engine
	flow string
}

func (s *locationStep) Enter(ctx context.Context, c *Ctx, rt *Runtime) error {
	meta := rt.Payload.ensureMeta()
	if meta.LocationMode == "" {
		copy := flowCopies[s.flow]
		return c.Reply(ctx, copy.LocationPrompt+"\n\nНасколько точно вы знаете место?", locationModeKeyboard(s.flow))
	}
	return s.promptStage(ctx, c, rt)
}

func (s *locationStep) promptStage(ctx context.Context, c *Ctx, rt *Runtime) error {
	switch rt.Payload.ensureMeta().LocationStage {
	case locationStageTransit:
		return c.Reply(ctx, "Опишите маршрут: номер автобуса/поезда, станции между которыми ехали.", nil)
	case locationStageTime:
		return c.Reply(ctx, "Когда это произошло? Например: «сегодня 14:30», «вчера», «12.05 18:00» или /skip.", nil)
	default:
		return c.Reply(ctx, "Напишите адрес или ориентир, можно прикрепить геопозицию.", nil)
	}
}

func (s *locationStep) OnCallback(ctx context.Context, c *Ctx, rt *Runtime, act Action) error {
	if act.Action != "location_mode" {
		return c.Toast(ctx, "Кнопка устарела.")
	}
	meta := rt.Payload.ensureMeta()
	switch act.Value {
	case locationModeExact, locationModeApprox, locationModeTransit:
		meta.LocationMode = act.Value
	default:
		return c.Toast(ctx, "Кнопка устарела.")
	}
	rt.Payload.ensureListing(s.flow).LocationMode = act.Value
	meta.LocationStage = locationStageDetails
	if act.Value == locationModeTransit {
		meta.LocationStage = locationStageTransit
	}
	if err := s.e.saveState(ctx, rt); err != nil {
		return err
	}
	if err := c.Toast(ctx, describeLocationMode(act.Value)); err != nil {
		return err
	}
	return s.promptStage(ctx, c, rt)
}

func (s *locationStep) OnMessage(ctx context.Context, c *Ctx, rt *Runtime, msg Message) error {
	listing := rt.Payload.ensureListing(s.flow)
	meta := rt.Payload.ensureMeta()
	steps := intakeStepsByFlow[s.flow]

	if meta.LocationMode == "" {
		return s.Enter(ctx, c, rt)
	}

	switch meta.LocationStage {
	case locationStageTransit:
		route := strings.TrimSpace(msg.Text)
		if route == "" {
			return s.promptStage(ctx, c, rt)
		}
		listing.Transit = route
		meta.LocationStage = locationStageDetails
		if err := s.e.saveState(ctx, rt); err != nil {
			return err
		}
		return s.promptStage(ctx, c, rt)

	case locationStageTime:
		if !isSkipCommand(msg.Lower) {
			occurred, ok := parseDateTimeInput(msg.Text, time.Now())
			if !ok {
				return c.Reply(ctx, "Не понял дату. Примеры: «сейчас», «вчера 18:00», «12.05 14:00».", nil)
			}
			listing.OccurredAt = occurred
		}
		meta.LocationStage = locationStageComplete
		return s.e.transitionTo(ctx, c, rt, steps.secrets)

	default: // details
		handled := false
		if msg.Location != nil {
			original := *msg.Location
			listing.LocationOriginal = &original
			generalized := generalizeLocation(original, s.flow, meta.LocationMode)
			listing.Location = &generalized
			handled = true
		}
		if note := strings.TrimSpace(msg.Text); note != "" && !isSkipCommand(msg.Lower) {
			listing.LocationNote = note
			handled = true
		}
		if !handled && !isSkipCommand(msg.Lower) {
			return s.promptStage(ctx, c, rt)
		}
		meta.LocationStage = locationStageTime
		if err := s.e.saveState(ctx, rt); err != nil {
			return err
		}
		return s.promptStage(ctx, c, rt)
	}
}

// secretsStep collects the verification question/answer pairs.
type secretsStep struct {
	e    *Engine
	flow string
}

func (s *secretsStep) Enter(ctx context.Context, c *Ctx, rt *Runtime) error {
	listing := rt.Payload.ensureListing(s.flow)

	// Lost reports carry no claimant-facing questions. Hint answers from
	// the questionnaire still become encrypted secrets, typed entries are
	// dropped and the step advances on its own.
	if s.flow == flowLost {
		listing.SecretEntries = pendingToSecrets(listing)
		return s.e.transitionTo(ctx, c, rt, intakeStepsByFlow[s.flow].confirm)
	}

	copy := flowCopies[s.flow]
	lines := []string{copy.SecretsPrompt, secretsFormatHint(s.flow)}

	if len(listing.PendingSecrets) > 0 {
		hints := make([]string, 0, len(listing.PendingSecrets))
		for _, hint := range listing.PendingSecrets {
			hints = append(hints, "• "+hint.Value)
		}
		lines = append(lines, "Из ответов уже отложено:\n"+strings.Join(hints, "\n"))
	}
	return c.Reply(ctx, strings.Join(lines, "\n\n"), nil)
}

func (s *secretsStep) OnMessage(ctx context.Context, c *Ctx, rt *Runtime, msg Message) error {
	listing := rt.Payload.ensureListing(s.flow)
	steps := intakeStepsByFlow[s.flow]

	if isSkipCommand(msg.Lower) {
		listing.SecretEntries = pendingToSecrets(listing)
		return s.e.transitionTo(ctx, c, rt, steps.confirm)
	}

	pairs, problems := parseSecretEntries(msg.Text, s.flow)
	if len(problems) > 0 && len(pairs) == 0 {
		return c.Reply(ctx, strings.Join(problems, "\n")+"\n\n"+secretsFormatHint(s.flow), nil)
	}

	listing.SecretEntries = append(pendingToSecrets(listing), pairs...)
	if len(listing.SecretEntries) > maxSecretEntries {
		listing.SecretEntries = listing.SecretEntries[:maxSecretEntries]
	}

	if len(problems) > 0 {
		if err := c.Reply(ctx, strings.Join(problems, "\n"), nil); err != nil {
			return err
		}
	}
	return s.e.transitionTo(ctx, c, rt, steps.confirm)
}

// confirmStep shows the draft and publishes it. The found flow additionally
// gates publication behind the legal notice.
type confirmStep struct {
	e    *Engine
	flow string
}

func (s *confirmStep) Enter(ctx context.Context, c *Ctx, rt *Runtime) error {
	listing := rt.Payload.ensureListing(s.flow)
	meta := rt.Payload.ensureMeta()

	if s.flow == flowFound && !meta.LegalAccepted {
		parts := []string{legalFoundGeneral, legalFoundSixMonths}
		if listing.Category == "pet" {
			parts = append(parts, legalFoundPet)
		}
		return c.Reply(ctx, strings.Join(parts, "\n\n"), legalAckKeyboard(s.flow))
	}

	copy := flowCopies[s.flow]
	text := copy.ConfirmPrompt + "\n\n" + buildDraftSummary(s.flow, listing)
	return c.Reply(ctx, text, confirmKeyboard(s.flow))
}

func (s *confirmStep) OnCallback(ctx context.Context, c *Ctx, rt *Runtime, act Action) error {
	if act.Action != "confirm" {
		return c.Toast(ctx, "Кнопка устарела.")
	}
	switch act.Value {
	case "legal_ack":
		rt.Payload.ensureMeta().LegalAccepted = true
		if err := s.e.saveState(ctx, rt); err != nil {
			return err
		}
		if err := c.Toast(ctx, ""); err != nil {
			return err
		}
		return s.Enter(ctx, c, rt)
	case "edit":
		listing := rt.Payload.ensureListing(s.flow)
		listing.Attributes = map[string]*string{}
		listing.PendingSecrets = nil
		rt.Payload.ensureMeta().CurrentAttributeKey = ""
		steps := intakeStepsByFlow[s.flow]
		if err := c.Toast(ctx, ""); err != nil {
			return err
		}
		return s.e.transitionTo(ctx, c, rt, steps.attributes)
	case "publish":
		return s.e.publishDraft(ctx, c, rt, s.flow)
	}
	return c.Toast(ctx, "Кнопка устарела.")
}

func (s *confirmStep) OnMessage(ctx context.Context, c *Ctx, rt *Runtime, msg Message) error {
	return s.Enter(ctx, c, rt)
}
