package bot

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"strings"

	"lostfound-bot/internal/events"
	"lostfound-bot/internal/matching"
	"lostfound-bot/internal/models"
	"lostfound-bot/internal/push"
	"lostfound-bot/internal/repositories"
)

const (
	matchRadiusKm     = 5.0
	matchCandidateCap = 20
	matchMinScore     = 50
	matchTopN         = 3
)

const foundPrivacyNote = "📍 Точное место хранения скрыто. Владелец получит его после проверки."

// matchSuggestion is one scored counterpart listing.
type matchSuggestion struct {
	ID      string
	Score   int
	Listing models.Listing
}

func buildDraftSummary(flow string, listing *Draft) string {
	copy := flowCopies[flow]
	lines := []string{copy.Emoji + " " + copy.SummaryTitle, ""}
	lines = append(lines, "Категория: "+describeCategory(listing.Category))
	lines = append(lines, buildAttributeLines(listing)...)

	if listing.Transit != "" {
		lines = append(lines, "Маршрут: "+listing.Transit)
	}
	if listing.LocationNote != "" {
		lines = append(lines, "Место: "+listing.LocationNote)
	}
	if listing.Location != nil {
		lines = append(lines, fmt.Sprintf("Координаты: %s, %s (%s)",
			formatCoordinate(listing.Location.Latitude),
			formatCoordinate(listing.Location.Longitude),
			describeLocationMode(listing.LocationMode)))
	}
	lines = append(lines, "Когда: "+formatDisplayDate(listing.OccurredAt))
	lines = append(lines, fmt.Sprintf("Фото: %d", len(listing.Photos)))
	lines = append(lines, buildSecretsSummary(listing.SecretEntries, flowCopies[flow].SecretsLabel))
	return strings.Join(lines, "\n")
}

// buildListingTitle derives the public title from the first answered
// attribute, falling back to the category name.
func buildListingTitle(flow string, listing *Draft) string {
	prefix := "Найдено: "
	if flow == flowLost {
		prefix = "Потеряно: "
	}
	for _, field := range categoryFields(listing.Category) {
		if field.StoreSecretHint {
			continue
		}
		if value, ok := listing.Attributes[field.Key]; ok && value != nil && strings.TrimSpace(*value) != "" {
			return truncateText(prefix+strings.TrimSpace(*value), 120)
		}
	}
	return prefix + categoryTitle(listing.Category)
}

func buildListingDescription(flow string, listing *Draft) string {
	lines := buildAttributeLines(listing)
	if listing.Transit != "" {
		lines = append(lines, "Маршрут: "+listing.Transit)
	}
	if listing.LocationNote != "" {
		lines = append(lines, "Место: "+listing.LocationNote)
	}
	if flow == flowFound {
		lines = append(lines, "", foundPrivacyNote)
	}
	return strings.Join(lines, "\n")
}

// publishDraft persists the draft as a listing, clears the wizard state and
// fans out the publish and match notifications.
func (e *Engine) publishDraft(ctx context.Context, c *Ctx, rt *Runtime, flow string) error {
	listing := rt.Payload.ensureListing(flow)

	ciphers := make([]string, 0, len(listing.SecretEntries))
	for _, pair := range listing.SecretEntries {
		cipher, err := e.vault.EncryptPair(pair)
		if err != nil {
			return fmt.Errorf("encrypt secret: %w", err)
		}
		ciphers = append(ciphers, cipher)
	}

	in := repositories.NewListing{
		AuthorID:    rt.User.ID,
		Type:        listing.Type,
		Category:    normalizeCategory(listing.Category),
		Title:       buildListingTitle(flow, listing),
		Description: buildListingDescription(flow, listing),
		OccurredAt:  listing.OccurredAt,
		Ciphers:     ciphers,
	}
	if listing.Location != nil {
		lat, lng := listing.Location.Latitude, listing.Location.Longitude
		in.Lat, in.Lng = &lat, &lng
		if listing.Location.Precision != "" {
			precision := listing.Location.Precision
			in.District = &precision
		}
	}
	for _, photo := range listing.Photos {
		if photo.URL != "" {
			in.PhotoURLs = append(in.PhotoURLs, photo.URL)
		}
	}

	created, err := e.listings.Create(ctx, in)
	if err != nil {
		return fmt.Errorf("create listing: %w", err)
	}
	if err := e.clearState(ctx, rt.User.ID); err != nil {
		return err
	}
	if err := c.Toast(ctx, "Опубликовано"); err != nil {
		log.Printf("bot: answer callback: %v", err)
	}

	e.notifier.Publish(ctx, events.KeyListingPublished, map[string]any{
		"listing_id": created.ID,
		"author_id":  created.AuthorID,
		"type":       created.Type,
		"category":   created.Category,
	})

	if _, err := e.notifier.Create(ctx, models.Notification{
		UserID:    rt.User.ID,
		ListingID: &created.ID,
		Type:      models.NotifyListingPublished,
		Title:     "✅ Объявление опубликовано",
		Body:      created.Title,
		Status:    models.NotificationUnread,
	}, listingLinkKeyboard(created.ID)); err != nil {
		log.Printf("bot: publish notification: %v", err)
	}

	matches, err := e.discoverMatches(ctx, created)
	if err != nil {
		log.Printf("bot: match discovery for %s: %v", created.ID, err)
	}
	if len(matches) == 0 {
		return c.Reply(ctx, "✅ Готово! Объявление опубликовано. Сообщим, как только появятся совпадения.", e.mainMenuKeyboard())
	}

	e.notifyMatchCounterparts(ctx, created, matches)

	text := fmt.Sprintf("✅ Готово! Объявление опубликовано.\n\nУже нашлось похожее (%d):", len(matches))
	for i, match := range matches {
		text += fmt.Sprintf("\n%d. %s — %d%%", i+1, formatListingTitle(match.Listing.Title), match.Score)
	}
	return c.Reply(ctx, text, matchesKeyboard(flow, matches, created.ID))
}

// discoverMatches scores nearby counterpart listings and persists the
// strong ones.
func (e *Engine) discoverMatches(ctx context.Context, listing models.Listing) ([]matchSuggestion, error) {
	candidates, err := e.listings.FindCandidates(ctx, listing, matchRadiusKm, matchCandidateCap)
	if err != nil {
		return nil, err
	}

	var matches []matchSuggestion
	for _, candidate := range candidates {
		lost, found := listing, candidate
		if listing.Type == models.ListingFound {
			lost, found = candidate, listing
		}
		score := matching.Score(lost, found)
		if score < matchMinScore {
			continue
		}
		matches = append(matches, matchSuggestion{ID: candidate.ID, Score: score, Listing: candidate})
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if len(matches) > matchTopN {
		matches = matches[:matchTopN]
	}

	for _, match := range matches {
		lostID, foundID := listing.ID, match.ID
		if listing.Type == models.ListingFound {
			lostID, foundID = match.ID, listing.ID
		}
		if err := e.listings.SaveMatch(ctx, lostID, foundID, match.Score); err != nil {
			log.Printf("bot: save match %s/%s: %v", lostID, foundID, err)
		}
		e.notifier.Publish(ctx, events.KeyMatchFound, map[string]any{
			"lost_id":  lostID,
			"found_id": foundID,
			"score":    match.Score,
		})
	}
	return matches, nil
}

func (e *Engine) notifyMatchCounterparts(ctx context.Context, created models.Listing, matches []matchSuggestion) {
	for _, match := range matches {
		counterpartFlow := flowLost
		if match.Listing.Type == models.ListingFound {
			counterpartFlow = flowFound
		}
		kb := matchesKeyboard(counterpartFlow, []matchSuggestion{{ID: created.ID, Score: match.Score, Listing: created}}, match.ID)
		kb.Rows = append(kb.Rows, listingLinkKeyboard(created.ID).Rows...)

		if _, err := e.notifier.Create(ctx, models.Notification{
			UserID:    match.Listing.AuthorID,
			ListingID: &match.ID,
			Type:      models.NotifyMatchFound,
			Title:     "🔎 Возможное совпадение",
			Body:      fmt.Sprintf("«%s» похоже на ваше объявление на %d%%.", formatListingTitle(created.Title), match.Score),
			Payload:   matchNotificationPayload(created.ID, match.ID),
			Status:    models.NotificationAction,
		}, kb); err != nil {
			log.Printf("bot: match notification: %v", err)
		}
	}
}

func listingLinkKeyboard(listingID string) *push.Keyboard {
	return &push.Keyboard{Rows: [][]push.Button{
		push.Row(callbackButton("👀 Показать объявление", flowMenu, "show_listing", listingID)),
	}}
}

// formatListingTitle shortens a title for inline use.
func formatListingTitle(title string) string {
	return truncateText(title, 42)
}

type matchPayload struct {
	Target string `json:"target"`
	Origin string `json:"origin"`
}

func matchNotificationPayload(target, origin string) []byte {
	raw, _ := json.Marshal(matchPayload{Target: target, Origin: origin})
	return raw
}

func matchPayloadIDs(raw []byte) (target, origin string, ok bool) {
	if len(raw) == 0 {
		return "", "", false
	}
	var p matchPayload
	if err := json.Unmarshal(raw, &p); err != nil || p.Target == "" || p.Origin == "" {
		return "", "", false
	}
	return p.Target, p.Origin, true
}
