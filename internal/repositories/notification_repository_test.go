package repositories

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lostfound-bot/internal/models"
)

func strPtr(s string) *string { return &s }

func TestNotificationFromKeyFillsRow(t *testing.T) {
	chatID := "c1"
	listingID := "L1"
	n := notificationFromKey(
		NotificationKey{UserID: "u1", Type: models.NotifyOwnerReview, ChatID: &chatID},
		NotificationPatch{
			Title:     strPtr("Проверка"),
			Body:      strPtr("ответы совпали?"),
			Status:    strPtr(models.NotificationAction),
			Payload:   []byte(`{"x":1}`),
			ListingID: &listingID,
		})

	assert.Equal(t, "u1", n.UserID)
	assert.Equal(t, models.NotifyOwnerReview, n.Type)
	require.NotNil(t, n.ChatID)
	assert.Equal(t, "c1", *n.ChatID)
	assert.Equal(t, "Проверка", n.Title)
	assert.Equal(t, "ответы совпали?", n.Body)
	assert.Equal(t, models.NotificationAction, n.Status)
	require.NotNil(t, n.ListingID)
	assert.Equal(t, "L1", *n.ListingID)
}

func TestNotificationFromKeyEmptyPatch(t *testing.T) {
	n := notificationFromKey(NotificationKey{UserID: "u1", Type: models.NotifyMatchFound}, NotificationPatch{})

	assert.Nil(t, n.ChatID)
	assert.Empty(t, n.Status) // Create defaults it to UNREAD
	assert.Empty(t, n.Title)
}

func TestPatchAssignmentsCarriesLatestValues(t *testing.T) {
	sets, args := patchAssignments(NotificationPatch{
		Body:   strPtr("свежий текст"),
		Status: strPtr(models.NotificationUnread),
	})

	require.Equal(t, []string{"body=$1", "status=$2"}, sets)
	require.Len(t, args, 2)
	assert.Equal(t, "свежий текст", args[0])
	assert.Equal(t, models.NotificationUnread, args[1])
}

func TestPatchAssignmentsEmptyPatch(t *testing.T) {
	sets, args := patchAssignments(NotificationPatch{})
	assert.Empty(t, sets)
	assert.Empty(t, args)
}

func TestMarkReadStatusKeepsArchived(t *testing.T) {
	assert.Equal(t, models.NotificationArchived, markReadStatus(models.NotificationArchived))

	for _, status := range []string{
		models.NotificationAction,
		models.NotificationUnread,
		models.NotificationRead,
		models.NotificationResolved,
	} {
		assert.Equal(t, models.NotificationRead, markReadStatus(status), "status %s", status)
	}
}
