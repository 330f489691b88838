package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"lostfound-bot/internal/models"
)

var ErrNotificationNotFound = errors.New("notification not found")

// NotificationKey identifies the logical notification an upsert patches:
// one per (user, type, chat), nil chat matching only rows with no chat.
type NotificationKey struct {
	UserID string
	Type   string
	ChatID *string
}

// NotificationPatch updates only the fields whose pointers are set.
type NotificationPatch struct {
	Title     *string
	Body      *string
	Status    *string
	Payload   []byte
	ListingID *string
}

// NotificationRepository abstracts notification persistence.
type NotificationRepository interface {
	Create(ctx context.Context, n models.Notification) (string, error)
	Upsert(ctx context.Context, key NotificationKey, patch NotificationPatch) (string, error)
	Update(ctx context.Context, id string, patch NotificationPatch) error
	MarkRead(ctx context.Context, id string) error
	Archive(ctx context.Context, id string) error
	List(ctx context.Context, userID string, limit int, includeArchived bool) ([]models.Notification, error)
	FindByKey(ctx context.Context, key NotificationKey) (models.Notification, error)
}

// NotificationRepo is a sqlx implementation of NotificationRepository.
type NotificationRepo struct {
	db *sqlx.DB
}

// NewNotificationRepo constructs a NotificationRepo.
func NewNotificationRepo(db *sqlx.DB) *NotificationRepo {
	return &NotificationRepo{db: db}
}

// Create inserts a notification row and returns its id.
func (r *NotificationRepo) Create(ctx context.Context, n models.Notification) (string, error) {
	if n.UserID == "" || n.Type == "" {
		return "", errors.New("user id and type are required")
	}
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.Status == "" {
		n.Status = models.NotificationUnread
	}
	if len(n.Payload) == 0 {
		n.Payload = []byte("{}")
	}
	_, err := r.db.ExecContext(ctx, `INSERT INTO notifications (id, user_id, chat_id, listing_id, type, title, body, payload, status)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		n.ID, n.UserID, n.ChatID, n.ListingID, n.Type, n.Title, n.Body, n.Payload, n.Status)
	return n.ID, err
}

// Upsert patches the newest notification matching the key, inserting a fresh
// row when none exists. This is what keeps repeated protocol events from
// piling up duplicate feed entries.
func (r *NotificationRepo) Upsert(ctx context.Context, key NotificationKey, patch NotificationPatch) (string, error) {
	if key.UserID == "" || key.Type == "" {
		return "", errors.New("user id and type are required")
	}

	existing, err := r.FindByKey(ctx, key)
	if errors.Is(err, ErrNotificationNotFound) {
		return r.Create(ctx, notificationFromKey(key, patch))
	}
	if err != nil {
		return "", err
	}

	return existing.ID, r.Update(ctx, existing.ID, patch)
}

// notificationFromKey builds the row an upsert inserts when the key matches
// nothing yet.
func notificationFromKey(key NotificationKey, patch NotificationPatch) models.Notification {
	n := models.Notification{
		UserID:    key.UserID,
		ChatID:    key.ChatID,
		Type:      key.Type,
		Payload:   patch.Payload,
		ListingID: patch.ListingID,
	}
	if patch.Title != nil {
		n.Title = *patch.Title
	}
	if patch.Body != nil {
		n.Body = *patch.Body
	}
	if patch.Status != nil {
		n.Status = *patch.Status
	}
	return n
}

// FindByKey returns the newest notification for (user, type, chat). A nil
// chat id matches only rows with no chat.
func (r *NotificationRepo) FindByKey(ctx context.Context, key NotificationKey) (models.Notification, error) {
	var n models.Notification
	var err error
	if key.ChatID != nil {
		err = r.db.GetContext(ctx, &n, `SELECT * FROM notifications
            WHERE user_id=$1 AND type=$2 AND chat_id=$3 ORDER BY created_at DESC LIMIT 1`,
			key.UserID, key.Type, *key.ChatID)
	} else {
		err = r.db.GetContext(ctx, &n, `SELECT * FROM notifications
            WHERE user_id=$1 AND type=$2 AND chat_id IS NULL ORDER BY created_at DESC LIMIT 1`,
			key.UserID, key.Type)
	}
	if errors.Is(err, sql.ErrNoRows) {
		return models.Notification{}, ErrNotificationNotFound
	}
	return n, err
}

// patchAssignments renders the SET clauses an update applies: only the
// fields the patch carries, so a repeated upsert leaves the row with the
// latest values and touches nothing else.
func patchAssignments(patch NotificationPatch) ([]string, []any) {
	sets := []string{}
	args := []any{}
	add := func(column string, value any) {
		sets = append(sets, fmt.Sprintf("%s=$%d", column, len(args)+1))
		args = append(args, value)
	}
	if patch.Title != nil {
		add("title", *patch.Title)
	}
	if patch.Body != nil {
		add("body", *patch.Body)
	}
	if patch.Status != nil {
		add("status", *patch.Status)
	}
	if patch.Payload != nil {
		add("payload", patch.Payload)
	}
	if patch.ListingID != nil {
		add("listing_id", *patch.ListingID)
	}
	return sets, args
}

// Update patches the set fields and bumps updated_at.
func (r *NotificationRepo) Update(ctx context.Context, id string, patch NotificationPatch) error {
	sets, args := patchAssignments(patch)
	if len(sets) == 0 {
		return nil
	}

	query := "UPDATE notifications SET "
	for i, s := range sets {
		if i > 0 {
			query += ", "
		}
		query += s
	}
	query += fmt.Sprintf(", updated_at=NOW() WHERE id=$%d", len(args)+1)
	args = append(args, id)

	_, err := r.db.ExecContext(ctx, query, args...)
	return err
}

// markReadStatus is the status a mark-read leaves behind. Archived rows keep
// their status, nothing resurrects them into the feed.
func markReadStatus(current string) string {
	if current == models.NotificationArchived {
		return current
	}
	return models.NotificationRead
}

// MarkRead stamps read_at and applies markReadStatus. A missing row is a
// no-op, feed entries may get archived concurrently.
func (r *NotificationRepo) MarkRead(ctx context.Context, id string) error {
	var current string
	err := r.db.GetContext(ctx, &current, `SELECT status FROM notifications WHERE id=$1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `UPDATE notifications
        SET status=$2, read_at=NOW(), updated_at=NOW() WHERE id=$1`,
		id, markReadStatus(current))
	return err
}

// Archive moves the row to ARCHIVED.
func (r *NotificationRepo) Archive(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE notifications SET status='ARCHIVED', updated_at=NOW() WHERE id=$1`, id)
	return err
}

// List returns the user's feed: actionable first, then unread, read,
// resolved, archived, newest first within each group.
func (r *NotificationRepo) List(ctx context.Context, userID string, limit int, includeArchived bool) ([]models.Notification, error) {
	if limit <= 0 {
		limit = 10
	}
	query := `SELECT * FROM notifications WHERE user_id=$1`
	if !includeArchived {
		query += ` AND status <> 'ARCHIVED'`
	}
	query += ` ORDER BY
        CASE status
            WHEN 'ACTION' THEN 0
            WHEN 'UNREAD' THEN 1
            WHEN 'READ' THEN 2
            WHEN 'RESOLVED' THEN 3
            ELSE 4
        END,
        created_at DESC
        LIMIT $2`

	var list []models.Notification
	err := r.db.SelectContext(ctx, &list, query, userID, limit)
	return list, err
}
