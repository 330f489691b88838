package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"lostfound-bot/internal/models"
)

var ErrChatNotFound = errors.New("chat not found")

// OwnerCheckKey identifies the unique owner-verification chat for a pair of
// listings.
type OwnerCheckKey struct {
	LostListingID  string
	FoundListingID string
	InitiatorID    string
	HolderID       string
	ClaimantID     string
}

// ChatRepository abstracts chat persistence.
type ChatRepository interface {
	GetOrCreateOwnerCheck(ctx context.Context, key OwnerCheckKey) (models.Chat, error)
	GetChat(ctx context.Context, chatID string) (models.Chat, error)
	Members(ctx context.Context, chatID string) ([]models.ChatMember, error)
	UpdateStatus(ctx context.Context, chatID string, status string) error
	AppendMessage(ctx context.Context, chatID string, senderID string, body string, meta []byte) (string, error)
	AppendSystemMessage(ctx context.Context, chatID string, body string, meta []byte) (string, error)
	Messages(ctx context.Context, chatID string) ([]models.ChatMessage, error)
	ActiveChatsForClaimant(ctx context.Context, claimantID string) ([]models.Chat, error)
}

// ChatRepo is a sqlx implementation of ChatRepository.
type ChatRepo struct {
	db *sqlx.DB
}

// NewChatRepo constructs a ChatRepo.
func NewChatRepo(db *sqlx.DB) *ChatRepo {
	return &ChatRepo{db: db}
}

// GetOrCreateOwnerCheck returns the non-terminal OWNER_CHECK chat for the
// listing pair, creating it in PENDING when none exists. Membership rows for
// claimant and holder are ensured either way.
func (r *ChatRepo) GetOrCreateOwnerCheck(ctx context.Context, key OwnerCheckKey) (models.Chat, error) {
	var chat models.Chat
	err := r.db.GetContext(ctx, &chat, `SELECT * FROM chats
        WHERE lost_listing_id=$1 AND found_listing_id=$2 AND type='OWNER_CHECK' AND status IN ('PENDING','ACTIVE')
        ORDER BY created_at DESC LIMIT 1`,
		key.LostListingID, key.FoundListingID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return models.Chat{}, err
	}

	if errors.Is(err, sql.ErrNoRows) {
		chat = models.Chat{
			ID:             uuid.NewString(),
			LostListingID:  &key.LostListingID,
			FoundListingID: &key.FoundListingID,
			InitiatorID:    key.InitiatorID,
			HolderID:       key.HolderID,
			ClaimantID:     key.ClaimantID,
			Type:           models.ChatOwnerCheck,
			Status:         models.ChatPending,
		}
		err = r.db.QueryRowxContext(ctx, `INSERT INTO chats (id, lost_listing_id, found_listing_id, initiator_id, holder_id, claimant_id, type, status)
            VALUES ($1,$2,$3,$4,$5,$6,'OWNER_CHECK','PENDING') RETURNING created_at, updated_at`,
			chat.ID, chat.LostListingID, chat.FoundListingID, chat.InitiatorID, chat.HolderID, chat.ClaimantID).
			Scan(&chat.CreatedAt, &chat.UpdatedAt)
		if err != nil {
			return models.Chat{}, err
		}
	}

	if err := r.ensureMember(ctx, chat.ID, key.ClaimantID, models.RoleClaimant); err != nil {
		return models.Chat{}, err
	}
	if err := r.ensureMember(ctx, chat.ID, key.HolderID, models.RoleHolder); err != nil {
		return models.Chat{}, err
	}
	return chat, nil
}

func (r *ChatRepo) ensureMember(ctx context.Context, chatID, userID, role string) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO chat_members (chat_id, user_id, role) VALUES ($1,$2,$3)
        ON CONFLICT (chat_id, user_id) DO UPDATE SET role = EXCLUDED.role`, chatID, userID, role)
	return err
}

// GetChat fetches a chat by id.
func (r *ChatRepo) GetChat(ctx context.Context, chatID string) (models.Chat, error) {
	var chat models.Chat
	err := r.db.GetContext(ctx, &chat, `SELECT * FROM chats WHERE id=$1`, chatID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Chat{}, ErrChatNotFound
	}
	return chat, err
}

// Members returns the chat membership rows.
func (r *ChatRepo) Members(ctx context.Context, chatID string) ([]models.ChatMember, error) {
	var members []models.ChatMember
	err := r.db.SelectContext(ctx, &members, `SELECT * FROM chat_members WHERE chat_id=$1`, chatID)
	return members, err
}

// UpdateStatus moves the chat to a new status.
func (r *ChatRepo) UpdateStatus(ctx context.Context, chatID string, status string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE chats SET status=$1, updated_at=NOW() WHERE id=$2`, status, chatID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrChatNotFound
	}
	return nil
}

// AppendMessage appends a transcript entry and bumps last_message_at.
func (r *ChatRepo) AppendMessage(ctx context.Context, chatID string, senderID string, body string, meta []byte) (string, error) {
	return r.append(ctx, chatID, &senderID, body, meta)
}

// AppendSystemMessage appends a transcript entry with no sender.
func (r *ChatRepo) AppendSystemMessage(ctx context.Context, chatID string, body string, meta []byte) (string, error) {
	return r.append(ctx, chatID, nil, body, meta)
}

func (r *ChatRepo) append(ctx context.Context, chatID string, senderID *string, body string, meta []byte) (string, error) {
	if len(meta) == 0 {
		meta = []byte("{}")
	}
	id := uuid.NewString()
	if _, err := r.db.ExecContext(ctx, `INSERT INTO chat_messages (id, chat_id, sender_id, body, meta) VALUES ($1,$2,$3,$4,$5)`,
		id, chatID, senderID, body, meta); err != nil {
		return "", err
	}
	if _, err := r.db.ExecContext(ctx, `UPDATE chats SET last_message_at=NOW() WHERE id=$1`, chatID); err != nil {
		return "", err
	}
	return id, nil
}

// Messages returns the chat transcript oldest first.
func (r *ChatRepo) Messages(ctx context.Context, chatID string) ([]models.ChatMessage, error) {
	var messages []models.ChatMessage
	err := r.db.SelectContext(ctx, &messages, `SELECT * FROM chat_messages WHERE chat_id=$1 ORDER BY created_at ASC`, chatID)
	return messages, err
}

// ActiveChatsForClaimant returns ACTIVE owner-check chats where the user is
// the claimant. Used when a shared contact finalizes pending exchanges.
func (r *ChatRepo) ActiveChatsForClaimant(ctx context.Context, claimantID string) ([]models.Chat, error) {
	var chats []models.Chat
	err := r.db.SelectContext(ctx, &chats, `SELECT * FROM chats
        WHERE claimant_id=$1 AND type='OWNER_CHECK' AND status='ACTIVE'
        ORDER BY updated_at DESC`, claimantID)
	return chats, err
}
