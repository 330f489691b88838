package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"lostfound-bot/internal/models"
)

var ErrSessionNotFound = errors.New("session not found")

// SessionRepository persists per-user conversation state.
type SessionRepository interface {
	Get(ctx context.Context, userID string) (models.Session, error)
	Save(ctx context.Context, session models.Session) error
	Delete(ctx context.Context, userID string) error
}

// SessionRepo is a sqlx implementation of SessionRepository.
type SessionRepo struct {
	db *sqlx.DB
}

// NewSessionRepo constructs a SessionRepo.
func NewSessionRepo(db *sqlx.DB) *SessionRepo {
	return &SessionRepo{db: db}
}

// Get fetches the session for a user.
func (r *SessionRepo) Get(ctx context.Context, userID string) (models.Session, error) {
	var session models.Session
	err := r.db.GetContext(ctx, &session, `SELECT user_id, step, payload, updated_at FROM states WHERE user_id=$1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Session{}, ErrSessionNotFound
	}
	return session, err
}

// Save upserts the session row for the user. Last write wins.
func (r *SessionRepo) Save(ctx context.Context, session models.Session) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO states (user_id, step, payload, updated_at) VALUES ($1, $2, $3, NOW())
        ON CONFLICT (user_id) DO UPDATE SET step = EXCLUDED.step, payload = EXCLUDED.payload, updated_at = NOW()`,
		session.UserID, session.Step, session.Payload)
	return err
}

// Delete drops the session row, resetting the user to idle.
func (r *SessionRepo) Delete(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM states WHERE user_id=$1`, userID)
	return err
}
