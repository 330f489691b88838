package repositories

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"lostfound-bot/internal/models"
)

var ErrUserNotFound = errors.New("user not found")

// UserRepository abstracts user persistence. Users are keyed by the id the
// messenger platform assigns.
type UserRepository interface {
	EnsureUser(ctx context.Context, platformID string, phone string) (models.User, error)
	UpdatePhone(ctx context.Context, userID string, phone string) error
	GetByID(ctx context.Context, userID string) (models.User, error)
	GetByPlatformID(ctx context.Context, platformID string) (models.User, error)
}

// UserRepo is a sqlx implementation of UserRepository.
type UserRepo struct {
	db *sqlx.DB
}

// NewUserRepo constructs a UserRepo.
func NewUserRepo(db *sqlx.DB) *UserRepo {
	return &UserRepo{db: db}
}

// EnsureUser finds the user by platform id or creates a new row. A non-empty
// phone refreshes the stored one when it differs.
func (r *UserRepo) EnsureUser(ctx context.Context, platformID string, phone string) (models.User, error) {
	if platformID == "" {
		return models.User{}, errors.New("platform id is required")
	}

	var user models.User
	err := r.db.GetContext(ctx, &user, `SELECT id, platform_id, phone, created_at FROM users WHERE platform_id=$1`, platformID)
	if err == nil {
		if phone != "" && (user.Phone == nil || *user.Phone != phone) {
			if err := r.UpdatePhone(ctx, user.ID, phone); err != nil {
				return models.User{}, err
			}
			user.Phone = &phone
		}
		return user, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return models.User{}, err
	}

	user = models.User{ID: uuid.NewString(), PlatformID: platformID}
	if phone != "" {
		user.Phone = &phone
	}
	err = r.db.QueryRowxContext(ctx, `INSERT INTO users (id, platform_id, phone) VALUES ($1, $2, $3) RETURNING created_at`,
		user.ID, user.PlatformID, user.Phone).Scan(&user.CreatedAt)
	return user, err
}

// UpdatePhone normalizes and stores the user's phone. Unparseable values are
// ignored.
func (r *UserRepo) UpdatePhone(ctx context.Context, userID string, phone string) error {
	normalized := NormalizePhone(phone)
	if normalized == "" {
		return nil
	}
	_, err := r.db.ExecContext(ctx, `UPDATE users SET phone=$1 WHERE id=$2`, normalized, userID)
	return err
}

// GetByID fetches a user by internal id.
func (r *UserRepo) GetByID(ctx context.Context, userID string) (models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, `SELECT id, platform_id, phone, created_at FROM users WHERE id=$1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrUserNotFound
	}
	return user, err
}

// GetByPlatformID fetches a user by the messenger id.
func (r *UserRepo) GetByPlatformID(ctx context.Context, platformID string) (models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, `SELECT id, platform_id, phone, created_at FROM users WHERE platform_id=$1`, platformID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrUserNotFound
	}
	return user, err
}

// NormalizePhone canonicalizes Russian numbers to +7XXXXXXXXXX form. Returns
// "" for values it cannot make sense of.
func NormalizePhone(value string) string {
	if value == "" {
		return ""
	}
	var digits strings.Builder
	for _, r := range value {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	d := digits.String()
	switch {
	case len(d) == 11 && (d[0] == '8' || d[0] == '7'):
		return "+7" + d[1:]
	case len(d) == 10:
		return "+7" + d
	case len(d) >= 11:
		return "+" + d
	}
	return ""
}
