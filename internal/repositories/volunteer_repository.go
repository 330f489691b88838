package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"lostfound-bot/internal/models"
)

var ErrAssignmentNotFound = errors.New("volunteer assignment not found")

// VolunteerRepository abstracts volunteer assignment persistence.
type VolunteerRepository interface {
	FindActiveAssignment(ctx context.Context, listingID, volunteerID string) (models.VolunteerAssignment, error)
	SaveAssignment(ctx context.Context, listingID, volunteerID string) (models.VolunteerAssignment, bool, error)
	ListForVolunteer(ctx context.Context, volunteerID string) ([]models.VolunteerAssignment, error)
	MarkNotified(ctx context.Context, assignmentID string, owner, volunteer bool) error
}

// VolunteerRepo is a sqlx implementation of VolunteerRepository.
type VolunteerRepo struct {
	db *sqlx.DB
}

// NewVolunteerRepo constructs a VolunteerRepo.
func NewVolunteerRepo(db *sqlx.DB) *VolunteerRepo {
	return &VolunteerRepo{db: db}
}

// FindActiveAssignment returns the ACTIVE assignment for the pair, if any.
func (r *VolunteerRepo) FindActiveAssignment(ctx context.Context, listingID, volunteerID string) (models.VolunteerAssignment, error) {
	var a models.VolunteerAssignment
	err := r.db.GetContext(ctx, &a, `SELECT * FROM volunteer_assignments
        WHERE listing_id=$1 AND volunteer_id=$2 AND status='ACTIVE'`, listingID, volunteerID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.VolunteerAssignment{}, ErrAssignmentNotFound
	}
	return a, err
}

// SaveAssignment creates the assignment or revives an existing row back to
// ACTIVE. The second return value reports whether a new assignment appeared,
// so accepting twice stays a no-op for notifications.
func (r *VolunteerRepo) SaveAssignment(ctx context.Context, listingID, volunteerID string) (models.VolunteerAssignment, bool, error) {
	existing, err := r.FindActiveAssignment(ctx, listingID, volunteerID)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, ErrAssignmentNotFound) {
		return models.VolunteerAssignment{}, false, err
	}

	a := models.VolunteerAssignment{
		ID:          uuid.NewString(),
		ListingID:   listingID,
		VolunteerID: volunteerID,
		Status:      models.AssignmentActive,
	}
	err = r.db.QueryRowxContext(ctx, `INSERT INTO volunteer_assignments (id, listing_id, volunteer_id, status)
        VALUES ($1,$2,$3,'ACTIVE')
        ON CONFLICT (listing_id, volunteer_id) DO UPDATE SET status='ACTIVE', updated_at=NOW()
        RETURNING id, created_at, updated_at`,
		a.ID, listingID, volunteerID).
		Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return models.VolunteerAssignment{}, false, err
	}
	return a, true, nil
}

// ListForVolunteer returns the volunteer's active assignments, newest first.
func (r *VolunteerRepo) ListForVolunteer(ctx context.Context, volunteerID string) ([]models.VolunteerAssignment, error) {
	var list []models.VolunteerAssignment
	err := r.db.SelectContext(ctx, &list, `SELECT * FROM volunteer_assignments
        WHERE volunteer_id=$1 AND status='ACTIVE' ORDER BY created_at DESC`, volunteerID)
	return list, err
}

// MarkNotified stamps the notification timestamps for owner and volunteer.
func (r *VolunteerRepo) MarkNotified(ctx context.Context, assignmentID string, owner, volunteer bool) error {
	if !owner && !volunteer {
		return nil
	}
	query := `UPDATE volunteer_assignments SET updated_at=NOW()`
	if owner {
		query += `, owner_notified_at=NOW()`
	}
	if volunteer {
		query += `, volunteer_notified_at=NOW()`
	}
	query += ` WHERE id=$1`
	_, err := r.db.ExecContext(ctx, query, assignmentID)
	return err
}
