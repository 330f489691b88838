package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"lostfound-bot/internal/models"
)

var ErrListingNotFound = errors.New("listing not found")

// listing photos and secrets are capped at three each.
const maxListingAttachments = 3

// NewListing carries everything needed to publish a listing in one go.
type NewListing struct {
	AuthorID    string
	Type        string
	Category    string
	Title       string
	Description string
	Lat         *float64
	Lng         *float64
	District    *string
	OccurredAt  *time.Time
	PhotoURLs   []string
	// Ciphers are vault envelopes, already encrypted.
	Ciphers []string
}

// ListingRepository abstracts listing persistence.
type ListingRepository interface {
	Create(ctx context.Context, in NewListing) (models.Listing, error)
	GetByID(ctx context.Context, listingID string) (models.Listing, error)
	Photos(ctx context.Context, listingID string) ([]models.Photo, error)
	Secrets(ctx context.Context, listingID string) ([]models.Secret, error)
	ListByAuthor(ctx context.Context, authorID string, limit int) ([]models.Listing, error)
	UpdateFields(ctx context.Context, listingID string, patch ListingPatch) error
	ReplacePhotos(ctx context.Context, listingID string, urls []string) error
	SetStatus(ctx context.Context, listingID string, status string) error
	FindCandidates(ctx context.Context, listing models.Listing, radiusKm float64, limit int) ([]models.Listing, error)
	SaveMatch(ctx context.Context, lostID, foundID string, score int) error
	VolunteerListings(ctx context.Context, category string, limit int) ([]models.Listing, error)
}

// ListingPatch updates only the fields whose pointers are set. The Clear
// flags null a column out and win over the matching pointer.
type ListingPatch struct {
	Title           *string
	Description     *string
	Category        *string
	OccurredAt      *time.Time
	ClearOccurredAt bool
	Lat             *float64
	Lng             *float64
	District        *string
	ClearLocation   bool
}

// ListingRepo is a sqlx implementation of ListingRepository.
type ListingRepo struct {
	db *sqlx.DB
}

// NewListingRepo constructs a ListingRepo.
func NewListingRepo(db *sqlx.DB) *ListingRepo {
	return &ListingRepo{db: db}
}

// Create inserts the listing together with its photos and secrets in a single
// transaction.
func (r *ListingRepo) Create(ctx context.Context, in NewListing) (models.Listing, error) {
	if in.AuthorID == "" || in.Type == "" || in.Category == "" || in.Title == "" {
		return models.Listing{}, errors.New("author, type, category and title are required")
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Listing{}, err
	}
	defer tx.Rollback()

	listing := models.Listing{
		ID:          uuid.NewString(),
		AuthorID:    in.AuthorID,
		Type:        in.Type,
		Category:    in.Category,
		Title:       in.Title,
		Description: in.Description,
		Lat:         in.Lat,
		Lng:         in.Lng,
		District:    in.District,
		OccurredAt:  in.OccurredAt,
		Status:      models.ListingActive,
	}
	err = tx.QueryRowxContext(ctx, `INSERT INTO listings (id, author_id, type, category, title, description, lat, lng, district, occurred_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10) RETURNING created_at, updated_at`,
		listing.ID, listing.AuthorID, listing.Type, listing.Category, listing.Title, listing.Description,
		listing.Lat, listing.Lng, listing.District, listing.OccurredAt).
		Scan(&listing.CreatedAt, &listing.UpdatedAt)
	if err != nil {
		return models.Listing{}, fmt.Errorf("insert listing: %w", err)
	}

	for i, url := range in.PhotoURLs {
		if i >= maxListingAttachments {
			break
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO photos (id, listing_id, url) VALUES ($1,$2,$3)`,
			uuid.NewString(), listing.ID, url); err != nil {
			return models.Listing{}, fmt.Errorf("insert photo: %w", err)
		}
	}

	for i, cipher := range in.Ciphers {
		if i >= maxListingAttachments {
			break
		}
		if cipher == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO secrets (id, listing_id, cipher) VALUES ($1,$2,$3)`,
			uuid.NewString(), listing.ID, cipher); err != nil {
			return models.Listing{}, fmt.Errorf("insert secret: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return models.Listing{}, err
	}
	return listing, nil
}

// GetByID fetches a listing by id.
func (r *ListingRepo) GetByID(ctx context.Context, listingID string) (models.Listing, error) {
	var listing models.Listing
	err := r.db.GetContext(ctx, &listing, `SELECT * FROM listings WHERE id=$1`, listingID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Listing{}, ErrListingNotFound
	}
	return listing, err
}

// Photos returns listing photos in upload order.
func (r *ListingRepo) Photos(ctx context.Context, listingID string) ([]models.Photo, error) {
	var photos []models.Photo
	err := r.db.SelectContext(ctx, &photos, `SELECT * FROM photos WHERE listing_id=$1 ORDER BY created_at ASC`, listingID)
	return photos, err
}

// Secrets returns the stored cipher envelopes for a listing.
func (r *ListingRepo) Secrets(ctx context.Context, listingID string) ([]models.Secret, error) {
	var secrets []models.Secret
	err := r.db.SelectContext(ctx, &secrets, `SELECT * FROM secrets WHERE listing_id=$1 ORDER BY created_at ASC`, listingID)
	return secrets, err
}

// ListByAuthor returns the author's listings, active first, newest first.
func (r *ListingRepo) ListByAuthor(ctx context.Context, authorID string, limit int) ([]models.Listing, error) {
	if limit <= 0 {
		limit = 20
	}
	var listings []models.Listing
	err := r.db.SelectContext(ctx, &listings, `SELECT * FROM listings WHERE author_id=$1
        ORDER BY (status = 'ACTIVE') DESC, created_at DESC LIMIT $2`, authorID, limit)
	return listings, err
}

// UpdateFields patches set fields and bumps updated_at.
func (r *ListingRepo) UpdateFields(ctx context.Context, listingID string, patch ListingPatch) error {
	sets := []string{}
	args := []any{}
	add := func(column string, value any) {
		sets = append(sets, fmt.Sprintf("%s=$%d", column, len(args)+1))
		args = append(args, value)
	}
	if patch.Title != nil {
		add("title", *patch.Title)
	}
	if patch.Description != nil {
		add("description", *patch.Description)
	}
	if patch.Category != nil {
		add("category", *patch.Category)
	}
	if patch.ClearOccurredAt {
		sets = append(sets, "occurred_at=NULL")
	} else if patch.OccurredAt != nil {
		add("occurred_at", *patch.OccurredAt)
	}
	if patch.ClearLocation {
		sets = append(sets, "lat=NULL", "lng=NULL", "district=NULL")
	} else {
		if patch.Lat != nil {
			add("lat", *patch.Lat)
		}
		if patch.Lng != nil {
			add("lng", *patch.Lng)
		}
		if patch.District != nil {
			add("district", *patch.District)
		}
	}
	if len(sets) == 0 {
		return nil
	}

	query := "UPDATE listings SET "
	for i, s := range sets {
		if i > 0 {
			query += ", "
		}
		query += s
	}
	query += fmt.Sprintf(", updated_at=NOW() WHERE id=$%d", len(args)+1)
	args = append(args, listingID)

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrListingNotFound
	}
	return nil
}

// ReplacePhotos swaps the full photo set for a listing.
func (r *ListingRepo) ReplacePhotos(ctx context.Context, listingID string, urls []string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM photos WHERE listing_id=$1`, listingID); err != nil {
		return err
	}
	for i, url := range urls {
		if i >= maxListingAttachments {
			break
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO photos (id, listing_id, url) VALUES ($1,$2,$3)`,
			uuid.NewString(), listingID, url); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// SetStatus switches a listing between ACTIVE and CLOSED.
func (r *ListingRepo) SetStatus(ctx context.Context, listingID string, status string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE listings SET status=$1, updated_at=NOW() WHERE id=$2`, status, listingID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrListingNotFound
	}
	return nil
}

// FindCandidates returns active listings of the opposite type in the same
// category within a rough bounding box around the given listing. Listings by
// the same author are skipped.
func (r *ListingRepo) FindCandidates(ctx context.Context, listing models.Listing, radiusKm float64, limit int) ([]models.Listing, error) {
	opposite := models.ListingFound
	if listing.Type == models.ListingFound {
		opposite = models.ListingLost
	}
	if limit <= 0 {
		limit = 20
	}

	var listings []models.Listing
	if listing.Lat == nil || listing.Lng == nil {
		err := r.db.SelectContext(ctx, &listings, `SELECT * FROM listings
            WHERE status='ACTIVE' AND type=$1 AND category=$2 AND author_id<>$3
            ORDER BY created_at DESC LIMIT $4`,
			opposite, listing.Category, listing.AuthorID, limit)
		return listings, err
	}

	// ~1 degree of latitude is 111.32 km; good enough for a prefilter.
	delta := radiusKm / 111.32
	err := r.db.SelectContext(ctx, &listings, `SELECT * FROM listings
        WHERE status='ACTIVE' AND type=$1 AND category=$2 AND author_id<>$3
          AND lat BETWEEN $4 AND $5 AND lng BETWEEN $6 AND $7
        ORDER BY created_at DESC LIMIT $8`,
		opposite, listing.Category, listing.AuthorID,
		*listing.Lat-delta, *listing.Lat+delta, *listing.Lng-delta, *listing.Lng+delta, limit)
	return listings, err
}

// SaveMatch records a scored lost/found pair, updating the score when the
// pair is already known.
func (r *ListingRepo) SaveMatch(ctx context.Context, lostID, foundID string, score int) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO matches (id, lost_id, found_id, score) VALUES ($1,$2,$3,$4)
        ON CONFLICT (lost_id, found_id) DO UPDATE SET score = EXCLUDED.score`,
		uuid.NewString(), lostID, foundID, score)
	return err
}

// VolunteerListings returns active LOST listings in the category volunteers
// help with, newest first.
func (r *ListingRepo) VolunteerListings(ctx context.Context, category string, limit int) ([]models.Listing, error) {
	if limit <= 0 {
		limit = 10
	}
	var listings []models.Listing
	err := r.db.SelectContext(ctx, &listings, `SELECT * FROM listings
        WHERE status='ACTIVE' AND type='LOST' AND category=$1
        ORDER BY created_at DESC LIMIT $2`, category, limit)
	return listings, err
}
