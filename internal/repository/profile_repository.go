// Package repository provides persistence for user profiles.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/citymate-bot/citymate/internal/domain"
)

// ErrProfileNotFound indicates that no profile exists for a user.
var ErrProfileNotFound = errors.New("profile not found")

// ProfileRepository defines persistence operations for user profiles. Both
// operations are synchronous: the conversation core never proceeds past a
// write without confirmation that it is durable.
type ProfileRepository interface {
	Get(ctx context.Context, userID int64) (*domain.UserProfile, error)
	Upsert(ctx context.Context, userID int64, city string) error
}

type profileRepository struct {
	db  *sql.DB
	log *slog.Logger
}

// NewProfileRepository creates a SQL-backed profile repository.
func NewProfileRepository(db *sql.DB, log *slog.Logger) ProfileRepository {
	return &profileRepository{
		db:  db,
		log: log,
	}
}

// Get retrieves a profile by the messenger user identifier.
func (r *profileRepository) Get(ctx context.Context, userID int64) (*domain.UserProfile, error) {
	const query = `
		SELECT user_id, city, created_at, updated_at
		FROM profiles
		WHERE user_id = $1
	`

	row := r.db.QueryRowContext(ctx, query, userID)

	var profile domain.UserProfile
	if err := row.Scan(
		&profile.UserID,
		&profile.City,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProfileNotFound
		}

		if r.log != nil {
			r.log.Error("failed to fetch profile", slog.Int64("user_id", userID), slog.Any("error", err))
		}
		return nil, fmt.Errorf("select profile: %w", err)
	}

	return &profile, nil
}

// Upsert inserts a profile or overwrites its city when one already exists.
func (r *profileRepository) Upsert(ctx context.Context, userID int64, city string) error {
	const query = `
		INSERT INTO profiles (user_id, city, created_at, updated_at)
		VALUES ($1, $2, now(), now())
		ON CONFLICT (user_id) DO UPDATE
		SET city = EXCLUDED.city, updated_at = now()
	`

	if _, err := r.db.ExecContext(ctx, query, userID, city); err != nil {
		if r.log != nil {
			r.log.Error("failed to upsert profile", slog.Int64("user_id", userID), slog.Any("error", err))
		}
		return fmt.Errorf("upsert profile: %w", err)
	}

	return nil
}
