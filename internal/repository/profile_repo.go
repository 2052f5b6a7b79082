package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"heritagequest/internal/database"
	"heritagequest/internal/models"
)

const profileColumns = `user_id, display_name, avatar_url, total_points, lives, max_lives,
		       lives_reset_at, streak, last_played_date, total_correct_answers,
		       total_quests_completed, version, created_at, updated_at`

// ProfileRepository handles profile database operations
type ProfileRepository struct {
	db database.DBTX
}

// NewProfileRepository creates a new profile repository
func NewProfileRepository(db database.DBTX) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// GetProfile retrieves a profile by user ID, returning nil when none exists
func (r *ProfileRepository) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE user_id = ?`

	p, err := scanProfile(r.db.QueryRowContext(ctx, query, userID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return p, nil
}

// ListProfiles retrieves every profile, used by backups
func (r *ProfileRepository) ListProfiles(ctx context.Context) ([]models.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles ORDER BY user_id ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query profiles: %w", err)
	}
	defer rows.Close()

	var profiles []models.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		profiles = append(profiles, *p)
	}
	return profiles, rows.Err()
}

// CreateProfile inserts a profile unless the user already has one
func (r *ProfileRepository) CreateProfile(ctx context.Context, p models.Profile) error {
	query := r.db.GetDialect().InsertIgnore(`
		INSERT INTO profiles (user_id, display_name, avatar_url, total_points, lives, max_lives,
		                      lives_reset_at, streak, last_played_date, total_correct_answers,
		                      total_quests_completed, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)

	_, err := r.db.ExecContext(ctx, query,
		p.UserID, p.DisplayName, p.AvatarURL, p.TotalPoints, p.Lives, p.MaxLives,
		nullTime(p.LivesResetAt), p.Streak, nullDate(p.LastPlayedDate), p.TotalCorrectAnswers,
		p.TotalQuestsCompleted, p.Version, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create profile: %w", err)
	}
	return nil
}

// AddPoints adds delta to the balance in one statement, clamping at zero
func (r *ProfileRepository) AddPoints(ctx context.Context, userID string, delta int) (*models.Profile, error) {
	query := `
		UPDATE profiles
		SET total_points = CASE WHEN total_points + ? < 0 THEN 0 ELSE total_points + ? END,
		    updated_at = ?
		WHERE user_id = ?
	`
	if err := r.execOne(ctx, query, delta, delta, time.Now().UTC(), userID); err != nil {
		return nil, fmt.Errorf("failed to add points: %w", err)
	}
	return r.mustGet(ctx, userID)
}

// SpendPoints subtracts amount only if the balance covers it
func (r *ProfileRepository) SpendPoints(ctx context.Context, userID string, amount int) (*models.Profile, bool, error) {
	query := `
		UPDATE profiles
		SET total_points = total_points - ?, updated_at = ?
		WHERE user_id = ? AND total_points >= ?
	`
	result, err := r.db.ExecContext(ctx, query, amount, time.Now().UTC(), userID, amount)
	if err != nil {
		return nil, false, fmt.Errorf("failed to spend points: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("failed to spend points: %w", err)
	}

	p, err := r.mustGet(ctx, userID)
	if err != nil {
		return nil, false, err
	}
	return p, affected > 0, nil
}

// IncrementCounters bumps the answer and quest counters in one statement
func (r *ProfileRepository) IncrementCounters(ctx context.Context, userID string, correctAnswers, questsCompleted int) (*models.Profile, error) {
	query := `
		UPDATE profiles
		SET total_correct_answers = total_correct_answers + ?,
		    total_quests_completed = total_quests_completed + ?,
		    updated_at = ?
		WHERE user_id = ?
	`
	if err := r.execOne(ctx, query, correctAnswers, questsCompleted, time.Now().UTC(), userID); err != nil {
		return nil, fmt.Errorf("failed to increment counters: %w", err)
	}
	return r.mustGet(ctx, userID)
}

// UpdateProfileState writes the lives and streak fields if the stored version
// still matches p.Version. It reports false when another writer won.
func (r *ProfileRepository) UpdateProfileState(ctx context.Context, p models.Profile) (bool, error) {
	query := `
		UPDATE profiles
		SET lives = ?, max_lives = ?, lives_reset_at = ?, streak = ?, last_played_date = ?,
		    version = version + 1, updated_at = ?
		WHERE user_id = ? AND version = ?
	`
	result, err := r.db.ExecContext(ctx, query,
		p.Lives, p.MaxLives, nullTime(p.LivesResetAt), p.Streak, nullDate(p.LastPlayedDate),
		p.UpdatedAt, p.UserID, p.Version,
	)
	if err != nil {
		return false, fmt.Errorf("failed to update profile: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to update profile: %w", err)
	}
	return affected > 0, nil
}

// RestoreProfile overwrites every column, used by backup imports
func (r *ProfileRepository) RestoreProfile(ctx context.Context, p models.Profile) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM profiles WHERE user_id = ?", p.UserID); err != nil {
		return fmt.Errorf("failed to restore profile: %w", err)
	}
	return r.CreateProfile(ctx, p)
}

func (r *ProfileRepository) execOne(ctx context.Context, query string, args ...interface{}) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ProfileRepository) mustGet(ctx context.Context, userID string) (*models.Profile, error) {
	p, err := r.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrNotFound
	}
	return p, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProfile(row rowScanner) (*models.Profile, error) {
	p := &models.Profile{}
	var resetAt sql.NullTime
	var lastPlayed sql.NullString

	err := row.Scan(
		&p.UserID,
		&p.DisplayName,
		&p.AvatarURL,
		&p.TotalPoints,
		&p.Lives,
		&p.MaxLives,
		&resetAt,
		&p.Streak,
		&lastPlayed,
		&p.TotalCorrectAnswers,
		&p.TotalQuestsCompleted,
		&p.Version,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if resetAt.Valid {
		t := resetAt.Time.UTC()
		p.LivesResetAt = &t
	}
	if lastPlayed.Valid && lastPlayed.String != "" {
		d, err := models.ParseDate(lastPlayed.String)
		if err != nil {
			return nil, fmt.Errorf("invalid last_played_date %q: %w", lastPlayed.String, err)
		}
		p.LastPlayedDate = &d
	}

	return p, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func nullDate(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: models.CalendarDate(*t).Format(models.DateLayout), Valid: true}
}
