package repository

import (
	"context"
	"fmt"
	"time"

	"heritagequest/internal/database"
	"heritagequest/internal/models"
)

// AchievementRepository handles unlocked achievement records
type AchievementRepository struct {
	db database.DBTX
}

// NewAchievementRepository creates a new achievement repository
func NewAchievementRepository(db database.DBTX) *AchievementRepository {
	return &AchievementRepository{db: db}
}

// InsertUnlockedAchievement records an unlock; it reports false if the pair already existed
func (r *AchievementRepository) InsertUnlockedAchievement(ctx context.Context, userID, achievementID string, at time.Time) (bool, error) {
	query := r.db.GetDialect().InsertIgnore(
		"INSERT INTO user_achievements (user_id, achievement_id, unlocked_at) VALUES (?, ?, ?)",
	)
	result, err := r.db.ExecContext(ctx, query, userID, achievementID, at.UTC())
	if err != nil {
		return false, fmt.Errorf("failed to insert achievement: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to insert achievement: %w", err)
	}
	return affected > 0, nil
}

// ListUnlockedAchievements retrieves the user's unlocks
func (r *AchievementRepository) ListUnlockedAchievements(ctx context.Context, userID string) ([]models.UnlockedAchievement, error) {
	return r.list(ctx, `
		SELECT user_id, achievement_id, unlocked_at
		FROM user_achievements
		WHERE user_id = ?
		ORDER BY unlocked_at ASC
	`, userID)
}

// ListAllUnlockedAchievements retrieves every unlock, used by backups
func (r *AchievementRepository) ListAllUnlockedAchievements(ctx context.Context) ([]models.UnlockedAchievement, error) {
	return r.list(ctx, `
		SELECT user_id, achievement_id, unlocked_at
		FROM user_achievements
		ORDER BY user_id ASC, unlocked_at ASC
	`)
}

func (r *AchievementRepository) list(ctx context.Context, query string, args ...interface{}) ([]models.UnlockedAchievement, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query achievements: %w", err)
	}
	defer rows.Close()

	var unlocked []models.UnlockedAchievement
	for rows.Next() {
		var u models.UnlockedAchievement
		if err := rows.Scan(&u.UserID, &u.AchievementID, &u.UnlockedAt); err != nil {
			return nil, fmt.Errorf("failed to scan achievement: %w", err)
		}
		unlocked = append(unlocked, u)
	}
	return unlocked, rows.Err()
}
