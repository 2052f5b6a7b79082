package repository

import (
	"context"
	"fmt"
	"time"

	"heritagequest/internal/database"
	"heritagequest/internal/models"
)

// CompletionRepository handles completed quest records
type CompletionRepository struct {
	db database.DBTX
}

// NewCompletionRepository creates a new completion repository
func NewCompletionRepository(db database.DBTX) *CompletionRepository {
	return &CompletionRepository{db: db}
}

// InsertCompletedQuest records a completion; it reports false if the pair already existed
func (r *CompletionRepository) InsertCompletedQuest(ctx context.Context, userID, questID string, at time.Time) (bool, error) {
	query := r.db.GetDialect().InsertIgnore(
		"INSERT INTO completed_quests (user_id, quest_id, completed_at) VALUES (?, ?, ?)",
	)
	result, err := r.db.ExecContext(ctx, query, userID, questID, at.UTC())
	if err != nil {
		return false, fmt.Errorf("failed to insert completed quest: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to insert completed quest: %w", err)
	}
	return affected > 0, nil
}

// ListCompletedQuests retrieves the user's completions, oldest first
func (r *CompletionRepository) ListCompletedQuests(ctx context.Context, userID string) ([]models.CompletedQuest, error) {
	return r.list(ctx, `
		SELECT user_id, quest_id, completed_at
		FROM completed_quests
		WHERE user_id = ?
		ORDER BY completed_at ASC
	`, userID)
}

// ListAllCompletedQuests retrieves every completion, used by backups
func (r *CompletionRepository) ListAllCompletedQuests(ctx context.Context) ([]models.CompletedQuest, error) {
	return r.list(ctx, `
		SELECT user_id, quest_id, completed_at
		FROM completed_quests
		ORDER BY user_id ASC, completed_at ASC
	`)
}

func (r *CompletionRepository) list(ctx context.Context, query string, args ...interface{}) ([]models.CompletedQuest, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query completed quests: %w", err)
	}
	defer rows.Close()

	var completed []models.CompletedQuest
	for rows.Next() {
		var c models.CompletedQuest
		if err := rows.Scan(&c.UserID, &c.QuestID, &c.CompletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan completed quest: %w", err)
		}
		completed = append(completed, c)
	}
	return completed, rows.Err()
}

// IsQuestCompleted checks whether the pair exists
func (r *CompletionRepository) IsQuestCompleted(ctx context.Context, userID, questID string) (bool, error) {
	var count int
	query := "SELECT COUNT(*) FROM completed_quests WHERE user_id = ? AND quest_id = ?"
	if err := r.db.QueryRowContext(ctx, query, userID, questID).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to count completed quests: %w", err)
	}
	return count > 0, nil
}
