package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"heritagequest/internal/database"
	"heritagequest/internal/models"
)

// QuestRepository handles quest and question database operations
type QuestRepository struct {
	db database.DBTX
}

// NewQuestRepository creates a new quest repository
func NewQuestRepository(db database.DBTX) *QuestRepository {
	return &QuestRepository{db: db}
}

// ListQuests retrieves all quests without their questions
func (r *QuestRepository) ListQuests(ctx context.Context) ([]models.Quest, error) {
	query := `
		SELECT id, title, category, icon, description, created_at
		FROM quests
		ORDER BY id ASC
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query quests: %w", err)
	}
	defer rows.Close()

	var quests []models.Quest
	for rows.Next() {
		var q models.Quest
		if err := rows.Scan(&q.ID, &q.Title, &q.Category, &q.Icon, &q.Description, &q.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan quest: %w", err)
		}
		quests = append(quests, q)
	}
	return quests, rows.Err()
}

// GetQuest retrieves a quest with its ordered questions, returning nil when it does not exist
func (r *QuestRepository) GetQuest(ctx context.Context, questID string) (*models.Quest, error) {
	query := `
		SELECT id, title, category, icon, description, created_at
		FROM quests
		WHERE id = ?
	`
	q := &models.Quest{}
	err := r.db.QueryRowContext(ctx, query, questID).Scan(
		&q.ID, &q.Title, &q.Category, &q.Icon, &q.Description, &q.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get quest: %w", err)
	}

	questions, err := r.getQuestions(ctx, questID)
	if err != nil {
		return nil, err
	}
	q.Questions = questions
	return q, nil
}

func (r *QuestRepository) getQuestions(ctx context.Context, questID string) ([]models.Question, error) {
	query := `
		SELECT id, quest_id, question, options, correct_answer, fun_fact, points, sort_order
		FROM quest_questions
		WHERE quest_id = ?
		ORDER BY sort_order ASC, id ASC
	`
	rows, err := r.db.QueryContext(ctx, query, questID)
	if err != nil {
		return nil, fmt.Errorf("failed to query questions: %w", err)
	}
	defer rows.Close()

	var questions []models.Question
	for rows.Next() {
		var q models.Question
		var options string
		if err := rows.Scan(&q.ID, &q.QuestID, &q.Text, &options, &q.CorrectAnswer, &q.FunFact, &q.Points, &q.Order); err != nil {
			return nil, fmt.Errorf("failed to scan question: %w", err)
		}
		if err := json.Unmarshal([]byte(options), &q.Options); err != nil {
			return nil, fmt.Errorf("invalid options for question %d: %w", q.ID, err)
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}
