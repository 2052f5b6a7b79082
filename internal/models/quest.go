package models

import "time"

// DefaultQuestionPoints is awarded when a question has no explicit value
const DefaultQuestionPoints = 100

// Quest is an ordered set of trivia questions on one theme
type Quest struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Category    string     `json:"category"`
	Icon        string     `json:"icon"`
	Description string     `json:"description"`
	Questions   []Question `json:"questions,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// Question is a single multiple choice question
type Question struct {
	ID            int64    `json:"id"`
	QuestID       string   `json:"questId"`
	Text          string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"-"`
	FunFact       string   `json:"funFact,omitempty"`
	Points        int      `json:"points"`
	Order         int      `json:"order"`
}

// Value returns the points the question is worth
func (q Question) Value() int {
	if q.Points <= 0 {
		return DefaultQuestionPoints
	}
	return q.Points
}

// IsCorrect reports whether the option index is the right one
func (q Question) IsCorrect(index int) bool {
	return index == q.CorrectAnswer
}

// CompletedQuest marks a quest as finished by a user
type CompletedQuest struct {
	UserID      string    `json:"userId"`
	QuestID     string    `json:"questId"`
	CompletedAt time.Time `json:"completedAt"`
}
