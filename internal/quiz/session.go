package quiz

import (
	"time"

	"heritagequest/internal/models"
)

// State is the position of a session in the quiz flow
type State string

const (
	StateAwaitingAnswer State = "awaiting_answer"
	StateRevealed       State = "revealed"
	StateCompleted      State = "completed"
	StateGameOver       State = "game_over"
)

// StreakBonus is added to an award once the in-attempt correct streak reaches StreakBonusThreshold
const (
	StreakBonus          = 50
	StreakBonusThreshold = 3
)

// Effect is a profile change an answer owes outside practice mode
type Effect string

const (
	EffectNone          Effect = ""
	EffectCorrectAnswer Effect = "correct_answer"
	EffectLoseLife      Effect = "lose_life"
)

// Terminal reports whether no further answers or advances are accepted
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateGameOver
}

// Session is one attempt at a quest. It is persisted between requests and
// only its side effects outlive it.
type Session struct {
	ID             string    `json:"id"`
	UserID         string    `json:"userId"`
	QuestID        string    `json:"questId"`
	Practice       bool      `json:"practice"`
	State          State     `json:"state"`
	QuestionIndex  int       `json:"questionIndex"`
	TotalQuestions int       `json:"totalQuestions"`
	SelectedAnswer *int      `json:"selectedAnswer,omitempty"`
	LastCorrect    bool      `json:"lastCorrect"`
	LastAward      int       `json:"lastAward"`
	Score          int       `json:"score"`
	CorrectStreak  int       `json:"correctStreak"`
	Committed      bool      `json:"committed"`
	PendingEffect  Effect    `json:"pendingEffect,omitempty"`
	LivesRemaining int       `json:"livesRemaining"`
	QuestCompleted bool      `json:"questCompleted"`
	StartedAt      time.Time `json:"startedAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// answerOutcome is what a submission did to the session
type answerOutcome struct {
	Correct bool
	Award   int
}

// submit records an answer for the current question. Side effects on the
// profile are the caller's job; submit only moves the session.
func (s *Session) submit(q models.Question, index int) (answerOutcome, error) {
	if s.State != StateAwaitingAnswer {
		return answerOutcome{}, ErrAlreadyAnswered
	}
	if index < 0 || index >= len(q.Options) {
		return answerOutcome{}, ErrInvalidAnswer
	}

	selected := index
	s.SelectedAnswer = &selected
	s.State = StateRevealed

	if !q.IsCorrect(index) {
		s.LastCorrect = false
		s.LastAward = 0
		s.CorrectStreak = 0
		return answerOutcome{}, nil
	}

	s.CorrectStreak++
	award := q.Value()
	if !s.Practice && s.CorrectStreak >= StreakBonusThreshold {
		award += StreakBonus
	}
	s.LastCorrect = true
	s.LastAward = award
	s.Score += award
	return answerOutcome{Correct: true, Award: award}, nil
}

// gameOver moves a revealed session into the absorbing game over state
func (s *Session) gameOver() {
	s.State = StateGameOver
}

// advance moves past a revealed question and reports whether it was the last one
func (s *Session) advance() (bool, error) {
	if s.State != StateRevealed {
		return false, ErrInvalidTransition
	}
	if s.QuestionIndex+1 >= s.TotalQuestions {
		return true, nil
	}
	s.QuestionIndex++
	s.SelectedAnswer = nil
	s.LastCorrect = false
	s.LastAward = 0
	s.State = StateAwaitingAnswer
	return false, nil
}

// complete marks the session finished after the last question
func (s *Session) complete() {
	s.State = StateCompleted
	s.QuestCompleted = true
}

// needsCommit reports whether the session score still has to reach the profile
func (s *Session) needsCommit() bool {
	return !s.Practice && !s.Committed && s.Score > 0
}

// Progress is the percentage of questions answered so far
func (s *Session) Progress() int {
	if s.TotalQuestions == 0 {
		return 0
	}
	answered := s.QuestionIndex
	if s.State != StateAwaitingAnswer {
		answered++
	}
	if answered > s.TotalQuestions {
		answered = s.TotalQuestions
	}
	return answered * 100 / s.TotalQuestions
}
