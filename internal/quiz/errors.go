package quiz

import "errors"

var (
	ErrSessionNotFound   = errors.New("quiz session not found")
	ErrQuestNotFound     = errors.New("quest not found")
	ErrEmptyQuest        = errors.New("quest has no questions")
	ErrPracticeLocked    = errors.New("practice mode requires a completed quest")
	ErrNoLives           = errors.New("no lives remaining")
	ErrAlreadyAnswered   = errors.New("question already answered")
	ErrInvalidAnswer     = errors.New("answer index out of range")
	ErrInvalidTransition = errors.New("invalid quiz state transition")
)
