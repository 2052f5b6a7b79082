package handlers

import (
	"errors"
	"net/http"

	"heritagequest/internal/logger"
	"heritagequest/internal/quiz"
	"heritagequest/internal/utils"
)

// QuizHandler serves quiz session endpoints
type QuizHandler struct {
	engine *quiz.Engine
	log    *logger.Logger
}

// NewQuizHandler creates a new quiz handler
func NewQuizHandler(engine *quiz.Engine, log *logger.Logger) *QuizHandler {
	if log == nil {
		log = logger.Discard()
	}
	return &QuizHandler{engine: engine, log: log}
}

type startQuizRequest struct {
	QuestID  string `json:"questId"`
	Practice bool   `json:"practice"`
}

type answerRequest struct {
	AnswerIndex *int `json:"answerIndex"`
}

// quizErrorResponse carries the unchanged session with a rejected transition
type quizErrorResponse struct {
	Error   string     `json:"error"`
	Session *quiz.View `json:"session,omitempty"`
}

func (h *QuizHandler) respond(w http.ResponseWriter, r *http.Request, status int, view quiz.View, err error) {
	if err == nil {
		respondWithJSON(w, status, view)
		return
	}
	if view.ID != "" && (errors.Is(err, quiz.ErrAlreadyAnswered) ||
		errors.Is(err, quiz.ErrInvalidTransition) ||
		errors.Is(err, quiz.ErrInvalidAnswer)) {
		respondWithJSON(w, statusForError(err), quizErrorResponse{Error: err.Error(), Session: &view})
		return
	}
	respondWithDomainError(w, r, err, h.log)
}

// Start opens a quiz session
func (h *QuizHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req startQuizRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithDomainError(w, r, err, h.log)
		return
	}
	if err := utils.ValidateSlug("questId", req.QuestID); err != nil {
		respondWithDomainError(w, r, err, h.log)
		return
	}

	view, err := h.engine.Start(r.Context(), GetUserFromContext(r.Context()), req.QuestID, req.Practice)
	h.respond(w, r, http.StatusCreated, view, err)
}

// Get returns the current session snapshot
func (h *QuizHandler) Get(w http.ResponseWriter, r *http.Request) {
	view, err := h.engine.Get(r.Context(), GetUserFromContext(r.Context()), r.PathValue("id"))
	h.respond(w, r, http.StatusOK, view, err)
}

// SubmitAnswer answers the current question
func (h *QuizHandler) SubmitAnswer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithDomainError(w, r, err, h.log)
		return
	}
	if err := utils.ValidateAnswerIndex(req.AnswerIndex); err != nil {
		respondWithDomainError(w, r, err, h.log)
		return
	}

	view, err := h.engine.SubmitAnswer(r.Context(), GetUserFromContext(r.Context()), r.PathValue("id"), *req.AnswerIndex)
	h.respond(w, r, http.StatusOK, view, err)
}

// Advance moves past a revealed question
func (h *QuizHandler) Advance(w http.ResponseWriter, r *http.Request) {
	view, err := h.engine.Advance(r.Context(), GetUserFromContext(r.Context()), r.PathValue("id"))
	h.respond(w, r, http.StatusOK, view, err)
}

// Exit abandons the session, keeping any score earned outside practice mode
func (h *QuizHandler) Exit(w http.ResponseWriter, r *http.Request) {
	view, err := h.engine.Exit(r.Context(), GetUserFromContext(r.Context()), r.PathValue("id"))
	h.respond(w, r, http.StatusOK, view, err)
}
