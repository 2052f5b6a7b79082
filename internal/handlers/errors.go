package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"heritagequest/internal/logger"
	"heritagequest/internal/progression"
	"heritagequest/internal/quiz"
	"heritagequest/internal/security"
	"heritagequest/internal/service"
	"heritagequest/internal/utils"
)

// errorResponse is the body of every failed request
type errorResponse struct {
	Error     string `json:"error"`
	Retryable bool   `json:"retryable,omitempty"`
}

// statusForError maps a domain error to an HTTP status
func statusForError(err error) int {
	var validation utils.ValidationError
	switch {
	case errors.Is(err, progression.ErrUnauthorized),
		errors.Is(err, security.ErrMissingToken),
		errors.Is(err, security.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, quiz.ErrSessionNotFound),
		errors.Is(err, quiz.ErrQuestNotFound),
		errors.Is(err, service.ErrItemNotFound),
		errors.Is(err, progression.ErrUnknownAchievement):
		return http.StatusNotFound
	case errors.As(err, &validation),
		errors.Is(err, progression.ErrInvalidAmount),
		errors.Is(err, progression.ErrInvalidQuest),
		errors.Is(err, quiz.ErrInvalidAnswer),
		errors.Is(err, quiz.ErrEmptyQuest):
		return http.StatusBadRequest
	case errors.Is(err, quiz.ErrAlreadyAnswered),
		errors.Is(err, quiz.ErrInvalidTransition),
		errors.Is(err, quiz.ErrNoLives),
		errors.Is(err, quiz.ErrPracticeLocked),
		errors.Is(err, progression.ErrInsufficientPoints),
		errors.Is(err, progression.ErrConflict),
		errors.Is(err, service.ErrItemAlreadyUsed):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func respondWithError(w http.ResponseWriter, status int, userMsg, logMsg string, err error, log *logger.Logger) {
	if err != nil && status >= http.StatusInternalServerError {
		if logMsg == "" {
			logMsg = userMsg
		}
		log.Entry().WithError(err).Error(logMsg)
	}

	respondWithJSON(w, status, errorResponse{
		Error:     userMsg,
		Retryable: status >= http.StatusInternalServerError,
	})
}

// respondWithDomainError picks the status from err. Internal details are
// logged and never sent to the client.
func respondWithDomainError(w http.ResponseWriter, r *http.Request, err error, log *logger.Logger) {
	status := statusForError(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = ErrInternalServerError
	}
	respondWithError(w, status, msg, r.Method+" "+r.URL.Path+" failed", err, log)
}

func respondWithJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

// decodeJSON reads a bounded JSON body into dst. An empty body leaves dst untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return utils.ValidationError{Field: "body", Message: ErrInvalidJSON}
	}
	return nil
}
