package handlers

import (
	"context"
	"net/http"

	"heritagequest/internal/logger"
	"heritagequest/internal/models"
	"heritagequest/internal/progression"
	"heritagequest/internal/quiz"
	"heritagequest/internal/utils"
)

// QuestCatalog lists and loads quests
type QuestCatalog interface {
	ListQuests(ctx context.Context) ([]models.Quest, error)
	GetQuest(ctx context.Context, questID string) (*models.Quest, error)
}

// ProgressionHandler serves profile, quest and achievement endpoints
type ProgressionHandler struct {
	progression *progression.Service
	quests      QuestCatalog
	log         *logger.Logger
}

// NewProgressionHandler creates a new progression handler
func NewProgressionHandler(svc *progression.Service, quests QuestCatalog, log *logger.Logger) *ProgressionHandler {
	if log == nil {
		log = logger.Discard()
	}
	return &ProgressionHandler{progression: svc, quests: quests, log: log}
}

// ProfileView is a profile with the derived cooldown
type ProfileView struct {
	models.Profile
	CooldownSeconds int64 `json:"cooldownSeconds"`
}

type amountRequest struct {
	Amount int `json:"amount"`
}

// QuestSummary is a quest listing entry annotated for the caller
type QuestSummary struct {
	models.Quest
	Completed bool `json:"completed"`
}

func (h *ProgressionHandler) profileView(p models.Profile) ProfileView {
	return ProfileView{
		Profile:         p,
		CooldownSeconds: int64(progression.CooldownRemaining(p, h.progression.Now()).Seconds()),
	}
}

func (h *ProgressionHandler) respondProfile(w http.ResponseWriter, r *http.Request, p models.Profile, err error) {
	if err != nil {
		respondWithDomainError(w, r, err, h.log)
		return
	}
	respondWithJSON(w, http.StatusOK, h.profileView(p))
}

// GetProfile returns the caller's profile. Loading it also applies an
// elapsed lives cooldown.
func (h *ProgressionHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	p, err := h.progression.CheckAndResetLives(r.Context(), GetUserFromContext(r.Context()))
	h.respondProfile(w, r, p, err)
}

// AddPoints adds to the caller's balance
func (h *ProgressionHandler) AddPoints(w http.ResponseWriter, r *http.Request) {
	var req amountRequest
	if err := h.decodeAmount(w, r, &req); err != nil {
		respondWithDomainError(w, r, err, h.log)
		return
	}
	p, err := h.progression.AddPoints(r.Context(), GetUserFromContext(r.Context()), req.Amount)
	h.respondProfile(w, r, p, err)
}

// RemovePoints subtracts from the caller's balance, flooring at zero
func (h *ProgressionHandler) RemovePoints(w http.ResponseWriter, r *http.Request) {
	var req amountRequest
	if err := h.decodeAmount(w, r, &req); err != nil {
		respondWithDomainError(w, r, err, h.log)
		return
	}
	p, err := h.progression.RemovePoints(r.Context(), GetUserFromContext(r.Context()), req.Amount)
	h.respondProfile(w, r, p, err)
}

func (h *ProgressionHandler) decodeAmount(w http.ResponseWriter, r *http.Request, req *amountRequest) error {
	if err := decodeJSON(w, r, req); err != nil {
		return err
	}
	return utils.ValidateAmount(req.Amount)
}

// LoseLife takes one life from the caller
func (h *ProgressionHandler) LoseLife(w http.ResponseWriter, r *http.Request) {
	p, err := h.progression.LoseLife(r.Context(), GetUserFromContext(r.Context()))
	h.respondProfile(w, r, p, err)
}

// ResetLives refills the caller's lives when a regeneration rule allows it
func (h *ProgressionHandler) ResetLives(w http.ResponseWriter, r *http.Request) {
	p, err := h.progression.ResetLives(r.Context(), GetUserFromContext(r.Context()))
	h.respondProfile(w, r, p, err)
}

// CheckLives applies an elapsed cooldown
func (h *ProgressionHandler) CheckLives(w http.ResponseWriter, r *http.Request) {
	p, err := h.progression.CheckAndResetLives(r.Context(), GetUserFromContext(r.Context()))
	h.respondProfile(w, r, p, err)
}

// UpdateStreak records that the caller played today
func (h *ProgressionHandler) UpdateStreak(w http.ResponseWriter, r *http.Request) {
	p, err := h.progression.UpdateStreak(r.Context(), GetUserFromContext(r.Context()))
	h.respondProfile(w, r, p, err)
}

// ListQuests returns every quest with the caller's completion state
func (h *ProgressionHandler) ListQuests(w http.ResponseWriter, r *http.Request) {
	userID := GetUserFromContext(r.Context())

	quests, err := h.quests.ListQuests(r.Context())
	if err != nil {
		respondWithDomainError(w, r, err, h.log)
		return
	}
	completed, err := h.progression.GetCompletedQuests(r.Context(), userID)
	if err != nil {
		respondWithDomainError(w, r, err, h.log)
		return
	}

	done := make(map[string]bool, len(completed))
	for _, c := range completed {
		done[c.QuestID] = true
	}

	summaries := make([]QuestSummary, 0, len(quests))
	for _, q := range quests {
		summaries = append(summaries, QuestSummary{Quest: q, Completed: done[q.ID]})
	}
	respondWithJSON(w, http.StatusOK, summaries)
}

// GetQuest returns one quest with its questions. Correct answers are never serialized.
func (h *ProgressionHandler) GetQuest(w http.ResponseWriter, r *http.Request) {
	questID := r.PathValue("id")
	if err := utils.ValidateSlug("questId", questID); err != nil {
		respondWithDomainError(w, r, err, h.log)
		return
	}

	quest, err := h.quests.GetQuest(r.Context(), questID)
	if err != nil {
		respondWithDomainError(w, r, err, h.log)
		return
	}
	if quest == nil {
		respondWithDomainError(w, r, quiz.ErrQuestNotFound, h.log)
		return
	}

	done, err := h.progression.IsQuestCompleted(r.Context(), GetUserFromContext(r.Context()), questID)
	if err != nil {
		respondWithDomainError(w, r, err, h.log)
		return
	}
	respondWithJSON(w, http.StatusOK, QuestSummary{Quest: *quest, Completed: done})
}

// CompletedQuests lists the caller's completed quests
func (h *ProgressionHandler) CompletedQuests(w http.ResponseWriter, r *http.Request) {
	completed, err := h.progression.GetCompletedQuests(r.Context(), GetUserFromContext(r.Context()))
	if err != nil {
		respondWithDomainError(w, r, err, h.log)
		return
	}
	if completed == nil {
		completed = []models.CompletedQuest{}
	}
	respondWithJSON(w, http.StatusOK, completed)
}

// ListAchievements returns the catalog annotated with the caller's unlocks
func (h *ProgressionHandler) ListAchievements(w http.ResponseWriter, r *http.Request) {
	statuses, err := h.progression.AchievementStatuses(r.Context(), GetUserFromContext(r.Context()))
	if err != nil {
		respondWithDomainError(w, r, err, h.log)
		return
	}
	respondWithJSON(w, http.StatusOK, statuses)
}

// NewAchievements returns unlocks the caller has not seen yet
func (h *ProgressionHandler) NewAchievements(w http.ResponseWriter, r *http.Request) {
	ids, err := h.progression.NewAchievements(GetUserFromContext(r.Context()))
	if err != nil {
		respondWithDomainError(w, r, err, h.log)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	respondWithJSON(w, http.StatusOK, map[string][]string{"achievementIds": ids})
}

// MarkAchievementsSeen clears the caller's unseen unlocks
func (h *ProgressionHandler) MarkAchievementsSeen(w http.ResponseWriter, r *http.Request) {
	if err := h.progression.MarkAchievementsSeen(GetUserFromContext(r.Context())); err != nil {
		respondWithDomainError(w, r, err, h.log)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
