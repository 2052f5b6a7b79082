package progression

import (
	"context"
	"fmt"
	"sync"
	"time"

	"heritagequest/internal/models"
)

// Rule pairs an achievement with the counter predicate that unlocks it
type Rule struct {
	Achievement models.Achievement
	Qualifies   func(models.Counters) bool
}

// DefaultRules is the built-in achievement catalog
var DefaultRules = []Rule{
	{
		Achievement: models.Achievement{ID: "first-steps", Name: "First Steps", Description: "Answer your first question correctly", Icon: "👣"},
		Qualifies:   func(c models.Counters) bool { return c.TotalCorrectAnswers >= 1 },
	},
	{
		Achievement: models.Achievement{ID: "history-explorer", Name: "History Explorer", Description: "Complete your first quest", Icon: "🧭"},
		Qualifies:   func(c models.Counters) bool { return c.TotalQuestsCompleted >= 1 },
	},
	{
		Achievement: models.Achievement{ID: "campus-expert", Name: "Campus Expert", Description: "Complete three quests", Icon: "🎓"},
		Qualifies:   func(c models.Counters) bool { return c.TotalQuestsCompleted >= 3 },
	},
	{
		Achievement: models.Achievement{ID: "sharp-mind", Name: "Sharp Mind", Description: "Answer 25 questions correctly", Icon: "🧠"},
		Qualifies:   func(c models.Counters) bool { return c.TotalCorrectAnswers >= 25 },
	},
	{
		Achievement: models.Achievement{ID: "streak-keeper", Name: "Streak Keeper", Description: "Play three days in a row", Icon: "🔥"},
		Qualifies:   func(c models.Counters) bool { return c.Streak >= 3 },
	},
	{
		Achievement: models.Achievement{ID: "week-warrior", Name: "Week Warrior", Description: "Play seven days in a row", Icon: "📅"},
		Qualifies:   func(c models.Counters) bool { return c.Streak >= 7 },
	},
	{
		Achievement: models.Achievement{ID: "point-collector", Name: "Point Collector", Description: "Hold 1000 points at once", Icon: "💰"},
		Qualifies:   func(c models.Counters) bool { return c.TotalPoints >= 1000 },
	},
}

// Evaluator records achievement unlocks. Persisted unlocks are deduplicated by
// the store; the "new" queue is process local and cleared by MarkSeen.
type Evaluator struct {
	store AchievementStore
	rules []Rule
	byID  map[string]models.Achievement
	clock func() time.Time

	mu      sync.Mutex
	pending map[string][]string
}

// NewEvaluator creates an evaluator over the given rule table
func NewEvaluator(store AchievementStore, rules []Rule, clock func() time.Time) *Evaluator {
	if clock == nil {
		clock = time.Now
	}
	byID := make(map[string]models.Achievement, len(rules))
	for _, r := range rules {
		byID[r.Achievement.ID] = r.Achievement
	}
	return &Evaluator{
		store:   store,
		rules:   rules,
		byID:    byID,
		clock:   clock,
		pending: make(map[string][]string),
	}
}

// Catalog lists every known achievement in rule order
func (e *Evaluator) Catalog() []models.Achievement {
	out := make([]models.Achievement, 0, len(e.rules))
	for _, r := range e.rules {
		out = append(out, r.Achievement)
	}
	return out
}

// Unlock persists the achievement for the user. It reports true only for the
// first unlock, which is also queued as new.
func (e *Evaluator) Unlock(ctx context.Context, userID, achievementID string) (bool, error) {
	if userID == "" {
		return false, ErrUnauthorized
	}
	if _, ok := e.byID[achievementID]; !ok {
		return false, fmt.Errorf("%w: %s", ErrUnknownAchievement, achievementID)
	}

	inserted, err := e.store.InsertUnlockedAchievement(ctx, userID, achievementID, e.clock().UTC())
	if err != nil {
		return false, fmt.Errorf("unlock achievement %s: %w: %w", achievementID, ErrStore, err)
	}
	if !inserted {
		return false, nil
	}

	e.mu.Lock()
	e.pending[userID] = append(e.pending[userID], achievementID)
	e.mu.Unlock()

	return true, nil
}

// Evaluate unlocks every achievement whose predicate holds for the counters
// and returns the ones unlocked by this call.
func (e *Evaluator) Evaluate(ctx context.Context, userID string, counters models.Counters) ([]string, error) {
	var unlocked []string
	for _, r := range e.rules {
		if !r.Qualifies(counters) {
			continue
		}
		first, err := e.Unlock(ctx, userID, r.Achievement.ID)
		if err != nil {
			return unlocked, err
		}
		if first {
			unlocked = append(unlocked, r.Achievement.ID)
		}
	}
	return unlocked, nil
}

// NewlyUnlocked returns the user's unseen unlocks, oldest first
func (e *Evaluator) NewlyUnlocked(userID string) []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	ids := e.pending[userID]
	out := make([]string, len(ids))
	copy(out, ids)
	return out
}

// MarkSeen clears the user's new queue without touching persisted unlocks
func (e *Evaluator) MarkSeen(userID string) {
	e.mu.Lock()
	delete(e.pending, userID)
	e.mu.Unlock()
}

// Statuses annotates the catalog with the user's unlocks
func (e *Evaluator) Statuses(ctx context.Context, userID string) ([]models.AchievementStatus, error) {
	unlocked, err := e.store.ListUnlockedAchievements(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list achievements: %w: %w", ErrStore, err)
	}

	at := make(map[string]time.Time, len(unlocked))
	for _, u := range unlocked {
		at[u.AchievementID] = u.UnlockedAt
	}

	statuses := make([]models.AchievementStatus, 0, len(e.rules))
	for _, r := range e.rules {
		status := models.AchievementStatus{Achievement: r.Achievement}
		if t, ok := at[r.Achievement.ID]; ok {
			t := t
			status.Unlocked = true
			status.UnlockedAt = &t
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}
