package progression

import (
	"context"
	"time"

	"heritagequest/internal/models"
)

// ProfileStore persists profiles. GetProfile returns nil, nil when the user
// has no profile yet.
type ProfileStore interface {
	GetProfile(ctx context.Context, userID string) (*models.Profile, error)
	// CreateProfile inserts the profile unless one already exists
	CreateProfile(ctx context.Context, p models.Profile) error
	// AddPoints atomically adds delta, clamping the balance at zero
	AddPoints(ctx context.Context, userID string, delta int) (*models.Profile, error)
	// SpendPoints atomically subtracts amount only if the balance covers it
	SpendPoints(ctx context.Context, userID string, amount int) (*models.Profile, bool, error)
	// IncrementCounters atomically bumps the answer and quest counters
	IncrementCounters(ctx context.Context, userID string, correctAnswers, questsCompleted int) (*models.Profile, error)
	// UpdateProfileState writes lives and streak fields if the version still matches
	UpdateProfileState(ctx context.Context, p models.Profile) (bool, error)
}

// CompletionStore persists completed quests, unique per user and quest
type CompletionStore interface {
	// CompleteQuest inserts the completion and bumps totalQuestsCompleted as one
	// unit. It reports false with a nil profile when the pair already existed.
	CompleteQuest(ctx context.Context, userID, questID string, at time.Time) (*models.Profile, bool, error)
	ListCompletedQuests(ctx context.Context, userID string) ([]models.CompletedQuest, error)
	IsQuestCompleted(ctx context.Context, userID, questID string) (bool, error)
}

// AchievementStore persists unlocks, unique per user and achievement
type AchievementStore interface {
	InsertUnlockedAchievement(ctx context.Context, userID, achievementID string, at time.Time) (bool, error)
	ListUnlockedAchievements(ctx context.Context, userID string) ([]models.UnlockedAchievement, error)
}

// Store is the data access the progression engine needs
type Store interface {
	ProfileStore
	CompletionStore
	AchievementStore
}
