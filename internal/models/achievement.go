package models

import "time"

// Achievement is a static catalog entry
type Achievement struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

// UnlockedAchievement records that a user earned an achievement
type UnlockedAchievement struct {
	UserID        string    `json:"userId"`
	AchievementID string    `json:"achievementId"`
	UnlockedAt    time.Time `json:"unlockedAt"`
}

// AchievementStatus is a catalog entry annotated for one user
type AchievementStatus struct {
	Achievement
	Unlocked   bool       `json:"unlocked"`
	UnlockedAt *time.Time `json:"unlockedAt,omitempty"`
}
