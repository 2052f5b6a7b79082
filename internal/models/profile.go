package models

import "time"

const (
	// DefaultMaxLives is the ceiling given to new profiles
	DefaultMaxLives = 5
	// DateLayout is how calendar dates are stored
	DateLayout = "2006-01-02"
)

// Profile holds a user's mutable progression fields
type Profile struct {
	UserID               string     `json:"userId"`
	DisplayName          string     `json:"displayName"`
	AvatarURL            string     `json:"avatarUrl"`
	TotalPoints          int        `json:"totalPoints"`
	Lives                int        `json:"lives"`
	MaxLives             int        `json:"maxLives"`
	LivesResetAt         *time.Time `json:"livesResetAt"`
	Streak               int        `json:"streak"`
	LastPlayedDate       *time.Time `json:"lastPlayedDate"`
	TotalCorrectAnswers  int        `json:"totalCorrectAnswers"`
	TotalQuestsCompleted int        `json:"totalQuestsCompleted"`
	Version              int64      `json:"-"`
	CreatedAt            time.Time  `json:"createdAt"`
	UpdatedAt            time.Time  `json:"updatedAt"`
}

// NewProfile returns a profile with first sign-in defaults
func NewProfile(userID, displayName string, maxLives int, now time.Time) Profile {
	return Profile{
		UserID:      userID,
		DisplayName: displayName,
		Lives:       maxLives,
		MaxLives:    maxLives,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Counters is the snapshot achievement rules are evaluated against
type Counters struct {
	TotalPoints          int
	Streak               int
	TotalCorrectAnswers  int
	TotalQuestsCompleted int
}

// Counters extracts the achievement-relevant counters
func (p Profile) Counters() Counters {
	return Counters{
		TotalPoints:          p.TotalPoints,
		Streak:               p.Streak,
		TotalCorrectAnswers:  p.TotalCorrectAnswers,
		TotalQuestsCompleted: p.TotalQuestsCompleted,
	}
}

// CalendarDate truncates t to its UTC calendar date
func CalendarDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a stored calendar date
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}
