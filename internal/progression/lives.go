package progression

import (
	"time"

	"heritagequest/internal/models"
)

// DefaultLivesCooldown is how long a fully depleted profile waits for a refill
const DefaultLivesCooldown = time.Hour

// RegenReason names the branch RegenerateLives took
type RegenReason int

const (
	// RegenNone means the profile was left unchanged
	RegenNone RegenReason = iota
	// RegenCooldownExpired means lives hit zero and the cooldown has elapsed
	RegenCooldownExpired
	// RegenTopUp means lives were below max with no cooldown pending
	RegenTopUp
)

func (r RegenReason) String() string {
	switch r {
	case RegenCooldownExpired:
		return "cooldown_expired"
	case RegenTopUp:
		return "top_up"
	default:
		return "none"
	}
}

// LoseLife takes one life, flooring at zero. Reaching zero from a positive
// value starts the cooldown; any other decrement clears a stale one.
func LoseLife(p models.Profile, now time.Time, cooldown time.Duration) models.Profile {
	previous := p.Lives
	if p.Lives > 0 {
		p.Lives--
	}

	switch {
	case p.Lives == 0 && previous > 0:
		resetAt := now.Add(cooldown)
		p.LivesResetAt = &resetAt
	case p.Lives > 0:
		p.LivesResetAt = nil
	}

	return p
}

// RegenerateLives refills lives to max when the cooldown has expired, or when
// lives are below max and no cooldown is pending.
func RegenerateLives(p models.Profile, now time.Time) (models.Profile, RegenReason) {
	if p.Lives == 0 && p.LivesResetAt != nil {
		if now.Before(*p.LivesResetAt) {
			return p, RegenNone
		}
		p.Lives = p.MaxLives
		p.LivesResetAt = nil
		return p, RegenCooldownExpired
	}

	if p.Lives < p.MaxLives && p.LivesResetAt == nil {
		p.Lives = p.MaxLives
		return p, RegenTopUp
	}

	return p, RegenNone
}

// CooldownRemaining reports how long until a depleted profile refills
func CooldownRemaining(p models.Profile, now time.Time) time.Duration {
	if p.Lives > 0 || p.LivesResetAt == nil {
		return 0
	}
	if remaining := p.LivesResetAt.Sub(now); remaining > 0 {
		return remaining
	}
	return 0
}

// RefillLives sets lives to max unconditionally and drops any pending cooldown
func RefillLives(p models.Profile) models.Profile {
	p.Lives = p.MaxLives
	p.LivesResetAt = nil
	return p
}
