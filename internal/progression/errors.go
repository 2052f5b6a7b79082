package progression

import "errors"

var (
	// ErrUnauthorized is returned when an operation has no authenticated user
	ErrUnauthorized = errors.New("unauthorized")
	// ErrStore wraps every failure of the underlying store; callers may retry
	ErrStore = errors.New("progression store failure")
	// ErrConflict is returned when a profile kept changing underneath an update
	ErrConflict = errors.New("profile update conflict")
	// ErrInvalidAmount is returned for negative point amounts
	ErrInvalidAmount = errors.New("amount must not be negative")
	// ErrInsufficientPoints is returned when a spend exceeds the balance
	ErrInsufficientPoints = errors.New("insufficient points")
	// ErrInvalidQuest is returned for an empty quest id
	ErrInvalidQuest = errors.New("quest id is required")
	// ErrUnknownAchievement is returned for ids missing from the catalog
	ErrUnknownAchievement = errors.New("unknown achievement")
)
