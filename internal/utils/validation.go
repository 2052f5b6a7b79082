package utils

import (
	"fmt"
	"regexp"
	"strings"
)

// MaxPointsPerRequest bounds a single add or remove so a typo cannot overflow a balance
const MaxPointsPerRequest = 1_000_000

var slugRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9\-]{0,63}$`)

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateSlug checks a catalog id such as a quest or shop item id
func ValidateSlug(field, value string) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return ValidationError{Field: field, Message: field + " is required"}
	}
	if !slugRegex.MatchString(value) {
		return ValidationError{Field: field, Message: "invalid " + field}
	}
	return nil
}

// ValidateAmount checks a points amount from a request body
func ValidateAmount(amount int) error {
	if amount < 0 {
		return ValidationError{Field: "amount", Message: "amount must not be negative"}
	}
	if amount > MaxPointsPerRequest {
		return ValidationError{Field: "amount", Message: fmt.Sprintf("amount must be at most %d", MaxPointsPerRequest)}
	}
	return nil
}

// ValidateAnswerIndex checks that an answer was supplied
func ValidateAnswerIndex(index *int) error {
	if index == nil {
		return ValidationError{Field: "answerIndex", Message: "answerIndex is required"}
	}
	if *index < 0 {
		return ValidationError{Field: "answerIndex", Message: "answerIndex must not be negative"}
	}
	return nil
}
