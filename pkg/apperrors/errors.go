package apperrors

import (
	"errors"
	"fmt"
)

var (
	ErrPatientNotFound    = errors.New("patient not found")
	ErrPlanNotFound       = errors.New("meal plan not found")
	ErrInvitationNotFound = errors.New("invitation not found")
	ErrAccessDenied       = errors.New("access denied")
	ErrConflict           = errors.New("conflict")
	ErrInvalidInput       = errors.New("invalid input")
)

// InsufficientRecipesError reports that a meal-type pool cannot cover a full
// week without repeats. Generation aborts and nothing is persisted.
type InsufficientRecipesError struct {
	MealType  string
	Required  int
	Available int
}

func (e *InsufficientRecipesError) Error() string {
	return fmt.Sprintf("not enough %s recipes: need %d, have %d", e.MealType, e.Required, e.Available)
}

// Shortfall is how many more recipes the pool needs.
func (e *InsufficientRecipesError) Shortfall() int {
	return e.Required - e.Available
}

// PersistenceError wraps a storage-layer failure during an atomic write.
// The transaction has already been rolled back by the time it propagates.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
