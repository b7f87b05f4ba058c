package usecase

import "errors"

// Sentinel errors for the use case layer
var (
	// ErrInvalidLevel rejects confidence input outside 1-10. Recovered locally
	// with a re-prompt, never sent to the backend.
	ErrInvalidLevel = errors.New("confidence level must be a number from 1 to 10")

	ErrPlanNotFound = errors.New("plan not found")

	// ErrConfirmationRequired gates the destructive clear-all operation.
	ErrConfirmationRequired = errors.New("confirmation required")
)

// Context keys for error values
const (
	ScopeKey  = "scope"
	PlanIDKey = "plan_id"
)
