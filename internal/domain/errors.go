package domain

import "errors"

// Validation errors are produced before any provider activity.
var (
	// ErrEmptyPrompt indicates a generation or comparison with no prompt text.
	ErrEmptyPrompt = errors.New("prompt cannot be empty")

	// ErrInvalidRequest indicates a request field outside its allowed range.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrTooFewModels indicates a comparison with fewer than two models.
	ErrTooFewModels = errors.New("at least 2 models are required for comparison")
)

// Operation state errors.
var (
	// ErrComparisonInFlight indicates a comparison was triggered while a
	// previous one had not resolved.
	ErrComparisonInFlight = errors.New("comparison already in progress")

	// ErrSuperseded indicates a generation finished after a newer one had
	// already been issued; its result is dropped.
	ErrSuperseded = errors.New("generation superseded by a newer request")

	// ErrTimedOut indicates a long-running generation exceeded its wall-clock
	// budget. The operation may still complete on the provider side.
	ErrTimedOut = errors.New("generation timed out")

	// ErrCandidateIndex indicates a selection outside the candidate set.
	ErrCandidateIndex = errors.New("candidate index out of range")
)
