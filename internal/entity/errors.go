package entity

import "errors"

// Domain errors
var (
	// Session errors
	ErrSessionNotFound      = errors.New("session not found")
	ErrInvalidSessionStage  = errors.New("invalid session stage")
	ErrGenerationInProgress = errors.New("generation in progress, please wait")

	// Page errors
	ErrPageNotFound       = errors.New("page not found")
	ErrPageStructureEmpty = errors.New("page structure contains no pages")

	// Resource errors
	ErrInvalidResource  = errors.New("invalid resource")
	ErrResourceTooLarge = errors.New("resource too large")

	// Validation errors
	ErrMissingField     = errors.New("required field is missing")
	ErrInvalidParameter = errors.New("invalid parameter")
)
