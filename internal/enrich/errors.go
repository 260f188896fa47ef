package enrich

import "errors"

// Common errors returned by the enrich package
var (
	// ErrInvalidConfig is returned when the executor configuration is invalid
	ErrInvalidConfig = errors.New("invalid executor configuration")

	// ErrUnknownKind is returned for requests with an unrecognized enrichment kind
	ErrUnknownKind = errors.New("unknown enrichment kind")

	// ErrEmptyPrompt is returned when a request payload carries no prompt text
	ErrEmptyPrompt = errors.New("prompt cannot be empty")

	// ErrInvalidResponse is returned when the model response cannot be used
	ErrInvalidResponse = errors.New("invalid response from model")
)
