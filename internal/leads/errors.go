package leads

import "errors"

var (
	// ErrInvalidName is returned when the name is invalid
	ErrInvalidName = errors.New("name is required")

	// ErrMissingContact is returned when both email and phone are missing
	ErrMissingContact = errors.New("either email or phone is required")

	// ErrInvalidEmail is returned for malformed email addresses
	ErrInvalidEmail = errors.New("email address is invalid")

	// ErrInvalidSource is returned for unknown lead sources
	ErrInvalidSource = errors.New("source must be one of web, chat, photo, questionnaire")

	// ErrLeadNotFound is returned when a lead is not found
	ErrLeadNotFound = errors.New("lead not found")
)
