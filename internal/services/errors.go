package services

import "errors"

// Survey service errors
var (
	// Upload errors
	ErrEmptyUpload  = errors.New("no file content in upload")
	ErrMissingState = errors.New("state name is required")

	// Export errors
	ErrUnknownExportFormat = errors.New("unknown export format")

	// Auth errors
	ErrInvalidCredentials = errors.New("unauthorized: invalid username or password")

	// General errors
	ErrInvalidInput = errors.New("invalid input")
)
