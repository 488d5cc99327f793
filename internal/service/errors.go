package service

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a medication id does not exist
	ErrNotFound = errors.New("not found")
	// ErrAssistantUnavailable is returned when no assistant credentials are configured
	ErrAssistantUnavailable = errors.New("assistant is not configured")
	// ErrAssistantQuota is returned when the model rejects a call for quota or credentials
	ErrAssistantQuota = errors.New("assistant quota exceeded or credentials rejected")
	// ErrAssistantFailed wraps any other failed model call
	ErrAssistantFailed = errors.New("assistant call failed")
	// ErrFlowCancelled is returned when an add or edit flow was dismissed
	// while its assistant call was outstanding
	ErrFlowCancelled = errors.New("flow was cancelled")
	// ErrInsufficientPoints is returned when a theme costs more than the current points
	ErrInsufficientPoints = errors.New("insufficient points")
	// ErrThemeUnknown is returned for theme ids outside the catalogue
	ErrThemeUnknown = errors.New("unknown theme")
	// ErrThemeLocked is returned when selecting a theme that was not unlocked
	ErrThemeLocked = errors.New("theme is locked")
	// ErrShareUnavailable is returned when no report storage is configured
	ErrShareUnavailable = errors.New("report sharing is not configured")
	// ErrInvalidInput is returned for requests that fail validation
	ErrInvalidInput = errors.New("invalid input")
)

// RejectionError is a user-correctable rejection of an instruction, for
// example when the text does not name a real medication.
type RejectionError struct {
	Reason string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("instruction rejected: %s", e.Reason)
}

// IsRejection reports whether err carries a RejectionError
func IsRejection(err error) (*RejectionError, bool) {
	var rej *RejectionError
	if errors.As(err, &rej) {
		return rej, true
	}
	return nil, false
}
