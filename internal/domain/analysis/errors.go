package analysis

import (
	"errors"
	"fmt"
)

// FailedMessage is the only failure text shown to users.
const FailedMessage = "Failed to analyze content. Please try again."

// ErrAnalysisFailed wraps every failure of the model call or response parsing.
var ErrAnalysisFailed = errors.New(FailedMessage)

// ErrEmptyInput means the active mode has no input; scans are skipped silently.
var ErrEmptyInput = errors.New("analysis input is empty")

// ErrUnknownMode is returned for input modes outside text, image and link.
var ErrUnknownMode = errors.New("unknown input mode")

// ErrInvalidImage is returned when image input is not a base64 data URI.
var ErrInvalidImage = errors.New("image input must be a base64 data URI")

// ParseError reports model output that could not be promoted into a Result.
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse model output: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ErrQuotaExceeded indicates the AI provider returned a quota/limit error (HTTP 429 or similar).
var ErrQuotaExceeded = errors.New("ai quota exceeded")
