package pricing

import (
	"errors"
	"fmt"

	"github.com/compass-hr/pricing-engine/internal/model"
)

// Code identifies an error class surfaced to callers.
type Code string

const (
	CodeValidation        Code = "VALIDATION_ERROR"
	CodeNoMatches         Code = "NO_MATCHES"
	CodeNoDataAvailable   Code = "NO_DATA_AVAILABLE"
	CodeSourceUnavailable Code = "SOURCE_UNAVAILABLE"
	CodeCacheConflict     Code = "CACHE_WRITE_CONFLICT"
	CodeInternal          Code = "INTERNAL_ERROR"
)

// Error is the taxonomy error surfaced by the engine. NO_MATCHES and
// NO_DATA_AVAILABLE carry whatever partial matches exist so the caller can
// suggest refinements.
type Error struct {
	Code        Code
	Message     string
	MatchedJobs []model.MatchedJob
	Err         error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// NewValidationError marks malformed input, rejected before any lookup.
func NewValidationError(err error) *Error {
	return &Error{Code: CodeValidation, Message: "invalid pricing request", Err: err}
}

// NewNoMatchError reports that no canonical title cleared the similarity floor.
func NewNoMatchError(title string) *Error {
	return &Error{
		Code:    CodeNoMatches,
		Message: fmt.Sprintf("no benchmark jobs matched %q; try a simpler title or different filters", title),
	}
}

// NewNoDataError reports that jobs matched but no source had usable data.
func NewNoDataError(matches []model.MatchedJob) *Error {
	return &Error{
		Code:        CodeNoDataAvailable,
		Message:     "matched benchmark jobs have no usable salary data",
		MatchedJobs: matches,
	}
}

// CodeOf extracts the taxonomy code from any error in the chain, defaulting
// to CodeInternal.
func CodeOf(err error) Code {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Code
	}
	return CodeInternal
}

// PartialMatches returns the matches attached to a taxonomy error, if any.
func PartialMatches(err error) []model.MatchedJob {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.MatchedJobs
	}
	return nil
}
