// Package shared contains common domain types, errors and events
// that are used across all domain packages. This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned across a package boundary matches exactly
// one of these with errors.Is().
var (
	// ErrInvalidSubmission: malformed or out-of-range game payload, replayed
	// idempotency token, or an unclaimable challenge. Not retryable.
	ErrInvalidSubmission = errors.New("invalid submission")

	// ErrInvalidQuery: bad pagination, filter or search input. Not retryable.
	ErrInvalidQuery = errors.New("invalid query")

	// ErrNotFound: unknown user, question or record.
	ErrNotFound = errors.New("not found")

	// ErrStoreUnavailable: the underlying store failed to complete a transaction.
	// The caller may retry.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrConflict: a uniqueness rule was violated (e.g. duplicate email).
	ErrConflict = errors.New("conflict")

	// ErrForbidden: the caller is not allowed to perform the operation.
	ErrForbidden = errors.New("forbidden")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "scoring", "stats", "leaderboard"
	Op      string // Operation that failed, e.g., "ScoreQuiz", "RecordScore"
	Kind    error  // One of the kind sentinels above
	Message string // Human-readable message, safe to show to the end user
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// InvalidSubmission builds an ErrInvalidSubmission error with a formatted message.
func InvalidSubmission(domain, op, format string, args ...any) *DomainError {
	return NewDomainError(domain, op, ErrInvalidSubmission, fmt.Sprintf(format, args...))
}

// InvalidQuery builds an ErrInvalidQuery error with a formatted message.
func InvalidQuery(domain, op, format string, args ...any) *DomainError {
	return NewDomainError(domain, op, ErrInvalidQuery, fmt.Sprintf(format, args...))
}

// StoreUnavailable wraps a storage failure.
func StoreUnavailable(domain, op string, err error) *DomainError {
	return WrapError(domain, op, ErrStoreUnavailable, "store unavailable", err)
}

// Well-known errors.
var (
	ErrUserNotFound        = NewDomainError("user", "Find", ErrNotFound, "user not found")
	ErrEmailTaken          = NewDomainError("user", "Register", ErrConflict, "email is already registered")
	ErrStudentIDTaken      = NewDomainError("user", "Register", ErrConflict, "student id is already registered")
	ErrNotRanked           = NewDomainError("leaderboard", "Rank", ErrNotFound, "user is not ranked")
	ErrQuestionNotFound    = NewDomainError("scoring", "AnswerKey", ErrNotFound, "question not found")
	ErrDuplicateSubmission = NewDomainError("stats", "RecordScore", ErrInvalidSubmission, "submission already recorded")
	ErrAdminRequired       = NewDomainError("user", "Authorize", ErrForbidden, "admin role required")
	ErrSelfDelete          = NewDomainError("user", "Delete", ErrForbidden, "cannot delete your own account")
)

// IsInvalidSubmission checks if the error is an invalid submission.
func IsInvalidSubmission(err error) bool {
	return errors.Is(err, ErrInvalidSubmission)
}

// IsInvalidQuery checks if the error is an invalid query.
func IsInvalidQuery(err error) bool {
	return errors.Is(err, ErrInvalidQuery)
}

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflict checks if the error is a uniqueness conflict.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsForbidden checks if the error is an authorization failure.
func IsForbidden(err error) bool {
	return errors.Is(err, ErrForbidden)
}

// IsRetryable checks if the operation can be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable)
}

// Message returns the user-facing message of a DomainError, or a generic text.
func Message(err error) string {
	var de *DomainError
	if errors.As(err, &de) && de.Message != "" {
		return de.Message
	}
	return "unexpected error"
}
