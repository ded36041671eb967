package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainError_KindMatching(t *testing.T) {
	err := InvalidSubmission("scoring", "ScoreSorting", "totalItems must be positive")

	assert.True(t, IsInvalidSubmission(err))
	assert.False(t, IsInvalidQuery(err))
	assert.False(t, IsRetryable(err))
	assert.Equal(t, "scoring.ScoreSorting: totalItems must be positive", err.Error())
}

func TestDomainError_WrappedStoreFailureIsRetryable(t *testing.T) {
	cause := errors.New("connection reset")
	err := fmt.Errorf("record: %w", StoreUnavailable("stats", "RecordScore", cause))

	assert.True(t, IsRetryable(err))
	assert.ErrorIs(t, err, cause)
}

func TestWellKnownErrors(t *testing.T) {
	assert.True(t, IsNotFound(ErrUserNotFound))
	assert.True(t, IsNotFound(ErrNotRanked))
	assert.True(t, IsConflict(ErrEmailTaken))
	assert.True(t, IsForbidden(ErrSelfDelete))
	assert.True(t, IsInvalidSubmission(ErrDuplicateSubmission))
}

func TestMessage(t *testing.T) {
	assert.Equal(t, "user not found", Message(fmt.Errorf("x: %w", ErrUserNotFound)))
	assert.Equal(t, "unexpected error", Message(errors.New("raw")))
}
