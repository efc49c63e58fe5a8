package models

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppErrorUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewStoreError(cause)

	assert.ErrorIs(t, err, cause)

	var appErr *AppError
	require.ErrorAs(t, fmt.Errorf("fetching user: %w", err), &appErr)
	assert.Equal(t, "STORE_UNAVAILABLE", appErr.Code)
}

func TestErrorKindHelpers(t *testing.T) {
	assert.True(t, IsNotFound(NewNotFoundError("User", "u1")))
	assert.False(t, IsNotFound(NewConflictError("taken")))
	assert.True(t, IsConflict(NewConflictError("taken")))
	assert.False(t, IsConflict(errors.New("plain")))

	// Wrapped errors are still recognized.
	wrapped := fmt.Errorf("follow: %w", NewNotFoundError("User", "u2"))
	assert.True(t, IsNotFound(wrapped))
}

func TestFanoutError(t *testing.T) {
	fe := &FanoutError{
		Op:     "add_tag",
		PostID: "p1",
		Failures: map[string]error{
			"u3": errors.New("timeout"),
			"u1": errors.New("conflict"),
		},
	}

	assert.Equal(t, []string{"u1", "u3"}, fe.FailedUserIDs())
	assert.Contains(t, fe.Error(), "p1")

	appErr := NewPartialFanoutError(fe)
	assert.Equal(t, "PARTIAL_FANOUT_FAILURE", appErr.Code)

	var unwrapped *FanoutError
	require.ErrorAs(t, appErr, &unwrapped)
	assert.Equal(t, fe, unwrapped)
}
