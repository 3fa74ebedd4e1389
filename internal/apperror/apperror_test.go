package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIs_MatchesByCode(t *testing.T) {
	err := ErrUnauthorized.WithMessage("Admin not found or inactive")

	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.NotErrorIs(t, err, ErrInvalidToken)
}

func TestWrap_KeepsSentinelUntouched(t *testing.T) {
	cause := errors.New("disk on fire")
	err := ErrInternal.Wrap(cause)

	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, ErrInternal)
	assert.Nil(t, ErrInternal.Err, "sentinel must not be mutated")
}

func TestFrom(t *testing.T) {
	wrapped := fmt.Errorf("login: %w", ErrInvalidCredentials)

	e := From(wrapped)
	assert.Equal(t, CodeInvalidCredentials, e.Code)
	assert.Equal(t, http.StatusUnauthorized, e.Status)

	plain := From(errors.New("boom"))
	require.NotNil(t, plain)
	assert.Equal(t, CodeInternal, plain.Code)
	assert.Equal(t, http.StatusInternalServerError, plain.Status)
	assert.Equal(t, "Internal server error", plain.Message)
}

func TestStatuses(t *testing.T) {
	tests := map[*Error]int{
		ErrValidation:         http.StatusBadRequest,
		ErrUnauthorized:       http.StatusUnauthorized,
		ErrInvalidCredentials: http.StatusUnauthorized,
		ErrInvalidToken:       http.StatusUnauthorized,
		ErrTokenExpired:       http.StatusUnauthorized,
		ErrInvalidInitData:    http.StatusUnauthorized,
		ErrInitDataExpired:    http.StatusUnauthorized,
		ErrNoUserData:         http.StatusUnauthorized,
		ErrForbidden:          http.StatusForbidden,
		ErrNotFound:           http.StatusNotFound,
		ErrInternal:           http.StatusInternalServerError,
		ErrConfiguration:      http.StatusInternalServerError,
	}
	for e, want := range tests {
		assert.Equal(t, want, e.Status, e.Code)
	}
}
