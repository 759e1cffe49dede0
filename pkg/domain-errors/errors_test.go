package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAndWrap(t *testing.T) {
	err := New(CodeNotFound, "user not found")
	assert.Equal(t, "user not found", err.Error())
	assert.True(t, HasCode(err, CodeNotFound))
	assert.False(t, HasCode(err, CodeConflict))

	cause := errors.New("connection refused")
	wrapped := Wrap(cause, CodeInternal, "failed to load user")
	require.Error(t, wrapped)
	assert.True(t, HasCode(wrapped, CodeInternal))
	assert.ErrorIs(t, wrapped, cause, "the cause stays reachable for errors.Is")
	assert.Equal(t, "failed to load user: connection refused", wrapped.Error())

	assert.NoError(t, Wrap(nil, CodeInternal, "ignored"))
}

func TestHasCodeSeesThroughWrapping(t *testing.T) {
	inner := New(CodeConflict, "email already registered")
	outer := fmt.Errorf("register: %w", inner)
	assert.True(t, HasCode(outer, CodeConflict))
	assert.True(t, Is(outer, CodeConflict))
	assert.False(t, Is(errors.New("plain"), CodeConflict))
}

func TestMessage(t *testing.T) {
	assert.Equal(t, "email already registered", Message(New(CodeConflict, "email already registered")))
	assert.Equal(t, "internal error", Message(errors.New("pq: relation does not exist")),
		"uncoded errors never leak their text")
}

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		code Code
		want int
	}{
		{CodeValidation, http.StatusBadRequest},
		{CodeInvalidInput, http.StatusBadRequest},
		{CodeBadRequest, http.StatusBadRequest},
		{CodeUnauthorized, http.StatusUnauthorized},
		{CodeForbidden, http.StatusForbidden},
		{CodeNotFound, http.StatusNotFound},
		{CodeConflict, http.StatusConflict},
		{CodeUnavailable, http.StatusServiceUnavailable},
		{CodeInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ToHTTPStatus(tt.code), string(tt.code))
	}

	assert.Equal(t, http.StatusNotFound, StatusOf(New(CodeNotFound, "nope")))
	assert.Equal(t, http.StatusInternalServerError, StatusOf(errors.New("uncoded")))
}
