package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPredicatesSeeThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("cancel order: %w", &ErrNotFound{Resource: "order", ID: "o-1"})

	assert.True(t, IsNotFound(wrapped))
	assert.False(t, IsPermissionDenied(wrapped))
	assert.Equal(t, "cancel order: order not found: o-1", wrapped.Error())
}

func TestErrorMessages(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{&ErrAuthenticationRequired{}, "authentication required"},
		{&ErrAuthenticationRequired{Action: "request a seller account"}, "authentication required to request a seller account"},
		{&ErrPermissionDenied{Action: "approve seller requests"}, "permission denied: approve seller requests"},
		{&ErrValidationFailed{Field: "password", Message: "must be at least 6 characters"}, "password: must be at least 6 characters"},
		{&ErrValidationFailed{Message: "passwords do not match"}, "passwords do not match"},
		{&ErrVerificationMismatch{}, "verification code does not match"},
		{&ErrInvalidStateTransition{From: "delivered", To: "cancelled"}, "invalid state transition from delivered to cancelled"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, tc.err.Error())
	}
}

func TestEachPredicateMatchesItsType(t *testing.T) {
	assert.True(t, IsAuthenticationRequired(&ErrAuthenticationRequired{}))
	assert.True(t, IsUnauthorized(&ErrUnauthorized{Message: "bad password"}))
	assert.True(t, IsPermissionDenied(&ErrPermissionDenied{}))
	assert.True(t, IsValidationFailed(&ErrValidationFailed{}))
	assert.True(t, IsVerificationMismatch(&ErrVerificationMismatch{}))
	assert.True(t, IsInvalidStateTransition(&ErrInvalidStateTransition{}))
	assert.False(t, IsNotFound(nil))
}
