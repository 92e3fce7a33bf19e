// Package errors holds the error taxonomy shared by the storefront stores and
// the HTTP adapter. Every store operation either completes or returns one of
// these types (possibly wrapped) with its collection left untouched.
package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrAuthenticationRequired is returned when an operation needs a signed-in session.
type ErrAuthenticationRequired struct {
	Action string
}

func (e *ErrAuthenticationRequired) Error() string {
	if e.Action == "" {
		return "authentication required"
	}
	return fmt.Sprintf("authentication required to %s", e.Action)
}

// ErrUnauthorized is returned when supplied credentials are rejected.
type ErrUnauthorized struct {
	Message string
}

func (e *ErrUnauthorized) Error() string {
	return e.Message
}

// ErrPermissionDenied is returned when a capability check fails.
type ErrPermissionDenied struct {
	Action string
}

func (e *ErrPermissionDenied) Error() string {
	return fmt.Sprintf("permission denied: %s", e.Action)
}

// ErrNotFound is returned when the target of an operation does not exist.
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrValidationFailed is returned for form-level input problems.
type ErrValidationFailed struct {
	Field   string
	Message string
}

func (e *ErrValidationFailed) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ErrVerificationMismatch is returned when a submitted code does not match the stored one.
type ErrVerificationMismatch struct{}

func (e *ErrVerificationMismatch) Error() string {
	return "verification code does not match"
}

// ErrInvalidStateTransition is returned when a status change is not allowed.
type ErrInvalidStateTransition struct {
	From interface{}
	To   interface{}
}

func (e *ErrInvalidStateTransition) Error() string {
	return fmt.Sprintf("invalid state transition from %v to %v", e.From, e.To)
}

// IsAuthenticationRequired reports whether err wraps an ErrAuthenticationRequired.
func IsAuthenticationRequired(err error) bool {
	var target *ErrAuthenticationRequired
	return stderrors.As(err, &target)
}

// IsUnauthorized reports whether err wraps an ErrUnauthorized.
func IsUnauthorized(err error) bool {
	var target *ErrUnauthorized
	return stderrors.As(err, &target)
}

// IsPermissionDenied reports whether err wraps an ErrPermissionDenied.
func IsPermissionDenied(err error) bool {
	var target *ErrPermissionDenied
	return stderrors.As(err, &target)
}

// IsNotFound reports whether err wraps an ErrNotFound.
func IsNotFound(err error) bool {
	var target *ErrNotFound
	return stderrors.As(err, &target)
}

// IsValidationFailed reports whether err wraps an ErrValidationFailed.
func IsValidationFailed(err error) bool {
	var target *ErrValidationFailed
	return stderrors.As(err, &target)
}

// IsVerificationMismatch reports whether err wraps an ErrVerificationMismatch.
func IsVerificationMismatch(err error) bool {
	var target *ErrVerificationMismatch
	return stderrors.As(err, &target)
}

// IsInvalidStateTransition reports whether err wraps an ErrInvalidStateTransition.
func IsInvalidStateTransition(err error) bool {
	var target *ErrInvalidStateTransition
	return stderrors.As(err, &target)
}
