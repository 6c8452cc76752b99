package common

import (
	"errors"
	"fmt"
)

// Sentinel errors shared between the OTP guard, the reading pipeline and the
// HTTP layer. Handlers map these onto HTTP statuses; everything that is not
// one of the types below is treated as transient by the worker.
var (
	// ErrThrottled marks a blocked phone number or an active send cooldown.
	ErrThrottled = errors.New("too many requests")

	// ErrOTPNotFound means no code is stored for the phone (expired or never sent).
	ErrOTPNotFound = errors.New("otp expired or not found")

	// ErrNotFound is a generic missing-record error for readings and features.
	ErrNotFound = errors.New("not found")
)

// InvalidCodeError is returned on a wrong OTP code while attempts remain.
type InvalidCodeError struct {
	Remaining int
}

func (e *InvalidCodeError) Error() string {
	return fmt.Sprintf("invalid otp code, %d attempts remaining", e.Remaining)
}

// ValidationError rejects malformed input before any entity is persisted.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func Validationf(format string, args ...any) *ValidationError {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// InvocationError is a clean business failure from the model client. It is
// recorded on the reading and never retried: re-running the same prompt
// against a misconfigured feature will not succeed.
type InvocationError struct {
	Msg string
}

func (e *InvocationError) Error() string { return e.Msg }

func IsInvocation(err error) bool {
	var ie *InvocationError
	return errors.As(err, &ie)
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
