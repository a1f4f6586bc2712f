package membership

import (
	"errors"
	"fmt"

	"github.com/xraph/membership/lock"
	"github.com/xraph/membership/types"
)

// Sentinel errors for caller-facing failures. None of them leaves any
// state changed.
var (
	ErrUnauthorized        = errors.New("membership: unauthorized")
	ErrAlreadyMember       = errors.New("membership: already a member")
	ErrNotAMember          = errors.New("membership: not a member")
	ErrInvalidTier         = errors.New("membership: invalid tier")
	ErrInsufficientPayment = errors.New("membership: insufficient payment")
	ErrInvalidArgument     = errors.New("membership: invalid argument")
	ErrNothingToWithdraw   = errors.New("membership: nothing to withdraw")
)

// Infrastructure errors.
var (
	ErrNotFound        = errors.New("membership: not found")
	ErrConflict        = errors.New("membership: journal position already taken")
	ErrNotStarted      = errors.New("membership: ledger not started")
	ErrStoreClosed     = errors.New("membership: store is closed")
	ErrOwnerMismatch   = errors.New("membership: configured owner does not match journal")
	ErrCorruptJournal  = errors.New("membership: journal cannot be applied")
	ErrLockNotObtained = lock.ErrNotObtained
)

// ValidationError describes a rejected argument. It matches ErrInvalidArgument.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("membership: invalid %s: %s", e.Field, e.Message)
}

// Unwrap lets errors.Is match ErrInvalidArgument.
func (e ValidationError) Unwrap() error { return ErrInvalidArgument }

// PaymentError reports how much was required versus offered.
// It matches ErrInsufficientPayment.
type PaymentError struct {
	Required types.Money
	Offered  types.Money
}

func (e *PaymentError) Error() string {
	return fmt.Sprintf("membership: insufficient payment: required %s, offered %s", e.Required, e.Offered)
}

// Unwrap lets errors.Is match ErrInsufficientPayment.
func (e *PaymentError) Unwrap() error { return ErrInsufficientPayment }

func invalid(field, format string, args ...any) error {
	return ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// IsCallerError reports whether err is one of the domain rejections a
// caller can act on, as opposed to an infrastructure failure.
func IsCallerError(err error) bool {
	return errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrAlreadyMember) ||
		errors.Is(err, ErrNotAMember) ||
		errors.Is(err, ErrInvalidTier) ||
		errors.Is(err, ErrInsufficientPayment) ||
		errors.Is(err, ErrInvalidArgument) ||
		errors.Is(err, ErrNothingToWithdraw)
}

// IsRetryable reports whether the operation may succeed if simply retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrLockNotObtained)
}

// IsNotFound reports whether err means a lookup found nothing.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrNotAMember)
}
