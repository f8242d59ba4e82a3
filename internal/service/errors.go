package service

import "errors"

var (
	// ErrUnauthorized means the policy registry denied the action. It never says which rule failed.
	ErrUnauthorized = errors.New("permission denied")
	// ErrUnauthenticated means the caller has no usable identity
	ErrUnauthenticated = errors.New("authentication required")
	ErrNotFound        = errors.New("not found")
	// ErrInsufficientInventory means fewer unallocated tickets remain than requested
	ErrInsufficientInventory = errors.New("not enough tickets left")
	// ErrNotRedeemable covers a missing ticket, a ticket owned by someone else and a used ticket alike
	ErrNotRedeemable = errors.New("ticket cannot be redeemed")
	// ErrConflict means allocation lost every retry to concurrent buyers
	ErrConflict   = errors.New("booking conflict, please retry")
	ErrValidation = errors.New("invalid input")
	ErrDuplicate  = errors.New("already exists")
)
