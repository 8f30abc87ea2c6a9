package errors

import (
	"errors"
	"fmt"
)

// Common error types for the storefront
var (
	// Session errors
	ErrInvalidToken    = errors.New("invalid token")
	ErrSessionExpired  = errors.New("session expired")
	ErrUnauthenticated = errors.New("not authenticated")

	// Transport errors
	ErrNetworkFailure = errors.New("network failure")

	// Client storage errors
	ErrStorageParse = errors.New("stored data could not be parsed")
	ErrNotFound     = errors.New("not found")
	ErrSealed       = errors.New("sealed value could not be opened")

	// Cart and checkout errors
	ErrInvalidItem        = errors.New("invalid cart item")
	ErrEmptyCart          = errors.New("cart is empty")
	ErrNoPendingPurchase  = errors.New("no pending purchase")
	ErrMissingAddress     = errors.New("shipping address required")
	ErrPaymentUnavailable = errors.New("payment provider did not return a redirect url")

	// General errors
	ErrInvalidRequest = errors.New("invalid request")
	ErrInternal       = errors.New("internal error")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// New is errors.New, re-exported so callers need a single errors import
func New(text string) error {
	return errors.New(text)
}
