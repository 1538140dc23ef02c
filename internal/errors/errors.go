package errors

import (
	"errors"
	"fmt"
)

// Common error types for the meeting front end
var (
	// Authentication errors
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrSessionExpired   = errors.New("session expired")
	ErrSessionLoading   = errors.New("session state not yet resolved")
	ErrExchangeFailed   = errors.New("authorization code exchange failed")
	ErrSignInFailed     = errors.New("sign in failed")

	// Cookie errors
	ErrInvalidDomain  = errors.New("invalid cookie domain")
	ErrMalformedValue = errors.New("malformed cookie value")

	// Room errors
	ErrInvalidRoomID = errors.New("invalid room identifier")

	// Widget errors
	ErrScriptLoadFailed  = errors.New("conferencing script failed to load")
	ErrWidgetUnavailable = errors.New("conferencing API unavailable")
	ErrWidgetActive      = errors.New("widget already active")
	ErrConnectionFailed  = errors.New("failed to connect to meeting server")
	ErrViewUnmounted     = errors.New("meeting view unmounted")

	// General errors
	ErrNotFound = errors.New("not found")
	ErrInternal = errors.New("internal error")
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
