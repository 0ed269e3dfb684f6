package auth

import (
	"errors"
	"fmt"
)

// ErrAuthRejected matches AuthErrors that need new credentials before a
// retry can succeed.
var ErrAuthRejected = errors.New("authentication rejected")

// Kind classifies an authentication failure.
type Kind int

const (
	KindMissingCredentials Kind = iota // No email or password stored
	KindRejected                       // Device refused the credentials or still wants a login
	KindNetwork                        // Transport failure or server error
	KindMalformed                      // Device answered with an unexpected body
	KindStorage                        // Session could not be loaded or saved
)

// String returns a human-readable kind name.
func (k Kind) String() string {
	switch k {
	case KindMissingCredentials:
		return "missing_credentials"
	case KindRejected:
		return "rejected"
	case KindNetwork:
		return "network"
	case KindMalformed:
		return "malformed"
	case KindStorage:
		return "storage"
	default:
		return "unknown"
	}
}

// AuthError is returned by Gate.Authenticate.
type AuthError struct {
	Kind    Kind
	FromURL string
	Err     error
}

func (e *AuthError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("auth %s at %s", e.Kind, e.FromURL)
	}
	return fmt.Sprintf("auth %s at %s: %v", e.Kind, e.FromURL, e.Err)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// Is reports whether e is a rejection. Only KindRejected and
// KindMissingCredentials match ErrAuthRejected.
func (e *AuthError) Is(target error) bool {
	if target != ErrAuthRejected {
		return false
	}
	return e.Kind == KindRejected || e.Kind == KindMissingCredentials
}
