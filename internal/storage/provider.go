package storage

import (
	"context"
	"errors"
)

// ErrNoCredentials is returned when no account is configured.
var ErrNoCredentials = errors.New("no credentials stored")

// Provider is the storage collaborator used by discovery and authentication.
type Provider interface {
	// Session returns the stored session token, or "" when there is none.
	Session(ctx context.Context) (string, error)

	// SetSession replaces the stored session token.
	SetSession(ctx context.Context, token string) error

	// LastSuccessfulAddress records a candidate URL that answered discovery.
	LastSuccessfulAddress(ctx context.Context, addr string) error

	// LastSuccessfulAddresses returns recorded candidate URLs, most recent first.
	LastSuccessfulAddresses(ctx context.Context) ([]string, error)

	// Email returns the account email, or "" when unset.
	Email(ctx context.Context) (string, error)

	// Password returns the account password, or "" when unset.
	Password(ctx context.Context) (string, error)
}

// CredentialWriter accepts new account credentials, typically submitted by
// a user after the device asked for a login.
type CredentialWriter interface {
	SetCredentials(ctx context.Context, email, password string) error
}

// Credentials is a device account.
type Credentials struct {
	Email    string
	Password string
}

// LoadCredentials reads both credential fields from p.
func LoadCredentials(ctx context.Context, p Provider) (Credentials, error) {
	email, err := p.Email(ctx)
	if err != nil {
		return Credentials{}, err
	}
	password, err := p.Password(ctx)
	if err != nil {
		return Credentials{}, err
	}
	if email == "" || password == "" {
		return Credentials{}, ErrNoCredentials
	}
	return Credentials{Email: email, Password: password}, nil
}

// SessionTokenSource adapts p to a token lookup that swallows errors,
// which is what outgoing HTTP requests need.
func SessionTokenSource(p Provider) func(ctx context.Context) string {
	return func(ctx context.Context) string {
		token, err := p.Session(ctx)
		if err != nil {
			return ""
		}
		return token
	}
}
