package api

import (
	"context"
	"errors"
)

// LoginPath is the credential exchange endpoint, relative to the base URL.
const LoginPath = "api/login"

// ErrEmptySession is returned when a login succeeds without a token.
var ErrEmptySession = errors.New("login response has no session")

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Session string `json:"session"`
}

// Login exchanges credentials for a session token.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	var resp loginResponse
	if err := c.post(ctx, LoginPath, loginRequest{Email: email, Password: password}, &resp); err != nil {
		return "", err
	}
	if resp.Session == "" {
		return "", ErrEmptySession
	}

	c.logger.Debug("login succeeded", "base_url", c.baseURL)
	return resp.Session, nil
}
