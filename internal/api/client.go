package api

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// SessionHeader carries the session token on authenticated requests.
const SessionHeader = "x-view-session"

// TokenSource returns the current session token, or "" when there is none.
type TokenSource func(ctx context.Context) string

// Client provides access to one device's HTTP API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
	token      TokenSource
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// NewClient creates a new device API client. baseURL is normalised to end in "/".
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: NormalizeBaseURL(baseURL),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTokenSource attaches a session token lookup to every request.
func WithTokenSource(ts TokenSource) ClientOption {
	return func(c *Client) {
		c.token = ts
	}
}

// WithSession attaches a fixed session token to every request.
func WithSession(token string) ClientOption {
	return WithTokenSource(func(context.Context) string { return token })
}

// NormalizeBaseURL trims whitespace and guarantees a trailing slash.
func NormalizeBaseURL(u string) string {
	u = strings.TrimSpace(u)
	if u == "" || strings.HasSuffix(u, "/") {
		return u
	}
	return u + "/"
}
