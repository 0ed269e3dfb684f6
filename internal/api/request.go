package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/viewtl/viewlink/internal/version"
)

// ErrMalformedResponse is returned when a 2xx body is not the expected JSON.
var ErrMalformedResponse = errors.New("malformed response")

// MaxResponseSize caps how much of a response body is read. Discovery
// probes arbitrary LAN hosts, and device replies are tiny.
const MaxResponseSize = 8 << 10

// APIError represents an error status returned by the device.
type APIError struct {
	StatusCode int
	Message    string
	Body       []byte
}

func (e *APIError) Error() string {
	return fmt.Sprintf("view api error %d: %s", e.StatusCode, e.Message)
}

// IsAuthFailure returns true if the device refused the credentials or session.
func (e *APIError) IsAuthFailure() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500
}

// doRequest performs an HTTP request with the given method, path and optional JSON body.
func (c *Client) doRequest(ctx context.Context, method, path string, payload any) ([]byte, error) {
	fullURL := c.baseURL + strings.TrimPrefix(path, "/")

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())
	if c.token != nil {
		if token := c.token(ctx); token != "" {
			req.Header.Set(SessionHeader, token)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize+1))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	oversized := len(respBody) > MaxResponseSize
	if oversized {
		respBody = respBody[:MaxResponseSize]
	}

	if resp.StatusCode >= 300 {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    http.StatusText(resp.StatusCode),
			Body:       respBody,
		}
	}
	if oversized {
		return nil, fmt.Errorf("%w: body exceeds %d bytes", ErrMalformedResponse, MaxResponseSize)
	}

	return respBody, nil
}

// get performs a GET request and decodes the JSON response.
func (c *Client) get(ctx context.Context, path string, result any) error {
	body, err := c.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}

	return nil
}

// post performs a POST request with a JSON body and decodes the JSON response.
func (c *Client) post(ctx context.Context, path string, payload, result any) error {
	body, err := c.doRequest(ctx, http.MethodPost, path, payload)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}

	return nil
}
