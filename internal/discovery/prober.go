package discovery

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/viewtl/viewlink/internal/api"
)

// Prober asks one base URL where the device's socket lives.
type Prober interface {
	Probe(ctx context.Context, baseURL string) (api.AddressResponse, error)
}

// ProberFunc adapts a function to Prober.
type ProberFunc func(ctx context.Context, baseURL string) (api.AddressResponse, error)

func (f ProberFunc) Probe(ctx context.Context, baseURL string) (api.AddressResponse, error) {
	return f(ctx, baseURL)
}

// HTTPProber probes over HTTP, attaching the stored session when one exists.
type HTTPProber struct {
	httpClient *http.Client
	token      api.TokenSource
	logger     *slog.Logger
}

// NewHTTPProber creates an HTTPProber. Per-probe deadlines come from the
// context, so httpClient should not carry a shorter timeout.
func NewHTTPProber(httpClient *http.Client, token api.TokenSource, logger *slog.Logger) *HTTPProber {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPProber{
		httpClient: httpClient,
		token:      token,
		logger:     logger,
	}
}

// Probe issues GET <baseURL>socket/address.
func (p *HTTPProber) Probe(ctx context.Context, baseURL string) (api.AddressResponse, error) {
	opts := []api.ClientOption{
		api.WithHTTPClient(p.httpClient),
		api.WithLogger(p.logger),
	}
	if p.token != nil {
		opts = append(opts, api.WithTokenSource(p.token))
	}
	return api.NewClient(baseURL, opts...).SocketAddress(ctx)
}
