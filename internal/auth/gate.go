package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/viewtl/viewlink/internal/api"
	"github.com/viewtl/viewlink/internal/discovery"
	"github.com/viewtl/viewlink/internal/storage"
)

// errStillLoginRequired is wrapped when the device keeps asking for a login
// after accepting the credentials.
var errStillLoginRequired = errors.New("device still requires login")

// Gate exchanges stored credentials for a session token.
type Gate struct {
	store      storage.Provider
	httpClient *http.Client
	logger     *slog.Logger
}

// NewGate creates a Gate. A nil httpClient uses a client with a 10s timeout.
func NewGate(store storage.Provider, httpClient *http.Client, logger *slog.Logger) *Gate {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{
		store:      store,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Authenticate logs in at found.FromURL, persists the session and asks the
// same base URL for the socket address again, now with the session attached.
// A Reachable address is returned unchanged.
func (g *Gate) Authenticate(ctx context.Context, found discovery.DiscoveredAddress) (discovery.DiscoveredAddress, error) {
	if found.Kind == discovery.Reachable {
		return found, nil
	}

	logger := g.logger.With("candidate", found.FromURL)
	fail := func(kind Kind, err error) (discovery.DiscoveredAddress, error) {
		return discovery.DiscoveredAddress{}, &AuthError{Kind: kind, FromURL: found.FromURL, Err: err}
	}

	creds, err := storage.LoadCredentials(ctx, g.store)
	if errors.Is(err, storage.ErrNoCredentials) {
		return fail(KindMissingCredentials, err)
	}
	if err != nil {
		return fail(KindStorage, err)
	}

	client := api.NewClient(found.FromURL,
		api.WithHTTPClient(g.httpClient),
		api.WithLogger(logger),
	)
	token, err := client.Login(ctx, creds.Email, creds.Password)
	if err != nil {
		return fail(classify(err), err)
	}

	if err := g.store.SetSession(ctx, token); err != nil {
		return fail(KindStorage, err)
	}
	logger.Info("logged in")

	client = api.NewClient(found.FromURL,
		api.WithHTTPClient(g.httpClient),
		api.WithLogger(logger),
		api.WithSession(token),
	)
	resp, err := client.SocketAddress(ctx)
	if err != nil {
		return fail(classify(err), err)
	}
	if resp.Kind != api.AddressReachable {
		return fail(KindRejected, errStillLoginRequired)
	}

	return discovery.DiscoveredAddress{
		Kind:    discovery.Reachable,
		Address: resp.Address,
		FromURL: found.FromURL,
		IsLocal: found.IsLocal,
	}, nil
}

func classify(err error) Kind {
	var apiErr *api.APIError
	switch {
	case errors.As(err, &apiErr):
		if apiErr.IsAuthFailure() {
			return KindRejected
		}
		return KindNetwork
	case errors.Is(err, api.ErrMalformedResponse),
		errors.Is(err, api.ErrEmptySession),
		errors.Is(err, api.ErrUnrecognizedAddress):
		return KindMalformed
	default:
		return KindNetwork
	}
}
