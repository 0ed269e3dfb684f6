package connection

import (
	"context"
	"errors"
	"time"

	"github.com/viewtl/viewlink/internal/discovery"
	"github.com/viewtl/viewlink/internal/message"
)

// Errors
var (
	ErrDiscoveryTimeout = errors.New("no device answered discovery")
	ErrTransport        = errors.New("transport failure")
	ErrChannelClosed    = errors.New("channel closed")
	ErrNotConnected     = errors.New("not connected")
)

// ChannelConfig configures a Channel.
type ChannelConfig struct {
	HeartbeatInterval time.Duration // Ping period; the first Ping goes out on open
	WriteTimeout      time.Duration // Write deadline for every frame
	HandshakeTimeout  time.Duration // WebSocket upgrade deadline
	BufferSize        int           // Decoded message buffer
}

// DefaultChannelConfig returns sensible defaults.
func DefaultChannelConfig() ChannelConfig {
	return ChannelConfig{
		HeartbeatInterval: 3 * time.Second,
		WriteTimeout:      5 * time.Second,
		HandshakeTimeout:  10 * time.Second,
		BufferSize:        256,
	}
}

// ControllerConfig configures a Controller.
type ControllerConfig struct {
	Backoff time.Duration // Fixed wait between failed attempts
	Channel ChannelConfig
}

// DefaultControllerConfig returns sensible defaults.
func DefaultControllerConfig() ControllerConfig {
	return ControllerConfig{
		Backoff: 3 * time.Second,
		Channel: DefaultChannelConfig(),
	}
}

// Sender writes commands to the current session.
type Sender interface {
	Send(ctx context.Context, m message.Outbound) error
}

// SessionHook runs once per established session, before any inbound
// message is forwarded. A returned error tears the session down.
type SessionHook func(ctx context.Context, s Sender, c Connected) error

// CandidateProvider builds the candidate list for one attempt.
type CandidateProvider interface {
	Candidates(ctx context.Context) discovery.CandidateSet
}

// AddressResolver finds the device among candidates.
type AddressResolver interface {
	Resolve(ctx context.Context, set discovery.CandidateSet) (discovery.DiscoveredAddress, bool)
	ProbeAll(ctx context.Context, candidates []discovery.Candidate) (discovery.DiscoveredAddress, bool)
}

// Authenticator turns a LoginRequired address into a Reachable one.
type Authenticator interface {
	Authenticate(ctx context.Context, found discovery.DiscoveredAddress) (discovery.DiscoveredAddress, error)
}

// DialFunc opens a Channel to a WebSocket URL.
type DialFunc func(ctx context.Context, url string) (*Channel, error)
