package discovery

import "time"

// Candidate is a base URL that may host the device.
type Candidate struct {
	URL   string
	Local bool // False for the remote relay
}

// CandidateSet is one cycle's worth of candidates, split by resolve phase.
type CandidateSet struct {
	Local  []Candidate
	Remote []Candidate
}

// Len returns the total number of candidates.
func (s CandidateSet) Len() int {
	return len(s.Local) + len(s.Remote)
}

// Kind tells a usable address from one that needs a login first.
type Kind int

const (
	Reachable Kind = iota
	LoginRequired
)

// String returns a human-readable kind name.
func (k Kind) String() string {
	switch k {
	case Reachable:
		return "reachable"
	case LoginRequired:
		return "login_required"
	default:
		return "unknown"
	}
}

// DiscoveredAddress is a candidate that answered a probe.
type DiscoveredAddress struct {
	Kind    Kind
	Address string // WebSocket URL; empty for LoginRequired
	FromURL string // Candidate base URL that answered
	Message string // Device's login prompt; LoginRequired only
	IsLocal bool
}

// ResolverConfig configures a Resolver.
type ResolverConfig struct {
	ProbeTimeout   time.Duration // Per-probe deadline
	Concurrency    int           // Max probes in flight
	OverallTimeout time.Duration // Deadline for one ProbeAll call
}

// DefaultResolverConfig returns the device's documented probing behaviour.
func DefaultResolverConfig() ResolverConfig {
	return ResolverConfig{
		ProbeTimeout:   3 * time.Second,
		Concurrency:    30,
		OverallTimeout: 45 * time.Second,
	}
}

// SourceConfig configures a CandidateSource.
type SourceConfig struct {
	AccessPointURL string
	RemoteURL      string
	WiFiURL        string
	SubnetBase     string // First three octets, e.g. "192.168.1"; detected when empty
	SkipSubnetScan bool
}
