package discovery

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/viewtl/viewlink/internal/api"
)

// Resolver probes candidates concurrently and reports the first that answers.
type Resolver struct {
	cfg    ResolverConfig
	prober Prober
	logger *slog.Logger
}

// NewResolver creates a Resolver. Zero config fields take their defaults.
func NewResolver(cfg ResolverConfig, prober Prober, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultResolverConfig()
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = def.ProbeTimeout
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = def.Concurrency
	}
	if cfg.OverallTimeout <= 0 {
		cfg.OverallTimeout = def.OverallTimeout
	}
	return &Resolver{
		cfg:    cfg,
		prober: prober,
		logger: logger,
	}
}

// Resolve probes the local candidates first and falls back to the remote
// ones only when no local candidate answered.
func (r *Resolver) Resolve(ctx context.Context, set CandidateSet) (DiscoveredAddress, bool) {
	if found, ok := r.ProbeAll(ctx, set.Local); ok {
		return found, true
	}
	if ctx.Err() != nil || len(set.Remote) == 0 {
		return DiscoveredAddress{}, false
	}
	r.logger.Info("no local candidate answered, trying remote", "remote", len(set.Remote))
	return r.ProbeAll(ctx, set.Remote)
}

// ProbeAll probes every candidate, at most Concurrency at a time, and returns
// the first answer by completion order. It returns false when nothing answers
// before OverallTimeout or ctx is done. All probes have finished by the time
// it returns.
func (r *Resolver) ProbeAll(ctx context.Context, candidates []Candidate) (DiscoveredAddress, bool) {
	candidates = dedupe(candidates)
	if len(candidates) == 0 {
		return DiscoveredAddress{}, false
	}

	ctx, cancel := context.WithTimeout(ctx, r.cfg.OverallTimeout)
	defer cancel()

	var (
		once  sync.Once
		found DiscoveredAddress
		ok    bool
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Concurrency)

	for _, c := range candidates {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			addr, err := r.probe(gctx, c)
			if err != nil {
				r.logger.Debug("probe failed", "candidate", c.URL, "error", err)
				return nil
			}
			once.Do(func() {
				found, ok = addr, true
				cancel()
			})
			return nil
		})
	}
	_ = g.Wait()

	if ok {
		r.logger.Info("device found",
			"candidate", found.FromURL,
			"kind", found.Kind.String(),
			"local", found.IsLocal,
		)
	} else {
		r.logger.Debug("no candidate answered", "candidates", len(candidates))
	}
	return found, ok
}

func (r *Resolver) probe(ctx context.Context, c Candidate) (DiscoveredAddress, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.ProbeTimeout)
	defer cancel()

	resp, err := r.prober.Probe(ctx, c.URL)
	if err != nil {
		return DiscoveredAddress{}, err
	}

	addr := DiscoveredAddress{
		FromURL: c.URL,
		IsLocal: c.Local,
	}
	switch resp.Kind {
	case api.AddressLoginRequired:
		addr.Kind = LoginRequired
		addr.Message = resp.Message
	default:
		addr.Kind = Reachable
		addr.Address = resp.Address
	}
	return addr, nil
}

// dedupe drops repeated URLs after normalisation, keeping first occurrences.
func dedupe(candidates []Candidate) []Candidate {
	seen := make(map[string]struct{}, len(candidates))
	out := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		c.URL = api.NormalizeBaseURL(c.URL)
		if c.URL == "" {
			continue
		}
		if _, dup := seen[c.URL]; dup {
			continue
		}
		seen[c.URL] = struct{}{}
		out = append(out, c)
	}
	return out
}
