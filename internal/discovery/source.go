package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strings"

	"github.com/viewtl/viewlink/internal/api"
	"github.com/viewtl/viewlink/internal/storage"
)

// CandidateSource builds a fresh CandidateSet for every connection attempt.
type CandidateSource struct {
	cfg    SourceConfig
	store  storage.Provider
	logger *slog.Logger

	// interfaceAddrs is net.InterfaceAddrs, replaceable in tests.
	interfaceAddrs func() ([]net.Addr, error)
}

// NewCandidateSource creates a CandidateSource.
func NewCandidateSource(cfg SourceConfig, store storage.Provider, logger *slog.Logger) *CandidateSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &CandidateSource{
		cfg:            cfg,
		store:          store,
		logger:         logger,
		interfaceAddrs: net.InterfaceAddrs,
	}
}

// Candidates returns addresses that answered before, the access point, the
// subnet sweep and the Wi-Fi address as local candidates, and the remote
// relay on its own. A storage failure is logged and the stored addresses
// are skipped.
func (s *CandidateSource) Candidates(ctx context.Context) CandidateSet {
	var set CandidateSet
	add := func(u string) {
		if u = api.NormalizeBaseURL(u); u != "" {
			set.Local = append(set.Local, Candidate{URL: u, Local: true})
		}
	}

	if s.store != nil {
		known, err := s.store.LastSuccessfulAddresses(ctx)
		if err != nil {
			s.logger.Warn("load known addresses", "error", err)
		}
		for _, u := range known {
			add(u)
		}
	}

	add(s.cfg.AccessPointURL)

	if !s.cfg.SkipSubnetScan {
		base := s.cfg.SubnetBase
		if base == "" {
			base = s.detectSubnetBase()
		}
		if base != "" {
			for host := 1; host <= 254; host++ {
				add(fmt.Sprintf("http://%s.%d/", base, host))
			}
		}
	}

	add(s.cfg.WiFiURL)

	if u := api.NormalizeBaseURL(s.cfg.RemoteURL); u != "" {
		set.Remote = append(set.Remote, Candidate{URL: u})
	}

	set.Local = dedupe(set.Local)
	return set
}

// detectSubnetBase returns the first three octets of the first private IPv4
// address on this host, or "" when there is none.
func (s *CandidateSource) detectSubnetBase() string {
	addrs, err := s.interfaceAddrs()
	if err != nil {
		s.logger.Warn("list interface addresses", "error", err)
		return ""
	}
	for _, a := range addrs {
		ipNet, ok := a.(*net.IPNet)
		if !ok {
			continue
		}
		ip := ipNet.IP.To4()
		if ip == nil || ip.IsLoopback() || !ip.IsPrivate() {
			continue
		}
		return SubnetBase(ip)
	}
	return ""
}

// SubnetBase returns "a.b.c" for an IPv4 address a.b.c.d.
func SubnetBase(ip net.IP) string {
	ip4 := ip.To4()
	if ip4 == nil {
		return ""
	}
	s := ip4.String()
	return s[:strings.LastIndexByte(s, '.')]
}
