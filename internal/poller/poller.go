package poller

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/viewtl/viewlink/internal/connection"
	"github.com/viewtl/viewlink/internal/message"
)

// Config holds poller configuration.
type Config struct {
	Interval time.Duration // Time between refreshes
	Keys     []string      // Status buckets to request
}

// Stats counts poll outcomes.
type Stats struct {
	Polls   int64 // Ticks that sent every key
	Skipped int64 // Ticks with no live session
	Errors  int64 // Ticks that failed part way
}

// Poller periodically asks the device for fresh status.
type Poller struct {
	cfg    Config
	sender connection.Sender
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	polls   atomic.Int64
	skipped atomic.Int64
	errors  atomic.Int64
}

// New creates a new Poller.
func New(cfg Config, sender connection.Sender, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		cfg:    cfg,
		sender: sender,
		logger: logger,
	}
}

// Start begins the polling loop. The first refresh happens one Interval
// after Start; a new session already requests everything up front.
func (p *Poller) Start(ctx context.Context) error {
	if p.cfg.Interval <= 0 {
		return errors.New("poller interval must be positive")
	}
	p.ctx, p.cancel = context.WithCancel(ctx)

	p.wg.Add(1)
	go p.run()

	p.logger.Info("status poller started",
		"interval", p.cfg.Interval,
		"keys", len(p.cfg.Keys),
	)
	return nil
}

// Stop gracefully shuts down the poller.
func (p *Poller) Stop(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("status poller stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats returns current counters.
func (p *Poller) Stats() Stats {
	return Stats{
		Polls:   p.polls.Load(),
		Skipped: p.skipped.Load(),
		Errors:  p.errors.Load(),
	}
}

func (p *Poller) run() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			p.poll()
		}
	}
}

// poll sends one Get per key and stops at the first failure.
func (p *Poller) poll() {
	for _, key := range p.cfg.Keys {
		err := p.sender.Send(p.ctx, message.Get{Key: key})
		switch {
		case err == nil:
			continue
		case errors.Is(err, connection.ErrNotConnected):
			p.skipped.Add(1)
			p.logger.Debug("no session, skipping refresh")
			return
		case p.ctx.Err() != nil:
			return
		default:
			p.errors.Add(1)
			p.logger.Warn("status refresh failed", "key", key, "error", err)
			return
		}
	}
	p.polls.Add(1)
}
