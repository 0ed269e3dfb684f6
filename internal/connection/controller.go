package connection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/viewtl/viewlink/internal/auth"
	"github.com/viewtl/viewlink/internal/discovery"
	"github.com/viewtl/viewlink/internal/message"
	"github.com/viewtl/viewlink/internal/storage"
)

// Deps are the collaborators a Controller drives.
type Deps struct {
	Source   CandidateProvider
	Resolver AddressResolver
	Gate     Authenticator
	Store    storage.Provider

	// Dial opens the WebSocket. Nil uses Open with the controller's
	// ChannelConfig.
	Dial DialFunc

	// OnSessionEstablished runs after every successful connect.
	OnSessionEstablished SessionHook
}

// Controller keeps a session with the device alive.
type Controller struct {
	cfg    ControllerConfig
	deps   Deps
	logger *slog.Logger

	state    *StateCell
	messages chan message.Inbound
	retry    chan struct{}

	mu      sync.Mutex
	channel *Channel
	running bool
}

// NewController creates a Controller. Call Run to start it.
func NewController(cfg ControllerConfig, deps Deps, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = DefaultControllerConfig().Backoff
	}
	if cfg.Channel.BufferSize <= 0 {
		cfg.Channel.BufferSize = DefaultChannelConfig().BufferSize
	}

	c := &Controller{
		cfg:      cfg,
		deps:     deps,
		logger:   logger,
		state:    NewStateCell(Disconnected{}),
		messages: make(chan message.Inbound, cfg.Channel.BufferSize),
		retry:    make(chan struct{}, 1),
	}
	if c.deps.Dial == nil {
		c.deps.Dial = func(ctx context.Context, url string) (*Channel, error) {
			return Open(ctx, url, c.cfg.Channel, c.logger)
		}
	}
	return c
}

// State returns the current connection state.
func (c *Controller) State() State {
	return c.state.Load()
}

// Subscribe streams state changes, starting with the current state.
func (c *Controller) Subscribe() (<-chan State, func()) {
	return c.state.Subscribe()
}

// Messages returns inbound messages from every session in order. It is
// closed when Run returns.
func (c *Controller) Messages() <-chan message.Inbound {
	return c.messages
}

// Send writes m on the current session. Commands are not queued across
// reconnects: without a live session Send returns ErrNotConnected.
func (c *Controller) Send(ctx context.Context, m message.Outbound) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	ch := c.channel
	c.mu.Unlock()

	if ch == nil {
		return ErrNotConnected
	}
	return ch.Send(m)
}

// Retry resumes a controller paused in LoginRequired, typically after new
// credentials were stored. A Retry during a connection attempt is kept for
// the pause that may follow it; in any other state it has no effect.
func (c *Controller) Retry() {
	select {
	case c.retry <- struct{}{}:
	default:
	}
}

// Run connects and reconnects until ctx is cancelled, then returns nil.
// It may only be called once.
func (c *Controller) Run(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return errors.New("controller already running")
	}
	c.running = true
	c.mu.Unlock()

	defer close(c.messages)
	defer c.state.Store(Disconnected{})

	c.logger.Info("controller started", "backoff", c.cfg.Backoff)

	// pinned, when set, replaces discovery for the next attempt.
	var pinned []discovery.Candidate

	for {
		found, err := c.attempt(ctx, pinned)
		pinned = nil

		if ctx.Err() != nil {
			c.logger.Info("controller stopped")
			return nil
		}

		// Any login failure pauses in LoginRequired; only Retry resumes.
		var authErr *auth.AuthError
		if errors.As(err, &authErr) {
			c.logger.Warn("login required",
				"candidate", found.FromURL,
				"message", found.Message,
				"error", err,
			)
			if !c.waitRetry(ctx, found) {
				c.logger.Info("controller stopped")
				return nil
			}
			pinned = []discovery.Candidate{{URL: found.FromURL, Local: found.IsLocal}}
			continue
		}

		c.logger.Warn("session ended", "error", err, "retry_in", c.cfg.Backoff)
		c.state.Store(Disconnected{})

		select {
		case <-ctx.Done():
			c.logger.Info("controller stopped")
			return nil
		case <-time.After(c.cfg.Backoff):
		}
	}
}

// attempt runs one resolve, login, connect and pump cycle. It always
// returns a non-nil error; found is the last address it resolved.
func (c *Controller) attempt(ctx context.Context, pinned []discovery.Candidate) (discovery.DiscoveredAddress, error) {
	c.state.Store(Connecting{})

	// Retries from before this attempt are stale. One that arrives while
	// it runs stays pending, so credentials stored mid-attempt get used.
	select {
	case <-c.retry:
	default:
	}

	var (
		found discovery.DiscoveredAddress
		ok    bool
	)
	if len(pinned) > 0 {
		found, ok = c.deps.Resolver.ProbeAll(ctx, pinned)
	} else {
		set := c.deps.Source.Candidates(ctx)
		c.logger.Debug("resolving", "local", len(set.Local), "remote", len(set.Remote))
		found, ok = c.deps.Resolver.Resolve(ctx, set)
	}
	if !ok {
		return found, ErrDiscoveryTimeout
	}

	if found.Kind == discovery.LoginRequired {
		authed, err := c.deps.Gate.Authenticate(ctx, found)
		if err != nil {
			return found, err
		}
		found = authed
	}

	if found.IsLocal && c.deps.Store != nil {
		if err := c.deps.Store.LastSuccessfulAddress(ctx, found.FromURL); err != nil {
			c.logger.Warn("store address", "candidate", found.FromURL, "error", err)
		}
	}

	ch, err := c.deps.Dial(ctx, found.Address)
	if err != nil {
		return found, err
	}
	defer c.dropChannel(ch)

	c.mu.Lock()
	c.channel = ch
	c.mu.Unlock()

	connected := Connected{
		Address: found.Address,
		FromURL: found.FromURL,
		IsLocal: found.IsLocal,
	}
	c.state.Store(connected)
	c.logger.Info("connected",
		"address", found.Address,
		"local", found.IsLocal,
		"channel_id", ch.ID.String(),
	)

	if hook := c.deps.OnSessionEstablished; hook != nil {
		if err := hook(ctx, channelSender{ch}, connected); err != nil {
			return found, fmt.Errorf("session setup: %w", err)
		}
	}

	return found, c.pump(ctx, ch)
}

// pump forwards ch's messages until it dies or ctx is done.
func (c *Controller) pump(ctx context.Context, ch *Channel) error {
	in := ch.Messages()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-in:
			if !ok {
				<-ch.Done()
				return ch.Err()
			}
			select {
			case c.messages <- msg:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// waitRetry parks in LoginRequired until Retry or ctx is done.
func (c *Controller) waitRetry(ctx context.Context, found discovery.DiscoveredAddress) bool {
	c.state.Store(LoginRequired{Address: found})

	select {
	case <-ctx.Done():
		return false
	case <-c.retry:
		c.logger.Info("retrying login", "candidate", found.FromURL)
		return true
	}
}

func (c *Controller) dropChannel(ch *Channel) {
	c.mu.Lock()
	if c.channel == ch {
		c.channel = nil
	}
	c.mu.Unlock()
	_ = ch.Close()
}

// channelSender binds a Sender to one channel so a session hook can never
// write to a later session.
type channelSender struct {
	ch *Channel
}

func (s channelSender) Send(ctx context.Context, m message.Outbound) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.ch.Send(m)
}
