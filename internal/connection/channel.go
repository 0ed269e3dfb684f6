package connection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/viewtl/viewlink/internal/message"
	"github.com/viewtl/viewlink/internal/version"
)

// Channel is one open WebSocket session with a device.
type Channel struct {
	ID uuid.UUID

	url    string
	cfg    ChannelConfig
	logger *slog.Logger
	conn   *websocket.Conn

	messages chan message.Inbound
	done     chan struct{}
	cancel   context.CancelFunc

	// Write serialization
	writeMu sync.Mutex

	// State
	mu     sync.Mutex
	err    error
	closed bool

	closeOnce sync.Once
}

// Open dials url and starts the read loop and heartbeat. ctx bounds the
// handshake only; the channel lives until Close or a transport failure.
func Open(ctx context.Context, url string, cfg ChannelConfig, logger *slog.Logger) (*Channel, error) {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultChannelConfig()
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = def.HeartbeatInterval
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = def.WriteTimeout
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = def.HandshakeTimeout
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = def.BufferSize
	}

	header := http.Header{}
	header.Set("Accept", "application/json")
	header.Set("User-Agent", version.UserAgent())

	dialer := websocket.Dialer{
		HandshakeTimeout: cfg.HandshakeTimeout,
	}
	conn, _, err := dialer.DialContext(ctx, url, header)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %w", ErrTransport, url, err)
	}

	id := uuid.New()
	lifeCtx, cancel := context.WithCancel(context.Background())
	c := &Channel{
		ID:       id,
		url:      url,
		cfg:      cfg,
		logger:   logger.With("channel_id", id.String()),
		conn:     conn,
		messages: make(chan message.Inbound, cfg.BufferSize),
		done:     make(chan struct{}),
		cancel:   cancel,
	}

	g, gctx := errgroup.WithContext(lifeCtx)
	g.Go(func() error { return c.readLoop(gctx) })
	g.Go(func() error { return c.heartbeatLoop(gctx) })
	g.Go(func() error {
		// Unblocks the read loop once any task fails or Close is called.
		<-gctx.Done()
		_ = c.conn.Close()
		return nil
	})
	go func() {
		c.finish(g.Wait())
	}()

	c.logger.Debug("channel open", "url", url)
	return c, nil
}

// Send encodes m and writes it as one text frame.
func (c *Channel) Send(m message.Outbound) error {
	data, err := message.Encode(m)
	if err != nil {
		return err
	}

	select {
	case <-c.done:
		return ErrChannelClosed
	default:
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout)); err != nil {
		return c.writeFailed(err)
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return c.writeFailed(err)
	}
	return nil
}

// Messages returns decoded inbound messages. It is closed when the channel dies.
func (c *Channel) Messages() <-chan message.Inbound {
	return c.messages
}

// Done is closed once every channel goroutine has exited.
func (c *Channel) Done() <-chan struct{} {
	return c.done
}

// Err returns why the channel died, or nil while it is alive.
func (c *Channel) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// URL returns the WebSocket URL this channel was opened to.
func (c *Channel) URL() string {
	return c.url
}

// Close shuts the channel down and waits for its goroutines. It is safe to
// call more than once. Afterwards Err returns ErrChannelClosed.
func (c *Channel) Close() error {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()

		// Best effort; the peer may already be gone.
		_ = c.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		c.cancel()
		<-c.done

		c.mu.Lock()
		c.err = ErrChannelClosed
		c.mu.Unlock()

		c.logger.Debug("channel closed")
	})
	return nil
}

// writeFailed records a write error as fatal and starts teardown.
func (c *Channel) writeFailed(err error) error {
	err = fmt.Errorf("%w: write: %w", ErrTransport, err)
	c.record(err)
	c.cancel()
	return err
}

// record keeps the first fatal error.
func (c *Channel) record(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err == nil {
		c.err = err
	}
}

// finish runs once after all tasks exit.
func (c *Channel) finish(err error) {
	c.mu.Lock()
	if c.closed {
		err = ErrChannelClosed
	}
	if c.err == nil {
		c.err = err
	}
	if c.err == nil {
		c.err = ErrChannelClosed
	}
	c.mu.Unlock()

	if err != nil && !errors.Is(err, ErrChannelClosed) {
		c.logger.Warn("channel failed", "error", err)
	}
	c.cancel()
	close(c.done)
}

// readLoop decodes frames until the socket fails.
func (c *Channel) readLoop(ctx context.Context) error {
	defer close(c.messages)

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("%w: read: %w", ErrTransport, err)
		}

		msg, err := message.Decode(data)
		if err != nil {
			c.logger.Warn("dropping undecodable frame", "error", err)
			continue
		}

		select {
		case c.messages <- msg:
		case <-ctx.Done():
			return nil
		}
	}
}

// heartbeatLoop sends a Ping right away and then every HeartbeatInterval.
func (c *Channel) heartbeatLoop(ctx context.Context) error {
	ticker := time.NewTicker(c.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		if err := c.Send(message.Ping{}); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
