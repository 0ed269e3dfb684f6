package router

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/viewtl/viewlink/internal/message"
)

// Handler processes one inbound message.
type Handler func(ctx context.Context, msg message.Inbound)

// RouterConfig holds configuration for the Router.
type RouterConfig struct {
	QueueSize int // Initial intake queue capacity; grows as needed
}

// DefaultRouterConfig returns default configuration.
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		QueueSize: 64,
	}
}

// RouterStats contains runtime statistics.
type RouterStats struct {
	MessagesReceived  int64 // Pulled from the input
	MessagesRouted    int64 // Handed to a handler
	UnknownMessages   int64 // Types without a decoder
	UnhandledMessages int64 // No handler registered for the type
	Queue             QueueStats
}

// Router dispatches messages from an input channel to registered handlers.
type Router struct {
	cfg    RouterConfig
	logger *slog.Logger
	input  <-chan message.Inbound
	queue  *queue[message.Inbound]

	handlersMu sync.RWMutex
	handlers   map[string]Handler
	unknown    Handler

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// Stats
	received  atomic.Int64
	routed    atomic.Int64
	unknownN  atomic.Int64
	unhandled atomic.Int64
}

// NewRouter creates a Router reading from input.
func NewRouter(cfg RouterConfig, input <-chan message.Inbound, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultRouterConfig().QueueSize
	}

	return &Router{
		cfg:      cfg,
		logger:   logger,
		input:    input,
		queue:    newQueue[message.Inbound](cfg.QueueSize),
		handlers: make(map[string]Handler),
	}
}

// Handle registers h for msgType, replacing any earlier handler. A type
// without a decoder arrives as *message.Unknown and never reaches h.
func (r *Router) Handle(msgType string, h Handler) {
	if !message.Known(msgType) {
		r.logger.Warn("handler registered for type without a decoder", "type", msgType)
	}
	r.handlersMu.Lock()
	r.handlers[msgType] = h
	r.handlersMu.Unlock()
}

// HandleUnknown registers h for messages whose type has no decoder.
func (r *Router) HandleUnknown(h Handler) {
	r.handlersMu.Lock()
	r.unknown = h
	r.handlersMu.Unlock()
}

// Start begins routing messages.
func (r *Router) Start(ctx context.Context) error {
	r.ctx, r.cancel = context.WithCancel(ctx)

	r.wg.Add(2)
	go r.intakeLoop()
	go r.dispatchLoop()

	r.logger.Info("message router started", "queue_size", r.cfg.QueueSize)
	return nil
}

// Stop stops intake, lets queued messages drain and waits for the
// dispatcher, bounded by ctx.
func (r *Router) Stop(ctx context.Context) error {
	r.logger.Info("stopping message router")

	if r.cancel != nil {
		r.cancel()
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Info("message router stopped")
	case <-ctx.Done():
		r.logger.Warn("message router stop timed out")
	}
	return nil
}

// Wait blocks until both router goroutines have exited.
func (r *Router) Wait() {
	r.wg.Wait()
}

// Stats returns current statistics.
func (r *Router) Stats() RouterStats {
	return RouterStats{
		MessagesReceived:  r.received.Load(),
		MessagesRouted:    r.routed.Load(),
		UnknownMessages:   r.unknownN.Load(),
		UnhandledMessages: r.unhandled.Load(),
		Queue:             r.queue.stats(),
	}
}

// intakeLoop moves messages from the input into the queue.
func (r *Router) intakeLoop() {
	defer r.wg.Done()
	defer r.queue.close()

	for {
		select {
		case <-r.ctx.Done():
			return
		case msg, ok := <-r.input:
			if !ok {
				r.logger.Info("input channel closed")
				return
			}
			r.received.Add(1)
			r.queue.push(msg)
		}
	}
}

// dispatchLoop hands queued messages to handlers until the queue drains.
func (r *Router) dispatchLoop() {
	defer r.wg.Done()

	for {
		msg, ok := r.queue.pop()
		if !ok {
			return
		}
		r.dispatch(msg)
	}
}

func (r *Router) dispatch(msg message.Inbound) {
	r.handlersMu.RLock()
	var h Handler
	if _, isUnknown := msg.(*message.Unknown); isUnknown {
		r.unknownN.Add(1)
		h = r.unknown
	} else {
		h = r.handlers[msg.MessageType()]
	}
	r.handlersMu.RUnlock()

	if h == nil {
		r.unhandled.Add(1)
		r.logger.Debug("no handler", "type", msg.MessageType())
		return
	}

	h(r.ctx, msg)
	r.routed.Add(1)
}
