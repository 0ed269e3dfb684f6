package connection

import (
	"fmt"
	"sync"

	"github.com/viewtl/viewlink/internal/discovery"
)

// State is the controller's externally observable connection state. It is
// one of Disconnected, Connecting, LoginRequired or Connected.
type State interface {
	fmt.Stringer
	isState()
}

// Disconnected means no session and no attempt in progress.
type Disconnected struct{}

// Connecting means discovery, login or the WebSocket handshake is running.
type Connecting struct{}

// LoginRequired means the device rejected the stored credentials. The
// controller waits for Retry.
type LoginRequired struct {
	Address discovery.DiscoveredAddress
}

// Connected means a session is live.
type Connected struct {
	Address string // WebSocket URL
	FromURL string // Candidate that resolved it
	IsLocal bool
}

func (Disconnected) isState()  {}
func (Connecting) isState()    {}
func (LoginRequired) isState() {}
func (Connected) isState()     {}

func (Disconnected) String() string { return "disconnected" }
func (Connecting) String() string   { return "connecting" }

func (s LoginRequired) String() string {
	return "login_required(" + s.Address.FromURL + ")"
}

func (s Connected) String() string {
	if s.IsLocal {
		return "connected(" + s.Address + ", local)"
	}
	return "connected(" + s.Address + ", remote)"
}

// subscriberBuffer bounds how far a slow subscriber may fall behind before
// it starts losing its oldest undelivered states.
const subscriberBuffer = 16

// StateCell holds the current State and broadcasts every change.
type StateCell struct {
	mu      sync.Mutex
	current State
	subs    map[int]chan State
	nextID  int
}

// NewStateCell creates a cell holding initial.
func NewStateCell(initial State) *StateCell {
	return &StateCell{
		current: initial,
		subs:    make(map[int]chan State),
	}
}

// Load returns the current state.
func (c *StateCell) Load() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Store replaces the current state and notifies subscribers without blocking.
func (c *StateCell) Store(s State) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.current = s
	for _, ch := range c.subs {
		select {
		case ch <- s:
		default:
			// Full: drop the oldest so the newest always lands.
			select {
			case <-ch:
			default:
			}
			ch <- s
		}
	}
}

// Subscribe returns a channel that first receives the current state and then
// every subsequent change. The returned func unsubscribes and closes it.
func (c *StateCell) Subscribe() (<-chan State, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextID
	c.nextID++
	ch := make(chan State, subscriberBuffer)
	ch <- c.current
	c.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subs, id)
			close(ch)
			c.mu.Unlock()
		})
	}
}
