package transport

import (
	"fmt"
	"sync"

	"github.com/dyluth/warren/pkg/wire"
)

// inboxBuffer bounds each agent's queue. The engine's duplicate suppression
// keeps traffic proportional to real state changes, so the buffer only has
// to absorb bursts, not backlogs.
const inboxBuffer = 4096

// Channel is the in-process transport: one buffered Go channel per agent.
// FIFO per pair holds by construction, and messages are passed by value
// without serialisation.
type Channel struct {
	mu      sync.RWMutex
	inboxes map[string]chan wire.Msg
	closed  bool
}

// NewChannel creates an empty in-process transport.
func NewChannel() *Channel {
	return &Channel{inboxes: make(map[string]chan wire.Msg)}
}

// Register implements Transport.
func (t *Channel) Register(agent string) (<-chan wire.Msg, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil, ErrClosed
	}
	if _, exists := t.inboxes[agent]; exists {
		return nil, fmt.Errorf("agent %q already registered", agent)
	}
	ch := make(chan wire.Msg, inboxBuffer)
	t.inboxes[agent] = ch
	return ch, nil
}

// Send implements Transport.
func (t *Channel) Send(agent string, m wire.Msg) error {
	t.mu.RLock()
	closed := t.closed
	ch, ok := t.inboxes[agent]
	t.mu.RUnlock()

	if closed {
		return ErrClosed
	}
	if !ok {
		return fmt.Errorf("send to %q: %w", agent, ErrUnknownAgent)
	}
	ch <- m
	return nil
}

// Close implements Transport. Inbox channels are left open: draining
// receivers see the remaining backlog and then block, which is fine because
// their contexts are cancelled by the solver.
func (t *Channel) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}
