// Package transport moves wire messages between agents.
//
// Two implementations ship: an in-process channel transport, and a Redis
// Pub/Sub transport that routes every message through a Redis server, with
// all channels namespaced per run. A Redis transport only sends to agents
// registered on that same transport value; it does not reach agents in
// other processes.
//
// Both guarantee per-sender-to-receiver FIFO delivery with no loss and no
// duplication. No cross-pair ordering is guaranteed, and the engine does
// not assume any. The Duplicating wrapper deliberately delivers every
// message twice and is used only by robustness tests.
package transport

import (
	"errors"

	"github.com/dyluth/warren/pkg/wire"
)

// ErrClosed is returned by Send after the transport has been closed.
var ErrClosed = errors.New("transport closed")

// ErrUnknownAgent is returned when sending to an agent that never
// registered an inbox.
var ErrUnknownAgent = errors.New("unknown agent")

// Transport delivers messages to named agents.
type Transport interface {
	// Register creates the inbox for an agent. Must be called for every
	// agent before any Send targets it.
	Register(agent string) (<-chan wire.Msg, error)

	// Send enqueues a message for an agent. Sends from a single goroutine
	// to a fixed agent arrive in order.
	Send(agent string, m wire.Msg) error

	// Close releases resources; subsequent Sends fail with ErrClosed.
	Close() error
}
