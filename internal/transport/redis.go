package transport

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/dyluth/warren/pkg/wire"
)

// AgentInboxChannel returns the Pub/Sub channel name for an agent's inbox.
// Pattern: warren:{run_id}:agent:{agent_name}:inbox
//
// Channels are namespaced by run ID so multiple solver runs can safely
// share one Redis server.
func AgentInboxChannel(runID, agent string) string {
	return fmt.Sprintf("warren:%s:agent:%s:inbox", runID, agent)
}

// Redis is a Pub/Sub transport: each agent's inbox is a namespaced channel
// carrying JSON-framed wire messages.
//
// Per-pair FIFO holds because each agent publishes from its single loop
// goroutine and every Publish is a synchronous round trip; Redis delivers
// a channel's messages to a subscriber in publish order.
type Redis struct {
	rdb    *redis.Client
	runID  string
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	inboxes map[string]chan wire.Msg
	wg      sync.WaitGroup
	closed  bool
}

// NewRedis creates a Redis transport for one solver run.
func NewRedis(opts *redis.Options, runID string) (*Redis, error) {
	if runID == "" {
		return nil, fmt.Errorf("run ID cannot be empty")
	}
	ctx, cancel := context.WithCancel(context.Background())
	t := &Redis{
		rdb:     redis.NewClient(opts),
		runID:   runID,
		ctx:     ctx,
		cancel:  cancel,
		inboxes: make(map[string]chan wire.Msg),
	}
	if err := t.rdb.Ping(ctx).Err(); err != nil {
		cancel()
		t.rdb.Close()
		return nil, fmt.Errorf("failed to reach Redis: %w", err)
	}
	return t, nil
}

// Register implements Transport. The subscription is confirmed before
// Register returns, so a Send issued afterwards cannot be lost.
func (t *Redis) Register(agent string) (<-chan wire.Msg, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil, ErrClosed
	}
	if _, exists := t.inboxes[agent]; exists {
		return nil, fmt.Errorf("agent %q already registered", agent)
	}

	pubsub := t.rdb.Subscribe(t.ctx, AgentInboxChannel(t.runID, agent))
	if _, err := pubsub.Receive(t.ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe inbox for %q: %w", agent, err)
	}

	inbox := make(chan wire.Msg, inboxBuffer)
	t.inboxes[agent] = inbox

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		defer pubsub.Close()
		ch := pubsub.Channel()
		for {
			select {
			case <-t.ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				decoded, err := wire.Decode([]byte(msg.Payload))
				if err != nil {
					// A malformed frame is a wiring bug, not a recoverable
					// condition; skip it loudly.
					log.Printf("[WARN] transport: dropping malformed frame for %q: %v", agent, err)
					continue
				}
				select {
				case inbox <- decoded:
				case <-t.ctx.Done():
					return
				}
			}
		}
	}()

	return inbox, nil
}

// Send implements Transport.
func (t *Redis) Send(agent string, m wire.Msg) error {
	t.mu.Lock()
	closed := t.closed
	_, known := t.inboxes[agent]
	t.mu.Unlock()

	if closed {
		return ErrClosed
	}
	if !known {
		return fmt.Errorf("send to %q: %w", agent, ErrUnknownAgent)
	}

	data, err := wire.Encode(m)
	if err != nil {
		return fmt.Errorf("failed to encode %s message: %w", m.Kind(), err)
	}
	if err := t.rdb.Publish(t.ctx, AgentInboxChannel(t.runID, agent), data).Err(); err != nil {
		return fmt.Errorf("failed to publish %s message to %q: %w", m.Kind(), agent, err)
	}
	return nil
}

// Close implements Transport. Safe to call once.
func (t *Redis) Close() error {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
	t.cancel()
	t.wg.Wait()
	return t.rdb.Close()
}
