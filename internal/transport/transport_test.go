package transport

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyluth/warren/pkg/dcop"
	"github.com/dyluth/warren/pkg/wire"
)

func valueMsg(stamp int64) wire.ValueMsg {
	return wire.ValueMsg{Sender: "x", To: "y", Value: dcop.Value(stamp % 3), Threshold: dcop.Inf, Stamp: stamp}
}

// receive reads one message with a deadline so broken transports fail fast
// instead of hanging the suite.
func receive(t *testing.T, inbox <-chan wire.Msg) wire.Msg {
	t.Helper()
	select {
	case m := <-inbox:
		return m
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for message")
		return nil
	}
}

func TestChannelTransport(t *testing.T) {
	t.Run("delivers in FIFO order per pair", func(t *testing.T) {
		tr := NewChannel()
		inbox, err := tr.Register("a")
		require.NoError(t, err)

		for stamp := int64(1); stamp <= 10; stamp++ {
			require.NoError(t, tr.Send("a", valueMsg(stamp)))
		}
		for stamp := int64(1); stamp <= 10; stamp++ {
			m := receive(t, inbox).(wire.ValueMsg)
			assert.Equal(t, stamp, m.Stamp)
		}
	})

	t.Run("rejects unknown agents", func(t *testing.T) {
		tr := NewChannel()
		err := tr.Send("nobody", valueMsg(1))
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrUnknownAgent)
	})

	t.Run("rejects duplicate registration", func(t *testing.T) {
		tr := NewChannel()
		_, err := tr.Register("a")
		require.NoError(t, err)
		_, err = tr.Register("a")
		assert.Error(t, err)
	})

	t.Run("rejects sends after close", func(t *testing.T) {
		tr := NewChannel()
		_, err := tr.Register("a")
		require.NoError(t, err)
		require.NoError(t, tr.Close())
		assert.ErrorIs(t, tr.Send("a", valueMsg(1)), ErrClosed)
	})
}

func TestRedisTransport(t *testing.T) {
	t.Run("round-trips every algorithm message kind", func(t *testing.T) {
		mr := miniredis.RunT(t)
		defer mr.Close()
		tr, err := NewRedis(&redis.Options{Addr: mr.Addr()}, "run-1")
		require.NoError(t, err)
		defer tr.Close()

		inbox, err := tr.Register("a")
		require.NoError(t, err)

		ctxMap := wire.ContextMap{"x": {Value: 1, Stamp: 4}}
		msgs := []wire.Msg{
			wire.ValueMsg{Sender: "x", To: "y", Value: 1, Threshold: dcop.Inf, Stamp: 2},
			wire.CostMsg{Sender: "y", To: "x", Context: ctxMap, LB: 3, UB: dcop.Inf},
			wire.TerminateMsg{Sender: "x", To: "y", Context: ctxMap},
		}
		for _, m := range msgs {
			require.NoError(t, tr.Send("a", m))
		}
		for _, want := range msgs {
			assert.Equal(t, want, receive(t, inbox))
		}
	})

	t.Run("preserves per-pair order", func(t *testing.T) {
		mr := miniredis.RunT(t)
		defer mr.Close()
		tr, err := NewRedis(&redis.Options{Addr: mr.Addr()}, "run-2")
		require.NoError(t, err)
		defer tr.Close()

		inbox, err := tr.Register("a")
		require.NoError(t, err)
		for stamp := int64(1); stamp <= 20; stamp++ {
			require.NoError(t, tr.Send("a", valueMsg(stamp)))
		}
		for stamp := int64(1); stamp <= 20; stamp++ {
			m := receive(t, inbox).(wire.ValueMsg)
			assert.Equal(t, stamp, m.Stamp)
		}
	})

	t.Run("rejects unknown agents", func(t *testing.T) {
		mr := miniredis.RunT(t)
		defer mr.Close()
		tr, err := NewRedis(&redis.Options{Addr: mr.Addr()}, "run-3")
		require.NoError(t, err)
		defer tr.Close()

		assert.ErrorIs(t, tr.Send("nobody", valueMsg(1)), ErrUnknownAgent)
	})

	t.Run("requires a reachable server", func(t *testing.T) {
		_, err := NewRedis(&redis.Options{Addr: "127.0.0.1:1"}, "run-4")
		assert.Error(t, err)
	})

	t.Run("namespaces channels by run", func(t *testing.T) {
		assert.Equal(t, "warren:run-9:agent:a3:inbox", AgentInboxChannel("run-9", "a3"))
	})
}

func TestDuplicatingTransport(t *testing.T) {
	tr := &Duplicating{Inner: NewChannel()}
	inbox, err := tr.Register("a")
	require.NoError(t, err)

	require.NoError(t, tr.Send("a", valueMsg(1)))

	first := receive(t, inbox)
	second := receive(t, inbox)
	assert.Equal(t, first, second, "every message must be delivered twice back-to-back")
}
