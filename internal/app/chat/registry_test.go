package chat

import (
	"testing"

	"github.com/stretchr/testify/require"

	"messenger/internal/app/user"
)

func TestRegistryRegisterAndLookup(t *testing.T) {
	r := NewRegistry()
	s := &Session{send: make(chan []byte, 1)}

	r.Register("alice", s)

	got, ok := r.Lookup("alice")
	require.True(t, ok)
	require.Same(t, s, got)

	_, ok = r.Lookup("bob")
	require.False(t, ok)
}

func TestRegistryReplaceOnRegister(t *testing.T) {
	r := NewRegistry()
	first := &Session{send: make(chan []byte, 1)}
	second := &Session{send: make(chan []byte, 1)}

	r.Register("alice", first)
	r.Register("alice", second)

	got, ok := r.Lookup("alice")
	require.True(t, ok)
	require.Same(t, second, got)
}

func TestRegistryRemoveIsIdentityGuarded(t *testing.T) {
	r := NewRegistry()
	stale := &Session{send: make(chan []byte, 1)}
	current := &Session{send: make(chan []byte, 1)}

	r.Register("alice", stale)
	r.Register("alice", current)

	// The stale session's disconnect must not evict the live one.
	r.Remove("alice", stale)
	got, ok := r.Lookup("alice")
	require.True(t, ok)
	require.Same(t, current, got)

	r.Remove("alice", current)
	_, ok = r.Lookup("alice")
	require.False(t, ok)
}

func TestRegistryUnicast(t *testing.T) {
	r := NewRegistry()
	s := &Session{send: make(chan []byte, 2)}
	r.Register("alice", s)

	require.True(t, r.Unicast("alice", typingStatusFrame{Type: frameTypingStatus, From: "bob", To: "alice"}))
	require.Len(t, s.send, 1)

	require.False(t, r.Unicast("bob", typingStatusFrame{Type: frameTypingStatus}))
}

func TestRegistryUnicastAssistantNoOp(t *testing.T) {
	r := NewRegistry()

	require.False(t, r.Unicast(user.AssistantName, typingStatusFrame{Type: frameTypingStatus}))
}

func TestRegistryUnicastFullQueueDropsFrame(t *testing.T) {
	r := NewRegistry()
	s := &Session{send: make(chan []byte)}
	r.Register("alice", s)

	// Unbuffered channel with no reader: enqueue must not block.
	delivered := r.Unicast("alice", typingStatusFrame{Type: frameTypingStatus})
	require.False(t, delivered)
}
