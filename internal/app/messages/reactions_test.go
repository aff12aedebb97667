package messages

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"messenger/internal/app/store"
)

func TestAggregateReactionsEmpty(t *testing.T) {
	groups := AggregateReactions(nil)
	require.NotNil(t, groups)
	require.Empty(t, groups)
}

func TestAggregateReactionsGroupsByEmoji(t *testing.T) {
	now := time.Now()
	groups := AggregateReactions([]store.Reaction{
		{User: "alice", Emoji: "👍", Timestamp: now},
		{User: "bob", Emoji: "❤️", Timestamp: now},
		{User: "carol", Emoji: "👍", Timestamp: now},
	})

	require.Len(t, groups, 2)

	require.Equal(t, "👍", groups[0].Emoji)
	require.Equal(t, 2, groups[0].Count)
	require.Equal(t, []string{"alice", "carol"}, groups[0].Users)

	require.Equal(t, "❤️", groups[1].Emoji)
	require.Equal(t, 1, groups[1].Count)
	require.Equal(t, []string{"bob"}, groups[1].Users)
}

func TestAggregateReactionsPreservesWriteOrder(t *testing.T) {
	now := time.Now()
	groups := AggregateReactions([]store.Reaction{
		{User: "bob", Emoji: "😂", Timestamp: now},
		{User: "alice", Emoji: "👍", Timestamp: now},
	})

	// Groups appear in first-occurrence order.
	require.Equal(t, []string{"😂", "👍"}, []string{groups[0].Emoji, groups[1].Emoji})
}
