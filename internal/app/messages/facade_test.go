package messages

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"messenger/internal/app/store"
	"messenger/internal/app/user"
	"messenger/internal/pkg/errs"
)

// countingStore wraps a Store and counts message lookups, so cache hits are observable.
type countingStore struct {
	store.Store
	findCalls int
}

func (c *countingStore) FindMessage(ctx context.Context, id string) (*store.Message, error) {
	c.findCalls++
	return c.Store.FindMessage(ctx, id)
}

func TestSaveMessageAndGetThread(t *testing.T) {
	f := NewFacade(store.NewMemoryStore())
	ctx := context.Background()

	id, err := f.SaveMessage(ctx, "alice", "bob", "hello")
	require.NoError(t, err)
	require.NotEmpty(t, id)

	thread, err := f.GetThread(ctx, "alice", "bob")
	require.NoError(t, err)
	require.Len(t, thread, 1)
	require.Equal(t, id, thread[0].ID)
	require.Equal(t, "hello", thread[0].Content)
	require.False(t, thread[0].Read)
	require.Nil(t, thread[0].ReadAt)

	// The reverse direction reads the same thread.
	reverse, err := f.GetThread(ctx, "bob", "alice")
	require.NoError(t, err)
	require.Len(t, reverse, 1)
}

func TestGetThreadOrdering(t *testing.T) {
	f := NewFacade(store.NewMemoryStore())
	ctx := context.Background()

	first, err := f.SaveMessage(ctx, "alice", "bob", "one")
	require.NoError(t, err)
	second, err := f.SaveMessage(ctx, "bob", "alice", "two")
	require.NoError(t, err)
	third, err := f.SaveMessage(ctx, "alice", "bob", "three")
	require.NoError(t, err)

	thread, err := f.GetThread(ctx, "alice", "bob")
	require.NoError(t, err)
	require.Len(t, thread, 3)
	require.Equal(t, []string{first, second, third}, []string{thread[0].ID, thread[1].ID, thread[2].ID})

	for i := 1; i < len(thread); i++ {
		require.False(t, thread[i].Timestamp.Before(thread[i-1].Timestamp))
	}
}

func TestAssistantThreadPartition(t *testing.T) {
	f := NewFacade(store.NewMemoryStore())
	ctx := context.Background()

	_, err := f.SaveMessage(ctx, "alice", user.AssistantName, "hi there")
	require.NoError(t, err)
	_, err = f.SaveMessage(ctx, "alice", "bob", "peer message")
	require.NoError(t, err)

	assistantThread, err := f.GetThread(ctx, "alice", user.AssistantName)
	require.NoError(t, err)
	require.Len(t, assistantThread, 1)
	require.Equal(t, store.ThreadAssistant, assistantThread[0].Thread)

	peerThread, err := f.GetThread(ctx, "alice", "bob")
	require.NoError(t, err)
	require.Len(t, peerThread, 1)
	require.Equal(t, store.ThreadPeer, peerThread[0].Thread)
}

func TestGetByIDMalformed(t *testing.T) {
	counting := &countingStore{Store: store.NewMemoryStore()}
	f := NewFacade(counting)

	_, err := f.GetByID(context.Background(), "not-a-uuid")
	require.Error(t, err)

	var ce *errs.CustomError
	require.ErrorAs(t, err, &ce)
	require.Equal(t, errs.ErrInvalidMessageID, ce.Code)

	// The store must not be consulted for a malformed id.
	require.Zero(t, counting.findCalls)
}

func TestGetByIDCaches(t *testing.T) {
	counting := &countingStore{Store: store.NewMemoryStore()}
	f := NewFacade(counting)
	ctx := context.Background()

	id, err := f.SaveMessage(ctx, "alice", "bob", "cache me")
	require.NoError(t, err)

	m, err := f.GetByID(ctx, id)
	require.NoError(t, err)
	require.Equal(t, id, m.ID)
	require.Equal(t, 1, counting.findCalls)

	// Second lookup is served from the cache.
	_, err = f.GetByID(ctx, id)
	require.NoError(t, err)
	require.Equal(t, 1, counting.findCalls)
}

func TestMarkRead(t *testing.T) {
	f := NewFacade(store.NewMemoryStore())
	ctx := context.Background()

	for range 3 {
		_, err := f.SaveMessage(ctx, "alice", "bob", "unread")
		require.NoError(t, err)
	}
	// A message in the other direction must not be touched.
	_, err := f.SaveMessage(ctx, "bob", "alice", "mine")
	require.NoError(t, err)

	count, readAt, err := f.MarkRead(ctx, "bob", "alice")
	require.NoError(t, err)
	require.EqualValues(t, 3, count)
	require.False(t, readAt.IsZero())

	thread, err := f.GetThread(ctx, "alice", "bob")
	require.NoError(t, err)

	var readTimes []time.Time
	for _, m := range thread {
		if m.From == "alice" {
			require.True(t, m.Read)
			require.NotNil(t, m.ReadAt)
			readTimes = append(readTimes, *m.ReadAt)
		} else {
			require.False(t, m.Read)
		}
	}
	require.Len(t, readTimes, 3)
	for _, at := range readTimes {
		require.True(t, at.Equal(readAt))
	}

	// Nothing left unread afterwards.
	count, _, err = f.MarkRead(ctx, "bob", "alice")
	require.NoError(t, err)
	require.Zero(t, count)
}

func TestApplyReactionReplacesPrevious(t *testing.T) {
	f := NewFacade(store.NewMemoryStore())
	ctx := context.Background()

	id, err := f.SaveMessage(ctx, "alice", "bob", "react to me")
	require.NoError(t, err)

	m, err := f.ApplyReaction(ctx, id, "bob", "👍")
	require.NoError(t, err)
	require.Len(t, m.Reactions, 1)
	require.Equal(t, "👍", m.Reactions[0].Emoji)

	m, err = f.ApplyReaction(ctx, id, "bob", "❤️")
	require.NoError(t, err)
	require.Len(t, m.Reactions, 1)
	require.Equal(t, "❤️", m.Reactions[0].Emoji)
	require.Equal(t, "bob", m.Reactions[0].User)

	// Another user's reaction is appended, not replaced.
	m, err = f.ApplyReaction(ctx, id, "alice", "👍")
	require.NoError(t, err)
	require.Len(t, m.Reactions, 2)
}

func TestApplyReactionRefreshesCache(t *testing.T) {
	counting := &countingStore{Store: store.NewMemoryStore()}
	f := NewFacade(counting)
	ctx := context.Background()

	id, err := f.SaveMessage(ctx, "alice", "bob", "stale check")
	require.NoError(t, err)

	_, err = f.GetByID(ctx, id)
	require.NoError(t, err)

	_, err = f.ApplyReaction(ctx, id, "bob", "🎉")
	require.NoError(t, err)
	calls := counting.findCalls

	// The cached entry reflects the reaction without another store read.
	m, err := f.GetByID(ctx, id)
	require.NoError(t, err)
	require.Equal(t, calls, counting.findCalls)
	require.Len(t, m.Reactions, 1)
}
