/*
Package messages provides semantic message operations (save, fetch thread, mark
read, apply reaction) on top of the document store collaborator.

Lookups by id go through a bounded, time-expiring LRU cache. The reaction path
runs the store's clear-then-append-then-read-back sequence as one unit so the
dispatcher can retry it without repeating precondition checks.
*/
package messages

import (
	"context"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog"

	"messenger/internal/app/store"
	"messenger/internal/pkg/errs"
	"messenger/internal/pkg/logx"
)

const (
	// cacheCapacity bounds how many messages the id cache may hold.
	cacheCapacity = 1000

	// cacheTTL is how long a cached message stays valid.
	cacheTTL = 5 * time.Minute
)

// Facade exposes the message operations used by the protocol dispatcher.
type Facade struct {
	store  store.Store
	cache  *lru.LRU[string, *store.Message]
	logger zerolog.Logger
}

// NewFacade constructs a Facade backed by the given store.
func NewFacade(st store.Store) *Facade {
	facadeLogger := logx.Logger().With().Str("component", "messages").Logger()

	return &Facade{
		store:  st,
		cache:  lru.NewLRU[string, *store.Message](cacheCapacity, nil, cacheTTL),
		logger: facadeLogger,
	}
}

// SaveMessage persists a new message and returns its id. The message is routed
// to the assistant partition when either endpoint is the reserved identity,
// otherwise to the peer partition; the partition never changes afterwards.
func (f *Facade) SaveMessage(ctx context.Context, from, to, content string) (string, error) {
	m := &store.Message{
		ID:        uuid.NewString(),
		Thread:    store.KindForPair(from, to),
		From:      from,
		To:        to,
		Content:   content,
		Timestamp: time.Now().UTC(),
		Read:      false,
		Reactions: []store.Reaction{},
	}

	if err := f.store.InsertMessage(ctx, m); err != nil {
		return "", err
	}

	return m.ID, nil
}

// GetThread returns the conversation between a and b, timestamp ascending, drawn
// from the single partition the pair maps to.
func (f *Facade) GetThread(ctx context.Context, a, b string) ([]store.Message, error) {
	return f.store.QueryThread(ctx, store.KindForPair(a, b), a, b)
}

// GetByID returns the message with the given id, consulting the cache before
// the store and populating the cache on a store hit. A malformed id is rejected
// before any store call.
func (f *Facade) GetByID(ctx context.Context, id string) (*store.Message, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, errs.NewError(errs.ErrInvalidMessageID)
	}

	if m, ok := f.cache.Get(id); ok {
		return m, nil
	}

	m, err := f.store.FindMessage(ctx, id)
	if err != nil {
		return nil, err
	}

	f.cache.Add(id, m)
	return m, nil
}

// MarkRead transitions every unread message from sender to reader as one bulk
// update and returns the count together with the shared read timestamp.
func (f *Facade) MarkRead(ctx context.Context, reader, sender string) (int64, time.Time, error) {
	readAt := time.Now().UTC()

	count, err := f.store.MarkMessagesRead(ctx, store.KindForPair(reader, sender), reader, sender, readAt)
	if err != nil {
		return 0, time.Time{}, err
	}

	return count, readAt, nil
}

// ApplyReaction replaces the user's reaction on a message with the given emoji
// and returns the message read back after the write. Any previous reaction by
// the same user is cleared before the new one is appended, so the message holds
// at most one reaction per user.
//
// The three store calls form the aggregation unit the dispatcher retries; the
// read-back result also refreshes the id cache.
func (f *Facade) ApplyReaction(ctx context.Context, id, username, emoji string) (*store.Message, error) {
	if err := f.store.ClearUserReaction(ctx, id, username); err != nil {
		return nil, err
	}

	reaction := store.Reaction{
		User:      username,
		Emoji:     emoji,
		Timestamp: time.Now().UTC(),
	}
	if err := f.store.AppendReaction(ctx, id, reaction); err != nil {
		return nil, err
	}

	m, err := f.store.FindMessage(ctx, id)
	if err != nil {
		return nil, err
	}

	f.cache.Add(id, m)
	return m, nil
}
