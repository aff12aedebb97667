/*
Package store defines the document persistence contract for the messenger and its
implementations.

This file declares the Store interface consumed by the friend graph manager and
the message facade. The production implementation is Postgres-backed (postgres.go);
an in-memory implementation (memory.go) backs the test suites.
*/
package store

import (
	"context"
	"errors"
	"time"

	"messenger/internal/app/user"
)

// ErrNotFound is returned when a requested user or message document does not exist.
var ErrNotFound = errors.New("store: not found")

// Store is the document persistence collaborator.
//
// Friend-edge operations apply both directions of the relationship as one atomic
// step; no reader may observe one direction without the other. Message queries
// are always scoped by thread kind.
type Store interface {
	// CreateUser inserts a new user document. It reports created=false without
	// error when the username already exists.
	CreateUser(ctx context.Context, username string) (created bool, err error)

	// FindUser returns the full user document, or ErrNotFound.
	FindUser(ctx context.Context, username string) (*user.User, error)

	// AddFriendRequest records a pending request from requester in recipient's
	// request list. Adding an already-recorded request is a no-op.
	AddFriendRequest(ctx context.Context, recipient, requester string) error

	// RemoveFriendRequest deletes the pending request if present.
	RemoveFriendRequest(ctx context.Context, recipient, requester string) error

	// UpsertFriendEdge makes a and b friends of each other and clears any pending
	// request between them, all in one atomic step.
	UpsertFriendEdge(ctx context.Context, a, b string) error

	// RemoveFriendEdge deletes the friendship in both directions in one atomic
	// step. Removing a non-existent edge is a no-op.
	RemoveFriendEdge(ctx context.Context, a, b string) error

	// InsertMessage persists a new message into the partition named by m.Thread.
	InsertMessage(ctx context.Context, m *Message) error

	// QueryThread returns all messages between a and b within the given
	// partition, ordered by timestamp ascending.
	QueryThread(ctx context.Context, kind ThreadKind, a, b string) ([]Message, error)

	// FindMessage returns the message with the given id, or ErrNotFound.
	FindMessage(ctx context.Context, id string) (*Message, error)

	// ClearUserReaction removes any reaction by username from the message's
	// reaction list. Clearing an absent reaction is a no-op.
	ClearUserReaction(ctx context.Context, id, username string) error

	// AppendReaction appends r to the end of the message's reaction list.
	AppendReaction(ctx context.Context, id string, r Reaction) error

	// MarkMessagesRead flips every unread message from sender to reader in the
	// given partition to read with the shared readAt timestamp, as one bulk
	// update. It returns the number of messages updated.
	MarkMessagesRead(ctx context.Context, kind ThreadKind, reader, sender string, readAt time.Time) (int64, error)
}
