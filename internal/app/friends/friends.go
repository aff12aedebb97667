/*
Package friends implements the friend-request workflow state machine on top of
the document store.

Each unordered user pair moves between four states: unrelated, pending in one
direction, or friends. Every transition is applied atomically per pair; a keyed
mutex serializes transitions for the same pair so no reader observes an
intermediate state.
*/
package friends

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"messenger/internal/app/store"
	"messenger/internal/app/user"
	"messenger/internal/pkg/errs"
	"messenger/internal/pkg/logx"
)

// Manager coordinates friend-request transitions against the store.
type Manager struct {
	store store.Store

	// mu protects the locks map.
	mu sync.Mutex

	// locks holds one mutex per user pair that has seen a transition.
	locks map[string]*sync.Mutex

	logger zerolog.Logger
}

// NewManager constructs a Manager backed by the given store.
func NewManager(st store.Store) *Manager {
	managerLogger := logx.Logger().With().Str("component", "friends").Logger()

	return &Manager{
		store:  st,
		locks:  make(map[string]*sync.Mutex),
		logger: managerLogger,
	}
}

// pairKey produces an order-independent key for a user pair.
func pairKey(a, b string) string {
	pair := []string{a, b}
	sort.Strings(pair)
	return pair[0] + "\x00" + pair[1]
}

// lockPair acquires the mutex for the unordered pair and returns its unlock func.
func (m *Manager) lockPair(a, b string) func() {
	key := pairKey(a, b)

	m.mu.Lock()
	lock, ok := m.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[key] = lock
	}
	m.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

// EnsureUser creates the user document on first registration. Registering an
// existing username is a no-op.
func (m *Manager) EnsureUser(ctx context.Context, username string) *errs.CustomError {
	created, err := m.store.CreateUser(ctx, username)
	if err != nil {
		m.logger.Error().Err(err).Str("username", username).Msg("Failed to create user")
		return errs.NewError(errs.ErrStoreUnavailable)
	}

	if created {
		m.logger.Info().Str("username", username).Msg("New user registered")
	}
	return nil
}

// RequestFriend records a pending request from one user to another.
// It fails when the requester targets themselves, either user is unknown, the
// users are already friends, the same request is already pending, or a request
// in the opposite direction is pending (the caller should accept that instead).
func (m *Manager) RequestFriend(ctx context.Context, from, to string) *errs.CustomError {
	if from == to {
		return errs.NewError(errs.ErrSelfFriendRequest)
	}

	unlock := m.lockPair(from, to)
	defer unlock()

	fromUser, err := m.store.FindUser(ctx, from)
	if err != nil {
		return m.userLookupError(err, from)
	}
	toUser, err := m.store.FindUser(ctx, to)
	if err != nil {
		return m.userLookupError(err, to)
	}

	if contains(fromUser.Friends, to) {
		return errs.NewError(errs.ErrAlreadyFriends)
	}
	if contains(toUser.FriendRequests, from) {
		return errs.NewError(errs.ErrDuplicateRequest)
	}
	if contains(fromUser.FriendRequests, to) {
		return errs.NewError(errs.ErrReverseRequestPending)
	}

	if err := m.store.AddFriendRequest(ctx, to, from); err != nil {
		m.logger.Error().Err(err).Str("from", from).Str("to", to).Msg("Failed to record friend request")
		return errs.NewError(errs.ErrStoreUnavailable)
	}

	return nil
}

// AcceptRequest moves a pending request into a symmetric friendship. The pending
// entry and both edge directions change in one atomic store step.
func (m *Manager) AcceptRequest(ctx context.Context, acceptor, requester string) *errs.CustomError {
	unlock := m.lockPair(acceptor, requester)
	defer unlock()

	acceptingUser, err := m.store.FindUser(ctx, acceptor)
	if err != nil {
		return m.userLookupError(err, acceptor)
	}

	if !contains(acceptingUser.FriendRequests, requester) {
		return errs.NewError(errs.ErrRequestNotFound)
	}

	if err := m.store.UpsertFriendEdge(ctx, acceptor, requester); err != nil {
		m.logger.Error().Err(err).Str("acceptor", acceptor).Str("requester", requester).Msg("Failed to upsert friend edge")
		return errs.NewError(errs.ErrStoreUnavailable)
	}

	return nil
}

// RejectRequest drops a pending request without creating a friendship.
func (m *Manager) RejectRequest(ctx context.Context, acceptor, requester string) *errs.CustomError {
	unlock := m.lockPair(acceptor, requester)
	defer unlock()

	acceptingUser, err := m.store.FindUser(ctx, acceptor)
	if err != nil {
		return m.userLookupError(err, acceptor)
	}

	if !contains(acceptingUser.FriendRequests, requester) {
		return errs.NewError(errs.ErrRequestNotFound)
	}

	if err := m.store.RemoveFriendRequest(ctx, acceptor, requester); err != nil {
		m.logger.Error().Err(err).Str("acceptor", acceptor).Str("requester", requester).Msg("Failed to remove friend request")
		return errs.NewError(errs.ErrStoreUnavailable)
	}

	return nil
}

// RemoveFriend deletes the friendship in both directions. Removing an absent
// friendship is a no-op.
func (m *Manager) RemoveFriend(ctx context.Context, a, b string) *errs.CustomError {
	unlock := m.lockPair(a, b)
	defer unlock()

	if err := m.store.RemoveFriendEdge(ctx, a, b); err != nil {
		m.logger.Error().Err(err).Str("a", a).Str("b", b).Msg("Failed to remove friend edge")
		return errs.NewError(errs.ErrStoreUnavailable)
	}

	return nil
}

// Snapshot returns the current friends and pending requests for a user.
func (m *Manager) Snapshot(ctx context.Context, username string) (*user.User, *errs.CustomError) {
	u, err := m.store.FindUser(ctx, username)
	if err != nil {
		return nil, m.userLookupError(err, username)
	}
	return u, nil
}

func (m *Manager) userLookupError(err error, username string) *errs.CustomError {
	if errors.Is(err, store.ErrNotFound) {
		return errs.NewError(errs.ErrUserNotFound)
	}
	m.logger.Error().Err(err).Str("username", username).Msg("Failed to look up user")
	return errs.NewError(errs.ErrStoreUnavailable)
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
