package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"messenger/internal/app/user"
)

// MemoryStore is an in-memory Store implementation. It backs the test suites and
// local development without a database.
type MemoryStore struct {
	mu       sync.RWMutex
	users    map[string]*memUser
	messages map[string]*Message
	order    []string
}

type memUser struct {
	joined   time.Time
	friends  []string
	requests []string
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make(map[string]*memUser),
		messages: make(map[string]*Message),
	}
}

func (s *MemoryStore) CreateUser(_ context.Context, username string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[username]; ok {
		return false, nil
	}
	s.users[username] = &memUser{joined: time.Now().UTC()}
	return true, nil
}

func (s *MemoryStore) FindUser(_ context.Context, username string) (*user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[username]
	if !ok {
		return nil, ErrNotFound
	}

	return &user.User{
		Username:       username,
		Friends:        append([]string{}, u.friends...),
		FriendRequests: append([]string{}, u.requests...),
		JoinedDate:     u.joined,
	}, nil
}

func (s *MemoryStore) AddFriendRequest(_ context.Context, recipient, requester string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[recipient]
	if !ok {
		return ErrNotFound
	}
	if !contains(u.requests, requester) {
		u.requests = append(u.requests, requester)
	}
	return nil
}

func (s *MemoryStore) RemoveFriendRequest(_ context.Context, recipient, requester string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u, ok := s.users[recipient]; ok {
		u.requests = remove(u.requests, requester)
	}
	return nil
}

func (s *MemoryStore) UpsertFriendEdge(_ context.Context, a, b string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ua, okA := s.users[a]
	ub, okB := s.users[b]
	if !okA || !okB {
		return ErrNotFound
	}

	if !contains(ua.friends, b) {
		ua.friends = append(ua.friends, b)
	}
	if !contains(ub.friends, a) {
		ub.friends = append(ub.friends, a)
	}
	ua.requests = remove(ua.requests, b)
	ub.requests = remove(ub.requests, a)
	return nil
}

func (s *MemoryStore) RemoveFriendEdge(_ context.Context, a, b string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ua, ok := s.users[a]; ok {
		ua.friends = remove(ua.friends, b)
	}
	if ub, ok := s.users[b]; ok {
		ub.friends = remove(ub.friends, a)
	}
	return nil
}

func (s *MemoryStore) InsertMessage(_ context.Context, m *Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := cloneMessage(m)
	s.messages[m.ID] = stored
	s.order = append(s.order, m.ID)
	return nil
}

func (s *MemoryStore) QueryThread(_ context.Context, kind ThreadKind, a, b string) ([]Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	messages := []Message{}
	for _, id := range s.order {
		m := s.messages[id]
		if m.Thread != kind {
			continue
		}
		if (m.From == a && m.To == b) || (m.From == b && m.To == a) {
			messages = append(messages, *cloneMessage(m))
		}
	}

	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].Timestamp.Before(messages[j].Timestamp)
	})

	return messages, nil
}

func (s *MemoryStore) FindMessage(_ context.Context, id string) (*Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.messages[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneMessage(m), nil
}

func (s *MemoryStore) ClearUserReaction(_ context.Context, id, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.messages[id]
	if !ok {
		return ErrNotFound
	}

	kept := m.Reactions[:0]
	for _, r := range m.Reactions {
		if r.User != username {
			kept = append(kept, r)
		}
	}
	m.Reactions = kept
	return nil
}

func (s *MemoryStore) AppendReaction(_ context.Context, id string, r Reaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.messages[id]
	if !ok {
		return ErrNotFound
	}
	m.Reactions = append(m.Reactions, r)
	return nil
}

func (s *MemoryStore) MarkMessagesRead(_ context.Context, kind ThreadKind, reader, sender string, readAt time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int64
	for _, m := range s.messages {
		if m.Thread == kind && m.From == sender && m.To == reader && !m.Read {
			at := readAt
			m.Read = true
			m.ReadAt = &at
			count++
		}
	}
	return count, nil
}

func cloneMessage(m *Message) *Message {
	copied := *m
	copied.Reactions = append([]Reaction{}, m.Reactions...)
	if m.ReadAt != nil {
		at := *m.ReadAt
		copied.ReadAt = &at
	}
	return &copied
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func remove(list []string, v string) []string {
	kept := list[:0]
	for _, item := range list {
		if item != v {
			kept = append(kept, item)
		}
	}
	return kept
}
