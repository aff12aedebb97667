/*
Package store defines the document persistence contract for the messenger and its
implementations.

This file holds the document shapes owned by the store layer: messages with their
reaction lists, and the thread-kind tag that fixes which partition a message
belongs to.
*/
package store

import (
	"time"

	"messenger/internal/app/user"
)

// ThreadKind identifies the partition a message belongs to. It is decided once
// at message creation and never migrated.
type ThreadKind string

const (
	// ThreadPeer is the partition for human-to-human conversations.
	ThreadPeer ThreadKind = "peer"

	// ThreadAssistant is the partition for conversations with the synthetic assistant.
	ThreadAssistant ThreadKind = "assistant"
)

// KindForPair resolves the thread kind for a pair of endpoints. Any conversation
// touching the reserved assistant identity lives in the assistant partition.
func KindForPair(a, b string) ThreadKind {
	if user.IsAssistant(a) || user.IsAssistant(b) {
		return ThreadAssistant
	}
	return ThreadPeer
}

// Reaction records a single emoji reaction on a message. A message holds at most
// one reaction per user; a new reaction replaces the user's previous one.
type Reaction struct {
	User      string    `json:"user"`
	Emoji     string    `json:"emoji"`
	Timestamp time.Time `json:"timestamp"`
}

// Message is a persisted chat message document. It is immutable after creation
// except for the read flag, the read timestamp, and the reactions list.
type Message struct {
	ID        string     `json:"_id"`
	Thread    ThreadKind `json:"-"`
	From      string     `json:"from"`
	To        string     `json:"to"`
	Content   string     `json:"content"`
	Timestamp time.Time  `json:"timestamp"`
	Read      bool       `json:"read"`
	ReadAt    *time.Time `json:"readAt,omitempty"`
	Reactions []Reaction `json:"reactions"`
}
