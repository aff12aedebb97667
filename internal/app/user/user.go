/*
Package user contains the core data structure describing a registered account.

It defines the basic representation of a user within the messenger (the User struct),
used for passing user information both internally and to clients.
*/
package user

import "time"

// AssistantName is the reserved identity of the synthetic peer. It never owns a
// live session; messages addressed to it are answered in-process.
const AssistantName = "AI Assistant"

// User represents a registered account document.
// Fields use JSON tags for serialization in WebSocket frames.
type User struct {

	// Username is the unique identifier for the user.
	Username string `json:"username"`

	// Friends holds the usernames of confirmed friends. Membership is symmetric.
	Friends []string `json:"friends"`

	// FriendRequests holds the usernames of users with a pending request to this user.
	FriendRequests []string `json:"friend_requests"`

	// JoinedDate records when the account was first registered.
	JoinedDate time.Time `json:"joined_date"`
}

// IsAssistant reports whether name is the reserved synthetic peer identity.
func IsAssistant(name string) bool {
	return name == AssistantName
}
