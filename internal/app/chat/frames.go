/*
Package chat contains the real-time session layer: the connection registry, the
per-connection protocol dispatcher, and the wire frame definitions.

This file defines the JSON frames exchanged over the websocket. Every frame is
one JSON object carrying a "type" discriminator; inbound frames are decoded into
a single flat struct and dispatched by exact type match.
*/
package chat

import (
	"messenger/internal/app/assistant"
	"messenger/internal/app/messages"
	"messenger/internal/app/store"
)

// Inbound frame types.
const (
	frameRegister            = "register"
	frameAddFriend           = "add_friend"
	frameAcceptFriendRequest = "accept_friend_request"
	frameRejectFriendRequest = "reject_friend_request"
	frameRemoveFriend        = "remove_friend"
	frameMessage             = "message"
	frameGetSmartReplies     = "get_smart_replies"
	frameMessageReaction     = "message_reaction"
	frameMarkMessagesRead    = "mark_messages_read"
	frameTypingStatus        = "typing_status"
	frameLoadChatHistory     = "load_chat_history"
	frameGetFriends          = "get_friends"
	frameGetFriendRequests   = "get_friend_requests"
)

// Outbound frame types.
const (
	frameInitialData           = "initial_data"
	frameFriendRequest         = "friend_request"
	frameFriendRequestResponse = "friend_request_response"
	frameFriendAdded           = "friend_added"
	frameFriendRemoved         = "friend_removed"
	frameSmartReplies          = "smart_replies"
	frameReactionUpdate        = "reaction_update"
	frameMessagesRead          = "messages_read"
	frameChatHistory           = "chat_history"
	frameFriendsList           = "friends_list"
	frameFriendRequests        = "friend_requests"
	frameError                 = "error"
)

// inboundFrame is the superset of all inbound frame fields. Which fields are
// required depends on the frame type.
type inboundFrame struct {
	Type      string             `json:"type"`
	Username  string             `json:"username"`
	From      string             `json:"from"`
	To        string             `json:"to"`
	Content   string             `json:"content"`
	Context   *smartReplyContext `json:"context"`
	MessageID string             `json:"messageId"`
	Emoji     string             `json:"emoji"`
	Reader    string             `json:"reader"`
	Sender    string             `json:"sender"`
	IsTyping  bool               `json:"isTyping"`
}

// smartReplyContext carries the recent conversation for suggestion generation.
type smartReplyContext struct {
	Messages []assistant.ContextMessage `json:"messages"`
}

type initialDataFrame struct {
	Type           string   `json:"type"`
	Friends        []string `json:"friends"`
	FriendRequests []string `json:"friend_requests"`
}

type friendRequestFrame struct {
	Type string `json:"type"`
	From string `json:"from"`
	To   string `json:"to"`
}

// friendStatusFrame echoes the outcome of a friend-graph operation back to the
// initiator. Status is "success" or "error"; Message carries the reason text.
type friendStatusFrame struct {
	Type    string `json:"type"`
	Status  string `json:"status"`
	Message string `json:"message"`
	From    string `json:"from,omitempty"`
	To      string `json:"to,omitempty"`
}

type friendEventFrame struct {
	Type string `json:"type"`
	From string `json:"from"`
	To   string `json:"to"`
}

type messageFrame struct {
	Type    string `json:"type"`
	ID      string `json:"_id"`
	From    string `json:"from"`
	To      string `json:"to"`
	Content string `json:"content"`
}

type smartRepliesFrame struct {
	Type        string   `json:"type"`
	Suggestions []string `json:"suggestions"`
}

type reactionUpdateFrame struct {
	Type      string                   `json:"type"`
	MessageID string                   `json:"messageId"`
	Reactions []messages.ReactionGroup `json:"reactions"`
}

type messagesReadFrame struct {
	Type      string `json:"type"`
	Reader    string `json:"reader"`
	Sender    string `json:"sender"`
	Timestamp string `json:"timestamp"`
}

type typingStatusFrame struct {
	Type     string `json:"type"`
	From     string `json:"from"`
	To       string `json:"to"`
	IsTyping bool   `json:"isTyping"`
}

// historyMessage is one chat_history entry. Timestamps cross the wire as
// ISO-8601 strings.
type historyMessage struct {
	Type      string           `json:"type"`
	ID        string           `json:"_id"`
	From      string           `json:"from"`
	To        string           `json:"to"`
	Content   string           `json:"content"`
	Timestamp string           `json:"timestamp"`
	Read      bool             `json:"read"`
	ReadAt    *string          `json:"readAt"`
	Reactions []store.Reaction `json:"reactions"`
}

type chatHistoryFrame struct {
	Type string           `json:"type"`
	Chat []historyMessage `json:"chat"`
}

type friendsListFrame struct {
	Type    string   `json:"type"`
	Friends []string `json:"friends"`
}

type friendRequestsFrame struct {
	Type     string   `json:"type"`
	Requests []string `json:"requests"`
}

type errorFrame struct {
	Type    string `json:"type"`
	Code    int    `json:"code,omitempty"`
	Message string `json:"message"`
}
