/*
Package chat contains the real-time session layer: the connection registry, the
per-connection protocol dispatcher, and the wire frame definitions.

This file implements the per-frame dispatch logic. Each inbound frame is decoded,
validated, routed to the friend graph manager, the message facade, or the
response generator, and its results fanned out through the registry. A failure
handling one frame never terminates the session.
*/
package chat

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"messenger/internal/app/assistant"
	"messenger/internal/app/messages"
	"messenger/internal/app/store"
	"messenger/internal/app/user"
	"messenger/internal/pkg/errs"
)

// handleFrame decodes one inbound frame and dispatches it by exact type match.
// Non-JSON frames are logged and silently dropped; unknown types are logged and
// ignored without an error frame.
func (s *Session) handleFrame(ctx context.Context, frameBytes []byte) {
	var f inboundFrame
	if err := json.Unmarshal(frameBytes, &f); err != nil {
		s.logger.Warn().Err(err).Msg("Client sent invalid JSON")
		return
	}

	switch f.Type {
	case frameRegister:
		s.handleRegister(ctx, &f)
	case frameAddFriend:
		s.handleAddFriend(ctx, &f)
	case frameAcceptFriendRequest:
		s.handleAcceptFriendRequest(ctx, &f)
	case frameRejectFriendRequest:
		s.handleRejectFriendRequest(ctx, &f)
	case frameRemoveFriend:
		s.handleRemoveFriend(ctx, &f)
	case frameMessage:
		s.handleMessage(ctx, &f)
	case frameGetSmartReplies:
		s.handleGetSmartReplies(ctx, &f)
	case frameMessageReaction:
		s.handleMessageReaction(ctx, &f)
	case frameMarkMessagesRead:
		s.handleMarkMessagesRead(ctx, &f)
	case frameTypingStatus:
		s.handleTypingStatus(&f)
	case frameLoadChatHistory:
		s.handleLoadChatHistory(ctx, &f)
	case frameGetFriends:
		s.handleGetFriends(ctx, &f)
	case frameGetFriendRequests:
		s.handleGetFriendRequests(ctx, &f)
	default:
		s.logger.Warn().Str("frame_type", f.Type).Msg("Client sent unsupported frame type")
	}
}

// requireFields validates name/value pairs, sending a typed error frame for the
// first empty value. Returns true when all required fields are present.
func (s *Session) requireFields(pairs ...string) bool {
	for i := 0; i+1 < len(pairs); i += 2 {
		if pairs[i+1] == "" {
			s.sendError(errs.NewError(errs.ErrMissingField, pairs[i]))
			return false
		}
	}
	return true
}

// handleRegister binds the connection to a username, creates the user if absent,
// and replies with the friend list (assistant appended) and pending requests.
func (s *Session) handleRegister(ctx context.Context, f *inboundFrame) {
	if !s.requireFields("username", f.Username) {
		return
	}

	if user.IsAssistant(f.Username) {
		s.sendError(errs.NewError(errs.ErrInvalidFrame))
		return
	}

	if ce := s.deps.Friends.EnsureUser(ctx, f.Username); ce != nil {
		s.sendError(ce)
		return
	}

	s.username = f.Username
	s.deps.Registry.Register(f.Username, s)
	s.logger = s.logger.With().Str("username", f.Username).Logger()

	snapshot, ce := s.deps.Friends.Snapshot(ctx, f.Username)
	if ce != nil {
		s.sendError(ce)
		return
	}

	s.sendFrame(initialDataFrame{
		Type:           frameInitialData,
		Friends:        append(snapshot.Friends, user.AssistantName),
		FriendRequests: snapshot.FriendRequests,
	})
}

// handleAddFriend records a friend request. Success notifies the recipient and
// echoes a success status to the initiator; failure echoes the reason to the
// initiator only.
func (s *Session) handleAddFriend(ctx context.Context, f *inboundFrame) {
	if !s.requireFields("from", f.From, "to", f.To) {
		return
	}

	if ce := s.deps.Friends.RequestFriend(ctx, f.From, f.To); ce != nil {
		s.sendFrame(friendStatusFrame{
			Type:    frameFriendRequestResponse,
			Status:  "error",
			Message: ce.Message,
		})
		return
	}

	s.deps.Registry.Unicast(f.To, friendRequestFrame{
		Type: frameFriendRequest,
		From: f.From,
		To:   f.To,
	})

	s.sendFrame(friendStatusFrame{
		Type:    frameFriendRequestResponse,
		Status:  "success",
		Message: "Friend request sent successfully",
		From:    f.From,
		To:      f.To,
	})
}

// handleAcceptFriendRequest moves a pending request to a friendship and notifies
// both endpoints.
func (s *Session) handleAcceptFriendRequest(ctx context.Context, f *inboundFrame) {
	if !s.requireFields("from", f.From, "to", f.To) {
		return
	}

	if ce := s.deps.Friends.AcceptRequest(ctx, f.From, f.To); ce != nil {
		s.sendFrame(friendStatusFrame{
			Type:    frameFriendRequestResponse,
			Status:  "error",
			Message: ce.Message,
		})
		return
	}

	added := friendEventFrame{Type: frameFriendAdded, From: f.From, To: f.To}
	s.deps.Registry.Unicast(f.From, added)
	s.deps.Registry.Unicast(f.To, added)
}

// handleRejectFriendRequest drops a pending request and echoes the outcome to
// the initiator only.
func (s *Session) handleRejectFriendRequest(ctx context.Context, f *inboundFrame) {
	if !s.requireFields("from", f.From, "to", f.To) {
		return
	}

	if ce := s.deps.Friends.RejectRequest(ctx, f.From, f.To); ce != nil {
		s.sendFrame(friendStatusFrame{
			Type:    frameFriendRequestResponse,
			Status:  "error",
			Message: ce.Message,
		})
		return
	}

	s.sendFrame(friendStatusFrame{
		Type:    frameFriendRequestResponse,
		Status:  "success",
		Message: "Friend request rejected",
		From:    f.From,
		To:      f.To,
	})
}

// handleRemoveFriend removes the friendship both ways and notifies both
// endpoints on success.
func (s *Session) handleRemoveFriend(ctx context.Context, f *inboundFrame) {
	if !s.requireFields("from", f.From, "to", f.To) {
		return
	}

	if ce := s.deps.Friends.RemoveFriend(ctx, f.From, f.To); ce != nil {
		s.sendFrame(friendStatusFrame{
			Type:    frameFriendRequestResponse,
			Status:  "error",
			Message: ce.Message,
		})
		return
	}

	removed := friendEventFrame{Type: frameFriendRemoved, From: f.From, To: f.To}
	s.deps.Registry.Unicast(f.From, removed)
	s.deps.Registry.Unicast(f.To, removed)
}

// handleMessage persists a direct message and delivers it to the recipient only.
// Messages addressed to the reserved assistant identity are answered in-process.
func (s *Session) handleMessage(ctx context.Context, f *inboundFrame) {
	if !s.requireFields("from", f.From, "to", f.To, "content", f.Content) {
		return
	}

	if user.IsAssistant(f.To) {
		s.handleAssistantMessage(ctx, f)
		return
	}

	id, err := s.deps.Messages.SaveMessage(ctx, f.From, f.To, f.Content)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to save message")
		s.sendError(errs.NewError(errs.ErrStoreUnavailable))
		return
	}

	s.deps.Registry.Unicast(f.To, messageFrame{
		Type:    frameMessage,
		ID:      id,
		From:    f.From,
		To:      f.To,
		Content: f.Content,
	})
}

// handleAssistantMessage generates a reply synchronously, persists both the user
// message and the reply, and sends the reply (with its id) to the sender only.
func (s *Session) handleAssistantMessage(ctx context.Context, f *inboundFrame) {
	reply := s.deps.Generator.Reply(ctx, f.Content)

	if _, err := s.deps.Messages.SaveMessage(ctx, f.From, user.AssistantName, f.Content); err != nil {
		s.logger.Error().Err(err).Msg("Failed to save user message to assistant")
		s.sendError(errs.NewError(errs.ErrAssistantUnavailable))
		return
	}

	replyID, err := s.deps.Messages.SaveMessage(ctx, user.AssistantName, f.From, reply)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to save assistant reply")
		s.sendError(errs.NewError(errs.ErrAssistantUnavailable))
		return
	}

	s.sendFrame(messageFrame{
		Type:    frameMessage,
		ID:      replyID,
		From:    user.AssistantName,
		To:      f.From,
		Content: reply,
	})
}

// handleGetSmartReplies invokes the suggestion routine and replies to the
// requester only. Suggestions are never persisted.
func (s *Session) handleGetSmartReplies(ctx context.Context, f *inboundFrame) {
	if !s.requireFields("from", f.From, "to", f.To) {
		return
	}

	var contextMessages []assistant.ContextMessage
	if f.Context != nil {
		contextMessages = f.Context.Messages
	}

	suggestions := s.deps.Generator.SuggestReplies(ctx, contextMessages)
	if suggestions == nil {
		suggestions = []string{}
	}

	s.sendFrame(smartRepliesFrame{Type: frameSmartReplies, Suggestions: suggestions})
}

// handleMessageReaction applies a reaction under the bounded retry policy and
// fans the aggregated result out to the thread's endpoints that currently hold
// a live session. Precondition checks run once and are not retried.
func (s *Session) handleMessageReaction(ctx context.Context, f *inboundFrame) {
	if !s.requireFields("messageId", f.MessageID, "from", f.From, "emoji", f.Emoji) {
		return
	}

	m, err := s.deps.Messages.GetByID(ctx, f.MessageID)
	if err != nil {
		var ce *errs.CustomError
		switch {
		case errors.As(err, &ce):
			s.sendError(ce)
		case errors.Is(err, store.ErrNotFound):
			s.sendError(errs.NewError(errs.ErrMessageNotFound))
		default:
			s.logger.Error().Err(err).Str("message_id", f.MessageID).Msg("Failed to load message for reaction")
			s.sendError(errs.NewError(errs.ErrStoreUnavailable))
		}
		return
	}

	var fresh *store.Message
	err = s.deps.ReactionRetry.Do(ctx, func(ctx context.Context) error {
		var applyErr error
		fresh, applyErr = s.deps.Messages.ApplyReaction(ctx, f.MessageID, f.From, f.Emoji)
		return applyErr
	})
	if err != nil {
		s.logger.Error().Err(err).Str("message_id", f.MessageID).Msg("Reaction failed after all attempts")
		s.sendError(errs.NewError(errs.ErrReactionFailed))
		return
	}

	update := reactionUpdateFrame{
		Type:      frameReactionUpdate,
		MessageID: f.MessageID,
		Reactions: messages.AggregateReactions(fresh.Reactions),
	}

	recipients := []string{m.From}
	if m.To != m.From {
		recipients = append(recipients, m.To)
	}
	for _, endpoint := range recipients {
		s.deps.Registry.Unicast(endpoint, update)
	}
}

// handleMarkMessagesRead bulk-marks a thread read and, when anything changed,
// sends a read receipt to the original sender.
func (s *Session) handleMarkMessagesRead(ctx context.Context, f *inboundFrame) {
	if !s.requireFields("reader", f.Reader, "sender", f.Sender) {
		return
	}

	count, readAt, err := s.deps.Messages.MarkRead(ctx, f.Reader, f.Sender)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to mark messages read")
		s.sendError(errs.NewError(errs.ErrStoreUnavailable))
		return
	}

	if count > 0 {
		s.deps.Registry.Unicast(f.Sender, messagesReadFrame{
			Type:      frameMessagesRead,
			Reader:    f.Reader,
			Sender:    f.Sender,
			Timestamp: isoTime(readAt),
		})
	}
}

// handleTypingStatus relays the typing indicator to the recipient. Never persisted.
func (s *Session) handleTypingStatus(f *inboundFrame) {
	if !s.requireFields("from", f.From, "to", f.To) {
		return
	}

	s.deps.Registry.Unicast(f.To, typingStatusFrame{
		Type:     frameTypingStatus,
		From:     f.From,
		To:       f.To,
		IsTyping: f.IsTyping,
	})
}

// handleLoadChatHistory fetches the thread and replies to the requester only.
func (s *Session) handleLoadChatHistory(ctx context.Context, f *inboundFrame) {
	if !s.requireFields("from", f.From, "to", f.To) {
		return
	}

	thread, err := s.deps.Messages.GetThread(ctx, f.From, f.To)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to load chat history")
		s.sendError(errs.NewError(errs.ErrStoreUnavailable))
		return
	}

	entries := make([]historyMessage, 0, len(thread))
	for _, m := range thread {
		var readAt *string
		if m.ReadAt != nil {
			v := isoTime(*m.ReadAt)
			readAt = &v
		}

		entries = append(entries, historyMessage{
			Type:      frameMessage,
			ID:        m.ID,
			From:      m.From,
			To:        m.To,
			Content:   m.Content,
			Timestamp: isoTime(m.Timestamp),
			Read:      m.Read,
			ReadAt:    readAt,
			Reactions: m.Reactions,
		})
	}

	s.sendFrame(chatHistoryFrame{Type: frameChatHistory, Chat: entries})
}

// handleGetFriends replies with the current friend list, assistant appended.
// An unknown user degrades to an empty list.
func (s *Session) handleGetFriends(ctx context.Context, f *inboundFrame) {
	if !s.requireFields("username", f.Username) {
		return
	}

	friendsList := []string{}
	snapshot, ce := s.deps.Friends.Snapshot(ctx, f.Username)
	if ce != nil {
		if ce.Code != errs.ErrUserNotFound {
			s.sendError(ce)
			return
		}
	} else {
		friendsList = snapshot.Friends
	}

	s.sendFrame(friendsListFrame{
		Type:    frameFriendsList,
		Friends: append(friendsList, user.AssistantName),
	})
}

// handleGetFriendRequests replies with the pending requests snapshot.
// An unknown user degrades to an empty list.
func (s *Session) handleGetFriendRequests(ctx context.Context, f *inboundFrame) {
	if !s.requireFields("username", f.Username) {
		return
	}

	requests := []string{}
	snapshot, ce := s.deps.Friends.Snapshot(ctx, f.Username)
	if ce != nil {
		if ce.Code != errs.ErrUserNotFound {
			s.sendError(ce)
			return
		}
	} else {
		requests = snapshot.FriendRequests
	}

	s.sendFrame(friendRequestsFrame{Type: frameFriendRequests, Requests: requests})
}

// isoTime renders a timestamp as an ISO-8601 string for the wire.
func isoTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
