package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"messenger/internal/app/assistant"
	"messenger/internal/app/friends"
	"messenger/internal/app/messages"
	"messenger/internal/app/store"
	"messenger/internal/app/user"
	"messenger/internal/pkg/retry"
)

// fakeGenerator is a deterministic Generator for dispatch tests.
type fakeGenerator struct {
	reply       string
	suggestions []string
}

func (g *fakeGenerator) Reply(context.Context, string) string {
	return g.reply
}

func (g *fakeGenerator) SuggestReplies(context.Context, []assistant.ContextMessage) []string {
	return g.suggestions
}

type testEnv struct {
	deps Deps
	st   store.Store
}

func newTestEnv() *testEnv {
	return newTestEnvWith(store.NewMemoryStore())
}

func newTestEnvWith(st store.Store) *testEnv {
	return &testEnv{
		st: st,
		deps: Deps{
			Registry:      NewRegistry(),
			Messages:      messages.NewFacade(st),
			Friends:       friends.NewManager(st),
			Generator:     &fakeGenerator{reply: "synthetic reply", suggestions: []string{"Sure!", "Tell me more"}},
			ReactionRetry: retry.Policy{Attempts: 3, Delay: 0},
		},
	}
}

// dispatch feeds one raw frame through the session's dispatcher.
func dispatch(s *Session, frame string) {
	s.handleFrame(context.Background(), []byte(frame))
}

// recvFrame pops the next queued outbound frame, failing if none is pending.
func recvFrame(t *testing.T, s *Session) map[string]any {
	t.Helper()

	select {
	case payload := <-s.send:
		var frame map[string]any
		require.NoError(t, json.Unmarshal(payload, &frame))
		return frame
	default:
		t.Fatal("expected an outbound frame, queue is empty")
		return nil
	}
}

// requireNoFrame asserts the session has nothing queued.
func requireNoFrame(t *testing.T, s *Session) {
	t.Helper()

	select {
	case payload := <-s.send:
		t.Fatalf("expected no outbound frame, got: %s", payload)
	default:
	}
}

// register opens a session for username and drains the initial_data reply.
func register(t *testing.T, env *testEnv, username string) *Session {
	t.Helper()

	s := NewSession(env.deps, nil)
	dispatch(s, fmt.Sprintf(`{"type":"register","username":%q}`, username))

	frame := recvFrame(t, s)
	require.Equal(t, "initial_data", frame["type"])
	return s
}

func TestRegisterRepliesInitialData(t *testing.T) {
	env := newTestEnv()

	s := NewSession(env.deps, nil)
	dispatch(s, `{"type":"register","username":"alice"}`)

	frame := recvFrame(t, s)
	require.Equal(t, "initial_data", frame["type"])
	require.Equal(t, []any{user.AssistantName}, frame["friends"])
	require.Equal(t, []any{}, frame["friend_requests"])

	// The user document exists now.
	u, err := env.st.FindUser(context.Background(), "alice")
	require.NoError(t, err)
	require.Equal(t, "alice", u.Username)
}

func TestRegisterTwiceReplacesSession(t *testing.T) {
	env := newTestEnv()

	first := register(t, env, "alice")
	second := register(t, env, "alice")

	delivered := env.deps.Registry.Unicast("alice", typingStatusFrame{Type: frameTypingStatus, From: "bob", To: "alice"})
	require.True(t, delivered)

	requireNoFrame(t, first)
	recvFrame(t, second)
}

func TestRegisterAssistantRejected(t *testing.T) {
	env := newTestEnv()

	s := NewSession(env.deps, nil)
	dispatch(s, fmt.Sprintf(`{"type":"register","username":%q}`, user.AssistantName))

	frame := recvFrame(t, s)
	require.Equal(t, "error", frame["type"])

	_, ok := env.deps.Registry.Lookup(user.AssistantName)
	require.False(t, ok)
}

func TestRegisterMissingUsername(t *testing.T) {
	env := newTestEnv()

	s := NewSession(env.deps, nil)
	dispatch(s, `{"type":"register"}`)

	frame := recvFrame(t, s)
	require.Equal(t, "error", frame["type"])
}

func TestInvalidJSONDropped(t *testing.T) {
	env := newTestEnv()
	s := register(t, env, "alice")

	dispatch(s, `{not json`)
	requireNoFrame(t, s)
}

func TestUnknownFrameTypeIgnored(t *testing.T) {
	env := newTestEnv()
	s := register(t, env, "alice")

	dispatch(s, `{"type":"teleport","from":"alice"}`)
	requireNoFrame(t, s)
}

func TestFriendRequestFlow(t *testing.T) {
	env := newTestEnv()
	alice := register(t, env, "alice")
	bob := register(t, env, "bob")

	dispatch(alice, `{"type":"add_friend","from":"alice","to":"bob"}`)

	notification := recvFrame(t, bob)
	require.Equal(t, "friend_request", notification["type"])
	require.Equal(t, "alice", notification["from"])

	echo := recvFrame(t, alice)
	require.Equal(t, "friend_request_response", echo["type"])
	require.Equal(t, "success", echo["status"])

	dispatch(bob, `{"type":"accept_friend_request","from":"bob","to":"alice"}`)

	for _, s := range []*Session{alice, bob} {
		added := recvFrame(t, s)
		require.Equal(t, "friend_added", added["type"])
	}

	aliceUser, err := env.st.FindUser(context.Background(), "alice")
	require.NoError(t, err)
	require.Contains(t, aliceUser.Friends, "bob")
}

func TestFriendRequestFailureEchoedToInitiatorOnly(t *testing.T) {
	env := newTestEnv()
	alice := register(t, env, "alice")
	bob := register(t, env, "bob")

	dispatch(alice, `{"type":"add_friend","from":"alice","to":"alice"}`)

	echo := recvFrame(t, alice)
	require.Equal(t, "friend_request_response", echo["type"])
	require.Equal(t, "error", echo["status"])
	require.NotEmpty(t, echo["message"])

	requireNoFrame(t, bob)
}

func TestRemoveFriendNotifiesBoth(t *testing.T) {
	env := newTestEnv()
	alice := register(t, env, "alice")
	bob := register(t, env, "bob")

	dispatch(alice, `{"type":"add_friend","from":"alice","to":"bob"}`)
	recvFrame(t, bob)
	recvFrame(t, alice)
	dispatch(bob, `{"type":"accept_friend_request","from":"bob","to":"alice"}`)
	recvFrame(t, alice)
	recvFrame(t, bob)

	dispatch(alice, `{"type":"remove_friend","from":"alice","to":"bob"}`)

	for _, s := range []*Session{alice, bob} {
		removed := recvFrame(t, s)
		require.Equal(t, "friend_removed", removed["type"])
	}

	bobUser, err := env.st.FindUser(context.Background(), "bob")
	require.NoError(t, err)
	require.Empty(t, bobUser.Friends)
}

func TestDirectMessageDeliveredToRecipientOnly(t *testing.T) {
	env := newTestEnv()
	alice := register(t, env, "alice")
	bob := register(t, env, "bob")

	dispatch(alice, `{"type":"message","from":"alice","to":"bob","content":"hi bob"}`)

	delivered := recvFrame(t, bob)
	require.Equal(t, "message", delivered["type"])
	require.Equal(t, "hi bob", delivered["content"])
	require.NotEmpty(t, delivered["_id"])

	// Not echoed to the sender.
	requireNoFrame(t, alice)

	thread, err := env.deps.Messages.GetThread(context.Background(), "alice", "bob")
	require.NoError(t, err)
	require.Len(t, thread, 1)
}

func TestMessageToOfflineRecipientStillPersists(t *testing.T) {
	env := newTestEnv()
	alice := register(t, env, "alice")

	dispatch(alice, `{"type":"message","from":"alice","to":"bob","content":"are you there"}`)
	requireNoFrame(t, alice)

	thread, err := env.deps.Messages.GetThread(context.Background(), "alice", "bob")
	require.NoError(t, err)
	require.Len(t, thread, 1)
}

func TestAssistantMessage(t *testing.T) {
	env := newTestEnv()
	alice := register(t, env, "alice")

	dispatch(alice, fmt.Sprintf(`{"type":"message","from":"alice","to":%q,"content":"hello ai"}`, user.AssistantName))

	reply := recvFrame(t, alice)
	require.Equal(t, "message", reply["type"])
	require.Equal(t, user.AssistantName, reply["from"])
	require.Equal(t, "alice", reply["to"])
	require.Equal(t, "synthetic reply", reply["content"])
	require.NotEmpty(t, reply["_id"])

	// Exactly one outbound frame and exactly two persisted messages.
	requireNoFrame(t, alice)

	thread, err := env.deps.Messages.GetThread(context.Background(), "alice", user.AssistantName)
	require.NoError(t, err)
	require.Len(t, thread, 2)
	require.Equal(t, "hello ai", thread[0].Content)
	require.Equal(t, "synthetic reply", thread[1].Content)
	require.Equal(t, store.ThreadAssistant, thread[0].Thread)
}

func TestSmartRepliesToRequesterOnly(t *testing.T) {
	env := newTestEnv()
	alice := register(t, env, "alice")
	bob := register(t, env, "bob")

	dispatch(alice, `{"type":"get_smart_replies","from":"alice","to":"bob","context":{"messages":[{"content":"want to grab lunch?"}]}}`)

	frame := recvFrame(t, alice)
	require.Equal(t, "smart_replies", frame["type"])
	require.Equal(t, []any{"Sure!", "Tell me more"}, frame["suggestions"])

	requireNoFrame(t, bob)

	// Suggestions are never persisted.
	thread, err := env.deps.Messages.GetThread(context.Background(), "alice", "bob")
	require.NoError(t, err)
	require.Empty(t, thread)
}

func TestTypingStatusRelay(t *testing.T) {
	env := newTestEnv()
	alice := register(t, env, "alice")
	bob := register(t, env, "bob")

	dispatch(alice, `{"type":"typing_status","from":"alice","to":"bob","isTyping":true}`)

	frame := recvFrame(t, bob)
	require.Equal(t, "typing_status", frame["type"])
	require.Equal(t, true, frame["isTyping"])

	requireNoFrame(t, alice)
}

func TestMarkMessagesReadReceipt(t *testing.T) {
	env := newTestEnv()
	alice := register(t, env, "alice")
	bob := register(t, env, "bob")

	for range 3 {
		dispatch(alice, `{"type":"message","from":"alice","to":"bob","content":"unread"}`)
		recvFrame(t, bob)
	}

	dispatch(bob, `{"type":"mark_messages_read","reader":"bob","sender":"alice"}`)

	receipt := recvFrame(t, alice)
	require.Equal(t, "messages_read", receipt["type"])
	require.Equal(t, "bob", receipt["reader"])
	require.Equal(t, "alice", receipt["sender"])
	require.NotEmpty(t, receipt["timestamp"])

	// Everything read now; a second mark produces no receipt.
	dispatch(bob, `{"type":"mark_messages_read","reader":"bob","sender":"alice"}`)
	requireNoFrame(t, alice)
}

func TestLoadChatHistoryShape(t *testing.T) {
	env := newTestEnv()
	alice := register(t, env, "alice")
	bob := register(t, env, "bob")

	dispatch(alice, `{"type":"message","from":"alice","to":"bob","content":"first"}`)
	recvFrame(t, bob)
	dispatch(bob, `{"type":"message","from":"bob","to":"alice","content":"second"}`)
	recvFrame(t, alice)

	dispatch(alice, `{"type":"load_chat_history","from":"alice","to":"bob"}`)

	frame := recvFrame(t, alice)
	require.Equal(t, "chat_history", frame["type"])

	chat, ok := frame["chat"].([]any)
	require.True(t, ok)
	require.Len(t, chat, 2)

	entry := chat[0].(map[string]any)
	require.Equal(t, "message", entry["type"])
	require.Equal(t, "first", entry["content"])
	require.NotEmpty(t, entry["timestamp"])
	require.Equal(t, false, entry["read"])
	require.Nil(t, entry["readAt"])
	require.Equal(t, []any{}, entry["reactions"])
}

func TestGetFriendsAppendsAssistant(t *testing.T) {
	env := newTestEnv()
	alice := register(t, env, "alice")

	dispatch(alice, `{"type":"get_friends","username":"alice"}`)

	frame := recvFrame(t, alice)
	require.Equal(t, "friends_list", frame["type"])
	require.Equal(t, []any{user.AssistantName}, frame["friends"])

	// Unknown users degrade to an empty list rather than an error.
	dispatch(alice, `{"type":"get_friends","username":"nobody"}`)
	frame = recvFrame(t, alice)
	require.Equal(t, []any{user.AssistantName}, frame["friends"])
}

func TestGetFriendRequestsSnapshot(t *testing.T) {
	env := newTestEnv()
	alice := register(t, env, "alice")
	bob := register(t, env, "bob")

	dispatch(alice, `{"type":"add_friend","from":"alice","to":"bob"}`)
	recvFrame(t, bob)
	recvFrame(t, alice)

	dispatch(bob, `{"type":"get_friend_requests","username":"bob"}`)

	frame := recvFrame(t, bob)
	require.Equal(t, "friend_requests", frame["type"])
	require.Equal(t, []any{"alice"}, frame["requests"])
}

// flakyStore fails reaction clears a fixed number of times before recovering.
type flakyStore struct {
	store.Store
	failures   int
	clearCalls int
}

func (f *flakyStore) ClearUserReaction(ctx context.Context, id, username string) error {
	f.clearCalls++
	if f.clearCalls <= f.failures {
		return errors.New("store hiccup")
	}
	return f.Store.ClearUserReaction(ctx, id, username)
}

func savedMessageID(t *testing.T, env *testEnv, from, to, content string) string {
	t.Helper()

	id, err := env.deps.Messages.SaveMessage(context.Background(), from, to, content)
	require.NoError(t, err)
	return id
}

func TestReactionFanoutToLiveEndpoints(t *testing.T) {
	env := newTestEnv()
	alice := register(t, env, "alice")
	bob := register(t, env, "bob")

	id := savedMessageID(t, env, "alice", "bob", "react here")

	dispatch(bob, fmt.Sprintf(`{"type":"message_reaction","messageId":%q,"from":"bob","emoji":"👍"}`, id))

	for _, s := range []*Session{alice, bob} {
		update := recvFrame(t, s)
		require.Equal(t, "reaction_update", update["type"])
		require.Equal(t, id, update["messageId"])

		reactions := update["reactions"].([]any)
		require.Len(t, reactions, 1)
		group := reactions[0].(map[string]any)
		require.Equal(t, "👍", group["emoji"])
		require.EqualValues(t, 1, group["count"])
		require.Equal(t, []any{"bob"}, group["users"])
	}
}

func TestReactionSkipsOfflineEndpoint(t *testing.T) {
	env := newTestEnv()
	bob := register(t, env, "bob")

	// alice never connects; the update reaches only bob.
	id := savedMessageID(t, env, "alice", "bob", "offline sender")

	dispatch(bob, fmt.Sprintf(`{"type":"message_reaction","messageId":%q,"from":"bob","emoji":"🎉"}`, id))

	update := recvFrame(t, bob)
	require.Equal(t, "reaction_update", update["type"])
	requireNoFrame(t, bob)
}

func TestReactionReplaceOnWrite(t *testing.T) {
	env := newTestEnv()
	bob := register(t, env, "bob")

	id := savedMessageID(t, env, "alice", "bob", "double react")

	dispatch(bob, fmt.Sprintf(`{"type":"message_reaction","messageId":%q,"from":"bob","emoji":"👍"}`, id))
	recvFrame(t, bob)

	dispatch(bob, fmt.Sprintf(`{"type":"message_reaction","messageId":%q,"from":"bob","emoji":"❤️"}`, id))
	update := recvFrame(t, bob)

	reactions := update["reactions"].([]any)
	require.Len(t, reactions, 1)
	group := reactions[0].(map[string]any)
	require.Equal(t, "❤️", group["emoji"])
	require.EqualValues(t, 1, group["count"])
	require.Equal(t, []any{"bob"}, group["users"])
}

func TestReactionInvalidIDRejectedBeforeStore(t *testing.T) {
	env := newTestEnv()
	bob := register(t, env, "bob")

	dispatch(bob, `{"type":"message_reaction","messageId":"garbage","from":"bob","emoji":"👍"}`)

	frame := recvFrame(t, bob)
	require.Equal(t, "error", frame["type"])
	require.Equal(t, "Invalid message ID format", frame["message"])
}

func TestReactionUnknownMessage(t *testing.T) {
	env := newTestEnv()
	bob := register(t, env, "bob")

	dispatch(bob, `{"type":"message_reaction","messageId":"aaaaaaaa-bbbb-cccc-dddd-eeeeeeeeeeee","from":"bob","emoji":"👍"}`)

	frame := recvFrame(t, bob)
	require.Equal(t, "error", frame["type"])
	require.Equal(t, "Message not found.", frame["message"])
}

func TestReactionRetryRecovers(t *testing.T) {
	flaky := &flakyStore{Store: store.NewMemoryStore(), failures: 2}
	env := newTestEnvWith(flaky)
	bob := register(t, env, "bob")

	id := savedMessageID(t, env, "alice", "bob", "flaky store")

	dispatch(bob, fmt.Sprintf(`{"type":"message_reaction","messageId":%q,"from":"bob","emoji":"👍"}`, id))

	update := recvFrame(t, bob)
	require.Equal(t, "reaction_update", update["type"])

	// Two failures plus the successful third attempt.
	require.Equal(t, 3, flaky.clearCalls)

	// One consistent result, no duplicate entries.
	reactions := update["reactions"].([]any)
	require.Len(t, reactions, 1)
	group := reactions[0].(map[string]any)
	require.EqualValues(t, 1, group["count"])
}

func TestReactionRetryExhausted(t *testing.T) {
	flaky := &flakyStore{Store: store.NewMemoryStore(), failures: 100}
	env := newTestEnvWith(flaky)
	alice := register(t, env, "alice")
	bob := register(t, env, "bob")

	id := savedMessageID(t, env, "alice", "bob", "doomed")

	dispatch(bob, fmt.Sprintf(`{"type":"message_reaction","messageId":%q,"from":"bob","emoji":"👍"}`, id))

	frame := recvFrame(t, bob)
	require.Equal(t, "error", frame["type"])
	require.Equal(t, "Failed to add reaction after multiple attempts", frame["message"])

	// Bounded attempts, and the error goes to the initiator only.
	require.Equal(t, 3, flaky.clearCalls)
	requireNoFrame(t, alice)
}
