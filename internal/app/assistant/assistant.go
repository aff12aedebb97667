/*
Package assistant provides the response generator collaborator: the synthetic
"AI Assistant" peer that answers messages and proposes quick replies.

Implementations fail closed. A reply fault degrades to a fixed apology string
and a suggestion fault to an empty or canned list, so the dispatcher never sees
a generator error.
*/
package assistant

import "context"

// ApologyReply is returned when the generator cannot produce a response.
const ApologyReply = "Sorry, I couldn't generate a response right now."

// ContextMessage is one prior conversation message supplied as suggestion context.
type ContextMessage struct {
	Content string `json:"content"`
}

// Generator produces conversational replies and quick-reply suggestions.
type Generator interface {
	// Reply answers a user message. It never fails; internal faults yield ApologyReply.
	Reply(ctx context.Context, message string) string

	// SuggestReplies proposes short quick replies for the given context. It
	// returns at most the generator's configured suggestion count and may return
	// an empty list on fault.
	SuggestReplies(ctx context.Context, context []ContextMessage) []string
}
