/*
Package errs provides custom error types and application-level error code constants.

These error codes are used to clearly identify specific business or system errors
both internally within the server and in communication with clients.
*/
package errs

// 1xxx: Frame and Request Handling Errors
const (
	// ErrInvalidFrame indicates that an inbound frame failed validation.
	ErrInvalidFrame = 1001

	// ErrMissingField indicates that a required frame field was absent or empty.
	ErrMissingField = 1002

	// ErrRateLimitExceeded indicates that the connection rate has exceeded the set limit.
	ErrRateLimitExceeded = 1003
)

// 2xxx: Message and Reaction Errors
const (
	// ErrInvalidMessageID indicates that a message id did not parse as a valid id.
	ErrInvalidMessageID = 2001

	// ErrMessageNotFound indicates that no message exists for the given id.
	ErrMessageNotFound = 2002

	// ErrReactionFailed indicates that a reaction could not be applied after all retry attempts.
	ErrReactionFailed = 2003

	// ErrAssistantUnavailable indicates the assistant could not produce a response.
	ErrAssistantUnavailable = 2004
)

// 3xxx: User and Friend Graph Errors
const (
	// ErrUserNotFound indicates that one of the referenced users does not exist.
	ErrUserNotFound = 3001

	// ErrSelfFriendRequest indicates a user attempted to friend themselves.
	ErrSelfFriendRequest = 3002

	// ErrAlreadyFriends indicates the two users are already friends.
	ErrAlreadyFriends = 3003

	// ErrDuplicateRequest indicates an identical friend request is already pending.
	ErrDuplicateRequest = 3004

	// ErrReverseRequestPending indicates the other user already sent a request; it should be accepted instead.
	ErrReverseRequestPending = 3005

	// ErrRequestNotFound indicates no pending request exists for the attempted accept or reject.
	ErrRequestNotFound = 3006
)

// 5xxx: Internal System Errors
const (
	// ErrUnknown represents an unclassified, general server internal error.
	ErrUnknown = 5000

	// ErrStoreUnavailable indicates the document store failed or was unreachable.
	ErrStoreUnavailable = 5001
)
