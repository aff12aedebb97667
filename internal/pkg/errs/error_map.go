/*
Package errs provides custom error types and application-level error code constants.

This file defines the map from error codes to the CustomError struct, used to standardize
status frames and internal error handling.
*/
package errs

import "net/http"

// errorMap stores the detailed CustomError struct corresponding to every application error code.
// The key is the error code (int), and the value contains the user message and HTTP status code.
var errorMap = map[int]CustomError{
	// 1xxx: Frame and Request Handling Errors
	ErrInvalidFrame:      {Code: ErrInvalidFrame, Message: "Invalid request."},
	ErrMissingField:      {Code: ErrMissingField, Message: "Missing required field: %s."},
	ErrRateLimitExceeded: {Code: ErrRateLimitExceeded, Message: "Too many requests. Please try again later.", Status: http.StatusTooManyRequests},

	// 2xxx: Message and Reaction Errors
	ErrInvalidMessageID:     {Code: ErrInvalidMessageID, Message: "Invalid message ID format"},
	ErrMessageNotFound:      {Code: ErrMessageNotFound, Message: "Message not found."},
	ErrReactionFailed:       {Code: ErrReactionFailed, Message: "Failed to add reaction after multiple attempts"},
	ErrAssistantUnavailable: {Code: ErrAssistantUnavailable, Message: "Failed to get AI response. Please try again."},

	// 3xxx: User and Friend Graph Errors
	ErrUserNotFound:          {Code: ErrUserNotFound, Message: "One or both users do not exist"},
	ErrSelfFriendRequest:     {Code: ErrSelfFriendRequest, Message: "Cannot send friend request to yourself"},
	ErrAlreadyFriends:        {Code: ErrAlreadyFriends, Message: "Users are already friends"},
	ErrDuplicateRequest:      {Code: ErrDuplicateRequest, Message: "Friend request already sent"},
	ErrReverseRequestPending: {Code: ErrReverseRequestPending, Message: "You have a pending friend request from this user"},
	ErrRequestNotFound:       {Code: ErrRequestNotFound, Message: "Friend request not found"},

	// 5xxx: Internal System Errors
	ErrUnknown:          {Code: ErrUnknown, Message: "Something went wrong. Please try again.", Status: http.StatusInternalServerError},
	ErrStoreUnavailable: {Code: ErrStoreUnavailable, Message: "Service is temporarily unavailable. Please try again.", Status: http.StatusServiceUnavailable},
}
