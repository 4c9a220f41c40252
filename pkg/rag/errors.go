package rag

import "errors"

var (
	// ErrEmptyQuery is returned when a search query is blank.
	ErrEmptyQuery = errors.New("search query is required")

	// ErrNoMessages is returned when a chat request has no messages.
	ErrNoMessages = errors.New("messages array is required")

	// ErrLastMessageNotUser is returned when the final chat message was not
	// written by the user.
	ErrLastMessageNotUser = errors.New("latest message must be from user")

	// ErrChatDisabled is returned when no chat provider is configured.
	ErrChatDisabled = errors.New("chat provider is not configured")
)
