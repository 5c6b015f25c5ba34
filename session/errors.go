package session

import "errors"

var (
	// ErrInvalidState is returned when a command is issued from a session
	// state it is not valid in.
	ErrInvalidState = errors.New("command not valid in current session state")

	// ErrNotAuthenticated is returned by the request hooks when no live
	// credentials exist to attach or refresh.
	ErrNotAuthenticated = errors.New("session not authenticated")

	// ErrRefreshFailed is returned when a token refresh settles as
	// irrecoverable. The session has already been invalidated; the caller
	// must surface a full sign-out, never retry.
	ErrRefreshFailed = errors.New("token refresh failed")

	// ErrSessionSuperseded is returned when an in-flight operation settles
	// after the session it belonged to was cleared. Its result is discarded.
	ErrSessionSuperseded = errors.New("session superseded")
)
