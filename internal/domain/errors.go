package domain

import "errors"

// None of these is fatal: the dialogue core reports them as values and the
// worst case for the user is a no-op turn.
var (
	ErrEmptyInput            = errors.New("empty input")
	ErrAwaitingReply         = errors.New("assistant reply pending")
	ErrUnsupportedCapability = errors.New("voice capture not supported")
	ErrCaptureActive         = errors.New("voice capture already active")
	ErrCaptureFailure        = errors.New("voice capture failed")
	ErrStaleCallback         = errors.New("callback for a disposed or superseded turn")
	ErrSessionClosed         = errors.New("session closed")
	ErrSessionNotFound       = errors.New("session not found")
	ErrTooManySessions       = errors.New("too many active sessions")
)
