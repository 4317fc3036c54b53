package core

import "errors"

// Error codes for domain errors.
const (
	ErrCodeValidation          = "validation"
	ErrCodeNotInRoom           = "not_in_room"
	ErrCodeRecipientOffline    = "recipient_offline"
	ErrCodeRoomNotFound        = "room_not_found"
	ErrCodeDuplicateConnection = "duplicate_connection"
)

var (
	ErrNotInRoom           = errors.New("not in a room")
	ErrRecipientOffline    = errors.New("recipient offline")
	ErrRoomNotFound        = errors.New("room not found")
	ErrDuplicateConnection = errors.New("duplicate connection")
)

// CoreError wraps a code and human-readable message. All domain errors are
// recoverable: the router reports them to the offending client and carries on.
type CoreError struct {
	Code    string
	Message string
}

func (e *CoreError) Error() string {
	return e.Message
}

func coreError(code, msg string) *CoreError {
	return &CoreError{Code: code, Message: msg}
}
