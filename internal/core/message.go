package core

import "time"

// MessageKind distinguishes user chat from server-generated notices.
type MessageKind string

const (
	MessageSystem MessageKind = "system"
	MessageUser   MessageKind = "user"
)

// Message is the domain model for a room message. The canonical copy lives
// in the room's history; ID is assigned by the store on append.
type Message struct {
	ID        int64
	Room      string
	From      string
	FromName  string
	Kind      MessageKind
	Text      string
	CreatedAt time.Time
}

// PrivateMessage is routed directly between users and never stored.
type PrivateMessage struct {
	From      string
	FromName  string
	To        string
	Text      string
	CreatedAt time.Time
}
