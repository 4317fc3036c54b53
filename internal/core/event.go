package core

import "github.com/roomcast/roomcast-server/internal/notify"

// EventKind is a notification the core emits to clients.
type EventKind int

const (
	// EventWelcome greets a freshly registered connection.
	EventWelcome EventKind = iota
	// EventMessage carries a room message (user chat or system notice).
	EventMessage
	// EventMessageHistory delivers trailing history to a client upon joining.
	EventMessageHistory
	// EventUserList delivers the current member list of a room.
	EventUserList
	// EventUserTyping relays a typing indicator to other room members.
	EventUserTyping
	// EventPrivateMessage delivers a direct message between users.
	EventPrivateMessage
	// EventError notifies the client about a domain error.
	EventError
	// EventNotification pushes a published notification to a subscriber.
	EventNotification
	// EventNotificationHistory delivers the backfill after subscribing.
	EventNotificationHistory
	// EventSubscribed confirms a notification subscription.
	EventSubscribed
	// EventMarkReadResponse reports the outcome of a mark-as-read request.
	EventMarkReadResponse
)

// MarkReadResult reports whether a mark-as-read request matched a
// notification addressed to the requesting user.
type MarkReadResult struct {
	NotificationID string
	Success        bool
}

// Event is sent to clients to describe what happened in the system.
type Event struct {
	Kind          EventKind
	Room          string
	User          string
	Typing        bool
	Message       Message
	Messages      []Message // for EventMessageHistory
	Users         []string  // for EventUserList
	Private       PrivateMessage
	Notification  *notify.Notification
	Notifications []notify.Notification // for EventNotificationHistory
	MarkRead      *MarkReadResult
	Error         *CoreError
}
