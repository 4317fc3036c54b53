package core

// CommandKind describes what the client wants to do.
type CommandKind int

const (
	// CommandJoin sets the client's identity and subscribes it to a room.
	CommandJoin CommandKind = iota
	// CommandLeave unsubscribes the client from its current room.
	CommandLeave
	// CommandSendMessage delivers a chat message to room participants.
	CommandSendMessage
	// CommandTyping signals a typing indicator to other room members.
	CommandTyping
	// CommandSendPrivate delivers a message directly to another user.
	CommandSendPrivate
	// CommandSubscribe attaches the connection to a user's notification stream.
	CommandSubscribe
	// CommandMarkRead flips a notification's read flag for the subscriber.
	CommandMarkRead
)

// Command represents an action requested by a client. The transport mapper
// validates payloads before a command is built, so the hub can assume the
// fields required by each kind are present.
type Command struct {
	Kind           CommandKind
	Room           string
	Username       string
	Text           string
	Typing         bool
	TargetUser     string
	NotificationID string
}
