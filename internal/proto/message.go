package proto

import "encoding/json"

// Inbound is the envelope for messages coming from the client.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

const (
	ProtocolVersion = 1

	InboundTypeJoin      = "join"
	InboundTypeLeave     = "leave"
	InboundTypeMsg       = "msg"
	InboundTypeTyping    = "typing"
	InboundTypePrivate   = "private"
	InboundTypeSubscribe = "subscribe"
	InboundTypeMarkRead  = "mark_read"

	OutboundTypeEvent = "event"
	OutboundTypeError = "error"
)

// Outbound event names.
const (
	EventWelcome             = "welcome"
	EventMessage             = "message"
	EventMessageHistory      = "message_history"
	EventUserList            = "user_list"
	EventUserTyping          = "user_typing"
	EventPrivateMessage      = "private_message"
	EventNotification        = "notification"
	EventNotificationHistory = "notification_history"
	EventSubscribed          = "subscribed"
	EventMarkReadResponse    = "mark_read_response"
)

// JoinData introduces the client and requests to join a room.
type JoinData struct {
	Username string `json:"username"`
	Room     string `json:"room"`
}

// MsgData is a chat message for the client's current room.
type MsgData struct {
	Text string `json:"text"`
}

// TypingData signals whether the client is typing.
type TypingData struct {
	Typing bool `json:"typing"`
}

// PrivateData is a direct message to another user.
type PrivateData struct {
	To   string `json:"to"`
	Text string `json:"text"`
}

// SubscribeData attaches this connection to a user's notification stream.
type SubscribeData struct {
	User string `json:"user"`
}

// MarkReadData asks to flip a notification's read flag.
type MarkReadData struct {
	ID string `json:"id"`
}

// Outbound is the envelope for messages sent to the client.
type Outbound struct {
	Type  string `json:"type"`
	Event string `json:"event,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// WelcomeData greets a new connection with its assigned id.
type WelcomeData struct {
	ConnectionID string `json:"connection_id"`
	Protocol     int    `json:"protocol"`
}

// EventMessageData is a room message (user chat or system notice).
type EventMessageData struct {
	ID   int64  `json:"id"`
	Room string `json:"room"`
	Kind string `json:"kind"`
	User string `json:"user"`
	Name string `json:"name,omitempty"`
	Text string `json:"text"`
	TS   int64  `json:"ts"`
}

// HistoryData delivers trailing room history on join.
type HistoryData struct {
	Room     string             `json:"room"`
	Messages []EventMessageData `json:"messages"`
}

// UserListData is the current member list of a room.
type UserListData struct {
	Room  string   `json:"room"`
	Users []string `json:"users"`
}

// UserTypingData relays a typing indicator.
type UserTypingData struct {
	Room   string `json:"room"`
	User   string `json:"user"`
	Typing bool   `json:"typing"`
}

// PrivateMessageData is a delivered direct message.
type PrivateMessageData struct {
	From string `json:"from"`
	Name string `json:"name,omitempty"`
	To   string `json:"to"`
	Text string `json:"text"`
	TS   int64  `json:"ts"`
}

// SubscribedData confirms a notification subscription.
type SubscribedData struct {
	User string `json:"user"`
}

// MarkReadResponseData reports a mark-as-read outcome.
type MarkReadResponseData struct {
	NotificationID string `json:"notification_id"`
	Success        bool   `json:"success"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}
