package core

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/roomcast/roomcast-server/internal/notify"
)

type inbound struct {
	client *Client
	cmd    *Command
}

// Hub is the message router. It owns all mutation of the registry and the
// room store: every client command is funneled through a single Run
// goroutine, which preserves per-room event ordering without per-room locks.
type Hub struct {
	registry *Registry
	rooms    *RoomStore
	notifier *notify.Manager
	sweepTTL time.Duration
	log      zerolog.Logger

	register   chan *Client
	unregister chan *Client
	commands   chan inbound

	clients map[string]*Client
	subs    map[string]string // connection id -> subscribed user id
}

// NewHub constructs a hub over explicitly owned stores. sweepTTL > 0 enables
// periodic eviction of rooms that stayed empty longer than the TTL; zero
// retains empty rooms forever.
func NewHub(registry *Registry, rooms *RoomStore, notifier *notify.Manager, sweepTTL time.Duration, logger zerolog.Logger) *Hub {
	return &Hub{
		registry:   registry,
		rooms:      rooms,
		notifier:   notifier,
		sweepTTL:   sweepTTL,
		log:        logger.With().Str("component", "hub").Logger(),
		register:   make(chan *Client, 16),
		unregister: make(chan *Client, 16),
		commands:   make(chan inbound, 64),
		clients:    make(map[string]*Client),
		subs:       make(map[string]string),
	}
}

// RegisterClient hands a freshly connected client to the hub.
func (h *Hub) RegisterClient(c *Client) {
	h.register <- c
}

// UnregisterClient tells the hub the client's transport is gone. The hub
// cascades room departure and subscription cleanup, then closes c.Done().
func (h *Hub) UnregisterClient(c *Client) {
	h.unregister <- c
}

// Run processes client lifecycle and commands until ctx is canceled.
func (h *Hub) Run(ctx context.Context) {
	var sweep <-chan time.Time
	if h.sweepTTL > 0 {
		ticker := time.NewTicker(h.sweepTTL)
		defer ticker.Stop()
		sweep = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case c := <-h.register:
			h.handleRegister(c)
		case c := <-h.unregister:
			h.handleDisconnect(c)
		case in := <-h.commands:
			h.handleCommand(in.client, in.cmd)
		case now := <-sweep:
			if n := h.rooms.SweepEmpty(h.sweepTTL, now); n > 0 {
				h.log.Info().Int("rooms", n).Msg("evicted empty rooms")
			}
		}
	}
}

func (h *Hub) handleRegister(c *Client) {
	select {
	case <-c.done:
		// Transport died before registration was processed.
		return
	default:
	}
	if _, ok := h.clients[c.ID]; ok {
		return
	}
	h.clients[c.ID] = c
	go h.forward(c)
	c.Push(&Event{Kind: EventWelcome, User: c.ID})
	h.log.Debug().Str("conn_id", c.ID).Msg("client registered")
}

// forward fans the client's command channel into the hub's single inbox.
func (h *Hub) forward(c *Client) {
	for {
		select {
		case cmd, ok := <-c.Commands:
			if !ok {
				return
			}
			select {
			case h.commands <- inbound{client: c, cmd: cmd}:
			case <-c.done:
				return
			}
		case <-c.done:
			return
		}
	}
}

func (h *Hub) handleDisconnect(c *Client) {
	if _, ok := h.clients[c.ID]; !ok {
		c.stop()
		return
	}
	if conn, ok := h.registry.Lookup(c.ID); ok && conn.Room != "" {
		h.leaveRoom(c, conn)
	}
	h.notifier.DropConnection(c.ID)
	delete(h.subs, c.ID)
	h.registry.Unregister(c.ID)
	delete(h.clients, c.ID)
	c.stop()
	h.log.Debug().Str("conn_id", c.ID).Msg("client unregistered")
}

func (h *Hub) handleCommand(c *Client, cmd *Command) {
	switch cmd.Kind {
	case CommandJoin:
		h.handleJoin(c, cmd)
	case CommandLeave:
		h.handleLeave(c)
	case CommandSendMessage:
		h.handleChat(c, cmd)
	case CommandTyping:
		h.handleTyping(c, cmd)
	case CommandSendPrivate:
		h.handlePrivate(c, cmd)
	case CommandSubscribe:
		h.handleSubscribe(c, cmd)
	case CommandMarkRead:
		h.handleMarkRead(c, cmd)
	default:
		h.pushError(c, ErrCodeValidation, "unknown command")
	}
}

func (h *Hub) handleJoin(c *Client, cmd *Command) {
	if err := h.registry.Register(c.ID, cmd.Username, cmd.Username); err != nil {
		h.pushCoreError(c, err)
		return
	}
	conn, _ := h.registry.Lookup(c.ID)

	// Re-joining the same room is idempotent: resend the snapshot, no notices.
	if conn.Room == cmd.Room {
		snap, _ := h.rooms.Join(cmd.Room, c.ID)
		h.pushSnapshot(c, snap)
		return
	}

	// Single-room-at-a-time: switching rooms implies leaving the old one,
	// with the departure announced before the arrival.
	if conn.Room != "" {
		h.leaveRoom(c, conn)
	}

	snap, _ := h.rooms.Join(cmd.Room, c.ID)
	h.registry.SetRoom(c.ID, cmd.Room)
	h.pushSnapshot(c, snap)

	notice := Message{
		Kind:     MessageSystem,
		From:     conn.UserID,
		FromName: conn.DisplayName,
		Text:     fmt.Sprintf("%s joined the room", conn.DisplayName),
	}
	if stored, ok := h.rooms.Append(cmd.Room, notice); ok {
		h.broadcast(cmd.Room, &Event{Kind: EventMessage, Room: cmd.Room, User: conn.UserID, Message: stored}, c.ID)
	}
	h.broadcast(cmd.Room, &Event{Kind: EventUserList, Room: cmd.Room, Users: h.memberNames(cmd.Room)}, "")

	h.log.Info().Str("conn_id", c.ID).Str("user", conn.UserID).Str("room", cmd.Room).Msg("joined room")
}

func (h *Hub) handleLeave(c *Client) {
	conn, ok := h.registry.Lookup(c.ID)
	if !ok || conn.Room == "" {
		h.pushError(c, ErrCodeNotInRoom, "you are not in a room")
		return
	}
	h.leaveRoom(c, conn)
}

// leaveRoom removes the connection from its room and announces the
// departure to the remaining members.
func (h *Hub) leaveRoom(c *Client, conn Connection) {
	roomID := conn.Room
	h.rooms.Leave(roomID, c.ID)
	h.registry.ClearRoom(c.ID)

	notice := Message{
		Kind:     MessageSystem,
		From:     conn.UserID,
		FromName: conn.DisplayName,
		Text:     fmt.Sprintf("%s left the room", conn.DisplayName),
	}
	if stored, ok := h.rooms.Append(roomID, notice); ok {
		h.broadcast(roomID, &Event{Kind: EventMessage, Room: roomID, User: conn.UserID, Message: stored}, "")
	}
	h.broadcast(roomID, &Event{Kind: EventUserList, Room: roomID, Users: h.memberNames(roomID)}, "")

	h.log.Info().Str("conn_id", c.ID).Str("user", conn.UserID).Str("room", roomID).Msg("left room")
}

func (h *Hub) handleChat(c *Client, cmd *Command) {
	conn, ok := h.registry.Lookup(c.ID)
	if !ok || conn.Room == "" {
		h.pushError(c, ErrCodeNotInRoom, "join a room before sending messages")
		return
	}

	msg := Message{
		Kind:     MessageUser,
		From:     conn.UserID,
		FromName: conn.DisplayName,
		Text:     cmd.Text,
	}
	stored, ok := h.rooms.Append(conn.Room, msg)
	if !ok {
		h.pushError(c, ErrCodeRoomNotFound, "room no longer exists")
		return
	}
	// The sender gets its own message echoed back as confirmation.
	h.broadcast(conn.Room, &Event{Kind: EventMessage, Room: conn.Room, User: conn.UserID, Message: stored}, "")
}

func (h *Hub) handleTyping(c *Client, cmd *Command) {
	conn, ok := h.registry.Lookup(c.ID)
	if !ok || conn.Room == "" {
		// Fire-and-forget signal; outside a room there is nobody to tell.
		return
	}
	h.broadcast(conn.Room, &Event{
		Kind:   EventUserTyping,
		Room:   conn.Room,
		User:   conn.DisplayName,
		Typing: cmd.Typing,
	}, c.ID)
}

func (h *Hub) handlePrivate(c *Client, cmd *Command) {
	conn, ok := h.registry.Lookup(c.ID)
	if !ok {
		h.pushError(c, ErrCodeValidation, "join first to establish your identity")
		return
	}

	targets := h.registry.FindByUserID(cmd.TargetUser)
	if len(targets) == 0 {
		h.pushError(c, ErrCodeRecipientOffline, fmt.Sprintf("user %s is not online", cmd.TargetUser))
		return
	}

	ev := &Event{
		Kind: EventPrivateMessage,
		Private: PrivateMessage{
			From:      conn.UserID,
			FromName:  conn.DisplayName,
			To:        cmd.TargetUser,
			Text:      cmd.Text,
			CreatedAt: time.Now().UTC(),
		},
	}

	echoed := false
	for _, target := range targets {
		if cl, ok := h.clients[target.ID]; ok {
			cl.Push(ev)
			if target.ID == c.ID {
				echoed = true
			}
		}
	}
	if !echoed {
		c.Push(ev)
	}
}

func (h *Hub) handleSubscribe(c *Client, cmd *Command) {
	userID := cmd.Username
	backfill := h.notifier.Subscribe(userID, c.ID, clientReceiver{c})
	h.subs[c.ID] = userID

	c.Push(&Event{Kind: EventSubscribed, User: userID})
	c.Push(&Event{Kind: EventNotificationHistory, Notifications: backfill})
	h.log.Debug().Str("conn_id", c.ID).Str("user", userID).Msg("subscribed to notifications")
}

func (h *Hub) handleMarkRead(c *Client, cmd *Command) {
	userID, ok := h.subs[c.ID]
	if !ok {
		h.pushError(c, ErrCodeValidation, "subscribe before marking notifications read")
		return
	}
	success := h.notifier.MarkAsRead(userID, cmd.NotificationID)
	c.Push(&Event{Kind: EventMarkReadResponse, MarkRead: &MarkReadResult{
		NotificationID: cmd.NotificationID,
		Success:        success,
	}})
}

// broadcast pushes an event to every member of a room except the excluded
// connection id ("" excludes nobody).
func (h *Hub) broadcast(roomID string, ev *Event, exclude string) {
	for _, id := range h.rooms.Members(roomID) {
		if id == exclude {
			continue
		}
		if cl, ok := h.clients[id]; ok {
			if !cl.Push(ev) {
				h.log.Debug().Str("conn_id", id).Str("room", roomID).Msg("dropped event for slow client")
			}
		}
	}
}

func (h *Hub) pushSnapshot(c *Client, snap Snapshot) {
	c.Push(&Event{Kind: EventMessageHistory, Room: snap.Room, Messages: snap.History})
	c.Push(&Event{Kind: EventUserList, Room: snap.Room, Users: h.memberNames(snap.Room)})
}

func (h *Hub) memberNames(roomID string) []string {
	ids := h.rooms.Members(roomID)
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		if conn, ok := h.registry.Lookup(id); ok {
			names = append(names, conn.DisplayName)
		}
	}
	sort.Strings(names)
	return names
}

func (h *Hub) pushError(c *Client, code, msg string) {
	c.Push(&Event{Kind: EventError, Error: coreError(code, msg)})
}

func (h *Hub) pushCoreError(c *Client, err error) {
	if ce, ok := err.(*CoreError); ok {
		c.Push(&Event{Kind: EventError, Error: ce})
		return
	}
	h.pushError(c, ErrCodeValidation, err.Error())
}

// clientReceiver adapts a core client to the notification manager's
// delivery interface.
type clientReceiver struct {
	c *Client
}

func (r clientReceiver) Receive(n notify.Notification) bool {
	return r.c.Push(&Event{Kind: EventNotification, Notification: &n})
}
