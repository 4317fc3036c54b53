package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/roomcast/roomcast-server/internal/core"
	"github.com/roomcast/roomcast-server/internal/notify"
)

// AdminHandlers exposes the administrative query surface over REST: room
// inventory and the notification API.
type AdminHandlers struct {
	registry *core.Registry
	rooms    *core.RoomStore
	notifier *notify.Manager
	log      *zerolog.Logger
}

// NewAdminHandlers creates the admin handler set.
func NewAdminHandlers(registry *core.Registry, rooms *core.RoomStore, notifier *notify.Manager, logger *zerolog.Logger) *AdminHandlers {
	return &AdminHandlers{
		registry: registry,
		rooms:    rooms,
		notifier: notifier,
		log:      logger,
	}
}

// ErrorResponse is the generic error body for admin endpoints.
type ErrorResponse struct {
	Error string `json:"error"`
}

// MessageResponse is a room message in API responses.
type MessageResponse struct {
	ID        int64  `json:"id"`
	Kind      string `json:"kind"`
	User      string `json:"user"`
	Name      string `json:"name,omitempty"`
	Text      string `json:"text"`
	CreatedAt string `json:"created_at"`
}

// RoomDetailResponse is the full view of one room.
type RoomDetailResponse struct {
	Room     string            `json:"room"`
	Members  []string          `json:"members"`
	Messages []MessageResponse `json:"messages"`
}

// ListRooms returns member and message counts for every room.
// GET /api/rooms
func (h *AdminHandlers) ListRooms(c *gin.Context) {
	c.JSON(http.StatusOK, h.rooms.ListRooms())
}

// RoomDetail returns one room's member names and history.
// GET /api/rooms/:room
func (h *AdminHandlers) RoomDetail(c *gin.Context) {
	roomID := c.Param("room")

	snap, ok := h.rooms.RoomDetail(roomID)
	if !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: core.ErrCodeRoomNotFound})
		return
	}

	members := make([]string, 0, len(snap.Members))
	for _, connID := range snap.Members {
		if conn, ok := h.registry.Lookup(connID); ok {
			members = append(members, conn.DisplayName)
		}
	}

	messages := make([]MessageResponse, 0, len(snap.History))
	for _, m := range snap.History {
		messages = append(messages, MessageResponse{
			ID:        m.ID,
			Kind:      string(m.Kind),
			User:      m.From,
			Name:      m.FromName,
			Text:      m.Text,
			CreatedAt: m.CreatedAt.Format(time.RFC3339),
		})
	}

	c.JSON(http.StatusOK, RoomDetailResponse{
		Room:     snap.Room,
		Members:  members,
		Messages: messages,
	})
}

// CreateNotificationRequest is the publish request body.
type CreateNotificationRequest struct {
	TargetUserID string         `json:"target_user_id" binding:"required"`
	Category     string         `json:"category"`
	Title        string         `json:"title" binding:"required"`
	Body         string         `json:"body"`
	Payload      map[string]any `json:"payload"`
}

// CreateNotification publishes a notification and fans it out to current
// subscribers.
// POST /api/notifications
func (h *AdminHandlers) CreateNotification(c *gin.Context) {
	var req CreateNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid create notification request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	n := h.notifier.Publish(notify.Input{
		TargetUserID: req.TargetUserID,
		Category:     notify.Category(req.Category),
		Title:        req.Title,
		Body:         req.Body,
		Payload:      req.Payload,
	})

	h.log.Info().Str("notification_id", n.ID).Str("target", n.TargetUserID).Msg("notification created")
	c.JSON(http.StatusCreated, n)
}

// ListNotifications returns the notifications visible to a user, oldest
// first; ?unread=true restricts to unread ones.
// GET /api/users/:user/notifications
func (h *AdminHandlers) ListNotifications(c *gin.Context) {
	userID := c.Param("user")
	unreadOnly := c.Query("unread") == "true"

	notifications := h.notifier.Query(userID, unreadOnly)
	if notifications == nil {
		notifications = []notify.Notification{}
	}
	c.JSON(http.StatusOK, notifications)
}

// MarkReadRequest identifies the user marking a notification read.
type MarkReadRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

// MarkReadResponse reports the outcome of a mark-as-read request.
type MarkReadResponse struct {
	NotificationID string `json:"notification_id"`
	Success        bool   `json:"success"`
}

// MarkNotificationRead flips a notification's read flag for a user. A miss
// (unknown id, or not addressed to the user) is a success=false response,
// not an error.
// POST /api/notifications/:id/read
func (h *AdminHandlers) MarkNotificationRead(c *gin.Context) {
	notificationID := c.Param("id")

	var req MarkReadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid mark read request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	success := h.notifier.MarkAsRead(req.UserID, notificationID)
	c.JSON(http.StatusOK, MarkReadResponse{
		NotificationID: notificationID,
		Success:        success,
	})
}
