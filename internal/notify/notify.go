// Package notify implements the notification fan-out subsystem: per-user
// subscription sets, a bounded global notification history, and best-effort
// delivery to every live connection subscribed under a user id. It is
// independent of room membership and of the chat core.
package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// TargetAll is the sentinel target meaning "broadcast to every subscriber".
const TargetAll = "all"

// Category classifies a notification for display purposes.
type Category string

const (
	CategoryInfo    Category = "info"
	CategoryWarning Category = "warning"
	CategoryError   Category = "error"
	CategorySuccess Category = "success"
)

// ValidCategory reports whether c is one of the known categories.
func ValidCategory(c Category) bool {
	switch c {
	case CategoryInfo, CategoryWarning, CategoryError, CategorySuccess:
		return true
	}
	return false
}

// Notification is a delivered or queryable notification. The canonical copy
// lives in the manager's history; recipients get value copies.
type Notification struct {
	ID           string         `json:"id"`
	TargetUserID string         `json:"target_user_id"`
	Category     Category       `json:"category"`
	Title        string         `json:"title"`
	Body         string         `json:"body"`
	Payload      map[string]any `json:"payload,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	Read         bool           `json:"read"`
}

// Input is the caller-supplied part of a notification.
type Input struct {
	TargetUserID string         `json:"target_user_id"`
	Category     Category       `json:"category"`
	Title        string         `json:"title"`
	Body         string         `json:"body"`
	Payload      map[string]any `json:"payload,omitempty"`
}

// Receiver accepts pushed notifications for one live connection. Receive
// must not block; it reports whether the notification was accepted, and a
// false return is logged but otherwise ignored (delivery is best-effort).
type Receiver interface {
	Receive(Notification) bool
}

// Manager owns the subscription index and the global notification history.
// All state is guarded by a single mutex; no method blocks on I/O.
type Manager struct {
	mu       sync.Mutex
	limit    int
	backfill int
	history  []*Notification
	subs     map[string]map[string]Receiver // userID -> connID -> receiver
	log      zerolog.Logger
}

// NewManager constructs a manager retaining at most limit notifications and
// returning at most backfill entries on subscribe.
func NewManager(limit, backfill int, logger zerolog.Logger) *Manager {
	if limit < 1 {
		limit = 1
	}
	if backfill < 0 {
		backfill = 0
	}
	return &Manager{
		limit:    limit,
		backfill: backfill,
		subs:     make(map[string]map[string]Receiver),
		log:      logger.With().Str("component", "notify").Logger(),
	}
}

// Subscribe registers a connection under a user id and returns the most
// recent backfill notifications addressed to that user or to all, oldest
// first. Subscribing the same connection again replaces its receiver.
func (m *Manager) Subscribe(userID, connID string, recv Receiver) []Notification {
	m.mu.Lock()
	defer m.mu.Unlock()

	set, ok := m.subs[userID]
	if !ok {
		set = make(map[string]Receiver)
		m.subs[userID] = set
	}
	set[connID] = recv

	relevant := m.visibleLocked(userID, false)
	if len(relevant) > m.backfill {
		relevant = relevant[len(relevant)-m.backfill:]
	}
	return relevant
}

// Unsubscribe detaches a connection from a user's stream. The user's entry
// is removed once its connection set becomes empty.
func (m *Manager) Unsubscribe(userID, connID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dropLocked(userID, connID)
}

// DropConnection removes the connection from every user's subscription set.
// Used when a transport session ends without an explicit unsubscribe.
func (m *Manager) DropConnection(connID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for userID, set := range m.subs {
		if _, ok := set[connID]; ok {
			m.dropLocked(userID, connID)
		}
	}
}

// Publish assigns identity to the input, appends it to the bounded history
// and pushes it to the recipient connection set. Delivery is at-most-once:
// connections whose transport has silently died just miss it.
func (m *Manager) Publish(in Input) Notification {
	if !ValidCategory(in.Category) {
		in.Category = CategoryInfo
	}

	n := &Notification{
		ID:           uuid.NewString(),
		TargetUserID: in.TargetUserID,
		Category:     in.Category,
		Title:        in.Title,
		Body:         in.Body,
		Payload:      in.Payload,
		CreatedAt:    time.Now().UTC(),
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.history = append(m.history, n)
	if len(m.history) > m.limit {
		cnt := copy(m.history, m.history[len(m.history)-m.limit:])
		for i := cnt; i < len(m.history); i++ {
			m.history[i] = nil
		}
		m.history = m.history[:cnt]
	}

	delivered := 0
	for _, recv := range m.recipientsLocked(n.TargetUserID) {
		if recv.Receive(*n) {
			delivered++
		}
	}
	m.log.Debug().
		Str("notification_id", n.ID).
		Str("target", n.TargetUserID).
		Int("delivered", delivered).
		Msg("notification published")

	return *n
}

// MarkAsRead flips the read flag of a notification addressed to the user (or
// to all). Returns false, mutating nothing, when the id is unknown or the
// notification is not visible to that user.
func (m *Manager) MarkAsRead(userID, notificationID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, n := range m.history {
		if n.ID != notificationID {
			continue
		}
		if n.TargetUserID != userID && n.TargetUserID != TargetAll {
			return false
		}
		n.Read = true
		return true
	}
	return false
}

// Query returns the notifications visible to a user, oldest first,
// optionally restricted to unread ones.
func (m *Manager) Query(userID string, unreadOnly bool) []Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.visibleLocked(userID, unreadOnly)
}

// SubscriberCount returns the number of user ids with live subscriptions.
func (m *Manager) SubscriberCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subs)
}

// ConnectionCount returns the number of subscribed connections across users.
func (m *Manager) ConnectionCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, set := range m.subs {
		total += len(set)
	}
	return total
}

func (m *Manager) visibleLocked(userID string, unreadOnly bool) []Notification {
	var out []Notification
	for _, n := range m.history {
		if n.TargetUserID != userID && n.TargetUserID != TargetAll {
			continue
		}
		if unreadOnly && n.Read {
			continue
		}
		out = append(out, *n)
	}
	return out
}

func (m *Manager) recipientsLocked(target string) []Receiver {
	var out []Receiver
	if target == TargetAll {
		for _, set := range m.subs {
			for _, recv := range set {
				out = append(out, recv)
			}
		}
		return out
	}
	for _, recv := range m.subs[target] {
		out = append(out, recv)
	}
	return out
}

func (m *Manager) dropLocked(userID, connID string) {
	set, ok := m.subs[userID]
	if !ok {
		return
	}
	delete(set, connID)
	if len(set) == 0 {
		delete(m.subs, userID)
	}
}
