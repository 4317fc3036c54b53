package core

import (
	"fmt"
	"sync"
)

// Connection is a live transport session as seen by the core. Identity is
// supplied by the client at join time and trusted as-is; verification is the
// transport's (or an upstream proxy's) problem.
type Connection struct {
	ID          string
	UserID      string
	DisplayName string
	Room        string // empty until a join succeeds
}

// Registry owns all Connection records. Other components hold only
// back-references (connection ids), never the records themselves.
type Registry struct {
	mu     sync.RWMutex
	conns  map[string]*Connection
	byUser map[string]map[string]struct{} // userID -> set of connection ids
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		conns:  make(map[string]*Connection),
		byUser: make(map[string]map[string]struct{}),
	}
}

// Register upserts a connection's identity. Re-registering with the same
// identity is a no-op; the same connection id with a different identity is a
// duplicate_connection error.
func (r *Registry) Register(connID, userID, displayName string) error {
	if displayName == "" {
		displayName = userID
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.conns[connID]; ok {
		if existing.UserID == userID && existing.DisplayName == displayName {
			return nil
		}
		return coreError(ErrCodeDuplicateConnection,
			fmt.Sprintf("connection %s already registered as %s", connID, existing.UserID))
	}

	r.conns[connID] = &Connection{ID: connID, UserID: userID, DisplayName: displayName}
	set, ok := r.byUser[userID]
	if !ok {
		set = make(map[string]struct{})
		r.byUser[userID] = set
	}
	set[connID] = struct{}{}
	return nil
}

// Unregister removes a connection. No-op if unknown.
func (r *Registry) Unregister(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.conns[connID]
	if !ok {
		return
	}
	delete(r.conns, connID)
	if set, ok := r.byUser[conn.UserID]; ok {
		delete(set, connID)
		if len(set) == 0 {
			delete(r.byUser, conn.UserID)
		}
	}
}

// Lookup returns a copy of the connection record.
func (r *Registry) Lookup(connID string) (Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.conns[connID]
	if !ok {
		return Connection{}, false
	}
	return *conn, true
}

// FindByUserID returns copies of all live connections for a user. A user may
// be connected from several sessions at once.
func (r *Registry) FindByUserID(userID string) []Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set, ok := r.byUser[userID]
	if !ok {
		return nil
	}
	out := make([]Connection, 0, len(set))
	for id := range set {
		if conn, ok := r.conns[id]; ok {
			out = append(out, *conn)
		}
	}
	return out
}

// SetRoom records the room a connection currently belongs to.
func (r *Registry) SetRoom(connID, roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if conn, ok := r.conns[connID]; ok {
		conn.Room = roomID
	}
}

// ClearRoom resets a connection's room membership field.
func (r *Registry) ClearRoom(connID string) {
	r.SetRoom(connID, "")
}

// Len returns the number of registered connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
