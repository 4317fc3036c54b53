package core

import (
	"sort"
	"sync"
	"time"
)

type room struct {
	id         string
	members    map[string]struct{} // connection ids
	history    []Message
	emptySince time.Time // zero while occupied
}

// Snapshot is what a joining connection sees: the member list and the
// trailing history at the moment of joining.
type Snapshot struct {
	Room    string
	Members []string
	History []Message
}

// RoomInfo is the administrative view of a room.
type RoomInfo struct {
	ID           string `json:"room"`
	MemberCount  int    `json:"member_count"`
	MessageCount int    `json:"message_count"`
}

// RoomStore maps room ids to membership and bounded message history. Rooms
// are created lazily on first join and retained while empty; SweepEmpty
// implements the optional eviction policy.
type RoomStore struct {
	mu     sync.RWMutex
	limit  int
	rooms  map[string]*room
	nextID int64
}

// NewRoomStore constructs a store whose per-room history holds at most
// limit messages.
func NewRoomStore(limit int) *RoomStore {
	if limit < 1 {
		limit = 1
	}
	return &RoomStore{
		limit: limit,
		rooms: make(map[string]*room),
	}
}

// Join adds a connection to a room, creating the room if needed. Returns the
// snapshot before any join notice and whether the connection was newly added;
// re-joining the same room is an idempotent no-op that still returns the
// current snapshot.
func (s *RoomStore) Join(roomID, connID string) (Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rm, ok := s.rooms[roomID]
	if !ok {
		rm = &room{id: roomID, members: make(map[string]struct{})}
		s.rooms[roomID] = rm
	}

	_, already := rm.members[connID]
	if !already {
		rm.members[connID] = struct{}{}
		rm.emptySince = time.Time{}
	}
	return rm.snapshot(), !already
}

// Leave removes a connection from a room. Returns false if the room is
// unknown or the connection was not a member.
func (s *RoomStore) Leave(roomID, connID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	rm, ok := s.rooms[roomID]
	if !ok {
		return false
	}
	if _, member := rm.members[connID]; !member {
		return false
	}
	delete(rm.members, connID)
	if len(rm.members) == 0 {
		rm.emptySince = time.Now()
	}
	return true
}

// Append stores a message in the room's history, assigning its id and
// evicting the oldest entry beyond capacity. Returns false if the room does
// not exist.
func (s *RoomStore) Append(roomID string, msg Message) (Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rm, ok := s.rooms[roomID]
	if !ok {
		return Message{}, false
	}

	s.nextID++
	msg.ID = s.nextID
	msg.Room = roomID
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	rm.history = append(rm.history, msg)
	if len(rm.history) > s.limit {
		n := copy(rm.history, rm.history[len(rm.history)-s.limit:])
		rm.history = rm.history[:n]
	}
	return msg, true
}

// Members returns the connection ids currently in the room.
func (s *RoomStore) Members(roomID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rm, ok := s.rooms[roomID]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(rm.members))
	for id := range rm.members {
		out = append(out, id)
	}
	return out
}

// Exists reports whether the room has been created.
func (s *RoomStore) Exists(roomID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.rooms[roomID]
	return ok
}

// History returns a copy of the room's message history, oldest first.
func (s *RoomStore) History(roomID string) []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rm, ok := s.rooms[roomID]
	if !ok {
		return nil
	}
	out := make([]Message, len(rm.history))
	copy(out, rm.history)
	return out
}

// ListRooms returns administrative summaries of all rooms, sorted by id.
func (s *RoomStore) ListRooms() []RoomInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]RoomInfo, 0, len(s.rooms))
	for _, rm := range s.rooms {
		out = append(out, RoomInfo{
			ID:           rm.id,
			MemberCount:  len(rm.members),
			MessageCount: len(rm.history),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// RoomDetail returns the full administrative view of one room.
func (s *RoomStore) RoomDetail(roomID string) (Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rm, ok := s.rooms[roomID]
	if !ok {
		return Snapshot{}, false
	}
	return rm.snapshot(), true
}

// SweepEmpty removes rooms that have been empty since before the cutoff and
// returns how many were evicted. A zero ttl disables sweeping at the call
// site; the store itself just applies the cutoff.
func (s *RoomStore) SweepEmpty(ttl time.Duration, now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for id, rm := range s.rooms {
		if len(rm.members) == 0 && !rm.emptySince.IsZero() && now.Sub(rm.emptySince) >= ttl {
			delete(s.rooms, id)
			evicted++
		}
	}
	return evicted
}

// snapshot copies the room state. Caller must hold at least a read lock.
func (rm *room) snapshot() Snapshot {
	members := make([]string, 0, len(rm.members))
	for id := range rm.members {
		members = append(members, id)
	}
	history := make([]Message, len(rm.history))
	copy(history, rm.history)
	return Snapshot{Room: rm.id, Members: members, History: history}
}
