package realtime

import "sync"

type connSet map[ConnID]struct{}

// RoomTracker tracks which connections are subscribed to which
// channel-scoped broadcast groups. It performs no permission checks;
// whether the user may join the channel is decided by the caller
// against the durable store.
type RoomTracker struct {
	mu    sync.RWMutex
	rooms map[int64]connSet
}

func NewRoomTracker() *RoomTracker {
	return &RoomTracker{rooms: make(map[int64]connSet)}
}

// Join adds the connection to the channel's member set. Idempotent.
func (t *RoomTracker) Join(channelID int64, conn ConnID) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.rooms[channelID]; !ok {
		t.rooms[channelID] = make(connSet)
	}
	t.rooms[channelID][conn] = struct{}{}
}

// Leave removes the connection from the channel's member set.
// Idempotent; empty rooms are dropped so the map does not grow forever.
func (t *RoomTracker) Leave(channelID int64, conn ConnID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.remove(channelID, conn)
}

// LeaveAll removes the connection from every room it belongs to, used
// on disconnect.
func (t *RoomTracker) LeaveAll(conn ConnID) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for channelID, members := range t.rooms {
		if _, ok := members[conn]; ok {
			t.remove(channelID, conn)
		}
	}
}

// MembersOf returns a snapshot of the channel's member set, safe to
// iterate while joins and leaves continue elsewhere.
func (t *RoomTracker) MembersOf(channelID int64) []ConnID {
	t.mu.RLock()
	defer t.mu.RUnlock()

	members, ok := t.rooms[channelID]
	if !ok {
		return nil
	}
	snapshot := make([]ConnID, 0, len(members))
	for conn := range members {
		snapshot = append(snapshot, conn)
	}
	return snapshot
}

// remove expects the lock to be held.
func (t *RoomTracker) remove(channelID int64, conn ConnID) {
	members, ok := t.rooms[channelID]
	if !ok {
		return
	}
	delete(members, conn)
	if len(members) == 0 {
		delete(t.rooms, channelID)
	}
}
