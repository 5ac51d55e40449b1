// Package realtime is the in-process session and messaging core: it
// tracks live connections, maps them to users and rooms, routes channel
// and direct messages, and broadcasts presence and typing events.
package realtime

import (
	"sync"

	"echoforge/contract"
)

// ConnID identifies one live connection. A ConnID becomes invalid
// exactly once, at disconnect, and is never reused.
type ConnID string

// Session binds an authenticated user to the connection currently
// carrying them and its delivery sink.
type Session struct {
	UserID int64
	Conn   ConnID
	Sink   contract.EventSink
}

// SessionRegistry is the authoritative source of "who is online". Both
// directions of the mapping are maintained atomically under one mutex,
// so a forward entry and its inverse can never disagree.
type SessionRegistry struct {
	mu     sync.RWMutex
	byUser map[int64]*Session
	byConn map[ConnID]*Session
}

func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{
		byUser: make(map[int64]*Session),
		byConn: make(map[ConnID]*Session),
	}
}

// Register maps a user to a connection, replacing any existing mapping
// for that user (last-connect-wins). The evicted session, if any, is
// returned so the transport can close the superseded connection; its
// inverse entry is removed here so the old handle no longer resolves.
func (r *SessionRegistry) Register(userID int64, conn ConnID, sink contract.EventSink) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	evicted := r.byUser[userID]
	if evicted != nil {
		delete(r.byConn, evicted.Conn)
	}

	session := &Session{UserID: userID, Conn: conn, Sink: sink}
	r.byUser[userID] = session
	r.byConn[conn] = session
	return evicted
}

// UnregisterByConn removes the session owning the handle, if any, from
// both maps. O(1) via the inverse map; never a scan.
func (r *SessionRegistry) UnregisterByConn(conn ConnID) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.byConn[conn]
	if !ok {
		return nil, false
	}
	delete(r.byConn, conn)
	// Only drop the forward entry if it still points at this connection;
	// a newer registration for the same user must survive.
	if current := r.byUser[session.UserID]; current != nil && current.Conn == conn {
		delete(r.byUser, session.UserID)
	}
	return session, true
}

// Lookup returns the live session of a user.
func (r *SessionRegistry) Lookup(userID int64) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	session, ok := r.byUser[userID]
	return session, ok
}

// Resolve returns the user owning a connection handle.
func (r *SessionRegistry) Resolve(conn ConnID) (int64, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	session, ok := r.byConn[conn]
	if !ok {
		return 0, false
	}
	return session.UserID, true
}

// SinkFor returns the delivery sink of a connection handle.
func (r *SessionRegistry) SinkFor(conn ConnID) (contract.EventSink, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	session, ok := r.byConn[conn]
	if !ok {
		return nil, false
	}
	return session.Sink, true
}

func (r *SessionRegistry) IsOnline(userID int64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byUser[userID]
	return ok
}

// AllSinks takes a consistent snapshot of every live sink, safe to
// iterate while registrations continue elsewhere.
func (r *SessionRegistry) AllSinks() []contract.EventSink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sinks := make([]contract.EventSink, 0, len(r.byConn))
	for _, session := range r.byConn {
		sinks = append(sinks, session.Sink)
	}
	return sinks
}

func (r *SessionRegistry) OnlineCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser)
}
