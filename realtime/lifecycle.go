package realtime

import (
	"context"
	"fmt"
	"log/slog"

	"echoforge/contract"
	"echoforge/domain"
	"echoforge/errors"
	"echoforge/repositories"
)

// Lifecycle owns the state machine of a single connection
// (connect -> authenticated -> active -> closed) and drives registry and
// room updates on transitions.
//
// Side effects are ordered: registry mutation and room cleanup happen
// before the presence broadcast, so a concurrent lookup never observes
// a broadcast for a user still marked present.
type Lifecycle struct {
	log         *slog.Logger
	verifier    contract.ITokenVerifier
	registry    *SessionRegistry
	rooms       *RoomTracker
	users       repositories.IUserRepository
	broadcaster *Broadcaster
}

func NewLifecycle(log *slog.Logger, verifier contract.ITokenVerifier,
	registry *SessionRegistry, rooms *RoomTracker,
	users repositories.IUserRepository, broadcaster *Broadcaster) *Lifecycle {
	return &Lifecycle{
		log:         log,
		verifier:    verifier,
		registry:    registry,
		rooms:       rooms,
		users:       users,
		broadcaster: broadcaster,
	}
}

// Connect authenticates a fresh connection. On verification failure the
// connection is refused: no state is registered and nothing is
// broadcast. On success the session is registered (evicting any prior
// session of the same user, last-connect-wins), the persisted status
// becomes online, and a presence event goes out to all connections.
// The evicted session, if any, is returned so the transport can close
// the superseded socket.
func (l *Lifecycle) Connect(ctx context.Context, token string, conn ConnID, sink contract.EventSink) (int64, *Session, error) {
	userID, err := l.verifier.Verify(token)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %v", errors.ErrAuthenticationFailed, err)
	}

	evicted := l.registry.Register(userID, conn, sink)
	if evicted != nil {
		l.rooms.LeaveAll(evicted.Conn)
		l.log.Info("Replaced existing session", "user_id", userID, "old_conn", evicted.Conn)
	}

	// Store call after the in-memory registration, never under its lock.
	if err := l.users.SetUserStatus(userID, domain.StatusOnline); err != nil {
		l.log.Error("Could not persist online status", "user_id", userID, "error", err)
	}

	l.broadcaster.PresenceChanged(ctx, userID, domain.StatusOnline)
	l.log.Info("User connected", "user_id", userID, "conn", conn)
	return userID, evicted, nil
}

// Disconnect tears down the session owning the handle: registry entry
// removed, handle dropped from every room, persisted status offline,
// presence broadcast to the remaining connections. A handle that never
// authenticated is a no-op.
func (l *Lifecycle) Disconnect(ctx context.Context, conn ConnID) {
	session, ok := l.registry.UnregisterByConn(conn)
	if !ok {
		return
	}

	l.rooms.LeaveAll(conn)

	if err := l.users.SetUserStatus(session.UserID, domain.StatusOffline); err != nil {
		l.log.Error("Could not persist offline status", "user_id", session.UserID, "error", err)
	}

	l.broadcaster.PresenceChanged(ctx, session.UserID, domain.StatusOffline)
	l.log.Info("User disconnected", "user_id", session.UserID, "conn", conn)
}
