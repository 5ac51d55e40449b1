package realtime

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"echoforge/domain/event"
)

// captureSink records every event it receives, used across the package
// tests to observe deliveries.
type captureSink struct {
	mu     sync.Mutex
	events []event.DomainEvent
}

func (s *captureSink) Consume(_ context.Context, e event.DomainEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return nil
}

func (s *captureSink) received() []event.DomainEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]event.DomainEvent{}, s.events...)
}

func (s *captureSink) names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.events))
	for _, e := range s.events {
		names = append(names, e.Name())
	}
	return names
}

func TestSessionRegistry_Register_One_User(t *testing.T) {
	req := require.New(t)
	registry := NewSessionRegistry()
	sink := &captureSink{}

	// Given nobody is connected
	req.Zero(registry.OnlineCount())
	req.False(registry.IsOnline(42))

	// When a user registers
	evicted := registry.Register(42, "conn-1", sink)

	// Then both directions of the mapping agree
	req.Nil(evicted)
	req.True(registry.IsOnline(42))
	req.Equal(1, registry.OnlineCount())

	session, ok := registry.Lookup(42)
	req.True(ok)
	req.Equal(ConnID("conn-1"), session.Conn)

	userID, ok := registry.Resolve("conn-1")
	req.True(ok)
	req.Equal(int64(42), userID)
}

func TestSessionRegistry_Register_Replaces_Previous_Session(t *testing.T) {
	req := require.New(t)
	registry := NewSessionRegistry()
	oldSink := &captureSink{}
	newSink := &captureSink{}

	// Given a user already connected
	registry.Register(42, "conn-old", oldSink)

	// When the same user connects again
	evicted := registry.Register(42, "conn-new", newSink)

	// Then the old session is returned and no longer resolves
	req.NotNil(evicted)
	req.Equal(ConnID("conn-old"), evicted.Conn)

	_, ok := registry.Resolve("conn-old")
	req.False(ok)

	userID, ok := registry.Resolve("conn-new")
	req.True(ok)
	req.Equal(int64(42), userID)

	// And the user counts once
	req.Equal(1, registry.OnlineCount())
}

func TestSessionRegistry_UnregisterByConn(t *testing.T) {
	req := require.New(t)
	registry := NewSessionRegistry()

	registry.Register(42, "conn-1", &captureSink{})

	session, ok := registry.UnregisterByConn("conn-1")
	req.True(ok)
	req.Equal(int64(42), session.UserID)

	req.False(registry.IsOnline(42))
	_, ok = registry.Resolve("conn-1")
	req.False(ok)
	req.Zero(registry.OnlineCount())

	// Unregistering again is a no-op
	_, ok = registry.UnregisterByConn("conn-1")
	req.False(ok)
}

func TestSessionRegistry_Stale_Disconnect_Keeps_Newer_Session(t *testing.T) {
	req := require.New(t)
	registry := NewSessionRegistry()

	// Given a user reconnected before the old socket noticed
	registry.Register(42, "conn-old", &captureSink{})
	evicted := registry.Register(42, "conn-new", &captureSink{})
	req.NotNil(evicted)

	// When the old socket's disconnect finally lands
	_, ok := registry.UnregisterByConn("conn-old")
	req.False(ok)

	// Then the newer session survives
	req.True(registry.IsOnline(42))
	userID, ok := registry.Resolve("conn-new")
	req.True(ok)
	req.Equal(int64(42), userID)
}

func TestSessionRegistry_AllSinks_Snapshot(t *testing.T) {
	req := require.New(t)
	registry := NewSessionRegistry()
	sink1 := &captureSink{}
	sink2 := &captureSink{}

	registry.Register(1, "conn-1", sink1)
	registry.Register(2, "conn-2", sink2)

	sinks := registry.AllSinks()
	req.Len(sinks, 2)
	req.Contains(sinks, sink1)
	req.Contains(sinks, sink2)
}

func TestSessionRegistry_SinkFor(t *testing.T) {
	req := require.New(t)
	registry := NewSessionRegistry()
	sink := &captureSink{}

	registry.Register(1, "conn-1", sink)

	got, ok := registry.SinkFor("conn-1")
	req.True(ok)
	req.Equal(sink, got)

	_, ok = registry.SinkFor("conn-unknown")
	req.False(ok)
}
