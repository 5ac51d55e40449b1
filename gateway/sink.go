package gateway

import (
	"context"
	"log/slog"
	"sync"

	"echoforge/domain/event"
)

// ConnSink is the bounded outbound queue of one connection. Consume is
// called by the realtime core; the write pump drains the channel. When
// the buffer is full the event is dropped so a slow or dead consumer
// never stalls the router or other recipients.
type ConnSink struct {
	log    *slog.Logger
	events chan event.DomainEvent
	once   sync.Once
	done   chan struct{}
}

func NewConnSink(log *slog.Logger, bufferSize int) *ConnSink {
	return &ConnSink{
		log:    log,
		events: make(chan event.DomainEvent, bufferSize),
		done:   make(chan struct{}),
	}
}

// Consume redirects the event to the owner of the connection. The write
// pump will take it from here. Never blocks.
func (s *ConnSink) Consume(ctx context.Context, e event.DomainEvent) error {
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	select {
	case s.events <- e:
		return nil
	default:
		// Backpressure: the client is not keeping up.
		s.log.Debug("Outbound buffer full, event dropped", "event", e.Name())
		return nil
	}
}

// Events exposes the queue to the write pump.
func (s *ConnSink) Events() <-chan event.DomainEvent {
	return s.events
}

// Close stops the sink; subsequent Consume calls become no-ops. Safe to
// call more than once.
func (s *ConnSink) Close() {
	s.once.Do(func() { close(s.done) })
}

// Done signals the write pump that the sink was closed.
func (s *ConnSink) Done() <-chan struct{} {
	return s.done
}
