package gateway

import (
	"context"
	"log/slog"
	"testing"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"

	"echoforge/domain/event"
)

func TestConnSink_Consume(t *testing.T) {
	ctx := context.Background()
	log := logs.GetLoggerFromLevel(slog.LevelDebug)

	t.Run("should queue events for the write pump", func(t *testing.T) {
		req := require.New(t)
		sink := NewConnSink(log, 4)

		req.NoError(sink.Consume(ctx, event.Notice{Message: "one"}))
		req.NoError(sink.Consume(ctx, event.Notice{Message: "two"}))

		first := <-sink.Events()
		req.Equal(event.Notice{Message: "one"}, first)
		second := <-sink.Events()
		req.Equal(event.Notice{Message: "two"}, second)
	})

	t.Run("should drop events instead of blocking when full", func(t *testing.T) {
		req := require.New(t)
		sink := NewConnSink(log, 1)

		req.NoError(sink.Consume(ctx, event.Notice{Message: "kept"}))
		// The buffer holds one event; this one is dropped, not queued.
		req.NoError(sink.Consume(ctx, event.Notice{Message: "dropped"}))

		req.Equal(event.Notice{Message: "kept"}, <-sink.Events())
		select {
		case e := <-sink.Events():
			t.Fatalf("unexpected queued event: %v", e)
		default:
		}
	})

	t.Run("should become a no-op after close", func(t *testing.T) {
		req := require.New(t)
		sink := NewConnSink(log, 4)

		sink.Close()
		// Closing twice is safe.
		sink.Close()

		req.NoError(sink.Consume(ctx, event.Notice{Message: "late"}))
		select {
		case <-sink.Events():
			t.Fatal("event queued after close")
		default:
		}

		select {
		case <-sink.Done():
		default:
			t.Fatal("done channel still open")
		}
	})

	t.Run("should surface context cancellation", func(t *testing.T) {
		req := require.New(t)
		sink := NewConnSink(log, 4)

		canceled, cancel := context.WithCancel(ctx)
		cancel()

		req.ErrorIs(sink.Consume(canceled, event.Notice{Message: "late"}), context.Canceled)
	})
}
