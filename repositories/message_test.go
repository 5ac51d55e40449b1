package repositories

import (
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mama165/sdk-go/logs"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"

	"echoforge/domain"
)

func newMessageRepo(t *testing.T, limit *int) MessageRepository {
	t.Helper()
	db := newTestDB(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	return NewMessageRepository(db, log, limit)
}

func channelMessage(channelID, senderID int64, content string, at time.Time) domain.Message {
	return domain.Message{
		ID:        uuid.New(),
		Content:   content,
		SenderID:  senderID,
		ChannelID: lo.ToPtr(channelID),
		CreatedAt: at,
	}
}

func directMessage(senderID, recipientID int64, content string, at time.Time) domain.Message {
	return domain.Message{
		ID:          uuid.New(),
		Content:     content,
		SenderID:    senderID,
		RecipientID: lo.ToPtr(recipientID),
		IsDirect:    true,
		CreatedAt:   at,
	}
}

func TestMessageRepository_ChannelMessages(t *testing.T) {
	t.Run("should return channel messages in chronological order", func(t *testing.T) {
		req := require.New(t)
		repo := newMessageRepo(t, nil)
		base := time.Now().UTC()

		// Stored out of order on purpose; the key layout sorts them.
		req.NoError(repo.StoreMessage(channelMessage(1, 10, "second", base.Add(time.Second))))
		req.NoError(repo.StoreMessage(channelMessage(1, 11, "third", base.Add(2*time.Second))))
		req.NoError(repo.StoreMessage(channelMessage(1, 10, "first", base)))

		messages, err := repo.ChannelMessages(1)
		req.NoError(err)
		req.Len(messages, 3)
		req.Equal("first", messages[0].Content)
		req.Equal("second", messages[1].Content)
		req.Equal("third", messages[2].Content)
	})

	t.Run("should isolate channels from each other", func(t *testing.T) {
		req := require.New(t)
		repo := newMessageRepo(t, nil)
		now := time.Now().UTC()

		req.NoError(repo.StoreMessage(channelMessage(1, 10, "in one", now)))
		req.NoError(repo.StoreMessage(channelMessage(2, 10, "in two", now)))

		messages, err := repo.ChannelMessages(1)
		req.NoError(err)
		req.Len(messages, 1)
		req.Equal("in one", messages[0].Content)
	})

	t.Run("should keep only the most recent messages when limited", func(t *testing.T) {
		req := require.New(t)
		repo := newMessageRepo(t, lo.ToPtr(2))
		base := time.Now().UTC()

		for i := 0; i < 5; i++ {
			message := channelMessage(1, 10, fmt.Sprintf("m%d", i), base.Add(time.Duration(i)*time.Second))
			req.NoError(repo.StoreMessage(message))
		}

		messages, err := repo.ChannelMessages(1)
		req.NoError(err)
		req.Len(messages, 2)
		req.Equal("m3", messages[0].Content)
		req.Equal("m4", messages[1].Content)
	})

	t.Run("should return nothing for an empty channel", func(t *testing.T) {
		req := require.New(t)
		repo := newMessageRepo(t, nil)

		messages, err := repo.ChannelMessages(42)
		req.NoError(err)
		req.Empty(messages)
	})
}

func TestMessageRepository_DirectMessages(t *testing.T) {
	t.Run("should merge both directions of a conversation", func(t *testing.T) {
		req := require.New(t)
		repo := newMessageRepo(t, nil)
		base := time.Now().UTC()

		req.NoError(repo.StoreMessage(directMessage(1, 2, "hi", base)))
		req.NoError(repo.StoreMessage(directMessage(2, 1, "hey", base.Add(time.Second))))
		req.NoError(repo.StoreMessage(directMessage(1, 3, "other thread", base)))

		// Same conversation regardless of argument order.
		forward, err := repo.DirectMessages(1, 2)
		req.NoError(err)
		backward, err := repo.DirectMessages(2, 1)
		req.NoError(err)

		req.Len(forward, 2)
		req.Equal(forward, backward)
		req.Equal("hi", forward[0].Content)
		req.Equal("hey", forward[1].Content)
	})
}
