//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"

	"echoforge/domain"
)

type IMessageRepository interface {
	StoreMessage(message domain.Message) error
	ChannelMessages(channelID int64) ([]domain.Message, error)
	DirectMessages(userA, userB int64) ([]domain.Message, error)
}

type MessageRepository struct {
	db            *badger.DB
	log           *slog.Logger
	limitMessages *int
}

func NewMessageRepository(db *badger.DB, log *slog.Logger, limitMessages *int) MessageRepository {
	return MessageRepository{db: db, log: log, limitMessages: limitMessages}
}

// Message keys are formatted as "{prefix}:{timestamp_padded}:{uuid}" to:
//  1. Ensure chronological sorting using 19-digit zero padding
//     (lexicographical order).
//  2. Prevent data loss by using the message UUID as a collision
//     disconnector if two messages arrive at the same nanosecond.
//
// Channel messages live under "msg:{channel_id}:", direct messages under
// "dm:{low_user_id}:{high_user_id}:" so both directions of a
// conversation share one prefix.
func (m MessageRepository) messageKey(message domain.Message) []byte {
	var prefix string
	switch {
	case message.IsDirect && message.RecipientID != nil:
		prefix = dmPrefix(message.SenderID, *message.RecipientID)
	case message.ChannelID != nil:
		prefix = channelPrefix(*message.ChannelID)
	default:
		prefix = "msg:orphan:"
	}
	return []byte(fmt.Sprintf("%s%019d:%s", prefix, message.CreatedAt.UnixNano(), message.ID))
}

func channelPrefix(channelID int64) string {
	return fmt.Sprintf("msg:%d:", channelID)
}

func dmPrefix(a, b int64) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("dm:%d:%d:", a, b)
}

// StoreMessage persists a message in BadgerDB under its conversation
// prefix.
func (m MessageRepository) StoreMessage(message domain.Message) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}
	return m.db.Update(func(txn *badger.Txn) error {
		return txn.Set(m.messageKey(message), data)
	})
}

// ChannelMessages retrieves the most recent messages of a channel,
// oldest first. Thanks to the padded timestamp in the key, messages are
// naturally sorted by time; the reverse iterator stops once the
// configured limit is reached.
func (m MessageRepository) ChannelMessages(channelID int64) ([]domain.Message, error) {
	return m.scan(channelPrefix(channelID))
}

// DirectMessages retrieves the conversation between two users, oldest
// first, regardless of who sent what.
func (m MessageRepository) DirectMessages(userA, userB int64) ([]domain.Message, error) {
	return m.scan(dmPrefix(userA, userB))
}

func (m MessageRepository) scan(prefixStr string) ([]domain.Message, error) {
	var raw [][]byte
	err := m.db.View(func(txn *badger.Txn) error {
		prefix := []byte(prefixStr)
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		// Seek past the newest possible key, then walk backwards.
		seekKey := append([]byte{}, prefix...)
		seekKey = append(seekKey, []byte("9999999999999999999")...)

		for it.Seek(seekKey); it.ValidForPrefix(prefix); it.Next() {
			if m.limitMessages != nil && len(raw) == *m.limitMessages {
				m.log.Debug(fmt.Sprintf("Maximum of %d messages reached", *m.limitMessages))
				break
			}
			err := it.Item().Value(func(value []byte) error {
				raw = append(raw, append([]byte{}, value...))
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Reverse iteration yielded newest first; flip to chronological order.
	messages := make([]domain.Message, 0, len(raw))
	for i := len(raw) - 1; i >= 0; i-- {
		var message domain.Message
		if err := json.Unmarshal(raw[i], &message); err != nil {
			return nil, err
		}
		messages = append(messages, message)
	}
	return messages, nil
}
