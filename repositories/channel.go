//go:generate go run go.uber.org/mock/mockgen -source=channel.go -destination=../mocks/mock_channel_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/dgraph-io/badger/v4"

	"echoforge/domain"
	"echoforge/errors"
)

type IChannelRepository interface {
	CreateChannel(name, description string, channelType domain.ChannelType, isPublic bool, creatorID int64) (domain.Channel, error)
	GetChannel(id int64) (domain.Channel, error)
	AddMember(channelID, userID int64) error
	IsChannelMember(userID, channelID int64) (bool, error)
	Members(channelID int64) ([]int64, error)
	Close() error
}

type ChannelRepository struct {
	db  *badger.DB
	seq *badger.Sequence
}

func NewChannelRepository(db *badger.DB) (*ChannelRepository, error) {
	seq, err := db.GetSequence([]byte("seq:channel"), userSequenceBandwidth)
	if err != nil {
		return nil, fmt.Errorf("channel sequence: %w", err)
	}
	return &ChannelRepository{db: db, seq: seq}, nil
}

func channelKey(id int64) []byte {
	return []byte(fmt.Sprintf("channel:%019d", id))
}

func memberKey(channelID, userID int64) []byte {
	return []byte(fmt.Sprintf("channel_member:%d:%d", channelID, userID))
}

// CreateChannel persists a channel and registers its creator as the
// first member.
func (c *ChannelRepository) CreateChannel(name, description string, channelType domain.ChannelType, isPublic bool, creatorID int64) (domain.Channel, error) {
	n, err := c.seq.Next()
	if err != nil {
		return domain.Channel{}, err
	}
	channel := domain.Channel{
		ID:          int64(n) + 1,
		Name:        name,
		Description: description,
		Type:        channelType,
		IsPublic:    isPublic,
		CreatorID:   creatorID,
		CreatedAt:   time.Now().UTC(),
	}

	data, err := json.Marshal(channel)
	if err != nil {
		return domain.Channel{}, err
	}

	err = c.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(channelKey(channel.ID), data); err != nil {
			return err
		}
		return txn.Set(memberKey(channel.ID, creatorID), nil)
	})
	if err != nil {
		return domain.Channel{}, err
	}
	return channel, nil
}

func (c *ChannelRepository) GetChannel(id int64) (domain.Channel, error) {
	var channel domain.Channel
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(channelKey(id))
		if err == badger.ErrKeyNotFound {
			return errors.ErrChannelNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &channel)
		})
	})
	return channel, err
}

func (c *ChannelRepository) AddMember(channelID, userID int64) error {
	return c.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(channelKey(channelID)); err == badger.ErrKeyNotFound {
			return errors.ErrChannelNotFound
		} else if err != nil {
			return err
		}
		return txn.Set(memberKey(channelID, userID), nil)
	})
}

func (c *ChannelRepository) IsChannelMember(userID, channelID int64) (bool, error) {
	var member bool
	err := c.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(memberKey(channelID, userID))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		member = true
		return nil
	})
	return member, err
}

// Members lists the user ids subscribed to a channel via a prefix scan
// over the membership keys.
func (c *ChannelRepository) Members(channelID int64) ([]int64, error) {
	var members []int64
	prefix := []byte(fmt.Sprintf("channel_member:%d:", channelID))
	err := c.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.PrefetchValues = false
		it := txn.NewIterator(options)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			raw := string(it.Item().Key()[len(prefix):])
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return err
			}
			members = append(members, id)
		}
		return nil
	})
	return members, err
}

func (c *ChannelRepository) Close() error {
	return c.seq.Release()
}
