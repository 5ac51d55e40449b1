//go:generate go run go.uber.org/mock/mockgen -source=friend.go -destination=../mocks/mock_friend_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"echoforge/domain"
)

type IFriendRepository interface {
	CreateRequest(senderID, receiverID int64) (domain.FriendRequest, error)
	RequestsFor(userID int64) ([]domain.FriendRequest, error)
	AddFriend(userA, userB int64) error
	AreFriends(userA, userB int64) (bool, error)
	Friends(userID int64) ([]int64, error)
	Close() error
}

type FriendRepository struct {
	db  *badger.DB
	seq *badger.Sequence
}

func NewFriendRepository(db *badger.DB) (*FriendRepository, error) {
	seq, err := db.GetSequence([]byte("seq:friend_request"), userSequenceBandwidth)
	if err != nil {
		return nil, fmt.Errorf("friend request sequence: %w", err)
	}
	return &FriendRepository{db: db, seq: seq}, nil
}

// Keys:
//
//	freq:{receiver_id}:{id padded}  -> JSON friend request
//	friend:{user_id}:{friend_id}    -> empty (stored in both directions)
func requestKey(receiverID, id int64) []byte {
	return []byte(fmt.Sprintf("freq:%d:%019d", receiverID, id))
}

func friendKey(userID, friendID int64) []byte {
	return []byte(fmt.Sprintf("friend:%d:%d", userID, friendID))
}

func (f *FriendRepository) CreateRequest(senderID, receiverID int64) (domain.FriendRequest, error) {
	n, err := f.seq.Next()
	if err != nil {
		return domain.FriendRequest{}, err
	}
	request := domain.FriendRequest{
		ID:         int64(n) + 1,
		SenderID:   senderID,
		ReceiverID: receiverID,
		CreatedAt:  time.Now().UTC(),
	}
	data, err := json.Marshal(request)
	if err != nil {
		return domain.FriendRequest{}, err
	}
	err = f.db.Update(func(txn *badger.Txn) error {
		return txn.Set(requestKey(receiverID, request.ID), data)
	})
	if err != nil {
		return domain.FriendRequest{}, err
	}
	return request, nil
}

func (f *FriendRepository) RequestsFor(userID int64) ([]domain.FriendRequest, error) {
	var requests []domain.FriendRequest
	prefix := []byte(fmt.Sprintf("freq:%d:", userID))
	err := f.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var request domain.FriendRequest
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &request)
			})
			if err != nil {
				return err
			}
			requests = append(requests, request)
		}
		return nil
	})
	return requests, err
}

// AddFriend records the symmetric friend edge and drops any pending
// request between the two users.
func (f *FriendRepository) AddFriend(userA, userB int64) error {
	requests, err := f.RequestsFor(userA)
	if err != nil {
		return err
	}
	return f.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(friendKey(userA, userB), nil); err != nil {
			return err
		}
		if err := txn.Set(friendKey(userB, userA), nil); err != nil {
			return err
		}
		for _, request := range requests {
			if request.SenderID == userB {
				if err := txn.Delete(requestKey(userA, request.ID)); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

func (f *FriendRepository) AreFriends(userA, userB int64) (bool, error) {
	var friends bool
	err := f.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(friendKey(userA, userB))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		friends = true
		return nil
	})
	return friends, err
}

func (f *FriendRepository) Friends(userID int64) ([]int64, error) {
	var friends []int64
	prefix := []byte(fmt.Sprintf("friend:%d:", userID))
	err := f.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.PrefetchValues = false
		it := txn.NewIterator(options)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var id int64
			if _, err := fmt.Sscanf(string(it.Item().Key()[len(prefix):]), "%d", &id); err != nil {
				return err
			}
			friends = append(friends, id)
		}
		return nil
	})
	return friends, err
}

func (f *FriendRepository) Close() error {
	return f.seq.Release()
}
