//go:generate go run go.uber.org/mock/mockgen -source=user.go -destination=../mocks/mock_user_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"echoforge/domain"
	"echoforge/errors"
)

const userSequenceBandwidth = 100

type IUserRepository interface {
	CreateUser(username, email, hashedPassword string) (domain.User, error)
	GetUser(id int64) (domain.User, error)
	GetUserByEmail(email string) (domain.User, error)
	SetUserStatus(id int64, status domain.PresenceStatus) error
	Close() error
}

type UserRepository struct {
	db  *badger.DB
	seq *badger.Sequence
}

func NewUserRepository(db *badger.DB) (*UserRepository, error) {
	seq, err := db.GetSequence([]byte("seq:user"), userSequenceBandwidth)
	if err != nil {
		return nil, fmt.Errorf("user sequence: %w", err)
	}
	return &UserRepository{db: db, seq: seq}, nil
}

// Keys:
//
//	user:{id padded to 19 digits}  -> JSON user
//	user_email:{email}             -> ascii id
//
// The padded id keeps users iterable in creation order; the email key is
// a unique index for login lookups.
func userKey(id int64) []byte {
	return []byte(fmt.Sprintf("user:%019d", id))
}

func emailKey(email string) []byte {
	return []byte(fmt.Sprintf("user_email:%s", email))
}

// CreateUser persists a new user with the provided password hash. The
// email uniqueness check and both writes happen in a single transaction.
func (u *UserRepository) CreateUser(username, email, hashedPassword string) (domain.User, error) {
	id, err := u.nextID()
	if err != nil {
		return domain.User{}, err
	}

	user := domain.User{
		ID:           id,
		Username:     username,
		Email:        email,
		PasswordHash: hashedPassword,
		Avatar:       domain.DefaultAvatar(username),
		Status:       domain.StatusOffline,
		CreatedAt:    time.Now().UTC(),
	}

	data, err := json.Marshal(user)
	if err != nil {
		return domain.User{}, fmt.Errorf("marshal failed: %w", err)
	}

	err = u.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(emailKey(email)); err == nil {
			return errors.ErrUserAlreadyExists
		} else if err != badger.ErrKeyNotFound {
			return err
		}
		if err := txn.Set(emailKey(email), []byte(fmt.Sprintf("%d", id))); err != nil {
			return err
		}
		return txn.Set(userKey(id), data)
	})
	if err != nil {
		return domain.User{}, err
	}
	return user, nil
}

func (u *UserRepository) GetUser(id int64) (domain.User, error) {
	var user domain.User
	err := u.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(userKey(id))
		if err == badger.ErrKeyNotFound {
			return errors.ErrUserNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &user)
		})
	})
	return user, err
}

func (u *UserRepository) GetUserByEmail(email string) (domain.User, error) {
	var id int64
	err := u.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(emailKey(email))
		if err == badger.ErrKeyNotFound {
			return errors.ErrUserNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			_, err := fmt.Sscanf(string(val), "%d", &id)
			return err
		})
	})
	if err != nil {
		return domain.User{}, err
	}
	return u.GetUser(id)
}

// SetUserStatus rewrites the stored user with the new presence status.
// Read-modify-write inside one transaction to avoid losing concurrent
// profile updates.
func (u *UserRepository) SetUserStatus(id int64, status domain.PresenceStatus) error {
	return u.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(userKey(id))
		if err == badger.ErrKeyNotFound {
			return errors.ErrUserNotFound
		}
		if err != nil {
			return err
		}
		var user domain.User
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &user)
		}); err != nil {
			return err
		}
		user.Status = status
		data, err := json.Marshal(user)
		if err != nil {
			return err
		}
		return txn.Set(userKey(id), data)
	})
}

// Close releases the id sequence so unused ids are returned to Badger.
func (u *UserRepository) Close() error {
	return u.seq.Release()
}

func (u *UserRepository) nextID() (int64, error) {
	n, err := u.seq.Next()
	if err != nil {
		return 0, err
	}
	// Sequences start at zero; ids start at one.
	return int64(n) + 1, nil
}
