//go:generate go run go.uber.org/mock/mockgen -source=user.go -destination=../mocks/mock_user_repository.go -package=mocks
package repositories

import (
	"chat-relay/domain"
	"chat-relay/errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
)

const (
	userPrefix     = "user:"
	userIDPrefix   = "user-id:"
	userSequence   = "seq:user"
	sequenceLeases = 100
)

type IUserRepository interface {
	CreateUser(username, hashedPassword string) (domain.User, error)
	GetUserByUsername(username string) (domain.User, error)
	GetUserByID(id domain.UserID) (domain.User, error)
	ListUsers(skip, limit int) ([]domain.User, error)
}

type UserRepository struct {
	db  *badger.DB
	seq *badger.Sequence
	now func() time.Time
}

// diskUser is the on-disk record stored under "user:<username>".
type diskUser struct {
	ID           int64  `cbor:"1,keyasint"`
	Username     string `cbor:"2,keyasint"`
	PasswordHash string `cbor:"3,keyasint"`
	CreatedAt    int64  `cbor:"4,keyasint"`
}

func NewUserRepository(db *badger.DB) (*UserRepository, error) {
	seq, err := db.GetSequence([]byte(userSequence), sequenceLeases)
	if err != nil {
		return nil, fmt.Errorf("user sequence: %w", err)
	}
	return &UserRepository{db: db, seq: seq, now: time.Now}, nil
}

// Close returns the unused part of the leased ID range to the database.
func (u *UserRepository) Close() error {
	return u.seq.Release()
}

// CreateUser persists a new account under two keys:
// "user:<username>" holds the record, "user-id:<id>" points back to the username.
// IDs start at 1 and are never reused.
func (u *UserRepository) CreateUser(username, hashedPassword string) (domain.User, error) {
	next, err := u.seq.Next()
	if err != nil {
		return domain.User{}, fmt.Errorf("%w: %v", errors.ErrPersistence, err)
	}
	record := diskUser{
		ID:           int64(next) + 1,
		Username:     username,
		PasswordHash: hashedPassword,
		CreatedAt:    u.now().UTC().UnixNano(),
	}

	data, err := marshal(record)
	if err != nil {
		return domain.User{}, fmt.Errorf("marshal failed: %w", err)
	}

	err = u.db.Update(func(txn *badger.Txn) error {
		key := []byte(userPrefix + username)
		_, err := txn.Get(key)
		switch {
		case err == nil:
			return errors.ErrUserAlreadyExists
		case err != badger.ErrKeyNotFound:
			return err
		}
		if err := txn.Set(key, data); err != nil {
			return err
		}
		return txn.Set(userIDKey(domain.UserID(record.ID)), []byte(username))
	})
	switch {
	case err == nil:
	case err == errors.ErrUserAlreadyExists:
		return domain.User{}, err
	case err == badger.ErrConflict:
		// Another transaction created the same username concurrently.
		return domain.User{}, errors.ErrUserAlreadyExists
	default:
		return domain.User{}, fmt.Errorf("%w: %v", errors.ErrPersistence, err)
	}

	return toUser(record), nil
}

func (u *UserRepository) GetUserByUsername(username string) (domain.User, error) {
	var record diskUser
	err := u.db.View(func(txn *badger.Txn) error {
		return readUser(txn, username, &record)
	})
	if err != nil {
		return domain.User{}, mapReadError(err)
	}
	return toUser(record), nil
}

func (u *UserRepository) GetUserByID(id domain.UserID) (domain.User, error) {
	var record diskUser
	err := u.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(userIDKey(id))
		if err != nil {
			return err
		}
		username, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		return readUser(txn, string(username), &record)
	})
	if err != nil {
		return domain.User{}, mapReadError(err)
	}
	return toUser(record), nil
}

// ListUsers pages through accounts in ID order.
// A non positive limit returns every user after skip.
func (u *UserRepository) ListUsers(skip, limit int) ([]domain.User, error) {
	users := make([]domain.User, 0)
	err := u.db.View(func(txn *badger.Txn) error {
		prefix := []byte(userIDPrefix)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		seen := 0
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if limit > 0 && len(users) == limit {
				break
			}
			if seen < skip {
				seen++
				continue
			}
			username, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			var record diskUser
			if err := readUser(txn, string(username), &record); err != nil {
				return err
			}
			users = append(users, toUser(record))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrPersistence, err)
	}
	return users, nil
}

func readUser(txn *badger.Txn, username string, record *diskUser) error {
	item, err := txn.Get([]byte(userPrefix + username))
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return unmarshal(val, record)
	})
}

func mapReadError(err error) error {
	if err == badger.ErrKeyNotFound {
		return errors.ErrUserNotFound
	}
	return fmt.Errorf("%w: %v", errors.ErrPersistence, err)
}

// userIDKey pads the ID so lexicographic order matches numeric order.
func userIDKey(id domain.UserID) []byte {
	return []byte(fmt.Sprintf("%s%020d", userIDPrefix, id))
}

func toUser(record diskUser) domain.User {
	return domain.User{
		ID:           domain.UserID(record.ID),
		Username:     record.Username,
		PasswordHash: record.PasswordHash,
		CreatedAt:    time.Unix(0, record.CreatedAt).UTC(),
	}
}
