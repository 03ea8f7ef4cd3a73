package lyrics

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

const badgerKeyPrefix = "lyrics:"

// BadgerStore keeps lyrics in an embedded BadgerDB key-value store.
type BadgerStore struct {
	db *badger.DB
}

// NewBadgerStore wraps an open BadgerDB handle.
func NewBadgerStore(db *badger.DB) *BadgerStore {
	return &BadgerStore{db: db}
}

// OpenBadgerStore opens (or creates) a BadgerDB database in dir.
func OpenBadgerStore(dir string) (*BadgerStore, error) {
	if dir == "" {
		return nil, errors.New("badger directory is required")
	}
	db, err := badger.Open(badger.DefaultOptions(dir).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

// Close releases the underlying database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

// Put replaces the lyrics stored for songName.
func (s *BadgerStore) Put(ctx context.Context, songName, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	key, err := Key(songName)
	if err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(badgerKeyPrefix+key), []byte(text)); err != nil {
			return fmt.Errorf("set lyrics %q: %w", key, err)
		}
		return nil
	})
}

// Get returns the lyrics stored for songName or ErrNotFound.
func (s *BadgerStore) Get(ctx context.Context, songName string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	key, err := Key(songName)
	if err != nil {
		return "", err
	}

	var text string
	err = s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(badgerKeyPrefix + key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get lyrics %q: %w", key, err)
		}
		return item.Value(func(val []byte) error {
			text = string(val)
			return nil
		})
	})
	if err != nil {
		return "", err
	}
	return text, nil
}
