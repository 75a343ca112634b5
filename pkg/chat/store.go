package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	bolt "go.etcd.io/bbolt"
)

const chatsBucket = "chats"

// ErrChatNotFound is returned when no chat has the requested ID.
var ErrChatNotFound = errors.New("chat not found")

// Store persists chats by ID.
type Store interface {
	// Put creates or replaces the chat with the same ID.
	Put(ctx context.Context, c Chat) error
	// Get returns the chat with the given ID or ErrChatNotFound.
	Get(ctx context.Context, id string) (Chat, error)
	// List returns every chat, most recently saved first.
	List(ctx context.Context) ([]Chat, error)
	// Delete removes the chat with the given ID.  Deleting an unknown
	// chat is not an error.
	Delete(ctx context.Context, id string) error
}

var _ Store = (*BoltDB)(nil)

// BoltDB is a Store kept in a bbolt database file.
type BoltDB struct {
	bolt *bolt.DB
}

// OpenBolt opens, creating if needed, the chat database at path.
func OpenBolt(path string) (*BoltDB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open chat database: %w", err)
	}

	boltdb := &BoltDB{bolt: db}

	if err := boltdb.initBuckets(); err != nil {
		return nil, errors.Join(err, db.Close())
	}

	return boltdb, nil
}

func (db *BoltDB) initBuckets() error {
	return db.bolt.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(chatsBucket))

		return err
	})
}

func (db *BoltDB) Close() error {
	return db.bolt.Close()
}

func (db *BoltDB) Put(ctx context.Context, c Chat) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if c.ID == "" {
		return errors.New("chat ID must not be empty")
	}

	data, err := json.Marshal(c)
	if err != nil {
		return err
	}

	return db.bolt.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(chatsBucket)).Put([]byte(c.ID), data)
	})
}

func (db *BoltDB) Get(ctx context.Context, id string) (Chat, error) {
	if err := ctx.Err(); err != nil {
		return Chat{}, err
	}

	var c Chat

	err := db.bolt.View(func(tx *bolt.Tx) error {
		data := tx.Bucket([]byte(chatsBucket)).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("%w: %s", ErrChatNotFound, id)
		}

		return json.Unmarshal(data, &c)
	})
	if err != nil {
		return Chat{}, err
	}

	return c, nil
}

func (db *BoltDB) List(ctx context.Context) ([]Chat, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var chats []Chat

	err := db.bolt.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(chatsBucket)).ForEach(func(_, v []byte) error {
			var c Chat
			if err := json.Unmarshal(v, &c); err != nil {
				return err
			}

			chats = append(chats, c)

			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(chats, func(i, j int) bool {
		return chats[i].Timestamp > chats[j].Timestamp
	})

	return chats, nil
}

func (db *BoltDB) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return db.bolt.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(chatsBucket)).Delete([]byte(id))
	})
}
