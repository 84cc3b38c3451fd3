package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

var (
	slotBucket = []byte("session")
	activeKey  = []byte("active")
)

// BoltSlot stores the session as JSON in a bbolt file.
type BoltSlot struct {
	db *bolt.DB
}

// NewBoltSlot opens (or creates) the slot file at path.
func NewBoltSlot(path string) (*BoltSlot, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt slot: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(slotBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create session bucket: %w", err)
	}

	return &BoltSlot{db: db}, nil
}

func (b *BoltSlot) Get(_ context.Context) (*Session, error) {
	var s *Session
	err := b.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(slotBucket).Get(activeKey)
		if data == nil {
			return nil
		}
		s = &Session{}
		return json.Unmarshal(data, s)
	})
	if err != nil {
		return nil, fmt.Errorf("read bolt slot: %w", err)
	}
	return s, nil
}

func (b *BoltSlot) Set(_ context.Context, s *Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(slotBucket).Put(activeKey, data)
	}); err != nil {
		return fmt.Errorf("write bolt slot: %w", err)
	}
	return nil
}

func (b *BoltSlot) Remove(_ context.Context) error {
	if err := b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(slotBucket).Delete(activeKey)
	}); err != nil {
		return fmt.Errorf("clear bolt slot: %w", err)
	}
	return nil
}

func (b *BoltSlot) Close() error {
	return b.db.Close()
}
