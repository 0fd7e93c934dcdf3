package ledger

import (
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

const (
	bucketName  = "ledger"
	receiptsKey = "receipts"

	// schemaVersion is stamped into every saved envelope. Load rejects
	// envelopes written by a newer schema.
	schemaVersion = 1
)

// Store defines the interface for durable ledger persistence
type Store interface {
	// Load returns the persisted receipt collection
	Load() ([]Receipt, error)

	// Save replaces the persisted collection wholesale
	Save(receipts []Receipt) error

	// Close closes the underlying database
	Close() error
}

// envelope is the serialized layout of the blob stored under receiptsKey
type envelope struct {
	Version  int       `json:"version"`
	Receipts []Receipt `json:"receipts"`
}

// BoltStore implements the Store interface using BoltDB
type BoltStore struct {
	db *bbolt.DB
}

// NewBoltStore opens the ledger database at path, creating it if needed
func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating bucket: %w", err)
	}

	return &BoltStore{db: db}, nil
}

// Load returns the persisted receipt collection. A database that has never
// been saved to yields an empty collection.
func (b *BoltStore) Load() ([]Receipt, error) {
	receipts := make([]Receipt, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketName))
		data := bucket.Get([]byte(receiptsKey))
		if data == nil {
			return nil
		}
		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			return fmt.Errorf("unmarshaling ledger: %w", err)
		}
		if env.Version > schemaVersion {
			return fmt.Errorf("ledger version %d is newer than supported version %d", env.Version, schemaVersion)
		}
		receipts = append(receipts, env.Receipts...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return receipts, nil
}

// Save replaces the persisted collection wholesale
func (b *BoltStore) Save(receipts []Receipt) error {
	if receipts == nil {
		receipts = []Receipt{}
	}
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketName))
		data, err := json.Marshal(envelope{Version: schemaVersion, Receipts: receipts})
		if err != nil {
			return fmt.Errorf("marshaling ledger: %w", err)
		}
		return bucket.Put([]byte(receiptsKey), data)
	})
}

// Close closes the database connection
func (b *BoltStore) Close() error {
	return b.db.Close()
}
