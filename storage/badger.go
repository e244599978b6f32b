package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// BadgerConn implements Conn on an embedded BadgerDB.
type BadgerConn struct {
	db   *badger.DB
	once sync.Once
	stop chan struct{}
}

// OpenBadger opens (or creates) an embedded store under dataDir.
func OpenBadger(dataDir string) (*BadgerConn, error) {
	opts := badger.DefaultOptions(dataDir).
		WithLogger(nil).
		WithLoggingLevel(badger.ERROR)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, NewError(ReasonUnavailable, fmt.Errorf("failed to open badger db: %w", err))
	}

	c := &BadgerConn{db: db, stop: make(chan struct{})}
	go c.runGC()
	return c, nil
}

// runGC runs the value-log garbage collector periodically
func (c *BadgerConn) runGC() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.db.RunValueLogGC(0.7)
		}
	}
}

// Put stores a key-value pair with optional TTL
func (c *BadgerConn) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	err := c.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(key), value)
		if ttl > 0 {
			entry = entry.WithTTL(ttl)
		}
		return txn.SetEntry(entry)
	})
	if err != nil {
		return NewError(ReasonBackend, err)
	}
	return nil
}

// Get retrieves a value by key
func (c *BadgerConn) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	var found bool

	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			return err
		}

		found = true
		return item.Value(func(val []byte) error {
			value = append([]byte{}, val...)
			return nil
		})
	})
	if err != nil {
		return nil, false, NewError(ReasonBackend, err)
	}
	return value, found, nil
}

// Ping reports liveness of the embedded store.
func (c *BadgerConn) Ping(ctx context.Context) error {
	if c.db.IsClosed() {
		return NewError(ReasonUnavailable, errors.New("badger db is closed"))
	}
	return nil
}

// Close stops background tasks and closes the database. Safe to call more
// than once.
func (c *BadgerConn) Close() error {
	c.once.Do(func() { close(c.stop) })
	return c.db.Close()
}
