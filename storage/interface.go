package storage

import (
	"context"
	"fmt"
	"time"

	"streamkv/config"
)

// Conn is a live connection to a key-value backend.
type Conn interface {
	// Put writes key->value with an expiry. ttl of zero means no expiry.
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Get retrieves a value and whether it exists. An expired or never
	// written key reports found=false with a nil error.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Ping checks liveness of the connection.
	Ping(ctx context.Context) error
	// Close releases the connection.
	Close() error
}

// Dialer establishes a fresh backend connection. Dial failures are
// transient: callers retry rather than abort.
type Dialer func(ctx context.Context) (Conn, error)

// OpenDialer builds the Dialer for the configured backend.
func OpenDialer(cfg config.StoreConfig) (Dialer, error) {
	switch cfg.Backend {
	case "redis":
		servers := cfg.ServerList()
		password := cfg.Password
		dialTimeout := cfg.DialTimeout()
		opTimeout := cfg.OpTimeout()
		return func(ctx context.Context) (Conn, error) {
			return DialRedis(ctx, servers, password, dialTimeout, opTimeout)
		}, nil
	case "badger":
		dataDir := cfg.DataDir
		return func(ctx context.Context) (Conn, error) {
			return OpenBadger(dataDir)
		}, nil
	case "memory":
		// One shared store so data survives reconnects.
		m := NewMemory()
		return func(ctx context.Context) (Conn, error) {
			return m, nil
		}, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}
