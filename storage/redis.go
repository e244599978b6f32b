package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConn implements Conn against a Redis-protocol store.
type RedisConn struct {
	client *redis.Client
}

// DialRedis tries the configured servers in order and returns a connection
// to the first one that answers PING within the dial timeout.
func DialRedis(ctx context.Context, servers []string, password string, dialTimeout, opTimeout time.Duration) (*RedisConn, error) {
	var lastErr error
	for _, addr := range servers {
		client := redis.NewClient(&redis.Options{
			Addr:         addr,
			Password:     password,
			DialTimeout:  dialTimeout,
			ReadTimeout:  opTimeout,
			WriteTimeout: opTimeout,
		})

		pingCtx, cancel := context.WithTimeout(ctx, dialTimeout)
		err := client.Ping(pingCtx).Err()
		cancel()
		if err == nil {
			return &RedisConn{client: client}, nil
		}
		lastErr = err
		client.Close()
	}
	if lastErr == nil {
		lastErr = errors.New("no store servers configured")
	}
	return nil, NewError(ReasonUnavailable, fmt.Errorf("no reachable store server: %w", lastErr))
}

// Put stores key->value with an expiry. A zero ttl stores without expiry.
func (c *RedisConn) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return classifyRedis(err)
	}
	return nil
}

// Get retrieves a value by key. Missing and expired keys report found=false.
func (c *RedisConn) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, classifyRedis(err)
	}
	return value, true, nil
}

// Ping checks store liveness.
func (c *RedisConn) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return classifyRedis(err)
	}
	return nil
}

// Close closes the underlying connection.
func (c *RedisConn) Close() error { return c.client.Close() }

// classifyRedis separates transport faults from backend-reported errors.
// go-redis surfaces backend errors as redis.Error; everything else coming
// back from a call is a transport or timeout problem.
func classifyRedis(err error) error {
	var re redis.Error
	if errors.As(err, &re) && !errors.Is(err, redis.Nil) {
		return NewError(ReasonBackend, err)
	}
	return NewError(ReasonUnavailable, err)
}
