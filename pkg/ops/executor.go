// Package ops executes single key-value operations against the managed
// connection and folds every failure into an explicit Result.
package ops

import (
	"context"
	"time"

	"streamkv/pkg/conn"
	"streamkv/storage"
)

// Executor runs Put/Get against whatever connection the manager currently
// holds. Every call is bounded by the operation timeout so network stalls
// stay off the record-processing path.
type Executor struct {
	manager *conn.Manager
	timeout time.Duration
}

func NewExecutor(m *conn.Manager, opTimeout time.Duration) *Executor {
	if opTimeout <= 0 {
		opTimeout = time.Second
	}
	return &Executor{manager: m, timeout: opTimeout}
}

// Put writes key->value with the given ttl. Success echoes the key so the
// caller can chain a Get on it.
func (e *Executor) Put(ctx context.Context, key, value string, ttl time.Duration) Result {
	c, ok := e.manager.Acquire()
	if !ok {
		return Result{Status: StatusUnavailable, Key: key}
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	if err := c.Put(ctx, key, []byte(value), ttl); err != nil {
		return e.classify(c, key, err)
	}
	return Result{Status: StatusSuccess, Key: key}
}

// Get reads the value for key. Missing or expired keys are NotFound, never
// an error.
func (e *Executor) Get(ctx context.Context, key string) Result {
	c, ok := e.manager.Acquire()
	if !ok {
		return Result{Status: StatusUnavailable, Key: key}
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	value, found, err := c.Get(ctx, key)
	if err != nil {
		return e.classify(c, key, err)
	}
	if !found {
		return Result{Status: StatusNotFound, Key: key}
	}
	return Result{Status: StatusSuccess, Key: key, Value: value}
}

// classify translates a backend error into a Result. Connectivity failures
// hand the dead connection back to the manager.
func (e *Executor) classify(c storage.Conn, key string, err error) Result {
	if storage.IsUnavailable(err) {
		e.manager.ReportFailure(c)
		return Result{Status: StatusUnavailable, Key: key, Err: err}
	}
	return Result{Status: StatusStoreError, Key: key, Err: err}
}
