package storage

import (
	"context"
	"sync"
	"time"
)

// Memory provides an in-memory Conn with TTL support. It backs the
// "memory" store backend and the test suites.
type Memory struct {
	mu   sync.RWMutex
	data map[string]memEntry
	now  func() time.Time
	once sync.Once
	stop chan struct{}
}

type memEntry struct {
	val       []byte
	expiresAt time.Time // zero means no expiry
}

func NewMemory() *Memory {
	return NewMemoryWithClock(time.Now)
}

// NewMemoryWithClock uses the given clock for expiry decisions, letting
// tests advance time without sleeping.
func NewMemoryWithClock(now func() time.Time) *Memory {
	m := &Memory{data: make(map[string]memEntry), now: now, stop: make(chan struct{})}
	go m.janitor()
	return m
}

func (m *Memory) janitor() {
	t := time.NewTicker(1 * time.Second)
	defer t.Stop()
	for {
		select {
		case <-m.stop:
			return
		case <-t.C:
			now := m.now()
			m.mu.Lock()
			for k, e := range m.data {
				if !e.expiresAt.IsZero() && now.After(e.expiresAt) {
					delete(m.data, k)
				}
			}
			m.mu.Unlock()
		}
	}
}

func (m *Memory) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()
	var exp time.Time
	if ttl > 0 {
		exp = m.now().Add(ttl)
	}
	m.data[key] = memEntry{val: append([]byte(nil), value...), expiresAt: exp}
	return nil
}

func (m *Memory) Get(ctx context.Context, key string) ([]byte, bool, error) {
	_ = ctx
	m.mu.RLock()
	e, ok := m.data[key]
	m.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if !e.expiresAt.IsZero() && m.now().After(e.expiresAt) {
		m.mu.Lock()
		// A Put may have replaced the entry since the read lock was
		// dropped; only delete what is still expired.
		if cur, ok := m.data[key]; ok && !cur.expiresAt.IsZero() && m.now().After(cur.expiresAt) {
			delete(m.data, key)
		}
		m.mu.Unlock()
		return nil, false, nil
	}
	return append([]byte(nil), e.val...), true, nil
}

func (m *Memory) Ping(ctx context.Context) error {
	_ = ctx
	return nil
}

// Close stops the janitor. Safe to call more than once: a shared Memory is
// handed out on every dial, so reconnects close it repeatedly.
func (m *Memory) Close() error {
	m.once.Do(func() { close(m.stop) })
	return nil
}
