// Package conn owns the single logical connection to the key-value store
// and its Down/Connecting/Up lifecycle.
package conn

import (
	"context"
	"log"
	"sync"
	"time"

	"streamkv/storage"
)

// State of the managed connection.
type State int32

const (
	Down State = iota
	Connecting
	Up
)

func (s State) String() string {
	switch s {
	case Down:
		return "down"
	case Connecting:
		return "connecting"
	case Up:
		return "up"
	}
	return "unknown"
}

// Policy controls dialing and reconnect cadence. Failed attempts back off
// exponentially from RetryInterval up to MaxInterval; a successful connect
// resets the interval.
type Policy struct {
	RetryInterval time.Duration
	MaxInterval   time.Duration
	DialTimeout   time.Duration
}

// Manager owns one backend connection. Record processing calls Acquire and
// ReportFailure; a single background goroutine performs all dialing, so at
// most one connect attempt is ever in flight.
type Manager struct {
	dial   storage.Dialer
	policy Policy

	mu       sync.Mutex
	state    State
	conn     storage.Conn
	interval time.Duration
	closed   bool

	done chan struct{}
	kick chan struct{}
}

// NewManager starts a manager in the Down state. An unreachable store never
// fails construction: the first connect happens in the background.
func NewManager(dial storage.Dialer, policy Policy) *Manager {
	if policy.RetryInterval <= 0 {
		policy.RetryInterval = time.Second
	}
	if policy.MaxInterval < policy.RetryInterval {
		policy.MaxInterval = policy.RetryInterval
	}
	if policy.DialTimeout <= 0 {
		policy.DialTimeout = 5 * time.Second
	}
	m := &Manager{
		dial:     dial,
		policy:   policy,
		state:    Down,
		interval: policy.RetryInterval,
		done:     make(chan struct{}),
		kick:     make(chan struct{}, 1),
	}
	go m.reconnectLoop()
	return m
}

// Acquire returns the current connection if one is up. It never blocks on
// the network: when the store is down it reports false immediately and the
// background loop keeps trying.
func (m *Manager) Acquire() (storage.Conn, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == Up && m.conn != nil {
		return m.conn, true
	}
	return nil, false
}

// State returns the current connection state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// ReportFailure discards c after a connectivity failure and wakes the
// reconnect loop. A stale handle from before the last reconnect is ignored
// so it cannot tear down a newer connection.
func (m *Manager) ReportFailure(c storage.Conn) {
	m.mu.Lock()
	if m.closed || m.state != Up || c != m.conn {
		m.mu.Unlock()
		return
	}
	stale := m.conn
	m.conn = nil
	m.state = Down
	m.mu.Unlock()

	if stale != nil {
		stale.Close()
	}
	log.Printf("conn: store connection lost, reconnecting")
	select {
	case m.kick <- struct{}{}:
	default:
	}
}

// reconnectLoop is the only goroutine that dials. While Up it sleeps until
// kicked; while Down it retries with backoff.
func (m *Manager) reconnectLoop() {
	for {
		m.mu.Lock()
		if m.closed {
			m.mu.Unlock()
			return
		}
		if m.state == Up {
			m.mu.Unlock()
			select {
			case <-m.done:
				return
			case <-m.kick:
			}
			continue
		}
		m.state = Connecting
		m.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), m.policy.DialTimeout)
		c, err := m.dial(ctx)
		cancel()

		m.mu.Lock()
		if m.closed {
			m.mu.Unlock()
			if err == nil && c != nil {
				c.Close()
			}
			return
		}
		if err == nil {
			m.conn = c
			m.state = Up
			m.interval = m.policy.RetryInterval
			m.mu.Unlock()
			log.Printf("conn: store connection established")
			continue
		}
		m.state = Down
		wait := m.interval
		m.interval *= 2
		if m.interval > m.policy.MaxInterval {
			m.interval = m.policy.MaxInterval
		}
		m.mu.Unlock()
		log.Printf("conn: store unreachable (%v), next attempt in %s", err, wait)

		t := time.NewTimer(wait)
		select {
		case <-m.done:
			t.Stop()
			return
		case <-m.kick:
			t.Stop()
		case <-t.C:
		}
	}
}

// Close stops the reconnect loop and releases any open connection.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	c := m.conn
	m.conn = nil
	m.state = Down
	m.mu.Unlock()

	close(m.done)
	if c != nil {
		return c.Close()
	}
	return nil
}
