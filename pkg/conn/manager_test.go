package conn_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"streamkv/pkg/conn"
	"streamkv/storage"
)

type fakeConn struct {
	closed atomic.Bool
}

func (f *fakeConn) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return nil
}

func (f *fakeConn) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return nil, false, nil
}

func (f *fakeConn) Ping(ctx context.Context) error { return nil }

func (f *fakeConn) Close() error {
	f.closed.Store(true)
	return nil
}

func fastPolicy() conn.Policy {
	return conn.Policy{
		RetryInterval: 5 * time.Millisecond,
		MaxInterval:   20 * time.Millisecond,
		DialTimeout:   100 * time.Millisecond,
	}
}

func failingDialer() storage.Dialer {
	return func(ctx context.Context) (storage.Conn, error) {
		return nil, errors.New("connection refused")
	}
}

func TestAcquireNeverBlocksWhileDown(t *testing.T) {
	m := conn.NewManager(failingDialer(), fastPolicy())
	defer m.Close()

	start := time.Now()
	c, ok := m.Acquire()
	require.False(t, ok)
	require.Nil(t, c)
	require.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestEventuallyUpOnceStoreReachable(t *testing.T) {
	var fails atomic.Int32
	fails.Store(3)
	dial := func(ctx context.Context) (storage.Conn, error) {
		if fails.Add(-1) >= 0 {
			return nil, errors.New("connection refused")
		}
		return &fakeConn{}, nil
	}

	m := conn.NewManager(dial, fastPolicy())
	defer m.Close()

	require.Eventually(t, func() bool {
		return m.State() == conn.Up
	}, 2*time.Second, 5*time.Millisecond)

	c, ok := m.Acquire()
	require.True(t, ok)
	require.NotNil(t, c)
}

func TestAtMostOneAttemptInFlight(t *testing.T) {
	var inFlight, maxSeen atomic.Int32
	dial := func(ctx context.Context) (storage.Conn, error) {
		n := inFlight.Add(1)
		if prev := maxSeen.Load(); n > prev {
			maxSeen.CompareAndSwap(prev, n)
		}
		time.Sleep(10 * time.Millisecond)
		inFlight.Add(-1)
		return nil, errors.New("connection refused")
	}

	m := conn.NewManager(dial, fastPolicy())
	for i := 0; i < 50; i++ {
		m.Acquire()
		time.Sleep(2 * time.Millisecond)
	}
	m.Close()

	require.LessOrEqual(t, maxSeen.Load(), int32(1))
}

func TestBackoffDoublesToCapAndResetsAfterSuccess(t *testing.T) {
	policy := conn.Policy{
		RetryInterval: 30 * time.Millisecond,
		MaxInterval:   120 * time.Millisecond,
		DialTimeout:   200 * time.Millisecond,
	}

	var mu sync.Mutex
	var stamps []time.Time
	var calls atomic.Int32
	dial := func(ctx context.Context) (storage.Conn, error) {
		n := calls.Add(1)
		mu.Lock()
		stamps = append(stamps, time.Now())
		mu.Unlock()
		if n == 6 {
			return &fakeConn{}, nil
		}
		return nil, errors.New("connection refused")
	}

	m := conn.NewManager(dial, policy)
	defer m.Close()

	// Attempts 1-5 fail, so the waits run 30, 60, 120, 120ms before the
	// sixth attempt connects.
	require.Eventually(t, func() bool { return m.State() == conn.Up }, 3*time.Second, time.Millisecond)

	c, ok := m.Acquire()
	require.True(t, ok)
	m.ReportFailure(c)

	// Attempt 7 follows the failure report immediately and fails; the
	// wait before attempt 8 shows whether the interval was reset.
	require.Eventually(t, func() bool { return calls.Load() >= 8 }, 3*time.Second, time.Millisecond)

	mu.Lock()
	gaps := make([]time.Duration, 0, len(stamps)-1)
	for i := 1; i < len(stamps); i++ {
		gaps = append(gaps, stamps[i].Sub(stamps[i-1]))
	}
	mu.Unlock()

	// Doubling from the retry interval.
	require.GreaterOrEqual(t, gaps[0], 25*time.Millisecond)
	require.GreaterOrEqual(t, gaps[1], 50*time.Millisecond)
	require.Greater(t, gaps[1], gaps[0])
	require.GreaterOrEqual(t, gaps[2], 100*time.Millisecond)

	// Capped at MaxInterval rather than doubling to 240ms.
	require.GreaterOrEqual(t, gaps[3], 100*time.Millisecond)
	require.LessOrEqual(t, gaps[3], 220*time.Millisecond)
	require.LessOrEqual(t, gaps[4], 220*time.Millisecond)

	// Reset after the successful connect: the post-outage wait is the
	// initial interval again, well under the capped gap.
	reset := gaps[6]
	require.GreaterOrEqual(t, reset, 25*time.Millisecond)
	require.Less(t, reset, gaps[2])
}

func TestReportFailureReconnectsAndIgnoresStaleHandles(t *testing.T) {
	first := &fakeConn{}
	second := &fakeConn{}
	var dials atomic.Int32
	dial := func(ctx context.Context) (storage.Conn, error) {
		if dials.Add(1) == 1 {
			return first, nil
		}
		return second, nil
	}

	m := conn.NewManager(dial, fastPolicy())
	defer m.Close()

	require.Eventually(t, func() bool { return m.State() == conn.Up }, time.Second, time.Millisecond)
	c, ok := m.Acquire()
	require.True(t, ok)
	require.Same(t, first, c.(*fakeConn))

	m.ReportFailure(c)
	require.True(t, first.closed.Load())

	require.Eventually(t, func() bool {
		got, ok := m.Acquire()
		return ok && got.(*fakeConn) == second
	}, time.Second, time.Millisecond)

	// A handle from before the reconnect must not kill the new connection.
	m.ReportFailure(first)
	got, ok := m.Acquire()
	require.True(t, ok)
	require.Same(t, second, got.(*fakeConn))
	require.False(t, second.closed.Load())
}

func TestCloseStopsReconnectAttempts(t *testing.T) {
	var dials atomic.Int32
	dial := func(ctx context.Context) (storage.Conn, error) {
		dials.Add(1)
		return nil, errors.New("connection refused")
	}

	m := conn.NewManager(dial, fastPolicy())
	time.Sleep(30 * time.Millisecond)
	require.NoError(t, m.Close())

	time.Sleep(20 * time.Millisecond) // let any in-flight attempt drain
	settled := dials.Load()
	time.Sleep(60 * time.Millisecond)
	require.Equal(t, settled, dials.Load())
}

func TestCloseReleasesConnection(t *testing.T) {
	fc := &fakeConn{}
	dial := func(ctx context.Context) (storage.Conn, error) { return fc, nil }

	m := conn.NewManager(dial, fastPolicy())
	require.Eventually(t, func() bool { return m.State() == conn.Up }, time.Second, time.Millisecond)

	require.NoError(t, m.Close())
	require.True(t, fc.closed.Load())

	_, ok := m.Acquire()
	require.False(t, ok)
}

func TestStartupWithUnreachableStoreDoesNotFail(t *testing.T) {
	m := conn.NewManager(failingDialer(), fastPolicy())
	defer m.Close()

	require.NotNil(t, m)
	require.NotEqual(t, conn.Up, m.State())
}
