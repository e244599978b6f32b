// Package health exposes the process-wide liveness flag. The flag is true
// from startup and flips only on an unrecoverable internal fault; backend
// connectivity never touches it.
package health

import (
	"sync"
	"sync/atomic"
)

// Reporter holds a single healthy/unhealthy flag.
type Reporter struct {
	healthy atomic.Bool
	mu      sync.Mutex
	reason  string
}

func NewReporter() *Reporter {
	r := &Reporter{}
	r.healthy.Store(true)
	return r
}

// IsHealthy is safe to call from any goroutine at any time.
func (r *Reporter) IsHealthy() bool {
	return r.healthy.Load()
}

// MarkUnhealthy latches the flag to false. The first reason wins.
func (r *Reporter) MarkUnhealthy(reason string) {
	r.mu.Lock()
	if r.reason == "" {
		r.reason = reason
	}
	r.mu.Unlock()
	r.healthy.Store(false)
}

// Reason reports why the process went unhealthy, empty while healthy.
func (r *Reporter) Reason() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reason
}

// Default is the process-wide reporter queried by external probes.
var Default = NewReporter()

func IsHealthy() bool { return Default.IsHealthy() }
