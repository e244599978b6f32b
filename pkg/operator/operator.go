// Package operator implements the per-record Put and Get entry points.
// Processing one record never raises a fault: whatever happens against the
// store, the record either produces exactly one output tuple or none.
package operator

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/google/uuid"

	"streamkv/config"
	"streamkv/pkg/health"
	"streamkv/pkg/ops"
)

type base struct {
	id        string
	exec      *ops.Executor
	keyAttr   string
	valueAttr string
	ttlAttr   string
	reporter  *health.Reporter
}

func newBase(exec *ops.Executor, cfg config.OperatorConfig, reporter *health.Reporter) base {
	if reporter == nil {
		reporter = health.Default
	}
	return base{
		id:        uuid.NewString(),
		exec:      exec,
		keyAttr:   cfg.KeyAttribute,
		valueAttr: cfg.ValueAttribute,
		ttlAttr:   cfg.TTLAttribute,
		reporter:  reporter,
	}
}

// ID returns the operator instance identifier used in its log lines.
func (b *base) ID() string { return b.id }

func (b *base) logf(format string, args ...interface{}) {
	log.Printf("operator %s: %s", b.id[:8], fmt.Sprintf(format, args...))
}

// Put writes each input record to the store and passes the key through on
// success so a downstream Get can chain on it.
type Put struct {
	base
}

func NewPut(exec *ops.Executor, cfg config.OperatorConfig, reporter *health.Reporter) *Put {
	return &Put{base: newBase(exec, cfg, reporter)}
}

// Process handles one input record. emitted is false when the record
// produced no output: store down, backend failure or a malformed record.
func (p *Put) Process(ctx context.Context, in Tuple) (out Tuple, emitted bool) {
	defer func() {
		if r := recover(); r != nil {
			out, emitted = nil, false
			p.logf("recovered panic during put, record dropped: %v", r)
			p.reporter.MarkUnhealthy(fmt.Sprintf("panic in put operator: %v", r))
		}
	}()

	key, value, ttl, err := p.readRecord(in)
	if err != nil {
		p.logf("dropping malformed record: %v", err)
		return nil, false
	}

	res := p.exec.Put(ctx, key, value, ttl)
	switch res.Status {
	case ops.StatusSuccess:
		return Tuple{p.keyAttr: key}, true
	case ops.StatusUnavailable:
		// Silent drop. The connection manager is already reconnecting.
		return nil, false
	case ops.StatusStoreError:
		p.logf("put %q failed: %v", key, res.Err)
		return nil, false
	}
	return nil, false
}

func (p *Put) readRecord(in Tuple) (key, value string, ttl time.Duration, err error) {
	key, ok := in[p.keyAttr]
	if !ok {
		return "", "", 0, fmt.Errorf("missing key attribute %q", p.keyAttr)
	}
	value, ok = in[p.valueAttr]
	if !ok {
		return "", "", 0, fmt.Errorf("missing value attribute %q", p.valueAttr)
	}
	raw, ok := in[p.ttlAttr]
	if !ok {
		return "", "", 0, fmt.Errorf("missing ttl attribute %q", p.ttlAttr)
	}
	seconds, perr := strconv.ParseUint(raw, 10, 32)
	if perr != nil {
		return "", "", 0, fmt.Errorf("bad ttl attribute %q: %w", raw, perr)
	}
	return key, value, time.Duration(seconds) * time.Second, nil
}

// Get reads the stored value for each input record's key and emits
// key+value on success. A missing or expired key emits nothing.
type Get struct {
	base
}

func NewGet(exec *ops.Executor, cfg config.OperatorConfig, reporter *health.Reporter) *Get {
	return &Get{base: newBase(exec, cfg, reporter)}
}

// Process handles one input record.
func (g *Get) Process(ctx context.Context, in Tuple) (out Tuple, emitted bool) {
	defer func() {
		if r := recover(); r != nil {
			out, emitted = nil, false
			g.logf("recovered panic during get, record dropped: %v", r)
			g.reporter.MarkUnhealthy(fmt.Sprintf("panic in get operator: %v", r))
		}
	}()

	key, ok := in[g.keyAttr]
	if !ok {
		g.logf("dropping malformed record: missing key attribute %q", g.keyAttr)
		return nil, false
	}

	res := g.exec.Get(ctx, key)
	switch res.Status {
	case ops.StatusSuccess:
		return Tuple{g.keyAttr: key, g.valueAttr: string(res.Value)}, true
	case ops.StatusNotFound:
		return nil, false
	case ops.StatusUnavailable:
		return nil, false
	case ops.StatusStoreError:
		g.logf("get %q failed: %v", key, res.Err)
		return nil, false
	}
	return nil, false
}
