// Package monitor enforces a cumulative memory ceiling on a single
// competitor. Usage is sampled around every capability call; only growth is
// counted, modeling the worst-case retained footprint of the strategy.
package monitor

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
)

// ErrResourceExceeded marks a call aborted because the competitor crossed
// its memory ceiling. Match runners score it as an ordinary player error.
var ErrResourceExceeded = errors.New("resource ceiling exceeded")

// Sampler reports the current attributable heap usage in bytes. The default
// reads the runtime allocator; tests inject deterministic samplers.
type Sampler func() uint64

func heapSampler() uint64 {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return m.HeapAlloc
}

// ResourceMonitor tracks cumulative memory growth for one competitor. The
// counter is monotonically non-decreasing: reclaimed memory is never
// subtracted. A monitor must not be shared between handles.
type ResourceMonitor struct {
	mu     sync.Mutex
	limit  uint64
	used   uint64
	sample Sampler
}

// New creates a monitor with the given byte ceiling.
func New(limit uint64) *ResourceMonitor {
	return &ResourceMonitor{limit: limit, sample: heapSampler}
}

// NewWithSampler creates a monitor using a custom usage sampler.
func NewWithSampler(limit uint64, sample Sampler) *ResourceMonitor {
	return &ResourceMonitor{limit: limit, sample: sample}
}

// Track runs one capability call, charging any positive usage delta to the
// cumulative counter. If the counter ends up above the ceiling the call's
// result must be discarded and ErrResourceExceeded is returned; the call
// error, if any, is passed through otherwise.
func (m *ResourceMonitor) Track(call func() error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	before := m.sample()
	err := call()
	after := m.sample()

	if after > before {
		m.used += after - before
	}
	if m.used > m.limit {
		return fmt.Errorf("%w: %d bytes used, ceiling %d", ErrResourceExceeded, m.used, m.limit)
	}
	return err
}

// Usage returns the cumulative tracked bytes.
func (m *ResourceMonitor) Usage() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.used
}

// Limit returns the configured ceiling in bytes.
func (m *ResourceMonitor) Limit() uint64 {
	return m.limit
}

// Reset clears the counter, for per-match accounting between independent
// matches.
func (m *ResourceMonitor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.used = 0
}
