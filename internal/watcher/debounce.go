// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package watcher

import (
	"sync"
	"time"
)

const defaultDebounceDuration = 100 * time.Millisecond

// Debouncer coalesces bursts of calls per key into a single delayed call.
type Debouncer struct {
	mu       sync.Mutex
	duration time.Duration
	pending  map[string]*pendingCall
	seq      uint64
}

type pendingCall struct {
	timer *time.Timer
	gen   uint64
}

// NewDebouncer creates a new debouncer with the given duration.
func NewDebouncer(duration time.Duration) *Debouncer {
	if duration <= 0 {
		duration = defaultDebounceDuration
	}
	return &Debouncer{
		duration: duration,
		pending:  make(map[string]*pendingCall),
	}
}

// Debounce schedules fn to run after the debounce duration. Calling it again
// with the same key before then restarts the wait and replaces fn.
func (d *Debouncer) Debounce(key string, fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if p, ok := d.pending[key]; ok {
		p.timer.Stop()
	}

	d.seq++
	gen := d.seq
	d.pending[key] = &pendingCall{
		gen: gen,
		timer: time.AfterFunc(d.duration, func() {
			d.mu.Lock()
			p, ok := d.pending[key]
			// A newer call may have replaced us after the timer fired.
			if !ok || p.gen != gen {
				d.mu.Unlock()
				return
			}
			delete(d.pending, key)
			d.mu.Unlock()
			fn()
		}),
	}
}

// Pending reports whether a call is scheduled for key.
func (d *Debouncer) Pending(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.pending[key]
	return ok
}

// Cancel drops the scheduled call for key, if any.
func (d *Debouncer) Cancel(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if p, ok := d.pending[key]; ok {
		p.timer.Stop()
		delete(d.pending, key)
	}
}

// Stop cancels every scheduled call.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	for key, p := range d.pending {
		p.timer.Stop()
		delete(d.pending, key)
	}
}

// SetDuration changes the wait for future calls. Scheduled calls keep theirs.
func (d *Debouncer) SetDuration(duration time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if duration <= 0 {
		duration = defaultDebounceDuration
	}
	d.duration = duration
}
