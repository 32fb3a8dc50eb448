// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package buffer implements the per-port input buffer: a bounded FIFO
// with a deadlock watchdog and admission/disable semantics. A Buffer is
// owned exclusively by its router; nothing else reads or writes it, so
// it needs no synchronization.
package buffer

import "noxim.dev/router/internal/flit"

// Stats accumulates lifetime admission/removal counters for a buffer,
// reported by Router.ShowBuffersStats.
type Stats struct {
	Pushed uint64
	Popped uint64
}

// Buffer is a bounded FIFO of flits with a deadlock watchdog.
type Buffer struct {
	queue    []flit.Flit
	capacity int
	enabled  bool

	// headAge counts consecutive ticks the current front flit has sat
	// unpopped; CheckDeadlock compares it against deadlockThreshold and
	// only ever warns, it never intervenes.
	headAge           int
	deadlockThreshold int

	stats Stats
}

// New creates an enabled Buffer with the given capacity and deadlock
// threshold (in cycles).
func New(capacity, deadlockThreshold int) *Buffer {
	return &Buffer{
		capacity:          capacity,
		enabled:           true,
		deadlockThreshold: deadlockThreshold,
	}
}

// SetCapacity changes the buffer's maximum size. Shrinking below the
// current occupancy is allowed; it simply blocks further admission
// until the backlog drains.
func (b *Buffer) SetCapacity(n int) {
	b.capacity = n
}

// Disable marks the buffer disabled: IsFull reports true and FreeSlots
// reports zero from then on, and Push always fails. A disabled port
// never participates in admission or forwarding.
func (b *Buffer) Disable() {
	b.enabled = false
}

// Enabled reports whether the buffer currently accepts admissions.
func (b *Buffer) Enabled() bool {
	return b.enabled
}

// Push admits f at the tail of the buffer. It returns false without
// modifying state if the buffer is disabled or full.
func (b *Buffer) Push(f flit.Flit) bool {
	if b.IsFull() {
		return false
	}
	if len(b.queue) == 0 {
		b.headAge = 0
	}
	b.queue = append(b.queue, f)
	b.stats.Pushed++
	return true
}

// Front returns the flit at the head of the buffer without removing it.
func (b *Buffer) Front() (flit.Flit, bool) {
	if len(b.queue) == 0 {
		return flit.Flit{}, false
	}
	return b.queue[0], true
}

// Pop removes and returns the head flit, resetting the deadlock
// watchdog for whatever flit becomes the new front.
func (b *Buffer) Pop() (flit.Flit, bool) {
	if len(b.queue) == 0 {
		return flit.Flit{}, false
	}
	f := b.queue[0]
	b.queue = b.queue[1:]
	b.headAge = 0
	b.stats.Popped++
	return f, true
}

// Size returns the current occupancy.
func (b *Buffer) Size() int {
	return len(b.queue)
}

// IsEmpty reports whether the buffer holds no flits.
func (b *Buffer) IsEmpty() bool {
	return len(b.queue) == 0
}

// IsFull reports whether the buffer cannot admit another flit right
// now: either it is disabled, or it is at capacity.
func (b *Buffer) IsFull() bool {
	return !b.enabled || len(b.queue) >= b.capacity
}

// FreeSlots reports how many more flits the buffer could admit. A
// disabled buffer always reports zero.
func (b *Buffer) FreeSlots() int {
	if !b.enabled {
		return 0
	}
	free := b.capacity - len(b.queue)
	if free < 0 {
		return 0
	}
	return free
}

// MaxBufferSize reports the configured capacity.
func (b *Buffer) MaxBufferSize() int {
	return b.capacity
}

// Tick advances the deadlock watchdog by one cycle; call it once per
// tick regardless of whether anything else happens to the buffer.
func (b *Buffer) Tick() {
	if len(b.queue) > 0 {
		b.headAge++
	}
}

// CheckDeadlock reports true when the buffer shows no deadlock
// suspicion, and false once the head flit has been stalled longer than
// the configured threshold. It is advisory only: callers log a warning
// on false, nothing more.
func (b *Buffer) CheckDeadlock() bool {
	return b.headAge <= b.deadlockThreshold
}

// Stats returns a snapshot of lifetime push/pop counters.
func (b *Buffer) Stats() Stats {
	return b.stats
}
