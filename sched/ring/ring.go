// Package ring provides the bounded event delivery channel between the
// in-kernel-style producers and a polling consumer. Delivery is
// best-effort: when the buffer is full the publish fails immediately
// and the producer keeps its state, folding the lost interval into the
// next successful emission.
package ring

import "sync/atomic"

// DefaultCapacity is sized for 256 KiB of 32-byte records.
const DefaultCapacity = 8192

// Buffer is a bounded multi-producer/single-consumer queue with
// drop-on-full semantics. Producers never block and never retry.
type Buffer[T any] struct {
	ch      chan T
	dropped atomic.Uint64
}

// New creates a buffer holding at most capacity records.
// Non-positive capacity uses DefaultCapacity.
func New[T any](capacity int) *Buffer[T] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Buffer[T]{ch: make(chan T, capacity)}
}

// TryPublish reserves space for one record and submits it. It returns
// false without blocking when the buffer is full; the caller must
// treat that as normal control flow, not an error.
func (b *Buffer[T]) TryPublish(v T) bool {
	select {
	case b.ch <- v:
		return true
	default:
		b.dropped.Add(1)
		return false
	}
}

// Events returns the consumer side of the buffer. There must be a
// single consumer; it drains records until Close.
func (b *Buffer[T]) Events() <-chan T { return b.ch }

// Dropped returns the number of records lost to a full buffer.
func (b *Buffer[T]) Dropped() uint64 { return b.dropped.Load() }

// Close ends delivery. Producers must not publish after Close.
func (b *Buffer[T]) Close() { close(b.ch) }
