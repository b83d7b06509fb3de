package buffer

import (
	"sync"

	"github.com/c360/ponybridge/errors"
)

// circularBuffer is a thread-safe ring with a drop-on-overflow policy.
type circularBuffer[T any] struct {
	mu       sync.Mutex
	items    []T
	capacity int
	size     int
	head     int // next write position
	tail     int // next read position
	closed   bool
	stats    *Statistics
	metrics  *bufferMetrics
	opts     *bufferOptions[T]
}

func newCircularBuffer[T any](capacity int, opts *bufferOptions[T]) (*circularBuffer[T], error) {
	var metrics *bufferMetrics
	if opts.metricsReg != nil && opts.metricsPrefix != "" {
		var err error
		metrics, err = newBufferMetrics(opts.metricsReg, opts.metricsPrefix)
		if err != nil {
			return nil, errors.WrapTransient(err, "buffer", "newCircularBuffer", "metrics registration")
		}
	}

	return &circularBuffer[T]{
		items:    make([]T, capacity),
		capacity: capacity,
		stats:    NewStatistics(),
		metrics:  metrics,
		opts:     opts,
	}, nil
}

// Write adds an item to the buffer according to the overflow policy.
func (cb *circularBuffer[T]) Write(item T) error {
	cb.mu.Lock()

	if cb.closed {
		cb.mu.Unlock()
		return errors.WrapInvalid(errors.ErrNoConnection, "Buffer", "Write", "buffer closed")
	}

	var dropped T
	hasDropped := false

	if cb.size == cb.capacity {
		if cb.opts.overflowPolicy == DropNewest {
			size := cb.size
			cb.mu.Unlock()
			// Rejected writes count as writes.
			cb.stats.Write()
			if cb.metrics != nil {
				cb.metrics.recordWrite(size, cb.capacity)
			}
			cb.recordDrop(item)
			return nil
		}
		dropped = cb.items[cb.tail]
		hasDropped = true
		cb.popLocked()
	}

	cb.items[cb.head] = item
	cb.head = (cb.head + 1) % cb.capacity
	cb.size++
	size := cb.size
	cb.mu.Unlock()

	cb.stats.Write()
	cb.stats.UpdateSize(int64(size))
	if cb.metrics != nil {
		cb.metrics.recordWrite(size, cb.capacity)
	}

	if hasDropped {
		cb.recordDrop(dropped)
	}
	return nil
}

// recordDrop must be called without holding the lock.
func (cb *circularBuffer[T]) recordDrop(item T) {
	cb.stats.Drop()
	if cb.metrics != nil {
		cb.metrics.recordDrop()
	}
	if cb.opts.dropCallback != nil {
		cb.opts.dropCallback(item)
	}
}

func (cb *circularBuffer[T]) popLocked() T {
	var zero T
	item := cb.items[cb.tail]
	cb.items[cb.tail] = zero
	cb.tail = (cb.tail + 1) % cb.capacity
	cb.size--
	return item
}

// Read retrieves and removes one item from the buffer.
func (cb *circularBuffer[T]) Read() (T, bool) {
	items := cb.ReadBatch(1)
	if len(items) == 0 {
		var zero T
		return zero, false
	}
	return items[0], true
}

// ReadBatch retrieves and removes up to max items from the buffer.
func (cb *circularBuffer[T]) ReadBatch(max int) []T {
	if max <= 0 {
		return nil
	}

	cb.mu.Lock()
	if cb.size == 0 {
		cb.mu.Unlock()
		return nil
	}

	count := min(max, cb.size)
	result := make([]T, count)
	for i := range result {
		result[i] = cb.popLocked()
	}
	size := cb.size
	cb.mu.Unlock()

	cb.stats.Read(int64(count))
	cb.stats.UpdateSize(int64(size))
	if cb.metrics != nil {
		cb.metrics.recordRead(count, size, cb.capacity)
	}
	return result
}

// Drain retrieves and removes all items from the buffer.
func (cb *circularBuffer[T]) Drain() []T {
	return cb.ReadBatch(cb.capacity)
}

// Size returns the current number of items in the buffer.
func (cb *circularBuffer[T]) Size() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.size
}

// Capacity returns the maximum number of items the buffer can hold.
func (cb *circularBuffer[T]) Capacity() int {
	return cb.capacity
}

// Clear removes all items from the buffer.
func (cb *circularBuffer[T]) Clear() {
	cb.mu.Lock()
	dropped := make([]T, 0, cb.size)
	for cb.size > 0 {
		dropped = append(dropped, cb.popLocked())
	}
	cb.head, cb.tail = 0, 0
	cb.mu.Unlock()

	cb.stats.UpdateSize(0)
	if cb.metrics != nil {
		cb.metrics.updateSize(0, cb.capacity)
	}
	for _, item := range dropped {
		cb.recordDrop(item)
	}
}

// Stats returns buffer statistics.
func (cb *circularBuffer[T]) Stats() *Statistics {
	return cb.stats
}

// Close marks the buffer closed.
func (cb *circularBuffer[T]) Close() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.closed = true
	return nil
}
