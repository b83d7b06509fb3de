package buffer

import (
	"sync/atomic"
)

// Statistics tracks buffer activity with atomic counters.
type Statistics struct {
	writes   atomic.Int64
	reads    atomic.Int64
	drops    atomic.Int64
	size     atomic.Int64
	peakSize atomic.Int64
}

// NewStatistics creates a new statistics tracker.
func NewStatistics() *Statistics {
	return &Statistics{}
}

// Write records a write.
func (s *Statistics) Write() { s.writes.Add(1) }

// Read records n items read.
func (s *Statistics) Read(n int64) { s.reads.Add(n) }

// Drop records a dropped item.
func (s *Statistics) Drop() { s.drops.Add(1) }

// UpdateSize records the current size and tracks the peak.
func (s *Statistics) UpdateSize(size int64) {
	s.size.Store(size)
	for {
		peak := s.peakSize.Load()
		if size <= peak || s.peakSize.CompareAndSwap(peak, size) {
			return
		}
	}
}

// Writes returns the total number of writes.
func (s *Statistics) Writes() int64 { return s.writes.Load() }

// Reads returns the total number of items read.
func (s *Statistics) Reads() int64 { return s.reads.Load() }

// Drops returns the total number of dropped items.
func (s *Statistics) Drops() int64 { return s.drops.Load() }

// CurrentSize returns the last recorded size.
func (s *Statistics) CurrentSize() int64 { return s.size.Load() }

// PeakSize returns the largest recorded size.
func (s *Statistics) PeakSize() int64 { return s.peakSize.Load() }

// DropRate returns drops / writes, or 0 before any write.
func (s *Statistics) DropRate() float64 {
	writes := s.Writes()
	if writes == 0 {
		return 0
	}
	return float64(s.Drops()) / float64(writes)
}
