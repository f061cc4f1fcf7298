// Package appendlog implements a concurrent, index-addressable append-only
// log with prefix trimming.
//
// Values are stored in fixed-size segments. Index assignment is serialized
// by a push mutex, trims are serialized by a trim mutex, and readers only
// take a short read lock on the segment directory. A value is written into
// its slot before the log size is advanced, so a reader that observes
// index < Size() always observes the complete value.
//
//	l := appendlog.New[string]()
//	i := l.Push("hello")
//	v, ok := l.Get(i)
//	l.Trim(func(s string) bool { return s == "hello" })
package appendlog

import (
	"iter"
	"sync"
	"sync/atomic"
)

const (
	segmentBits = 10
	segmentSize = 1 << segmentBits
	segmentMask = segmentSize - 1
)

type segment[T any] struct {
	slots [segmentSize]atomic.Pointer[T]
}

// Log is an append-only sequence addressed by a dense uint64 index.
//
// Entries before StartIndex have been trimmed; Size is the next index to be
// assigned. Both only ever grow. The zero value is not usable; call New.
type Log[T any] struct {
	pushMu sync.Mutex
	trimMu sync.Mutex

	segMu    sync.RWMutex
	segments []*segment[T]
	base     uint64 // segment number of segments[0]

	start atomic.Uint64
	size  atomic.Uint64
}

// New returns an empty log.
func New[T any]() *Log[T] {
	return &Log[T]{}
}

// Push appends v and returns its index.
func (l *Log[T]) Push(v T) uint64 {
	return l.PushWithFinalize(v, nil)
}

// PushWithFinalize appends v. After the index is assigned and before the
// value becomes visible to readers, finalize is called with a pointer to the
// value being stored and its index, so the value can record its own position.
func (l *Log[T]) PushWithFinalize(v T, finalize func(v *T, index uint64)) uint64 {
	l.pushMu.Lock()
	defer l.pushMu.Unlock()

	index := l.size.Load()
	if finalize != nil {
		finalize(&v, index)
	}

	seg := l.segmentForWrite(index)
	seg.slots[index&segmentMask].Store(&v)
	l.size.Store(index + 1)

	return index
}

// Get returns the value at index if it is within [StartIndex, Size) and has
// not been trimmed.
func (l *Log[T]) Get(index uint64) (T, bool) {
	var zero T

	if index < l.start.Load() || index >= l.size.Load() {
		return zero, false
	}

	slot := l.slot(index)
	if slot == nil {
		return zero, false
	}
	p := slot.Load()
	if p == nil {
		return zero, false
	}
	return *p, true
}

// StartIndex returns the index of the first retained entry.
func (l *Log[T]) StartIndex() uint64 {
	return l.start.Load()
}

// Size returns the next index to be assigned.
func (l *Log[T]) Size() uint64 {
	return l.size.Load()
}

// Len returns the number of retained entries.
func (l *Log[T]) Len() int {
	size := l.size.Load()
	start := l.start.Load()
	if start > size {
		return 0
	}
	return int(size - start)
}

// Trim removes entries from the front of the log while pred holds for them.
// It stops at the first entry for which pred is false, so the cost is
// proportional to the number of removed entries. It returns that number.
//
// Trim may run concurrently with Push and Get; concurrent trims are
// serialized.
func (l *Log[T]) Trim(pred func(T) bool) int {
	l.trimMu.Lock()
	defer l.trimMu.Unlock()

	start := l.start.Load()
	size := l.size.Load()

	end := start
	for ; end < size; end++ {
		slot := l.slot(end)
		if slot == nil {
			break
		}
		p := slot.Load()
		if p == nil || !pred(*p) {
			break
		}
	}
	if end == start {
		return 0
	}

	l.start.Store(end)
	for i := start; i < end; i++ {
		if slot := l.slot(i); slot != nil {
			slot.Store(nil)
		}
	}
	l.releaseBelow(end)

	return int(end - start)
}

// All yields every retained entry in index order. Entries appended while
// iterating are included; entries trimmed while iterating are skipped.
func (l *Log[T]) All() iter.Seq2[uint64, T] {
	return func(yield func(uint64, T) bool) {
		for i := l.StartIndex(); i < l.Size(); i++ {
			v, ok := l.Get(i)
			if !ok {
				continue
			}
			if !yield(i, v) {
				return
			}
		}
	}
}

func (l *Log[T]) slot(index uint64) *atomic.Pointer[T] {
	n := index >> segmentBits

	l.segMu.RLock()
	defer l.segMu.RUnlock()

	if n < l.base || n-l.base >= uint64(len(l.segments)) {
		return nil
	}
	return &l.segments[n-l.base].slots[index&segmentMask]
}

func (l *Log[T]) segmentForWrite(index uint64) *segment[T] {
	n := index >> segmentBits

	l.segMu.RLock()
	if n >= l.base && n-l.base < uint64(len(l.segments)) {
		s := l.segments[n-l.base]
		l.segMu.RUnlock()
		return s
	}
	l.segMu.RUnlock()

	l.segMu.Lock()
	defer l.segMu.Unlock()

	if len(l.segments) == 0 {
		l.base = n
	}
	for n-l.base >= uint64(len(l.segments)) {
		l.segments = append(l.segments, &segment[T]{})
	}
	return l.segments[n-l.base]
}

// releaseBelow drops segments that lie entirely before floor.
func (l *Log[T]) releaseBelow(floor uint64) {
	first := floor >> segmentBits

	l.segMu.Lock()
	defer l.segMu.Unlock()

	if first <= l.base {
		return
	}
	drop := first - l.base
	if drop > uint64(len(l.segments)) {
		drop = uint64(len(l.segments))
	}
	l.segments = append([]*segment[T](nil), l.segments[drop:]...)
	l.base += drop
}
