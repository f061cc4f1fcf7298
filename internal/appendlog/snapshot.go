package appendlog

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformedSnapshot is returned when a serialized log cannot describe a
// valid log.
var ErrMalformedSnapshot = errors.New("appendlog: malformed snapshot")

// snapshot is the ordered serialized form of a Log.
// Entries holds the values for indices [StartIndex, Size) in order.
type snapshot[T any] struct {
	StartIndex uint64 `json:"start_index"`
	Size       uint64 `json:"size"`
	Entries    []T    `json:"entries"`
}

// MarshalJSON serializes the log. Pushes and trims are held off for the
// duration so the result is a consistent cut.
func (l *Log[T]) MarshalJSON() ([]byte, error) {
	l.trimMu.Lock()
	defer l.trimMu.Unlock()
	l.pushMu.Lock()
	defer l.pushMu.Unlock()

	s := snapshot[T]{
		StartIndex: l.start.Load(),
		Size:       l.size.Load(),
	}
	s.Entries = make([]T, 0, s.Size-s.StartIndex)
	for i := s.StartIndex; i < s.Size; i++ {
		v, ok := l.Get(i)
		if !ok {
			return nil, fmt.Errorf("%w: entry %d missing", ErrMalformedSnapshot, i)
		}
		s.Entries = append(s.Entries, v)
	}

	return json.Marshal(s)
}

// UnmarshalJSON replaces the contents of the log with a serialized one.
// It must not be called while the log is in concurrent use.
func (l *Log[T]) UnmarshalJSON(data []byte) error {
	var s snapshot[T]
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedSnapshot, err)
	}
	if s.StartIndex > s.Size {
		return fmt.Errorf("%w: start index %d beyond size %d", ErrMalformedSnapshot, s.StartIndex, s.Size)
	}
	if uint64(len(s.Entries)) != s.Size-s.StartIndex {
		return fmt.Errorf("%w: %d entries for range [%d, %d)", ErrMalformedSnapshot, len(s.Entries), s.StartIndex, s.Size)
	}

	l.trimMu.Lock()
	defer l.trimMu.Unlock()
	l.pushMu.Lock()
	defer l.pushMu.Unlock()

	l.segMu.Lock()
	l.segments = nil
	l.base = s.StartIndex >> segmentBits
	l.segMu.Unlock()

	l.start.Store(s.StartIndex)
	for k := range s.Entries {
		index := s.StartIndex + uint64(k)
		v := s.Entries[k]
		l.segmentForWrite(index).slots[index&segmentMask].Store(&v)
	}
	l.size.Store(s.Size)

	return nil
}
