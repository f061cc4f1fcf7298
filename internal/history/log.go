// Package history holds the network history log: a single append-only
// sequence of retained state changes and, per user, an index of the entries
// that user saw.
//
// Per-user indexes store entry ids, not entries. After expiry an index may
// still hold ids whose entries are gone; iteration skips those holes.
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"sort"
	"sync"

	"github.com/revrsefr/sable/internal/appendlog"
)

var (
	// ErrUnknownEntry is returned when indexing an id that was never assigned.
	ErrUnknownEntry = errors.New("unknown history entry")

	// ErrMalformedSnapshot is returned when restoring an inconsistent snapshot.
	ErrMalformedSnapshot = errors.New("malformed history snapshot")
)

// Log is the network history log.
//
// Add and AddEntryForUser are called by the event source; the Entries*
// sequences serve queries. All methods are safe for concurrent use except
// UnmarshalJSON.
type Log struct {
	entries *appendlog.Log[Entry]

	mu       sync.RWMutex
	userLogs map[UserID]*appendlog.Log[EntryID]
}

// Stats is a point-in-time summary of the log.
type Stats struct {
	StartIndex uint64
	Size       uint64
	Retained   int
	Users      int
}

// NewLog returns an empty history log.
func NewLog() *Log {
	return &Log{
		entries:  appendlog.New[Entry](),
		userLogs: make(map[UserID]*appendlog.Log[EntryID]),
	}
}

// Add records details if its kind is retained in history and returns the
// new entry's id. Changes of other kinds are dropped without side effects
// and Add returns false.
func (l *Log) Add(details StateChange, sourceEvent EventID, timestamp int64) (EntryID, bool) {
	if details == nil || !Retained(details.Kind()) {
		return 0, false
	}

	index := l.entries.PushWithFinalize(Entry{
		Timestamp:   timestamp,
		SourceEvent: sourceEvent,
		Details:     details,
	}, func(e *Entry, index uint64) {
		e.ID = EntryID(index)
	})

	return EntryID(index), true
}

// Get returns the entry with the given id unless it was never assigned or
// has expired.
func (l *Log) Get(id EntryID) (Entry, bool) {
	return l.entries.Get(uint64(id))
}

// AddEntryForUser appends id to user's index, creating the index on first use.
//
// Appending to an existing index only takes the map read lock, so writers
// for different known users do not serialize on the map.
func (l *Log) AddEntryForUser(user UserID, id EntryID) error {
	if uint64(id) >= l.entries.Size() {
		return fmt.Errorf("%w: %d", ErrUnknownEntry, id)
	}

	l.mu.RLock()
	if ul, ok := l.userLogs[user]; ok {
		ul.Push(id)
		l.mu.RUnlock()
		return nil
	}
	l.mu.RUnlock()

	l.mu.Lock()
	defer l.mu.Unlock()

	ul, ok := l.userLogs[user]
	if !ok {
		ul = appendlog.New[EntryID]()
		l.userLogs[user] = ul
	}
	ul.Push(id)

	return nil
}

// EntriesForUser yields the entries in user's index, oldest first, skipping
// ids whose entries have expired. The sequence ends when the index is
// exhausted; entries indexed while iterating are picked up.
//
// No lock is held while the range loop runs, so the loop body may call
// AddEntryForUser for any user.
func (l *Log) EntriesForUser(user UserID) iter.Seq[Entry] {
	return func(yield func(Entry) bool) {
		ul, ok := l.userLog(user)
		if !ok {
			return
		}
		for i := ul.StartIndex(); i < ul.Size(); i++ {
			e, ok := l.resolve(ul, i)
			if !ok {
				continue
			}
			if !yield(e) {
				return
			}
		}
	}
}

// EntriesForUserReverse is EntriesForUser newest first. It starts from the
// index size observed when the range loop begins and ends at the index floor.
func (l *Log) EntriesForUserReverse(user UserID) iter.Seq[Entry] {
	return func(yield func(Entry) bool) {
		ul, ok := l.userLog(user)
		if !ok {
			return
		}
		for i := ul.Size(); i > ul.StartIndex(); {
			i--
			e, ok := l.resolve(ul, i)
			if !ok {
				continue
			}
			if !yield(e) {
				return
			}
		}
	}
}

// userLog returns user's index. Indexes are never removed, so the pointer
// stays valid after the map lock is released.
func (l *Log) userLog(user UserID) (*appendlog.Log[EntryID], bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	ul, ok := l.userLogs[user]
	return ul, ok
}

func (l *Log) resolve(ul *appendlog.Log[EntryID], i uint64) (Entry, bool) {
	id, ok := ul.Get(i)
	if !ok {
		return Entry{}, false
	}
	return l.entries.Get(uint64(id))
}

// ExpireEntries removes entries older than olderThan (unix ms) from the
// front of the log, then drops ids below the new floor from every user index.
//
// Trimming stops at the first entry that is not old enough. If timestamps
// are not ordered by id, older entries behind it are retained until a later
// call passes them. It returns the number of entries removed.
func (l *Log) ExpireEntries(olderThan int64) int {
	removed := l.entries.Trim(func(e Entry) bool {
		return e.Timestamp < olderThan
	})

	floor := EntryID(l.entries.StartIndex())

	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, ul := range l.userLogs {
		ul.Trim(func(id EntryID) bool { return id < floor })
	}

	return removed
}

// Stats summarizes the log.
func (l *Log) Stats() Stats {
	l.mu.RLock()
	users := len(l.userLogs)
	l.mu.RUnlock()

	return Stats{
		StartIndex: l.entries.StartIndex(),
		Size:       l.entries.Size(),
		Retained:   l.entries.Len(),
		Users:      users,
	}
}

type userLogPair struct {
	User UserID                  `json:"user"`
	Log  *appendlog.Log[EntryID] `json:"log"`
}

// UserLogs is encoded before Entries: every id in a user index was assigned
// before that index was encoded, so the entries encoded afterwards cover it.
type logJSON struct {
	UserLogs []userLogPair         `json:"user_logs"`
	Entries  *appendlog.Log[Entry] `json:"entries"`
}

// MarshalJSON encodes the log; user indexes become a sequence of
// (user, index) pairs ordered by user.
func (l *Log) MarshalJSON() ([]byte, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	pairs := make([]userLogPair, 0, len(l.userLogs))
	for user, ul := range l.userLogs {
		pairs = append(pairs, userLogPair{User: user, Log: ul})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].User < pairs[j].User })

	return json.Marshal(logJSON{UserLogs: pairs, Entries: l.entries})
}

// UnmarshalJSON replaces the log with a decoded snapshot. It must not run
// concurrently with other methods.
func (l *Log) UnmarshalJSON(data []byte) error {
	raw := logJSON{Entries: appendlog.New[Entry]()}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedSnapshot, err)
	}

	for index, e := range raw.Entries.All() {
		if e.ID != EntryID(index) {
			return fmt.Errorf("%w: entry at %d has id %d", ErrMalformedSnapshot, index, e.ID)
		}
	}

	size := raw.Entries.Size()
	userLogs := make(map[UserID]*appendlog.Log[EntryID], len(raw.UserLogs))
	for _, p := range raw.UserLogs {
		if p.Log == nil {
			return fmt.Errorf("%w: user %s has no log", ErrMalformedSnapshot, p.User)
		}
		if _, dup := userLogs[p.User]; dup {
			return fmt.Errorf("%w: user %s listed twice", ErrMalformedSnapshot, p.User)
		}
		for _, id := range p.Log.All() {
			if uint64(id) >= size {
				return fmt.Errorf("%w: user %s references entry %d beyond size %d", ErrMalformedSnapshot, p.User, id, size)
			}
		}
		userLogs[p.User] = p.Log
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = raw.Entries
	l.userLogs = userLogs

	return nil
}
