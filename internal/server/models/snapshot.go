// Package models defines server-side data models persisted by the snapshot
// repositories.
package models

import "time"

// Snapshot is one serialized copy of the history log and network view.
type Snapshot struct {
	// ID is a random UUID assigned when the snapshot is taken.
	ID string
	// CreatedAt orders snapshots; the newest one is restored at startup.
	CreatedAt time.Time
	// StartIndex and Size describe the history log at snapshot time.
	StartIndex uint64
	Size       uint64
	// Payload is the JSON document.
	Payload []byte
}
