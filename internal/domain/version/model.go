// Package version implements the append-only per-node version history and
// its line-oriented diff (spec component C4).
package version

import "time"

// Version is an immutable record of a node's content at a point in time.
type Version struct {
	NodeID      string
	Version     int
	Content     string
	Author      string
	Summary     string
	Timestamp   time.Time
	BaseVersion *int
}

// DiffLine is one emitted line of a line-level diff.
type DiffLine struct {
	// Kind is one of "+", "-", or " " (context).
	Kind string
	Text string
}
