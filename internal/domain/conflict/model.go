// Package conflict implements the stale-write detection and quarantine
// state machine — the conflict engine, spec component C6 and the heart of
// the system.
package conflict

import "time"

// Resolution is the action applied to a pending conflict.
type Resolution string

const (
	AcceptYours Resolution = "ACCEPT_YOURS"
	AcceptTheirs Resolution = "ACCEPT_THEIRS"
	Merge        Resolution = "MERGE"
)

// Status is the lifecycle state of a Conflict row.
type Status string

const (
	Pending  Status = "pending"
	Resolved Status = "resolved"
)

// Conflict is a quarantined write: the losing payload plus enough context to
// mediate a resolution.
type Conflict struct {
	ConflictID        string
	NodeID            string
	LosingAuthor      string
	LosingContent     string
	LosingSummary     string
	LosingBaseVersion int
	WinningVersion    int
	Status            Status
	Resolution        *Resolution
	CreatedAt         time.Time
	ResolvedAt        *time.Time
}
