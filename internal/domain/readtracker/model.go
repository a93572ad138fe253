// Package readtracker records which agent last observed which node version,
// the signal the conflict engine uses to admit or quarantine writes (spec
// component C5).
package readtracker

import "time"

// ReadReceipt is the last version an agent observed for a node.
type ReadReceipt struct {
	Agent            string
	NodeID           string
	ObservedVersion  int
	Timestamp        time.Time
}
