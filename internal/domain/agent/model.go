// Package agent tracks the lightweight identity records created lazily the
// first time an agent identifier appears in any write, read, or whoami.
package agent

import "time"

// Agent is a writer identity, created on first contact.
type Agent struct {
	AgentID   string
	FirstSeen time.Time
	LastSeen  time.Time
}
