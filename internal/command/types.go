// Package command implements the CommandSurface (spec component C9): a
// thin dispatcher mapping a closed set of Operation variants onto the
// component methods in §4.1–4.8, returning structured Results rather than
// flattened strings (§9 Design notes).
package command

import (
	"github.com/JJStrongstone/niwa/internal/domain/agent"
	"github.com/JJStrongstone/niwa/internal/domain/conflict"
	"github.com/JJStrongstone/niwa/internal/domain/tree"
	"github.com/JJStrongstone/niwa/internal/domain/version"
)

// Kind identifies one of the closed set of operations the surface exposes.
// There is no open-ended plugin surface in the core: adding an operation
// means adding a Kind constant and a case in Dispatch, not registering a
// handler string at runtime.
type Kind string

const (
	KindInit      Kind = "init"
	KindAdd       Kind = "add"
	KindRead      Kind = "read"
	KindPeek      Kind = "peek"
	KindEdit      Kind = "edit"
	KindRename    Kind = "rename"
	KindResolve   Kind = "resolve"
	KindConflicts Kind = "conflicts"
	KindHistory   Kind = "history"
	KindDiff      Kind = "diff"
	KindTree      Kind = "tree"
	KindExport    Kind = "export"
	KindSearch    Kind = "search"
	KindLoad      Kind = "load"
	KindStatus    Kind = "status"
	KindAgents    Kind = "agents"
	KindWhoami    Kind = "whoami"
	KindCheck     Kind = "check"
)

// Operation is the tagged-union request shape: Kind selects which of the
// fields below are meaningful. Unused fields for a given Kind are ignored.
type Operation struct {
	Kind Kind

	Agent    string
	NodeID   string
	Title    string
	ParentID *string

	Content    string
	HasContent bool
	Summary    string

	Resolution    conflict.Resolution
	MergedContent string

	VersionA *int
	VersionB *int

	Query string

	// Markdown is the raw document for `load`.
	Markdown string
}

// Result is the structured response every operation returns. Kind mirrors
// the Operation's Kind so callers needn't retain the request to interpret
// the response.
type Result struct {
	Kind Kind

	Node  *tree.Node
	Nodes []tree.TraversalEntry

	Version  *version.Version
	Versions []version.Version
	Diff     []version.DiffLine

	Conflict  *conflict.Conflict
	Conflicts []conflict.Conflict

	Markdown      string
	SearchResults []string

	Agent  *agent.Agent
	Agents []agent.Agent

	CheckViolations []string

	// LoadedNodeIDs lists the node ids created by `load`, in creation order.
	LoadedNodeIDs []string
}
