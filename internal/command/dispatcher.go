package command

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/JJStrongstone/niwa/internal/domain/agent"
	"github.com/JJStrongstone/niwa/internal/domain/conflict"
	"github.com/JJStrongstone/niwa/internal/domain/readtracker"
	"github.com/JJStrongstone/niwa/internal/domain/tree"
	"github.com/JJStrongstone/niwa/internal/domain/version"
	"github.com/JJStrongstone/niwa/internal/markdown"
	"github.com/JJStrongstone/niwa/internal/search"
)

// Dispatcher is the CommandSurface: it owns every component the operations
// need and exposes exactly one entry point, Dispatch.
type Dispatcher struct {
	tree        *tree.Service
	versions    *version.Service
	readTracker *readtracker.Service
	conflicts   *conflict.Service
	agents      *agent.Service
	search      *search.Service
}

// New builds a Dispatcher over the given components.
func New(
	treeSvc *tree.Service,
	versionSvc *version.Service,
	readTrackerSvc *readtracker.Service,
	conflictSvc *conflict.Service,
	agentSvc *agent.Service,
	searchSvc *search.Service,
) *Dispatcher {
	return &Dispatcher{
		tree:        treeSvc,
		versions:    versionSvc,
		readTracker: readTrackerSvc,
		conflicts:   conflictSvc,
		agents:      agentSvc,
		search:      searchSvc,
	}
}

// Dispatch routes op to the component method(s) that implement it.
func (d *Dispatcher) Dispatch(ctx context.Context, op Operation) (*Result, error) {
	switch op.Kind {
	case KindInit:
		// The store directory and schema are already in place by the time a
		// Dispatcher exists (sqlite.New runs migrations on open); init is
		// idempotent by construction.
		return &Result{Kind: KindInit}, nil

	case KindAdd:
		return d.add(ctx, op)
	case KindRead:
		return d.read(ctx, op)
	case KindPeek:
		return d.peek(ctx, op)
	case KindEdit:
		return d.edit(ctx, op)
	case KindRename:
		return d.rename(ctx, op)
	case KindResolve:
		return d.resolve(ctx, op)
	case KindConflicts:
		return d.pendingConflicts(ctx, op)
	case KindHistory:
		return d.history(ctx, op)
	case KindDiff:
		return d.diff(ctx, op)
	case KindTree:
		return d.traverse(ctx)
	case KindExport:
		return d.export(ctx)
	case KindSearch:
		return d.doSearch(ctx, op)
	case KindLoad:
		return d.load(ctx, op)
	case KindAgents:
		return d.listAgents(ctx)
	case KindWhoami:
		return d.whoami(ctx, op)
	case KindStatus:
		return d.status(ctx)
	case KindCheck:
		return d.check(ctx)
	default:
		return nil, fmt.Errorf("%w: unknown operation %q", ErrInvalidInput, op.Kind)
	}
}

func (d *Dispatcher) touchAgent(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("%w: --agent is required", ErrInvalidInput)
	}
	_, err := d.agents.Touch(ctx, id)
	return err
}

func (d *Dispatcher) add(ctx context.Context, op Operation) (*Result, error) {
	if err := d.touchAgent(ctx, op.Agent); err != nil {
		return nil, err
	}
	content := ""
	if op.HasContent {
		content = op.Content
	}
	node, err := d.tree.Create(ctx, op.Title, op.ParentID, op.Agent, content)
	if err != nil {
		return nil, err
	}
	return &Result{Kind: KindAdd, Node: node}, nil
}

func (d *Dispatcher) read(ctx context.Context, op Operation) (*Result, error) {
	if err := d.touchAgent(ctx, op.Agent); err != nil {
		return nil, err
	}
	v, err := d.versions.Latest(ctx, op.NodeID)
	if err != nil {
		return nil, err
	}
	if err := d.readTracker.Record(ctx, op.Agent, op.NodeID, v.Version); err != nil {
		return nil, err
	}
	return &Result{Kind: KindRead, Version: v}, nil
}

// peek never calls readTracker.Record — peek purity (P5) is structural.
func (d *Dispatcher) peek(ctx context.Context, op Operation) (*Result, error) {
	v, err := d.versions.Latest(ctx, op.NodeID)
	if err != nil {
		return nil, err
	}
	return &Result{Kind: KindPeek, Version: v}, nil
}

func (d *Dispatcher) edit(ctx context.Context, op Operation) (*Result, error) {
	if err := d.touchAgent(ctx, op.Agent); err != nil {
		return nil, err
	}
	if !op.HasContent {
		return nil, fmt.Errorf("%w: edit requires content", ErrInvalidInput)
	}
	v, err := d.conflicts.SubmitEdit(ctx, op.Agent, op.NodeID, op.Content, op.Summary)
	if err != nil {
		return nil, err
	}
	return &Result{Kind: KindEdit, Version: v}, nil
}

func (d *Dispatcher) rename(ctx context.Context, op Operation) (*Result, error) {
	if err := d.touchAgent(ctx, op.Agent); err != nil {
		return nil, err
	}
	node, err := d.tree.Rename(ctx, op.NodeID, op.Title, op.Agent)
	if err != nil {
		return nil, err
	}
	return &Result{Kind: KindRename, Node: node}, nil
}

func (d *Dispatcher) resolve(ctx context.Context, op Operation) (*Result, error) {
	if err := d.touchAgent(ctx, op.Agent); err != nil {
		return nil, err
	}
	switch op.Resolution {
	case conflict.AcceptYours, conflict.AcceptTheirs, conflict.Merge:
	default:
		return nil, fmt.Errorf("%w: unknown resolution %q", ErrInvalidInput, op.Resolution)
	}
	v, err := d.conflicts.Resolve(ctx, op.Agent, op.NodeID, op.Resolution, op.MergedContent)
	if err != nil {
		return nil, err
	}
	return &Result{Kind: KindResolve, Version: v}, nil
}

func (d *Dispatcher) pendingConflicts(ctx context.Context, op Operation) (*Result, error) {
	list, err := d.conflicts.Pending(ctx, op.NodeID)
	if err != nil {
		return nil, err
	}
	return &Result{Kind: KindConflicts, Conflicts: list}, nil
}

func (d *Dispatcher) history(ctx context.Context, op Operation) (*Result, error) {
	list, err := d.versions.List(ctx, op.NodeID)
	if err != nil {
		return nil, err
	}
	return &Result{Kind: KindHistory, Versions: list}, nil
}

func (d *Dispatcher) diff(ctx context.Context, op Operation) (*Result, error) {
	latest, err := d.versions.Latest(ctx, op.NodeID)
	if err != nil {
		return nil, err
	}

	vA, vB := latest.Version-1, latest.Version
	if op.VersionA != nil {
		vA = *op.VersionA
	}
	if op.VersionB != nil {
		vB = *op.VersionB
	}
	if vA < 1 {
		vA = 1
	}

	lines, err := d.versions.Diff(ctx, op.NodeID, vA, vB)
	if err != nil {
		return nil, err
	}
	return &Result{Kind: KindDiff, Diff: lines}, nil
}

func (d *Dispatcher) traverse(ctx context.Context) (*Result, error) {
	entries, err := d.tree.Traverse(ctx)
	if err != nil {
		return nil, err
	}
	return &Result{Kind: KindTree, Nodes: entries}, nil
}

func (d *Dispatcher) export(ctx context.Context) (*Result, error) {
	doc, err := d.buildExportTree(ctx)
	if err != nil {
		return nil, err
	}
	return &Result{Kind: KindExport, Markdown: markdown.Serialize(doc)}, nil
}

func (d *Dispatcher) buildExportTree(ctx context.Context) ([]*markdown.Node, error) {
	snap, err := d.tree.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	var build func(id string) (*markdown.Node, error)
	build = func(id string) (*markdown.Node, error) {
		n := snap.Child(id)
		v, err := d.versions.Latest(ctx, id)
		if err != nil {
			return nil, err
		}
		mdNode := &markdown.Node{Title: n.Title, Content: v.Content, Depth: n.Depth}
		for _, childID := range n.ChildOrder {
			child, err := build(childID)
			if err != nil {
				return nil, err
			}
			mdNode.Children = append(mdNode.Children, child)
		}
		return mdNode, nil
	}

	var roots []*markdown.Node
	for _, id := range snap.TopLevel {
		root, err := build(id)
		if err != nil {
			return nil, err
		}
		roots = append(roots, root)
	}
	return roots, nil
}

func (d *Dispatcher) doSearch(ctx context.Context, op Operation) (*Result, error) {
	ids, err := d.search.Search(ctx, op.Query)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return &Result{Kind: KindSearch}, nil
	}

	entries, err := d.tree.Traverse(ctx)
	if err != nil {
		return nil, err
	}
	order := make([]string, len(entries))
	for i, e := range entries {
		order[i] = e.NodeID
	}

	return &Result{Kind: KindSearch, SearchResults: search.OrderByPreOrder(ids, order)}, nil
}

func (d *Dispatcher) load(ctx context.Context, op Operation) (*Result, error) {
	if err := d.touchAgent(ctx, op.Agent); err != nil {
		return nil, err
	}
	roots, err := markdown.Parse(op.Markdown)
	if err != nil {
		return nil, err
	}

	var ids []string
	var create func(n *markdown.Node, parentID *string) error
	create = func(n *markdown.Node, parentID *string) error {
		node, err := d.tree.Create(ctx, n.Title, parentID, op.Agent, n.Content)
		if err != nil {
			return err
		}
		ids = append(ids, node.NodeID)
		for _, child := range n.Children {
			if err := create(child, &node.NodeID); err != nil {
				return err
			}
		}
		return nil
	}

	for _, root := range roots {
		if err := create(root, nil); err != nil {
			return nil, err
		}
	}

	return &Result{Kind: KindLoad, LoadedNodeIDs: ids}, nil
}

func (d *Dispatcher) listAgents(ctx context.Context) (*Result, error) {
	list, err := d.agents.List(ctx)
	if err != nil {
		return nil, err
	}
	return &Result{Kind: KindAgents, Agents: list}, nil
}

// whoami suggests an identifier for an agent that hasn't configured
// --agent or NIWA_AGENT yet, rather than rejecting the call the way every
// other write-shaped operation rejects a missing agent.
func (d *Dispatcher) whoami(ctx context.Context, op Operation) (*Result, error) {
	id := op.Agent
	if id == "" {
		id = suggestAgentID()
	}
	a, err := d.agents.Touch(ctx, id)
	if err != nil {
		return nil, err
	}
	return &Result{Kind: KindWhoami, Agent: a}, nil
}

// suggestAgentID generates a short, human-typeable identifier for an agent
// that hasn't picked one of its own.
func suggestAgentID() string {
	return "agent-" + uuid.NewString()[:8]
}

func (d *Dispatcher) status(ctx context.Context) (*Result, error) {
	entries, err := d.tree.Traverse(ctx)
	if err != nil {
		return nil, err
	}
	conflicts, err := d.conflicts.Pending(ctx, "")
	if err != nil {
		return nil, err
	}
	return &Result{Kind: KindStatus, Nodes: entries, Conflicts: conflicts}, nil
}

// check verifies invariants 1-5 by reconstructing the tree and walking each
// node's ancestor chain and version history. It reports every violation
// found, or none.
func (d *Dispatcher) check(ctx context.Context) (*Result, error) {
	snap, err := d.tree.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	var violations []string

	for id, n := range snap.Nodes {
		// Invariant 2: depth consistency.
		if n.ParentID == nil {
			if n.Depth != 1 {
				violations = append(violations, fmt.Sprintf("%s: top-level node has depth %d, want 1", id, n.Depth))
			}
			continue
		}
		parent := snap.Child(*n.ParentID)
		if parent == nil {
			violations = append(violations, fmt.Sprintf("%s: parent %s does not exist", id, *n.ParentID))
			continue
		}
		if n.Depth != parent.Depth+1 {
			violations = append(violations, fmt.Sprintf("%s: depth %d inconsistent with parent depth %d", id, n.Depth, parent.Depth))
		}
	}

	// Invariant 1: acyclicity (terminates at a top-level node within 6 hops).
	for id := range snap.Nodes {
		seen := map[string]bool{}
		cur := id
		hops := 0
		for {
			n := snap.Child(cur)
			if n == nil || n.ParentID == nil {
				break
			}
			if seen[cur] {
				violations = append(violations, fmt.Sprintf("%s: cycle detected in ancestor chain", id))
				break
			}
			seen[cur] = true
			cur = *n.ParentID
			hops++
			if hops > tree.MaxDepth {
				violations = append(violations, fmt.Sprintf("%s: ancestor chain exceeds %d hops", id, tree.MaxDepth))
				break
			}
		}
	}

	// Invariant 3: sibling title uniqueness.
	seenTitles := map[string]map[string]bool{}
	for _, n := range snap.Nodes {
		key := ""
		if n.ParentID != nil {
			key = *n.ParentID
		}
		if seenTitles[key] == nil {
			seenTitles[key] = map[string]bool{}
		}
		if seenTitles[key][n.Title] {
			violations = append(violations, fmt.Sprintf("duplicate sibling title %q under parent %q", n.Title, key))
		}
		seenTitles[key][n.Title] = true
	}

	// Invariant 4: version density. Invariant 5: read causality — every
	// committed version v>1 has base_version == v-1.
	for id, n := range snap.Nodes {
		versions, err := d.versions.List(ctx, id)
		if err != nil {
			return nil, err
		}
		if len(versions) != n.CurrentVersion {
			violations = append(violations, fmt.Sprintf("%s: has %d versions but current_version=%d", id, len(versions), n.CurrentVersion))
			continue
		}
		for i, v := range versions {
			if v.Version != i+1 {
				violations = append(violations, fmt.Sprintf("%s: version sequence gap at index %d (version=%d)", id, i, v.Version))
				break
			}
			if v.Version > 1 && (v.BaseVersion == nil || *v.BaseVersion != v.Version-1) {
				violations = append(violations, fmt.Sprintf("%s: version %d has base_version != %d", id, v.Version, v.Version-1))
			}
		}
	}

	return &Result{Kind: KindCheck, CheckViolations: violations}, nil
}
