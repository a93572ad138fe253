package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"errors"

	"github.com/JJStrongstone/niwa/internal/command"
	"github.com/JJStrongstone/niwa/internal/domain/conflict"
	"github.com/JJStrongstone/niwa/internal/domain/tree"
)

// printCommandError writes a failed operation's error to w. A conflict gets
// its structured fields rendered (the whole reason §9 keeps it a typed
// error instead of a flattened string); everything else prints as one line.
func printCommandError(w io.Writer, err error, asJSON bool) {
	var detected *conflict.DetectedError
	if errors.As(err, &detected) {
		if asJSON {
			json.NewEncoder(w).Encode(detected)
			return
		}
		fmt.Fprintf(w, "conflict detected on %s (conflict %s)\n", detected.NodeID, detected.ConflictID)
		fmt.Fprintf(w, "  winning version: v%d\n", detected.WinningVersion)
		fmt.Fprintf(w, "  yours (quarantined):\n%s\n", indentBlock(detected.LosingContent))
		fmt.Fprintf(w, "  theirs (current):\n%s\n", indentBlock(detected.WinningContent))
		fmt.Fprintln(w, "resolve with: niwa resolve --agent <you> "+detected.NodeID+" --accept-yours|--accept-theirs|--merge <content>|--merge --file <path>")
		return
	}

	if asJSON {
		json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
		return
	}
	fmt.Fprintf(w, "Error: %v\n", err)
}

func indentBlock(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = "    " + l
	}
	return strings.Join(lines, "\n")
}

// render writes res to cmd's output stream, as JSON when --json was passed
// and as plain text otherwise.
func render(cmd *cobra.Command, res *command.Result) error {
	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		return renderJSON(cmd.OutOrStdout(), res)
	}
	return renderText(cmd.OutOrStdout(), res)
}

func renderJSON(w io.Writer, res *command.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

func renderText(w io.Writer, res *command.Result) error {
	switch res.Kind {
	case command.KindInit:
		fmt.Fprintln(w, "store ready")

	case command.KindAdd:
		fmt.Fprintf(w, "%s\t%s\n", res.Node.NodeID, res.Node.Title)

	case command.KindRead, command.KindPeek:
		v := res.Version
		fmt.Fprintf(w, "%s v%d by %s at %s\n", v.NodeID, v.Version, v.Author, v.Timestamp.Format(timeFormat))
		fmt.Fprintln(w, v.Content)

	case command.KindEdit, command.KindResolve:
		v := res.Version
		fmt.Fprintf(w, "%s now at v%d\n", v.NodeID, v.Version)

	case command.KindRename:
		fmt.Fprintf(w, "%s renamed to %q (v%d)\n", res.Node.NodeID, res.Node.Title, res.Node.CurrentVersion)

	case command.KindConflicts:
		if len(res.Conflicts) == 0 {
			fmt.Fprintln(w, "no pending conflicts")
			return nil
		}
		for _, c := range res.Conflicts {
			fmt.Fprintf(w, "%s\t%s\tlosing-author=%s\tbase=v%d\twinner=v%d\n",
				c.ConflictID, c.NodeID, c.LosingAuthor, c.LosingBaseVersion, c.WinningVersion)
		}

	case command.KindHistory:
		for _, v := range res.Versions {
			summary := v.Summary
			if summary == "" {
				summary = "-"
			}
			fmt.Fprintf(w, "v%d\t%s\t%s\t%s\n", v.Version, v.Author, v.Timestamp.Format(timeFormat), summary)
		}

	case command.KindDiff:
		for _, line := range res.Diff {
			fmt.Fprintf(w, "%s%s\n", line.Kind, line.Text)
		}

	case command.KindTree:
		fmt.Fprintln(w, "root\tDocument")
		renderTraversalUnder(w, res.Nodes, 1)

	case command.KindExport:
		fmt.Fprint(w, res.Markdown)

	case command.KindSearch:
		if len(res.SearchResults) == 0 {
			fmt.Fprintln(w, "no matches")
			return nil
		}
		for _, id := range res.SearchResults {
			fmt.Fprintln(w, id)
		}

	case command.KindLoad:
		fmt.Fprintf(w, "loaded %d node(s)\n", len(res.LoadedNodeIDs))
		for _, id := range res.LoadedNodeIDs {
			fmt.Fprintln(w, id)
		}

	case command.KindAgents:
		for _, a := range res.Agents {
			fmt.Fprintf(w, "%s\tfirst=%s\tlast=%s\n", a.AgentID, a.FirstSeen.Format(timeFormat), a.LastSeen.Format(timeFormat))
		}

	case command.KindWhoami:
		fmt.Fprintln(w, res.Agent.AgentID)

	case command.KindStatus:
		fmt.Fprintf(w, "%d node(s), %d pending conflict(s)\n", len(res.Nodes), len(res.Conflicts))
		renderTraversal(w, res.Nodes)
		for _, c := range res.Conflicts {
			fmt.Fprintf(w, "conflict %s on %s\n", c.ConflictID, c.NodeID)
		}

	case command.KindCheck:
		if len(res.CheckViolations) == 0 {
			fmt.Fprintln(w, "ok: no invariant violations")
			return nil
		}
		fmt.Fprintf(w, "%d violation(s):\n", len(res.CheckViolations))
		for _, v := range res.CheckViolations {
			fmt.Fprintln(w, "- "+v)
		}

	default:
		fmt.Fprintf(w, "%+v\n", res)
	}
	return nil
}

func renderTraversal(w io.Writer, entries []tree.TraversalEntry) {
	renderTraversalUnder(w, entries, 0)
}

// renderTraversalUnder prints entries indented extra levels deeper than
// their own Depth, used by `tree` to nest every real node under the
// synthetic, unpersisted "Document" root line it prints above.
func renderTraversalUnder(w io.Writer, entries []tree.TraversalEntry, extra int) {
	for _, e := range entries {
		fmt.Fprintf(w, "%s%s\t%s\tv%d\n", indent(e.Depth+extra), e.NodeID, e.Title, e.CurrentVersion)
	}
}

const timeFormat = "2006-01-02T15:04:05Z07:00"

func parseVersionFlag(raw string) (*int, error) {
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid version %q: %w", raw, err)
	}
	return &n, nil
}

func indent(depth int) string {
	return strings.Repeat("  ", depth-1)
}
