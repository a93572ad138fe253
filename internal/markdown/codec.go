// Package markdown implements the bidirectional codec between a tree and
// its canonical markdown document (spec component C7). It has no knowledge
// of storage or versioning — callers translate to and from Node trees.
package markdown

import (
	"errors"
	"regexp"
	"strings"
)

// ErrOrphanedHeading is returned when a heading's ancestor chain has no
// shallower heading to attach to (§4.7).
var ErrOrphanedHeading = errors.New("orphaned heading: no ancestor at a shallower depth")

// Node is the codec's own tree shape: a title, its body content, and its
// ordered children. It carries no identifiers — Parse assigns none, and
// Serialize's caller is responsible for mapping these onto real node ids.
type Node struct {
	Title    string
	Content  string
	Depth    int
	Children []*Node
}

var headingPattern = regexp.MustCompile(`^(#{1,6}) +(.+)$`)

// Parse line-scans markdown into a forest of top-level Nodes. A line
// matching `^(#{1,6}) +(.+)$` opens a node at depth equal to the `#` count;
// everything up to the next heading (or EOF) is its content, with leading
// and trailing blank lines stripped. A heading whose depth jumps by more
// than one level attaches to the nearest shallower ancestor still on the
// stack; if none exists, parsing fails with ErrOrphanedHeading.
func Parse(input string) ([]*Node, error) {
	lines := strings.Split(input, "\n")

	var roots []*Node
	var stack []*Node // ancestor chain, shallowest first
	var contentLines []string

	flushContent := func() {
		if len(stack) == 0 {
			contentLines = nil
			return
		}
		cur := stack[len(stack)-1]
		cur.Content = trimBlankEdges(contentLines)
		contentLines = nil
	}

	for _, line := range lines {
		if m := headingPattern.FindStringSubmatch(line); m != nil {
			flushContent()

			depth := len(m[1])
			title := strings.TrimSpace(m[2])
			node := &Node{Title: title, Depth: depth}

			for len(stack) > 0 && stack[len(stack)-1].Depth >= depth {
				stack = stack[:len(stack)-1]
			}

			if depth == 1 {
				roots = append(roots, node)
			} else {
				if len(stack) == 0 {
					return nil, ErrOrphanedHeading
				}
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, node)
			}

			stack = append(stack, node)
			continue
		}

		contentLines = append(contentLines, line)
	}
	flushContent()

	return roots, nil
}

// trimBlankEdges strips leading and trailing blank lines while preserving
// internal blank lines, then rejoins with "\n".
func trimBlankEdges(lines []string) string {
	start := 0
	for start < len(lines) && strings.TrimSpace(lines[start]) == "" {
		start++
	}
	end := len(lines)
	for end > start && strings.TrimSpace(lines[end-1]) == "" {
		end--
	}
	if start >= end {
		return ""
	}
	return strings.Join(lines[start:end], "\n")
}

// Serialize walks roots in pre-order and emits the canonical document: for
// each node, a heading line of depth `#`×depth, a blank line, the node's
// content, then a blank line. A node with empty content gets only the
// heading line and its blank line.
func Serialize(roots []*Node) string {
	var b strings.Builder
	for _, root := range roots {
		writeNode(&b, root, 1)
	}
	return b.String()
}

func writeNode(b *strings.Builder, n *Node, depth int) {
	b.WriteString(strings.Repeat("#", depth))
	b.WriteString(" ")
	b.WriteString(n.Title)
	b.WriteString("\n\n")
	if n.Content != "" {
		b.WriteString(n.Content)
		b.WriteString("\n\n")
	}
	for _, child := range n.Children {
		writeNode(b, child, depth+1)
	}
}
