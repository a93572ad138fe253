package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JJStrongstone/niwa/internal/command"
	"github.com/JJStrongstone/niwa/internal/domain/conflict"
)

// withDispatcher opens the store, runs fn, and always closes the store
// afterward, joining any close error with fn's.
func (a *app) withDispatcher(cmd *cobra.Command, fn func(d *command.Dispatcher) error) (err error) {
	d, closeStore, err := a.openDispatcher(cmd)
	if err != nil {
		return wrapExit(err)
	}
	defer func() {
		if cerr := closeStore(); cerr != nil {
			err = wrapExit(errors.Join(err, cerr))
		}
	}()

	if err := fn(d); err != nil {
		return wrapExit(err)
	}
	return nil
}

func newInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the store directory and schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withDispatcher(cmd, func(d *command.Dispatcher) error {
				res, err := d.Dispatch(cmd.Context(), command.Operation{Kind: command.KindInit})
				if err != nil {
					return err
				}
				return render(cmd, res)
			})
		},
	}
}

func newAddCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <title> [content]",
		Short: "Create a new node",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			parent, _ := cmd.Flags().GetString("parent")
			var parentID *string
			if parent != "" {
				parentID = &parent
			}

			content, hasContent, err := resolveContent(cmd, args, 1)
			if err != nil {
				return wrapExit(err)
			}

			return a.withDispatcher(cmd, func(d *command.Dispatcher) error {
				res, err := d.Dispatch(cmd.Context(), command.Operation{
					Kind:       command.KindAdd,
					Agent:      a.resolveAgent(cmd),
					Title:      args[0],
					ParentID:   parentID,
					Content:    content,
					HasContent: hasContent,
				})
				if err != nil {
					return err
				}
				return render(cmd, res)
			})
		},
	}
	cmd.Flags().String("parent", "", "parent node id (top-level if omitted)")
	cmd.Flags().String("file", "", "read initial content from this file")
	cmd.Flags().Bool("stdin", false, "read initial content from stdin")
	return cmd
}

func newReadCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "read <node-id>",
		Short: "Read a node's latest version and record the read receipt",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withDispatcher(cmd, func(d *command.Dispatcher) error {
				res, err := d.Dispatch(cmd.Context(), command.Operation{
					Kind: command.KindRead, Agent: a.resolveAgent(cmd), NodeID: args[0],
				})
				if err != nil {
					return err
				}
				return render(cmd, res)
			})
		},
	}
}

func newPeekCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "peek <node-id>",
		Short: "Read a node's latest version without recording a read receipt",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withDispatcher(cmd, func(d *command.Dispatcher) error {
				res, err := d.Dispatch(cmd.Context(), command.Operation{Kind: command.KindPeek, NodeID: args[0]})
				if err != nil {
					return err
				}
				return render(cmd, res)
			})
		},
	}
}

func newEditCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit <node-id> [content]",
		Short: "Submit a new version, subject to optimistic concurrency control",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, hasContent, err := resolveContent(cmd, args, 1)
			if err != nil {
				return wrapExit(err)
			}
			if !hasContent {
				return wrapExit(fmt.Errorf("%w: edit requires content via argument, --file, or --stdin", command.ErrInvalidInput))
			}
			summary, _ := cmd.Flags().GetString("summary")

			return a.withDispatcher(cmd, func(d *command.Dispatcher) error {
				res, err := d.Dispatch(cmd.Context(), command.Operation{
					Kind: command.KindEdit, Agent: a.resolveAgent(cmd), NodeID: args[0],
					Content: content, HasContent: true, Summary: summary,
				})
				if err != nil {
					return err
				}
				return render(cmd, res)
			})
		},
	}
	cmd.Flags().String("file", "", "read new content from this file")
	cmd.Flags().Bool("stdin", false, "read new content from stdin")
	cmd.Flags().String("summary", "", "one-line summary of the change")
	return cmd
}

func newRenameCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "rename <node-id> <title>",
		Aliases: []string{"title"},
		Short:   "Rename a node",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withDispatcher(cmd, func(d *command.Dispatcher) error {
				res, err := d.Dispatch(cmd.Context(), command.Operation{
					Kind: command.KindRename, Agent: a.resolveAgent(cmd), NodeID: args[0], Title: args[1],
				})
				if err != nil {
					return err
				}
				return render(cmd, res)
			})
		},
	}
}

func newResolveCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve <node-id> [merged-content]",
		Short: "Resolve the most recent pending conflict for this agent and node",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			acceptYours, _ := cmd.Flags().GetBool("accept-yours")
			acceptTheirs, _ := cmd.Flags().GetBool("accept-theirs")
			merge, _ := cmd.Flags().GetBool("merge")

			var resolution conflict.Resolution
			switch {
			case acceptYours:
				resolution = conflict.AcceptYours
			case acceptTheirs:
				resolution = conflict.AcceptTheirs
			case merge:
				resolution = conflict.Merge
			default:
				return wrapExit(fmt.Errorf("%w: one of --accept-yours, --accept-theirs, --merge is required", command.ErrInvalidInput))
			}

			var merged string
			if resolution == conflict.Merge {
				content, ok, err := resolveContent(cmd, args, 1)
				if err != nil {
					return wrapExit(err)
				}
				if !ok {
					return wrapExit(fmt.Errorf("%w: --merge requires content via argument, --file, or --stdin", command.ErrInvalidInput))
				}
				merged = content
			}

			return a.withDispatcher(cmd, func(d *command.Dispatcher) error {
				res, err := d.Dispatch(cmd.Context(), command.Operation{
					Kind: command.KindResolve, Agent: a.resolveAgent(cmd), NodeID: args[0],
					Resolution: resolution, MergedContent: merged,
				})
				if err != nil {
					return err
				}
				return render(cmd, res)
			})
		},
	}
	cmd.Flags().Bool("accept-yours", false, "keep the quarantined write, discarding the current version")
	cmd.Flags().Bool("accept-theirs", false, "discard the quarantined write, keeping the current version")
	cmd.Flags().Bool("merge", false, "replace with hand-merged content")
	cmd.Flags().String("file", "", "read merged content from this file")
	cmd.Flags().Bool("stdin", false, "read merged content from stdin")
	return cmd
}

func newConflictsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "conflicts [node-id]",
		Short: "List pending conflicts, optionally scoped to one node",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			nodeID := ""
			if len(args) == 1 {
				nodeID = args[0]
			}
			return a.withDispatcher(cmd, func(d *command.Dispatcher) error {
				res, err := d.Dispatch(cmd.Context(), command.Operation{Kind: command.KindConflicts, NodeID: nodeID})
				if err != nil {
					return err
				}
				return render(cmd, res)
			})
		},
	}
	return cmd
}

func newHistoryCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "history <node-id>",
		Short: "List every version of a node, oldest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withDispatcher(cmd, func(d *command.Dispatcher) error {
				res, err := d.Dispatch(cmd.Context(), command.Operation{Kind: command.KindHistory, NodeID: args[0]})
				if err != nil {
					return err
				}
				return render(cmd, res)
			})
		},
	}
}

func newDiffCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "diff <node-id>",
		Short: "Line diff between two versions of a node (defaults to the latest two)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			aFlag, _ := cmd.Flags().GetString("a")
			bFlag, _ := cmd.Flags().GetString("b")
			vA, err := parseVersionFlag(aFlag)
			if err != nil {
				return wrapExit(err)
			}
			vB, err := parseVersionFlag(bFlag)
			if err != nil {
				return wrapExit(err)
			}

			return a.withDispatcher(cmd, func(d *command.Dispatcher) error {
				res, err := d.Dispatch(cmd.Context(), command.Operation{
					Kind: command.KindDiff, NodeID: args[0], VersionA: vA, VersionB: vB,
				})
				if err != nil {
					return err
				}
				return render(cmd, res)
			})
		},
	}
	cmd.Flags().String("a", "", "earlier version (default: latest - 1)")
	cmd.Flags().String("b", "", "later version (default: latest)")
	return cmd
}

func newTreeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "tree",
		Short: "Print the whole document tree in pre-order",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withDispatcher(cmd, func(d *command.Dispatcher) error {
				res, err := d.Dispatch(cmd.Context(), command.Operation{Kind: command.KindTree})
				if err != nil {
					return err
				}
				return render(cmd, res)
			})
		},
	}
}

func newExportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Render the whole tree as a single Markdown document",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withDispatcher(cmd, func(d *command.Dispatcher) error {
				res, err := d.Dispatch(cmd.Context(), command.Operation{Kind: command.KindExport})
				if err != nil {
					return err
				}
				return render(cmd, res)
			})
		},
	}
}

func newSearchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Search node titles and content, results in pre-order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withDispatcher(cmd, func(d *command.Dispatcher) error {
				res, err := d.Dispatch(cmd.Context(), command.Operation{Kind: command.KindSearch, Query: args[0]})
				if err != nil {
					return err
				}
				return render(cmd, res)
			})
		},
	}
}

func newLoadCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "load [markdown]",
		Short: "Create nodes from a Markdown document, headings becoming the tree",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, ok, err := resolveContent(cmd, args, 0)
			if err != nil {
				return wrapExit(err)
			}
			if !ok {
				return wrapExit(fmt.Errorf("%w: load requires content via argument, --file, or --stdin", command.ErrInvalidInput))
			}

			return a.withDispatcher(cmd, func(d *command.Dispatcher) error {
				res, err := d.Dispatch(cmd.Context(), command.Operation{
					Kind: command.KindLoad, Agent: a.resolveAgent(cmd), Markdown: content,
				})
				if err != nil {
					return err
				}
				return render(cmd, res)
			})
		},
	}
	cmd.Flags().String("file", "", "read the document from this file")
	cmd.Flags().Bool("stdin", false, "read the document from stdin")
	return cmd
}

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Summarize the tree and any pending conflicts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withDispatcher(cmd, func(d *command.Dispatcher) error {
				res, err := d.Dispatch(cmd.Context(), command.Operation{Kind: command.KindStatus})
				if err != nil {
					return err
				}
				return render(cmd, res)
			})
		},
	}
}

func newAgentsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "agents",
		Short: "List every agent identifier seen by this store",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withDispatcher(cmd, func(d *command.Dispatcher) error {
				res, err := d.Dispatch(cmd.Context(), command.Operation{Kind: command.KindAgents})
				if err != nil {
					return err
				}
				return render(cmd, res)
			})
		},
	}
}

func newWhoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Register the current agent identity and confirm it resolves",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withDispatcher(cmd, func(d *command.Dispatcher) error {
				res, err := d.Dispatch(cmd.Context(), command.Operation{Kind: command.KindWhoami, Agent: a.resolveAgent(cmd)})
				if err != nil {
					return err
				}
				return render(cmd, res)
			})
		},
	}
}

func newCheckCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify the store's structural invariants",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withDispatcher(cmd, func(d *command.Dispatcher) error {
				res, err := d.Dispatch(cmd.Context(), command.Operation{Kind: command.KindCheck})
				if err != nil {
					return err
				}
				return render(cmd, res)
			})
		},
	}
}
