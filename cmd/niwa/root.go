package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JJStrongstone/niwa/internal/command"
	"github.com/JJStrongstone/niwa/internal/domain/agent"
	"github.com/JJStrongstone/niwa/internal/domain/conflict"
	"github.com/JJStrongstone/niwa/internal/domain/readtracker"
	"github.com/JJStrongstone/niwa/internal/domain/tree"
	"github.com/JJStrongstone/niwa/internal/domain/version"
	"github.com/JJStrongstone/niwa/internal/search"
	"github.com/JJStrongstone/niwa/internal/sqlite"
)

// exitError carries the process exit code a failed operation should produce,
// computed once via command.ExitCode instead of re-derived at the print site.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func wrapExit(err error) error {
	if err == nil {
		return nil
	}
	return &exitError{code: command.ExitCode(err), err: err}
}

func exitCodeFor(err error) int {
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return 1
}

// storeDir resolves the directory flag, falling back to the loaded config.
func (a *app) storeDir(cmd *cobra.Command) string {
	if dir, _ := cmd.Flags().GetString("store"); dir != "" {
		return dir
	}
	return a.cfg.Store.Dir
}

// openDispatcher opens the SQLite store at the resolved directory and wires
// every repository and domain service into a single command.Dispatcher. The
// returned close func must run after the command completes.
func (a *app) openDispatcher(cmd *cobra.Command) (*command.Dispatcher, func() error, error) {
	dir := a.storeDir(cmd)
	if err := ensureStoreDir(dir); err != nil {
		return nil, nil, err
	}

	db, err := sqlite.New(dbPath(dir))
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}

	treeSvc := tree.NewService(sqlite.NewNodeRepository(db), a.logger)
	versionSvc := version.NewService(sqlite.NewVersionRepository(db), a.logger)
	readTrackerSvc := readtracker.NewService(sqlite.NewReadTrackerRepository(db), a.logger)
	conflictSvc := conflict.NewService(sqlite.NewConflictRepository(db), versionSvc, readTrackerSvc, a.logger)
	agentSvc := agent.NewService(sqlite.NewAgentRepository(db))
	searchSvc := search.NewService(sqlite.NewSearchRepository(db))

	dispatcher := command.New(treeSvc, versionSvc, readTrackerSvc, conflictSvc, agentSvc, searchSvc)
	return dispatcher, db.Close, nil
}

// resolveAgent applies the --agent flag, falling back to NIWA_AGENT via the
// loaded config (spec §6's single required environment variable).
func (a *app) resolveAgent(cmd *cobra.Command) string {
	if id, _ := cmd.Flags().GetString("agent"); id != "" {
		return id
	}
	return a.cfg.Agent.Default
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "niwa",
		Short:         "niwa manages a hierarchical document tree shared by multiple agents",
		Long:          "niwa is a multi-agent document store with optimistic concurrency control: every edit is checked against what the submitting agent last read, and stale writes are quarantined as conflicts instead of silently overwriting.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("store", "", "store directory (default: $NIWA_STORE_DIR or ./.niwa)")
	root.PersistentFlags().String("agent", "", "agent identifier (default: $NIWA_AGENT)")
	root.PersistentFlags().Bool("json", false, "emit machine-readable JSON instead of plain text")

	root.AddCommand(
		newInitCmd(a),
		newAddCmd(a),
		newReadCmd(a),
		newPeekCmd(a),
		newEditCmd(a),
		newRenameCmd(a),
		newResolveCmd(a),
		newConflictsCmd(a),
		newHistoryCmd(a),
		newDiffCmd(a),
		newTreeCmd(a),
		newExportCmd(a),
		newSearchCmd(a),
		newLoadCmd(a),
		newStatusCmd(a),
		newAgentsCmd(a),
		newWhoamiCmd(a),
		newCheckCmd(a),
	)

	return root
}
