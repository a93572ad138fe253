package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

// ensureStoreDir creates the store directory if it does not already exist.
func ensureStoreDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create store directory: %w", err)
	}
	return nil
}

// resolveContent applies the source precedence spec §6 gives a command that
// accepts a content body: an explicit trailing argument wins, then --file,
// then --stdin. Returns ok=false when none of the three were supplied.
func resolveContent(cmd *cobra.Command, args []string, argIndex int) (string, bool, error) {
	if len(args) > argIndex {
		return args[argIndex], true, nil
	}

	if path, _ := cmd.Flags().GetString("file"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", false, fmt.Errorf("read content file: %w", err)
		}
		return string(data), true, nil
	}

	if stdin, _ := cmd.Flags().GetBool("stdin"); stdin {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", false, fmt.Errorf("read stdin: %w", err)
		}
		return string(data), true, nil
	}

	return "", false, nil
}
