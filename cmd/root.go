// Package cmd wires the cobra command tree for memory-forge. Every
// subcommand opens its own Engine via openEngine and closes it before
// returning, rather than sharing one across the process (§6.4).
package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"memoryforge/internal/config"
	"memoryforge/internal/engine"
)

var flagProjectRoot string

var rootCmd = &cobra.Command{
	Use:           "memory-forge",
	Short:         "On-demand semantic knowledge index for AI coding agents",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagProjectRoot, "root", "",
		"project root (default: MEMORY_FORGE_PROJECT_ROOT, then the current directory)")
}

// Execute runs the root command, exiting with 0 on success, 2 on a
// fatal error (model load or store corruption, per §7), and 1 on any
// other failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCodeFor(err))
	}
}

// fatalError marks an error as unrecoverable (§7): the process should
// exit 2, not the generic 1 given to an ordinary command failure.
type fatalError struct{ err error }

func (f fatalError) Error() string { return f.err.Error() }
func (f fatalError) Unwrap() error { return f.err }

func fatal(err error) error {
	if err == nil {
		return nil
	}
	return fatalError{err: err}
}

func exitCodeFor(err error) int {
	var fe fatalError
	if errors.As(err, &fe) {
		return 2
	}
	return 1
}

// openEngine resolves configuration for the --root flag and opens an
// Engine against it. A failure here is always fatal: it means the store
// couldn't be opened or the embedder couldn't be constructed, not that
// a particular operation failed.
func openEngine() (*engine.Engine, error) {
	cfg, err := config.Load(flagProjectRoot)
	if err != nil {
		return nil, fatal(fmt.Errorf("resolve config: %w", err))
	}
	eng, err := engine.Open(cfg)
	if err != nil {
		return nil, fatal(fmt.Errorf("open engine: %w", err))
	}
	return eng, nil
}
