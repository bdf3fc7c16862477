package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"memoryforge/internal/output"
	"memoryforge/internal/syncer"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync the knowledge index incrementally (alias for index without --force)",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := openEngine()
		if err != nil {
			return err
		}
		defer eng.Close()

		output.Section("Sync")
		start := time.Now()
		stats, err := syncer.SyncProject(context.Background(), eng)
		if err != nil {
			return fmt.Errorf("sync: %w", err)
		}

		output.OK("done in %s", time.Since(start).Round(time.Millisecond))
		fmt.Printf("  files:  %d indexed, %d removed, %d total\n", stats.FilesIndexed, stats.FilesRemoved, stats.FilesTotal)
		fmt.Printf("  chunks: %d\n", stats.ChunksTotal)
		return nil
	},
}

func init() { rootCmd.AddCommand(syncCmd) }
