package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"memoryforge/internal/manifest"
	"memoryforge/internal/output"
	"memoryforge/internal/syncer"
)

var flagForce bool

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Sync the knowledge index, optionally clearing it first",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := openEngine()
		if err != nil {
			return err
		}
		defer eng.Close()

		output.Section("Index")

		if flagForce {
			if err := eng.Store.Clear(); err != nil {
				return fatal(fmt.Errorf("clear store: %w", err))
			}
			if err := eng.SaveManifest(manifest.New()); err != nil {
				return fatal(fmt.Errorf("clear manifest: %w", err))
			}
			output.Info("cleared existing index")
		}

		start := time.Now()
		stats, err := syncer.SyncProject(context.Background(), eng)
		if err != nil {
			return fmt.Errorf("sync: %w", err)
		}

		output.OK("done in %s", time.Since(start).Round(time.Millisecond))
		fmt.Printf("  files:  %d indexed, %d removed, %d total\n", stats.FilesIndexed, stats.FilesRemoved, stats.FilesTotal)
		fmt.Printf("  chunks: %d\n", stats.ChunksTotal)
		if stats.ModelChanged {
			fmt.Println("  embedding model changed: full reindex performed")
		}
		return nil
	},
}

func init() {
	indexCmd.Flags().BoolVar(&flagForce, "force", false, "clear the index and manifest before syncing")
	rootCmd.AddCommand(indexCmd)
}
