package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"memoryforge/internal/output"
)

var preloadCmd = &cobra.Command{
	Use:   "preload",
	Short: "Eagerly load the embedding model without indexing anything",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := openEngine()
		if err != nil {
			return err
		}
		defer eng.Close()

		start := time.Now()
		if _, err := eng.Embedder.Embed(context.Background(), "warmup"); err != nil {
			return fatal(fmt.Errorf("model load failed: %w", err))
		}
		output.OK("model %s loaded in %s", eng.Embedder.ModelID(), time.Since(start).Round(time.Millisecond))
		return nil
	},
}

func init() { rootCmd.AddCommand(preloadCmd) }
