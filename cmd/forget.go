package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"memoryforge/internal/output"
	"memoryforge/internal/retention"
)

var (
	flagForgetMaxFiles int
	flagForgetMaxAge   int
	flagForgetDryRun   bool
)

var forgetCmd = &cobra.Command{
	Use:   "forget",
	Short: "Remove stale or low-value files from the index",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := openEngine()
		if err != nil {
			return err
		}
		defer eng.Close()

		cfg := retention.Config{MaxFiles: flagForgetMaxFiles, MaxAgeDays: flagForgetMaxAge}

		if flagForgetDryRun {
			result, err := retention.Preview(eng, cfg)
			if err != nil {
				return fmt.Errorf("forget: %w", err)
			}
			for _, p := range result.Removed {
				output.Info("would remove %s", p)
			}
			fmt.Printf("%d would be removed, %d protected by importance\n", len(result.Removed), result.ProtectedCount)
			return nil
		}

		result, err := retention.ForgetStale(eng, cfg)
		if err != nil {
			return fmt.Errorf("forget: %w", err)
		}
		for _, p := range result.Removed {
			output.OK("removed %s", p)
		}
		fmt.Printf("%d removed, %d protected by importance\n", len(result.Removed), result.ProtectedCount)
		return nil
	},
}

func init() {
	forgetCmd.Flags().IntVar(&flagForgetMaxFiles, "max-files", 0, "cap the total number of files kept (protected files always stay and count toward it)")
	forgetCmd.Flags().IntVar(&flagForgetMaxAge, "max-age", 0, "remove files unaccessed for this many days")
	forgetCmd.Flags().BoolVar(&flagForgetDryRun, "dry-run", false, "report what would be removed without deleting anything")
	rootCmd.AddCommand(forgetCmd)
}
