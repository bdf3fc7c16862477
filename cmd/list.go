package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"memoryforge/internal/walker"
)

var flagListDiscover bool

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List indexed files, or discover what's on disk right now",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := openEngine()
		if err != nil {
			return err
		}
		defer eng.Close()

		if flagListDiscover {
			files, errs := walker.Walk(eng.Config.ProjectRoot)
			for f := range files {
				fmt.Println(f.RelPath)
			}
			if err := <-errs; err != nil {
				return fmt.Errorf("walk: %w", err)
			}
			return nil
		}

		records, err := eng.Store.ListFiles()
		if err != nil {
			return fmt.Errorf("list files: %w", err)
		}
		for _, f := range records {
			fmt.Printf("%s  (importance %d, accessed %d times)\n", f.Path, f.Importance, f.AccessCount)
		}
		return nil
	},
}

func init() {
	listCmd.Flags().BoolVar(&flagListDiscover, "discover", false, "walk the knowledge tree fresh, bypassing the manifest and store")
	rootCmd.AddCommand(listCmd)
}
