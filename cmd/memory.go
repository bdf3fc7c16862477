package cmd

import (
	"github.com/spf13/cobra"

	"memoryforge/internal/browser"
)

var memoryCmd = &cobra.Command{
	Use:   "memory",
	Short: "Browse the indexed knowledge base interactively",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := openEngine()
		if err != nil {
			return err
		}
		defer eng.Close()
		return browser.Run(eng)
	},
}

func init() { rootCmd.AddCommand(memoryCmd) }
