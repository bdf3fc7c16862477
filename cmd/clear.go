package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"memoryforge/internal/manifest"
	"memoryforge/internal/output"
)

var flagClearForce bool

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear the entire index and manifest",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := openEngine()
		if err != nil {
			return err
		}
		defer eng.Close()

		if !flagClearForce {
			fmt.Print("This deletes the entire index. Continue? [y/N] ")
			answer, _ := bufio.NewReader(os.Stdin).ReadString('\n')
			if strings.ToLower(strings.TrimSpace(answer)) != "y" {
				output.Skip("aborted")
				return nil
			}
		}

		if err := eng.Store.Clear(); err != nil {
			return fmt.Errorf("clear store: %w", err)
		}
		if err := eng.SaveManifest(manifest.New()); err != nil {
			return fmt.Errorf("clear manifest: %w", err)
		}
		output.OK("index cleared")
		return nil
	},
}

func init() {
	clearCmd.Flags().BoolVar(&flagClearForce, "force", false, "skip the confirmation prompt")
	rootCmd.AddCommand(clearCmd)
}
