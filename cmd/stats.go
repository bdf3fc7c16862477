package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Report index size, model, and access statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := openEngine()
		if err != nil {
			return err
		}
		defer eng.Close()

		files, err := eng.Store.ListFiles()
		if err != nil {
			return fmt.Errorf("list files: %w", err)
		}
		chunks, err := eng.Store.ListChunks()
		if err != nil {
			return fmt.Errorf("list chunks: %w", err)
		}
		meta, err := eng.Store.GetMetadata()
		if err != nil {
			return fmt.Errorf("get metadata: %w", err)
		}
		m, err := eng.LoadManifest()
		if err != nil {
			return fmt.Errorf("load manifest: %w", err)
		}

		fmt.Printf("files:         %d\n", len(files))
		fmt.Printf("chunks:        %d\n", len(chunks))
		if meta.ModelID != "" {
			fmt.Printf("model:         %s (dim %d)\n", meta.ModelID, meta.Dim)
		} else {
			fmt.Println("model:         none indexed yet")
		}
		if m.LastIndexed.IsZero() {
			fmt.Println("last indexed:  never")
		} else {
			fmt.Printf("last indexed:  %s\n", m.LastIndexed.Format("2006-01-02 15:04:05"))
		}

		var mostAccessed string
		var maxAccess int64
		for _, f := range files {
			if f.AccessCount > maxAccess {
				maxAccess = f.AccessCount
				mostAccessed = f.Path
			}
		}
		if mostAccessed != "" {
			fmt.Printf("most accessed: %s (%d times)\n", mostAccessed, maxAccess)
		}
		return nil
	},
}

func init() { rootCmd.AddCommand(statsCmd) }
