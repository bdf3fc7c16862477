package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"memoryforge/internal/search"
)

var (
	flagQueryLimit     int
	flagQueryThreshold float64
	flagQueryJSON      bool
	flagQueryContext   bool
	flagQueryUnique    bool
	flagQueryTypes     string
)

var queryCmd = &cobra.Command{
	Use:   "query <text>",
	Short: "Search the knowledge index by meaning",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := openEngine()
		if err != nil {
			return err
		}
		defer eng.Close()

		opts := search.Options{
			Limit:          flagQueryLimit,
			Threshold:      flagQueryThreshold,
			UniqueFiles:    flagQueryUnique,
			IncludeContent: true,
		}
		if flagQueryTypes != "" {
			opts.SourceTypes = strings.Split(flagQueryTypes, ",")
		}

		results, err := search.Search(context.Background(), eng, args[0], opts)
		if err != nil {
			return fmt.Errorf("search: %w", err)
		}

		switch {
		case flagQueryJSON:
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(results)
		case flagQueryContext:
			for _, r := range results {
				fmt.Println(r.Content)
				fmt.Println()
			}
		default:
			if len(results) == 0 {
				fmt.Println("no matches")
				return nil
			}
			for _, r := range results {
				fmt.Printf("%.3f  %s  [%s]\n", r.Score, r.FilePath, r.ChunkType)
				if r.Heading != "" {
					fmt.Printf("       %s\n", r.Heading)
				}
			}
		}
		return nil
	},
}

func init() {
	queryCmd.Flags().IntVar(&flagQueryLimit, "limit", 5, "maximum results")
	queryCmd.Flags().Float64Var(&flagQueryThreshold, "threshold", 0.3, "minimum adjusted similarity score")
	queryCmd.Flags().BoolVar(&flagQueryJSON, "json", false, "print results as JSON")
	queryCmd.Flags().BoolVar(&flagQueryContext, "context", false, "print raw chunk content instead of a summary")
	queryCmd.Flags().BoolVar(&flagQueryUnique, "unique", false, "keep at most one chunk per file")
	queryCmd.Flags().StringVar(&flagQueryTypes, "type", "", "comma-separated source types to filter to (skill,knowledge)")
	rootCmd.AddCommand(queryCmd)
}
