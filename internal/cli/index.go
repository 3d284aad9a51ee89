package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var indexQuiet bool

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build a full index of the workspace",
	Long: `index discovers every code and doc file under the workspace root,
chunks and embeds them, upserts the chunks into the Vector Store and
keyword index, and rebuilds the Code Graph from scratch. Entries already
in the Vector Store and keyword index are not cleared first.`,
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().BoolVarP(&indexQuiet, "quiet", "q", false, "suppress progress output")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	c, err := newCore(ctx)
	if err != nil {
		return fmt.Errorf("initialize core: %w", err)
	}
	defer c.Close()

	reporter := NewCLIProgressReporter(indexQuiet)

	stats, err := c.IndexAll(ctx, reporter.OnFile)
	if err != nil {
		return fmt.Errorf("index: %w", err)
	}

	reporter.OnComplete(stats.FilesScanned, stats.ChunksStored, stats.Duration)
	return nil
}
