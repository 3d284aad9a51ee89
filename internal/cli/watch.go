package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Index once, then keep the index up to date as files change",
	Long: `watch runs a full index, then starts a filesystem watcher that
incrementally re-indexes changed files and removes deleted ones, until
interrupted with SIGINT or SIGTERM.`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := newCore(ctx)
	if err != nil {
		return fmt.Errorf("initialize core: %w", err)
	}
	defer c.Close()

	reporter := NewCLIProgressReporter(false)
	stats, err := c.IndexAll(ctx, reporter.OnFile)
	if err != nil {
		return fmt.Errorf("initial index: %w", err)
	}
	reporter.OnComplete(stats.FilesScanned, stats.ChunksStored, stats.Duration)

	fmt.Println("watching for changes (ctrl-c to stop)...")
	if err := c.WatchForChanges(ctx); err != nil {
		return fmt.Errorf("watch: %w", err)
	}

	<-ctx.Done()
	fmt.Println("stopping...")
	return c.StopWatching()
}
