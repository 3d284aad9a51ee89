package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/basalt-dev/sourcelens/internal/config"
	"github.com/basalt-dev/sourcelens/internal/core"
)

var (
	rootDir string
	verbose bool
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "sourcelens",
	Short: "sourcelens - a local code-intelligence server",
	Long: `sourcelens indexes a codebase into a hybrid vector/keyword/graph
store and serves retrieval, context assembly, and diff application over a
CLI and an MCP server, so an editor or agent can ground its answers in the
actual repository instead of the model's training data.`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main(). It only needs to happen
// once to rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	wd, _ := os.Getwd()
	rootCmd.PersistentFlags().StringVar(&rootDir, "root", wd, "workspace root to index and serve")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// loadConfig loads configuration for rootDir, honoring .sourcelens/config.yml
// and SOURCELENS_* environment overrides per internal/config's loader.
func loadConfig() (*config.Config, error) {
	return config.LoadConfigFromDir(rootDir)
}

// newCore loads configuration and constructs a *core.Core rooted at
// rootDir, the single entry point every subcommand uses to reach the
// indexing and retrieval pipeline.
func newCore(ctx context.Context) (*core.Core, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return core.New(ctx, rootDir, cfg)
}
