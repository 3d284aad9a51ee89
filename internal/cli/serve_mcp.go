package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/basalt-dev/sourcelens/internal/mcpserver"
)

var serveMCPCmd = &cobra.Command{
	Use:   "serve-mcp",
	Short: "Serve the retrieval, context-assembly, and diff tools over MCP (stdio)",
	Long: `serve-mcp builds a *core.Core for the workspace and exposes its
retrieve_context, assemble_context, save_facts, and apply_diff operations
as MCP tools over stdio, for an editor or agent to call directly.`,
	RunE: runServeMCP,
}

func init() {
	rootCmd.AddCommand(serveMCPCmd)
}

func runServeMCP(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	c, err := newCore(ctx)
	if err != nil {
		return fmt.Errorf("initialize core: %w", err)
	}
	defer c.Close()

	srv := mcpserver.New(c, getVersion())
	return srv.Serve(ctx)
}
