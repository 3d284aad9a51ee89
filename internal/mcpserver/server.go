// Package mcpserver adapts a *core.Core onto the Model Context Protocol, so
// an editor or agent talks to the indexing and retrieval pipeline over
// stdio tool calls instead of a bespoke RPC surface.
package mcpserver

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mark3labs/mcp-go/server"

	"github.com/basalt-dev/sourcelens/internal/core"
)

// Server wraps the underlying mcp-go server and the Core it delegates
// every tool call to.
type Server struct {
	core *core.Core
	mcp  *server.MCPServer
}

// New builds a Server wired to c, registering every tool this adapter
// exposes.
func New(c *core.Core, version string) *Server {
	s := &Server{
		core: c,
		mcp:  server.NewMCPServer("sourcelens", version, server.WithToolCapabilities(true)),
	}
	s.registerTools()
	return s
}

// Serve runs the server over stdio until ctx is cancelled or the process
// receives SIGINT/SIGTERM, whichever comes first.
func (s *Server) Serve(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ServeStdio(s.mcp)
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serve mcp: %w", err)
		}
		return nil
	}
}
