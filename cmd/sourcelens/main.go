// Command sourcelens indexes a codebase and serves retrieval, context
// assembly, and diff application over a CLI and an MCP server.
package main

import "github.com/basalt-dev/sourcelens/internal/cli"

func main() {
	cli.Execute()
}
