package core

import (
	"context"

	"github.com/basalt-dev/sourcelens/internal/retriever"
)

// Retrieve runs the semantic/hybrid/graph-expansion/re-rank pipeline over
// this Core's Vector Store, keyword index, and Code Graph.
func (c *Core) Retrieve(ctx context.Context, query string, opts retriever.Options) ([]retriever.Result, error) {
	return c.retriever.Retrieve(ctx, query, opts)
}
