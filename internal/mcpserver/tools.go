package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/basalt-dev/sourcelens/internal/diff"
	"github.com/basalt-dev/sourcelens/internal/facts"
	mcputils "github.com/basalt-dev/sourcelens/internal/mcp-utils"
	"github.com/basalt-dev/sourcelens/internal/retriever"
	"github.com/basalt-dev/sourcelens/internal/validate"
)

func (s *Server) registerTools() {
	s.mcp.AddTool(
		mcp.NewTool("retrieve_context",
			mcp.WithDescription("Retrieve the code chunks most relevant to a natural-language or code query, via semantic search, keyword-boosted re-scoring, and call-graph expansion."),
			mcp.WithString("query", mcp.Required(), mcp.Description("what to search for")),
			mcp.WithNumber("top_k", mcp.Description("maximum number of results (default 10)")),
			mcp.WithString("file_path", mcp.Description("restrict results to chunks from this file")),
			mcp.WithBoolean("use_hybrid", mcp.Description("enable keyword-boosted re-scoring (default true)")),
			mcp.WithBoolean("use_graph", mcp.Description("enable call-graph expansion (default true)")),
			mcp.WithReadOnlyHintAnnotation(true),
		),
		s.handleRetrieveContext,
	)

	s.mcp.AddTool(
		mcp.NewTool("assemble_context",
			mcp.WithDescription("Assemble a token-budgeted chat context from conversation history, retrieved RAG context, and saved session facts, summarizing history that no longer fits."),
			mcp.WithString("session_id", mcp.Required(), mcp.Description("conversation session identifier")),
			mcp.WithString("user_message", mcp.Required(), mcp.Description("the user's latest message")),
			mcp.WithString("rag_context", mcp.Description("retrieved context to ground the assistant's reply in")),
			mcp.WithString("system_prompt", mcp.Description("system prompt to prepend")),
			mcp.WithString("model", mcp.Description("model id, for token counting")),
			mcp.WithReadOnlyHintAnnotation(true),
		),
		s.handleAssembleContext,
	)

	s.mcp.AddTool(
		mcp.NewTool("save_facts",
			mcp.WithDescription("Persist structured facts extracted from an assistant turn (files created, functions added, decisions made) against a session for later recall."),
			mcp.WithString("session_id", mcp.Required(), mcp.Description("conversation session identifier")),
			mcp.WithArray("facts", mcp.Required(), mcp.Description("facts to save, each with type, content, and optional metadata")),
		),
		s.handleSaveFacts,
	)

	s.mcp.AddTool(
		mcp.NewTool("apply_diff",
			mcp.WithDescription("Validate and apply a unified diff to the workspace. Rejects diffs whose hunks don't line up with the file on disk, or whose resulting content fails validation."),
			mcp.WithString("patch", mcp.Required(), mcp.Description("unified diff text")),
			mcp.WithBoolean("dry_run", mcp.Description("validate and preview without writing")),
			mcp.WithDestructiveHintAnnotation(true),
		),
		s.handleApplyDiff,
	)
}

type retrieveContextArgs struct {
	Query     string `json:"query"`
	TopK      int    `json:"top_k"`
	FilePath  string `json:"file_path"`
	UseHybrid *bool  `json:"use_hybrid"`
	UseGraph  *bool  `json:"use_graph"`
}

func (s *Server) handleRetrieveContext(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args retrieveContextArgs
	if err := mcputils.CoerceBindArguments(req, &args); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
	}

	opts := retriever.Options{TopK: args.TopK, FilePath: args.FilePath, UseHybrid: true, UseGraph: true}
	if args.UseHybrid != nil {
		opts.UseHybrid = *args.UseHybrid
	}
	if args.UseGraph != nil {
		opts.UseGraph = *args.UseGraph
	}

	results, err := s.core.Retrieve(ctx, args.Query, opts)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("retrieve: %v", err)), nil
	}
	return jsonToolResult(results)
}

type assembleContextArgs struct {
	SessionID    string `json:"session_id"`
	UserMessage  string `json:"user_message"`
	RAGContext   string `json:"rag_context"`
	SystemPrompt string `json:"system_prompt"`
	Model        string `json:"model"`
}

func (s *Server) handleAssembleContext(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args assembleContextArgs
	if err := mcputils.CoerceBindArguments(req, &args); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
	}

	result := s.core.Assembler().Assemble(ctx, args.UserMessage, nil, args.RAGContext, args.SystemPrompt, args.Model, args.SessionID)
	return jsonToolResult(result)
}

type saveFactsArgs struct {
	SessionID string `json:"session_id"`
	Facts     []struct {
		Type     string            `json:"type"`
		Content  string            `json:"content"`
		Metadata map[string]string `json:"metadata"`
	} `json:"facts"`
}

func (s *Server) handleSaveFacts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args saveFactsArgs
	if err := mcputils.CoerceBindArguments(req, &args); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
	}

	saved := make([]facts.Fact, 0, len(args.Facts))
	for _, f := range args.Facts {
		saved = append(saved, facts.Fact{
			Type:     facts.Type(f.Type),
			Content:  f.Content,
			Metadata: f.Metadata,
		})
	}

	if err := s.core.FactsStore().SaveFacts(ctx, args.SessionID, saved); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("save facts: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("saved %d fact(s)", len(saved))), nil
}

type applyDiffArgs struct {
	Patch  string `json:"patch"`
	DryRun bool   `json:"dry_run"`
}

func (s *Server) handleApplyDiff(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args applyDiffArgs
	if err := mcputils.CoerceBindArguments(req, &args); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
	}

	files, err := diff.Parse(args.Patch)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("parse diff: %v", err)), nil
	}

	engine := diff.New(s.core.RootDir())
	validator := validate.NewService(s.core.RootDir())

	result := engine.Validate(files, validator)
	if !result.Valid {
		return mcp.NewToolResultError(fmt.Sprintf("diff rejected: %s", result.Reason)), nil
	}

	applyResult := engine.Apply(files, args.DryRun)
	if !applyResult.Success {
		return jsonToolResult(applyResult)
	}
	return jsonToolResult(applyResult)
}

func jsonToolResult(v interface{}) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
