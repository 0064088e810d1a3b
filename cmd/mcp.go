package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"coderag/internal/graph"
	"coderag/internal/rag"
	"coderag/internal/store"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start an MCP server exposing codebase search tools",
	RunE:  runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
	root, err := commandRoot(cmd, args)
	if err != nil {
		return err
	}

	st, err := openStore(root)
	if err != nil {
		return err
	}
	defer st.Close()

	g, err := buildGraph(root)
	if err != nil {
		return err
	}

	s := newMCPServer(st, g)
	logger.Info("mcp server listening on stdio", "root", root, "records", st.Len(), "state", st.State())
	return mcpserver.ServeStdio(s)
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func newMCPServer(st *store.Index, g *graph.Graph) *mcpserver.MCPServer {
	s := mcpserver.NewMCPServer("coderag", "1.0.0", mcpserver.WithToolCapabilities(false))

	s.AddTool(searchCodebaseTool(), makeSearchHandler(st))
	s.AddTool(getDefinitionsTool(), makeDefinitionsHandler(g))
	s.AddTool(graphSummaryTool(), makeGraphSummaryHandler(g))
	return s
}

// --- Tool schema builders ---

var readOnlyAnnotation = mcp.ToolAnnotation{
	ReadOnlyHint:    mcp.ToBoolPtr(true),
	DestructiveHint: mcp.ToBoolPtr(false),
	IdempotentHint:  mcp.ToBoolPtr(true),
	OpenWorldHint:   mcp.ToBoolPtr(false),
}

func searchCodebaseTool() mcp.Tool {
	return mcp.NewTool("search_codebase",
		mcp.WithDescription("Semantically search the indexed codebase by cosine similarity. Returns relevant code chunks with file paths and line numbers."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Natural language or code query to search the codebase"),
		),
		mcp.WithNumber("k",
			mcp.Description("Maximum number of chunks to return (default 5)"),
		),
	)
}

func getDefinitionsTool() mcp.Tool {
	return mcp.NewTool("get_definitions",
		mcp.WithDescription("List the classes and functions a file defines, with their line numbers, and the methods of each class."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("File path relative to the project root"),
		),
	)
}

func graphSummaryTool() mcp.Tool {
	return mcp.NewTool("graph_summary",
		mcp.WithDescription("Get the number of files, entities and edges in the structure graph."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
	)
}

// --- Handler factories ---

func makeSearchHandler(st rag.Searcher) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query := req.GetString("query", "")
		if query == "" {
			return mcp.NewToolResultError("query is required"), nil
		}
		k := req.GetInt("k", rag.DefaultK)

		results, err := rag.Retrieve(st, query, k)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
		}
		return mcp.NewToolResultText(formatResults(query, results)), nil
	}
}

func makeDefinitionsHandler(g *graph.Graph) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		path := filepath.ToSlash(req.GetString("path", ""))
		if path == "" {
			return mcp.NewToolResultError("path is required"), nil
		}
		if _, ok := g.Entity(path); !ok {
			return mcp.NewToolResultError(fmt.Sprintf("file %q not found in the graph; it may be ignored or fail to parse", path)), nil
		}

		var sb strings.Builder
		fmt.Fprintf(&sb, "## Definitions in `%s`\n\n", path)
		for _, e := range g.Definitions(path) {
			fmt.Fprintf(&sb, "- **%s** `%s` (line %d)\n", e.Kind, e.Name, e.Line)
			if e.Kind != graph.KindClass {
				continue
			}
			for _, m := range g.Definitions(e.ID) {
				fmt.Fprintf(&sb, "  - **%s** `%s` (line %d)\n", m.Kind, m.Name, m.Line)
			}
		}
		return mcp.NewToolResultText(sb.String()), nil
	}
}

func makeGraphSummaryHandler(g *graph.Graph) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		data, err := json.Marshal(g.Summary())
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("encode summary failed: %v", err)), nil
		}
		return mcp.NewToolResultText(string(data)), nil
	}
}
