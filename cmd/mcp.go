package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"docvault/internal/inspect"
	"docvault/internal/store"
	"docvault/internal/web"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start an MCP server exposing read-only collection tools",
	RunE:  runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	// stdout carries the protocol.
	a, err := openApp(cmd.Context(), cfg, zap.NewNop())
	if err != nil {
		return err
	}
	defer a.Close()

	s := newMCPServer(a.Inspector(), cfg.Collection)
	return mcpserver.ServeStdio(s)
}

func newMCPServer(in *inspect.Inspector, collection string) *mcpserver.MCPServer {
	s := mcpserver.NewMCPServer("docvault", "1.0.0", mcpserver.WithToolCapabilities(false))
	s.AddTool(listCollectionFilesTool(), makeListFilesHandler(in, collection))
	s.AddTool(getFileChunksTool(), makeFileChunksHandler(in, collection))
	return s
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

// --- Tool schema builders ---

var readOnlyAnnotation = mcp.ToolAnnotation{
	ReadOnlyHint:    mcp.ToBoolPtr(true),
	DestructiveHint: mcp.ToBoolPtr(false),
	IdempotentHint:  mcp.ToBoolPtr(true),
	OpenWorldHint:   mcp.ToBoolPtr(false),
}

func listCollectionFilesTool() mcp.Tool {
	return mcp.NewTool("list_collection_files",
		mcp.WithDescription("List every ingested file in the collection with its chunk count."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
		mcp.WithString("collection",
			mcp.Description("Collection name (defaults to the configured collection)"),
		),
	)
}

func getFileChunksTool() mcp.Tool {
	return mcp.NewTool("get_file_chunks",
		mcp.WithDescription("Return the stored text chunks of one ingested file, in order."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
		mcp.WithString("filename",
			mcp.Required(),
			mcp.Description("File name as listed by list_collection_files"),
		),
		mcp.WithString("collection",
			mcp.Description("Collection name (defaults to the configured collection)"),
		),
	)
}

// --- Handler factories ---

func makeListFilesHandler(in *inspect.Inspector, collection string) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name := req.GetString("collection", collection)

		l, err := in.ListFiles(ctx, name)
		if err != nil {
			return mcp.NewToolResultError(web.Message(name, nil, err)), nil
		}
		return mcp.NewToolResultText(listingMarkdown(name, l)), nil
	}
}

func makeFileChunksHandler(in *inspect.Inspector, collection string) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		filename := req.GetString("filename", "")
		if filename == "" {
			return mcp.NewToolResultError("filename is required"), nil
		}
		name := req.GetString("collection", collection)

		chunks, err := in.FileChunks(ctx, name, filename)
		if errors.Is(err, store.ErrCollectionNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("collection %q not found", name)), nil
		}
		if err != nil {
			return mcp.NewToolResultError(web.Message(name, nil, err)), nil
		}
		if len(chunks) == 0 {
			return mcp.NewToolResultError(fmt.Sprintf("file %q not found in collection %q, call list_collection_files to see available files", filename, name)), nil
		}
		return mcp.NewToolResultText(formatChunks(filename, chunks)), nil
	}
}

// --- Formatting helpers ---

func formatChunks(filename string, chunks []inspect.Chunk) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "## %s (%d chunks)\n\n", filename, len(chunks))
	for _, c := range chunks {
		fmt.Fprintf(&sb, "### Chunk %d of %d  \n**ID:** `%s`\n\n%s\n\n", c.Index+1, c.TotalChunks, c.ID, c.Text)
	}
	return sb.String()
}
