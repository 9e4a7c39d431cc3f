package cmd

import (
	"context"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docvault/internal/inspect"
	"docvault/internal/store"
)

func seeded(t *testing.T) *inspect.Inspector {
	t.Helper()
	ctx := context.Background()
	mem := store.NewMemory()
	_, err := mem.CreateCollection(ctx, "docs")
	require.NoError(t, err)
	require.NoError(t, mem.Add(ctx, "docs", store.Batch{
		IDs:       []string{"a.md_1_x", "a.md_0_y", "b|c.md_0_z"},
		Documents: []string{"second", "first", "other"},
		Metadatas: []store.Metadata{
			{Filename: "a.md", ChunkIndex: 1, TotalChunks: 2},
			{Filename: "a.md", ChunkIndex: 0, TotalChunks: 2},
			{Filename: "b|c.md", ChunkIndex: 0, TotalChunks: 1},
		},
		Embeddings: [][]float32{{1}, {2}, {3}},
	}))
	return inspect.New(mem, nil)
}

func call(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func text(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	tc, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return tc.Text
}

func TestListingMarkdown(t *testing.T) {
	l, err := seeded(t).ListFiles(context.Background(), "docs")
	require.NoError(t, err)

	md := listingMarkdown("docs", l)
	assert.Contains(t, md, "# Document Collection: docs")
	assert.Contains(t, md, "**Total Files:** 2")
	assert.Contains(t, md, "| a.md | 2 |")
	assert.Contains(t, md, `| b\|c.md | 1 |`)
}

func TestListingMarkdown_NotFound(t *testing.T) {
	l, err := seeded(t).ListFiles(context.Background(), "missing")
	require.NoError(t, err)
	assert.Contains(t, listingMarkdown("missing", l), "Collection 'missing' not found")
}

func TestListFilesHandler(t *testing.T) {
	h := makeListFilesHandler(seeded(t), "docs")

	res, err := h(context.Background(), call(nil))
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Contains(t, text(t, res), "| a.md | 2 |")

	res, err = h(context.Background(), call(map[string]any{"collection": "other"}))
	require.NoError(t, err)
	assert.Contains(t, text(t, res), "Collection 'other' not found")
}

func TestFileChunksHandler(t *testing.T) {
	h := makeFileChunksHandler(seeded(t), "docs")

	res, err := h(context.Background(), call(map[string]any{"filename": "a.md"}))
	require.NoError(t, err)
	require.False(t, res.IsError)
	out := text(t, res)
	assert.Contains(t, out, "## a.md (2 chunks)")
	assert.Less(t, strings.Index(out, "first"), strings.Index(out, "second"))

	res, err = h(context.Background(), call(map[string]any{}))
	require.NoError(t, err)
	assert.True(t, res.IsError)

	res, err = h(context.Background(), call(map[string]any{"filename": "nope.md"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, text(t, res), "list_collection_files")

	res, err = h(context.Background(), call(map[string]any{"filename": "a.md", "collection": "gone"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, text(t, res), `collection "gone" not found`)
}

