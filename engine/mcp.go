package engine

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/BigYang-Web/dialogue-index/message"
)

// MCP tool surface mirroring the command channel, so agent clients can read
// the conversation outline and drive navigation.

type snapshotInput struct{}

type snapshotOutput struct {
	Origin    string            `json:"origin" jsonschema:"Origin of the observed document"`
	Supported bool              `json:"supported" jsonschema:"Whether a site adapter claimed this origin"`
	Messages  []message.Message `json:"messages" jsonschema:"Ordered conversation outline"`
}

type scrollInput struct {
	ID string `json:"id" jsonschema:"required,Anchor id of the message or header to scroll to (e.g. msg-3, msg-3-h-1)"`
}

type scrollOutput struct {
	Success bool `json:"success" jsonschema:"False when the anchor is not present in the document"`
}

type exportInput struct{}

type exportOutput struct {
	Markdown string `json:"markdown" jsonschema:"Full conversation transcript as markdown"`
}

// RegisterMCP registers the engine's tools on an MCP server.
func (e *Engine) RegisterMCP(srv *mcp.Server) {
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "dialogue_snapshot",
		Description: "Get the current conversation outline: message roles, preview text, and section headers with stable anchor ids.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args snapshotInput) (*mcp.CallToolResult, snapshotOutput, error) {
		snap, err := e.Snapshot(ctx)
		if err != nil {
			return nil, snapshotOutput{}, err
		}
		return nil, snapshotOutput{
			Origin:    snap.Origin,
			Supported: e.Supported(),
			Messages:  snap.Messages,
		}, nil
	})

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "dialogue_scroll",
		Description: "Scroll the observed page to the element bearing the given anchor id and flash a highlight.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args scrollInput) (*mcp.CallToolResult, scrollOutput, error) {
		return nil, scrollOutput{Success: e.ScrollToAnchor(ctx, args.ID)}, nil
	})

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "dialogue_export",
		Description: "Export the full conversation as a markdown transcript (untruncated).",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args exportInput) (*mcp.CallToolResult, exportOutput, error) {
		md, err := e.ExportMarkdown(ctx)
		if err != nil {
			return nil, exportOutput{}, err
		}
		return nil, exportOutput{Markdown: md}, nil
	})
}
