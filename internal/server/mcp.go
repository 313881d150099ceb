package server

import (
	"context"
	"fmt"

	"github.com/go-chi/chi/v5"
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/Lbridge2222/Teamforge-sub001/internal/analysis"
	"github.com/Lbridge2222/Teamforge-sub001/internal/engine"
)

const mcpActorID = "mcp"

// registerMCP mounts a stateless MCP streamable-HTTP endpoint so AI
// collaborators can run diagnostics without speaking the REST API.
func registerMCP(router chi.Router, e engine.Engine) {
	srv := mcpserver.NewMCPServer(
		"teamforge",
		"0.1.0",
		mcpserver.WithToolCapabilities(false),
	)
	registerAnalyseWorkspaceTool(srv, e)
	registerListWorkspacesTool(srv, e)

	streamable := mcpserver.NewStreamableHTTPServer(
		srv,
		mcpserver.WithEndpointPath("/mcp"),
		mcpserver.WithStateLess(true),
	)
	router.Handle("/mcp", streamable)
}

func registerAnalyseWorkspaceTool(srv *mcpserver.MCPServer, e engine.Engine) {
	srv.AddTool(
		mcp.NewTool(
			"teamforge.analyse_workspace",
			mcp.WithDescription("Run organisational diagnostics over one workspace and return the report."),
			mcp.WithString("workspace_id", mcp.Required(), mcp.Description("Workspace identifier")),
			mcp.WithString("focus_area", mcp.Description("Which diagnostics to run (defaults to full)"), mcp.Enum(analysis.Focuses()...)),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			workspaceID, err := req.RequireString("workspace_id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			focus, err := analysis.ParseFocus(req.GetString("focus_area", ""))
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			report, err := e.Diagnose(ctx, workspaceID, focus, mcpActorID)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			result, err := mcp.NewToolResultJSON(report)
			if err != nil {
				return nil, fmt.Errorf("encode analyse_workspace result: %w", err)
			}
			return result, nil
		},
	)
}

func registerListWorkspacesTool(srv *mcpserver.MCPServer, e engine.Engine) {
	srv.AddTool(
		mcp.NewTool(
			"teamforge.list_workspaces",
			mcp.WithDescription("List workspaces available for diagnostics."),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			items, err := e.Repo.ListWorkspaces(ctx)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			out := make([]WorkspaceResponse, 0, len(items))
			for _, w := range items {
				out = append(out, workspaceResponse(w))
			}
			result, err := mcp.NewToolResultJSON(out)
			if err != nil {
				return nil, fmt.Errorf("encode list_workspaces result: %w", err)
			}
			return result, nil
		},
	)
}
