// CLAUDE:SUMMARY Registers the tabview MCP tools: list/open/close views, navigate, commands, move, session, diagnostics.
package shell

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/tabview/kit"
)

// RegisterMCP registers the window's tools on an MCP server.
func (w *Window) RegisterMCP(srv *mcp.Server) {
	ep := newEndpoints(w, w.logger)

	kit.RegisterMCPTool(srv, &mcp.Tool{
		Name:        "tabview_list_views",
		Description: "List open views with their state. Order is display order unless order=render.",
		InputSchema: inputSchema(map[string]any{
			"order": map[string]any{"type": "string", "enum": []any{"display", "render"}, "description": "Display order (default) or surface mount order"},
		}, nil),
	}, ep.list, kit.DecodeJSON[listViewsRequest]())

	kit.RegisterMCPTool(srv, &mcp.Tool{
		Name:        "tabview_open_view",
		Description: "Open a new view, optionally at a URI.",
		InputSchema: inputSchema(map[string]any{
			"uri":    map[string]any{"type": "string", "description": "Absolute URI to load (empty for a blank view)"},
			"pinned": map[string]any{"type": "boolean", "description": "Open the view pinned"},
		}, nil),
	}, ep.open, kit.DecodeJSON[openViewRequest]())

	kit.RegisterMCPTool(srv, &mcp.Tool{
		Name:        "tabview_get_view",
		Description: "Get the current state of one view.",
		InputSchema: inputSchema(map[string]any{
			"id": map[string]any{"type": "string", "description": "View ID"},
		}, []string{"id"}),
	}, ep.get, kit.DecodeJSON[viewRequest]())

	kit.RegisterMCPTool(srv, &mcp.Tool{
		Name:        "tabview_navigate",
		Description: "Load a URI in an existing view.",
		InputSchema: inputSchema(map[string]any{
			"id":  map[string]any{"type": "string", "description": "View ID"},
			"uri": map[string]any{"type": "string", "description": "Absolute URI to load"},
		}, []string{"id", "uri"}),
	}, ep.navigate, kit.DecodeJSON[navigateRequest]())

	commands := make([]any, len(Commands))
	for i, c := range Commands {
		commands[i] = c
	}
	kit.RegisterMCPTool(srv, &mcp.Tool{
		Name:        "tabview_command",
		Description: "Run a view command: navigation directives, zoom, selection or pinning.",
		InputSchema: inputSchema(map[string]any{
			"id":      map[string]any{"type": "string", "description": "View ID"},
			"command": map[string]any{"type": "string", "enum": commands, "description": "Command name"},
		}, []string{"id", "command"}),
	}, ep.command, kit.DecodeJSON[commandRequest]())

	kit.RegisterMCPTool(srv, &mcp.Tool{
		Name:        "tabview_move_view",
		Description: "Move a view to a display position. Render order is not affected.",
		InputSchema: inputSchema(map[string]any{
			"id":       map[string]any{"type": "string", "description": "View ID"},
			"position": map[string]any{"type": "integer", "description": "Target display index (clamped)"},
		}, []string{"id", "position"}),
	}, ep.move, kit.DecodeJSON[moveRequest]())

	kit.RegisterMCPTool(srv, &mcp.Tool{
		Name:        "tabview_close_view",
		Description: "Close a view and its content surface.",
		InputSchema: inputSchema(map[string]any{
			"id": map[string]any{"type": "string", "description": "View ID"},
		}, []string{"id"}),
	}, ep.close, kit.DecodeJSON[viewRequest]())

	kit.RegisterMCPTool(srv, &mcp.Tool{
		Name:        "tabview_session",
		Description: "Return the persistent projection of every view.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}, ep.session, kit.DecodeJSON[struct{}]())

	kit.RegisterMCPTool(srv, &mcp.Tool{
		Name:        "tabview_save_session",
		Description: "Persist the current session to the store.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}, ep.saveSession, kit.DecodeJSON[struct{}]())

	kit.RegisterMCPTool(srv, &mcp.Tool{
		Name:        "tabview_diagnostics",
		Description: "Recent page errors, auth prompts and context menus, newest first.",
		InputSchema: inputSchema(map[string]any{
			"id":    map[string]any{"type": "string", "description": "Filter by view ID"},
			"limit": map[string]any{"type": "integer", "description": "Max results (default 50)"},
		}, nil),
	}, ep.diagnostics, kit.DecodeJSON[diagnosticsRequest]())
}

// inputSchema builds a JSON Schema object with type "object".
func inputSchema(properties map[string]any, required []string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}
