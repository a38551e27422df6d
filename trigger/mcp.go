package trigger

import (
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/formfill/kit"
)

// RegisterMCP registers the formfill tools on an MCP server.
func (r *Router) RegisterMCP(srv *mcp.Server) {
	ep := r.endpoints()
	registerTriggerTool(srv, ep.trigger)
	registerProfileGetTool(srv, ep.profileGet)
	registerProfileEntryTool(srv, ep.profileEntry)
	registerProfileSetTool(srv, ep.profileSet)
	registerProfileClearTool(srv, ep.profileClear)
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

var entriesSchema = map[string]any{
	"type": "array",
	"items": map[string]any{
		"type": "object",
		"properties": map[string]any{
			"key":   map[string]any{"type": "string"},
			"value": map[string]any{"type": "string"},
		},
		"required": []string{"key", "value"},
	},
	"description": "Profile entries in match order",
}

func registerTriggerTool(srv *mcp.Server, endpoint kit.Endpoint) {
	tool := &mcp.Tool{
		Name:        "formfill_trigger",
		Description: "Run a formfill command. autofill fills the form in html (returned filled) or opens url in the browser, with entries overriding stored values for that pass; clear wipes the profile; update stores entries.",
		InputSchema: inputSchema(map[string]any{
			"action":  map[string]any{"type": "string", "enum": []any{"autofill", "clear", "update"}, "description": "Command to run"},
			"url":     map[string]any{"type": "string", "description": "Page to fill, or base URL of html"},
			"html":    map[string]any{"type": "string", "description": "Static HTML document to fill"},
			"entries": entriesSchema,
		}, []string{"action"}),
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r Command
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &r}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

func registerProfileGetTool(srv *mcp.Server, endpoint kit.Endpoint) {
	tool := &mcp.Tool{
		Name:        "formfill_profile_get",
		Description: "Return the stored profile entries in match order.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}

	decode := func(_ *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		return &kit.MCPDecodeResult{}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

func registerProfileEntryTool(srv *mcp.Server, endpoint kit.Endpoint) {
	tool := &mcp.Tool{
		Name:        "formfill_profile_entry",
		Description: "Return the stored value of one profile key.",
		InputSchema: inputSchema(map[string]any{
			"key": map[string]any{"type": "string", "description": "Profile key"},
		}, []string{"key"}),
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r keyRequest
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &r}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

func registerProfileSetTool(srv *mcp.Server, endpoint kit.Endpoint) {
	tool := &mcp.Tool{
		Name:        "formfill_profile_set",
		Description: "Store profile entries. Existing keys keep their position; replace discards the previous profile first.",
		InputSchema: inputSchema(map[string]any{
			"entries": entriesSchema,
			"replace": map[string]any{"type": "boolean", "description": "Replace the whole profile (default false)"},
		}, []string{"entries"}),
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r profileSetRequest
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &r}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

func registerProfileClearTool(srv *mcp.Server, endpoint kit.Endpoint) {
	tool := &mcp.Tool{
		Name:        "formfill_profile_clear",
		Description: "Remove every profile entry.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}

	decode := func(_ *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		return &kit.MCPDecodeResult{}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}
