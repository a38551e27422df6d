package trigger

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/formfill/profile"
)

var testImpl = &mcp.Implementation{Name: "formfill-test", Version: "0.1.0"}

// mcpSession registers the tools on a server and returns a connected client
// session.
func mcpSession(t *testing.T, r *Router) *mcp.ClientSession {
	t.Helper()
	srv := mcp.NewServer(testImpl, nil)
	r.RegisterMCP(srv)

	serverT, clientT := mcp.NewInMemoryTransports()
	ctx := context.Background()
	go func() {
		_ = srv.Run(ctx, serverT)
	}()

	client := mcp.NewClient(testImpl, nil)
	session, err := client.Connect(ctx, clientT, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	t.Cleanup(func() { session.Close() })
	return session
}

// callTool invokes a tool and returns the JSON text from the first TextContent.
func callTool(t *testing.T, session *mcp.ClientSession, name string, args any) string {
	t.Helper()
	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		t.Fatalf("CallTool(%s): %v", name, err)
	}
	if err := result.GetError(); err != nil {
		t.Fatalf("CallTool(%s) tool error: %v", name, err)
	}
	if len(result.Content) == 0 {
		t.Fatalf("CallTool(%s): empty content", name)
	}
	tc, ok := result.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("CallTool(%s): expected TextContent, got %T", name, result.Content[0])
	}
	return tc.Text
}

func TestMCP_ListTools(t *testing.T) {
	r, _ := testRouter(t)
	session := mcpSession(t, r)

	res, err := session.ListTools(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]bool{
		"formfill_trigger":       false,
		"formfill_profile_get":   false,
		"formfill_profile_entry": false,
		"formfill_profile_set":   false,
		"formfill_profile_clear": false,
	}
	for _, tool := range res.Tools {
		if _, ok := want[tool.Name]; ok {
			want[tool.Name] = true
		}
	}
	for name, seen := range want {
		if !seen {
			t.Errorf("tool %s not registered", name)
		}
	}
}

func TestMCP_ProfileAndTrigger(t *testing.T) {
	r, _ := testRouter(t)
	session := mcpSession(t, r)

	callTool(t, session, "formfill_profile_set", map[string]any{
		"entries": []map[string]string{
			{"key": "gender", "value": "female"},
			{"key": "email", "value": "a@b.com"},
		},
	})

	var got profileResponse
	if err := json.Unmarshal([]byte(callTool(t, session, "formfill_profile_get", map[string]any{})), &got); err != nil {
		t.Fatal(err)
	}
	if len(got.Entries) != 2 || got.Entries[0].Key != "gender" {
		t.Fatalf("entries: got %+v", got.Entries)
	}

	var entry profile.Entry
	if err := json.Unmarshal([]byte(callTool(t, session, "formfill_profile_entry", map[string]any{"key": "email"})), &entry); err != nil {
		t.Fatal(err)
	}
	if entry.Value != "a@b.com" {
		t.Errorf("entry: got %+v", entry)
	}

	text := callTool(t, session, "formfill_trigger", map[string]any{
		"action": "autofill",
		"html": `<form>
			<input type="radio" name="gender" value="male">
			<input type="radio" name="gender" value="female">
			<input name="email">
		</form>`,
	})
	var resp Response
	if err := json.Unmarshal([]byte(text), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Status != "completed" {
		t.Errorf("Status: got %q, want completed", resp.Status)
	}
	if resp.Result == nil || resp.Result.Filled != 2 {
		t.Errorf("Result: got %+v, want 2 filled", resp.Result)
	}

	text = callTool(t, session, "formfill_profile_clear", map[string]any{})
	if err := json.Unmarshal([]byte(text), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Status != "cleared" || resp.Count != 2 {
		t.Errorf("clear: got %q/%d", resp.Status, resp.Count)
	}
}

func TestMCP_TriggerError(t *testing.T) {
	r, _ := testRouter(t)
	session := mcpSession(t, r)

	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "formfill_trigger",
		Arguments: map[string]any{"action": "autofill", "url": "chrome://settings"},
	})
	if err != nil {
		t.Fatalf("CallTool: %v", err)
	}
	if !result.IsError {
		t.Error("expected a tool error for an internal page")
	}
}
