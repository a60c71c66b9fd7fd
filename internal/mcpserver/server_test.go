package mcpserver

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/kenaz-export/internal/testutil"
)

func testServer(t *testing.T, probe testutil.StaticProbe) (*Server, *testutil.Env) {
	t.Helper()
	env := testutil.NewEnv(t, map[string]string{
		"a.md":       "# Alpha\n\nSee [[b]].\n",
		"notes/b.md": "# Beta\n",
	}, probe)
	return New(env.Service), env
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no in-process call helper; dispatch to the handlers directly.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "list_documents":
		result, err = srv.listDocuments(ctx, req)
	case "set_active_document":
		result, err = srv.setActiveDocument(ctx, req)
	case "get_capabilities":
		result, err = srv.getCapabilities(ctx, req)
	case "can_export":
		result, err = srv.canExport(ctx, req)
	case "list_commands":
		result, err = srv.listCommands(ctx, req)
	case "run_command":
		result, err = srv.runCommand(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestListDocuments(t *testing.T) {
	srv, _ := testServer(t, nil)
	text := resultText(callTool(t, srv, "list_documents", map[string]interface{}{}))
	ia := strings.Index(text, `"a.md"`)
	ib := strings.Index(text, `"notes/b.md"`)
	if ia < 0 || ib < ia {
		t.Errorf("list = %s", text)
	}
}

func TestSetActiveDocument(t *testing.T) {
	srv, env := testServer(t, nil)

	r := callTool(t, srv, "set_active_document", map[string]interface{}{"path": "notes/b.md"})
	if text := resultText(r); text != "active: notes/b.md" {
		t.Errorf("result = %q", text)
	}
	if doc, ok := env.Workspace.Active(); !ok || doc.Path != "notes/b.md" {
		t.Errorf("active = %+v, %v", doc, ok)
	}

	r = callTool(t, srv, "set_active_document", map[string]interface{}{"path": "nope.md"})
	if !r.IsError {
		t.Error("expected error for missing document")
	}
	r = callTool(t, srv, "set_active_document", map[string]interface{}{})
	if !r.IsError {
		t.Error("expected error for missing path")
	}
}

func TestGetCapabilities(t *testing.T) {
	srv, _ := testServer(t, testutil.StaticProbe{"pandoc": "/opt/pandoc"})
	text := resultText(callTool(t, srv, "get_capabilities", map[string]interface{}{"refresh": true}))
	if !strings.Contains(text, "/opt/pandoc") {
		t.Errorf("capabilities = %s", text)
	}
}

func TestCanExport(t *testing.T) {
	srv, _ := testServer(t, nil)

	text := resultText(callTool(t, srv, "can_export", map[string]interface{}{"format": "html"}))
	if !strings.Contains(text, `"can_export": false`) {
		t.Errorf("no active document: %s", text)
	}

	callTool(t, srv, "set_active_document", map[string]interface{}{"path": "a.md"})
	text = resultText(callTool(t, srv, "can_export", map[string]interface{}{"format": "html"}))
	if !strings.Contains(text, `"can_export": true`) {
		t.Errorf("active document: %s", text)
	}

	if r := callTool(t, srv, "can_export", map[string]interface{}{"format": "bmp"}); !r.IsError {
		t.Error("expected error for unknown format")
	}
}

func TestRunCommand(t *testing.T) {
	srv, env := testServer(t, nil)

	if r := callTool(t, srv, "run_command", map[string]interface{}{"id": "export-all-html"}); !r.IsError {
		t.Fatal("command should be gated off without an active document")
	}

	callTool(t, srv, "set_active_document", map[string]interface{}{"path": "a.md"})
	text := resultText(callTool(t, srv, "list_commands", map[string]interface{}{}))
	if strings.Count(text, `"enabled": true`) != 2 {
		t.Errorf("commands = %s", text)
	}

	r := callTool(t, srv, "run_command", map[string]interface{}{"id": "export-all-html"})
	if resultText(r) != "started: export-all-html" {
		t.Fatalf("run = %q", resultText(r))
	}
	env.Commands.Wait()
	if _, err := os.Stat(filepath.Join(env.Vault, "html", "b.html")); err != nil {
		t.Errorf("b.html not exported: %v", err)
	}
}

func TestFormatGuide(t *testing.T) {
	srv, _ := testServer(t, nil)
	guide := FormatGuide(srv.svc.Formats())
	for _, want := range []string{"| html | .html | - | true |", "| pdf | .pdf | pandoc, latex engine | false |"} {
		if !strings.Contains(guide, want) {
			t.Errorf("guide missing %q", want)
		}
	}
}
