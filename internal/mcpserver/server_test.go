package mcpserver

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/clyqra/anthra/internal/contextsvc"
	"github.com/clyqra/anthra/internal/docs"
	"github.com/clyqra/anthra/internal/models"
	"github.com/clyqra/anthra/internal/redact"
	"github.com/clyqra/anthra/internal/respond"
	"github.com/clyqra/anthra/internal/routing"
	"github.com/clyqra/anthra/internal/store"
	"github.com/clyqra/anthra/internal/testutil"
)

func testServer(t *testing.T) (*Server, *store.DB) {
	t.Helper()

	db := testutil.TestDB(t)
	now := func() time.Time { return time.Date(2026, 2, 5, 15, 4, 0, 0, time.UTC) }

	srv := New(
		db,
		contextsvc.NewAssembler(db, now),
		respond.NewWriter(db, now),
		routing.NewEngine(routing.DefaultLexicon(), db),
		redact.New(redact.DefaultNames()),
		docs.NewManager(db, now),
	)
	return srv, db
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no "call tool" test helper; invoke the handlers directly.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "get_context":
		result, err = srv.getContext(ctx, req)
	case "write_ai_reply":
		result, err = srv.writeAIReply(ctx, req)
	case "route_query":
		result, err = srv.routeQuery(ctx, req)
	case "parse_flags":
		result, err = srv.parseFlags(ctx, req)
	case "redact_content":
		result, err = srv.redactContent(ctx, req)
	case "search_documents":
		result, err = srv.searchDocuments(ctx, req)
	case "analyze_patterns":
		result, err = srv.analyzePatterns(ctx, req)
	case "get_flag_contract":
		result, err = srv.getFlagContract(ctx, req)
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

func seedDocument(t *testing.T, db *store.DB, content string) {
	t.Helper()
	p, err := db.CreateProject("clyqra")
	if err != nil {
		t.Fatal(err)
	}
	ct, err := db.CreateContextType(p.ID, "journal")
	if err != nil {
		t.Fatal(err)
	}
	a, err := db.CreateArtifact(ct.ID, "sprint-1", models.StatusActive)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.CreateDocument(a.ID, "standup.md", content, ""); err != nil {
		t.Fatal(err)
	}
}

func TestGetContextTool(t *testing.T) {
	srv, db := testServer(t)
	seedDocument(t, db, "## Blockers\n\n- waiting on keys\n")

	r := callTool(t, srv, "get_context", map[string]interface{}{
		"project":      "clyqra",
		"context_type": "journal",
		"artifact":     "sprint-1",
		"document":     "standup.md",
	})
	text := resultText(r)
	if !strings.HasPrefix(text, "**Context for:** clyqra/journal/sprint-1/standup.md") {
		t.Errorf("text = %q", text)
	}
	if !strings.Contains(text, "waiting on keys") {
		t.Errorf("document content missing: %q", text)
	}
}

func TestGetContextTool_UnknownProject(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "get_context", map[string]interface{}{"project": "ghost"})
	if !r.IsError {
		t.Fatal("expected error result")
	}
	if got := resultText(r); got != `❌ Error: Project "ghost" not found` {
		t.Errorf("text = %q", got)
	}
}

func TestWriteAIReplyTool(t *testing.T) {
	srv, db := testServer(t)
	seedDocument(t, db, "## Blockers\n\n- waiting on keys @ai:claude\n")

	r := callTool(t, srv, "write_ai_reply", map[string]interface{}{
		"path":               "clyqra/journal/sprint-1/standup.md",
		"item_text":          "- waiting on keys @ai:claude",
		"ai_model":           "claude",
		"response":           "Rotate them.",
		"routing_reason":     "business keywords",
		"routing_confidence": 0.8,
	})
	text := resultText(r)
	if !strings.HasPrefix(text, "✅ AI response written to document at line ") {
		t.Errorf("text = %q", text)
	}

	loaded, err := docs.NewManager(db, nil).LoadByPath("clyqra/journal/sprint-1/standup.md")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(loaded.Document.Content, "> **AI (Claude, 02/05/2026, 03:04 PM):**") {
		t.Errorf("reply missing:\n%s", loaded.Document.Content)
	}
	if !strings.Contains(loaded.Document.Content, "> *business keywords*") {
		t.Errorf("reason missing:\n%s", loaded.Document.Content)
	}
}

func TestWriteAIReplyTool_BadPath(t *testing.T) {
	srv, db := testServer(t)
	seedDocument(t, db, "- x\n")

	r := callTool(t, srv, "write_ai_reply", map[string]interface{}{
		"path":      "not-a-path",
		"item_text": "- x",
		"ai_model":  "claude",
		"response":  "y",
	})
	if !r.IsError {
		t.Fatal("expected error result")
	}
	if !strings.HasPrefix(resultText(r), "❌ Error: Invalid path format.") {
		t.Errorf("text = %q", resultText(r))
	}
}

func TestRouteQueryTool(t *testing.T) {
	srv, db := testServer(t)

	r := callTool(t, srv, "route_query", map[string]interface{}{
		"content": "We hit a webpack bug and typescript error in the build",
	})
	text := resultText(r)
	if !strings.Contains(text, "**Routing Decision:**") || !strings.Contains(text, "- Model: cursor") {
		t.Errorf("text = %q", text)
	}
	if !strings.Contains(text, "⚠️ User confirmation recommended") {
		t.Errorf("low confidence should recommend confirmation: %q", text)
	}

	patterns, err := db.RecentRoutingPatterns(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(patterns) != 1 {
		t.Errorf("patterns = %d, want logged decision", len(patterns))
	}
}

func TestRouteQueryTool_PatternLogFailureTolerated(t *testing.T) {
	db := testutil.TestDB(t)
	srv := New(
		db,
		contextsvc.NewAssembler(db, nil),
		respond.NewWriter(db, nil),
		routing.NewEngine(routing.DefaultLexicon(), nil),
		redact.New(redact.DefaultNames()),
		docs.NewManager(db, nil),
	)

	// No pattern store wired, so logging fails; the decision must
	// still come back as a normal result.
	r := callTool(t, srv, "route_query", map[string]interface{}{
		"content": "We hit a webpack bug and typescript error in the build",
	})
	if r.IsError {
		t.Fatalf("route_query should not fail: %q", resultText(r))
	}
	if !strings.Contains(resultText(r), "- Model: cursor") {
		t.Errorf("text = %q", resultText(r))
	}
}

func TestParseFlagsTool(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "parse_flags", map[string]interface{}{
		"content": "## Blockers\n- Waiting on API keys @ai:claude\n",
	})
	text := resultText(r)
	for _, want := range []string{`"section": "Blockers"`, `"model_override": "claude"`, `"line_number": 2`} {
		if !strings.Contains(text, want) {
			t.Errorf("missing %s in %q", want, text)
		}
	}
}

func TestRedactContentTool(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "redact_content", map[string]interface{}{
		"content": "mail anna@example.com",
		"model":   "claude",
	})
	text := resultText(r)
	if !strings.Contains(text, "{{user_email_1}}") || !strings.Contains(text, `"redacted": true`) {
		t.Errorf("text = %q", text)
	}

	r = callTool(t, srv, "redact_content", map[string]interface{}{
		"content": "mail anna@example.com",
		"model":   "local",
	})
	text = resultText(r)
	if !strings.Contains(text, "anna@example.com") || !strings.Contains(text, `"redacted": false`) {
		t.Errorf("local should pass through: %q", text)
	}
}

func TestSearchDocumentsTool(t *testing.T) {
	srv, db := testServer(t)
	seedDocument(t, db, "webpack is broken")

	r := callTool(t, srv, "search_documents", map[string]interface{}{
		"project": "clyqra",
		"query":   "webpack",
	})
	if !strings.Contains(resultText(r), "clyqra/journal/sprint-1/standup.md") {
		t.Errorf("text = %q", resultText(r))
	}

	r = callTool(t, srv, "search_documents", map[string]interface{}{
		"project": "clyqra",
		"query":   "nothing-like-this",
	})
	if got := resultText(r); got != "no matching documents" {
		t.Errorf("text = %q", got)
	}
}

func TestAnalyzePatternsTool(t *testing.T) {
	srv, db := testServer(t)

	r := callTool(t, srv, "analyze_patterns", map[string]interface{}{})
	if got := resultText(r); got != "no consistent overrides found" {
		t.Errorf("text = %q", got)
	}

	for i := 0; i < 4; i++ {
		if err := db.CreateRoutingPattern(models.RoutingPattern{
			ContentPattern:  "webpack build fails",
			SuggestedModel:  "claude",
			CorrectedModel:  "cursor",
			ConfidenceScore: 0.5,
		}); err != nil {
			t.Fatal(err)
		}
	}

	r = callTool(t, srv, "analyze_patterns", map[string]interface{}{})
	if !strings.Contains(resultText(r), `"webpack build fails": "cursor"`) {
		t.Errorf("text = %q", resultText(r))
	}
}

func TestGetFlagContractTool(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "get_flag_contract", map[string]interface{}{})
	if !strings.Contains(resultText(r), "# Anthra AI Flag Format Contract") {
		t.Errorf("text = %q", resultText(r))
	}
}

func TestReadFlagFormatResource(t *testing.T) {
	srv, _ := testServer(t)

	contents, err := srv.readFlagFormatResource(context.Background(), mcp.ReadResourceRequest{})
	if err != nil {
		t.Fatal(err)
	}
	if len(contents) != 1 {
		t.Fatalf("contents = %d", len(contents))
	}
	tc, ok := contents[0].(mcp.TextResourceContents)
	if !ok {
		t.Fatalf("contents[0] = %T", contents[0])
	}
	if tc.URI != "anthra://flag-format" || !strings.Contains(tc.Text, "@ai") {
		t.Errorf("resource = %+v", tc)
	}
}
