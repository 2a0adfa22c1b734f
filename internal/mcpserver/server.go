// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Anthra document and routing tools for LLM integration
// via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/clyqra/anthra/internal/contextsvc"
	"github.com/clyqra/anthra/internal/docs"
	"github.com/clyqra/anthra/internal/parser"
	"github.com/clyqra/anthra/internal/redact"
	"github.com/clyqra/anthra/internal/respond"
	"github.com/clyqra/anthra/internal/routing"
	"github.com/clyqra/anthra/internal/store"
)

// Server wraps the MCP server with Anthra tools.
type Server struct {
	mcp       *server.MCPServer
	store     store.Store
	assembler *contextsvc.Assembler
	writer    *respond.Writer
	engine    *routing.Engine
	redactor  *redact.Redactor
	docs      *docs.Manager
}

// New creates a new MCP server with all Anthra tools registered.
func New(s store.Store, assembler *contextsvc.Assembler, writer *respond.Writer,
	engine *routing.Engine, redactor *redact.Redactor, manager *docs.Manager) *Server {
	srv := &Server{
		store:     s,
		assembler: assembler,
		writer:    writer,
		engine:    engine,
		redactor:  redactor,
		docs:      manager,
	}

	srv.mcp = server.NewMCPServer(
		"Anthra",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	srv.mcp.AddTool(mcp.NewTool("get_context",
		mcp.WithDescription("Retrieve inherited context for a document query. "+
			"Automatically includes project, context type, and artifact context files. "+
			"Supports section extraction and temporal filtering."),
		mcp.WithString("project", mcp.Required(), mcp.Description("Project name (required)")),
		mcp.WithString("context_type", mcp.Description(`Context type name (e.g., "tech", "business", "journal")`)),
		mcp.WithString("artifact", mcp.Description(`Artifact name (e.g., "stripe-integration", "sprint-1")`)),
		mcp.WithString("document", mcp.Description(`Document filename (e.g., "standup-2026-02-05.md")`)),
		mcp.WithString("section", mcp.Description(`Section name within document (e.g., "Blockers")`)),
		mcp.WithNumber("max_age_days", mcp.Description("Only include documents updated within this many days (default: 7)")),
		mcp.WithBoolean("include_stale", mcp.Description("Include stale documents even if max_age_days is set")),
	), srv.getContext)

	srv.mcp.AddTool(mcp.NewTool("write_ai_reply",
		mcp.WithDescription("Write an AI response back into a document inline. "+
			"Formats as markdown blockquote with attribution. "+
			"Automatically finds the flagged item and inserts response after it."),
		mcp.WithString("path", mcp.Required(), mcp.Description(`Document path (e.g., "clyqra/journal/sprint-1/standup-2026-02-05.md")`)),
		mcp.WithString("item_text", mcp.Required(), mcp.Description("The specific flagged item text being responded to")),
		mcp.WithString("ai_model", mcp.Required(), mcp.Description("Which AI model is responding (cursor, claude, local)")),
		mcp.WithString("response", mcp.Required(), mcp.Description("The AI's response text")),
		mcp.WithString("routing_reason", mcp.Description("Why this model was chosen (rendered in the attribution block)")),
		mcp.WithNumber("routing_confidence", mcp.Description("Routing confidence, 0 to 1")),
	), srv.writeAIReply)

	srv.mcp.AddTool(mcp.NewTool("route_query",
		mcp.WithDescription("Determine which AI model should handle a query based on content analysis. "+
			"Returns routing decision with confidence and reasoning."),
		mcp.WithString("content", mcp.Required(), mcp.Description("The content to analyze (required)")),
		mcp.WithString("context", mcp.Description("Inherited context for additional signals")),
	), srv.routeQuery)

	srv.mcp.AddTool(mcp.NewTool("parse_flags",
		mcp.WithDescription("Find @ai flags in markdown content. Returns each flagged item with "+
			"its section, line number, model overrides, and surrounding context."),
		mcp.WithString("content", mcp.Required(), mcp.Description("Markdown content to scan")),
	), srv.parseFlags)

	srv.mcp.AddTool(mcp.NewTool("redact_content",
		mcp.WithDescription("Scrub emails and known names from content before sending it to an "+
			"external model. Returns the redacted text and a reversal map."),
		mcp.WithString("content", mcp.Required(), mcp.Description("Content to redact")),
		mcp.WithString("model", mcp.Description("Target model; local models skip redaction")),
	), srv.redactContent)

	srv.mcp.AddTool(mcp.NewTool("search_documents",
		mcp.WithDescription("Search across all documents in a project."),
		mcp.WithString("project", mcp.Required(), mcp.Description("Project name (required)")),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search terms")),
		mcp.WithNumber("max_results", mcp.Description("Maximum number of results (default: 20)")),
	), srv.searchDocuments)

	srv.mcp.AddTool(mcp.NewTool("analyze_patterns",
		mcp.WithDescription("Analyze routing history for queries the user consistently redirects "+
			"to a different model. Useful for tuning the routing lexicon."),
	), srv.analyzePatterns)

	srv.mcp.AddTool(mcp.NewTool("get_flag_contract",
		mcp.WithDescription("Returns the canonical @ai flag format contract. "+
			"Call this before flagging items or writing replies to ensure correct structure."),
	), srv.getFlagContract)

	// Resource: flag format contract.
	srv.mcp.AddResource(
		mcp.NewResource("anthra://flag-format", "AI Flag Format Contract",
			mcp.WithResourceDescription("Canonical @ai flag and reply block format for Anthra documents."),
			mcp.WithMIMEType("text/markdown"),
		),
		srv.readFlagFormatResource,
	)

	return srv
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// toolError wraps failures the way MCP clients expect to surface them.
func toolError(err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(fmt.Sprintf("❌ Error: %s", err.Error()))
}

// floatArg extracts a numeric argument from a tool request, returning
// defaultVal if the key is missing or not a number (JSON numbers are float64).
func floatArg(req mcp.CallToolRequest, key string, defaultVal float64) float64 {
	v, ok := req.GetArguments()[key].(float64)
	if !ok {
		return defaultVal
	}
	return v
}

// boolArg extracts a boolean argument from a tool request.
func boolArg(req mcp.CallToolRequest, key string, defaultVal bool) bool {
	v, ok := req.GetArguments()[key].(bool)
	if !ok {
		return defaultVal
	}
	return v
}

func (s *Server) getContext(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	project, err := req.RequireString("project")
	if err != nil {
		return toolError(err), nil
	}

	q := contextsvc.Query{
		Project:      project,
		ContextType:  req.GetString("context_type", ""),
		Artifact:     req.GetString("artifact", ""),
		Document:     req.GetString("document", ""),
		Section:      req.GetString("section", ""),
		IncludeStale: boolArg(req, "include_stale", false),
	}
	if v := floatArg(req, "max_age_days", 0); v != 0 {
		days := int(v)
		q.MaxAgeDays = &days
	}

	result, err := s.assembler.GetContext(q)
	if err != nil {
		return toolError(err), nil
	}
	if result == nil {
		return toolError(fmt.Errorf("Project %q not found", project)), nil
	}

	formatted := contextsvc.FormatForAI(result)
	return mcp.NewToolResultText(fmt.Sprintf("**Context for:** %s\n\n%s", result.Path, formatted)), nil
}

func (s *Server) writeAIReply(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return toolError(err), nil
	}
	itemText, err := req.RequireString("item_text")
	if err != nil {
		return toolError(err), nil
	}
	aiModel, err := req.RequireString("ai_model")
	if err != nil {
		return toolError(err), nil
	}
	response, err := req.RequireString("response")
	if err != nil {
		return toolError(err), nil
	}

	loaded, err := s.docs.LoadByPath(path)
	if err != nil {
		return toolError(err), nil
	}

	var info *respond.RoutingInfo
	reason := req.GetString("routing_reason", "")
	confidence := floatArg(req, "routing_confidence", 0)
	if reason != "" || confidence != 0 {
		info = &respond.RoutingInfo{Reason: reason}
		if confidence != 0 {
			c := confidence
			info.Confidence = &c
		}
	}

	result, err := s.writer.WriteResponse(respond.Input{
		ArtifactID:  loaded.Document.ArtifactID,
		Filename:    loaded.Document.Filename,
		ItemText:    itemText,
		AIModel:     aiModel,
		Response:    response,
		RoutingInfo: info,
	})
	if err != nil {
		return toolError(err), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("✅ AI response written to document at line %d", result.InsertedAtLine)), nil
}

func (s *Server) routeQuery(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	content, err := req.RequireString("content")
	if err != nil {
		return toolError(err), nil
	}

	decision := s.engine.Route(content, req.GetString("context", ""))
	if err := s.engine.LogPattern(content, decision.Model, "", decision.Confidence); err != nil {
		slog.Warn("log routing pattern failed", slog.String("error", err.Error()))
	}

	text := fmt.Sprintf("**Routing Decision:**\n- Model: %s\n- Confidence: %.0f%%\n- Reason: %s",
		decision.Model, decision.Confidence*100, decision.Reason)
	if decision.ShouldAskUser {
		text += "\n- ⚠️ User confirmation recommended"
	}
	return mcp.NewToolResultText(text), nil
}

func (s *Server) parseFlags(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	content, err := req.RequireString("content")
	if err != nil {
		return toolError(err), nil
	}
	flags := parser.ParseAIFlags(content)
	out, _ := json.MarshalIndent(flags, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) redactContent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	content, err := req.RequireString("content")
	if err != nil {
		return toolError(err), nil
	}

	model := req.GetString("model", "")
	if model != "" && !redact.ForModel(model) {
		out, _ := json.MarshalIndent(map[string]any{
			"content":  content,
			"mappings": map[string]string{},
			"redacted": false,
		}, "", "  ")
		return mcp.NewToolResultText(string(out)), nil
	}

	redacted, mappings := s.redactor.RedactPII(content, redact.Options{})
	out, _ := json.MarshalIndent(map[string]any{
		"content":  redacted,
		"mappings": mappings,
		"redacted": true,
	}, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) searchDocuments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectName, err := req.RequireString("project")
	if err != nil {
		return toolError(err), nil
	}
	query, err := req.RequireString("query")
	if err != nil {
		return toolError(err), nil
	}

	project, err := s.store.ProjectByName(projectName)
	if err != nil {
		return toolError(err), nil
	}
	if project == nil {
		return toolError(fmt.Errorf("Project %q not found", projectName)), nil
	}

	limit := int(floatArg(req, "max_results", 20))
	results, err := s.store.SearchDocuments(project.ID, query, limit)
	if err != nil {
		return toolError(err), nil
	}
	if len(results) == 0 {
		return mcp.NewToolResultText("no matching documents"), nil
	}
	out, _ := json.MarshalIndent(results, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) analyzePatterns(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	overrides, err := s.engine.LearnFromHistory()
	if err != nil {
		return toolError(err), nil
	}
	if len(overrides) == 0 {
		return mcp.NewToolResultText("no consistent overrides found"), nil
	}
	out, _ := json.MarshalIndent(overrides, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getFlagContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(FlagFormatContract), nil
}

func (s *Server) readFlagFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "anthra://flag-format",
			MIMEType: "text/markdown",
			Text:     FlagFormatContract,
		},
	}, nil
}
