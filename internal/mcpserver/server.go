// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the export tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/kenaz-export/internal/apperr"
	"github.com/starford/kenaz-export/internal/exportservice"
)

// Server wraps the MCP server with the export tools.
type Server struct {
	mcp *server.MCPServer
	svc *exportservice.Service
}

// New creates a new MCP server with all tools registered.
func New(svc *exportservice.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"kenaz-export",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_documents",
		mcp.WithDescription("List every exportable document in the vault, in export order."),
	), s.listDocuments)

	s.mcp.AddTool(mcp.NewTool("set_active_document",
		mcp.WithDescription("Make a document the active one. Commands and eligibility checks act on the active document."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Vault-relative path (e.g. folder/note.md)")),
	), s.setActiveDocument)

	s.mcp.AddTool(mcp.NewTool("get_capabilities",
		mcp.WithDescription("Show which external tools were found and which formats they enable."),
		mcp.WithBoolean("refresh", mcp.Description("Probe the tools again before answering")),
	), s.getCapabilities)

	s.mcp.AddTool(mcp.NewTool("can_export",
		mcp.WithDescription("Check whether the active document can be exported in a format."),
		mcp.WithString("format", mcp.Required(), mcp.Description("Format name, e.g. html, map, docx, pdf")),
	), s.canExport)

	s.mcp.AddTool(mcp.NewTool("list_commands",
		mcp.WithDescription("List the batch export commands and whether each can run now."),
	), s.listCommands)

	s.mcp.AddTool(mcp.NewTool("run_command",
		mcp.WithDescription("Start a batch export command in the background. Results are reported as notices."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Command id from list_commands")),
	), s.runCommand)

	s.mcp.AddResource(
		mcp.NewResource(FormatGuideURI, "Export Formats",
			mcp.WithResourceDescription("Output formats, their file naming and required tools."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readFormatGuide,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listDocuments(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	items, err := s.svc.ListDocuments(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(items)
}

func (s *Server) setActiveDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	item, err := s.svc.SetActive(ctx, path)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("active: %s", item.Path)), nil
}

func (s *Server) getCapabilities(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if req.GetBool("refresh", false) {
		view, err := s.svc.RefreshCapabilities(ctx)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(view)
	}
	return jsonResult(s.svc.Capabilities())
}

func (s *Server) canExport(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("format")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	el, err := s.svc.Eligibility(name)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(el)
}

func (s *Server) listCommands(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.svc.Commands(ctx))
}

func (s *Server) runCommand(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.svc.RunCommand(ctx, id); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("started: %s", id)), nil
}

func (s *Server) readFormatGuide(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      FormatGuideURI,
			MIMEType: "text/markdown",
			Text:     FormatGuide(s.svc.Formats()),
		},
	}, nil
}
