// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes one editor workspace as tools over stdio transport.
package mcpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/scratchpad/internal/models"
	"github.com/starford/scratchpad/internal/runlog"
	"github.com/starford/scratchpad/internal/runner"
	"github.com/starford/scratchpad/internal/storage"
	"github.com/starford/scratchpad/internal/workspace"
)

const runFormatURI = "scratchpad://run-format"

// Server wraps the MCP server with workspace tools.
type Server struct {
	mcp    *server.MCPServer
	ws     *workspace.Workspace
	runner runner.Runner
	runs   *runlog.DB
}

// New creates a new MCP server bound to ws. Runs go through r. runs may be
// nil, in which case list_runs is not registered.
func New(ws *workspace.Workspace, r runner.Runner, runs *runlog.DB) *Server {
	s := &Server{ws: ws, runner: r, runs: runs}

	s.mcp = server.NewMCPServer(
		"Scratchpad",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_tree",
		mcp.WithDescription("Return the workspace tree as JSON (name, kind, path, mode, children)."),
	), s.listTree)

	s.mcp.AddTool(mcp.NewTool("create_node",
		mcp.WithDescription("Create a file, or a directory when the name ends with '/'. "+
			"A new file becomes the active buffer."),
		mcp.WithString("parent", mcp.Description("Path of the parent directory (empty for the root)")),
		mcp.WithString("name", mcp.Required(), mcp.Description("Name of the new node, e.g. main.go or src/")),
	), s.createNode)

	s.mcp.AddTool(mcp.NewTool("delete_node",
		mcp.WithDescription("Delete a file, or a directory together with everything beneath it. "+
			"Directories require confirm=true."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path of the node to delete")),
		mcp.WithBoolean("confirm", mcp.Description("Confirm irreversible directory deletion")),
	), s.deleteNode)

	s.mcp.AddTool(mcp.NewTool("read_file",
		mcp.WithDescription("Make a file the active buffer and return its content."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path of the file, e.g. src/main.go")),
	), s.readFile)

	s.mcp.AddTool(mcp.NewTool("write_file",
		mcp.WithDescription("Replace the text of a file, creating it and any parent directories when missing."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path of the file")),
		mcp.WithString("content", mcp.Required(), mcp.Description("New content")),
	), s.writeFile)

	s.mcp.AddTool(mcp.NewTool("import_dir",
		mcp.WithDescription("Load every regular file of a local directory into the workspace."),
		mcp.WithString("dir", mcp.Required(), mcp.Description("Local directory to import")),
	), s.importDir)

	s.mcp.AddTool(mcp.NewTool("run",
		mcp.WithDescription("Run a command against the workspace's files and return the output. "+
			"Read the "+runFormatURI+" resource for the request format."),
		mcp.WithString("cmd", mcp.Required(), mcp.Description("Command line, e.g. 'go run .'")),
	), s.run)

	if runs != nil {
		s.mcp.AddTool(mcp.NewTool("list_runs",
			mcp.WithDescription("List recent runs of this workspace, newest first."),
		), s.listRuns)
	}

	s.mcp.AddResource(
		mcp.NewResource(runFormatURI, "Run Request Format",
			mcp.WithResourceDescription("How workspace files are posted for execution."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readRunFormatResource,
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

func jsonResult(v any) *mcp.CallToolResult {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultText(string(out))
}

func (s *Server) listTree(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.ws.Tree()), nil
}

func (s *Server) createNode(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	parent := req.GetString("parent", "")

	p, kind, err := s.ws.CreateFromInput(parent, name)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created %s: %s", kind, p)), nil
}

func (s *Server) deleteNode(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.ws.Delete(path, req.GetBool("confirm", false)); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("deleted: %s", path)), nil
}

func (s *Server) readFile(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	view, err := s.ws.Select(path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(view.Content), nil
}

func (s *Server) writeFile(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.ws.WriteFile(path, content); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("written: %s (%d bytes)", path, len(content))), nil
}

func (s *Server) importDir(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	dir, err := req.RequireString("dir")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	fsys, err := storage.NewFS(dir, storage.WithSkipDirs(".git"))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	n, err := workspace.Import(s.ws, fsys, "")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("imported %d files", n)), nil
}

func (s *Server) run(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cmd, err := req.RequireString("cmd")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var out bytes.Buffer
	outcome := s.runner.Run(ctx, models.RunRequest{Cmd: cmd, Files: s.ws.Snapshot()}, &out)
	if outcome.Status != runner.StatusCompleted {
		return mcp.NewToolResultError(strings.TrimSpace(out.String())), nil
	}
	return mcp.NewToolResultText(out.String()), nil
}

func (s *Server) listRuns(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	entries, err := s.runs.List(ctx, s.ws.ID(), 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(entries), nil
}

func (s *Server) readRunFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      runFormatURI,
			MIMEType: "text/markdown",
			Text:     RunFormat,
		},
	}, nil
}
