// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the story graph as tools for LLM clients via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/storygraph/internal/models"
	"github.com/starford/storygraph/internal/nodemanager"
	"github.com/starford/storygraph/internal/storage"
)

// GuideURI is the resource holding the authoring guide.
const GuideURI = "storygraph://guide"

// Server wraps the MCP server with story graph tools.
type Server struct {
	mcp           *server.MCPServer
	mgr           nodemanager.Manager
	illustrations storage.Provider
}

// New creates a new MCP server with all tools registered.
func New(mgr nodemanager.Manager, illustrations storage.Provider) *Server {
	s := &Server{mgr: mgr, illustrations: illustrations}

	s.mcp = server.NewMCPServer(
		"storygraph",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("create_node",
		mcp.WithDescription("Create a story node. Returns the node with its generated id."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Node title, must not be blank")),
		mcp.WithString("text", mcp.Description("Passage text, at most 1000 characters")),
		mcp.WithString("illustration", mcp.Description("File name returned by upload_illustration")),
	), s.createNode)

	s.mcp.AddTool(mcp.NewTool("get_node",
		mcp.WithDescription("Read one node by id."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Node id (UUID)")),
	), s.getNode)

	s.mcp.AddTool(mcp.NewTool("find_nodes",
		mcp.WithDescription("List every node whose title equals the given title exactly."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Exact title")),
	), s.findNodes)

	s.mcp.AddTool(mcp.NewTool("update_node",
		mcp.WithDescription("Replace the title and text of a node. The id and content id stay the same."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Node id (UUID)")),
		mcp.WithString("title", mcp.Required(), mcp.Description("New title")),
		mcp.WithString("text", mcp.Description("New passage text")),
		mcp.WithString("illustration", mcp.Description("New illustration file name; omit to keep the current one, empty to clear it")),
	), s.updateNode)

	s.mcp.AddTool(mcp.NewTool("delete_node",
		mcp.WithDescription("Delete a node together with its content and every edge touching it."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Node id (UUID)")),
	), s.deleteNode)

	s.mcp.AddTool(mcp.NewTool("fork_node",
		mcp.WithDescription("Create a new child node and a choice edge from an existing parent in one step."),
		mcp.WithString("parent_id", mcp.Required(), mcp.Description("Parent node id")),
		mcp.WithString("title", mcp.Required(), mcp.Description("Title of the new node")),
		mcp.WithString("text", mcp.Description("Passage text of the new node")),
		mcp.WithString("choice_text", mcp.Required(), mcp.Description("Label of the choice leading to the new node")),
	), s.forkNode)

	s.mcp.AddTool(mcp.NewTool("link_nodes",
		mcp.WithDescription("Add a choice edge between two existing nodes. Cycles are allowed."),
		mcp.WithString("parent_id", mcp.Required(), mcp.Description("Node the choice starts from")),
		mcp.WithString("child_id", mcp.Required(), mcp.Description("Node the choice leads to")),
		mcp.WithString("choice_text", mcp.Required(), mcp.Description("Label of the choice")),
	), s.linkNodes)

	s.mcp.AddTool(mcp.NewTool("list_children",
		mcp.WithDescription("List the choices leaving a node."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Node id (UUID)")),
	), s.listChildren)

	s.mcp.AddTool(mcp.NewTool("list_parents",
		mcp.WithDescription("List the choices arriving at a node."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Node id (UUID)")),
	), s.listParents)

	s.mcp.AddTool(mcp.NewTool("upload_illustration",
		mcp.WithDescription("Store an image from an http(s) URL or a base64 data URI. "+
			"Returns the file name to pass as the illustration of a node."),
		mcp.WithString("url", mcp.Required(), mcp.Description("http(s) URL or data:image/...;base64,... URI")),
		mcp.WithString("filename", mcp.Description("Optional file name; derived from the URL when omitted")),
	), s.uploadIllustration)

	s.mcp.AddTool(mcp.NewTool("get_guide",
		mcp.WithDescription("Returns the story graph authoring guide. Read it before editing the graph."),
	), s.getGuide)

	s.mcp.AddResource(
		mcp.NewResource(GuideURI, "Story Graph Guide",
			mcp.WithResourceDescription("How nodes, content and choices fit together."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readGuideResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

// optionalString returns the argument and whether it was supplied at all.
func optionalString(req mcp.CallToolRequest, key string) (*string, bool) {
	v, ok := req.GetArguments()[key]
	if !ok {
		return nil, false
	}
	s, ok := v.(string)
	if !ok {
		return nil, false
	}
	return &s, true
}

func (s *Server) createNode(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	draft := models.NodeDraft{Title: title, Text: req.GetString("text", "")}
	draft.Illustration, _ = optionalString(req, "illustration")
	node, err := s.mgr.Create(ctx, draft)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(node)
}

func (s *Server) getNode(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	node, err := s.mgr.GetByID(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(node)
}

func (s *Server) findNodes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	nodes, err := s.mgr.FindByTitle(ctx, title)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(nodes) == 0 {
		return mcp.NewToolResultText("no nodes found"), nil
	}
	return jsonResult(nodes)
}

func (s *Server) updateNode(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	draft := models.NodeDraft{Title: title, Text: req.GetString("text", "")}
	draft.Illustration, _ = optionalString(req, "illustration")
	node, err := s.mgr.Update(ctx, id, draft)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(node)
}

func (s *Server) deleteNode(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	node, err := s.mgr.DeleteByID(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(node)
}

func (s *Server) forkNode(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	parentID, err := req.RequireString("parent_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	choice, err := req.RequireString("choice_text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	edge, err := s.mgr.Fork(ctx, parentID, models.NodeDraft{Title: title, Text: req.GetString("text", "")}, choice)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(edge)
}

func (s *Server) linkNodes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	parentID, err := req.RequireString("parent_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	childID, err := req.RequireString("child_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	choice, err := req.RequireString("choice_text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	edge, err := s.mgr.Link(ctx, parentID, childID, choice)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(edge)
}

func (s *Server) listChildren(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.listEdges(ctx, req, s.mgr.Children)
}

func (s *Server) listParents(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.listEdges(ctx, req, s.mgr.Parents)
}

func (s *Server) listEdges(ctx context.Context, req mcp.CallToolRequest, list func(context.Context, string) ([]models.Edge, error)) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	edges, err := list(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(edges) == 0 {
		return mcp.NewToolResultText("no choices found"), nil
	}
	return jsonResult(edges)
}

func (s *Server) getGuide(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(Guide), nil
}

func (s *Server) readGuideResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      GuideURI,
			MIMEType: "text/markdown",
			Text:     Guide,
		},
	}, nil
}
