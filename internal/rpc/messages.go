package rpc

import "github.com/starford/storygraph/internal/models"

// Node is the wire form of a node. Only the id, title and content text
// travel over RPC.
type Node struct {
	ID    string `msgpack:"id"`
	Title string `msgpack:"title"`
	Text  string `msgpack:"text"`
}

func toNode(n *models.Node) *Node {
	return &Node{ID: n.ID.String(), Title: n.Title, Text: n.Content.Text}
}

type CreateNodeRequest struct {
	Title string `msgpack:"title"`
	Text  string `msgpack:"text"`
}

type FindNodeByIdRequest struct {
	ID string `msgpack:"id"`
}

type FindNodesByTitleRequest struct {
	Title string `msgpack:"title"`
}

type FindNodesByTitleResponse struct {
	Nodes []*Node `msgpack:"nodes"`
}

type UpdateNodeRequest struct {
	ID    string `msgpack:"id"`
	Title string `msgpack:"title"`
	Text  string `msgpack:"text"`
}

type DeleteNodeByIdRequest struct {
	ID string `msgpack:"id"`
}

// ForkNodeRequest creates a child of ParentID reached by ChoiceText.
type ForkNodeRequest struct {
	ParentID   string `msgpack:"parent_id"`
	Title      string `msgpack:"title"`
	Text       string `msgpack:"text"`
	ChoiceText string `msgpack:"choice_text"`
}

// LinkNodesRequest connects two existing nodes.
type LinkNodesRequest struct {
	ParentID   string `msgpack:"parent_id"`
	ChildID    string `msgpack:"child_id"`
	ChoiceText string `msgpack:"choice_text"`
}
