package rpc

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/starford/storygraph/internal/apperr"
	"github.com/starford/storygraph/internal/models"
	"github.com/starford/storygraph/internal/nodemanager"
)

// Handler serves NodeService on top of a nodemanager.Manager.
type Handler struct {
	mgr nodemanager.Manager
}

var _ NodeServiceServer = (*Handler)(nil)

// NewHandler creates a Handler.
func NewHandler(mgr nodemanager.Manager) *Handler {
	return &Handler{mgr: mgr}
}

func (h *Handler) CreateNode(ctx context.Context, in *CreateNodeRequest) (*Node, error) {
	node, err := h.mgr.Create(ctx, models.NodeDraft{Title: in.Title, Text: in.Text})
	if err != nil {
		return nil, toStatus(err)
	}
	return toNode(node), nil
}

func (h *Handler) FindNodeById(ctx context.Context, in *FindNodeByIdRequest) (*Node, error) {
	node, err := h.mgr.GetByID(ctx, in.ID)
	if err != nil {
		return nil, toStatus(err)
	}
	return toNode(node), nil
}

func (h *Handler) FindNodesByTitle(ctx context.Context, in *FindNodesByTitleRequest) (*FindNodesByTitleResponse, error) {
	nodes, err := h.mgr.FindByTitle(ctx, in.Title)
	if err != nil {
		return nil, toStatus(err)
	}
	resp := &FindNodesByTitleResponse{Nodes: make([]*Node, 0, len(nodes))}
	for i := range nodes {
		resp.Nodes = append(resp.Nodes, toNode(&nodes[i]))
	}
	return resp, nil
}

func (h *Handler) UpdateNode(ctx context.Context, in *UpdateNodeRequest) (*Node, error) {
	node, err := h.mgr.Update(ctx, in.ID, models.NodeDraft{Title: in.Title, Text: in.Text})
	if err != nil {
		return nil, toStatus(err)
	}
	return toNode(node), nil
}

func (h *Handler) DeleteNodeById(ctx context.Context, in *DeleteNodeByIdRequest) (*Node, error) {
	node, err := h.mgr.DeleteByID(ctx, in.ID)
	if err != nil {
		return nil, toStatus(err)
	}
	return toNode(node), nil
}

func (h *Handler) ForkNode(ctx context.Context, in *ForkNodeRequest) (*Node, error) {
	edge, err := h.mgr.Fork(ctx, in.ParentID, models.NodeDraft{Title: in.Title, Text: in.Text}, in.ChoiceText)
	if err != nil {
		return nil, toStatus(err)
	}
	return toNode(&edge.Child), nil
}

func (h *Handler) LinkNodes(ctx context.Context, in *LinkNodesRequest) (*Node, error) {
	edge, err := h.mgr.Link(ctx, in.ParentID, in.ChildID, in.ChoiceText)
	if err != nil {
		return nil, toStatus(err)
	}
	return toNode(&edge.Child), nil
}

// toStatus maps manager failures onto gRPC status codes.
func toStatus(err error) error {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, apperr.ErrInvalidArgument):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
