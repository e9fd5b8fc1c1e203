// Package nodemanager implements the transactional operations on the story
// graph: create, read, update, delete, fork and link.
package nodemanager

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/starford/storygraph/internal/apperr"
	"github.com/starford/storygraph/internal/idgen"
	"github.com/starford/storygraph/internal/models"
	"github.com/starford/storygraph/internal/store"
)

// Manager is the operation set exposed to every protocol adapter.
type Manager interface {
	Create(ctx context.Context, draft models.NodeDraft) (*models.Node, error)
	GetByID(ctx context.Context, id string) (*models.Node, error)
	FindByTitle(ctx context.Context, title string) ([]models.Node, error)
	Update(ctx context.Context, id string, draft models.NodeDraft) (*models.Node, error)
	DeleteByID(ctx context.Context, id string) (*models.Node, error)
	// Fork creates a child node from draft and links it from fromID in one
	// transaction.
	Fork(ctx context.Context, fromID string, draft models.NodeDraft, choice string) (*models.Edge, error)
	// Link connects two existing nodes.
	Link(ctx context.Context, fromID, toID, choice string) (*models.Edge, error)
	Children(ctx context.Context, id string) ([]models.Edge, error)
	Parents(ctx context.Context, id string) ([]models.Edge, error)
}

// Store is the persistence the Service depends on. *store.DB implements it.
type Store interface {
	Update(ctx context.Context, fn func(store.Tx) error) error
	View(ctx context.Context, fn func(store.Reader) error) error
}

// Service is the Manager backed by a Store. It holds no mutable state and is
// safe for concurrent use.
type Service struct {
	store Store
	now   func() time.Time
}

var _ Manager = (*Service)(nil)

// NewService creates a Service over st.
func NewService(st Store) *Service {
	return &Service{
		store: st,
		now:   func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	}
}

func (s *Service) Create(ctx context.Context, draft models.NodeDraft) (*models.Node, error) {
	if err := validateDraft(draft); err != nil {
		return nil, err
	}
	node := s.newNode(draft)
	err := s.store.Update(ctx, func(tx store.Tx) error {
		return tx.InsertNode(ctx, node)
	})
	if err != nil {
		return nil, fmt.Errorf("nodemanager: create: %w", err)
	}
	return node, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (*models.Node, error) {
	nodeID, err := idgen.Parse(id)
	if err != nil {
		return nil, err
	}
	var node *models.Node
	err = s.store.View(ctx, func(r store.Reader) error {
		var err error
		node, err = r.GetNode(ctx, nodeID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("nodemanager: get: %w", err)
	}
	return node, nil
}

func (s *Service) FindByTitle(ctx context.Context, title string) ([]models.Node, error) {
	var nodes []models.Node
	err := s.store.View(ctx, func(r store.Reader) error {
		var err error
		nodes, err = r.FindNodesByTitle(ctx, title)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("nodemanager: find by title: %w", err)
	}
	return nonNilSlice(nodes), nil
}

// Update rewrites title and text. The node keeps its id and its content row.
func (s *Service) Update(ctx context.Context, id string, draft models.NodeDraft) (*models.Node, error) {
	if err := validateDraft(draft); err != nil {
		return nil, err
	}
	nodeID, err := idgen.Parse(id)
	if err != nil {
		return nil, err
	}

	var node *models.Node
	err = s.store.Update(ctx, func(tx store.Tx) error {
		var err error
		if node, err = tx.GetNode(ctx, nodeID); err != nil {
			return err
		}
		node.Title = draft.Title
		node.Content.Text = draft.Text
		if draft.Illustration != nil {
			node.Content.Illustration = *draft.Illustration
		}
		node.UpdatedAt = s.now()
		return tx.UpdateNode(ctx, node)
	})
	if err != nil {
		return nil, fmt.Errorf("nodemanager: update: %w", err)
	}
	return node, nil
}

// DeleteByID removes the node and returns it as it was. Content and edges
// touching the node are removed with it.
func (s *Service) DeleteByID(ctx context.Context, id string) (*models.Node, error) {
	nodeID, err := idgen.Parse(id)
	if err != nil {
		return nil, err
	}

	var node *models.Node
	err = s.store.Update(ctx, func(tx store.Tx) error {
		var err error
		if node, err = tx.GetNode(ctx, nodeID); err != nil {
			return err
		}
		return tx.DeleteNode(ctx, nodeID)
	})
	if err != nil {
		return nil, fmt.Errorf("nodemanager: delete: %w", err)
	}
	return node, nil
}

func (s *Service) Fork(ctx context.Context, fromID string, draft models.NodeDraft, choice string) (*models.Edge, error) {
	if err := validateDraft(draft); err != nil {
		return nil, err
	}
	if err := validateChoice(choice); err != nil {
		return nil, err
	}
	parentID, err := idgen.Parse(fromID)
	if err != nil {
		return nil, err
	}

	var edge *models.Edge
	err = s.store.Update(ctx, func(tx store.Tx) error {
		parent, err := tx.GetNode(ctx, parentID)
		if err != nil {
			return err
		}
		child := s.newNode(draft)
		if err := tx.InsertNode(ctx, child); err != nil {
			return err
		}
		edge = &models.Edge{ChoiceText: choice, Parent: *parent, Child: *child}
		return tx.InsertEdge(ctx, edge)
	})
	if err != nil {
		return nil, fmt.Errorf("nodemanager: fork: %w", err)
	}
	return edge, nil
}

func (s *Service) Link(ctx context.Context, fromID, toID, choice string) (*models.Edge, error) {
	if err := validateChoice(choice); err != nil {
		return nil, err
	}
	parentID, err := idgen.Parse(fromID)
	if err != nil {
		return nil, err
	}
	childID, err := idgen.Parse(toID)
	if err != nil {
		return nil, err
	}

	var edge *models.Edge
	err = s.store.Update(ctx, func(tx store.Tx) error {
		parent, err := tx.GetNode(ctx, parentID)
		if err != nil {
			return err
		}
		child, err := tx.GetNode(ctx, childID)
		if err != nil {
			return err
		}
		edge = &models.Edge{ChoiceText: choice, Parent: *parent, Child: *child}
		return tx.InsertEdge(ctx, edge)
	})
	if err != nil {
		return nil, fmt.Errorf("nodemanager: link: %w", err)
	}
	return edge, nil
}

// Children returns the edges leaving the node.
func (s *Service) Children(ctx context.Context, id string) ([]models.Edge, error) {
	return s.edges(ctx, "children", id, store.Reader.EdgesByParent)
}

// Parents returns the edges entering the node.
func (s *Service) Parents(ctx context.Context, id string) ([]models.Edge, error) {
	return s.edges(ctx, "parents", id, store.Reader.EdgesByChild)
}

func (s *Service) edges(
	ctx context.Context,
	op, id string,
	query func(store.Reader, context.Context, uuid.UUID) ([]models.Edge, error),
) ([]models.Edge, error) {
	nodeID, err := idgen.Parse(id)
	if err != nil {
		return nil, err
	}
	var edges []models.Edge
	err = s.store.View(ctx, func(r store.Reader) error {
		if _, err := r.GetNode(ctx, nodeID); err != nil {
			return err
		}
		var err error
		edges, err = query(r, ctx, nodeID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("nodemanager: %s: %w", op, err)
	}
	return nonNilSlice(edges), nil
}

func (s *Service) newNode(draft models.NodeDraft) *models.Node {
	now := s.now()
	node := &models.Node{
		Title:     draft.Title,
		Content:   models.Content{Text: draft.Text},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if draft.Illustration != nil {
		node.Content.Illustration = *draft.Illustration
	}
	return node
}

func validateDraft(draft models.NodeDraft) error {
	if err := draft.Validate(); err != nil {
		return fmt.Errorf("%w: %w", apperr.ErrInvalidArgument, err)
	}
	return nil
}

func validateChoice(choice string) error {
	if err := models.ValidateChoice(choice); err != nil {
		return fmt.Errorf("%w: choice text: %w", apperr.ErrInvalidArgument, err)
	}
	return nil
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
