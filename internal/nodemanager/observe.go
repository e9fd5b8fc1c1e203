package nodemanager

import (
	"context"
	"time"

	"github.com/starford/storygraph/internal/models"
)

// Op names a Manager operation.
type Op string

const (
	OpCreate      Op = "create"
	OpGetByID     Op = "get_by_id"
	OpFindByTitle Op = "find_by_title"
	OpUpdate      Op = "update"
	OpDeleteByID  Op = "delete_by_id"
	OpFork        Op = "fork"
	OpLink        Op = "link"
	OpChildren    Op = "children"
	OpParents     Op = "parents"
)

// Call describes one finished Manager call.
type Call struct {
	Op Op
	// ID is the identifier argument as the caller passed it (the parent for
	// fork and link).
	ID string
	// Title is the title argument of create, update, fork and find.
	Title string
	// Node is the resulting node of create, get, update and delete.
	Node *models.Node
	// Edge is the resulting edge of fork and link.
	Edge *models.Edge
	// Results counts the items returned by list operations.
	Results  int
	Err      error
	Duration time.Duration
}

// Observer is notified after every Manager call.
type Observer interface {
	Observe(ctx context.Context, call Call)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, call Call)

// Observe calls f(ctx, call).
func (f ObserverFunc) Observe(ctx context.Context, call Call) { f(ctx, call) }

// Observe wraps m so that every call is reported to observers once it
// returns. The wrapped Manager behaves exactly like m.
func Observe(m Manager, observers ...Observer) Manager {
	return &observed{next: m, observers: observers}
}

type observed struct {
	next      Manager
	observers []Observer
}

func (o *observed) notify(ctx context.Context, start time.Time, call Call) {
	call.Duration = time.Since(start)
	for _, obs := range o.observers {
		obs.Observe(ctx, call)
	}
}

func (o *observed) Create(ctx context.Context, draft models.NodeDraft) (*models.Node, error) {
	start := time.Now()
	node, err := o.next.Create(ctx, draft)
	o.notify(ctx, start, Call{Op: OpCreate, Title: draft.Title, Node: node, Err: err})
	return node, err
}

func (o *observed) GetByID(ctx context.Context, id string) (*models.Node, error) {
	start := time.Now()
	node, err := o.next.GetByID(ctx, id)
	o.notify(ctx, start, Call{Op: OpGetByID, ID: id, Node: node, Err: err})
	return node, err
}

func (o *observed) FindByTitle(ctx context.Context, title string) ([]models.Node, error) {
	start := time.Now()
	nodes, err := o.next.FindByTitle(ctx, title)
	o.notify(ctx, start, Call{Op: OpFindByTitle, Title: title, Results: len(nodes), Err: err})
	return nodes, err
}

func (o *observed) Update(ctx context.Context, id string, draft models.NodeDraft) (*models.Node, error) {
	start := time.Now()
	node, err := o.next.Update(ctx, id, draft)
	o.notify(ctx, start, Call{Op: OpUpdate, ID: id, Title: draft.Title, Node: node, Err: err})
	return node, err
}

func (o *observed) DeleteByID(ctx context.Context, id string) (*models.Node, error) {
	start := time.Now()
	node, err := o.next.DeleteByID(ctx, id)
	o.notify(ctx, start, Call{Op: OpDeleteByID, ID: id, Node: node, Err: err})
	return node, err
}

func (o *observed) Fork(ctx context.Context, fromID string, draft models.NodeDraft, choice string) (*models.Edge, error) {
	start := time.Now()
	edge, err := o.next.Fork(ctx, fromID, draft, choice)
	o.notify(ctx, start, Call{Op: OpFork, ID: fromID, Title: draft.Title, Edge: edge, Err: err})
	return edge, err
}

func (o *observed) Link(ctx context.Context, fromID, toID, choice string) (*models.Edge, error) {
	start := time.Now()
	edge, err := o.next.Link(ctx, fromID, toID, choice)
	o.notify(ctx, start, Call{Op: OpLink, ID: fromID, Edge: edge, Err: err})
	return edge, err
}

func (o *observed) Children(ctx context.Context, id string) ([]models.Edge, error) {
	start := time.Now()
	edges, err := o.next.Children(ctx, id)
	o.notify(ctx, start, Call{Op: OpChildren, ID: id, Results: len(edges), Err: err})
	return edges, err
}

func (o *observed) Parents(ctx context.Context, id string) ([]models.Edge, error) {
	start := time.Now()
	edges, err := o.next.Parents(ctx, id)
	o.notify(ctx, start, Call{Op: OpParents, ID: id, Results: len(edges), Err: err})
	return edges, err
}
