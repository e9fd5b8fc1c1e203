package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/starford/storygraph/internal/models"
)

const edgeSelect = `
	SELECT e.id, e.choice_text,
		p.id, p.title, p.created_at, p.updated_at, pc.id, pc.text, pc.illustration,
		n.id, n.title, n.created_at, n.updated_at, c.id, c.text, c.illustration
	FROM edges e
	JOIN nodes p ON p.id = e.parent_node_id
	JOIN contents pc ON pc.node_id = p.id
	JOIN nodes n ON n.id = e.child_node_id
	JOIN contents c ON c.node_id = n.id`

func (t *txn) InsertEdge(ctx context.Context, e *models.Edge) error {
	e.ID = t.newID()
	_, err := t.q.ExecContext(ctx,
		`INSERT INTO edges (id, choice_text, parent_node_id, child_node_id) VALUES (?, ?, ?, ?)`,
		e.ID, e.ChoiceText, e.Parent.ID, e.Child.ID)
	if err != nil {
		return wrapErr("insert edge", err)
	}
	return nil
}

func (t *txn) EdgesByParent(ctx context.Context, id uuid.UUID) ([]models.Edge, error) {
	return t.queryEdges(ctx, edgeSelect+` WHERE e.parent_node_id = ? ORDER BY e.id`, id)
}

func (t *txn) EdgesByChild(ctx context.Context, id uuid.UUID) ([]models.Edge, error) {
	return t.queryEdges(ctx, edgeSelect+` WHERE e.child_node_id = ? ORDER BY e.id`, id)
}

func (t *txn) queryEdges(ctx context.Context, query string, args ...any) ([]models.Edge, error) {
	rows, err := t.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapErr("query edges", err)
	}
	defer rows.Close()

	out := []models.Edge{}
	for rows.Next() {
		var (
			e             models.Edge
			parent, child nodeScan
		)
		dest := append([]any{&e.ID, &e.ChoiceText}, parent.dest()...)
		dest = append(dest, child.dest()...)
		if err := rows.Scan(dest...); err != nil {
			return nil, wrapErr("scan edge", err)
		}
		e.Parent = parent.result()
		e.Child = child.result()
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("query edges", err)
	}
	return out, nil
}
