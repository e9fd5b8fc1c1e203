package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/starford/storygraph/internal/apperr"
	"github.com/starford/storygraph/internal/models"
)

const nodeColumns = `n.id, n.title, n.created_at, n.updated_at, c.id, c.text, c.illustration`

type rowScanner interface {
	Scan(dest ...any) error
}

// nodeScan collects the columns of nodeColumns for one node.
type nodeScan struct {
	node             models.Node
	created, updated int64
}

func (s *nodeScan) dest() []any {
	return []any{
		&s.node.ID, &s.node.Title, &s.created, &s.updated,
		&s.node.Content.ID, &s.node.Content.Text, &s.node.Content.Illustration,
	}
}

func (s *nodeScan) result() models.Node {
	n := s.node
	n.CreatedAt = fromMillis(s.created)
	n.UpdatedAt = fromMillis(s.updated)
	return n
}

func scanNode(row rowScanner) (models.Node, error) {
	var s nodeScan
	if err := row.Scan(s.dest()...); err != nil {
		return models.Node{}, err
	}
	return s.result(), nil
}

func (t *txn) InsertNode(ctx context.Context, n *models.Node) error {
	n.ID = t.newID()
	n.Content.ID = t.newID()

	_, err := t.q.ExecContext(ctx,
		`INSERT INTO nodes (id, title, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		n.ID, n.Title, toMillis(n.CreatedAt), toMillis(n.UpdatedAt))
	if err != nil {
		return wrapErr("insert node", err)
	}
	_, err = t.q.ExecContext(ctx,
		`INSERT INTO contents (id, node_id, text, illustration) VALUES (?, ?, ?, ?)`,
		n.Content.ID, n.ID, n.Content.Text, n.Content.Illustration)
	if err != nil {
		return wrapErr("insert content", err)
	}
	return nil
}

func (t *txn) GetNode(ctx context.Context, id uuid.UUID) (*models.Node, error) {
	row := t.q.QueryRowContext(ctx, `
		SELECT `+nodeColumns+`
		FROM nodes n JOIN contents c ON c.node_id = n.id
		WHERE n.id = ?`, id)
	n, err := scanNode(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("store: node %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, wrapErr("get node", err)
	}
	return &n, nil
}

func (t *txn) FindNodesByTitle(ctx context.Context, title string) ([]models.Node, error) {
	rows, err := t.q.QueryContext(ctx, `
		SELECT `+nodeColumns+`
		FROM nodes n JOIN contents c ON c.node_id = n.id
		WHERE n.title = ?
		ORDER BY n.id`, title)
	if err != nil {
		return nil, wrapErr("find nodes", err)
	}
	defer rows.Close()

	out := []models.Node{}
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, wrapErr("scan node", err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("find nodes", err)
	}
	return out, nil
}

func (t *txn) UpdateNode(ctx context.Context, n *models.Node) error {
	res, err := t.q.ExecContext(ctx,
		`UPDATE nodes SET title = ?, updated_at = ? WHERE id = ?`,
		n.Title, toMillis(n.UpdatedAt), n.ID)
	if err != nil {
		return wrapErr("update node", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return fmt.Errorf("store: node %s: %w", n.ID, apperr.ErrNotFound)
	}

	_, err = t.q.ExecContext(ctx,
		`UPDATE contents SET text = ?, illustration = ? WHERE id = ? AND node_id = ?`,
		n.Content.Text, n.Content.Illustration, n.Content.ID, n.ID)
	if err != nil {
		return wrapErr("update content", err)
	}
	return nil
}

func (t *txn) DeleteNode(ctx context.Context, id uuid.UUID) error {
	if _, err := t.q.ExecContext(ctx, `DELETE FROM nodes WHERE id = ?`, id); err != nil {
		return wrapErr("delete node", err)
	}
	return nil
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
