// Package store persists nodes, their content, and the edges between them in
// SQLite. Every write goes through Update, which runs inside one transaction.
package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/starford/storygraph/internal/apperr"
	"github.com/starford/storygraph/internal/idgen"
	"github.com/starford/storygraph/internal/models"
	"github.com/starford/storygraph/internal/store/migrations"
)

// Reader is the read side of the store.
type Reader interface {
	// GetNode returns the node with its content, or apperr.ErrNotFound.
	GetNode(ctx context.Context, id uuid.UUID) (*models.Node, error)
	// FindNodesByTitle returns every node whose title equals title exactly,
	// oldest first.
	FindNodesByTitle(ctx context.Context, title string) ([]models.Node, error)
	// EdgesByParent returns the edges leaving the node, oldest first.
	EdgesByParent(ctx context.Context, id uuid.UUID) ([]models.Edge, error)
	// EdgesByChild returns the edges entering the node, oldest first.
	EdgesByChild(ctx context.Context, id uuid.UUID) ([]models.Edge, error)
}

// Tx is a read-write view bound to one transaction.
type Tx interface {
	Reader
	// InsertNode assigns fresh ids to n and n.Content and stores both.
	InsertNode(ctx context.Context, n *models.Node) error
	// UpdateNode writes title, timestamps and content in place. The content
	// row keeps its id.
	UpdateNode(ctx context.Context, n *models.Node) error
	// DeleteNode removes the node. Content and edges go with it. Deleting an
	// absent id is a no-op.
	DeleteNode(ctx context.Context, id uuid.UUID) error
	// InsertEdge assigns a fresh id to e and stores it.
	InsertEdge(ctx context.Context, e *models.Edge) error
}

// DB wraps a sql.DB with story graph operations.
type DB struct {
	conn  *sql.DB
	newID idgen.Generator
}

// Option configures a DB.
type Option func(*DB)

// WithIDGenerator replaces the UUIDv7 generator.
func WithIDGenerator(g idgen.Generator) Option {
	return func(db *DB) {
		db.newID = g
	}
}

// Open opens (or creates) the SQLite database at path and applies pending
// migrations.
func Open(ctx context.Context, path string, opts ...Option) (*DB, error) {
	conn, err := sql.Open(driverName, dsn(path))
	if err != nil {
		return nil, fmt.Errorf("store: open db: %w", err)
	}
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	if err := applyMigrations(ctx, conn, migrations.FS); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: migrate: %w", err)
	}

	db := &DB{conn: conn, newID: idgen.New}
	for _, opt := range opts {
		opt(db)
	}
	return db, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping checks that the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Update runs fn inside a transaction. The transaction commits when fn
// returns nil and rolls back otherwise.
func (db *DB) Update(ctx context.Context, fn func(Tx) error) error {
	sqlTx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer sqlTx.Rollback() //nolint:errcheck // no-op after commit

	if err := fn(&txn{q: sqlTx, newID: db.newID}); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return wrapErr("commit", err)
	}
	return nil
}

// View runs fn inside a deferred read transaction on one pinned connection.
// Every read made by fn observes the same WAL snapshot, taken at its first
// statement; writers are not blocked.
func (db *DB) View(ctx context.Context, fn func(Reader) error) error {
	c, err := db.conn.Conn(ctx)
	if err != nil {
		return fmt.Errorf("store: acquire conn: %w", err)
	}
	defer c.Close()

	if _, err := c.ExecContext(ctx, "BEGIN DEFERRED"); err != nil {
		return fmt.Errorf("store: begin read: %w", err)
	}
	// Nothing was written, so rolling back only releases the snapshot.
	defer c.ExecContext(context.WithoutCancel(ctx), "ROLLBACK") //nolint:errcheck

	return fn(&txn{q: c, newID: db.newID})
}

// querier is the subset shared by *sql.Conn and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type txn struct {
	q     querier
	newID idgen.Generator
}

var _ Tx = (*txn)(nil)

func wrapErr(op string, err error) error {
	if isConstraint(err) {
		return fmt.Errorf("store: %s: %w: %w", op, apperr.ErrConstraint, err)
	}
	return fmt.Errorf("store: %s: %w", op, err)
}
