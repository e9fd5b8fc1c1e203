package store

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/starford/storygraph/internal/apperr"
	"github.com/starford/storygraph/internal/idgen"
	"github.com/starford/storygraph/internal/models"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "storygraph-store-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(context.Background(), f.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func newNode(title, text string) *models.Node {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return &models.Node{
		Title:     title,
		Content:   models.Content{Text: text},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func insert(t *testing.T, db *DB, title, text string) *models.Node {
	t.Helper()
	n := newNode(title, text)
	if err := db.Update(context.Background(), func(tx Tx) error {
		return tx.InsertNode(context.Background(), n)
	}); err != nil {
		t.Fatalf("InsertNode: %v", err)
	}
	return n
}

func count(t *testing.T, db *DB, table string) int {
	t.Helper()
	var n int
	if err := db.conn.QueryRow(`SELECT count(*) FROM ` + table).Scan(&n); err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return n
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	for _, table := range []string{"nodes", "contents", "edges", "schema_migrations"} {
		count(t, db, table)
	}
	if got := count(t, db, "schema_migrations"); got != 1 {
		t.Errorf("schema_migrations rows = %d, want 1", got)
	}
}

func TestOpenTwiceKeepsData(t *testing.T) {
	f, err := os.CreateTemp("", "storygraph-reopen-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	ctx := context.Background()
	db, err := Open(ctx, f.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	n := insert(t, db, "Start", "x")
	db.Close()

	db, err = Open(ctx, f.Name())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db.Close()
	if _, err := getNode(db, n.ID); err != nil {
		t.Fatalf("node lost after reopen: %v", err)
	}
}

func getNode(db *DB, id uuid.UUID) (*models.Node, error) {
	var got *models.Node
	err := db.View(context.Background(), func(r Reader) error {
		var err error
		got, err = r.GetNode(context.Background(), id)
		return err
	})
	return got, err
}

func TestInsertAndGet(t *testing.T) {
	db := testDB(t)
	n := insert(t, db, "Start", "Once upon a time, ")
	if n.ID == uuid.Nil || n.Content.ID == uuid.Nil {
		t.Fatal("ids not assigned")
	}
	if n.ID == n.Content.ID {
		t.Error("node and content share an id")
	}

	got, err := getNode(db, n.ID)
	if err != nil {
		t.Fatalf("GetNode: %v", err)
	}
	if got.Title != "Start" || got.Content.Text != "Once upon a time, " {
		t.Errorf("got %+v", got)
	}
	if got.Content.ID != n.Content.ID {
		t.Errorf("content id = %s, want %s", got.Content.ID, n.Content.ID)
	}
	if !got.CreatedAt.Equal(n.CreatedAt) {
		t.Errorf("created_at = %v, want %v", got.CreatedAt, n.CreatedAt)
	}
}

func TestGetMissing(t *testing.T) {
	db := testDB(t)
	if _, err := getNode(db, idgen.New()); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestFindNodesByTitle(t *testing.T) {
	db := testDB(t)
	a := insert(t, db, "Fork", "a")
	insert(t, db, "Other", "b")
	c := insert(t, db, "Fork", "c")

	var got []models.Node
	err := db.View(context.Background(), func(r Reader) error {
		var err error
		got, err = r.FindNodesByTitle(context.Background(), "Fork")
		return err
	})
	if err != nil {
		t.Fatalf("FindNodesByTitle: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].ID != a.ID || got[1].ID != c.ID {
		t.Errorf("order = [%s %s], want [%s %s]", got[0].ID, got[1].ID, a.ID, c.ID)
	}

	err = db.View(context.Background(), func(r Reader) error {
		var err error
		got, err = r.FindNodesByTitle(context.Background(), "fork")
		return err
	})
	if err != nil || got == nil || len(got) != 0 {
		t.Errorf("case-sensitive miss: got %v, err %v", got, err)
	}
}

func TestUpdateKeepsContentID(t *testing.T) {
	db := testDB(t)
	n := insert(t, db, "Start", "v1")
	contentID := n.Content.ID

	n.Title = "Start again"
	n.Content.Text = "v2"
	n.Content.Illustration = "map.png"
	if err := db.Update(context.Background(), func(tx Tx) error {
		return tx.UpdateNode(context.Background(), n)
	}); err != nil {
		t.Fatalf("UpdateNode: %v", err)
	}

	got, err := getNode(db, n.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Content.ID != contentID {
		t.Errorf("content id changed: %s -> %s", contentID, got.Content.ID)
	}
	if got.Title != "Start again" || got.Content.Text != "v2" || got.Content.Illustration != "map.png" {
		t.Errorf("got %+v", got)
	}
	if c := count(t, db, "contents"); c != 1 {
		t.Errorf("contents rows = %d, want 1", c)
	}
}

func TestUpdateMissing(t *testing.T) {
	db := testDB(t)
	n := newNode("ghost", "")
	n.ID = idgen.New()
	err := db.Update(context.Background(), func(tx Tx) error {
		return tx.UpdateNode(context.Background(), n)
	})
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestDeleteMissingIsNoop(t *testing.T) {
	db := testDB(t)
	insert(t, db, "keep", "")
	err := db.Update(context.Background(), func(tx Tx) error {
		return tx.DeleteNode(context.Background(), idgen.New())
	})
	if err != nil {
		t.Fatalf("DeleteNode on missing id: %v", err)
	}
	if c := count(t, db, "nodes"); c != 1 {
		t.Errorf("nodes = %d, want 1", c)
	}
}

func TestDeleteCascades(t *testing.T) {
	db := testDB(t)
	parent := insert(t, db, "parent", "")
	child := insert(t, db, "child", "")
	other := insert(t, db, "other", "")

	ctx := context.Background()
	if err := db.Update(ctx, func(tx Tx) error {
		if err := tx.InsertEdge(ctx, &models.Edge{ChoiceText: "down", Parent: *parent, Child: *child}); err != nil {
			return err
		}
		return tx.InsertEdge(ctx, &models.Edge{ChoiceText: "across", Parent: *other, Child: *parent})
	}); err != nil {
		t.Fatalf("InsertEdge: %v", err)
	}

	if err := db.Update(ctx, func(tx Tx) error {
		return tx.DeleteNode(ctx, parent.ID)
	}); err != nil {
		t.Fatalf("DeleteNode: %v", err)
	}

	if c := count(t, db, "contents"); c != 2 {
		t.Errorf("contents = %d, want 2", c)
	}
	if c := count(t, db, "edges"); c != 0 {
		t.Errorf("edges = %d, want 0", c)
	}
}

func TestInsertEdgeDanglingReference(t *testing.T) {
	db := testDB(t)
	parent := insert(t, db, "parent", "")
	ghost := models.Node{ID: idgen.New()}

	ctx := context.Background()
	err := db.Update(ctx, func(tx Tx) error {
		return tx.InsertEdge(ctx, &models.Edge{ChoiceText: "nowhere", Parent: *parent, Child: ghost})
	})
	if !errors.Is(err, apperr.ErrConstraint) {
		t.Fatalf("err = %v, want ErrConstraint", err)
	}
}

func TestInsertNodeEmptyTitle(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	err := db.Update(ctx, func(tx Tx) error {
		return tx.InsertNode(ctx, newNode("", "text"))
	})
	if !errors.Is(err, apperr.ErrConstraint) {
		t.Fatalf("err = %v, want ErrConstraint", err)
	}
	if c := count(t, db, "nodes"); c != 0 {
		t.Errorf("nodes = %d, want 0", c)
	}
}

func TestUpdateRollsBackOnError(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	boom := errors.New("boom")
	err := db.Update(ctx, func(tx Tx) error {
		if err := tx.InsertNode(ctx, newNode("doomed", "")); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	if c := count(t, db, "nodes"); c != 0 {
		t.Errorf("nodes = %d after rollback, want 0", c)
	}
}

func TestEdgesByParentAndChild(t *testing.T) {
	db := testDB(t)
	a := insert(t, db, "A", "a")
	b := insert(t, db, "B", "b")
	ctx := context.Background()

	edge := &models.Edge{ChoiceText: "X", Parent: *a, Child: *b}
	if err := db.Update(ctx, func(tx Tx) error { return tx.InsertEdge(ctx, edge) }); err != nil {
		t.Fatal(err)
	}

	var out, in []models.Edge
	err := db.View(ctx, func(r Reader) error {
		var err error
		if out, err = r.EdgesByParent(ctx, a.ID); err != nil {
			return err
		}
		in, err = r.EdgesByChild(ctx, b.ID)
		return err
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 || len(in) != 1 {
		t.Fatalf("out = %d, in = %d, want 1 each", len(out), len(in))
	}
	if out[0].ID != edge.ID || in[0].ID != edge.ID {
		t.Errorf("edge ids differ: %s %s %s", out[0].ID, in[0].ID, edge.ID)
	}
	if in[0].ChoiceText != "X" || in[0].Parent.Title != "A" || in[0].Child.Content.Text != "b" {
		t.Errorf("edge = %+v", in[0])
	}
}

func TestViewReadsOneSnapshot(t *testing.T) {
	db := testDB(t)
	a := insert(t, db, "A", "a")
	b := insert(t, db, "B", "b")
	ctx := context.Background()

	edge := &models.Edge{ChoiceText: "X", Parent: *a, Child: *b}
	if err := db.Update(ctx, func(tx Tx) error { return tx.InsertEdge(ctx, edge) }); err != nil {
		t.Fatal(err)
	}

	var out []models.Edge
	err := db.View(ctx, func(r Reader) error {
		if _, err := r.GetNode(ctx, a.ID); err != nil {
			return err
		}
		// A delete committed between the two reads must not be visible.
		if err := db.Update(ctx, func(tx Tx) error { return tx.DeleteNode(ctx, a.ID) }); err != nil {
			return err
		}
		var err error
		out, err = r.EdgesByParent(ctx, a.ID)
		return err
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 || out[0].ID != edge.ID {
		t.Fatalf("edges inside view = %+v, want the pre-delete edge", out)
	}

	err = db.View(ctx, func(r Reader) error {
		_, err := r.GetNode(ctx, a.ID)
		return err
	})
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("GetNode after view = %v, want ErrNotFound", err)
	}
}

func TestWithIDGenerator(t *testing.T) {
	f, err := os.CreateTemp("", "storygraph-idgen-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	ids := []uuid.UUID{
		uuid.MustParse("00000000-0000-7000-8000-000000000001"),
		uuid.MustParse("00000000-0000-7000-8000-000000000002"),
	}
	next := 0
	db, err := Open(context.Background(), f.Name(), WithIDGenerator(func() uuid.UUID {
		id := ids[next]
		next++
		return id
	}))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	n := insert(t, db, "fixed", "")
	if n.ID != ids[0] || n.Content.ID != ids[1] {
		t.Errorf("ids = %s/%s", n.ID, n.Content.ID)
	}
}

func TestUpSection(t *testing.T) {
	got := upSection("-- +migrate Up\nCREATE TABLE t (x);\n-- +migrate Down\nDROP TABLE t;\n")
	if got != "\nCREATE TABLE t (x);\n" {
		t.Errorf("upSection = %q", got)
	}
	if got := upSection("SELECT 1;"); got != "SELECT 1;" {
		t.Errorf("no markers: %q", got)
	}
}
