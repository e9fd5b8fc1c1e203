package consumer

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/starford/storygraph/internal/idgen"
	"github.com/starford/storygraph/internal/models"
	"github.com/starford/storygraph/internal/nodemanager"
	"github.com/starford/storygraph/internal/testutil"
)

// fakeSource hands out the queued batches, then blocks until ctx is done.
type fakeSource struct {
	batches [][]Message
	commits int
	closed  bool
}

func (f *fakeSource) Poll(ctx context.Context) ([]Message, error) {
	if len(f.batches) == 0 {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	b := f.batches[0]
	f.batches = f.batches[1:]
	return b, nil
}

func (f *fakeSource) Commit(context.Context) error { f.commits++; return nil }
func (f *fakeSource) Close()                       { f.closed = true }

// cancelAfter cancels ctx once the source has drained its batches.
type cancelAfter struct {
	*fakeSource
	cancel context.CancelFunc
}

func (c *cancelAfter) Poll(ctx context.Context) ([]Message, error) {
	if len(c.batches) == 0 {
		c.cancel()
	}
	return c.fakeSource.Poll(ctx)
}

// failingManager fails every update with a store error.
type failingManager struct {
	nodemanager.Manager
}

func (failingManager) Update(context.Context, string, models.NodeDraft) (*models.Node, error) {
	return nil, errors.New("database is locked")
}

func newLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestRunAppliesUpdatesAndCommits(t *testing.T) {
	mgr := nodemanager.NewService(testutil.TestStore(t))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := mgr.Create(ctx, models.NodeDraft{Title: "A", Text: "old"})
	if err != nil {
		t.Fatal(err)
	}
	b, err := mgr.Create(ctx, models.NodeDraft{Title: "B"})
	if err != nil {
		t.Fatal(err)
	}

	src := &fakeSource{batches: [][]Message{
		{{Value: []byte(`{"id":"` + a.ID.String() + `","title":"A2","contentText":"new"}`)}},
		{{Key: []byte(b.ID.String()), Value: []byte(`{"title":"B2","contentText":"from key"}`)}},
	}}
	var logs bytes.Buffer
	c := New(&cancelAfter{fakeSource: src, cancel: cancel}, mgr, newLogger(&logs))
	if err := c.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	gotA, err := mgr.GetByID(context.Background(), a.ID.String())
	if err != nil {
		t.Fatal(err)
	}
	if gotA.Title != "A2" || gotA.Content.Text != "new" {
		t.Errorf("A = %q/%q, want A2/new", gotA.Title, gotA.Content.Text)
	}
	gotB, err := mgr.GetByID(context.Background(), b.ID.String())
	if err != nil {
		t.Fatal(err)
	}
	if gotB.Title != "B2" || gotB.Content.Text != "from key" {
		t.Errorf("B = %q/%q, want B2/from key", gotB.Title, gotB.Content.Text)
	}
	if src.commits != 2 {
		t.Errorf("commits = %d, want 2", src.commits)
	}
	if !src.closed {
		t.Error("source not closed")
	}
}

func TestHandleSkipsClientErrors(t *testing.T) {
	mgr := nodemanager.NewService(testutil.TestStore(t))
	var logs bytes.Buffer
	c := New(&fakeSource{}, mgr, newLogger(&logs))

	for _, value := range []string{
		`{"id":"` + idgen.New().String() + `","title":"x"}`,
		`{"id":"not-a-uuid","title":"x"}`,
		`{"id":"` + idgen.New().String() + `","title":""}`,
		`not json`,
	} {
		if err := c.Handle(context.Background(), Message{Value: []byte(value)}); err != nil {
			t.Errorf("Handle(%s) = %v, want nil", value, err)
		}
	}
	if n := strings.Count(logs.String(), `"level":"WARN"`); n != 4 {
		t.Errorf("warnings = %d, want 4\n%s", n, logs.String())
	}
}

func TestRunStopsOnStoreErrorWithoutCommit(t *testing.T) {
	src := &fakeSource{batches: [][]Message{
		{{Value: []byte(`{"id":"` + idgen.New().String() + `","title":"x"}`)}},
	}}
	c := New(src, failingManager{}, newLogger(&bytes.Buffer{}))

	err := c.Run(context.Background())
	if err == nil || !strings.Contains(err.Error(), "database is locked") {
		t.Fatalf("Run = %v, want store error", err)
	}
	if src.commits != 0 {
		t.Errorf("commits = %d, want 0", src.commits)
	}
}

func TestRunReturnsPollError(t *testing.T) {
	src := &erroringSource{}
	c := New(src, failingManager{}, nil)
	if err := c.Run(context.Background()); err == nil || !strings.Contains(err.Error(), "poll") {
		t.Fatalf("Run = %v, want poll error", err)
	}
}

type erroringSource struct{ fakeSource }

func (e *erroringSource) Poll(context.Context) ([]Message, error) {
	return nil, errors.New("broker unreachable")
}
