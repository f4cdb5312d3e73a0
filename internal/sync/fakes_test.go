package sync

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	stdsync "sync"
	"testing"
	"time"

	"github.com/alfredjeanlab/dojolog/internal/events"
	"github.com/alfredjeanlab/dojolog/internal/idgen"
	"github.com/alfredjeanlab/dojolog/internal/local"
	"github.com/alfredjeanlab/dojolog/internal/model"
	"github.com/alfredjeanlab/dojolog/internal/remote"
)

var errNetwork = errors.New("network unreachable")

// fakeTable is an in-memory remote.Table with injectable failures.
type fakeTable struct {
	mu        stdsync.Mutex
	rows      map[string]remote.Row
	failIDs   map[string]error
	upsertErr error
	selectErr error
	deleteErr error
	pingErr   error
	upserts   []string
	deletes   []string
}

func newFakeTable() *fakeTable {
	return &fakeTable{rows: map[string]remote.Row{}, failIDs: map[string]error{}}
}

func (f *fakeTable) Ping(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pingErr
}

func (f *fakeTable) Upsert(_ context.Context, row remote.Row) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts = append(f.upserts, row.ID)
	if err := f.failIDs[row.ID]; err != nil {
		return err
	}
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.rows[row.ID] = row
	return nil
}

func (f *fakeTable) Delete(_ context.Context, userID, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, id)
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if r, ok := f.rows[id]; ok && r.UserID == userID {
		delete(f.rows, id)
	}
	return nil
}

func (f *fakeTable) SelectAll(_ context.Context, userID string) ([]remote.Row, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.selectErr != nil {
		return nil, f.selectErr
	}
	var out []remote.Row
	for _, r := range f.rows {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeTable) upsertCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.upserts)
}

// staticAuth reports a fixed user; "" means signed out.
type staticAuth string

func (a staticAuth) CurrentUser(context.Context) (string, error) { return string(a), nil }

// recordingPublisher captures published topics.
type recordingPublisher struct {
	mu     stdsync.Mutex
	topics []string
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, _ any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) published() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.topics...)
}

// safeBuffer is a bytes.Buffer safe for concurrent log writes.
type safeBuffer struct {
	mu  stdsync.Mutex
	buf bytes.Buffer
}

func (b *safeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *safeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type harness struct {
	local *local.Store
	table *fakeTable
	pub   *recordingPublisher
	logs  *safeBuffer
	coord *Coordinator
}

// newHarness builds a coordinator over a memory store. A nil table means
// no remote is configured.
func newHarness(t *testing.T, table *fakeTable, user string, maxAttempts int) *harness {
	t.Helper()
	h := &harness{
		local: local.New(local.NewMemorySlot(), local.Options{NewID: idgen.Sequence("ses-")}),
		table: table,
		pub:   &recordingPublisher{},
		logs:  &safeBuffer{},
	}
	logger := slog.New(slog.NewTextHandler(h.logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	opts := Options{
		Local:       h.local,
		Identity:    remote.NewIdentity(staticAuth(user), logger),
		Publisher:   h.pub,
		Logger:      logger,
		MaxAttempts: maxAttempts,
		Now:         func() time.Time { return time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC) },
	}
	if table != nil {
		opts.Table = table
	}
	h.coord = NewCoordinator(opts)
	t.Cleanup(func() { _ = h.coord.Close() })
	return h
}

func (h *harness) add(t *testing.T, minutes int) *model.Session {
	t.Helper()
	sess, err := h.coord.Add(context.Background(), &model.SessionInput{
		Date: "2025-05-01", Type: model.TypeStriking, DurationMin: minutes,
	})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	return sess
}

func (h *harness) state(t *testing.T, id string) *model.Session {
	t.Helper()
	sess, err := h.local.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if sess == nil {
		t.Fatalf("session %s missing locally", id)
	}
	return sess
}

var _ events.Publisher = (*recordingPublisher)(nil)
