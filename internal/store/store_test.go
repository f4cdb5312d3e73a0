package store

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/alfredjeanlab/dojolog/internal/events"
	"github.com/alfredjeanlab/dojolog/internal/local"
	"github.com/alfredjeanlab/dojolog/internal/model"
	"github.com/alfredjeanlab/dojolog/internal/remote"
	dojosync "github.com/alfredjeanlab/dojolog/internal/sync"
)

// signedOut never resolves a user.
type signedOut struct{}

func (signedOut) CurrentUser(context.Context) (string, error) { return "", nil }

// downTable fails every call.
type downTable struct{}

func (downTable) Ping(context.Context) error { return errors.New("down") }
func (downTable) Upsert(context.Context, remote.Row) error { return errors.New("down") }
func (downTable) Delete(context.Context, string, string) error { return errors.New("down") }
func (downTable) SelectAll(context.Context, string) ([]remote.Row, error) { return nil, errors.New("down") }

// recorder keeps the topics published to it.
type recorder struct {
	mu     sync.Mutex
	topics []string
}

func (r *recorder) Publish(_ context.Context, topic string, _ any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.topics = append(r.topics, topic)
	return nil
}

func (r *recorder) Close() error { return nil }

func newStores(t *testing.T) map[string]Store {
	t.Helper()
	plain, err := New(ModeLocal, local.New(local.NewMemorySlot(), local.Options{}), nil, nil)
	if err != nil {
		t.Fatalf("New(local): %v", err)
	}
	coord := dojosync.NewCoordinator(dojosync.Options{
		Local:    local.New(local.NewMemorySlot(), local.Options{}),
		Table:    downTable{},
		Identity: remote.NewIdentity(signedOut{}, nil),
	})
	synced, err := New(ModeRemote, nil, coord, nil)
	if err != nil {
		t.Fatalf("New(remote): %v", err)
	}
	stores := map[string]Store{"Local": plain, "Remote": synced}
	t.Cleanup(func() {
		for _, s := range stores {
			_ = s.Close()
		}
	})
	return stores
}

func input(minutes int) *model.SessionInput {
	return &model.SessionInput{Date: "2025-04-01", Type: model.TypeGrappling, DurationMin: minutes, Tags: []string{"guard"}}
}

func TestStore_DurationScenario(t *testing.T) {
	for name, s := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			var middle *model.Session
			for _, m := range []int{60, 45, 30} {
				sess, err := s.AddSession(ctx, input(m))
				if err != nil {
					t.Fatalf("AddSession: %v", err)
				}
				if m == 45 {
					middle = sess
				}
			}

			total := func() (int, int) {
				list, err := s.ListSessions(ctx, model.SessionFilter{})
				if err != nil {
					t.Fatalf("ListSessions: %v", err)
				}
				sum := 0
				for _, sess := range list {
					sum += sess.DurationMin
				}
				return len(list), sum
			}
			if n, sum := total(); n != 3 || sum != 135 {
				t.Fatalf("got %d sessions / %d min, want 3 / 135", n, sum)
			}
			if err := s.DeleteSession(ctx, middle.ID); err != nil {
				t.Fatalf("DeleteSession: %v", err)
			}
			if _, sum := total(); sum != 90 {
				t.Fatalf("sum after delete = %d, want 90", sum)
			}
		})
	}
}

func TestStore_Contract(t *testing.T) {
	for name, s := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			added, err := s.AddSession(ctx, input(50))
			if err != nil {
				t.Fatalf("AddSession: %v", err)
			}
			if added.SyncState != model.SyncPending {
				t.Errorf("SyncState = %q, want pending", added.SyncState)
			}

			got, err := s.GetSession(ctx, added.ID)
			if err != nil || got == nil {
				t.Fatalf("GetSession = %+v, %v", got, err)
			}
			if got.ID != added.ID || got.DurationMin != 50 || got.Tags[0] != "guard" || !got.CreatedAt.Equal(added.CreatedAt) {
				t.Errorf("round trip mismatch: %+v vs %+v", got, added)
			}

			if miss, err := s.GetSession(ctx, "ses-none"); err != nil || miss != nil {
				t.Errorf("GetSession(miss) = %+v, %v", miss, err)
			}

			memo := "tired"
			if upd, err := s.UpdateSession(ctx, "ses-none", &model.SessionPatch{Memo: &memo}); err != nil || upd != nil {
				t.Errorf("UpdateSession(miss) = %+v, %v", upd, err)
			}

			for i := 0; i < 2; i++ {
				if err := s.DeleteSession(ctx, added.ID); err != nil {
					t.Fatalf("DeleteSession #%d: %v", i+1, err)
				}
			}

			_, err = s.AddSession(ctx, &model.SessionInput{Type: model.TypeStriking, DurationMin: 10})
			var ve *model.ValidationError
			if !errors.As(err, &ve) {
				t.Errorf("want validation error, got %v", err)
			}
		})
	}
}

func TestStore_NilArguments(t *testing.T) {
	for name, s := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			added, err := s.AddSession(ctx, input(40))
			if err != nil {
				t.Fatalf("AddSession: %v", err)
			}

			var ve *model.ValidationError
			if _, err := s.AddSession(ctx, nil); !errors.As(err, &ve) {
				t.Errorf("AddSession(nil): want validation error, got %v", err)
			}
			if _, err := s.UpdateSession(ctx, added.ID, nil); !errors.As(err, &ve) {
				t.Errorf("UpdateSession(nil): want validation error, got %v", err)
			}

			got, err := s.GetSession(ctx, added.ID)
			if err != nil || got == nil || got.DurationMin != 40 {
				t.Errorf("GetSession after rejected calls = %+v, %v", got, err)
			}
		})
	}
}

func TestStore_SweeperOnlyInRemoteMode(t *testing.T) {
	stores := newStores(t)
	if _, ok := stores["Local"].(Sweeper); ok {
		t.Error("local store should not offer SyncPending")
	}
	sw, ok := stores["Remote"].(Sweeper)
	if !ok {
		t.Fatal("synced store should offer SyncPending")
	}
	if _, err := sw.SyncPending(context.Background()); err != nil {
		t.Errorf("SyncPending: %v", err)
	}
}

func TestParseMode(t *testing.T) {
	for _, tc := range []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"", ModeLocal, false},
		{"local", ModeLocal, false},
		{" Remote ", ModeRemote, false},
		{"cloud", "", true},
	} {
		got, err := ParseMode(tc.in)
		if (err != nil) != tc.wantErr || got != tc.want {
			t.Errorf("ParseMode(%q) = %q, %v", tc.in, got, err)
		}
	}
}

func TestNew_MissingDependencies(t *testing.T) {
	if _, err := New(ModeLocal, nil, nil, nil); err == nil {
		t.Error("local mode without a store should fail")
	}
	if _, err := New(ModeRemote, nil, nil, nil); err == nil {
		t.Error("remote mode without a coordinator should fail")
	}
	if _, err := New("bogus", nil, nil, nil); err == nil {
		t.Error("unknown mode should fail")
	}
}

func TestLocalStore_PublishesMutations(t *testing.T) {
	ctx := context.Background()
	rec := &recorder{}
	s, err := New(ModeLocal, local.New(local.NewMemorySlot(), local.Options{}), nil, rec)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Close()

	sess, err := s.AddSession(ctx, input(30))
	if err != nil {
		t.Fatalf("AddSession: %v", err)
	}
	minutes := 40
	if _, err := s.UpdateSession(ctx, sess.ID, &model.SessionPatch{DurationMin: &minutes}); err != nil {
		t.Fatalf("UpdateSession: %v", err)
	}
	if got, err := s.UpdateSession(ctx, "missing", &model.SessionPatch{DurationMin: &minutes}); err != nil || got != nil {
		t.Fatalf("UpdateSession(missing) = %v, %v", got, err)
	}
	for range 2 {
		if err := s.DeleteSession(ctx, sess.ID); err != nil {
			t.Fatalf("DeleteSession: %v", err)
		}
	}

	want := []string{events.TopicSessionCreated, events.TopicSessionUpdated, events.TopicSessionDeleted}
	if len(rec.topics) != len(want) {
		t.Fatalf("topics = %v, want %v", rec.topics, want)
	}
	for i := range want {
		if rec.topics[i] != want[i] {
			t.Errorf("topics[%d] = %q, want %q", i, rec.topics[i], want[i])
		}
	}
}
