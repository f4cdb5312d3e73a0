package local

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/alfredjeanlab/dojolog/internal/model"
)

func TestSQLiteSlot_GetSet(t *testing.T) {
	ctx := context.Background()
	slot, err := OpenSQLite(filepath.Join(t.TempDir(), "nested", "dojo.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { _ = slot.Close() })

	if _, ok, err := slot.Get(ctx, "missing"); err != nil || ok {
		t.Fatalf("Get(missing) = ok %v, err %v", ok, err)
	}

	for _, v := range []string{"one", "two"} {
		if err := slot.Set(ctx, "k", []byte(v)); err != nil {
			t.Fatalf("Set: %v", err)
		}
		got, ok, err := slot.Get(ctx, "k")
		if err != nil || !ok || string(got) != v {
			t.Fatalf("Get = %q, %v, %v; want %q", got, ok, err, v)
		}
	}
}

func TestSQLiteSlot_PersistsAcrossOpen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "dojo.db")

	slot, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	s := New(slot, Options{})
	added, err := s.Add(ctx, &model.SessionInput{Date: "2025-04-01", Type: model.TypeGrappling, DurationMin: 75})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	s = New(reopened, Options{})
	t.Cleanup(func() { _ = s.Close() })

	got, err := s.Get(ctx, added.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil || got.DurationMin != 75 || !got.CreatedAt.Equal(added.CreatedAt) {
		t.Fatalf("session not persisted: %+v", got)
	}
}

func TestSQLiteSlot_Closed(t *testing.T) {
	slot, err := OpenSQLite(filepath.Join(t.TempDir(), "dojo.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	if err := slot.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := slot.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if _, _, err := slot.Get(context.Background(), "k"); !errors.Is(err, ErrUnavailable) {
		t.Errorf("Get after close: want ErrUnavailable, got %v", err)
	}
}

func TestOpenSlot_Memory(t *testing.T) {
	slot, err := OpenSlot(MemoryPath)
	if err != nil {
		t.Fatalf("OpenSlot: %v", err)
	}
	if _, ok := slot.(*MemorySlot); !ok {
		t.Errorf("OpenSlot(%q) = %T, want *MemorySlot", MemoryPath, slot)
	}
}
