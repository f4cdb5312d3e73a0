package credentials

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func waitForUser(t *testing.T, ch <-chan string, want string) {
	t.Helper()
	select {
	case got := <-ch:
		if got != want {
			t.Fatalf("onChange(%q), want %q", got, want)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for onChange(%q)", want)
	}
}

func TestWatch_SignInAndOut(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.toml")
	changes := make(chan string, 16)

	w, err := Watch(path, func(id string) { changes <- id }, nil)
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	defer w.Close()

	if w.UserID() != "" {
		t.Errorf("initial UserID = %q", w.UserID())
	}

	if err := Save(path, Credentials{AccessToken: "tok", UserID: "alice"}); err != nil {
		t.Fatal(err)
	}
	waitForUser(t, changes, "alice")

	if err := Save(path, Credentials{AccessToken: "tok2", UserID: "bob"}); err != nil {
		t.Fatal(err)
	}
	waitForUser(t, changes, "bob")

	if err := Clear(path); err != nil {
		t.Fatal(err)
	}
	waitForUser(t, changes, "")

	if w.UserID() != "" {
		t.Errorf("UserID after sign-out = %q", w.UserID())
	}
}

func TestWatch_IgnoresOtherFilesAndSameUser(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "credentials.toml")
	if err := Save(path, Credentials{AccessToken: "tok", UserID: "alice"}); err != nil {
		t.Fatal(err)
	}
	changes := make(chan string, 16)

	w, err := Watch(path, func(id string) { changes <- id }, nil)
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	defer w.Close()

	if w.UserID() != "alice" {
		t.Errorf("initial UserID = %q, want alice", w.UserID())
	}

	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}
	// A token refresh for the same user is not an identity change.
	if err := Save(path, Credentials{AccessToken: "refreshed", UserID: "alice"}); err != nil {
		t.Fatal(err)
	}
	if err := Save(path, Credentials{AccessToken: "tok", UserID: "carol"}); err != nil {
		t.Fatal(err)
	}
	waitForUser(t, changes, "carol")

	select {
	case id := <-changes:
		t.Errorf("unexpected extra change %q", id)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestWatcher_CloseTwice(t *testing.T) {
	w, err := Watch(filepath.Join(t.TempDir(), "credentials.toml"), func(string) {}, nil)
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}
