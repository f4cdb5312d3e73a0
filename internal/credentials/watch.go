package credentials

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher reports identity transitions caused by changes to the
// credentials file.
type Watcher struct {
	path     string
	onChange func(userID string)
	logger   *slog.Logger
	now      func() time.Time

	watcher *fsnotify.Watcher
	done    chan struct{}
	wg      sync.WaitGroup

	mu   sync.Mutex
	last string
}

// Watch starts watching path. onChange receives the new active user id
// ("" on sign-out) each time it differs from the previous one. The parent
// directory is watched so the file may be created, replaced or removed
// freely. The initial state is read before Watch returns and is not
// reported.
func Watch(path string, onChange func(userID string), logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create credentials dir: %w", err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create credentials watcher: %w", err)
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}

	w := &Watcher{
		path:     filepath.Clean(path),
		onChange: onChange,
		logger:   logger,
		now:      time.Now,
		watcher:  fw,
		done:     make(chan struct{}),
	}
	w.last = w.current()

	w.wg.Add(1)
	go w.loop()
	return w, nil
}

// UserID returns the last user id observed.
func (w *Watcher) UserID() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.last
}

// Close stops the watcher and waits for the event loop to exit.
func (w *Watcher) Close() error {
	select {
	case <-w.done:
		return nil
	default:
	}
	close(w.done)
	err := w.watcher.Close()
	w.wg.Wait()
	return err
}

func (w *Watcher) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path || ev.Has(fsnotify.Chmod) && !ev.Has(fsnotify.Write) {
				continue
			}
			w.refresh()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("credentials watcher", "err", err)
		}
	}
}

func (w *Watcher) refresh() {
	userID := w.current()

	w.mu.Lock()
	changed := userID != w.last
	w.last = userID
	w.mu.Unlock()

	if changed {
		w.logger.Info("identity changed", "user", userID)
		w.onChange(userID)
	}
}

func (w *Watcher) current() string {
	c, err := Load(w.path)
	if err != nil {
		w.logger.Warn("ignoring unreadable credentials", "path", w.path, "err", err)
		return ""
	}
	return c.ActiveUserID(w.now())
}
