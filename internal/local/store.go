package local

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/alfredjeanlab/dojolog/internal/idgen"
	"github.com/alfredjeanlab/dojolog/internal/model"
)

// CollectionKey is the slot key holding the serialized session collection.
const CollectionKey = "sessions"

// Options configures a Store. Zero values select the production defaults.
type Options struct {
	Now   func() time.Time
	NewID idgen.Func
}

// Store is the local session collection. Each call loads the collection,
// applies its change and writes the whole collection back; calls on the
// same Store are serialized.
type Store struct {
	mu    sync.Mutex
	slot  Slot
	now   func() time.Time
	newID idgen.Func
}

// New returns a Store persisting to slot. A nil slot yields a Store whose
// every operation fails with ErrUnavailable.
func New(slot Slot, opts Options) *Store {
	s := &Store{slot: slot, now: opts.Now, newID: opts.NewID}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	if s.newID == nil {
		s.newID = idgen.NewSessionID
	}
	return s
}

// Close closes the underlying slot.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.slot == nil {
		return nil
	}
	err := s.slot.Close()
	s.slot = nil
	return err
}

// Add validates in and appends a new pending session. A store without
// persistence fails with ErrUnavailable before the input is looked at.
func (s *Store) Add(ctx context.Context, in *model.SessionInput) (*model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.slot == nil {
		return nil, fmt.Errorf("add session: %w", ErrUnavailable)
	}
	if err := model.ValidateInput(in); err != nil {
		return nil, err
	}

	sessions, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	id, err := s.newID()
	if err != nil {
		return nil, fmt.Errorf("add session: %w", err)
	}
	sess := model.Session{
		ID:          id,
		CreatedAt:   s.now(),
		Date:        in.Date,
		StartTime:   in.StartTime,
		Type:        in.Type,
		DurationMin: in.DurationMin,
		Tags:        append([]string{}, in.Tags...),
		Memo:        in.Memo,
		SyncState:   model.SyncPending,
	}
	sessions = append(sessions, sess)

	if err := s.save(ctx, sessions); err != nil {
		return nil, err
	}
	return sess.Clone(), nil
}

// List returns copies of every session whose date falls inside filter.
func (s *Store) List(ctx context.Context, filter model.SessionFilter) ([]model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return filter.Apply(sessions), nil
}

// Get returns a copy of the session with the given id, or nil if absent.
func (s *Store) Get(ctx context.Context, id string) (*model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	if i := indexOf(sessions, id); i >= 0 {
		return sessions[i].Clone(), nil
	}
	return nil, nil
}

// Update applies patch to the session with the given id and resets it to
// pending. It returns nil without writing anything if the id is unknown.
func (s *Store) Update(ctx context.Context, id string, patch *model.SessionPatch) (*model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.slot == nil {
		return nil, fmt.Errorf("update session: %w", ErrUnavailable)
	}
	if err := model.ValidatePatch(patch); err != nil {
		return nil, err
	}

	sessions, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	i := indexOf(sessions, id)
	if i < 0 {
		return nil, nil
	}

	patch.Apply(&sessions[i])
	sessions[i].SyncState = model.SyncPending
	sessions[i].SyncAttempts = 0

	if err := s.save(ctx, sessions); err != nil {
		return nil, err
	}
	return sessions[i].Clone(), nil
}

// Delete removes the session with the given id. It reports whether the
// session existed; deleting an absent id is not an error.
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions, err := s.load(ctx)
	if err != nil {
		return false, err
	}
	i := indexOf(sessions, id)
	if i < 0 {
		return false, nil
	}
	sessions = append(sessions[:i], sessions[i+1:]...)
	return true, s.save(ctx, sessions)
}

// MarkSynced records a confirmed remote write for id. Absent ids are ignored.
func (s *Store) MarkSynced(ctx context.Context, id string) error {
	return s.mutate(ctx, id, func(sess *model.Session) bool {
		if sess.SyncState == model.SyncSynced && sess.SyncAttempts == 0 {
			return false
		}
		sess.SyncState = model.SyncSynced
		sess.SyncAttempts = 0
		return true
	})
}

// MarkFailed records a failed remote write for id. Once the consecutive
// failure count reaches maxAttempts the session moves to the error state;
// maxAttempts <= 0 keeps it pending forever. Absent or synced ids are ignored.
func (s *Store) MarkFailed(ctx context.Context, id string, maxAttempts int) error {
	return s.mutate(ctx, id, func(sess *model.Session) bool {
		if sess.SyncState == model.SyncSynced {
			return false
		}
		sess.SyncAttempts++
		if maxAttempts > 0 && sess.SyncAttempts >= maxAttempts {
			sess.SyncState = model.SyncError
		}
		return true
	})
}

// Pending returns copies of every session that is not synced, including
// sessions in the error state.
func (s *Store) Pending(ctx context.Context) ([]model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.Session, 0, len(sessions))
	for _, sess := range sessions {
		if !sess.IsSynced() {
			out = append(out, sess)
		}
	}
	return out, nil
}

// ReplaceAll overwrites the collection with fn's result. fn receives the
// current collection and runs under the store lock, so writes made by
// other callers cannot be lost between the read and the write.
func (s *Store) ReplaceAll(ctx context.Context, fn func(current []model.Session) []model.Session) ([]model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	next := fn(current)
	if err := s.save(ctx, next); err != nil {
		return nil, err
	}
	out := make([]model.Session, len(next))
	for i := range next {
		out[i] = *next[i].Clone()
	}
	return out, nil
}

// mutate applies fn to the session with the given id and persists the
// collection if fn reports a change.
func (s *Store) mutate(ctx context.Context, id string, fn func(*model.Session) bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions, err := s.load(ctx)
	if err != nil {
		return err
	}
	i := indexOf(sessions, id)
	if i < 0 || !fn(&sessions[i]) {
		return nil
	}
	return s.save(ctx, sessions)
}

// load reads and decodes the collection. Callers must hold s.mu.
func (s *Store) load(ctx context.Context) ([]model.Session, error) {
	if s.slot == nil {
		return nil, fmt.Errorf("load sessions: %w", ErrUnavailable)
	}
	raw, ok, err := s.slot.Get(ctx, CollectionKey)
	if err != nil {
		return nil, fmt.Errorf("load sessions: %w", err)
	}
	if !ok || len(raw) == 0 {
		return []model.Session{}, nil
	}

	var sessions []model.Session
	if err := json.Unmarshal(raw, &sessions); err != nil {
		return nil, fmt.Errorf("decode sessions: %w", err)
	}
	for i := range sessions {
		if sessions[i].Tags == nil {
			sessions[i].Tags = []string{}
		}
		if !sessions[i].SyncState.IsValid() {
			sessions[i].SyncState = model.SyncPending
		}
	}
	return sessions, nil
}

// save encodes and writes the collection. Callers must hold s.mu.
func (s *Store) save(ctx context.Context, sessions []model.Session) error {
	if sessions == nil {
		sessions = []model.Session{}
	}
	raw, err := json.Marshal(sessions)
	if err != nil {
		return fmt.Errorf("encode sessions: %w", err)
	}
	if err := s.slot.Set(ctx, CollectionKey, raw); err != nil {
		return fmt.Errorf("save sessions: %w", err)
	}
	return nil
}

func indexOf(sessions []model.Session, id string) int {
	for i := range sessions {
		if sessions[i].ID == id {
			return i
		}
	}
	return -1
}
