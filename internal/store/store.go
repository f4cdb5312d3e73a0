// Package store is the single entry point the rest of the application uses
// for training sessions. The mode chosen at startup decides whether calls
// go straight to the local store or through the sync coordinator.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/alfredjeanlab/dojolog/internal/events"
	"github.com/alfredjeanlab/dojolog/internal/local"
	"github.com/alfredjeanlab/dojolog/internal/model"
	dojosync "github.com/alfredjeanlab/dojolog/internal/sync"
)

// Store defines the session operations available to presentation code.
type Store interface {
	// ListSessions returns the sessions whose date falls inside filter.
	// Order is unspecified.
	ListSessions(ctx context.Context, filter model.SessionFilter) ([]model.Session, error)
	// AddSession validates and records a new session.
	AddSession(ctx context.Context, in *model.SessionInput) (*model.Session, error)
	// GetSession returns the session, or nil if it does not exist.
	GetSession(ctx context.Context, id string) (*model.Session, error)
	// UpdateSession patches the session, or returns nil if it does not exist.
	UpdateSession(ctx context.Context, id string, patch *model.SessionPatch) (*model.Session, error)
	// DeleteSession removes the session. Deleting an absent id is not an error.
	DeleteSession(ctx context.Context, id string) error
	Close() error
}

// Sweeper is implemented by stores that can push pending sessions on demand.
type Sweeper interface {
	SyncPending(ctx context.Context) (dojosync.SweepResult, error)
}

// Mode selects the store implementation.
type Mode string

const (
	ModeLocal  Mode = "local"
	ModeRemote Mode = "remote"
)

// ParseMode parses a mode name. An empty string selects ModeLocal.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeLocal:
		return ModeLocal, nil
	case ModeRemote:
		return ModeRemote, nil
	}
	return "", fmt.Errorf("invalid mode %q (want %q or %q)", s, ModeLocal, ModeRemote)
}

// New returns the Store for mode. ModeLocal uses l and announces its
// mutations on pub (nil disables events); ModeRemote uses c, which carries
// its own publisher.
func New(mode Mode, l *local.Store, c *dojosync.Coordinator, pub events.Publisher) (Store, error) {
	switch mode {
	case ModeLocal:
		if l == nil {
			return nil, fmt.Errorf("local mode requires a local store")
		}
		return NewLocal(l, pub), nil
	case ModeRemote:
		if c == nil {
			return nil, fmt.Errorf("remote mode requires a sync coordinator")
		}
		return NewSynced(c), nil
	}
	return nil, fmt.Errorf("invalid mode %q", mode)
}

// localStore serves every call from the device only.
type localStore struct {
	l   *local.Store
	pub events.Publisher
}

// NewLocal returns a Store that never talks to a remote. Successful
// mutations are announced on pub; nil disables events.
func NewLocal(l *local.Store, pub events.Publisher) Store {
	if pub == nil {
		pub = &events.NoopPublisher{}
	}
	return &localStore{l: l, pub: pub}
}

func (s *localStore) ListSessions(ctx context.Context, filter model.SessionFilter) ([]model.Session, error) {
	return s.l.List(ctx, filter)
}

func (s *localStore) AddSession(ctx context.Context, in *model.SessionInput) (*model.Session, error) {
	sess, err := s.l.Add(ctx, in)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.TopicSessionCreated, events.SessionCreated{Session: sess})
	return sess, nil
}

func (s *localStore) GetSession(ctx context.Context, id string) (*model.Session, error) {
	return s.l.Get(ctx, id)
}

func (s *localStore) UpdateSession(ctx context.Context, id string, patch *model.SessionPatch) (*model.Session, error) {
	sess, err := s.l.Update(ctx, id, patch)
	if err != nil || sess == nil {
		return nil, err
	}
	s.publish(ctx, events.TopicSessionUpdated, events.SessionUpdated{Session: sess})
	return sess, nil
}

func (s *localStore) DeleteSession(ctx context.Context, id string) error {
	existed, err := s.l.Delete(ctx, id)
	if err != nil {
		return err
	}
	if existed {
		s.publish(ctx, events.TopicSessionDeleted, events.SessionDeleted{SessionID: id})
	}
	return nil
}

func (s *localStore) Close() error {
	return s.l.Close()
}

func (s *localStore) publish(ctx context.Context, topic string, event any) {
	if err := s.pub.Publish(ctx, topic, event); err != nil {
		slog.Warn("publish event failed", "topic", topic, "err", err)
	}
}

// syncedStore writes through the coordinator.
type syncedStore struct {
	c *dojosync.Coordinator
}

// NewSynced returns a Store backed by the local store plus remote sync.
func NewSynced(c *dojosync.Coordinator) Store {
	return &syncedStore{c: c}
}

func (s *syncedStore) ListSessions(ctx context.Context, filter model.SessionFilter) ([]model.Session, error) {
	return s.c.List(ctx, filter)
}

func (s *syncedStore) AddSession(ctx context.Context, in *model.SessionInput) (*model.Session, error) {
	return s.c.Add(ctx, in)
}

func (s *syncedStore) GetSession(ctx context.Context, id string) (*model.Session, error) {
	return s.c.Get(ctx, id)
}

func (s *syncedStore) UpdateSession(ctx context.Context, id string, patch *model.SessionPatch) (*model.Session, error) {
	return s.c.Update(ctx, id, patch)
}

func (s *syncedStore) DeleteSession(ctx context.Context, id string) error {
	return s.c.Delete(ctx, id)
}

func (s *syncedStore) SyncPending(ctx context.Context) (dojosync.SweepResult, error) {
	return s.c.RetryPending(ctx)
}

func (s *syncedStore) Close() error {
	return s.c.Close()
}
