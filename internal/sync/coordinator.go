// Package sync keeps the local session store mirrored to the remote table.
// Local writes always complete first; the remote leg is best effort and its
// failures only show up in each session's sync state.
package sync

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/alfredjeanlab/dojolog/internal/events"
	"github.com/alfredjeanlab/dojolog/internal/model"
	"github.com/alfredjeanlab/dojolog/internal/remote"
)

// DefaultMaxAttempts is the number of consecutive failed pushes after which
// a session is shown as a sync error.
const DefaultMaxAttempts = 5

// Local is the local store the coordinator writes through. *local.Store
// implements it.
type Local interface {
	Add(ctx context.Context, in *model.SessionInput) (*model.Session, error)
	List(ctx context.Context, filter model.SessionFilter) ([]model.Session, error)
	Get(ctx context.Context, id string) (*model.Session, error)
	Update(ctx context.Context, id string, patch *model.SessionPatch) (*model.Session, error)
	Delete(ctx context.Context, id string) (bool, error)
	MarkSynced(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string, maxAttempts int) error
	Pending(ctx context.Context) ([]model.Session, error)
	ReplaceAll(ctx context.Context, fn func([]model.Session) []model.Session) ([]model.Session, error)
	Close() error
}

// Options configures a Coordinator.
type Options struct {
	Local Local
	// Table is the remote table. Nil means no remote is configured: every
	// remote leg is skipped and sessions stay pending.
	Table remote.Table
	// Identity resolves the signed-in user. Nil never resolves.
	Identity  *remote.Identity
	Publisher events.Publisher
	Logger    *slog.Logger
	// MaxAttempts is passed to Local.MarkFailed. 0 keeps failed sessions
	// pending indefinitely.
	MaxAttempts int
	Now         func() time.Time
}

// SweepResult summarizes one retry sweep.
type SweepResult struct {
	Attempted int `json:"attempted"`
	Synced    int `json:"synced"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}

// Coordinator composes the local store and the remote table.
type Coordinator struct {
	local       Local
	table       remote.Table
	identity    *remote.Identity
	publisher   events.Publisher
	logger      *slog.Logger
	maxAttempts int
	now         func() time.Time

	kick   chan struct{}
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewCoordinator creates a coordinator. Call Start to enable retry sweeps.
func NewCoordinator(opts Options) *Coordinator {
	c := &Coordinator{
		local:       opts.Local,
		table:       opts.Table,
		identity:    opts.Identity,
		publisher:   opts.Publisher,
		logger:      opts.Logger,
		maxAttempts: opts.MaxAttempts,
		now:         opts.Now,
		kick:        make(chan struct{}, 1),
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.identity == nil {
		c.identity = remote.NewIdentity(nil, c.logger)
	}
	if c.publisher == nil {
		c.publisher = &events.NoopPublisher{}
	}
	if c.now == nil {
		c.now = func() time.Time { return time.Now().UTC() }
	}
	return c
}

// RemoteConfigured reports whether the coordinator has a remote table.
func (c *Coordinator) RemoteConfigured() bool { return c.table != nil }

// Identity returns the identity cache used for remote calls.
func (c *Coordinator) Identity() *remote.Identity { return c.identity }

// Local returns the underlying local store.
func (c *Coordinator) Local() Local { return c.local }

// Close stops the coordinator and closes the local store.
func (c *Coordinator) Close() error {
	c.Stop()
	return c.local.Close()
}

// Add writes a new session locally and then tries to push it. The returned
// session is the local write, so it is pending whatever the push outcome.
func (c *Coordinator) Add(ctx context.Context, in *model.SessionInput) (*model.Session, error) {
	sess, err := c.local.Add(ctx, in)
	if err != nil {
		return nil, err
	}
	c.publish(ctx, events.TopicSessionCreated, events.SessionCreated{Session: sess})

	if userID, ok := c.remoteUser(ctx); ok {
		c.push(ctx, sess, userID)
	}
	return sess, nil
}

// Get returns the local copy of a session, or nil.
func (c *Coordinator) Get(ctx context.Context, id string) (*model.Session, error) {
	return c.local.Get(ctx, id)
}

// Update patches a session locally and then tries to push it. It returns
// nil if the id is unknown.
func (c *Coordinator) Update(ctx context.Context, id string, patch *model.SessionPatch) (*model.Session, error) {
	sess, err := c.local.Update(ctx, id, patch)
	if err != nil || sess == nil {
		return nil, err
	}
	c.publish(ctx, events.TopicSessionUpdated, events.SessionUpdated{Session: sess})

	if userID, ok := c.remoteUser(ctx); ok {
		c.push(ctx, sess, userID)
	}
	return sess, nil
}

// Delete removes a session locally and then from the remote. A failed
// remote delete is logged and does not restore the local session.
func (c *Coordinator) Delete(ctx context.Context, id string) error {
	existed, err := c.local.Delete(ctx, id)
	if err != nil {
		return err
	}
	if existed {
		c.publish(ctx, events.TopicSessionDeleted, events.SessionDeleted{SessionID: id})
	}

	userID, ok := c.remoteUser(ctx)
	if !ok {
		deleteCounter.WithLabelValues(outcomeSkipped).Inc()
		return nil
	}
	if err := c.table.Delete(ctx, userID, id); err != nil {
		deleteCounter.WithLabelValues(outcomeFailed).Inc()
		c.logRemoteError("delete", id, err)
		return nil
	}
	deleteCounter.WithLabelValues(outcomeSynced).Inc()
	return nil
}

// List is the reconciling read. With a signed-in user it merges the
// remote rows into the local collection, persists the result and returns
// it filtered; otherwise, or on any remote failure, it returns the local
// collection.
func (c *Coordinator) List(ctx context.Context, filter model.SessionFilter) ([]model.Session, error) {
	localView, err := c.local.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	userID, ok := c.remoteUser(ctx)
	if !ok {
		readCounter.WithLabelValues(outcomeLocal).Inc()
		return localView, nil
	}

	rows, err := c.table.SelectAll(ctx, userID)
	if err != nil {
		readCounter.WithLabelValues(outcomeLocal).Inc()
		c.logRemoteError("select", "", err)
		return localView, nil
	}

	now := c.now()
	merged, err := c.local.ReplaceAll(ctx, func(current []model.Session) []model.Session {
		return Merge(current, rows, now)
	})
	if err != nil {
		return nil, err
	}
	readCounter.WithLabelValues(outcomeMerged).Inc()
	c.logger.Debug("reconciled sessions", "count", len(merged), "remote", len(rows))
	return filter.Apply(merged), nil
}

// RetryPending pushes every session that is not synced. Each session is
// attempted independently; a failure never stops the sweep. The error is
// non-nil only when the pending set could not be read.
func (c *Coordinator) RetryPending(ctx context.Context) (SweepResult, error) {
	var res SweepResult
	pending, err := c.local.Pending(ctx)
	if err != nil {
		return res, err
	}
	sweepCounter.Inc()

	userID, ok := c.remoteUser(ctx)
	for i := range pending {
		res.Attempted++
		if !ok {
			res.Skipped++
			continue
		}
		switch c.push(ctx, &pending[i], userID) {
		case outcomeSynced:
			res.Synced++
		case outcomeFailed:
			res.Failed++
		default:
			res.Skipped++
		}
	}

	pendingGauge.Set(float64(res.Attempted - res.Synced))
	c.publish(ctx, events.TopicSyncCompleted, events.SyncCompleted(res))
	if res.Attempted > 0 {
		c.logger.Info("sync sweep finished",
			"attempted", res.Attempted, "synced", res.Synced, "failed", res.Failed, "skipped", res.Skipped)
	}
	return res, nil
}

// Start runs a retry sweep every time reconnect fires, and after every
// sign-in reported through OnIdentityChange. Sweeps run one at a time on a
// single goroutine until Stop.
func (c *Coordinator) Start(reconnect <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.run(ctx, reconnect)
	}()
}

// Stop cancels the sweep loop and waits for the current sweep to finish.
func (c *Coordinator) Stop() {
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()
}

// OnIdentityChange applies an identity transition. A sign-in also schedules
// a sweep so sessions written while signed out are pushed.
func (c *Coordinator) OnIdentityChange(userID string) {
	c.identity.Set(userID)
	if userID == "" {
		return
	}
	select {
	case c.kick <- struct{}{}:
	default:
	}
}

func (c *Coordinator) run(ctx context.Context, reconnect <-chan struct{}) {
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-reconnect:
			if !ok {
				reconnect = nil
				continue
			}
		case <-c.kick:
		}
		if _, err := c.RetryPending(ctx); err != nil {
			c.logger.Error("sync sweep failed", "err", err)
		}
	}
}

// remoteUser resolves the user for a remote leg. ok is false when there is
// no remote or no signed-in user; both are expected states.
func (c *Coordinator) remoteUser(ctx context.Context) (string, bool) {
	if c.table == nil {
		return "", false
	}
	userID, err := c.identity.UserID(ctx)
	if err != nil {
		if !errors.Is(err, remote.ErrNoIdentity) {
			c.logger.Error("identity lookup failed; remote sync skipped", "err", err)
		}
		return "", false
	}
	return userID, true
}

// push upserts one session and records the outcome on the local copy.
func (c *Coordinator) push(ctx context.Context, sess *model.Session, userID string) string {
	if err := c.table.Upsert(ctx, remote.ToRow(sess, userID)); err != nil {
		pushCounter.WithLabelValues(outcomeFailed).Inc()
		c.logRemoteError("upsert", sess.ID, err)
		if err := c.local.MarkFailed(ctx, sess.ID, c.maxAttempts); err != nil {
			c.logger.Error("record sync failure", "id", sess.ID, "err", err)
		}
		return outcomeFailed
	}
	if err := c.local.MarkSynced(ctx, sess.ID); err != nil {
		// The remote has it; the next reconciling read will mark it synced.
		c.logger.Error("record sync success", "id", sess.ID, "err", err)
		pushCounter.WithLabelValues(outcomeSkipped).Inc()
		return outcomeSkipped
	}
	pushCounter.WithLabelValues(outcomeSynced).Inc()
	return outcomeSynced
}

func (c *Coordinator) logRemoteError(op, id string, err error) {
	attrs := []any{"operation", op, "err", err}
	if id != "" {
		attrs = append(attrs, "id", id)
	}
	if remote.IsSchemaError(err) {
		c.logger.Error(remote.SchemaHint, attrs...)
		return
	}
	c.logger.Error("remote sync failed; will retry on reconnect", attrs...)
}

func (c *Coordinator) publish(ctx context.Context, topic string, event any) {
	if err := c.publisher.Publish(ctx, topic, event); err != nil {
		c.logger.Warn("publish event failed", "topic", topic, "err", err)
	}
}
