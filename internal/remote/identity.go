package remote

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Identity caches the user id returned by an Authenticator. A successful
// lookup is kept until Set or Invalidate; concurrent lookups share one call.
type Identity struct {
	auth   Authenticator
	logger *slog.Logger
	group  singleflight.Group

	mu     sync.RWMutex
	userID string
	gen    uint64
}

// NewIdentity returns an Identity resolving through auth. A nil auth never
// resolves.
func NewIdentity(auth Authenticator, logger *slog.Logger) *Identity {
	if logger == nil {
		logger = slog.Default()
	}
	return &Identity{auth: auth, logger: logger}
}

// UserID returns the signed-in user's id, or ErrNoIdentity.
func (i *Identity) UserID(ctx context.Context) (string, error) {
	i.mu.RLock()
	cached, gen := i.userID, i.gen
	i.mu.RUnlock()
	if cached != "" {
		return cached, nil
	}
	if i.auth == nil {
		return "", ErrNoIdentity
	}

	v, err, _ := i.group.Do("identity", func() (any, error) {
		// The lookup is shared, so one caller giving up must not fail the rest.
		id, err := i.auth.CurrentUser(context.WithoutCancel(ctx))
		if err != nil {
			return "", fmt.Errorf("resolve identity: %w", err)
		}
		i.mu.Lock()
		// A Set that raced the lookup is newer than what we just fetched.
		if id != "" && i.gen == gen {
			i.userID = id
		}
		i.mu.Unlock()
		return id, nil
	})
	if err != nil {
		return "", err
	}
	id := v.(string)
	if id == "" {
		i.logger.Warn("no authenticated user; remote sync skipped")
		return "", ErrNoIdentity
	}
	return id, nil
}

// Set applies an identity-change notification. An empty userID signs out
// and forces the next UserID call to ask the Authenticator again.
func (i *Identity) Set(userID string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if userID != i.userID {
		i.logger.Debug("identity changed", "signed_in", userID != "")
	}
	i.userID = userID
	i.gen++
}

// Invalidate drops the cached identity.
func (i *Identity) Invalidate() { i.Set("") }
