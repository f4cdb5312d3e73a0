// Package events carries change notifications for the session log over an
// event bus. Publishing is advisory: a failed publish never fails the
// operation that triggered it.
package events

import (
	"context"

	"github.com/alfredjeanlab/dojolog/internal/model"
)

// Event topic constants
const (
	TopicSessionCreated  = "dojolog.session.created"
	TopicSessionUpdated  = "dojolog.session.updated"
	TopicSessionDeleted  = "dojolog.session.deleted"
	TopicIdentityChanged = "dojolog.identity.changed"
	TopicSyncCompleted   = "dojolog.sync.completed"

	// TopicAll matches every dojolog topic.
	TopicAll = "dojolog.>"
)

// Event types

type SessionCreated struct {
	Session *model.Session `json:"session"`
}

type SessionUpdated struct {
	Session *model.Session `json:"session"`
}

type SessionDeleted struct {
	SessionID string `json:"session_id"`
}

// IdentityChanged announces a sign-in or sign-out. An empty UserID means
// signed out.
type IdentityChanged struct {
	UserID string `json:"user_id"`
}

type SyncCompleted struct {
	Attempted int `json:"attempted"`
	Synced    int `json:"synced"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}

// Publisher is the interface for emitting events.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}

// Subscriber receives events from the event bus.
type Subscriber interface {
	// Subscribe delivers raw event payloads on the returned channel.
	// Call the returned cancel function to unsubscribe and close the channel.
	Subscribe(topic string) (<-chan []byte, func(), error)
	Close() error
}
