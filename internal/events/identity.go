package events

import (
	"encoding/json"
	"fmt"
	"log/slog"
)

// WatchIdentity subscribes to identity-change notifications and calls apply
// with the announced user id for each one, in order. Malformed payloads are
// logged and skipped. Call the returned function to stop watching.
func WatchIdentity(sub Subscriber, apply func(userID string), logger *slog.Logger) (func(), error) {
	if logger == nil {
		logger = slog.Default()
	}
	ch, cancel, err := sub.Subscribe(TopicIdentityChanged)
	if err != nil {
		return nil, fmt.Errorf("watch identity: %w", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for data := range ch {
			var ev IdentityChanged
			if err := json.Unmarshal(data, &ev); err != nil {
				logger.Warn("ignoring malformed identity event", "err", err)
				continue
			}
			apply(ev.UserID)
		}
	}()

	return func() {
		cancel()
		<-done
	}, nil
}
