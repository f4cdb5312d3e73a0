package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
)

// NATSBus publishes and subscribes to events on one NATS connection.
type NATSBus struct {
	conn *nats.Conn
}

// Compile-time checks.
var (
	_ Publisher  = (*NATSBus)(nil)
	_ Subscriber = (*NATSBus)(nil)
)

// Connect dials NATS with automatic reconnection. Extra nats.Option values
// (e.g. OnReconnect) are appended to the defaults.
func Connect(url string, opts ...nats.Option) (*NATSBus, error) {
	defaults := []nats.Option{
		nats.Name("dojolog"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
	}
	nc, err := nats.Connect(url, append(defaults, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", url, err)
	}
	return &NATSBus{conn: nc}, nil
}

// OnReconnect returns an option that signals on ch every time the
// connection is re-established. Signals are dropped if ch is full.
func OnReconnect(ch chan<- struct{}) nats.Option {
	return nats.ReconnectHandler(func(*nats.Conn) {
		select {
		case ch <- struct{}{}:
		default:
		}
	})
}

func (b *NATSBus) Publish(ctx context.Context, topic string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling event: %w", err)
	}
	if err := b.conn.Publish(topic, data); err != nil {
		return fmt.Errorf("publishing to %s: %w", topic, err)
	}
	return nil
}

// Subscribe returns a channel that receives raw event payloads for the given
// topic (supports NATS wildcards like "dojolog.>"). Call the returned cancel
// function to unsubscribe and close the channel.
func (b *NATSBus) Subscribe(topic string) (<-chan []byte, func(), error) {
	ch := make(chan []byte, 64)

	var (
		mu     sync.Mutex
		closed bool
		once   sync.Once
	)

	sub, err := b.conn.Subscribe(topic, func(msg *nats.Msg) {
		mu.Lock()
		defer mu.Unlock()
		if closed {
			return
		}
		select {
		case ch <- msg.Data:
		default:
			// Drop message if channel is full to avoid blocking the NATS client.
		}
	})
	if err != nil {
		close(ch)
		return nil, nil, fmt.Errorf("subscribing to %s: %w", topic, err)
	}
	// Flush ensures the subscription is registered on the server before
	// returning, so that messages published on other connections are routed.
	if err := b.conn.Flush(); err != nil {
		_ = sub.Unsubscribe()
		close(ch)
		return nil, nil, fmt.Errorf("flushing subscription: %w", err)
	}

	cancel := func() {
		once.Do(func() {
			_ = sub.Unsubscribe()
			mu.Lock()
			closed = true
			close(ch)
			mu.Unlock()
		})
	}

	return ch, cancel, nil
}

// Flush waits until the server has processed everything published so far.
func (b *NATSBus) Flush() error {
	return b.conn.Flush()
}

// Connected reports whether the connection is currently up.
func (b *NATSBus) Connected() bool {
	return b.conn.IsConnected()
}

func (b *NATSBus) Close() error {
	b.conn.Close()
	return nil
}
