package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alfredjeanlab/dojolog/internal/events"
)

const (
	// replaySize is the number of recent events kept for Last-Event-ID replay.
	replaySize = 256

	// keepaliveInterval is how often a comment line is sent to idle streams.
	keepaliveInterval = 15 * time.Second
)

// streamEvent is one event in the replay ring and on the wire.
type streamEvent struct {
	ID    uint64
	Topic string
	Data  []byte
}

// Hub fans published events out to connected event-stream clients and
// keeps a short replay ring for reconnects.
type Hub struct {
	mu      sync.RWMutex
	clients map[*streamClient]struct{}
	nextID  atomic.Uint64

	ringMu  sync.RWMutex
	ring    [replaySize]streamEvent
	ringPos int
	ringLen int
}

type streamClient struct {
	topics []string // patterns; empty matches everything
	ch     chan *streamEvent
}

// NewHub returns an empty Hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[*streamClient]struct{})}
}

// Wrap returns a Publisher that broadcasts every event to the hub and then
// forwards it to next. A nil next only broadcasts.
func (h *Hub) Wrap(next events.Publisher) events.Publisher {
	if next == nil {
		next = &events.NoopPublisher{}
	}
	return &hubPublisher{hub: h, next: next}
}

type hubPublisher struct {
	hub  *Hub
	next events.Publisher
}

func (p *hubPublisher) Publish(ctx context.Context, topic string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling event: %w", err)
	}
	p.hub.broadcast(topic, payload)
	return p.next.Publish(ctx, topic, event)
}

func (p *hubPublisher) Close() error {
	return p.next.Close()
}

func (h *Hub) broadcast(topic string, payload []byte) {
	evt := &streamEvent{ID: h.nextID.Add(1), Topic: topic, Data: payload}

	h.ringMu.Lock()
	h.ring[h.ringPos] = *evt
	h.ringPos = (h.ringPos + 1) % replaySize
	if h.ringLen < replaySize {
		h.ringLen++
	}
	h.ringMu.Unlock()

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		if !c.matches(topic) {
			continue
		}
		select {
		case c.ch <- evt:
		default:
			// slow client; drop
		}
	}
}

func (h *Hub) subscribe(topics []string) *streamClient {
	c := &streamClient{topics: topics, ch: make(chan *streamEvent, 64)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	return c
}

func (h *Hub) unsubscribe(c *streamClient) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
}

// since returns buffered events with ID > lastID, oldest first.
func (h *Hub) since(lastID uint64) []*streamEvent {
	h.ringMu.RLock()
	defer h.ringMu.RUnlock()

	var out []*streamEvent
	start := (h.ringPos - h.ringLen + replaySize) % replaySize
	for i := range h.ringLen {
		evt := &h.ring[(start+i)%replaySize]
		if evt.ID > lastID {
			out = append(out, evt)
		}
	}
	return out
}

func (c *streamClient) matches(topic string) bool {
	if len(c.topics) == 0 {
		return true
	}
	for _, p := range c.topics {
		if matchTopic(p, topic) {
			return true
		}
	}
	return false
}

// matchTopic matches a dot-separated topic against a NATS-style pattern:
// "*" matches one segment and a trailing ">" matches one or more.
func matchTopic(pattern, topic string) bool {
	if pattern == topic {
		return true
	}
	pat := strings.Split(pattern, ".")
	top := strings.Split(topic, ".")
	for i, p := range pat {
		if p == ">" {
			return i < len(top)
		}
		if i >= len(top) || (p != "*" && p != top[i]) {
			return false
		}
	}
	return len(pat) == len(top)
}

// handleEventStream handles GET /v1/events/stream?topics=a,b.
func (s *Server) handleEventStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	var topics []string
	for _, t := range strings.Split(r.URL.Query().Get("topics"), ",") {
		if t = strings.TrimSpace(t); t != "" {
			topics = append(topics, t)
		}
	}

	client := s.hub.subscribe(topics)
	defer s.hub.unsubscribe(client)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	if last := r.Header.Get("Last-Event-ID"); last != "" {
		if lastID, err := strconv.ParseUint(last, 10, 64); err == nil {
			for _, evt := range s.hub.since(lastID) {
				if client.matches(evt.Topic) {
					writeStreamEvent(w, evt)
				}
			}
			flusher.Flush()
		}
	}

	keepalive := time.NewTicker(keepaliveInterval)
	defer keepalive.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case evt := <-client.ch:
			writeStreamEvent(w, evt)
			flusher.Flush()
		case <-keepalive.C:
			fmt.Fprint(w, ":keepalive\n\n")
			flusher.Flush()
		}
	}
}

func writeStreamEvent(w http.ResponseWriter, evt *streamEvent) {
	fmt.Fprintf(w, "id:%d\nevent:%s\ndata:%s\n\n", evt.ID, evt.Topic, evt.Data)
}
