package sync

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/alfredjeanlab/dojolog/internal/remote"
)

// Monitor polls a remote and signals when it becomes reachable again.
// The remote is assumed unreachable at start, so the first successful
// probe also signals.
type Monitor struct {
	pinger   remote.Pinger
	interval time.Duration
	timeout  time.Duration
	signal   chan<- struct{}
	logger   *slog.Logger

	mu sync.Mutex
	up bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewMonitor creates a monitor that probes p every interval and sends on
// signal after each failure-to-success transition. Sends never block.
func NewMonitor(p remote.Pinger, interval time.Duration, signal chan<- struct{}, logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	timeout := interval / 2
	if timeout <= 0 || timeout > 10*time.Second {
		timeout = 10 * time.Second
	}
	return &Monitor{
		pinger:   p,
		interval: interval,
		timeout:  timeout,
		signal:   signal,
		logger:   logger,
	}
}

// Start probes once immediately, then on each tick.
func (m *Monitor) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.run(ctx)
	}()
}

// Stop cancels the monitor and waits for the current probe to finish.
func (m *Monitor) Stop() {
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()
}

func (m *Monitor) run(ctx context.Context) {
	m.Probe(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Probe(ctx)
		}
	}
}

// Probe pings the remote once and signals on a failure-to-success
// transition. It reports whether the remote answered.
func (m *Monitor) Probe(ctx context.Context) bool {
	pctx, cancel := context.WithTimeout(ctx, m.timeout)
	err := m.pinger.Ping(pctx)
	cancel()

	m.mu.Lock()
	wasUp := m.up
	m.up = err == nil
	m.mu.Unlock()

	switch {
	case err != nil && wasUp:
		m.logger.Warn("remote unreachable; working offline", "err", err)
	case err == nil && !wasUp:
		m.logger.Info("remote reachable")
		select {
		case m.signal <- struct{}{}:
		default:
		}
	}
	return err == nil
}
