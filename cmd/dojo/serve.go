package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alfredjeanlab/dojolog/internal/config"
	"github.com/alfredjeanlab/dojolog/internal/credentials"
	"github.com/alfredjeanlab/dojolog/internal/events"
	"github.com/alfredjeanlab/dojolog/internal/server"
	dojosync "github.com/alfredjeanlab/dojolog/internal/sync"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Short:   "Serve the session API and sync in the background",
	GroupID: "system",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		hub := server.NewHub()

		// Reconnect signals come from the NATS client and the remote probe.
		reconnect := make(chan struct{}, 1)

		var bus *events.NATSBus
		if cfg.NATSURL != "" {
			b, err := events.Connect(cfg.NATSURL, events.OnReconnect(reconnect))
			if err != nil {
				return err
			}
			bus = b
			logger.Info("events enabled", "nats_url", cfg.NATSURL)
		} else {
			logger.Info("events disabled (DOJO_NATS_URL not set)")
		}
		var next events.Publisher
		if bus != nil {
			next = bus
		}
		publisher := hub.Wrap(next)

		a, err := openApp(ctx, publisher)
		if err != nil {
			publisher.Close()
			return err
		}

		var (
			monitor      *dojosync.Monitor
			watcher      *credentials.Watcher
			stopIdentity func()
		)
		if a.coord != nil {
			a.coord.Start(reconnect)

			if a.table != nil && cfg.ProbeInterval > 0 {
				monitor = dojosync.NewMonitor(a.table, cfg.ProbeInterval, reconnect, logger)
				monitor.Start()
				logger.Info("remote probe started", "interval", cfg.ProbeInterval)
			} else {
				// No probe to report the first contact; sweep once at startup.
				select {
				case reconnect <- struct{}{}:
				default:
				}
			}

			// A fixed Postgres user never changes; every other setup follows sign-ins.
			if !(cfg.Remote == config.RemotePostgres && cfg.UserID != "") {
				w, err := credentials.Watch(cfg.CredentialsPath, a.coord.OnIdentityChange, logger)
				if err != nil {
					logger.Error("credentials watcher disabled", "err", err)
				} else {
					watcher = w
				}
				if bus != nil {
					stop, err := events.WatchIdentity(bus, a.coord.OnIdentityChange, logger)
					if err != nil {
						logger.Error("identity subscription disabled", "err", err)
					} else {
						stopIdentity = stop
					}
				}
			}
		}

		mux := http.NewServeMux()
		mux.Handle("GET /metrics", promhttp.Handler())
		mux.Handle("/", server.New(a.store, hub, logger).NewHTTPHandler(cfg.AuthToken))
		httpServer := &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			logger.Info("HTTP server listening", "addr", cfg.HTTPAddr)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("HTTP server error", "err", err)
			}
		}()

		logger.Info("dojolog server started",
			"mode", cfg.Mode,
			"http_addr", cfg.HTTPAddr,
			"data_path", cfg.DataPath,
		)

		// Wait for SIGINT or SIGTERM.
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("received signal, shutting down", "signal", sig)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", "err", err)
		}
		logger.Info("HTTP server stopped")

		if stopIdentity != nil {
			stopIdentity()
		}
		if watcher != nil {
			if err := watcher.Close(); err != nil {
				logger.Error("error closing credentials watcher", "err", err)
			}
		}
		if monitor != nil {
			monitor.Stop()
			logger.Info("remote probe stopped")
		}

		// Closing the app stops the coordinator before the local store.
		if err := a.Close(); err != nil {
			logger.Error("error closing store", "err", err)
		}
		if err := publisher.Close(); err != nil {
			logger.Error("error closing publisher", "err", err)
		}

		logger.Info("shutdown complete")
		return nil
	},
}
