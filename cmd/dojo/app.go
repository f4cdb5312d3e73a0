package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/alfredjeanlab/dojolog/internal/config"
	"github.com/alfredjeanlab/dojolog/internal/credentials"
	"github.com/alfredjeanlab/dojolog/internal/events"
	"github.com/alfredjeanlab/dojolog/internal/local"
	"github.com/alfredjeanlab/dojolog/internal/remote"
	"github.com/alfredjeanlab/dojolog/internal/remote/postgres"
	"github.com/alfredjeanlab/dojolog/internal/remote/rest"
	"github.com/alfredjeanlab/dojolog/internal/store"
	dojosync "github.com/alfredjeanlab/dojolog/internal/sync"
)

// app holds the components one command works with.
type app struct {
	local *local.Store
	store store.Store

	// Remote-mode only.
	coord *dojosync.Coordinator
	table remote.Table

	rest *rest.Client     // set when the REST remote is configured
	pg   *postgres.Table // set when the Postgres remote is configured
}

// openApp opens the local store and, in remote mode, the configured remote
// behind a sync coordinator. publisher may be nil.
func openApp(ctx context.Context, publisher events.Publisher) (*app, error) {
	slot, err := local.OpenSlot(cfg.DataPath)
	if err != nil {
		return nil, err
	}
	a := &app{local: local.New(slot, local.Options{})}

	if cfg.Mode == store.ModeRemote {
		auth, err := a.openRemote()
		if err != nil {
			_ = a.local.Close()
			return nil, err
		}
		a.coord = dojosync.NewCoordinator(dojosync.Options{
			Local:       a.local,
			Table:       a.table,
			Identity:    remote.NewIdentity(auth, logger),
			Publisher:   publisher,
			Logger:      logger,
			MaxAttempts: cfg.MaxSyncAttempts,
		})
	}

	a.store, err = store.New(cfg.Mode, a.local, a.coord, publisher)
	if err != nil {
		_ = a.local.Close()
		if a.pg != nil {
			_ = a.pg.Close()
		}
		return nil, err
	}
	return a, nil
}

// openRemote connects the remote named by the config. An unconfigured
// remote is not an error: sessions stay local and pending.
func (a *app) openRemote() (remote.Authenticator, error) {
	if !cfg.RemoteConfigured() {
		logger.Warn("remote mode without a configured remote; sessions stay pending", "remote", cfg.Remote)
		return nil, nil
	}
	switch cfg.Remote {
	case config.RemotePostgres:
		pg, err := postgres.Connect(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		a.pg, a.table = pg, pg
		if cfg.UserID != "" {
			return postgres.StaticAuthenticator(cfg.UserID), nil
		}
		return credentialsAuthenticator{path: cfg.CredentialsPath}, nil
	default:
		a.rest = newRESTClient()
		a.table = a.rest
		return a.rest, nil
	}
}

// newRESTClient returns a client for the hosted remote that reads the
// access token from the credentials file on every request.
func newRESTClient() *rest.Client {
	return rest.New(cfg.RESTURL, cfg.AnonKey, credentials.TokenSource(cfg.CredentialsPath, nil))
}

func (a *app) Close() error {
	var errs []error
	if err := a.store.Close(); err != nil {
		errs = append(errs, err)
	}
	if a.pg != nil {
		if err := a.pg.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// lister returns the read path used for exports and reports.
func (a *app) lister() dojosync.Lister {
	if a.coord != nil {
		return a.coord
	}
	return a.local
}

// credentialsAuthenticator resolves the user from the credentials file.
// It serves the Postgres remote when no fixed user id is configured.
type credentialsAuthenticator struct {
	path string
}

func (c credentialsAuthenticator) CurrentUser(context.Context) (string, error) {
	creds, err := credentials.Load(c.path)
	if err != nil {
		return "", fmt.Errorf("current user: %w", err)
	}
	return creds.ActiveUserID(timeNow()), nil
}
