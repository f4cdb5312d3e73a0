package main

import (
	"context"
	"fmt"
	"time"

	"github.com/alfredjeanlab/dojolog/internal/model"
	"github.com/alfredjeanlab/dojolog/internal/remote/postgres"
	"github.com/alfredjeanlab/dojolog/internal/store"
	"github.com/alfredjeanlab/dojolog/internal/ui"
	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:     "sync",
	Short:   "Push pending sessions to the remote now",
	GroupID: "system",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Mode != store.ModeRemote {
			return fmt.Errorf("sync needs DOJO_MODE=remote")
		}
		ctx := context.Background()
		a, err := openApp(ctx, nil)
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.coord.RetryPending(ctx)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(res)
		}
		fmt.Printf("Attempted %d: %d synced, %d failed, %d skipped\n",
			res.Attempted, res.Synced, res.Failed, res.Skipped)
		if res.Skipped > 0 && res.Synced == 0 && res.Failed == 0 {
			fmt.Println(ui.RenderMuted("Nothing was pushed; check the remote settings and dojo whoami."))
		}
		return nil
	},
}

type statusReport struct {
	Mode       store.Mode `json:"mode"`
	DataPath   string     `json:"data_path"`
	Remote     string     `json:"remote,omitempty"`
	Configured bool       `json:"remote_configured"`
	Reachable  *bool      `json:"remote_reachable,omitempty"`
	UserID     string     `json:"user_id,omitempty"`
	Total      int        `json:"total"`
	Pending    int        `json:"pending"`
	Errored    int        `json:"error"`
}

var statusCmd = &cobra.Command{
	Use:     "status",
	Short:   "Show mode, remote, identity and sync backlog",
	GroupID: "system",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		a, err := openApp(ctx, nil)
		if err != nil {
			return err
		}
		defer a.Close()

		// Counts come from the local copy; status must not trigger a sync.
		sessions, err := a.local.List(ctx, model.SessionFilter{})
		if err != nil {
			return err
		}
		rep := statusReport{Mode: cfg.Mode, DataPath: cfg.DataPath, Total: len(sessions)}
		for _, s := range sessions {
			switch s.SyncState {
			case model.SyncError:
				rep.Errored++
			case model.SyncPending:
				rep.Pending++
			}
		}

		if cfg.Mode == store.ModeRemote {
			rep.Remote = cfg.Remote
			rep.Configured = a.table != nil
			if a.table != nil {
				pctx, cancel := context.WithTimeout(ctx, 10*time.Second)
				up := a.table.Ping(pctx) == nil
				cancel()
				rep.Reachable = &up
				if id, err := a.coord.Identity().UserID(ctx); err == nil {
					rep.UserID = id
				}
			}
		}

		if jsonOutput {
			return printJSON(rep)
		}
		fmt.Println(ui.RenderAccent("dojolog status"))
		fmt.Printf("  Mode:      %s\n", rep.Mode)
		fmt.Printf("  Data:      %s\n", rep.DataPath)
		if rep.Mode == store.ModeRemote {
			switch {
			case !rep.Configured:
				fmt.Printf("  Remote:    %s %s\n", rep.Remote, ui.RenderError("(not configured)"))
			case *rep.Reachable:
				fmt.Printf("  Remote:    %s (reachable)\n", rep.Remote)
			default:
				fmt.Printf("  Remote:    %s %s\n", rep.Remote, ui.RenderError("(unreachable)"))
			}
			user := rep.UserID
			if user == "" {
				user = ui.RenderMuted("not signed in")
			}
			fmt.Printf("  User:      %s\n", user)
		}
		fmt.Printf("  Sessions:  %d\n", rep.Total)
		fmt.Printf("  Pending:   %d\n", rep.Pending)
		fmt.Printf("  Errored:   %d\n", rep.Errored)
		return nil
	},
}

var migrateCmd = &cobra.Command{
	Use:     "migrate",
	Short:   "Create or update the sessions table on the Postgres remote",
	GroupID: "system",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.DatabaseURL == "" {
			return fmt.Errorf("migrate requires DOJO_DATABASE_URL")
		}
		down, _ := cmd.Flags().GetBool("down")

		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		pg, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer pg.Close()

		if down {
			if err := pg.MigrateDown(); err != nil {
				return err
			}
			fmt.Println("Sessions table dropped")
			return nil
		}
		version, err := pg.Migrate()
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(map[string]uint{"version": version})
		}
		fmt.Printf("Schema at version %d\n", version)
		return nil
	},
}

func init() {
	migrateCmd.Flags().Bool("down", false, "roll back every migration (drops the table)")
}
