package main

import (
	"context"
	"fmt"

	"github.com/alfredjeanlab/dojolog/internal/model"
	"github.com/spf13/cobra"
)

var addCmd = &cobra.Command{
	Use:     "add",
	Short:   "Log a training session",
	GroupID: "sessions",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		date, _ := cmd.Flags().GetString("date")
		start, _ := cmd.Flags().GetString("start")
		sessionType, _ := cmd.Flags().GetString("type")
		duration, _ := cmd.Flags().GetInt("duration")
		tags, _ := cmd.Flags().GetStringSlice("tag")
		memo, _ := cmd.Flags().GetString("memo")

		if date == "" {
			date = timeNow().Format(model.DateLayout)
		}

		ctx := context.Background()
		a, err := openApp(ctx, nil)
		if err != nil {
			return err
		}
		defer a.Close()

		sess, err := a.store.AddSession(ctx, &model.SessionInput{
			Date:        date,
			StartTime:   start,
			Type:        model.SessionType(sessionType),
			DurationMin: duration,
			Tags:        tags,
			Memo:        memo,
		})
		if err != nil {
			return err
		}

		if jsonOutput {
			return printJSON(sess)
		}
		fmt.Printf("Logged %s (%d min %s on %s)\n", sess.ID, sess.DurationMin, sess.Type, sess.Date)
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:     "list",
	Short:   "List training sessions",
	GroupID: "sessions",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		filter, err := filterFromFlags(cmd)
		if err != nil {
			return err
		}

		ctx := context.Background()
		a, err := openApp(ctx, nil)
		if err != nil {
			return err
		}
		defer a.Close()

		sessions, err := a.store.ListSessions(ctx, filter)
		if err != nil {
			return err
		}
		sortSessions(sessions)

		if jsonOutput {
			if sessions == nil {
				sessions = []model.Session{}
			}
			return printJSON(sessions)
		}
		printSessionTable(sessions)
		return nil
	},
}

var showCmd = &cobra.Command{
	Use:     "show <id>",
	Short:   "Show one session",
	GroupID: "sessions",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		a, err := openApp(ctx, nil)
		if err != nil {
			return err
		}
		defer a.Close()

		sess, err := a.store.GetSession(ctx, args[0])
		if err != nil {
			return err
		}
		if sess == nil {
			return fmt.Errorf("session %s not found", args[0])
		}
		if jsonOutput {
			return printJSON(sess)
		}
		printSession(sess)
		return nil
	},
}

var updateCmd = &cobra.Command{
	Use:     "update <id>",
	Short:   "Change fields of a session",
	GroupID: "sessions",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		patch := patchFromFlags(cmd)
		if patch.IsEmpty() {
			return fmt.Errorf("nothing to update; pass at least one field flag")
		}

		ctx := context.Background()
		a, err := openApp(ctx, nil)
		if err != nil {
			return err
		}
		defer a.Close()

		sess, err := a.store.UpdateSession(ctx, args[0], patch)
		if err != nil {
			return err
		}
		if sess == nil {
			return fmt.Errorf("session %s not found", args[0])
		}
		if jsonOutput {
			return printJSON(sess)
		}
		fmt.Printf("Updated %s\n", sess.ID)
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:     "delete <id>...",
	Short:   "Delete sessions",
	GroupID: "sessions",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		a, err := openApp(ctx, nil)
		if err != nil {
			return err
		}
		defer a.Close()

		for _, id := range args {
			if err := a.store.DeleteSession(ctx, id); err != nil {
				return fmt.Errorf("delete %s: %w", id, err)
			}
			if !jsonOutput {
				fmt.Printf("Deleted %s\n", id)
			}
		}
		if jsonOutput {
			return printJSON(map[string]any{"deleted": args})
		}
		return nil
	},
}

// patchFromFlags builds a patch from the flags the user actually set.
func patchFromFlags(cmd *cobra.Command) *model.SessionPatch {
	var p model.SessionPatch
	flags := cmd.Flags()
	if flags.Changed("date") {
		v, _ := flags.GetString("date")
		p.Date = &v
	}
	if flags.Changed("start") {
		v, _ := flags.GetString("start")
		p.StartTime = &v
	}
	if flags.Changed("type") {
		v, _ := flags.GetString("type")
		t := model.SessionType(v)
		p.Type = &t
	}
	if flags.Changed("duration") {
		v, _ := flags.GetInt("duration")
		p.DurationMin = &v
	}
	if flags.Changed("tag") {
		v, _ := flags.GetStringSlice("tag")
		p.Tags = &v
	}
	if flags.Changed("memo") {
		v, _ := flags.GetString("memo")
		p.Memo = &v
	}
	return &p
}

func filterFromFlags(cmd *cobra.Command) (model.SessionFilter, error) {
	from, _ := cmd.Flags().GetString("from")
	to, _ := cmd.Flags().GetString("to")
	f := model.SessionFilter{From: from, To: to}
	if f.From != "" && f.To != "" && f.From > f.To {
		return f, fmt.Errorf("--from %s is after --to %s", f.From, f.To)
	}
	return f, nil
}

func addSessionFlags(cmd *cobra.Command) {
	cmd.Flags().String("date", "", "session date YYYY-MM-DD (default today)")
	cmd.Flags().String("start", "", "start time HH:MM")
	cmd.Flags().StringP("type", "t", "", "session type: striking, wrestling, grappling or tactics")
	cmd.Flags().IntP("duration", "d", 0, "duration in minutes")
	cmd.Flags().StringSlice("tag", nil, "tag (repeatable, at most 3)")
	cmd.Flags().StringP("memo", "m", "", "free-text memo")
}

func addRangeFlags(cmd *cobra.Command) {
	cmd.Flags().String("from", "", "first date to include (YYYY-MM-DD)")
	cmd.Flags().String("to", "", "last date to include (YYYY-MM-DD)")
}

func init() {
	addSessionFlags(addCmd)
	_ = addCmd.MarkFlagRequired("type")
	_ = addCmd.MarkFlagRequired("duration")

	addSessionFlags(updateCmd)
	addRangeFlags(listCmd)
}
