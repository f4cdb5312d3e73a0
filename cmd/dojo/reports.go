package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/alfredjeanlab/dojolog/internal/model"
	"github.com/alfredjeanlab/dojolog/internal/stats"
	dojosync "github.com/alfredjeanlab/dojolog/internal/sync"
	"github.com/alfredjeanlab/dojolog/internal/ui"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:     "stats",
	Short:   "Show training volume by type and period",
	GroupID: "reports",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		filter, err := filterFromFlags(cmd)
		if err != nil {
			return err
		}
		periodFlag, _ := cmd.Flags().GetString("period")
		period, err := stats.ParsePeriod(periodFlag)
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
		summary := stats.Summarize(sessions)
		volume, err := stats.Volume(sessions, period)
		if err != nil {
			return err
		}

		if jsonOutput {
			return printJSON(map[string]any{"summary": summary, "period": period, "volume": volume})
		}

		fmt.Println(ui.RenderAccent("Training Summary"))
		fmt.Printf("  Sessions: %d\n", summary.Count)
		fmt.Printf("  Minutes:  %d\n", summary.TotalMinutes)
		fmt.Println()
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "TYPE\tSESSIONS\tMIN")
		for _, tt := range summary.ByType {
			fmt.Fprintf(w, "%s\t%d\t%d\n", tt.Type, tt.Count, tt.Minutes)
		}
		w.Flush()

		if len(volume) > 0 {
			fmt.Println()
			w = tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "%s\tSTART\tSESSIONS\tMIN\n", strings.ToUpper(string(period)))
			for _, b := range volume {
				fmt.Fprintf(w, "%s\t%s\t%d\t%d\n", b.Key, b.Start, b.Count, b.Minutes)
			}
			w.Flush()
		}
		return nil
	},
}

var tagsCmd = &cobra.Command{
	Use:     "tags",
	Short:   "Show sessions grouped by tag",
	GroupID: "reports",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sessionType, _ := cmd.Flags().GetString("type")
		query, _ := cmd.Flags().GetString("query")
		full, _ := cmd.Flags().GetBool("sessions")

		ctx := context.Background()
		a, err := openApp(ctx, nil)
		if err != nil {
			return err
		}
		defer a.Close()

		sessions, err := a.store.ListSessions(ctx, model.SessionFilter{})
		if err != nil {
			return err
		}
		entries := stats.AnalyzeTags(sessions, stats.TagQuery{Type: model.SessionType(sessionType), Query: query})

		if jsonOutput {
			if entries == nil {
				entries = []stats.TagEntry{}
			}
			return printJSON(entries)
		}
		if len(entries) == 0 {
			fmt.Println("No tags found.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "TAG\tSESSIONS\tMIN\tLAST")
		for _, e := range entries {
			fmt.Fprintf(w, "%s\t%d\t%d\t%s\n", e.Tag, len(e.Sessions), e.TotalMinutes, e.Sessions[0].Date)
			if full {
				for _, s := range e.Sessions {
					fmt.Fprintf(w, "  %s\t%s\t%d\t%s\n", s.ID, s.Type, s.DurationMin, s.Date)
				}
			}
		}
		w.Flush()
		return nil
	},
}

var exportCmd = &cobra.Command{
	Use:     "export",
	Short:   "Export all sessions as JSONL",
	Long: `Export all sessions as JSONL: a header line, then one line per session
ordered by date. Writes to stdout unless --out, --s3 or --git is given.
The S3 and git targets come from DOJO_EXPORT_S3_* and DOJO_EXPORT_GIT_*.`,
	GroupID: "reports",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out, _ := cmd.Flags().GetString("out")
		toS3, _ := cmd.Flags().GetBool("s3")
		toGit, _ := cmd.Flags().GetBool("git")

		ctx := context.Background()
		a, err := openApp(ctx, nil)
		if err != nil {
			return err
		}
		defer a.Close()

		var dests []dojosync.Destination
		if toS3 {
			if cfg.ExportS3Bucket == "" {
				return fmt.Errorf("--s3 requires DOJO_EXPORT_S3_BUCKET")
			}
			d, err := dojosync.NewS3Destination(ctx, dojosync.S3Options{
				Bucket:   cfg.ExportS3Bucket,
				Key:      cfg.ExportS3Key,
				Region:   cfg.ExportS3Region,
				Endpoint: cfg.ExportS3Endpoint,
			})
			if err != nil {
				return err
			}
			dests = append(dests, d)
		}
		if toGit {
			if cfg.ExportGitRepo == "" {
				return fmt.Errorf("--git requires DOJO_EXPORT_GIT_REPO")
			}
			dests = append(dests, dojosync.NewGitDestination(cfg.ExportGitRepo, cfg.ExportGitFile, cfg.ExportGitBranch))
		}
		if len(dests) > 0 {
			return dojosync.Export(ctx, a.lister(), logger, dests...)
		}

		var w io.Writer = os.Stdout
		if out != "" {
			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("create %s: %w", out, err)
			}
			defer f.Close()
			w = f
		}
		return dojosync.ExportJSONL(ctx, a.lister(), w)
	},
}

func init() {
	addRangeFlags(statsCmd)
	statsCmd.Flags().StringP("period", "p", "week", "volume bucket: week or month")

	tagsCmd.Flags().StringP("type", "t", "", "only sessions of this type")
	tagsCmd.Flags().StringP("query", "q", "", "only tags containing this text")
	tagsCmd.Flags().Bool("sessions", false, "list the sessions under each tag")

	exportCmd.Flags().StringP("out", "o", "", "write to this file instead of stdout")
	exportCmd.Flags().Bool("s3", false, "upload to the configured S3 bucket")
	exportCmd.Flags().Bool("git", false, "commit to the configured git repo")
}
