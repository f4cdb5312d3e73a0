package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/alfredjeanlab/dojolog/internal/model"
	"github.com/alfredjeanlab/dojolog/internal/ui"
)

var timeNow = time.Now

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

// sortSessions orders sessions newest first by date and start time.
func sortSessions(sessions []model.Session) {
	sort.SliceStable(sessions, func(i, j int) bool {
		if sessions[i].Date != sessions[j].Date {
			return sessions[i].Date > sessions[j].Date
		}
		return sessions[i].StartTime > sessions[j].StartTime
	})
}

func printSession(s *model.Session) {
	fmt.Printf("ID:        %s\n", s.ID)
	fmt.Printf("Date:      %s\n", s.Date)
	if s.StartTime != "" {
		fmt.Printf("Start:     %s\n", s.StartTime)
	}
	fmt.Printf("Type:      %s\n", s.Type)
	fmt.Printf("Duration:  %d min\n", s.DurationMin)
	if len(s.Tags) > 0 {
		fmt.Printf("Tags:      %s\n", strings.Join(s.Tags, ", "))
	}
	if s.Memo != "" {
		fmt.Printf("Memo:      %s\n", s.Memo)
	}
	fmt.Printf("Sync:      %s\n", ui.RenderSyncState(s.SyncState))
	if s.SyncAttempts > 0 {
		fmt.Printf("Attempts:  %d\n", s.SyncAttempts)
	}
	if !s.CreatedAt.IsZero() {
		fmt.Printf("Logged At: %s\n", s.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	}
}

func printSessionTable(sessions []model.Session) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, " \tID\tDATE\tSTART\tTYPE\tMIN\tTAGS")
	total := 0
	for _, s := range sessions {
		total += s.DurationMin
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
			ui.SyncMarker(s.SyncState),
			s.ID,
			s.Date,
			s.StartTime,
			s.Type,
			s.DurationMin,
			strings.Join(s.Tags, ", "),
		)
	}
	w.Flush()
	fmt.Println(ui.RenderMuted(fmt.Sprintf("\n%d sessions, %d min", len(sessions), total)))
}
