package main

import (
	"regexp"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

func flagCommand(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "test"}
	addSessionFlags(cmd)
	addRangeFlags(cmd)
	if err := cmd.Flags().Parse(args); err != nil {
		t.Fatalf("parse %v: %v", args, err)
	}
	return cmd
}

func TestPatchFromFlags(t *testing.T) {
	p := patchFromFlags(flagCommand(t, "-d", "45", "--tag", "guard", "--tag", "sweeps", "--memo", ""))

	if p.DurationMin == nil || *p.DurationMin != 45 {
		t.Errorf("DurationMin = %v, want 45", p.DurationMin)
	}
	if p.Tags == nil || strings.Join(*p.Tags, ",") != "guard,sweeps" {
		t.Errorf("Tags = %v", p.Tags)
	}
	// An explicitly empty memo clears it.
	if p.Memo == nil || *p.Memo != "" {
		t.Errorf("Memo = %v, want empty string", p.Memo)
	}
	if p.Date != nil || p.StartTime != nil || p.Type != nil {
		t.Errorf("unset flags leaked into patch: %+v", p)
	}
}

func TestPatchFromFlags_NothingSet(t *testing.T) {
	if p := patchFromFlags(flagCommand(t)); !p.IsEmpty() {
		t.Errorf("patch = %+v, want empty", p)
	}
}

func TestFilterFromFlags(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr bool
	}{
		{"none", nil, false},
		{"from only", []string{"--from", "2025-04-01"}, false},
		{"ordered", []string{"--from", "2025-04-01", "--to", "2025-04-30"}, false},
		{"same day", []string{"--from", "2025-04-01", "--to", "2025-04-01"}, false},
		{"reversed", []string{"--from", "2025-05-01", "--to", "2025-04-01"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := filterFromFlags(flagCommand(t, tt.args...))
			if (err != nil) != tt.wantErr {
				t.Errorf("err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

var ansi = regexp.MustCompile("\x1b\\[[0-9;]*m")

func TestColorizeHelpOutput(t *testing.T) {
	plain := "Usage:\n  dojo [command]\n\nSessions:\n  add         Log a training session\n\nFlags:\n  -d, --duration int   duration in minutes\n      --date string    session date (default \"today\")\n"

	got := colorizeHelpOutput(plain)
	if got == plain {
		t.Fatal("expected ANSI styling")
	}
	if stripped := ansi.ReplaceAllString(got, ""); stripped != plain {
		t.Errorf("stripping colors changed the text:\n%q\nwant\n%q", stripped, plain)
	}
	if !strings.Contains(got, "\x1b[38;5;74mSessions:\x1b[0m") {
		t.Errorf("group header not styled:\n%q", got)
	}
}
