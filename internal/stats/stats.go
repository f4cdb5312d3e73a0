// Package stats aggregates training sessions for reports.
package stats

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/alfredjeanlab/dojolog/internal/model"
)

// TypeTotal is the volume logged for one session type.
type TypeTotal struct {
	Type    string `json:"type"`
	Count   int    `json:"count"`
	Minutes int    `json:"minutes"`
}

// Summary is the overall volume of a set of sessions.
type Summary struct {
	Count        int         `json:"count"`
	TotalMinutes int         `json:"totalMinutes"`
	ByType       []TypeTotal `json:"byType"`
}

// Summarize totals sessions overall and per type. The canonical types are
// always present, in display order; types written by other clients follow,
// sorted by name.
func Summarize(sessions []model.Session) Summary {
	byType := make(map[string]*TypeTotal)
	var out Summary
	for _, t := range model.SessionTypes {
		out.ByType = append(out.ByType, TypeTotal{Type: t.String()})
	}
	for i := range out.ByType {
		byType[out.ByType[i].Type] = &out.ByType[i]
	}

	var extra []TypeTotal
	for _, s := range sessions {
		out.Count++
		out.TotalMinutes += s.DurationMin
		if tt, ok := byType[string(s.Type)]; ok {
			tt.Count++
			tt.Minutes += s.DurationMin
			continue
		}
		idx := slices.IndexFunc(extra, func(tt TypeTotal) bool { return tt.Type == string(s.Type) })
		if idx < 0 {
			extra = append(extra, TypeTotal{Type: string(s.Type)})
			idx = len(extra) - 1
		}
		extra[idx].Count++
		extra[idx].Minutes += s.DurationMin
	}
	slices.SortFunc(extra, func(a, b TypeTotal) int { return strings.Compare(a.Type, b.Type) })
	out.ByType = append(out.ByType, extra...)
	return out
}

// Period is the bucket width used by Volume.
type Period string

const (
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
)

// ParsePeriod parses a period name. An empty string selects PeriodWeek.
func ParsePeriod(s string) (Period, error) {
	switch Period(strings.ToLower(s)) {
	case "", PeriodWeek:
		return PeriodWeek, nil
	case PeriodMonth:
		return PeriodMonth, nil
	}
	return "", fmt.Errorf("invalid period %q (want %q or %q)", s, PeriodWeek, PeriodMonth)
}

// Bucket is the volume logged in one week or month.
type Bucket struct {
	// Key is "2006-W01" for ISO weeks and "2006-01" for months.
	Key string `json:"key"`
	// Start is the first day of the bucket.
	Start   string `json:"start"`
	Count   int    `json:"count"`
	Minutes int    `json:"minutes"`
}

// Volume groups sessions into buckets of the given period, oldest first.
// Sessions whose date does not parse are ignored. Empty buckets are not
// emitted.
func Volume(sessions []model.Session, period Period) ([]Bucket, error) {
	if period != PeriodWeek && period != PeriodMonth {
		return nil, fmt.Errorf("invalid period %q", period)
	}
	buckets := make(map[string]*Bucket)
	for _, s := range sessions {
		d, err := time.Parse(model.DateLayout, s.Date)
		if err != nil {
			continue
		}
		key, start := bucketOf(d, period)
		b, ok := buckets[key]
		if !ok {
			b = &Bucket{Key: key, Start: start.Format(model.DateLayout)}
			buckets[key] = b
		}
		b.Count++
		b.Minutes += s.DurationMin
	}

	out := make([]Bucket, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, *b)
	}
	slices.SortFunc(out, func(a, b Bucket) int { return strings.Compare(a.Start, b.Start) })
	return out, nil
}

func bucketOf(d time.Time, period Period) (string, time.Time) {
	if period == PeriodMonth {
		return d.Format("2006-01"), time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC)
	}
	year, week := d.ISOWeek()
	offset := (int(d.Weekday()) + 6) % 7 // days since Monday
	return fmt.Sprintf("%04d-W%02d", year, week), d.AddDate(0, 0, -offset)
}

// TagQuery narrows a tag analysis.
type TagQuery struct {
	// Type keeps only sessions of this type. Empty keeps all.
	Type model.SessionType
	// Query keeps only tags containing it, case-insensitively. Empty keeps all.
	Query string
}

// TagEntry is one tag and the sessions that carry it.
type TagEntry struct {
	Tag          string          `json:"tag"`
	Sessions     []model.Session `json:"sessions"`
	TotalMinutes int             `json:"totalMinutes"`
}

// AnalyzeTags groups sessions by trimmed tag. Each entry lists its sessions
// newest first. Entries are ordered by session count, then total minutes,
// both descending, then by tag name.
func AnalyzeTags(sessions []model.Session, q TagQuery) []TagEntry {
	index := make(map[string]int)
	var entries []TagEntry
	for _, s := range sessions {
		if q.Type != "" && s.Type != q.Type {
			continue
		}
		seen := make(map[string]bool, len(s.Tags))
		for _, raw := range s.Tags {
			tag := strings.TrimSpace(raw)
			if tag == "" || seen[tag] {
				continue
			}
			seen[tag] = true
			i, ok := index[tag]
			if !ok {
				i = len(entries)
				index[tag] = i
				entries = append(entries, TagEntry{Tag: tag})
			}
			entries[i].Sessions = append(entries[i].Sessions, s)
			entries[i].TotalMinutes += s.DurationMin
		}
	}

	if query := strings.ToLower(strings.TrimSpace(q.Query)); query != "" {
		entries = slices.DeleteFunc(entries, func(e TagEntry) bool {
			return !strings.Contains(strings.ToLower(e.Tag), query)
		})
	}

	for i := range entries {
		slices.SortStableFunc(entries[i].Sessions, newestFirst)
	}
	slices.SortFunc(entries, func(a, b TagEntry) int {
		if c := cmp.Compare(len(b.Sessions), len(a.Sessions)); c != 0 {
			return c
		}
		if c := cmp.Compare(b.TotalMinutes, a.TotalMinutes); c != 0 {
			return c
		}
		return strings.Compare(a.Tag, b.Tag)
	})
	return entries
}

func newestFirst(a, b model.Session) int {
	return strings.Compare(sortKey(b), sortKey(a))
}

func sortKey(s model.Session) string {
	start := s.StartTime
	if start == "" {
		start = "00:00"
	}
	return s.Date + " " + start
}
