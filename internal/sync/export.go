package sync

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/alfredjeanlab/dojolog/internal/model"
)

// ExportVersion is the format version written in the export header.
const ExportVersion = "1"

// header is the first JSONL record written by ExportJSONL.
type header struct {
	Version      string    `json:"version"`
	Type         string    `json:"type"`
	Timestamp    time.Time `json:"timestamp"`
	SessionCount int       `json:"session_count"`
	TotalMinutes int       `json:"total_minutes"`
}

// record wraps a single JSONL line with a type discriminator.
type record struct {
	Type string         `json:"type"`
	Data *model.Session `json:"data"`
}

// Lister is the read side needed for an export.
type Lister interface {
	List(ctx context.Context, filter model.SessionFilter) ([]model.Session, error)
}

// Destination is the interface for an export target (S3, git, etc.).
type Destination interface {
	// Name identifies the destination in logs.
	Name() string
	// Write sends the JSONL payload to the destination.
	Write(ctx context.Context, data []byte) error
}

// ExportJSONL writes every session from l as JSONL to w: a header line, then
// one line per session ordered by date, then id.
func ExportJSONL(ctx context.Context, l Lister, w io.Writer) error {
	sessions, err := l.List(ctx, model.SessionFilter{})
	if err != nil {
		return fmt.Errorf("list sessions: %w", err)
	}

	sort.Slice(sessions, func(i, j int) bool {
		if sessions[i].Date != sessions[j].Date {
			return sessions[i].Date < sessions[j].Date
		}
		return sessions[i].ID < sessions[j].ID
	})

	total := 0
	for _, s := range sessions {
		total += s.DurationMin
	}

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(header{
		Version:      ExportVersion,
		Type:         "header",
		Timestamp:    time.Now().UTC(),
		SessionCount: len(sessions),
		TotalMinutes: total,
	}); err != nil {
		return fmt.Errorf("encode header: %w", err)
	}

	for i := range sessions {
		if err := enc.Encode(record{Type: "session", Data: &sessions[i]}); err != nil {
			return fmt.Errorf("encode session %s: %w", sessions[i].ID, err)
		}
	}
	return nil
}

// Export renders the JSONL payload once and writes it to every destination.
// A failing destination does not stop the others; the joined error reports
// every failure.
func Export(ctx context.Context, l Lister, logger *slog.Logger, destinations ...Destination) error {
	if logger == nil {
		logger = slog.Default()
	}
	var buf bytes.Buffer
	if err := ExportJSONL(ctx, l, &buf); err != nil {
		return err
	}
	data := buf.Bytes()

	var errs []error
	for _, dest := range destinations {
		if err := dest.Write(ctx, data); err != nil {
			logger.Error("export destination write failed", "destination", dest.Name(), "err", err)
			errs = append(errs, fmt.Errorf("%s: %w", dest.Name(), err))
			continue
		}
		logger.Info("export written", "destination", dest.Name(), "bytes", len(data))
	}
	return errors.Join(errs...)
}
