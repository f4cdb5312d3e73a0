package remote

import (
	"time"

	"github.com/alfredjeanlab/dojolog/internal/model"
)

// Row is the remote shape of a session. Optional fields are JSON null when
// absent. Sync metadata has no column.
type Row struct {
	ID          string   `json:"id"`
	UserID      string   `json:"user_id"`
	Date        string   `json:"date"`
	StartTime   *string  `json:"start_time"`
	Type        string   `json:"type"`
	DurationMin int      `json:"duration_min"`
	Tags        []string `json:"tags"`
	Memo        *string  `json:"memo"`
}

// RowColumns lists the Row columns in wire order.
var RowColumns = []string{"id", "user_id", "date", "start_time", "type", "duration_min", "tags", "memo"}

// ToRow maps a local session to the row owned by userID.
func ToRow(s *model.Session, userID string) Row {
	return Row{
		ID:          s.ID,
		UserID:      userID,
		Date:        s.Date,
		StartTime:   optional(s.StartTime),
		Type:        string(s.Type),
		DurationMin: s.DurationMin,
		Tags:        append([]string{}, s.Tags...),
		Memo:        optional(s.Memo),
	}
}

// FromRow maps a remote row to a synced local session. The creation time is
// taken from base when the session already exists locally, otherwise now.
func FromRow(r Row, base *model.Session, now time.Time) model.Session {
	s := model.Session{
		ID:          r.ID,
		CreatedAt:   now,
		Date:        r.Date,
		Type:        model.SessionType(r.Type),
		DurationMin: r.DurationMin,
		Tags:        append([]string{}, r.Tags...),
		SyncState:   model.SyncSynced,
	}
	if base != nil {
		s.CreatedAt = base.CreatedAt
	}
	if r.StartTime != nil {
		s.StartTime = *r.StartTime
	}
	if r.Memo != nil {
		s.Memo = *r.Memo
	}
	return s
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
