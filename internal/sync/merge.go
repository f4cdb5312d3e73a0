package sync

import (
	"time"

	"github.com/alfredjeanlab/dojolog/internal/model"
	"github.com/alfredjeanlab/dojolog/internal/remote"
)

// Merge reconciles the local collection with the user's remote rows by id:
//
//   - a local session that is not synced wins over any remote row;
//   - every other remote row becomes a synced local session, keeping the
//     local creation time when one exists;
//   - a synced local session with no remote row was deleted elsewhere and
//     is dropped.
//
// Local order is kept; sessions seen only remotely follow in remote order.
// now stamps CreatedAt on sessions that have no local copy.
func Merge(local []model.Session, rows []remote.Row, now time.Time) []model.Session {
	byID := make(map[string]int, len(rows))
	for i := range rows {
		byID[rows[i].ID] = i
	}

	out := make([]model.Session, 0, len(local)+len(rows))
	used := make(map[string]bool, len(local))
	for i := range local {
		l := &local[i]
		used[l.ID] = true
		if !l.IsSynced() {
			out = append(out, *l.Clone())
			continue
		}
		if j, ok := byID[l.ID]; ok {
			out = append(out, remote.FromRow(rows[j], l, now))
		}
	}

	for _, r := range rows {
		if used[r.ID] {
			continue
		}
		used[r.ID] = true
		out = append(out, remote.FromRow(r, nil, now))
	}
	return out
}
