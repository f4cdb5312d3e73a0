package model

// SessionFilter restricts a listing to a date range. Both bounds are
// inclusive YYYY-MM-DD dates; an empty bound is open.
type SessionFilter struct {
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`
}

// IsZero reports whether the filter matches everything.
func (f SessionFilter) IsZero() bool {
	return f.From == "" && f.To == ""
}

// Matches reports whether a session dated date falls inside the range.
// Dates in DateLayout order lexically, so plain string comparison is exact.
func (f SessionFilter) Matches(date string) bool {
	if f.From != "" && date < f.From {
		return false
	}
	if f.To != "" && date > f.To {
		return false
	}
	return true
}

// Apply returns the sessions that match the filter, preserving order.
func (f SessionFilter) Apply(sessions []Session) []Session {
	if f.IsZero() {
		return sessions
	}
	out := make([]Session, 0, len(sessions))
	for _, s := range sessions {
		if f.Matches(s.Date) {
			out = append(out, s)
		}
	}
	return out
}
