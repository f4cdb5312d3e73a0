package model

// SessionInput holds the caller-supplied fields for a new session.
type SessionInput struct {
	Date        string      `json:"date"`
	StartTime   string      `json:"startTime,omitempty"`
	Type        SessionType `json:"type"`
	DurationMin int         `json:"durationMin"`
	Tags        []string    `json:"tags,omitempty"`
	Memo        string      `json:"memo,omitempty"`
}

// SessionPatch holds a partial update. Nil fields are left unchanged.
type SessionPatch struct {
	Date        *string      `json:"date,omitempty"`
	StartTime   *string      `json:"startTime,omitempty"`
	Type        *SessionType `json:"type,omitempty"`
	DurationMin *int         `json:"durationMin,omitempty"`
	Tags        *[]string    `json:"tags,omitempty"`
	Memo        *string      `json:"memo,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p SessionPatch) IsEmpty() bool {
	return p.Date == nil && p.StartTime == nil && p.Type == nil &&
		p.DurationMin == nil && p.Tags == nil && p.Memo == nil
}

// Apply merges the patch into s. Sync metadata is not touched here.
func (p SessionPatch) Apply(s *Session) {
	if p.Date != nil {
		s.Date = *p.Date
	}
	if p.StartTime != nil {
		s.StartTime = *p.StartTime
	}
	if p.Type != nil {
		s.Type = *p.Type
	}
	if p.DurationMin != nil {
		s.DurationMin = *p.DurationMin
	}
	if p.Tags != nil {
		s.Tags = append([]string{}, (*p.Tags)...)
	}
	if p.Memo != nil {
		s.Memo = *p.Memo
	}
}
