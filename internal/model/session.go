package model

import "time"

// SessionType is the training category of a session.
type SessionType string

const (
	TypeStriking  SessionType = "striking"
	TypeWrestling SessionType = "wrestling"
	TypeGrappling SessionType = "grappling"
	TypeTactics   SessionType = "tactics"
)

// SessionTypes lists the canonical categories in display order.
var SessionTypes = []SessionType{TypeStriking, TypeWrestling, TypeGrappling, TypeTactics}

// String returns the string representation of the session type.
func (t SessionType) String() string {
	return string(t)
}

// IsValid checks whether the session type is one of the canonical categories.
func (t SessionType) IsValid() bool {
	switch t {
	case TypeStriking, TypeWrestling, TypeGrappling, TypeTactics:
		return true
	}
	return false
}

// SyncState tracks whether the local copy of a session is mirrored remotely.
// It is local-only metadata and never leaves the device.
type SyncState string

const (
	SyncPending SyncState = "pending"
	SyncSynced  SyncState = "synced"
	SyncError   SyncState = "error"
)

// String returns the string representation of the sync state.
func (s SyncState) String() string {
	return string(s)
}

// IsValid checks whether the sync state is a known value.
func (s SyncState) IsValid() bool {
	switch s {
	case SyncPending, SyncSynced, SyncError:
		return true
	}
	return false
}

// DateLayout is the layout of Session.Date.
const DateLayout = "2006-01-02"

// TimeLayout is the layout of Session.StartTime.
const TimeLayout = "15:04"

// Session is one logged practice event.
type Session struct {
	ID           string      `json:"id"`
	CreatedAt    time.Time   `json:"createdAt"`
	Date         string      `json:"date"`
	StartTime    string      `json:"startTime,omitempty"`
	Type         SessionType `json:"type"`
	DurationMin  int         `json:"durationMin"`
	Tags         []string    `json:"tags"`
	Memo         string      `json:"memo,omitempty"`
	SyncState    SyncState   `json:"syncState"`
	SyncAttempts int         `json:"syncAttempts,omitempty"`
}

// Clone returns a deep copy of s.
func (s *Session) Clone() *Session {
	c := *s
	c.Tags = append([]string{}, s.Tags...)
	return &c
}

// IsSynced reports whether the session is confirmed mirrored remotely.
func (s *Session) IsSynced() bool {
	return s.SyncState == SyncSynced
}
