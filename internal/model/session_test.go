package model

import "testing"

func TestSessionType_IsValid(t *testing.T) {
	for _, typ := range SessionTypes {
		if !typ.IsValid() {
			t.Errorf("%q should be valid", typ)
		}
	}
	if SessionType("kata").IsValid() {
		t.Error("unknown type should be invalid")
	}
}

func TestSyncState_IsValid(t *testing.T) {
	for _, s := range []SyncState{SyncPending, SyncSynced, SyncError} {
		if !s.IsValid() {
			t.Errorf("%q should be valid", s)
		}
	}
	if SyncState("").IsValid() {
		t.Error("empty state should be invalid")
	}
}

func TestSession_CloneCopiesTags(t *testing.T) {
	s := &Session{ID: "ses-1", Tags: []string{"jab"}}
	c := s.Clone()
	c.Tags[0] = "cross"
	if s.Tags[0] != "jab" {
		t.Errorf("clone shares tag storage with original: %v", s.Tags)
	}
}

func TestSessionPatch_Apply(t *testing.T) {
	s := Session{
		ID: "ses-1", Date: "2025-01-01", Type: TypeStriking, DurationMin: 60,
		Tags: []string{"pads"}, Memo: "old", SyncState: SyncSynced,
	}
	memo := "new"
	dur := 30
	tags := []string{"sparring"}
	SessionPatch{Memo: &memo, DurationMin: &dur, Tags: &tags}.Apply(&s)

	if s.Memo != "new" || s.DurationMin != 30 || s.Tags[0] != "sparring" {
		t.Errorf("patch not applied: %+v", s)
	}
	if s.Date != "2025-01-01" || s.Type != TypeStriking {
		t.Errorf("untouched fields changed: %+v", s)
	}
	if s.SyncState != SyncSynced {
		t.Errorf("Apply must not touch sync state, got %q", s.SyncState)
	}
	tags[0] = "mutated"
	if s.Tags[0] != "sparring" {
		t.Error("Apply must copy the tag slice")
	}
}

func TestSessionPatch_IsEmpty(t *testing.T) {
	if !(SessionPatch{}).IsEmpty() {
		t.Error("zero patch should be empty")
	}
	memo := ""
	if (SessionPatch{Memo: &memo}).IsEmpty() {
		t.Error("patch clearing memo is not empty")
	}
}

func TestSessionFilter(t *testing.T) {
	sessions := []Session{
		{ID: "a", Date: "2025-01-31"},
		{ID: "b", Date: "2025-02-01"},
		{ID: "c", Date: "2025-02-28"},
		{ID: "d", Date: "2025-03-01"},
	}
	for _, tc := range []struct {
		name   string
		filter SessionFilter
		want   []string
	}{
		{"Open", SessionFilter{}, []string{"a", "b", "c", "d"}},
		{"FromInclusive", SessionFilter{From: "2025-02-01"}, []string{"b", "c", "d"}},
		{"ToInclusive", SessionFilter{To: "2025-02-28"}, []string{"a", "b", "c"}},
		{"Range", SessionFilter{From: "2025-02-01", To: "2025-02-28"}, []string{"b", "c"}},
		{"Empty", SessionFilter{From: "2026-01-01"}, nil},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got := tc.filter.Apply(sessions)
			if len(got) != len(tc.want) {
				t.Fatalf("got %d sessions, want %d", len(got), len(tc.want))
			}
			for i, s := range got {
				if s.ID != tc.want[i] {
					t.Errorf("got[%d] = %q, want %q", i, s.ID, tc.want[i])
				}
			}
		})
	}
}
