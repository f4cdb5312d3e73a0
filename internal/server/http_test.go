package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alfredjeanlab/dojolog/internal/idgen"
	"github.com/alfredjeanlab/dojolog/internal/local"
	"github.com/alfredjeanlab/dojolog/internal/model"
	"github.com/alfredjeanlab/dojolog/internal/store"
	dojosync "github.com/alfredjeanlab/dojolog/internal/sync"
)

// newTestServer returns a Server over an in-memory local store whose
// mutations feed the server's event hub.
func newTestServer(t *testing.T) (*Server, http.Handler) {
	t.Helper()
	hub := NewHub()
	ls := local.New(local.NewMemorySlot(), local.Options{NewID: idgen.Sequence("ses-")})
	st := store.NewLocal(ls, hub.Wrap(nil))
	t.Cleanup(func() { _ = st.Close() })
	srv := New(st, hub, nil)
	return srv, srv.NewHTTPHandler("")
}

// testHandler sends a request through handler and returns the recorder.
func testHandler(t *testing.T, handler http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			if err := json.NewEncoder(&buf).Encode(body); err != nil {
				t.Fatalf("encode body: %v", err)
			}
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rec.Body.String())
	}
	return v
}

func requireStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status = %d, want %d; body: %s", rec.Code, want, rec.Body.String())
	}
}

func addSession(t *testing.T, h http.Handler, date string, typ model.SessionType, minutes int, tags ...string) model.Session {
	t.Helper()
	rec := testHandler(t, h, "POST", "/v1/sessions", model.SessionInput{
		Date: date, Type: typ, DurationMin: minutes, Tags: tags,
	})
	requireStatus(t, rec, http.StatusCreated)
	return decode[model.Session](t, rec)
}

func TestHandleHealth(t *testing.T) {
	_, h := newTestServer(t)
	rec := testHandler(t, h, "GET", "/v1/health", nil)
	requireStatus(t, rec, http.StatusOK)
	if got := decode[map[string]string](t, rec); got["status"] != "ok" {
		t.Errorf("health = %v", got)
	}
}

func TestHandleCreateSession(t *testing.T) {
	_, h := newTestServer(t)
	sess := addSession(t, h, "2025-04-01", model.TypeGrappling, 60, "guard")
	if sess.ID != "ses-1" {
		t.Errorf("ID = %q, want ses-1", sess.ID)
	}
	if sess.SyncState != model.SyncPending {
		t.Errorf("SyncState = %q, want pending", sess.SyncState)
	}
	if sess.CreatedAt.IsZero() {
		t.Error("CreatedAt not set")
	}
}

func TestHandleCreateSession_Invalid(t *testing.T) {
	_, h := newTestServer(t)

	rec := testHandler(t, h, "POST", "/v1/sessions", "{not json")
	requireStatus(t, rec, http.StatusBadRequest)

	rec = testHandler(t, h, "POST", "/v1/sessions", model.SessionInput{
		Date: "04/01/2025", Type: "kata", DurationMin: 0, Tags: []string{"a", "b", "c", "d"},
	})
	requireStatus(t, rec, http.StatusBadRequest)
	body := decode[struct {
		Error  string       `json:"error"`
		Fields []fieldError `json:"fields"`
	}](t, rec)
	got := map[string]bool{}
	for _, f := range body.Fields {
		got[f.Field] = true
	}
	for _, field := range []string{"date", "type", "durationMin", "tags"} {
		if !got[field] {
			t.Errorf("missing field error for %s in %+v", field, body.Fields)
		}
	}
}

func TestHandleListSessions(t *testing.T) {
	_, h := newTestServer(t)

	rec := testHandler(t, h, "GET", "/v1/sessions", nil)
	requireStatus(t, rec, http.StatusOK)
	if !strings.Contains(rec.Body.String(), `"sessions":[]`) {
		t.Errorf("empty list should encode as []: %s", rec.Body.String())
	}

	addSession(t, h, "2025-03-30", model.TypeStriking, 60)
	addSession(t, h, "2025-04-01", model.TypeStriking, 45)
	addSession(t, h, "2025-04-10", model.TypeStriking, 30)

	for _, tc := range []struct {
		query string
		want  int
	}{
		{"", 3},
		{"?from=2025-04-01", 2},
		{"?to=2025-04-01", 2},
		{"?from=2025-04-01&to=2025-04-01", 1},
		{"?from=2025-05-01", 0},
	} {
		rec := testHandler(t, h, "GET", "/v1/sessions"+tc.query, nil)
		requireStatus(t, rec, http.StatusOK)
		body := decode[struct {
			Sessions []model.Session `json:"sessions"`
			Total    int             `json:"total"`
		}](t, rec)
		if len(body.Sessions) != tc.want || body.Total != tc.want {
			t.Errorf("GET /v1/sessions%s = %d sessions (total %d), want %d", tc.query, len(body.Sessions), body.Total, tc.want)
		}
	}
}

func TestHandleGetSession(t *testing.T) {
	_, h := newTestServer(t)
	added := addSession(t, h, "2025-04-01", model.TypeTactics, 20, "film")

	rec := testHandler(t, h, "GET", "/v1/sessions/"+added.ID, nil)
	requireStatus(t, rec, http.StatusOK)
	got := decode[model.Session](t, rec)
	if got.ID != added.ID || got.Tags[0] != "film" {
		t.Errorf("got %+v", got)
	}

	rec = testHandler(t, h, "GET", "/v1/sessions/ses-missing", nil)
	requireStatus(t, rec, http.StatusNotFound)
}

func TestHandleUpdateSession(t *testing.T) {
	_, h := newTestServer(t)
	added := addSession(t, h, "2025-04-01", model.TypeWrestling, 40)

	rec := testHandler(t, h, "PATCH", "/v1/sessions/"+added.ID, map[string]any{"durationMin": 55, "memo": "good rounds"})
	requireStatus(t, rec, http.StatusOK)
	got := decode[model.Session](t, rec)
	if got.DurationMin != 55 || got.Memo != "good rounds" || got.Date != "2025-04-01" {
		t.Errorf("got %+v", got)
	}

	for _, tc := range []struct {
		name string
		path string
		body any
		want int
	}{
		{"Missing", "/v1/sessions/ses-missing", map[string]any{"memo": "x"}, http.StatusNotFound},
		{"Empty", "/v1/sessions/" + added.ID, map[string]any{}, http.StatusBadRequest},
		{"BadJSON", "/v1/sessions/" + added.ID, "[", http.StatusBadRequest},
		{"Invalid", "/v1/sessions/" + added.ID, map[string]any{"durationMin": -5}, http.StatusBadRequest},
	} {
		t.Run(tc.name, func(t *testing.T) {
			rec := testHandler(t, h, "PATCH", tc.path, tc.body)
			requireStatus(t, rec, tc.want)
		})
	}
}

func TestHandleDeleteSession(t *testing.T) {
	_, h := newTestServer(t)
	added := addSession(t, h, "2025-04-01", model.TypeGrappling, 30)

	for i := 0; i < 2; i++ {
		rec := testHandler(t, h, "DELETE", "/v1/sessions/"+added.ID, nil)
		requireStatus(t, rec, http.StatusNoContent)
	}
	rec := testHandler(t, h, "GET", "/v1/sessions/"+added.ID, nil)
	requireStatus(t, rec, http.StatusNotFound)
}

func TestHandleGetStats(t *testing.T) {
	_, h := newTestServer(t)
	addSession(t, h, "2025-03-31", model.TypeStriking, 60)
	addSession(t, h, "2025-04-02", model.TypeGrappling, 45)
	addSession(t, h, "2025-04-08", model.TypeGrappling, 30)

	rec := testHandler(t, h, "GET", "/v1/stats?period=month", nil)
	requireStatus(t, rec, http.StatusOK)
	body := decode[struct {
		Summary struct {
			Count        int `json:"count"`
			TotalMinutes int `json:"totalMinutes"`
		} `json:"summary"`
		Period string `json:"period"`
		Volume []struct {
			Key     string `json:"key"`
			Minutes int    `json:"minutes"`
		} `json:"volume"`
	}](t, rec)
	if body.Summary.Count != 3 || body.Summary.TotalMinutes != 135 {
		t.Errorf("summary = %+v", body.Summary)
	}
	if body.Period != "month" || len(body.Volume) != 2 || body.Volume[1].Minutes != 75 {
		t.Errorf("volume = %s %+v", body.Period, body.Volume)
	}

	rec = testHandler(t, h, "GET", "/v1/stats?period=year", nil)
	requireStatus(t, rec, http.StatusBadRequest)
}

func TestHandleGetTags(t *testing.T) {
	_, h := newTestServer(t)
	addSession(t, h, "2025-04-01", model.TypeGrappling, 60, "guard", "sweeps")
	addSession(t, h, "2025-04-02", model.TypeGrappling, 30, "guard")
	addSession(t, h, "2025-04-03", model.TypeStriking, 30, "jab")

	rec := testHandler(t, h, "GET", "/v1/tags?type=grappling&q=GU", nil)
	requireStatus(t, rec, http.StatusOK)
	body := decode[struct {
		Tags []struct {
			Tag          string          `json:"tag"`
			Sessions     []model.Session `json:"sessions"`
			TotalMinutes int             `json:"totalMinutes"`
		} `json:"tags"`
	}](t, rec)
	if len(body.Tags) != 1 || body.Tags[0].Tag != "guard" || body.Tags[0].TotalMinutes != 90 {
		t.Fatalf("tags = %+v", body.Tags)
	}
	if body.Tags[0].Sessions[0].Date != "2025-04-02" {
		t.Errorf("sessions should be newest first: %+v", body.Tags[0].Sessions)
	}

	rec = testHandler(t, h, "GET", "/v1/tags?q=kimura", nil)
	requireStatus(t, rec, http.StatusOK)
	if !strings.Contains(rec.Body.String(), `"tags":[]`) {
		t.Errorf("no matches should encode as []: %s", rec.Body.String())
	}
}

func TestHandleSync(t *testing.T) {
	_, h := newTestServer(t)
	rec := testHandler(t, h, "POST", "/v1/sync", nil)
	requireStatus(t, rec, http.StatusConflict)

	coord := dojosync.NewCoordinator(dojosync.Options{
		Local: local.New(local.NewMemorySlot(), local.Options{}),
	})
	st := store.NewSynced(coord)
	t.Cleanup(func() { _ = st.Close() })
	remoteHandler := New(st, nil, nil).NewHTTPHandler("")

	addSession(t, remoteHandler, "2025-04-01", model.TypeGrappling, 60)
	addSession(t, remoteHandler, "2025-04-02", model.TypeGrappling, 60)

	rec = testHandler(t, remoteHandler, "POST", "/v1/sync", nil)
	requireStatus(t, rec, http.StatusOK)
	res := decode[dojosync.SweepResult](t, rec)
	if res.Attempted != 2 || res.Skipped != 2 || res.Synced != 0 {
		t.Errorf("sweep = %+v, want 2 attempted and skipped", res)
	}
}

// brokenStore fails every operation with err.
type brokenStore struct{ err error }

func (b brokenStore) ListSessions(context.Context, model.SessionFilter) ([]model.Session, error) {
	return nil, b.err
}
func (b brokenStore) AddSession(context.Context, *model.SessionInput) (*model.Session, error) {
	return nil, b.err
}
func (b brokenStore) GetSession(context.Context, string) (*model.Session, error) { return nil, b.err }
func (b brokenStore) UpdateSession(context.Context, string, *model.SessionPatch) (*model.Session, error) {
	return nil, b.err
}
func (b brokenStore) DeleteSession(context.Context, string) error { return b.err }
func (b brokenStore) Close() error                                { return nil }

func TestStoreErrorMapping(t *testing.T) {
	for _, tc := range []struct {
		name string
		err  error
		want int
	}{
		{"Unavailable", fmt.Errorf("load sessions: %w", local.ErrUnavailable), http.StatusServiceUnavailable},
		{"Other", errors.New("disk on fire"), http.StatusInternalServerError},
	} {
		t.Run(tc.name, func(t *testing.T) {
			h := New(brokenStore{err: tc.err}, nil, nil).NewHTTPHandler("")
			for _, req := range []struct {
				method, path string
				body         any
			}{
				{"GET", "/v1/sessions", nil},
				{"POST", "/v1/sessions", model.SessionInput{}},
				{"GET", "/v1/sessions/x", nil},
				{"PATCH", "/v1/sessions/x", map[string]any{"memo": "m"}},
				{"DELETE", "/v1/sessions/x", nil},
				{"GET", "/v1/stats", nil},
				{"GET", "/v1/tags", nil},
			} {
				rec := testHandler(t, h, req.method, req.path, req.body)
				if rec.Code != tc.want {
					t.Errorf("%s %s = %d, want %d", req.method, req.path, rec.Code, tc.want)
				}
				if strings.Contains(rec.Body.String(), "disk on fire") {
					t.Errorf("%s %s leaked internal error: %s", req.method, req.path, rec.Body.String())
				}
			}
		})
	}
}
