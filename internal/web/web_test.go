package web

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"eventcal/internal/calendar"
	"eventcal/internal/config"
	"eventcal/internal/model"
	"eventcal/internal/storage"
)

func newTestServer(t *testing.T) (*Server, *calendar.Store) {
	t.Helper()
	n := 0
	store := calendar.NewStore(calendar.Options{
		Blobs: storage.NewMemoryStore(),
		Now: func() time.Time {
			return time.Date(2024, time.January, 15, 9, 0, 0, 0, time.UTC)
		},
		NewID: func() string {
			n++
			return fmt.Sprintf("evt-%d", n)
		},
		Rand: rand.New(rand.NewSource(1)),
	})
	store.Load()

	cfg := config.DefaultConfig()
	s := NewServer(cfg, store)
	s.now = func() time.Time { return time.Date(2024, time.January, 15, 9, 0, 0, 0, time.UTC) }
	return s, store
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t)
	rec := do(t, s.Handler(), http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Fatalf("health = %d %q", rec.Code, rec.Body.String())
	}
}

func TestCreateEvent(t *testing.T) {
	s, store := newTestServer(t)
	h := s.Handler()

	rec := do(t, h, http.MethodPost, "/api/events", `{"title":"Standup","date":"2024-01-16","time":"09:00"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	got := decode[mutationResponse](t, rec)
	if got.Event == nil || got.Event.ID != "evt-1" || got.Event.Color == "" {
		t.Fatalf("unexpected event %+v", got.Event)
	}
	if len(store.Events()) != 1 {
		t.Fatalf("store has %d events, want 1", len(store.Events()))
	}

	// Same slot again reports a conflict but still saves.
	rec = do(t, h, http.MethodPost, "/api/events", `{"title":"Review","date":"2024-01-16","time":"09:00"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d", rec.Code)
	}
	got = decode[mutationResponse](t, rec)
	if len(got.Conflicts) != 1 || got.Conflicts[0].Event.ID != "evt-1" {
		t.Fatalf("conflicts = %+v", got.Conflicts)
	}
	if len(store.Events()) != 2 {
		t.Fatalf("store has %d events, want 2", len(store.Events()))
	}
}

func TestCreateEventRejectsInvalid(t *testing.T) {
	s, store := newTestServer(t)
	h := s.Handler()

	cases := map[string]string{
		"empty title": `{"title":"  ","date":"2024-01-16"}`,
		"bad date":    `{"title":"x","date":"16/01/2024"}`,
		"bad time":    `{"title":"x","date":"2024-01-16","time":"nine"}`,
		"unknown key": `{"title":"x","date":"2024-01-16","bogus":1}`,
		"not json":    `title=x`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/api/events", body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
		})
	}
	if len(store.Events()) != 0 {
		t.Fatalf("invalid requests must not add events")
	}
}

func TestListEventsViews(t *testing.T) {
	s, store := newTestServer(t)
	h := s.Handler()

	store.Add(model.Event{
		Title:       "Gym",
		Date:        "2024-01-01",
		Category:    "health",
		IsRecurring: true,
		Recurrence:  &model.Recurrence{Type: model.FrequencyWeekly, Interval: 1, EndAfter: 3},
	})
	store.Add(model.Event{Title: "Dentist", Date: "2024-01-08", Category: "health"})

	base := decode[eventsResponse](t, do(t, h, http.MethodGet, "/api/events?view=base", ""))
	if base.Count != 2 {
		t.Fatalf("base count = %d, want 2", base.Count)
	}
	mat := decode[eventsResponse](t, do(t, h, http.MethodGet, "/api/events?view=materialized", ""))
	if mat.Count != 5 {
		t.Fatalf("materialized count = %d, want 5", mat.Count)
	}
	onDay := decode[eventsResponse](t, do(t, h, http.MethodGet, "/api/events?date=2024-01-08", ""))
	if onDay.Count != 2 {
		t.Fatalf("events on 2024-01-08 = %d, want 2", onDay.Count)
	}

	if rec := do(t, h, http.MethodGet, "/api/events?view=weird", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown view status = %d", rec.Code)
	}
}

func TestFilters(t *testing.T) {
	s, store := newTestServer(t)
	h := s.Handler()

	store.Add(model.Event{Title: "Dentist", Date: "2024-01-08"})
	store.Add(model.Event{Title: "Lunch", Date: "2024-01-09"})

	rec := do(t, h, http.MethodPut, "/api/filters", `{"search":"dent"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	visible := decode[eventsResponse](t, do(t, h, http.MethodGet, "/api/events", ""))
	if visible.Count != 1 || visible.Events[0].Title != "Dentist" {
		t.Fatalf("visible = %+v", visible.Events)
	}

	do(t, h, http.MethodDelete, "/api/filters", "")
	visible = decode[eventsResponse](t, do(t, h, http.MethodGet, "/api/events", ""))
	if visible.Count != 2 {
		t.Fatalf("visible after clear = %d, want 2", visible.Count)
	}
}

func TestUpdateAndDelete(t *testing.T) {
	s, store := newTestServer(t)
	h := s.Handler()
	ev := store.Add(model.Event{Title: "Draft", Date: "2024-01-10"})

	rec := do(t, h, http.MethodPatch, "/api/events/"+ev.ID, `{"title":"Final"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("patch status = %d body=%s", rec.Code, rec.Body.String())
	}
	if got, _ := store.Find(ev.ID); got.Title != "Final" || got.Date != "2024-01-10" {
		t.Fatalf("after patch = %+v", got)
	}

	if rec := do(t, h, http.MethodPatch, "/api/events/"+ev.ID, `{"title":""}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("empty title patch status = %d", rec.Code)
	}
	if rec := do(t, h, http.MethodPatch, "/api/events/missing", `{"title":"x"}`); rec.Code != http.StatusNotFound {
		t.Fatalf("missing patch status = %d", rec.Code)
	}

	if rec := do(t, h, http.MethodDelete, "/api/events/"+ev.ID, ""); rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}
	if rec := do(t, h, http.MethodDelete, "/api/events/"+ev.ID, ""); rec.Code != http.StatusNotFound {
		t.Fatalf("second delete status = %d", rec.Code)
	}
}

func TestMoveOccurrenceMovesBase(t *testing.T) {
	s, store := newTestServer(t)
	h := s.Handler()
	ev := store.Add(model.Event{
		Title:       "Gym",
		Date:        "2024-01-01",
		IsRecurring: true,
		Recurrence:  &model.Recurrence{Type: model.FrequencyWeekly, Interval: 1},
	})

	rec := do(t, h, http.MethodPost, "/api/events/"+ev.ID+"-2024-01-08/move", `{"date":"2024-01-03"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	got := decode[mutationResponse](t, rec)
	if got.Event.ID != ev.ID || got.Event.Date != "2024-01-03" {
		t.Fatalf("moved = %+v", got.Event)
	}

	if rec := do(t, h, http.MethodPost, "/api/events/"+ev.ID+"/move", `{"date":"tomorrow"}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad date status = %d", rec.Code)
	}
}

func TestViewState(t *testing.T) {
	s, store := newTestServer(t)
	h := s.Handler()

	if rec := do(t, h, http.MethodPut, "/api/view/month", `{"month":"2024-03"}`); rec.Code != http.StatusOK {
		t.Fatalf("month status = %d", rec.Code)
	}
	if got := store.CurrentMonth(); !got.Equal(time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("current month = %v", got)
	}
	if rec := do(t, h, http.MethodPut, "/api/view/month", `{"month":"March"}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad month status = %d", rec.Code)
	}

	if rec := do(t, h, http.MethodPut, "/api/view/selected", `{"date":"2024-03-05"}`); rec.Code != http.StatusOK {
		t.Fatalf("selected status = %d", rec.Code)
	}
	if got := model.FormatDate(store.SelectedDate()); got != "2024-03-05" {
		t.Fatalf("selected = %s", got)
	}

	ev := store.Add(model.Event{Title: "Talk", Date: "2024-03-05"})
	rec := do(t, h, http.MethodPut, "/api/view/modal", `{"show":true,"editingEventId":"`+ev.ID+`"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("modal status = %d body=%s", rec.Code, rec.Body.String())
	}
	if !store.ShowEventModal() || store.EditingEvent() == nil || store.EditingEvent().ID != ev.ID {
		t.Fatalf("modal state not applied")
	}
	if rec := do(t, h, http.MethodPut, "/api/view/modal", `{"show":true,"editingEventId":"nope"}`); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown editing id status = %d", rec.Code)
	}

	if rec := do(t, h, http.MethodGet, "/api/state", ""); rec.Code != http.StatusOK {
		t.Fatalf("state status = %d", rec.Code)
	}
}

func TestConflictsEndpoint(t *testing.T) {
	s, store := newTestServer(t)
	h := s.Handler()
	existing := store.Add(model.Event{Title: "Standup", Date: "2024-01-16", Time: "09:00"})

	body := `{"event":{"title":"Other","date":"2024-01-16","time":"09:00"}}`
	got := decode[conflictsResponse](t, do(t, h, http.MethodPost, "/api/conflicts", body))
	if len(got.Conflicts) != 1 || got.Message == "" || got.PreventSave {
		t.Fatalf("conflicts = %+v", got)
	}

	body = `{"event":{"title":"Standup","date":"2024-01-16","time":"09:00"},"excludeId":"` + existing.ID + `"}`
	got = decode[conflictsResponse](t, do(t, h, http.MethodPost, "/api/conflicts", body))
	if len(got.Conflicts) != 0 {
		t.Fatalf("excluded event still conflicts: %+v", got.Conflicts)
	}
}

func TestExportImport(t *testing.T) {
	s, store := newTestServer(t)
	h := s.Handler()
	store.Add(model.Event{Title: "Launch", Date: "2024-01-20", Time: "14:30", Category: "work"})

	rec := do(t, h, http.MethodGet, "/calendar.ics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("export status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/calendar") {
		t.Fatalf("content type = %q", ct)
	}
	payload := rec.Body.String()
	if !strings.Contains(payload, "SUMMARY:Launch") {
		t.Fatalf("export missing event:\n%s", payload)
	}

	other, otherStore := newTestServer(t)
	rec = do(t, other.Handler(), http.MethodPost, "/api/import", payload)
	if rec.Code != http.StatusOK {
		t.Fatalf("import status = %d body=%s", rec.Code, rec.Body.String())
	}
	imported := decode[eventsResponse](t, rec)
	if imported.Count != 1 || len(otherStore.Events()) != 1 {
		t.Fatalf("imported = %+v", imported)
	}
	if got := otherStore.Events()[0]; got.Title != "Launch" || got.Date != "2024-01-20" || got.Time != "14:30" {
		t.Fatalf("imported event = %+v", got)
	}

	if rec := do(t, other.Handler(), http.MethodPost, "/api/import", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("empty import status = %d", rec.Code)
	}
}

func TestBasicAuth(t *testing.T) {
	s, _ := newTestServer(t)
	s.cfg.BasicAuth = &config.BasicAuthConfig{Username: "admin", Password: "secret"}
	h := s.Handler()

	if rec := do(t, h, http.MethodGet, "/health", ""); rec.Code != http.StatusOK {
		t.Fatalf("health must bypass auth, got %d", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/api/state", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated status = %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/state", nil)
	req.SetBasicAuth("admin", "secret")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("authenticated status = %d", rec.Code)
	}
}

func TestSecureCompare(t *testing.T) {
	if !secureCompare("abc", "abc") {
		t.Fatal("equal strings must compare equal")
	}
	if secureCompare("abc", "abd") || secureCompare("abc", "abcd") {
		t.Fatal("different strings must not compare equal")
	}
}
