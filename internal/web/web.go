package web

import (
	"context"
	"crypto/subtle"
	"errors"
	"io"
	"net/http"
	"time"

	"eventcal/internal/calendar"
	"eventcal/internal/config"
	"eventcal/internal/conflict"
	"eventcal/internal/filter"
	"eventcal/internal/ics"
	appLog "eventcal/internal/log"
	"eventcal/internal/model"
)

const maxBodyBytes = 1 << 20

// Server exposes the calendar store over a small JSON API.
type Server struct {
	cfg   *config.Config
	store *calendar.Store
	mux   *http.ServeMux
	now   func() time.Time
}

// NewServer constructs a new Server.
func NewServer(cfg *config.Config, store *calendar.Store) *Server {
	s := &Server{
		cfg:   cfg,
		store: store,
		mux:   http.NewServeMux(),
		now:   time.Now,
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// ListenAndServe serves until ctx is canceled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="eventcal", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api/state", s.handleState)

	s.mux.HandleFunc("GET /api/events", s.handleListEvents)
	s.mux.HandleFunc("POST /api/events", s.handleCreateEvent)
	s.mux.HandleFunc("PATCH /api/events/{id}", s.handleUpdateEvent)
	s.mux.HandleFunc("DELETE /api/events/{id}", s.handleDeleteEvent)
	s.mux.HandleFunc("POST /api/events/{id}/move", s.handleMoveEvent)

	s.mux.HandleFunc("PUT /api/view/month", s.handleSetMonth)
	s.mux.HandleFunc("PUT /api/view/selected", s.handleSetSelected)
	s.mux.HandleFunc("PUT /api/view/modal", s.handleSetModal)

	s.mux.HandleFunc("PUT /api/filters", s.handleSetFilters)
	s.mux.HandleFunc("DELETE /api/filters", s.handleClearFilters)

	s.mux.HandleFunc("POST /api/conflicts", s.handleConflicts)

	s.mux.HandleFunc("GET /calendar.ics", s.handleExport)
	s.mux.HandleFunc("POST /api/import", s.handleImport)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Snapshot())
}

// handleListEvents returns one of the store's event views.
//
// GET /api/events?view=visible&date=2024-01-15
//   - view: visible (default), materialized, filtered, base
//   - date: only events on that calendar date
func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var events []model.Event
	switch q.Get("view") {
	case "", "visible":
		events = s.store.Visible()
	case "materialized":
		events = s.store.Materialized()
	case "filtered":
		events = s.store.Filtered()
	case "base":
		events = s.store.Events()
	default:
		writeError(w, http.StatusBadRequest, "unknown view")
		return
	}

	if date := q.Get("date"); date != "" {
		out := make([]model.Event, 0)
		for _, ev := range events {
			if ev.Date == date {
				out = append(out, ev)
			}
		}
		events = out
	}

	writeJSON(w, http.StatusOK, eventsResponse{Events: events, Count: len(events)})
}

func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	var ev model.Event
	if !decodeBody(w, r, &ev) {
		return
	}
	if err := validateEvent(ev); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Conflicts are advisory; they are reported, never enforced.
	conflicts := s.store.CheckConflicts(ev, "")
	added := s.store.Add(ev)

	appLog.Info("api: event created", "id", added.ID, "date", added.Date, "conflicts", len(conflicts))
	writeJSON(w, http.StatusCreated, mutationResponse{Event: &added, Conflicts: conflicts})
}

func (s *Server) handleUpdateEvent(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	current, ok := s.store.Find(id)
	if !ok {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}

	var patch model.EventPatch
	if !decodeBody(w, r, &patch) {
		return
	}
	merged := patch.Apply(current)
	if err := validateEvent(merged); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	conflicts := s.store.CheckConflicts(merged, id)
	s.store.Update(id, patch)
	updated, _ := s.store.Find(id)

	appLog.Info("api: event updated", "id", id)
	writeJSON(w, http.StatusOK, mutationResponse{Event: &updated, Conflicts: conflicts})
}

func (s *Server) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, ok := s.store.Find(id); !ok {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}
	s.store.Delete(id)
	appLog.Info("api: event deleted", "id", id)
	w.WriteHeader(http.StatusNoContent)
}

// handleMoveEvent is the drag-and-reschedule flow. The id may be an
// occurrence id; its base event is moved.
func (s *Server) handleMoveEvent(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Date string `json:"date"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if _, err := model.ParseDate(req.Date); err != nil {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	updatedID := s.store.Reschedule(r.PathValue("id"), req.Date)
	ev, ok := s.store.Find(updatedID)
	if !ok {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}
	appLog.Info("api: event moved", "id", updatedID, "date", req.Date)
	writeJSON(w, http.StatusOK, mutationResponse{Event: &ev})
}

func (s *Server) handleSetMonth(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Month string `json:"month"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	month, err := time.Parse(model.MonthLayout, req.Month)
	if err != nil {
		writeError(w, http.StatusBadRequest, "month must be YYYY-MM")
		return
	}
	s.store.SetCurrentMonth(month)
	writeJSON(w, http.StatusOK, s.store.Snapshot())
}

func (s *Server) handleSetSelected(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Date string `json:"date"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	d, err := model.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}
	s.store.SetSelectedDate(d)
	writeJSON(w, http.StatusOK, s.store.Snapshot())
}

func (s *Server) handleSetModal(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Show           bool   `json:"show"`
		EditingEventID string `json:"editingEventId"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	var editing *model.Event
	if req.EditingEventID != "" {
		for _, ev := range s.store.Materialized() {
			if ev.ID == req.EditingEventID {
				editing = &ev
				break
			}
		}
		if editing == nil {
			writeError(w, http.StatusNotFound, "event not found")
			return
		}
	}

	s.store.SetEditingEvent(editing)
	s.store.SetShowEventModal(req.Show)
	writeJSON(w, http.StatusOK, s.store.Snapshot())
}

func (s *Server) handleSetFilters(w http.ResponseWriter, r *http.Request) {
	var c filter.Criteria
	if !decodeBody(w, r, &c) {
		return
	}
	s.store.SetEventFilters(&c)
	writeJSON(w, http.StatusOK, s.store.Snapshot())
}

func (s *Server) handleClearFilters(w http.ResponseWriter, _ *http.Request) {
	s.store.SetEventFilters(nil)
	writeJSON(w, http.StatusOK, s.store.Snapshot())
}

func (s *Server) handleConflicts(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Event     model.Event `json:"event"`
		ExcludeID string      `json:"excludeId"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	conflicts := s.store.CheckConflicts(req.Event, req.ExcludeID)
	writeJSON(w, http.StatusOK, conflictsResponse{
		Conflicts:   conflicts,
		Message:     conflict.Message(conflicts),
		PreventSave: conflict.ShouldPreventSave(conflicts),
	})
}

func (s *Server) handleExport(w http.ResponseWriter, _ *http.Request) {
	body := ics.Export(s.cfg.CalendarName, s.store.Events(), s.now())
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="calendar.ics"`)
	_, _ = io.WriteString(w, body)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "body too large")
		return
	}

	events, err := ics.Import(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid ICS payload")
		return
	}
	added := s.store.Import(events)
	appLog.Info("api: events imported", "count", len(added))
	writeJSON(w, http.StatusOK, eventsResponse{Events: added, Count: len(added)})
}

func validateEvent(ev model.Event) error {
	if err := ev.Validate(); err != nil {
		return err
	}
	if _, err := model.ParseDate(ev.Date); err != nil {
		return errors.New("date must be YYYY-MM-DD")
	}
	if ev.Time != "" {
		if _, err := model.ParseClock(ev.Time); err != nil {
			return errors.New("time must be HH:MM")
		}
	}
	return nil
}
