package calendar

import (
	"time"

	"eventcal/internal/filter"
	"eventcal/internal/model"
)

// Events returns the base events.
func (s *Store) Events() []model.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneEvents(s.events)
}

// Materialized returns every occurrence in the current view window.
func (s *Store) Materialized() []model.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneEvents(s.materialized)
}

// Filtered returns the materialized occurrences that pass the filters.
func (s *Store) Filtered() []model.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneEvents(s.filtered)
}

// Visible is what a calendar grid shows: the filtered set while a filter is
// active, otherwise everything materialized.
func (s *Store) Visible() []model.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneEvents(s.visible())
}

// EventsOn returns the visible occurrences dated date.
func (s *Store) EventsOn(date string) []model.Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []model.Event
	for _, ev := range s.visible() {
		if ev.Date == date {
			out = append(out, ev.Clone())
		}
	}
	return out
}

func (s *Store) visible() []model.Event {
	if s.filters.Active() {
		return s.filtered
	}
	return s.materialized
}

// Find returns the base event with the given id.
func (s *Store) Find(id string) (model.Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ev := range s.events {
		if ev.ID == id {
			return ev.Clone(), true
		}
	}
	return model.Event{}, false
}

func (s *Store) CurrentMonth() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentMonth
}

func (s *Store) SelectedDate() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectedDate
}

func (s *Store) Filters() *filter.Criteria {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filters.Clone()
}

func (s *Store) ShowEventModal() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.showEventModal
}

func (s *Store) EditingEvent() *model.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.editingEvent == nil {
		return nil
	}
	c := s.editingEvent.Clone()
	return &c
}

// Snapshot is a point-in-time summary of the view state.
type Snapshot struct {
	CurrentMonth    string           `json:"currentMonth"`
	SelectedDate    string           `json:"selectedDate"`
	WindowStart     string           `json:"windowStart"`
	WindowEnd       string           `json:"windowEnd"`
	Filters         *filter.Criteria `json:"filters"`
	ShowEventModal  bool             `json:"showEventModal"`
	EditingEvent    *model.Event     `json:"editingEvent"`
	EventCount      int              `json:"eventCount"`
	OccurrenceCount int              `json:"occurrenceCount"`
	VisibleCount    int              `json:"visibleCount"`
}

func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	w := ViewWindow(s.currentMonth)
	snap := Snapshot{
		CurrentMonth:    s.currentMonth.Format(model.MonthLayout),
		SelectedDate:    model.FormatDate(s.selectedDate),
		WindowStart:     model.FormatDate(w.Start),
		WindowEnd:       model.FormatDate(w.End),
		Filters:         s.filters.Clone(),
		ShowEventModal:  s.showEventModal,
		EventCount:      len(s.events),
		OccurrenceCount: len(s.materialized),
		VisibleCount:    len(s.visible()),
	}
	if s.editingEvent != nil {
		c := s.editingEvent.Clone()
		snap.EditingEvent = &c
	}
	return snap
}

func cloneEvents(in []model.Event) []model.Event {
	out := make([]model.Event, len(in))
	for i, ev := range in {
		out[i] = ev.Clone()
	}
	return out
}
