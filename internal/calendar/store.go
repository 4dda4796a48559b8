package calendar

import (
	"encoding/json"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"eventcal/internal/conflict"
	"eventcal/internal/filter"
	appLog "eventcal/internal/log"
	"eventcal/internal/model"
	"eventcal/internal/storage"
)

// DefaultStorageKey is the blob key the base event list is saved under.
const DefaultStorageKey = "calendar-events"

// Options configures a Store. Zero values get sensible defaults.
type Options struct {
	// Blobs persists the base event list. Nil keeps everything in memory.
	Blobs storage.BlobStore
	// Key is the blob key; DefaultStorageKey if empty.
	Key string

	// Now seeds the initial focus month and selected date.
	Now func() time.Time
	// NewID generates base event ids.
	NewID func() string
	// Rand picks default colors from model.DefaultPalette.
	Rand *rand.Rand
}

// Store owns the base event list and everything derived from it.
//
// Derived views (materialized occurrences, filtered occurrences) are never
// edited directly; every base-list change goes through applyMutation, which
// re-materializes, re-filters and then persists, in that order. All methods
// are safe for concurrent use and each runs to completion under one lock.
type Store struct {
	mu sync.Mutex

	blobs storage.BlobStore
	key   string
	newID func() string
	rnd   *rand.Rand

	events       []model.Event
	materialized []model.Event
	filtered     []model.Event
	filters      *filter.Criteria

	currentMonth   time.Time
	selectedDate   time.Time
	showEventModal bool
	editingEvent   *model.Event
}

// NewStore returns an empty store focused on the current month. Call Load
// to read persisted events.
func NewStore(opts Options) *Store {
	if opts.Key == "" {
		opts.Key = DefaultStorageKey
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	now := opts.Now()
	s := &Store{
		blobs:        opts.Blobs,
		key:          opts.Key,
		newID:        opts.NewID,
		rnd:          opts.Rand,
		events:       []model.Event{},
		currentMonth: MonthStart(now),
		selectedDate: dateOnly(now),
	}
	s.refreshView()
	return s
}

// Load replaces the base event list with the persisted one. A missing or
// unreadable blob leaves the store empty; it is logged, never returned.
func (s *Store) Load() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events = s.readPersisted()
	s.refreshView()
	appLog.Info("calendar: events loaded", "count", len(s.events), "key", s.key)
}

func (s *Store) readPersisted() []model.Event {
	if s.blobs == nil {
		return []model.Event{}
	}

	data, err := s.blobs.Get(s.key)
	if errors.Is(err, storage.ErrNotFound) {
		return []model.Event{}
	}
	if err != nil {
		appLog.Error("calendar: failed to load events", err, "key", s.key)
		return []model.Event{}
	}

	var stored []model.Event
	if err := json.Unmarshal(data, &stored); err != nil {
		appLog.Error("calendar: failed to parse stored events", err, "key", s.key)
		return []model.Event{}
	}

	out := make([]model.Event, 0, len(stored))
	for _, ev := range stored {
		if ev.IsOccurrence() {
			continue
		}
		out = append(out, ev)
	}
	return out
}

// Add stores ev as a new base event with a fresh id and, when unset, a
// palette color. The stored event is returned.
func (s *Store) Add(ev model.Event) model.Event {
	var added model.Event
	s.applyMutation(func(events []model.Event) []model.Event {
		added = s.prepareNew(ev)
		return append(events, added)
	})
	return added.Clone()
}

// Import adds several base events in one pass.
func (s *Store) Import(evs []model.Event) []model.Event {
	added := make([]model.Event, 0, len(evs))
	s.applyMutation(func(events []model.Event) []model.Event {
		for _, ev := range evs {
			n := s.prepareNew(ev)
			added = append(added, n.Clone())
			events = append(events, n)
		}
		return events
	})
	return added
}

func (s *Store) prepareNew(ev model.Event) model.Event {
	n := ev.Clone()
	n.ID = s.newID()
	n.ParentEventID = ""
	if n.Color == "" {
		n.Color = model.DefaultPalette[s.rnd.Intn(len(model.DefaultPalette))]
	}
	return n
}

// Update merges patch into the base event with the given id. Occurrence ids
// are not resolved here; pass the parent id (see Reschedule). A missing id
// leaves the collection unchanged.
func (s *Store) Update(id string, patch model.EventPatch) {
	s.applyMutation(func(events []model.Event) []model.Event {
		for i := range events {
			if events[i].ID == id {
				events[i] = patch.Apply(events[i])
			}
		}
		return events
	})
}

// Delete removes the base event with the given id, if any.
func (s *Store) Delete(id string) {
	s.applyMutation(func(events []model.Event) []model.Event {
		out := events[:0]
		for _, ev := range events {
			if ev.ID != id {
				out = append(out, ev)
			}
		}
		return out
	})
}

// Reschedule moves an event dropped onto date. An occurrence id moves its
// base event. It returns the id that was updated.
func (s *Store) Reschedule(id, date string) string {
	target := id
	s.applyMutation(func(events []model.Event) []model.Event {
		for _, ev := range s.materialized {
			if ev.ID == id {
				target = ev.BaseID()
				break
			}
		}
		patch := model.EventPatch{Date: &date}
		for i := range events {
			if events[i].ID == target {
				events[i] = patch.Apply(events[i])
			}
		}
		return events
	})
	return target
}

// SetCurrentMonth changes the focus month and re-materializes the view.
func (s *Store) SetCurrentMonth(month time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentMonth = MonthStart(month)
	s.refreshView()
}

func (s *Store) SetSelectedDate(d time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selectedDate = dateOnly(d)
}

// SetEventFilters replaces the filter criteria; nil clears them.
func (s *Store) SetEventFilters(c *filter.Criteria) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filters = c.Clone()
	s.filtered = filter.Apply(s.materialized, s.filters)
}

func (s *Store) SetShowEventModal(show bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.showEventModal = show
}

// SetEditingEvent sets the event the editor is open on; nil for a new one.
func (s *Store) SetEditingEvent(ev *model.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ev == nil {
		s.editingEvent = nil
		return
	}
	c := ev.Clone()
	s.editingEvent = &c
}

// CheckConflicts runs conflict detection for candidate against the current
// materialized occurrences.
func (s *Store) CheckConflicts(candidate model.Event, excludeID string) []conflict.Conflict {
	s.mu.Lock()
	defer s.mu.Unlock()
	return conflict.Detect(candidate, s.materialized, excludeID)
}

// applyMutation is the single entry point for base-list changes.
func (s *Store) applyMutation(mutate func([]model.Event) []model.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events = mutate(s.events)
	s.refreshView()
	s.persist()
}

// refreshView recomputes materialized and filtered from the base list.
// Callers hold s.mu.
func (s *Store) refreshView() {
	s.materialized = Materialize(s.events, ViewWindow(s.currentMonth))
	s.filtered = filter.Apply(s.materialized, s.filters)
}

// persist writes the base events. Failures are logged only; the in-memory
// state stays authoritative. Callers hold s.mu.
func (s *Store) persist() {
	if s.blobs == nil {
		return
	}

	base := make([]model.Event, 0, len(s.events))
	for _, ev := range s.events {
		if !ev.IsOccurrence() {
			base = append(base, ev)
		}
	}

	data, err := json.Marshal(base)
	if err != nil {
		appLog.Error("calendar: failed to encode events", err)
		return
	}
	if err := s.blobs.Put(s.key, data); err != nil {
		appLog.Error("calendar: failed to save events", err, "key", s.key, "count", len(base))
	}
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
