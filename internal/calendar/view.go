package calendar

import (
	"time"

	"eventcal/internal/model"
	"eventcal/internal/recurrence"
)

// MonthStart truncates t to the first day of its month, midnight UTC.
func MonthStart(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}

// ViewWindow returns the padded display window for a focus month: from the
// first day of the previous month through the last day of the next month, so
// week rows straddling a month boundary always have their events.
func ViewWindow(month time.Time) recurrence.Window {
	first := MonthStart(month)
	return recurrence.Window{
		Start: first.AddDate(0, -1, 0),
		End:   first.AddDate(0, 2, -1),
	}
}

// Materialize expands every base event over w and concatenates the results
// in base-list order.
func Materialize(events []model.Event, w recurrence.Window) []model.Event {
	out := make([]model.Event, 0, len(events))
	for _, ev := range events {
		out = append(out, recurrence.Expand(ev, w)...)
	}
	return out
}
