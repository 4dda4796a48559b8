package recurrence

import (
	"time"

	appLog "eventcal/internal/log"
	"eventcal/internal/model"
)

// Window is the inclusive date range occurrences are generated for.
// Start and End are calendar dates at midnight UTC (see model.ParseDate).
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether d lies in [Start, End].
func (w Window) Contains(d time.Time) bool {
	return !d.Before(w.Start) && !d.After(w.End)
}

// Expand materializes the occurrences of base that fall inside w.
//
// The result always starts with base itself, whether or not its own date is
// inside the window. Generated occurrences are copies of base with only ID,
// Date and ParentEventID replaced, in ascending date order.
//
// Expansion walks forward from the base date one interval at a time:
//   - it stops once the date passes Recurrence.EndDate
//   - it stops once more than Recurrence.EndAfter steps have been taken
//   - it only emits dates inside [w.Start, w.End]
//   - it keeps walking only while the date is strictly before w.End
//
// A malformed rule (unknown/custom frequency, non-positive interval,
// unparseable base date) yields the base event alone.
func Expand(base model.Event, w Window) []model.Event {
	out := []model.Event{base}

	rule := base.Recurrence
	if !base.IsRecurring || rule == nil {
		return out
	}
	if rule.Interval <= 0 {
		appLog.Debug("recurrence: non-positive interval; not expanding", "id", base.ID, "interval", rule.Interval)
		return out
	}

	cur, err := model.ParseDate(base.Date)
	if err != nil {
		appLog.Debug("recurrence: invalid base date; not expanding", "id", base.ID, "date", base.Date)
		return out
	}

	var (
		until    time.Time
		hasUntil bool
	)
	if rule.EndDate != "" {
		if t, err := model.ParseDate(rule.EndDate); err == nil {
			until, hasUntil = t, true
		} else {
			appLog.Debug("recurrence: invalid end date ignored", "id", base.ID, "end_date", rule.EndDate)
		}
	}

	count := 0
	for cur.Before(w.End) {
		next, ok := advance(cur, rule.Type, rule.Interval)
		if !ok {
			return out
		}
		cur = next
		count++

		if hasUntil && cur.After(until) {
			break
		}
		if rule.EndAfter > 0 && count > rule.EndAfter {
			break
		}

		if w.Contains(cur) {
			out = append(out, makeOccurrence(base, cur))
		}
	}

	return out
}

// makeOccurrence copies base onto date d.
func makeOccurrence(base model.Event, d time.Time) model.Event {
	date := model.FormatDate(d)
	occ := base
	occ.ID = base.ID + "-" + date
	occ.Date = date
	occ.ParentEventID = base.ID
	return occ
}

// advance moves d forward by n units of freq. ok is false for frequencies
// that cannot be expanded.
func advance(d time.Time, freq model.Frequency, n int) (time.Time, bool) {
	switch freq {
	case model.FrequencyDaily:
		return d.AddDate(0, 0, n), true
	case model.FrequencyWeekly:
		return d.AddDate(0, 0, 7*n), true
	case model.FrequencyMonthly:
		return addMonthsClamped(d, n), true
	case model.FrequencyYearly:
		return addMonthsClamped(d, 12*n), true
	default:
		return d, false
	}
}

// addMonthsClamped adds n calendar months, pinning the day to the last day
// of the target month when it would overflow (Jan 31 + 1 month = Feb 29 in
// a leap year, not Mar 2).
func addMonthsClamped(d time.Time, n int) time.Time {
	y, m, day := d.Date()
	first := time.Date(y, m+time.Month(n), 1, 0, 0, 0, 0, d.Location())
	if last := daysIn(first); day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day, d.Hour(), d.Minute(), d.Second(), d.Nanosecond(), d.Location())
}

func daysIn(monthStart time.Time) int {
	return monthStart.AddDate(0, 1, -1).Day()
}
