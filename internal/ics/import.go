package ics

import (
	"bytes"
	"errors"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "eventcal/internal/log"
	"eventcal/internal/model"
)

const (
	floatingLayout = "20060102T150405"
	utcLayout      = "20060102T150405Z"
	dateLayout     = "20060102"
)

// Import converts the VEVENTs of an ICS payload into base events ready for
// Store.Import. Ids are left empty; the store assigns fresh ones.
// Events that cannot be converted are logged and skipped.
func Import(body []byte) ([]model.Event, error) {
	if len(body) == 0 {
		return nil, errors.New("empty ICS body")
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	events := make([]model.Event, 0)
	for _, ve := range cal.Events() {
		ev, err := convertVEvent(ve)
		if err != nil {
			appLog.Warn("ics import: skipping vevent", "err", err)
			continue
		}
		events = append(events, ev)
	}

	appLog.Info("ics import parsed", "event_count", len(events))
	return events, nil
}

func convertVEvent(ve *ical.VEvent) (model.Event, error) {
	var ev model.Event

	if p := ve.GetProperty("RECURRENCE-ID"); p != nil {
		return ev, errors.New("recurrence overrides are not supported")
	}

	dtStart := ve.GetProperty(ical.ComponentPropertyDtStart)
	if dtStart == nil || dtStart.Value == "" {
		return ev, errors.New("missing DTSTART")
	}
	start, allDay, err := parseStart(dtStart.Value)
	if err != nil {
		return ev, err
	}
	ev.Date = model.FormatDate(start)
	if !allDay {
		ev.Time = start.Format("15:04")
	}

	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		ev.Title = unescape(p.Value)
	}
	if strings.TrimSpace(ev.Title) == "" {
		return ev, model.ErrEmptyTitle
	}
	if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
		ev.Description = unescape(p.Value)
	}
	if p := ve.GetProperty(ical.ComponentPropertyCategories); p != nil {
		// Only the first category is kept.
		ev.Category, _, _ = strings.Cut(unescape(p.Value), ",")
	}
	if p := ve.GetProperty(ical.ComponentPropertyColor); p != nil && strings.HasPrefix(p.Value, "#") {
		ev.Color = strings.ToUpper(p.Value)
	}

	if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil && p.Value != "" {
		rec, recurring, err := DecodeRRule(p.Value)
		if err != nil {
			return ev, err
		}
		if recurring {
			ev.IsRecurring = true
			ev.Recurrence = &rec
		}
	}

	return ev, nil
}

// parseStart reads a DTSTART value. Zone designators are dropped: the wall
// clock time as written is kept.
func parseStart(v string) (time.Time, bool, error) {
	v = strings.TrimSpace(v)
	switch {
	case strings.HasSuffix(v, "Z"):
		t, err := time.Parse(utcLayout, v)
		return t, false, err
	case strings.Contains(v, "T"):
		t, err := time.Parse(floatingLayout, v)
		return t, false, err
	default:
		t, err := time.Parse(dateLayout, v)
		return t, true, err
	}
}

func unescape(s string) string {
	r := strings.NewReplacer(`\n`, "\n", `\N`, "\n", `\,`, ",", `\;`, ";", `\\`, `\`)
	return r.Replace(s)
}
