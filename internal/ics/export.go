package ics

import (
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "eventcal/internal/log"
	"eventcal/internal/model"
	"eventcal/internal/storage"
)

const productID = "-//eventcal//eventcal//EN"

// Export renders base events as a VCALENDAR. Occurrences are skipped:
// recurring events carry an RRULE instead. Timed events are written as
// floating local times since events carry no timezone.
func Export(name string, events []model.Event, now time.Time) string {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)
	if name != "" {
		cal.SetXWRCalName(name)
	}

	for _, ev := range events {
		if ev.IsOccurrence() {
			continue
		}
		if err := addEvent(cal, ev, now); err != nil {
			appLog.Warn("ics export: skipping event", "id", ev.ID, "err", err)
		}
	}

	return cal.Serialize()
}

func addEvent(cal *ical.Calendar, ev model.Event, now time.Time) error {
	date, err := model.ParseDate(ev.Date)
	if err != nil {
		return err
	}

	var rule string
	if ev.IsRecurring && ev.Recurrence != nil {
		r, ok, err := EncodeRRule(*ev.Recurrence)
		if err != nil {
			return err
		}
		if ok {
			rule = r
		}
	}

	ve := cal.AddEvent(ev.ID)
	ve.SetDtStampTime(now)
	ve.SetSummary(ev.Title)

	if ev.Time == "" {
		ve.SetAllDayStartAt(date)
		ve.SetAllDayEndAt(date.AddDate(0, 0, 1))
	} else {
		mins, err := model.ParseClock(ev.Time)
		if err != nil {
			return err
		}
		start := date.Add(time.Duration(mins) * time.Minute)
		ve.SetProperty(ical.ComponentPropertyDtStart, start.Format(floatingLayout))
	}

	if ev.Description != "" {
		ve.SetDescription(ev.Description)
	}
	if ev.Category != "" {
		ve.SetProperty(ical.ComponentPropertyCategories, ev.Category)
	}
	if ev.Color != "" {
		ve.SetProperty(ical.ComponentPropertyColor, strings.ToLower(ev.Color))
	}
	if rule != "" {
		ve.SetProperty(ical.ComponentPropertyRrule, rule)
	}
	return nil
}

// WriteFile exports events to path atomically.
func WriteFile(path, name string, events []model.Event, now time.Time) error {
	return storage.WriteFileAtomic(path, []byte(Export(name, events, now)))
}
