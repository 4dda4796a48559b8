package model

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

const (
	// DateLayout is the ISO calendar date format used for Event.Date.
	DateLayout = "2006-01-02"
	// MonthLayout identifies a focus month, e.g. "2024-01".
	MonthLayout = "2006-01"
)

// DefaultPalette is the fixed set of display colors an event gets one of
// when it is created without a color.
var DefaultPalette = []string{
	"#8B5CF6", // purple
	"#06B6D4", // cyan
	"#10B981", // green
	"#F59E0B", // yellow
	"#EF4444", // red
	"#EC4899", // pink
}

var ErrEmptyTitle = errors.New("event title is required")

// Frequency is the unit a recurrence advances by.
type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
	FrequencyYearly  Frequency = "yearly"
	FrequencyCustom  Frequency = "custom"
)

// Recurrence describes how a base event repeats.
//
// DaysOfWeek, DayOfMonth and MonthOfYear are stored and exported but the
// expander does not read them: every frequency is a flat "advance by
// Interval units".
type Recurrence struct {
	Type     Frequency `json:"type" yaml:"type"`
	Interval int       `json:"interval" yaml:"interval"`

	// EndDate is inclusive: occurrences dated after it are not generated.
	EndDate string `json:"endDate,omitempty" yaml:"end_date,omitempty"`
	// EndAfter caps the number of occurrences generated after the original.
	EndAfter int `json:"endAfter,omitempty" yaml:"end_after,omitempty"`

	DaysOfWeek  []int `json:"daysOfWeek,omitempty" yaml:"days_of_week,omitempty"` // 0=Sunday..6=Saturday
	DayOfMonth  int   `json:"dayOfMonth,omitempty" yaml:"day_of_month,omitempty"`
	MonthOfYear int   `json:"monthOfYear,omitempty" yaml:"month_of_year,omitempty"`
}

// Event is either a base event (persisted, ParentEventID empty) or an
// occurrence materialized from one.
type Event struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Date        string      `json:"date"`
	Time        string      `json:"time,omitempty"`
	Description string      `json:"description,omitempty"`
	Color       string      `json:"color"`
	Category    string      `json:"category,omitempty"`
	Recurrence  *Recurrence `json:"recurrence,omitempty"`
	IsRecurring bool        `json:"isRecurring,omitempty"`

	ParentEventID string `json:"parentEventId,omitempty"`
}

// IsOccurrence reports whether e was generated from a recurring base event.
func (e Event) IsOccurrence() bool {
	return e.ParentEventID != ""
}

// BaseID returns the id that identifies e's base event.
func (e Event) BaseID() string {
	if e.ParentEventID != "" {
		return e.ParentEventID
	}
	return e.ID
}

// Validate performs the form-boundary check. The store itself never rejects
// an event.
func (e Event) Validate() error {
	if strings.TrimSpace(e.Title) == "" {
		return ErrEmptyTitle
	}
	return nil
}

// Clone returns a copy of e that shares no mutable state with it.
func (e Event) Clone() Event {
	out := e
	if e.Recurrence != nil {
		r := *e.Recurrence
		r.DaysOfWeek = append([]int(nil), e.Recurrence.DaysOfWeek...)
		out.Recurrence = &r
	}
	return out
}

// EventPatch is a partial update. Nil fields are left untouched.
type EventPatch struct {
	Title       *string     `json:"title,omitempty"`
	Date        *string     `json:"date,omitempty"`
	Time        *string     `json:"time,omitempty"`
	Description *string     `json:"description,omitempty"`
	Color       *string     `json:"color,omitempty"`
	Category    *string     `json:"category,omitempty"`
	Recurrence  *Recurrence `json:"recurrence,omitempty"`
	IsRecurring *bool       `json:"isRecurring,omitempty"`
}

// Apply merges p over e and returns the result. The id is never changed.
func (p EventPatch) Apply(e Event) Event {
	out := e.Clone()
	if p.Title != nil {
		out.Title = *p.Title
	}
	if p.Date != nil {
		out.Date = *p.Date
	}
	if p.Time != nil {
		out.Time = *p.Time
	}
	if p.Description != nil {
		out.Description = *p.Description
	}
	if p.Color != nil {
		out.Color = *p.Color
	}
	if p.Category != nil {
		out.Category = *p.Category
	}
	if p.Recurrence != nil {
		r := *p.Recurrence
		r.DaysOfWeek = append([]int(nil), p.Recurrence.DaysOfWeek...)
		out.Recurrence = &r
	}
	if p.IsRecurring != nil {
		out.IsRecurring = *p.IsRecurring
		if !out.IsRecurring && p.Recurrence == nil {
			out.Recurrence = nil
		}
	}
	return out
}

// ParseDate parses an ISO calendar date as midnight UTC.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}

// FormatDate renders t's calendar date.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseClock converts "HH:MM" into minutes since midnight.
func ParseClock(s string) (int, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, errors.New("clock: missing ':' in " + strconv.Quote(s))
	}
	h, err := strconv.Atoi(hh)
	if err != nil {
		return 0, err
	}
	m, err := strconv.Atoi(mm)
	if err != nil {
		return 0, err
	}
	return h*60 + m, nil
}
