package conflict

import (
	"fmt"

	"eventcal/internal/model"
)

// Kind classifies a conflict.
type Kind string

const (
	KindSameTime Kind = "same-time"
	// KindOverlap is reserved for duration-based detection, which is not
	// performed.
	KindOverlap Kind = "overlap"
)

// Conflict is an existing occurrence that collides with a candidate.
type Conflict struct {
	Event model.Event `json:"conflictingEvent"`
	Kind  Kind        `json:"type"`
}

// Detect returns the occurrences that share candidate's date and clock time.
//
// A candidate without a date or time has no conflicts. Occurrences whose id
// equals excludeID (the event being edited) are skipped, as are occurrences
// without a parseable time.
func Detect(candidate model.Event, occurrences []model.Event, excludeID string) []Conflict {
	conflicts := []Conflict{}
	if candidate.Date == "" || candidate.Time == "" {
		return conflicts
	}

	at, err := model.ParseClock(candidate.Time)
	if err != nil {
		return conflicts
	}

	for _, ev := range occurrences {
		if excludeID != "" && ev.ID == excludeID {
			continue
		}
		if ev.Date != candidate.Date || ev.Time == "" {
			continue
		}
		other, err := model.ParseClock(ev.Time)
		if err != nil {
			continue
		}
		if other == at {
			conflicts = append(conflicts, Conflict{Event: ev, Kind: KindSameTime})
		}
	}

	return conflicts
}

// Message summarizes conflicts for display; empty when there are none.
func Message(conflicts []Conflict) string {
	switch len(conflicts) {
	case 0:
		return ""
	case 1:
		c := conflicts[0]
		return fmt.Sprintf("This event conflicts with %q at %s", c.Event.Title, c.Event.Time)
	default:
		return fmt.Sprintf("This event conflicts with %d other events at the same time", len(conflicts))
	}
}

// ShouldPreventSave reports whether conflicts block saving. Conflicts are
// advisory, so it never does.
func ShouldPreventSave(conflicts []Conflict) bool {
	return false
}
