package filter

import (
	"slices"
	"strings"

	"eventcal/internal/model"
)

// Criteria narrows a materialized event list. Empty fields match everything.
type Criteria struct {
	Search     string   `json:"search"`
	Categories []string `json:"categories"`
	Colors     []string `json:"colors"`
}

// Active reports whether any criterion would exclude something.
func (c *Criteria) Active() bool {
	if c == nil {
		return false
	}
	return c.Search != "" || len(c.Categories) > 0 || len(c.Colors) > 0
}

// Clone returns a deep copy, or nil for nil.
func (c *Criteria) Clone() *Criteria {
	if c == nil {
		return nil
	}
	return &Criteria{
		Search:     c.Search,
		Categories: slices.Clone(c.Categories),
		Colors:     slices.Clone(c.Colors),
	}
}

// Apply returns the events matching c, keeping their relative order.
// A nil c returns events unchanged.
func Apply(events []model.Event, c *Criteria) []model.Event {
	if c == nil {
		return events
	}

	search := strings.ToLower(c.Search)
	out := make([]model.Event, 0, len(events))
	for _, ev := range events {
		if search != "" && !matchesSearch(ev, search) {
			continue
		}
		if len(c.Categories) > 0 && (ev.Category == "" || !slices.Contains(c.Categories, ev.Category)) {
			continue
		}
		if len(c.Colors) > 0 && !slices.Contains(c.Colors, ev.Color) {
			continue
		}
		out = append(out, ev)
	}
	return out
}

func matchesSearch(ev model.Event, lowered string) bool {
	return strings.Contains(strings.ToLower(ev.Title), lowered) ||
		strings.Contains(strings.ToLower(ev.Description), lowered) ||
		strings.Contains(strings.ToLower(ev.Category), lowered)
}
