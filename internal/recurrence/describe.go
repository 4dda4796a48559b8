package recurrence

import (
	"fmt"

	"eventcal/internal/model"
)

var unitNames = map[model.Frequency][2]string{
	model.FrequencyDaily:   {"Daily", "days"},
	model.FrequencyWeekly:  {"Weekly", "weeks"},
	model.FrequencyMonthly: {"Monthly", "months"},
	model.FrequencyYearly:  {"Yearly", "years"},
}

// Describe renders a rule for display, e.g. "Every 2 weeks until Mar 1, 2024"
// or "Daily for 5 occurrences". Custom rules have no frequency text.
func Describe(r model.Recurrence) string {
	text := ""
	if names, ok := unitNames[r.Type]; ok {
		if r.Interval == 1 {
			text = names[0]
		} else {
			text = fmt.Sprintf("Every %d %s", r.Interval, names[1])
		}
	}

	switch {
	case r.EndDate != "":
		if d, err := model.ParseDate(r.EndDate); err == nil {
			text += " until " + d.Format("Jan 2, 2006")
		}
	case r.EndAfter > 0:
		text += fmt.Sprintf(" for %d occurrences", r.EndAfter)
	}

	return text
}
