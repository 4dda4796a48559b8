package recurrence

import (
	"testing"

	"eventcal/internal/model"
)

func TestDescribe(t *testing.T) {
	cases := []struct {
		rule model.Recurrence
		want string
	}{
		{model.Recurrence{Type: model.FrequencyDaily, Interval: 1}, "Daily"},
		{model.Recurrence{Type: model.FrequencyWeekly, Interval: 2}, "Every 2 weeks"},
		{model.Recurrence{Type: model.FrequencyMonthly, Interval: 1, EndDate: "2024-03-01"}, "Monthly until Mar 1, 2024"},
		{model.Recurrence{Type: model.FrequencyYearly, Interval: 3, EndAfter: 4}, "Every 3 years for 4 occurrences"},
		{model.Recurrence{Type: model.FrequencyCustom, Interval: 1}, ""},
	}
	for _, tc := range cases {
		if got := Describe(tc.rule); got != tc.want {
			t.Errorf("Describe(%+v) = %q, want %q", tc.rule, got, tc.want)
		}
	}
}
