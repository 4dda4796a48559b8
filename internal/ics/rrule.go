package ics

import (
	"fmt"

	"github.com/teambition/rrule-go"

	"eventcal/internal/model"
)

// sundayFirst maps model weekday indices (0=Sunday) to rrule weekdays.
var sundayFirst = []rrule.Weekday{rrule.SU, rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR, rrule.SA}

var toRRuleFreq = map[model.Frequency]rrule.Frequency{
	model.FrequencyDaily:   rrule.DAILY,
	model.FrequencyWeekly:  rrule.WEEKLY,
	model.FrequencyMonthly: rrule.MONTHLY,
	model.FrequencyYearly:  rrule.YEARLY,
}

// EncodeRRule renders r as an RRULE value (without the "RRULE:" prefix).
// ok is false for rules that have no RRULE form (custom frequency).
//
// EndAfter counts occurrences after the original, so COUNT is EndAfter+1.
func EncodeRRule(r model.Recurrence) (string, bool, error) {
	freq, ok := toRRuleFreq[r.Type]
	if !ok {
		return "", false, nil
	}

	opt := rrule.ROption{
		Freq:     freq,
		Interval: r.Interval,
	}
	if r.EndAfter > 0 {
		opt.Count = r.EndAfter + 1
	}
	if r.EndDate != "" {
		until, err := model.ParseDate(r.EndDate)
		if err != nil {
			return "", false, fmt.Errorf("rrule: end date: %w", err)
		}
		opt.Until = until
	}
	for _, d := range r.DaysOfWeek {
		if d >= 0 && d < len(sundayFirst) {
			opt.Byweekday = append(opt.Byweekday, sundayFirst[d])
		}
	}
	if r.DayOfMonth != 0 {
		opt.Bymonthday = []int{r.DayOfMonth}
	}
	if r.MonthOfYear != 0 {
		opt.Bymonth = []int{r.MonthOfYear}
	}

	rule, err := rrule.NewRRule(opt)
	if err != nil {
		return "", false, fmt.Errorf("rrule: %w", err)
	}
	return rule.OrigOptions.RRuleString(), true, nil
}

// DecodeRRule parses an RRULE value into a Recurrence. recurring is false
// when the rule produces nothing beyond the original (COUNT=1).
func DecodeRRule(value string) (rec model.Recurrence, recurring bool, err error) {
	opt, err := rrule.StrToROption(value)
	if err != nil {
		return model.Recurrence{}, false, fmt.Errorf("rrule: %w", err)
	}

	switch opt.Freq {
	case rrule.DAILY:
		rec.Type = model.FrequencyDaily
	case rrule.WEEKLY:
		rec.Type = model.FrequencyWeekly
	case rrule.MONTHLY:
		rec.Type = model.FrequencyMonthly
	case rrule.YEARLY:
		rec.Type = model.FrequencyYearly
	default:
		rec.Type = model.FrequencyCustom
	}

	rec.Interval = opt.Interval
	if rec.Interval <= 0 {
		rec.Interval = 1
	}
	if opt.Count == 1 {
		return rec, false, nil
	}
	if opt.Count > 1 {
		rec.EndAfter = opt.Count - 1
	}
	if !opt.Until.IsZero() {
		rec.EndDate = model.FormatDate(opt.Until)
	}
	for _, wd := range opt.Byweekday {
		rec.DaysOfWeek = append(rec.DaysOfWeek, (wd.Day()+1)%7)
	}
	if len(opt.Bymonthday) > 0 {
		rec.DayOfMonth = opt.Bymonthday[0]
	}
	if len(opt.Bymonth) > 0 {
		rec.MonthOfYear = opt.Bymonth[0]
	}
	return rec, true, nil
}
