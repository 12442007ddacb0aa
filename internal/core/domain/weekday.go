package domain

import (
	"sort"
	"strings"
)

type WeekDay struct {
	ID   int    `json:"id" db:"id"`
	Code string `json:"day" db:"day"`
}

// weekDays is reference data. The same rows are seeded into the weekdays
// table by migration 0002.
var weekDays = [7]WeekDay{
	{ID: 1, Code: "mon"},
	{ID: 2, Code: "tue"},
	{ID: 3, Code: "wed"},
	{ID: 4, Code: "thu"},
	{ID: 5, Code: "fri"},
	{ID: 6, Code: "sat"},
	{ID: 7, Code: "sun"},
}

var weekDaysByCode = func() map[string]WeekDay {
	m := make(map[string]WeekDay, len(weekDays))
	for _, d := range weekDays {
		m[d.Code] = d
	}
	return m
}()

// WeekDays returns a copy of the seven days, monday first.
func WeekDays() []WeekDay {
	out := make([]WeekDay, len(weekDays))
	copy(out, weekDays[:])
	return out
}

func LookupWeekDay(code string) (WeekDay, bool) {
	d, ok := weekDaysByCode[strings.ToLower(strings.TrimSpace(code))]
	return d, ok
}

// NormalizeWeekDays lowercases, dedups and orders day codes monday first.
func NormalizeWeekDays(codes []string) ([]string, error) {
	if len(codes) == 0 {
		return nil, nil
	}

	seen := make(map[int]bool, len(codes))
	var days []WeekDay
	for _, c := range codes {
		d, ok := LookupWeekDay(c)
		if !ok {
			return nil, ErrUnknownWeekDay
		}
		if seen[d.ID] {
			continue
		}
		seen[d.ID] = true
		days = append(days, d)
	}

	sort.Slice(days, func(i, j int) bool {
		return days[i].ID < days[j].ID
	})

	out := make([]string, len(days))
	for i, d := range days {
		out[i] = d.Code
	}
	return out, nil
}
