package domain

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/robfig/cron/v3"
)

// Placeholder symbols understood in a frequency template.
const (
	TokenMinute    = 'm'
	TokenHour      = 'h'
	TokenStartHour = 'x'
	TokenEndHour   = 'y'
	TokenMidHour   = 'z'
	TokenDays      = 'd'
)

type FrequencyChoice struct {
	Template string `json:"template"`
	Label    string `json:"label"`
}

// FrequencyChoices lists the templates a good habit may use.
var FrequencyChoices = []FrequencyChoice{
	{Template: "m x-y * * *", Label: "every hour"},
	{Template: "m x-y/2 * * *", Label: "every 2 hours"},
	{Template: "m x-y/3 * * *", Label: "every 3 hours"},
	{Template: "m x,z,y * * *", Label: "3 times per day"},
	{Template: "m x,y * * *", Label: "2 times per day"},
	{Template: "m h * * *", Label: "every day"},
	{Template: "m h */2 * *", Label: "every 2 days"},
	{Template: "m h */3 * *", Label: "every 3 days"},
	{Template: "m h * * d", Label: "selected days"},
}

func IsKnownFrequency(tmpl string) bool {
	for _, c := range FrequencyChoices {
		if c.Template == tmpl {
			return true
		}
	}
	return false
}

// IsMultiOccurrence reports whether the template fires several times per day.
func IsMultiOccurrence(tmpl string) bool {
	return strings.ContainsRune(tmpl, TokenStartHour)
}

// RequiresDays reports whether the template is restricted to selected days.
func RequiresDays(tmpl string) bool {
	return strings.ContainsRune(tmpl, TokenDays)
}

// CronFields are the five fields of a standard crontab line.
type CronFields struct {
	Minute      string `json:"minute" db:"minute"`
	Hour        string `json:"hour" db:"hour"`
	DayOfMonth  string `json:"day_of_month" db:"day_of_month"`
	MonthOfYear string `json:"month_of_year" db:"month_of_year"`
	DayOfWeek   string `json:"day_of_week" db:"day_of_week"`
}

func (f CronFields) String() string {
	return strings.Join([]string{f.Minute, f.Hour, f.DayOfMonth, f.MonthOfYear, f.DayOfWeek}, " ")
}

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// ParseCronFields splits a compiled expression into its five fields and
// checks it against the standard cron grammar.
func ParseCronFields(expr string) (CronFields, error) {
	parts := strings.Fields(expr)
	if len(parts) != 5 {
		return CronFields{}, fmt.Errorf("expected 5 fields, got %d", len(parts))
	}
	if _, err := cronParser.Parse(expr); err != nil {
		return CronFields{}, err
	}
	return CronFields{
		Minute:      parts[0],
		Hour:        parts[1],
		DayOfMonth:  parts[2],
		MonthOfYear: parts[3],
		DayOfWeek:   parts[4],
	}, nil
}

// Replacements computes the value of every placeholder for a good habit.
func Replacements(h *Habit) map[rune]string {
	var minute, start, end int
	if h.Time != nil {
		minute = h.Time.Minute()
		start = h.Time.Hour()
	}
	if h.EndTime != nil {
		end = h.EndTime.Hour()
	}

	days := string(TokenDays)
	if len(h.DaysOfWeek) > 0 {
		days = strings.Join(h.DaysOfWeek, ",")
	}

	return map[rune]string{
		TokenMinute:    strconv.Itoa(minute),
		TokenHour:      strconv.Itoa(start),
		TokenStartHour: strconv.Itoa(start),
		TokenEndHour:   strconv.Itoa(end),
		TokenMidHour:   strconv.Itoa((start + end) / 2),
		TokenDays:      days,
	}
}

// Substitute replaces placeholders in a single pass over the template, so
// inserted values are never scanned again.
func Substitute(tmpl string, repl map[rune]string) string {
	var b strings.Builder
	b.Grow(len(tmpl) + 16)
	for _, r := range tmpl {
		if v, ok := repl[r]; ok {
			b.WriteString(v)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// CompileSchedule turns a good habit's template into a cron expression.
//
// The habit must have passed validation: a template with the days token and
// an empty day selection is refused here instead of leaking a literal "d".
func CompileSchedule(h *Habit) (string, CronFields, error) {
	tmpl := h.FrequencyTemplate
	if h.IsPleasant {
		return "", CronFields{}, &ScheduleFormatError{Template: tmpl, Err: fmt.Errorf("pleasant habits have no schedule")}
	}
	if h.Time == nil {
		return "", CronFields{}, &ScheduleFormatError{Template: tmpl, Err: fmt.Errorf("start time missing")}
	}
	if RequiresDays(tmpl) && len(h.DaysOfWeek) == 0 {
		return "", CronFields{}, &ScheduleFormatError{Template: tmpl, Err: fmt.Errorf("template requires days but none are selected")}
	}

	expr := Substitute(tmpl, Replacements(h))
	fields, err := ParseCronFields(expr)
	if err != nil {
		return "", CronFields{}, &ScheduleFormatError{Template: tmpl, Expression: expr, Err: err}
	}
	return fields.String(), fields, nil
}
