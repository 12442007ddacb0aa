package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	MaxTimeNeeded            = 120
	MaxPlaceLen              = 200
	MaxActionLen             = 200
	MaxRewardLen             = 200
	DefaultFrequencyTemplate = "m h * * *"
)

// Habit is either pleasant (a reward in itself) or good (a routine paired
// with a reward or a related pleasant habit and a reminder schedule).
//
// FrequencyTemplate keeps the placeholder expression as authored. Schedule
// holds the compiled cron expression and is empty for pleasant habits.
type Habit struct {
	ID                string     `json:"id" db:"id"`
	UserID            string     `json:"user_id" db:"user_id"`
	Place             string     `json:"place" db:"place"`
	Action            string     `json:"action" db:"action"`
	IsPleasant        bool       `json:"is_pleasant" db:"is_pleasant"`
	Time              *time.Time `json:"time,omitempty" db:"start_time"`
	EndTime           *time.Time `json:"end_time,omitempty" db:"end_time"`
	FrequencyTemplate string     `json:"frequency" db:"frequency_template"`
	Schedule          string     `json:"schedule,omitempty" db:"schedule"`
	Reward            *string    `json:"reward,omitempty" db:"reward"`
	RelatedHabitID    *string    `json:"related_habit_id,omitempty" db:"related_habit_id"`
	DaysOfWeek        []string   `json:"days_of_week,omitempty" db:"-"`
	TimeNeeded        int        `json:"time_needed" db:"time_needed"`
	IsPublic          bool       `json:"is_public" db:"is_public"`
	CreatedAt         time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at" db:"updated_at"`
}

// PublicHabit is the projection shown to other users.
type PublicHabit struct {
	Action     string `json:"action"`
	IsPleasant bool   `json:"is_pleasant"`
	TimeNeeded int    `json:"time_needed"`
}

// IsGood reports whether the habit carries a reminder schedule.
func (h *Habit) IsGood() bool {
	return !h.IsPleasant
}

func (h *Habit) Public() PublicHabit {
	return PublicHabit{Action: h.Action, IsPleasant: h.IsPleasant, TimeNeeded: h.TimeNeeded}
}

// Draft returns the stored field set as a candidate for validation.
// A pleasant habit's default template is not a user choice and is left out.
func (h *Habit) Draft() HabitDraft {
	d := HabitDraft{
		Place:          h.Place,
		Action:         h.Action,
		IsPleasant:     h.IsPleasant,
		Time:           h.Time,
		EndTime:        h.EndTime,
		Reward:         h.Reward,
		RelatedHabitID: h.RelatedHabitID,
		DaysOfWeek:     append([]string(nil), h.DaysOfWeek...),
		TimeNeeded:     h.TimeNeeded,
		IsPublic:       h.IsPublic,
	}
	if h.FrequencyTemplate != "" && !h.IsPleasant {
		tmpl := h.FrequencyTemplate
		d.FrequencyTemplate = &tmpl
	}
	return d
}

// HabitDraft is the full proposed field set of a habit, as evaluated by the
// Validator. Nil pointers mean the field is absent.
type HabitDraft struct {
	Place             string
	Action            string
	IsPleasant        bool
	Time              *time.Time
	EndTime           *time.Time
	FrequencyTemplate *string
	Reward            *string
	RelatedHabitID    *string
	DaysOfWeek        []string
	TimeNeeded        int
	IsPublic          bool
}

// Normalize trims text fields, turns blank optional strings into absent
// values and orders the selected days.
func (d HabitDraft) Normalize() (HabitDraft, error) {
	d.Place = strings.TrimSpace(d.Place)
	d.Action = strings.TrimSpace(d.Action)
	d.FrequencyTemplate = blankToNil(d.FrequencyTemplate)
	d.Reward = blankToNil(d.Reward)
	d.RelatedHabitID = blankToNil(d.RelatedHabitID)

	if d.Place == "" {
		return d, ErrPlaceEmpty
	}
	if d.Action == "" {
		return d, ErrActionEmpty
	}
	if len(d.Place) > MaxPlaceLen {
		return d, ErrPlaceTooLong
	}
	if len(d.Action) > MaxActionLen {
		return d, ErrActionTooLong
	}
	if d.Reward != nil && len(*d.Reward) > MaxRewardLen {
		return d, ErrRewardTooLong
	}
	if d.TimeNeeded < 0 {
		return d, ErrTimeNeededNegative
	}
	if d.FrequencyTemplate != nil && !IsKnownFrequency(*d.FrequencyTemplate) {
		return d, ErrUnknownFrequency
	}

	days, err := NormalizeWeekDays(d.DaysOfWeek)
	if err != nil {
		return d, err
	}
	d.DaysOfWeek = days

	return d, nil
}

// In expresses the start and end times in loc, the zone reminders fire in.
// Hours and the same-day rule are read from these wall clocks.
func (d HabitDraft) In(loc *time.Location) HabitDraft {
	if loc == nil {
		return d
	}
	if d.Time != nil {
		t := d.Time.In(loc)
		d.Time = &t
	}
	if d.EndTime != nil {
		t := d.EndTime.In(loc)
		d.EndTime = &t
	}
	return d
}

func blankToNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

// NewHabit builds an unsaved habit from an accepted draft.
func NewHabit(userID string, d HabitDraft) (*Habit, error) {
	if userID == "" {
		return nil, ErrHabitInvalidUserID
	}

	now := time.Now().UTC()
	h := &Habit{
		ID:        uuid.NewString(),
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	h.apply(d)
	return h, nil
}

// Apply overwrites the habit's user-authored fields with an accepted draft.
// The compiled schedule is cleared and must be recompiled.
func (h *Habit) Apply(d HabitDraft) {
	h.apply(d)
	h.UpdatedAt = time.Now().UTC()
}

func (h *Habit) apply(d HabitDraft) {
	h.Place = d.Place
	h.Action = d.Action
	h.IsPleasant = d.IsPleasant
	h.Time = d.Time
	h.EndTime = d.EndTime
	h.Reward = d.Reward
	h.RelatedHabitID = d.RelatedHabitID
	h.DaysOfWeek = append([]string(nil), d.DaysOfWeek...)
	h.TimeNeeded = d.TimeNeeded
	h.IsPublic = d.IsPublic
	h.Schedule = ""

	if d.FrequencyTemplate != nil {
		h.FrequencyTemplate = *d.FrequencyTemplate
	} else {
		h.FrequencyTemplate = DefaultFrequencyTemplate
	}
}
