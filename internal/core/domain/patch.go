package domain

import (
	"bytes"
	"encoding/json"
	"time"
)

// Optional tells an absent JSON key apart from an explicit null.
type Optional[T any] struct {
	Set   bool
	Value *T
}

func Some[T any](v T) Optional[T] {
	return Optional[T]{Set: true, Value: &v}
}

func Null[T any]() Optional[T] {
	return Optional[T]{Set: true}
}

func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}

func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if o.Value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(*o.Value)
}

func (o Optional[T]) or(stored T) T {
	if o.Set && o.Value != nil {
		return *o.Value
	}
	return stored
}

func (o Optional[T]) orPtr(stored *T) *T {
	if o.Set {
		return o.Value
	}
	return stored
}

// HabitPatch carries only the fields supplied by a partial update.
type HabitPatch struct {
	Place             Optional[string]    `json:"place"`
	Action            Optional[string]    `json:"action"`
	IsPleasant        Optional[bool]      `json:"is_pleasant"`
	Time              Optional[time.Time] `json:"time"`
	EndTime           Optional[time.Time] `json:"end_time"`
	FrequencyTemplate Optional[string]    `json:"frequency"`
	Reward            Optional[string]    `json:"reward"`
	RelatedHabitID    Optional[string]    `json:"related_habit_id"`
	DaysOfWeek        Optional[[]string]  `json:"days_of_week"`
	TimeNeeded        Optional[int]       `json:"time_needed"`
	IsPublic          Optional[bool]      `json:"is_public"`
}

// Apply completes the patch with the stored habit so the validator sees the
// whole field set. A supplied empty day list replaces the stored days.
func (p HabitPatch) Apply(stored *Habit) HabitDraft {
	base := stored.Draft()

	d := HabitDraft{
		Place:             p.Place.or(base.Place),
		Action:            p.Action.or(base.Action),
		IsPleasant:        p.IsPleasant.or(base.IsPleasant),
		Time:              p.Time.orPtr(base.Time),
		EndTime:           p.EndTime.orPtr(base.EndTime),
		FrequencyTemplate: p.FrequencyTemplate.orPtr(base.FrequencyTemplate),
		Reward:            p.Reward.orPtr(base.Reward),
		RelatedHabitID:    p.RelatedHabitID.orPtr(base.RelatedHabitID),
		DaysOfWeek:        base.DaysOfWeek,
		TimeNeeded:        p.TimeNeeded.or(base.TimeNeeded),
		IsPublic:          p.IsPublic.or(base.IsPublic),
	}

	if p.DaysOfWeek.Set {
		d.DaysOfWeek = nil
		if p.DaysOfWeek.Value != nil {
			d.DaysOfWeek = append([]string{}, *p.DaysOfWeek.Value...)
		}
	}

	return d
}
