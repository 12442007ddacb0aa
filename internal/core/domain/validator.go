package domain

import (
	"context"
	"errors"
)

// RelatedHabitReader resolves whether one of an owner's habits is pleasant.
// Implementations return ErrHabitNotFound for unknown ids and for habits of
// another owner.
type RelatedHabitReader interface {
	IsPleasant(ctx context.Context, id, userID string) (bool, error)
}

// Validator runs the habit rule chain for drafts of one owner. Rules are
// evaluated in order and the first failing rule is returned.
type Validator struct {
	related RelatedHabitReader
	userID  string
}

func NewValidator(related RelatedHabitReader, userID string) *Validator {
	return &Validator{related: related, userID: userID}
}

type rule func(ctx context.Context, d HabitDraft) error

func (v *Validator) rules() []rule {
	return []rule{
		checkTimeNeeded,
		v.checkRelatedHabit,
		checkRewardExclusive,
		checkPleasantConsistency,
		checkEndTime,
		checkDaysOfWeek,
	}
}

// Validate returns nil when the draft is acceptable, otherwise the first
// rejection (or a lookup error from the related habit reader).
func (v *Validator) Validate(ctx context.Context, d HabitDraft) error {
	for _, r := range v.rules() {
		if err := r(ctx, d); err != nil {
			return err
		}
	}
	return nil
}

func checkTimeNeeded(_ context.Context, d HabitDraft) error {
	if d.TimeNeeded > MaxTimeNeeded {
		return ErrTimeNeededExceeded
	}
	return nil
}

func (v *Validator) checkRelatedHabit(ctx context.Context, d HabitDraft) error {
	if d.RelatedHabitID == nil {
		return nil
	}
	pleasant, err := v.related.IsPleasant(ctx, *d.RelatedHabitID, v.userID)
	if err != nil {
		if errors.Is(err, ErrHabitNotFound) {
			return ErrRelatedHabitNotFound
		}
		return err
	}
	if !pleasant {
		return ErrRelatedNotPleasant
	}
	return nil
}

func checkRewardExclusive(_ context.Context, d HabitDraft) error {
	if d.RelatedHabitID != nil && d.Reward != nil {
		return ErrRewardAndRelatedHabit
	}
	return nil
}

func checkPleasantConsistency(_ context.Context, d HabitDraft) error {
	if d.IsPleasant {
		if d.RelatedHabitID != nil || d.Reward != nil || d.FrequencyTemplate != nil || d.Time != nil {
			return ErrPleasantHasGoodFields
		}
		return nil
	}

	hasReward := d.Reward != nil || d.RelatedHabitID != nil
	if !hasReward || d.FrequencyTemplate == nil || d.Time == nil {
		return ErrGoodHabitIncomplete
	}
	return nil
}

func checkEndTime(_ context.Context, d HabitDraft) error {
	if d.FrequencyTemplate != nil {
		multi := IsMultiOccurrence(*d.FrequencyTemplate)
		if multi && d.EndTime == nil {
			return ErrEndTimeRequired
		}
		if !multi && d.EndTime != nil {
			return ErrEndTimeNotAllowed
		}
	}

	if d.EndTime == nil || d.Time == nil {
		return nil
	}

	start := *d.Time
	end := d.EndTime.In(start.Location())
	sy, sm, sd := start.Date()
	ey, em, ed := end.Date()
	if sy != ey || sm != em || sd != ed {
		return ErrEndTimeDifferentDay
	}
	if !end.After(start) {
		return ErrEndTimeNotAfterStart
	}
	return nil
}

func checkDaysOfWeek(_ context.Context, d HabitDraft) error {
	if d.FrequencyTemplate == nil {
		return nil
	}
	needsDays := RequiresDays(*d.FrequencyTemplate)
	if needsDays && len(d.DaysOfWeek) == 0 {
		return ErrDaysOfWeekRequired
	}
	if !needsDays && len(d.DaysOfWeek) > 0 {
		return ErrDaysOfWeekNotAllowed
	}
	return nil
}
