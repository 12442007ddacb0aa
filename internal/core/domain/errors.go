package domain

import (
	"errors"
	"fmt"
)

// ValidationRejection is a single user-facing reason a habit was refused.
type ValidationRejection struct {
	Reason string
}

func (e *ValidationRejection) Error() string {
	return e.Reason
}

func reject(reason string) *ValidationRejection {
	return &ValidationRejection{Reason: reason}
}

var (
	ErrTimeNeededExceeded      = reject("time needed exceeds maximum (120 sec)")
	ErrRelatedNotPleasant      = reject("only a pleasant habit may be selected as related habit")
	ErrRewardAndRelatedHabit   = reject("related habit and reward are mutually exclusive, select one of them")
	ErrPleasantHasGoodFields   = reject("pleasant habit cannot carry a reward, related habit, frequency or time")
	ErrGoodHabitIncomplete     = reject("good habit requires a reward or related habit, a frequency and a time")
	ErrEndTimeRequired         = reject("habit performed several times per day requires an end time")
	ErrEndTimeNotAllowed       = reject("end time is only valid for habits performed several times per day")
	ErrEndTimeDifferentDay     = reject("start and end time must be on the same day")
	ErrEndTimeNotAfterStart    = reject("end time must be strictly after start time")
	ErrDaysOfWeekRequired      = reject("habit performed on specific days requires a day selection")
	ErrDaysOfWeekNotAllowed    = reject("day selection is only valid for habits performed on specific days")
	ErrRelatedHabitNotFound    = reject("related habit does not exist")
	ErrUnknownWeekDay          = reject("unknown day of week (use mon, tue, wed, thu, fri, sat, sun)")
	ErrPlaceEmpty              = reject("place cannot be empty")
	ErrActionEmpty             = reject("action cannot be empty")
	ErrPlaceTooLong            = reject("place is too long (max 200 chars)")
	ErrActionTooLong           = reject("action is too long (max 200 chars)")
	ErrRewardTooLong           = reject("reward is too long (max 200 chars)")
	ErrTimeNeededNegative      = reject("time needed cannot be negative")
	ErrRelatedHabitIsSelf      = reject("habit cannot be related to itself")
	ErrUnknownFrequency        = reject("frequency must be one of the supported templates")
	ErrPleasantHabitReferenced = reject("pleasant habit is related to a good habit and must stay pleasant")
)

// IsRejection reports whether err carries a user-facing validation reason.
func IsRejection(err error) bool {
	var r *ValidationRejection
	return errors.As(err, &r)
}

var (
	ErrHabitNotFound      = errors.New("habit not found")
	ErrHabitInvalidUserID = errors.New("invalid user id")
	ErrJobNotFound        = errors.New("periodic job not found")
	ErrReminderStale      = errors.New("reminder fired for a habit that no longer exists")

	// ErrHabitReferenced refuses deleting a pleasant habit that a good habit
	// still names as its related habit.
	ErrHabitReferenced = errors.New("habit is the related habit of another habit")
)

// ScheduleFormatError means a compiled expression is not a valid 5-field
// cron. Accepted habits never produce one; seeing it means validation and
// compilation disagree.
type ScheduleFormatError struct {
	Template   string
	Expression string
	Err        error
}

func (e *ScheduleFormatError) Error() string {
	return fmt.Sprintf("schedule format: template %q compiled to %q: %v", e.Template, e.Expression, e.Err)
}

func (e *ScheduleFormatError) Unwrap() error {
	return e.Err
}
