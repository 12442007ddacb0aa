package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DispatchTask names the handler that delivers habit reminders.
const DispatchTask = "habits.send_reminder"

// CrontabSchedule is a reusable 5-field schedule shared by every job that
// fires at the same moments.
type CrontabSchedule struct {
	ID int64 `json:"id" db:"id"`
	CronFields
}

// PeriodicJob is the registration of a reminder with the scheduler.
// Args holds the JSON encoded habit id.
type PeriodicJob struct {
	ID         int64     `json:"id" db:"id"`
	Name       string    `json:"name" db:"name"`
	ScheduleID int64     `json:"schedule_id" db:"schedule_id"`
	Task       string    `json:"task" db:"task"`
	Args       string    `json:"args" db:"args"`
	Enabled    bool      `json:"enabled" db:"enabled"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// ScheduledJob is a job joined with its schedule, as loaded by the runtime.
type ScheduledJob struct {
	PeriodicJob
	Cron CronFields
}

// ReminderJobName is unique per habit so at most one live job exists for it.
func ReminderJobName(habitID string) string {
	return "Sending reminder " + habitID
}

func NewReminderJob(schedule *CrontabSchedule, habitID string) (*PeriodicJob, error) {
	args, err := json.Marshal([]string{habitID})
	if err != nil {
		return nil, err
	}
	return &PeriodicJob{
		Name:       ReminderJobName(habitID),
		ScheduleID: schedule.ID,
		Task:       DispatchTask,
		Args:       string(args),
		Enabled:    true,
		CreatedAt:  time.Now().UTC(),
	}, nil
}

// HabitID decodes the single habit id payload.
func (j *PeriodicJob) HabitID() (string, error) {
	var args []string
	if err := json.Unmarshal([]byte(j.Args), &args); err != nil {
		return "", fmt.Errorf("decode job args: %w", err)
	}
	if len(args) != 1 || strings.TrimSpace(args[0]) == "" {
		return "", fmt.Errorf("job %q: expected one habit id, got %d args", j.Name, len(args))
	}
	return args[0], nil
}

// ReminderText composes the message sent to the habit owner.
func ReminderText(h *Habit, related *Habit) string {
	var after string
	switch {
	case h.Reward != nil:
		after = *h.Reward
	case related != nil:
		after = related.Action
	}

	text := fmt.Sprintf("It's time to do %s at %s!", h.Action, h.Place)
	if after != "" {
		text += fmt.Sprintf(" Don't forget to %s afterwards.", after)
	}
	return text
}
