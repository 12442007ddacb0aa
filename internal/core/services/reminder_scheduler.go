package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/comitanigiacomo/kanso-reminders/internal/core/domain"
)

// ReminderScheduler keeps the job registry in line with a habit's compiled
// schedule. It always works on the ScheduleRepository of the caller's
// transaction.
type ReminderScheduler struct {
	log zerolog.Logger
}

func NewReminderScheduler(log zerolog.Logger) *ReminderScheduler {
	return &ReminderScheduler{log: log.With().Str("component", "reminder_scheduler").Logger()}
}

// Register replaces the habit's job with one firing on fields.
func (s *ReminderScheduler) Register(ctx context.Context, reg domain.ScheduleRepository, habitID string, fields domain.CronFields) (*domain.PeriodicJob, error) {
	schedule, err := reg.GetOrCreateSchedule(ctx, fields)
	if err != nil {
		return nil, fmt.Errorf("get or create schedule %q: %w", fields.String(), err)
	}

	if err := s.Unregister(ctx, reg, habitID); err != nil {
		return nil, err
	}

	job, err := domain.NewReminderJob(schedule, habitID)
	if err != nil {
		return nil, err
	}
	if err := reg.CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("create job %q: %w", job.Name, err)
	}

	s.log.Debug().
		Str("habit_id", habitID).
		Str("cron", fields.String()).
		Int64("job_id", job.ID).
		Msg("reminder registered")

	return job, nil
}

// Unregister disables and removes the habit's job if one exists.
func (s *ReminderScheduler) Unregister(ctx context.Context, reg domain.ScheduleRepository, habitID string) error {
	name := domain.ReminderJobName(habitID)

	job, err := reg.GetJobByName(ctx, name)
	if errors.Is(err, domain.ErrJobNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("lookup job %q: %w", name, err)
	}

	if err := reg.DisableJob(ctx, job.ID); err != nil {
		return fmt.Errorf("disable job %q: %w", name, err)
	}
	if err := reg.DeleteJob(ctx, job.ID); err != nil {
		return fmt.Errorf("delete job %q: %w", name, err)
	}

	s.log.Debug().Str("habit_id", habitID).Int64("job_id", job.ID).Msg("reminder removed")
	return nil
}
