package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/comitanigiacomo/kanso-reminders/internal/core/domain"
)

// PostgresScheduleRepository stores crontab schedules and the periodic jobs
// that reference them.
type PostgresScheduleRepository struct {
	db sqlx.ExtContext
}

func NewPostgresScheduleRepository(db sqlx.ExtContext) *PostgresScheduleRepository {
	return &PostgresScheduleRepository{db: db}
}

func (r *PostgresScheduleRepository) GetOrCreateSchedule(ctx context.Context, f domain.CronFields) (*domain.CrontabSchedule, error) {
	_, err := r.db.ExecContext(ctx, `
        INSERT INTO crontab_schedules (minute, hour, day_of_month, month_of_year, day_of_week)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (minute, hour, day_of_month, month_of_year, day_of_week) DO NOTHING`,
		f.Minute, f.Hour, f.DayOfMonth, f.MonthOfYear, f.DayOfWeek,
	)
	if err != nil {
		return nil, fmt.Errorf("insert schedule: %w", err)
	}

	var cs domain.CrontabSchedule
	err = sqlx.GetContext(ctx, r.db, &cs, `
        SELECT id, minute, hour, day_of_month, month_of_year, day_of_week
        FROM crontab_schedules
        WHERE minute = $1 AND hour = $2 AND day_of_month = $3
          AND month_of_year = $4 AND day_of_week = $5`,
		f.Minute, f.Hour, f.DayOfMonth, f.MonthOfYear, f.DayOfWeek,
	)
	if err != nil {
		return nil, fmt.Errorf("load schedule: %w", err)
	}
	return &cs, nil
}

func (r *PostgresScheduleRepository) CreateJob(ctx context.Context, job *domain.PeriodicJob) error {
	var id int64
	err := sqlx.GetContext(ctx, r.db, &id, `
        INSERT INTO periodic_jobs (name, schedule_id, task, args, enabled, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id`,
		job.Name, job.ScheduleID, job.Task, job.Args, job.Enabled, job.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateJobName
		}
		return fmt.Errorf("insert job: %w", err)
	}

	job.ID = id
	return nil
}

func (r *PostgresScheduleRepository) GetJobByName(ctx context.Context, name string) (*domain.PeriodicJob, error) {
	var job domain.PeriodicJob
	err := sqlx.GetContext(ctx, r.db, &job, `
        SELECT id, name, schedule_id, task, args, enabled, created_at
        FROM periodic_jobs
        WHERE name = $1`, name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrJobNotFound
		}
		return nil, fmt.Errorf("load job: %w", err)
	}
	return &job, nil
}

func (r *PostgresScheduleRepository) DisableJob(ctx context.Context, id int64) error {
	return r.execOne(ctx, `UPDATE periodic_jobs SET enabled = FALSE WHERE id = $1`, id)
}

func (r *PostgresScheduleRepository) DeleteJob(ctx context.Context, id int64) error {
	return r.execOne(ctx, `DELETE FROM periodic_jobs WHERE id = $1`, id)
}

func (r *PostgresScheduleRepository) execOne(ctx context.Context, query string, id int64) error {
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("job query failed: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrJobNotFound
	}
	return nil
}

func (r *PostgresScheduleRepository) ListEnabledJobs(ctx context.Context) ([]*domain.ScheduledJob, error) {
	var jobs []*domain.ScheduledJob
	err := sqlx.SelectContext(ctx, r.db, &jobs, `
        SELECT j.id, j.name, j.schedule_id, j.task, j.args, j.enabled, j.created_at,
               s.minute        AS "cron.minute",
               s.hour          AS "cron.hour",
               s.day_of_month  AS "cron.day_of_month",
               s.month_of_year AS "cron.month_of_year",
               s.day_of_week   AS "cron.day_of_week"
        FROM periodic_jobs j
        JOIN crontab_schedules s ON s.id = j.schedule_id
        WHERE j.enabled
        ORDER BY j.id`)
	if err != nil {
		return nil, fmt.Errorf("list enabled jobs: %w", err)
	}
	return jobs, nil
}
