package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/comitanigiacomo/kanso-reminders/internal/core/domain"
)

type PostgresHabitRepository struct {
	db sqlx.ExtContext
}

func NewPostgresHabitRepository(db sqlx.ExtContext) *PostgresHabitRepository {
	return &PostgresHabitRepository{db: db}
}

// habitRow carries the selected days, which live in habit_weekdays.
type habitRow struct {
	domain.Habit
	Days pq.StringArray `db:"days"`
}

func (r habitRow) toDomain() *domain.Habit {
	h := r.Habit
	if len(r.Days) > 0 {
		h.DaysOfWeek = []string(r.Days)
	}
	return &h
}

const selectHabits = `
    SELECT h.id, h.user_id, h.place, h.action, h.is_pleasant,
           h.start_time, h.end_time, h.frequency_template, h.schedule,
           h.reward, h.related_habit_id, h.time_needed, h.is_public,
           h.created_at, h.updated_at,
           COALESCE(array_agg(w.code ORDER BY w.id) FILTER (WHERE w.id IS NOT NULL), '{}') AS days
    FROM habits h
    LEFT JOIN habit_weekdays hw ON hw.habit_id = h.id
    LEFT JOIN weekdays w ON w.id = hw.weekday_id`

func (r *PostgresHabitRepository) Create(ctx context.Context, h *domain.Habit) error {
	query := `
        INSERT INTO habits (
            id, user_id, place, action, is_pleasant,
            start_time, end_time, frequency_template, schedule,
            reward, related_habit_id, time_needed, is_public,
            created_at, updated_at
        ) VALUES (
            $1, $2, $3, $4, $5,
            $6, $7, $8, $9,
            $10, $11, $12, $13,
            $14, $15
        )`

	_, err := r.db.ExecContext(ctx, query,
		h.ID, h.UserID, h.Place, h.Action, h.IsPleasant,
		h.Time, h.EndTime, h.FrequencyTemplate, h.Schedule,
		h.Reward, h.RelatedHabitID, h.TimeNeeded, h.IsPublic,
		h.CreatedAt, h.UpdatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("failed to insert habit: %w", domain.ErrRelatedHabitNotFound)
		}
		return fmt.Errorf("failed to insert habit: %w", err)
	}

	return r.replaceDays(ctx, h.ID, h.DaysOfWeek)
}

func (r *PostgresHabitRepository) replaceDays(ctx context.Context, habitID string, days []string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM habit_weekdays WHERE habit_id = $1`, habitID); err != nil {
		return fmt.Errorf("failed to clear habit days: %w", err)
	}
	if len(days) == 0 {
		return nil
	}

	res, err := r.db.ExecContext(ctx, `
        INSERT INTO habit_weekdays (habit_id, weekday_id)
        SELECT $1, id FROM weekdays WHERE code = ANY($2)`,
		habitID, pq.StringArray(days),
	)
	if err != nil {
		return fmt.Errorf("failed to insert habit days: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if int(n) != len(days) {
		return fmt.Errorf("weekday reference table is missing days (found %d of %d): %w", n, len(days), domain.ErrUnknownWeekDay)
	}
	return nil
}

func (r *PostgresHabitRepository) GetByID(ctx context.Context, id string) (*domain.Habit, error) {
	var row habitRow
	err := sqlx.GetContext(ctx, r.db, &row, selectHabits+` WHERE h.id = $1 GROUP BY h.id`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrHabitNotFound
		}
		return nil, fmt.Errorf("database scan error: %w", err)
	}
	return row.toDomain(), nil
}

func (r *PostgresHabitRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.Habit, error) {
	var locked string
	err := sqlx.GetContext(ctx, r.db, &locked, `SELECT id FROM habits WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrHabitNotFound
		}
		return nil, fmt.Errorf("lock habit: %w", err)
	}
	return r.GetByID(ctx, id)
}

func (r *PostgresHabitRepository) ListByUserID(ctx context.Context, userID string, page domain.Page) ([]*domain.Habit, int, error) {
	var total int
	if err := sqlx.GetContext(ctx, r.db, &total, `SELECT COUNT(*) FROM habits WHERE user_id = $1`, userID); err != nil {
		return nil, 0, fmt.Errorf("count query error: %w", err)
	}

	var rows []habitRow
	query := selectHabits + `
        WHERE h.user_id = $1
        GROUP BY h.id
        ORDER BY h.created_at ASC, h.id ASC
        LIMIT $2 OFFSET $3`
	if err := sqlx.SelectContext(ctx, r.db, &rows, query, userID, page.Size, page.Offset()); err != nil {
		return nil, 0, fmt.Errorf("query error: %w", err)
	}

	habits := make([]*domain.Habit, 0, len(rows))
	for _, row := range rows {
		habits = append(habits, row.toDomain())
	}
	return habits, total, nil
}

func (r *PostgresHabitRepository) ListPublic(ctx context.Context) ([]*domain.Habit, error) {
	var rows []habitRow
	query := selectHabits + `
        WHERE h.is_public
        GROUP BY h.id
        ORDER BY h.created_at ASC, h.id ASC`
	if err := sqlx.SelectContext(ctx, r.db, &rows, query); err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}

	habits := make([]*domain.Habit, 0, len(rows))
	for _, row := range rows {
		habits = append(habits, row.toDomain())
	}
	return habits, nil
}

func (r *PostgresHabitRepository) Update(ctx context.Context, h *domain.Habit) error {
	query := `
        UPDATE habits SET
            place=$1, action=$2, is_pleasant=$3,
            start_time=$4, end_time=$5, frequency_template=$6, schedule=$7,
            reward=$8, related_habit_id=$9, time_needed=$10, is_public=$11,
            updated_at=$12
        WHERE id=$13`

	res, err := r.db.ExecContext(ctx, query,
		h.Place, h.Action, h.IsPleasant,
		h.Time, h.EndTime, h.FrequencyTemplate, h.Schedule,
		h.Reward, h.RelatedHabitID, h.TimeNeeded, h.IsPublic,
		h.UpdatedAt, h.ID,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("update query failed: %w", domain.ErrRelatedHabitNotFound)
		}
		return fmt.Errorf("update query failed: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrHabitNotFound
	}

	return r.replaceDays(ctx, h.ID, h.DaysOfWeek)
}

func (r *PostgresHabitRepository) UpdateSchedule(ctx context.Context, id string, schedule string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE habits SET schedule = $1 WHERE id = $2`, schedule, id)
	if err != nil {
		return fmt.Errorf("schedule update failed: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrHabitNotFound
	}
	return nil
}

func (r *PostgresHabitRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM habits WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete query failed: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrHabitNotFound
	}

	return nil
}

func (r *PostgresHabitRepository) IsPleasant(ctx context.Context, id, userID string) (bool, error) {
	var pleasant bool
	err := sqlx.GetContext(ctx, r.db, &pleasant,
		`SELECT is_pleasant FROM habits WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, domain.ErrHabitNotFound
		}
		return false, fmt.Errorf("pleasant lookup failed: %w", err)
	}
	return pleasant, nil
}

func (r *PostgresHabitRepository) IsReferenced(ctx context.Context, id string) (bool, error) {
	var referenced bool
	err := sqlx.GetContext(ctx, r.db, &referenced,
		`SELECT EXISTS (SELECT 1 FROM habits WHERE related_habit_id = $1)`, id)
	if err != nil {
		return false, fmt.Errorf("reference lookup failed: %w", err)
	}
	return referenced, nil
}
