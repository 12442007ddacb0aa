package domain

import (
	"context"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Page selects a slice of an owner's habit list. Number starts at 1.
type Page struct {
	Number int
	Size   int
}

func NewPage(number, size int) Page {
	if number < 1 {
		number = 1
	}
	if size < 1 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	return Page{Number: number, Size: size}
}

func (p Page) Offset() int {
	return (p.Number - 1) * p.Size
}

type HabitRepository interface {
	// Create persists a new habit together with its day selection.
	Create(ctx context.Context, habit *Habit) error

	// GetByID retrieves a habit by its unique identifier.
	GetByID(ctx context.Context, id string) (*Habit, error)

	// GetByIDForUpdate retrieves a habit and locks it until the surrounding
	// transaction ends, serializing concurrent updates of the same habit.
	GetByIDForUpdate(ctx context.Context, id string) (*Habit, error)

	// ListByUserID returns one page of an owner's habits and the total count.
	ListByUserID(ctx context.Context, userID string, page Page) ([]*Habit, int, error)

	// ListPublic returns every habit flagged as public.
	ListPublic(ctx context.Context) ([]*Habit, error)

	// Update rewrites the user-authored fields and the day selection.
	Update(ctx context.Context, habit *Habit) error

	// UpdateSchedule stores the compiled cron expression.
	UpdateSchedule(ctx context.Context, id string, schedule string) error

	Delete(ctx context.Context, id string) error

	// IsPleasant reads the pleasant flag of a habit owned by userID.
	IsPleasant(ctx context.Context, id, userID string) (bool, error)

	// IsReferenced reports whether any habit names id as its related habit.
	IsReferenced(ctx context.Context, id string) (bool, error)
}

type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
}

// ScheduleRepository is the registry of crontab schedules and periodic jobs.
type ScheduleRepository interface {
	// GetOrCreateSchedule is idempotent on an exact match of all five fields.
	GetOrCreateSchedule(ctx context.Context, fields CronFields) (*CrontabSchedule, error)

	CreateJob(ctx context.Context, job *PeriodicJob) error
	GetJobByName(ctx context.Context, name string) (*PeriodicJob, error)
	DisableJob(ctx context.Context, id int64) error
	DeleteJob(ctx context.Context, id int64) error

	// ListEnabledJobs returns enabled jobs joined with their schedules.
	ListEnabledJobs(ctx context.Context) ([]*ScheduledJob, error)
}

// Store groups the repositories that must change atomically when a habit
// and its reminder job are written.
type Store interface {
	Habits() HabitRepository
	Users() UserRepository
	Schedules() ScheduleRepository

	// WithinTx runs fn with a Store bound to one transaction. The transaction
	// commits when fn returns nil and rolls back otherwise.
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error
}

// HabitCache is notified after committed writes so cached lists are dropped.
type HabitCache interface {
	InvalidateUser(ctx context.Context, userID string)
	InvalidatePublic(ctx context.Context)
}

// ScheduleWatcher is told when the job registry changed.
type ScheduleWatcher interface {
	Refresh()
}
