package repository

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/comitanigiacomo/kanso-reminders/internal/core/domain"
)

var ErrDuplicateJobName = errors.New("periodic job name already exists")

// InMemoryStore keeps habits, users and the job registry in process memory.
// Transactions are serialized and roll back by restoring a snapshot.
type InMemoryStore struct {
	txMu sync.Mutex
	mu   sync.RWMutex

	habits    map[string]*domain.Habit
	users     map[string]*domain.User
	schedules map[int64]*domain.CrontabSchedule
	jobs      map[int64]*domain.PeriodicJob

	nextScheduleID int64
	nextJobID      int64
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		habits:    make(map[string]*domain.Habit),
		users:     make(map[string]*domain.User),
		schedules: make(map[int64]*domain.CrontabSchedule),
		jobs:      make(map[int64]*domain.PeriodicJob),
	}
}

func (s *InMemoryStore) Habits() domain.HabitRepository       { return memoryHabits{s} }
func (s *InMemoryStore) Users() domain.UserRepository         { return memoryUsers{s} }
func (s *InMemoryStore) Schedules() domain.ScheduleRepository { return memorySchedules{s} }

func (s *InMemoryStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx domain.Store) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	snap := s.snapshot()
	if err := fn(ctx, memoryTx{s}); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

// memoryTx is the store as seen from inside a transaction; nested calls
// join the running one.
type memoryTx struct {
	*InMemoryStore
}

func (t memoryTx) WithinTx(ctx context.Context, fn func(ctx context.Context, tx domain.Store) error) error {
	return fn(ctx, t)
}

type memorySnapshot struct {
	habits         map[string]*domain.Habit
	users          map[string]*domain.User
	schedules      map[int64]*domain.CrontabSchedule
	jobs           map[int64]*domain.PeriodicJob
	nextScheduleID int64
	nextJobID      int64
}

func (s *InMemoryStore) snapshot() memorySnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := memorySnapshot{
		habits:         make(map[string]*domain.Habit, len(s.habits)),
		users:          make(map[string]*domain.User, len(s.users)),
		schedules:      make(map[int64]*domain.CrontabSchedule, len(s.schedules)),
		jobs:           make(map[int64]*domain.PeriodicJob, len(s.jobs)),
		nextScheduleID: s.nextScheduleID,
		nextJobID:      s.nextJobID,
	}
	for k, v := range s.habits {
		snap.habits[k] = cloneHabit(v)
	}
	for k, v := range s.users {
		u := *v
		snap.users[k] = &u
	}
	for k, v := range s.schedules {
		c := *v
		snap.schedules[k] = &c
	}
	for k, v := range s.jobs {
		j := *v
		snap.jobs[k] = &j
	}
	return snap
}

func (s *InMemoryStore) restore(snap memorySnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.habits = snap.habits
	s.users = snap.users
	s.schedules = snap.schedules
	s.jobs = snap.jobs
	s.nextScheduleID = snap.nextScheduleID
	s.nextJobID = snap.nextJobID
}

func cloneHabit(h *domain.Habit) *domain.Habit {
	c := *h
	c.DaysOfWeek = append([]string(nil), h.DaysOfWeek...)
	return &c
}

type memoryHabits struct{ s *InMemoryStore }

func (r memoryHabits) Create(ctx context.Context, habit *domain.Habit) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.habits[habit.ID]; exists {
		return errors.New("duplicate key value violates unique constraint")
	}
	r.s.habits[habit.ID] = cloneHabit(habit)
	return nil
}

func (r memoryHabits) GetByID(ctx context.Context, id string) (*domain.Habit, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	habit, ok := r.s.habits[id]
	if !ok {
		return nil, domain.ErrHabitNotFound
	}
	return cloneHabit(habit), nil
}

// GetByIDForUpdate needs no row lock: writers already hold the tx mutex.
func (r memoryHabits) GetByIDForUpdate(ctx context.Context, id string) (*domain.Habit, error) {
	return r.GetByID(ctx, id)
}

func (r memoryHabits) ListByUserID(ctx context.Context, userID string, page domain.Page) ([]*domain.Habit, int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var habits []*domain.Habit
	for _, h := range r.s.habits {
		if h.UserID == userID {
			habits = append(habits, cloneHabit(h))
		}
	}
	sortHabits(habits)

	total := len(habits)
	start := page.Offset()
	if start >= total {
		return []*domain.Habit{}, total, nil
	}
	end := start + page.Size
	if end > total {
		end = total
	}
	return habits[start:end], total, nil
}

func (r memoryHabits) ListPublic(ctx context.Context) ([]*domain.Habit, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var habits []*domain.Habit
	for _, h := range r.s.habits {
		if h.IsPublic {
			habits = append(habits, cloneHabit(h))
		}
	}
	sortHabits(habits)
	return habits, nil
}

func sortHabits(habits []*domain.Habit) {
	sort.Slice(habits, func(i, j int) bool {
		if habits[i].CreatedAt.Equal(habits[j].CreatedAt) {
			return habits[i].ID < habits[j].ID
		}
		return habits[i].CreatedAt.Before(habits[j].CreatedAt)
	})
}

func (r memoryHabits) Update(ctx context.Context, habit *domain.Habit) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.habits[habit.ID]; !ok {
		return domain.ErrHabitNotFound
	}
	r.s.habits[habit.ID] = cloneHabit(habit)
	return nil
}

func (r memoryHabits) UpdateSchedule(ctx context.Context, id string, schedule string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	habit, ok := r.s.habits[id]
	if !ok {
		return domain.ErrHabitNotFound
	}
	habit.Schedule = schedule
	return nil
}

func (r memoryHabits) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.habits[id]; !ok {
		return domain.ErrHabitNotFound
	}
	delete(r.s.habits, id)

	for _, h := range r.s.habits {
		if h.RelatedHabitID != nil && *h.RelatedHabitID == id {
			h.RelatedHabitID = nil
		}
	}
	return nil
}

func (r memoryHabits) IsPleasant(ctx context.Context, id, userID string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	habit, ok := r.s.habits[id]
	if !ok || habit.UserID != userID {
		return false, domain.ErrHabitNotFound
	}
	return habit.IsPleasant, nil
}

func (r memoryHabits) IsReferenced(ctx context.Context, id string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, h := range r.s.habits {
		if h.RelatedHabitID != nil && *h.RelatedHabitID == id {
			return true, nil
		}
	}
	return false, nil
}

type memoryUsers struct{ s *InMemoryStore }

func (r memoryUsers) Create(ctx context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, u := range r.s.users {
		if u.Email == user.Email {
			return domain.ErrEmailAlreadyExists
		}
	}
	c := *user
	r.s.users[user.ID] = &c
	return nil
}

func (r memoryUsers) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, u := range r.s.users {
		if u.Email == email {
			c := *u
			return &c, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r memoryUsers) GetByID(ctx context.Context, id string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	c := *u
	return &c, nil
}

type memorySchedules struct{ s *InMemoryStore }

func (r memorySchedules) GetOrCreateSchedule(ctx context.Context, fields domain.CronFields) (*domain.CrontabSchedule, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, cs := range r.s.schedules {
		if cs.CronFields == fields {
			c := *cs
			return &c, nil
		}
	}

	r.s.nextScheduleID++
	cs := &domain.CrontabSchedule{ID: r.s.nextScheduleID, CronFields: fields}
	r.s.schedules[cs.ID] = cs
	c := *cs
	return &c, nil
}

func (r memorySchedules) CreateJob(ctx context.Context, job *domain.PeriodicJob) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.schedules[job.ScheduleID]; !ok {
		return errors.New("unknown crontab schedule")
	}
	for _, j := range r.s.jobs {
		if j.Name == job.Name {
			return ErrDuplicateJobName
		}
	}

	r.s.nextJobID++
	job.ID = r.s.nextJobID
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	c := *job
	r.s.jobs[job.ID] = &c
	return nil
}

func (r memorySchedules) GetJobByName(ctx context.Context, name string) (*domain.PeriodicJob, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, j := range r.s.jobs {
		if j.Name == name {
			c := *j
			return &c, nil
		}
	}
	return nil, domain.ErrJobNotFound
}

func (r memorySchedules) DisableJob(ctx context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	j, ok := r.s.jobs[id]
	if !ok {
		return domain.ErrJobNotFound
	}
	j.Enabled = false
	return nil
}

func (r memorySchedules) DeleteJob(ctx context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.jobs[id]; !ok {
		return domain.ErrJobNotFound
	}
	delete(r.s.jobs, id)
	return nil
}

func (r memorySchedules) ListEnabledJobs(ctx context.Context) ([]*domain.ScheduledJob, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []*domain.ScheduledJob
	for _, j := range r.s.jobs {
		if !j.Enabled {
			continue
		}
		cs, ok := r.s.schedules[j.ScheduleID]
		if !ok {
			continue
		}
		out = append(out, &domain.ScheduledJob{PeriodicJob: *j, Cron: cs.CronFields})
	}
	sort.Slice(out, func(i, k int) bool { return out[i].ID < out[k].ID })
	return out, nil
}
