package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/comitanigiacomo/kanso-reminders/internal/core/domain"
)

type HabitService struct {
	store     domain.Store
	reader    domain.HabitRepository
	scheduler *ReminderScheduler
	cache     domain.HabitCache
	watcher   domain.ScheduleWatcher
	loc       *time.Location
	log       zerolog.Logger
}

func NewHabitService(store domain.Store, scheduler *ReminderScheduler, log zerolog.Logger) *HabitService {
	return &HabitService{
		store:     store,
		reader:    store.Habits(),
		scheduler: scheduler,
		loc:       time.UTC,
		log:       log.With().Str("component", "habit_service").Logger(),
	}
}

// WithCache serves list reads from reader and drops cached lists after writes.
func (s *HabitService) WithCache(reader domain.HabitRepository, cache domain.HabitCache) *HabitService {
	s.reader = reader
	s.cache = cache
	return s
}

// WithWatcher makes committed job changes visible to the reminder runtime.
func (s *HabitService) WithWatcher(w domain.ScheduleWatcher) *HabitService {
	s.watcher = w
	return s
}

// WithLocation sets the zone habit times are read in. It must match the zone
// the reminder runtime fires cron expressions in.
func (s *HabitService) WithLocation(loc *time.Location) *HabitService {
	if loc != nil {
		s.loc = loc
	}
	return s
}

type UpdateHabitInput struct {
	ID     string
	UserID string
	Patch  domain.HabitPatch
}

type HabitPage struct {
	Items    []*domain.Habit `json:"results"`
	Total    int             `json:"count"`
	Page     int             `json:"page"`
	PageSize int             `json:"page_size"`
}

func (s *HabitService) Create(ctx context.Context, userID string, draft domain.HabitDraft) (*domain.Habit, error) {
	if userID == "" {
		return nil, domain.ErrHabitInvalidUserID
	}

	draft, err := draft.Normalize()
	if err != nil {
		return nil, err
	}
	draft = draft.In(s.loc)

	var habit *domain.Habit
	err = s.store.WithinTx(ctx, func(ctx context.Context, tx domain.Store) error {
		if err := domain.NewValidator(tx.Habits(), userID).Validate(ctx, draft); err != nil {
			return err
		}

		h, err := domain.NewHabit(userID, draft)
		if err != nil {
			return err
		}
		if err := tx.Habits().Create(ctx, h); err != nil {
			return err
		}
		if err := s.syncReminder(ctx, tx, h); err != nil {
			return err
		}

		habit = h
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.afterWrite(ctx, habit.UserID)
	return habit, nil
}

func (s *HabitService) Update(ctx context.Context, input UpdateHabitInput) (*domain.Habit, error) {
	var habit *domain.Habit

	err := s.store.WithinTx(ctx, func(ctx context.Context, tx domain.Store) error {
		h, err := tx.Habits().GetByIDForUpdate(ctx, input.ID)
		if err != nil {
			return err
		}
		if h.UserID != input.UserID {
			return domain.ErrHabitNotFound
		}

		draft, err := input.Patch.Apply(h).Normalize()
		if err != nil {
			return err
		}
		draft = draft.In(s.loc)
		if draft.RelatedHabitID != nil && *draft.RelatedHabitID == h.ID {
			return domain.ErrRelatedHabitIsSelf
		}
		if h.IsPleasant && !draft.IsPleasant {
			referenced, err := tx.Habits().IsReferenced(ctx, h.ID)
			if err != nil {
				return err
			}
			if referenced {
				return domain.ErrPleasantHabitReferenced
			}
		}
		if err := domain.NewValidator(tx.Habits(), h.UserID).Validate(ctx, draft); err != nil {
			return err
		}

		h.Apply(draft)
		if err := tx.Habits().Update(ctx, h); err != nil {
			return err
		}
		if err := s.syncReminder(ctx, tx, h); err != nil {
			return err
		}

		habit = h
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.afterWrite(ctx, habit.UserID)
	return habit, nil
}

// syncReminder is the second write phase: compile and store the schedule of
// a good habit and replace its reminder job.
func (s *HabitService) syncReminder(ctx context.Context, tx domain.Store, h *domain.Habit) error {
	if h.IsPleasant {
		return s.scheduler.Unregister(ctx, tx.Schedules(), h.ID)
	}

	expr, fields, err := domain.CompileSchedule(h)
	if err != nil {
		s.log.Error().Err(err).Str("habit_id", h.ID).Msg("compiled schedule rejected")
		return err
	}
	if err := tx.Habits().UpdateSchedule(ctx, h.ID, expr); err != nil {
		return err
	}
	h.Schedule = expr

	owner, err := tx.Users().GetByID(ctx, h.UserID)
	if err != nil {
		return err
	}
	if !owner.ReminderEligible() {
		s.log.Debug().Str("habit_id", h.ID).Msg("owner has no telegram chat, reminder skipped")
		return s.scheduler.Unregister(ctx, tx.Schedules(), h.ID)
	}

	_, err = s.scheduler.Register(ctx, tx.Schedules(), h.ID, fields)
	return err
}

func (s *HabitService) afterWrite(ctx context.Context, userID string) {
	if s.cache != nil {
		s.cache.InvalidateUser(ctx, userID)
		s.cache.InvalidatePublic(ctx)
	}
	if s.watcher != nil {
		s.watcher.Refresh()
	}
}

func (s *HabitService) Get(ctx context.Context, id, userID string) (*domain.Habit, error) {
	habit, err := s.reader.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if habit.UserID != userID {
		return nil, domain.ErrHabitNotFound
	}
	return habit, nil
}

func (s *HabitService) ListByUserID(ctx context.Context, userID string, page domain.Page) (*HabitPage, error) {
	items, total, err := s.reader.ListByUserID(ctx, userID, page)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []*domain.Habit{}
	}
	return &HabitPage{Items: items, Total: total, Page: page.Number, PageSize: page.Size}, nil
}

func (s *HabitService) ListPublic(ctx context.Context) ([]domain.PublicHabit, error) {
	habits, err := s.reader.ListPublic(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]domain.PublicHabit, 0, len(habits))
	for _, h := range habits {
		out = append(out, h.Public())
	}
	return out, nil
}

func (s *HabitService) Delete(ctx context.Context, id string, userID string) error {
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx domain.Store) error {
		habit, err := tx.Habits().GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if habit.UserID != userID {
			return domain.ErrHabitNotFound
		}
		referenced, err := tx.Habits().IsReferenced(ctx, id)
		if err != nil {
			return err
		}
		if referenced {
			return domain.ErrHabitReferenced
		}

		if err := s.scheduler.Unregister(ctx, tx.Schedules(), id); err != nil {
			return err
		}
		return tx.Habits().Delete(ctx, id)
	})
	if err != nil {
		return err
	}

	s.afterWrite(ctx, userID)
	return nil
}
