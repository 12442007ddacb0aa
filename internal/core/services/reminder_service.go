package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/comitanigiacomo/kanso-reminders/internal/core/domain"
)

// Messenger delivers a text to a chat. Delivery is fire-and-forget: the
// service never retries, the next firing of the job tries again.
type Messenger interface {
	Send(ctx context.Context, chatID string, text string) error
}

type ReminderService struct {
	store     domain.Store
	scheduler *ReminderScheduler
	messenger Messenger
	watcher   domain.ScheduleWatcher
	log       zerolog.Logger
}

func NewReminderService(store domain.Store, scheduler *ReminderScheduler, messenger Messenger, log zerolog.Logger) *ReminderService {
	return &ReminderService{
		store:     store,
		scheduler: scheduler,
		messenger: messenger,
		log:       log.With().Str("component", "reminder_service").Logger(),
	}
}

func (s *ReminderService) WithWatcher(w domain.ScheduleWatcher) *ReminderService {
	s.watcher = w
	return s
}

// Dispatch sends the reminder of one habit. A habit that no longer exists
// makes the job stale: it is removed and ErrReminderStale is returned.
func (s *ReminderService) Dispatch(ctx context.Context, habitID string) error {
	habit, err := s.store.Habits().GetByID(ctx, habitID)
	if errors.Is(err, domain.ErrHabitNotFound) {
		s.dropStaleJob(ctx, habitID)
		return fmt.Errorf("%w: habit %s", domain.ErrReminderStale, habitID)
	}
	if err != nil {
		return fmt.Errorf("load habit %s: %w", habitID, err)
	}

	owner, err := s.store.Users().GetByID(ctx, habit.UserID)
	if err != nil {
		return fmt.Errorf("load owner of habit %s: %w", habitID, err)
	}
	if !owner.ReminderEligible() {
		s.log.Debug().Str("habit_id", habitID).Msg("owner has no telegram chat, reminder skipped")
		return nil
	}

	var related *domain.Habit
	if habit.Reward == nil && habit.RelatedHabitID != nil {
		related, err = s.store.Habits().GetByID(ctx, *habit.RelatedHabitID)
		if err != nil && !errors.Is(err, domain.ErrHabitNotFound) {
			return fmt.Errorf("load related habit %s: %w", *habit.RelatedHabitID, err)
		}
	}

	text := domain.ReminderText(habit, related)
	if err := s.messenger.Send(ctx, *owner.TelegramChatID, text); err != nil {
		s.log.Warn().Err(err).Str("habit_id", habitID).Msg("reminder delivery failed")
		return fmt.Errorf("send reminder for habit %s: %w", habitID, err)
	}

	s.log.Info().Str("habit_id", habitID).Str("user_id", owner.ID).Msg("reminder sent")
	return nil
}

func (s *ReminderService) dropStaleJob(ctx context.Context, habitID string) {
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx domain.Store) error {
		return s.scheduler.Unregister(ctx, tx.Schedules(), habitID)
	})
	if err != nil {
		s.log.Error().Err(err).Str("habit_id", habitID).Msg("failed to remove stale reminder job")
		return
	}

	s.log.Warn().Str("habit_id", habitID).Msg("stale reminder job removed")
	if s.watcher != nil {
		s.watcher.Refresh()
	}
}
