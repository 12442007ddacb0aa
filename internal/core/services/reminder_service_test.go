package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/comitanigiacomo/kanso-reminders/internal/core/domain"
	"github.com/comitanigiacomo/kanso-reminders/internal/core/services"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockMessenger struct {
	mock.Mock
}

func (m *MockMessenger) Send(ctx context.Context, chatID string, text string) error {
	return m.Called(ctx, chatID, text).Error(0)
}

func TestReminderService_Dispatch(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*fixture, *services.ReminderService, *MockMessenger) {
		f := newFixture(t)
		messenger := new(MockMessenger)
		svc := services.NewReminderService(f.store, services.NewReminderScheduler(zerolog.Nop()), messenger, zerolog.Nop()).
			WithWatcher(f.watcher)
		return f, svc, messenger
	}

	t.Run("Success: Sends the reward text to the owner's chat", func(t *testing.T) {
		f, svc, messenger := setup(t)
		h, err := f.service.Create(ctx, "user-1", goodDraft())
		require.NoError(t, err)

		messenger.On("Send", ctx, "123456", "It's time to do Run at Park! Don't forget to Eat a chocolate afterwards.").Return(nil)

		err = svc.Dispatch(ctx, h.ID)

		assert.NoError(t, err)
		messenger.AssertExpectations(t)
	})

	t.Run("Success: Related habit action replaces the reward", func(t *testing.T) {
		f, svc, messenger := setup(t)
		p, err := f.service.Create(ctx, "user-1", pleasantDraft())
		require.NoError(t, err)
		d := goodDraft()
		d.Reward = nil
		d.RelatedHabitID = &p.ID
		h, err := f.service.Create(ctx, "user-1", d)
		require.NoError(t, err)

		messenger.On("Send", ctx, "123456", "It's time to do Run at Park! Don't forget to Watch a series afterwards.").Return(nil)

		require.NoError(t, svc.Dispatch(ctx, h.ID))
		messenger.AssertExpectations(t)
	})

	t.Run("Error: Deleted habit makes the job stale", func(t *testing.T) {
		f, svc, messenger := setup(t)
		h, err := f.service.Create(ctx, "user-1", goodDraft())
		require.NoError(t, err)
		require.NoError(t, f.store.Habits().Delete(ctx, h.ID))
		refreshes := f.watcher.Calls()

		err = svc.Dispatch(ctx, h.ID)

		assert.ErrorIs(t, err, domain.ErrReminderStale)
		assert.Empty(t, f.jobs(t))
		assert.Equal(t, refreshes+1, f.watcher.Calls())
		messenger.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Error: Delivery failure is reported", func(t *testing.T) {
		f, svc, messenger := setup(t)
		h, err := f.service.Create(ctx, "user-1", goodDraft())
		require.NoError(t, err)

		sendErr := errors.New("telegram unavailable")
		messenger.On("Send", ctx, "123456", mock.Anything).Return(sendErr)

		err = svc.Dispatch(ctx, h.ID)

		assert.ErrorIs(t, err, sendErr)
		assert.Len(t, f.jobs(t), 1, "delivery failure does not touch the job")
	})

	t.Run("Owner without chat is skipped", func(t *testing.T) {
		f, svc, messenger := setup(t)
		h, err := f.service.Create(ctx, "user-2", goodDraft())
		require.NoError(t, err)

		assert.NoError(t, svc.Dispatch(ctx, h.ID))
		messenger.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything)
	})
}
