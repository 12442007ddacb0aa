package domain_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/comitanigiacomo/kanso-reminders/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHabit(t *testing.T) {
	t.Run("Success: Good habit keeps authored template", func(t *testing.T) {
		h, err := domain.NewHabit("u1", goodDraft())

		require.NoError(t, err)
		assert.NotEmpty(t, h.ID)
		assert.Equal(t, "u1", h.UserID)
		assert.Equal(t, "m h * * *", h.FrequencyTemplate)
		assert.Empty(t, h.Schedule, "schedule is compiled in a second phase")
		assert.True(t, h.IsGood())
		assert.WithinDuration(t, time.Now().UTC(), h.CreatedAt, 2*time.Second)
	})

	t.Run("Success: Pleasant habit gets the default template", func(t *testing.T) {
		h, err := domain.NewHabit("u1", pleasantDraft())

		require.NoError(t, err)
		assert.Equal(t, domain.DefaultFrequencyTemplate, h.FrequencyTemplate)
		assert.False(t, h.IsGood())
	})

	t.Run("Error: Missing owner", func(t *testing.T) {
		_, err := domain.NewHabit("", goodDraft())
		assert.Equal(t, domain.ErrHabitInvalidUserID, err)
	})
}

func TestHabit_Draft(t *testing.T) {
	t.Run("Pleasant default template is not part of the candidate", func(t *testing.T) {
		h, _ := domain.NewHabit("u1", pleasantDraft())

		d := h.Draft()

		assert.Nil(t, d.FrequencyTemplate)
		assert.True(t, d.IsPleasant)
	})

	t.Run("Draft copies days", func(t *testing.T) {
		draft := goodDraft()
		draft.FrequencyTemplate = ptr("m h * * d")
		draft.DaysOfWeek = []string{"mon"}
		h, _ := domain.NewHabit("u1", draft)

		d := h.Draft()
		d.DaysOfWeek[0] = "sun"

		assert.Equal(t, "mon", h.DaysOfWeek[0], "habit internal state leaked")
	})
}

func TestHabit_ApplyClearsSchedule(t *testing.T) {
	h, _ := domain.NewHabit("u1", goodDraft())
	h.Schedule = "30 15 * * *"
	before := h.UpdatedAt
	time.Sleep(1 * time.Millisecond)

	d := goodDraft()
	d.Time = at(16, 30)
	h.Apply(d)

	assert.Empty(t, h.Schedule)
	assert.Equal(t, 16, h.Time.Hour())
	assert.True(t, h.UpdatedAt.After(before))
}

func TestHabitPatch_Apply(t *testing.T) {
	stored := func() *domain.Habit {
		d := goodDraft()
		d.FrequencyTemplate = ptr("m h * * d")
		d.DaysOfWeek = []string{"mon", "tue"}
		h, _ := domain.NewHabit("u1", d)
		return h
	}

	t.Run("Absent fields come from the stored habit", func(t *testing.T) {
		h := stored()

		d := domain.HabitPatch{Action: domain.Some("Swim")}.Apply(h)

		assert.Equal(t, "Swim", d.Action)
		assert.Equal(t, h.Place, d.Place)
		assert.Equal(t, "m h * * d", *d.FrequencyTemplate)
		assert.Equal(t, []string{"mon", "tue"}, d.DaysOfWeek)
		assert.Equal(t, *h.Reward, *d.Reward)
	})

	t.Run("Explicit null clears a field", func(t *testing.T) {
		h := stored()

		d := domain.HabitPatch{
			Reward:         domain.Null[string](),
			RelatedHabitID: domain.Some("pleasant-1"),
		}.Apply(h)

		assert.Nil(t, d.Reward)
		assert.Equal(t, "pleasant-1", *d.RelatedHabitID)
	})

	t.Run("Explicit empty days override is honored", func(t *testing.T) {
		h := stored()

		d := domain.HabitPatch{DaysOfWeek: domain.Some([]string{})}.Apply(h)

		assert.Empty(t, d.DaysOfWeek)
	})

	t.Run("JSON distinguishes absent, null and value", func(t *testing.T) {
		var p domain.HabitPatch
		err := json.Unmarshal([]byte(`{"reward": null, "time_needed": 60, "days_of_week": []}`), &p)
		require.NoError(t, err)

		assert.True(t, p.Reward.Set)
		assert.Nil(t, p.Reward.Value)
		assert.True(t, p.TimeNeeded.Set)
		assert.Equal(t, 60, *p.TimeNeeded.Value)
		assert.True(t, p.DaysOfWeek.Set)
		assert.False(t, p.Place.Set)
	})
}

func TestWeekDays(t *testing.T) {
	days := domain.WeekDays()
	require.Len(t, days, 7)
	assert.Equal(t, "mon", days[0].Code)
	assert.Equal(t, "sun", days[6].Code)

	days[0].Code = "xxx"
	again := domain.WeekDays()
	assert.Equal(t, "mon", again[0].Code, "reference table must be immutable")

	d, ok := domain.LookupWeekDay(" Fri ")
	assert.True(t, ok)
	assert.Equal(t, 5, d.ID)
}

func TestReminderJob(t *testing.T) {
	job, err := domain.NewReminderJob(&domain.CrontabSchedule{ID: 7}, "habit-42")
	require.NoError(t, err)

	assert.Equal(t, "Sending reminder habit-42", job.Name)
	assert.Equal(t, domain.DispatchTask, job.Task)
	assert.Equal(t, int64(7), job.ScheduleID)
	assert.True(t, job.Enabled)

	id, err := job.HabitID()
	require.NoError(t, err)
	assert.Equal(t, "habit-42", id)
}

func TestReminderText(t *testing.T) {
	h, _ := domain.NewHabit("u1", goodDraft())
	assert.Equal(t, "It's time to do Run at Park! Don't forget to Eat a chocolate afterwards.", domain.ReminderText(h, nil))

	d := goodDraft()
	d.Reward = nil
	d.RelatedHabitID = ptr("p1")
	h2, _ := domain.NewHabit("u1", d)
	related, _ := domain.NewHabit("u1", pleasantDraft())
	assert.Equal(t, "It's time to do Run at Park! Don't forget to Watch a series afterwards.", domain.ReminderText(h2, related))
}
