package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"contentpilot/storage"
	"contentpilot/types"
)

func seedProject(t *testing.T, store *storage.Memory, spec types.ScheduleSpec) {
	t.Helper()
	require.NoError(t, store.SaveProject(context.Background(), &types.Project{
		ID:       "proj",
		OwnerID:  "owner",
		Name:     "Blog",
		Schedule: spec,
	}))
}

func seedItem(t *testing.T, store *storage.Memory, id string, priority int, status types.ContentStatus, scheduled *time.Time) {
	t.Helper()
	require.NoError(t, store.CreateItem(context.Background(), &types.ContentItem{
		ID:           id,
		ProjectID:    "proj",
		Title:        id,
		Priority:     priority,
		Status:       status,
		ScheduledFor: scheduled,
		CreatedAt:    monday,
	}))
}

func scheduledFor(t *testing.T, store *storage.Memory, id string) *time.Time {
	t.Helper()
	item, err := store.GetItem(context.Background(), id)
	require.NoError(t, err)
	return item.ScheduledFor
}

func fixedClock(ts time.Time) func() time.Time {
	return func() time.Time { return ts }
}

func TestService_Reschedule(t *testing.T) {
	store := storage.NewMemory()
	seedProject(t, store, types.ScheduleSpec{Frequency: types.FrequencyOnceDaily, TimeOfDay: "09:00", ItemsPerRun: 1})

	stale := at(1, 9, 0)
	done := at(2, 9, 0)
	seedItem(t, store, "low", 1, types.StatusIdea, nil)
	seedItem(t, store, "high", 5, types.StatusScheduled, &stale)
	seedItem(t, store, "published", 9, types.StatusCompleted, &done)

	svc := NewService(store, zap.NewNop(), WithClock(fixedClock(at(10, 10, 0))))
	assignments, err := svc.Reschedule(context.Background(), "proj")
	require.NoError(t, err)
	require.Len(t, assignments, 2)

	assert.Equal(t, at(11, 9, 0), *scheduledFor(t, store, "high"))
	assert.Equal(t, at(12, 9, 0), *scheduledFor(t, store, "low"))
	assert.Equal(t, done, *scheduledFor(t, store, "published"), "generated items keep their date")

	item, err := store.GetItem(context.Background(), "low")
	require.NoError(t, err)
	assert.Equal(t, types.StatusIdea, item.Status)
}

func TestService_RescheduleStrictValidation(t *testing.T) {
	store := storage.NewMemory()
	seedProject(t, store, types.ScheduleSpec{Frequency: types.FrequencyCustomDays, TimeOfDay: "09:00", ItemsPerRun: 1})
	stale := at(1, 9, 0)
	seedItem(t, store, "a", 1, types.StatusScheduled, &stale)

	strict := NewService(store, zap.NewNop(), WithStrictValidation(true), WithClock(fixedClock(at(10, 10, 0))))
	_, err := strict.Reschedule(context.Background(), "proj")
	assert.ErrorIs(t, err, types.ErrEmptyCustomDays)
	assert.Equal(t, stale, *scheduledFor(t, store, "a"), "a rejected spec leaves dates untouched")

	lenient := NewService(store, zap.NewNop(), WithClock(fixedClock(at(10, 10, 0))))
	_, err = lenient.Reschedule(context.Background(), "proj")
	require.NoError(t, err)
	assert.Equal(t, at(11, 9, 0), *scheduledFor(t, store, "a"))
}

func TestService_RescheduleMissingProject(t *testing.T) {
	svc := NewService(storage.NewMemory(), nil)
	_, err := svc.Reschedule(context.Background(), "nope")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestService_ScheduleSingle(t *testing.T) {
	t.Run("after latest scheduled item", func(t *testing.T) {
		store := storage.NewMemory()
		seedProject(t, store, types.ScheduleSpec{Frequency: types.FrequencyWeekly, DayOfWeek: time.Monday, TimeOfDay: "09:00", ItemsPerRun: 1})
		first, second := at(17, 9, 0), at(24, 9, 0)
		seedItem(t, store, "a", 1, types.StatusScheduled, &second)
		seedItem(t, store, "b", 1, types.StatusScheduled, &first)
		seedItem(t, store, "new", 1, types.StatusIdea, nil)

		svc := NewService(store, zap.NewNop(), WithClock(fixedClock(at(10, 10, 0))))
		got, err := svc.ScheduleSingle(context.Background(), "new")
		require.NoError(t, err)
		assert.Equal(t, at(31, 9, 0), got)
		assert.Equal(t, got, *scheduledFor(t, store, "new"))
	})

	t.Run("from anchor when nothing is scheduled", func(t *testing.T) {
		store := storage.NewMemory()
		seedProject(t, store, types.ScheduleSpec{Frequency: types.FrequencyOnceDaily, TimeOfDay: "09:00", ItemsPerRun: 1})
		seedItem(t, store, "new", 1, types.StatusIdea, nil)

		svc := NewService(store, zap.NewNop(), WithClock(fixedClock(at(10, 10, 0))))
		got, err := svc.ScheduleSingle(context.Background(), "new")
		require.NoError(t, err)
		assert.Equal(t, at(11, 9, 0), got)
	})

	t.Run("generated items are refused", func(t *testing.T) {
		store := storage.NewMemory()
		seedProject(t, store, types.ScheduleSpec{Frequency: types.FrequencyOnceDaily, TimeOfDay: "09:00", ItemsPerRun: 1})
		seedItem(t, store, "done", 1, types.StatusCompleted, nil)

		svc := NewService(store, zap.NewNop())
		_, err := svc.ScheduleSingle(context.Background(), "done")
		assert.ErrorIs(t, err, ErrAlreadyGenerated)
	})
}
