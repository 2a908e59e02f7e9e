package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"contentpilot/storage"
	"contentpilot/types"
)

type fakeRunner struct {
	mu    sync.Mutex
	calls map[string]string
	stage types.Stage
}

func (f *fakeRunner) RunPipeline(_ context.Context, itemID, ownerID string) (*types.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = map[string]string{}
	}
	f.calls[itemID] = ownerID
	return &types.Job{ID: "job-" + itemID, ContentItemID: itemID, OwnerID: ownerID, Stage: f.stage}, nil
}

func TestTrigger_RunDue(t *testing.T) {
	store := storage.NewMemory()
	seedProject(t, store, types.ScheduleSpec{Frequency: types.FrequencyOnceDaily, TimeOfDay: "09:00", ItemsPerRun: 1})
	past, future := at(10, 9, 0), at(12, 9, 0)
	seedItem(t, store, "due", 1, types.StatusScheduled, &past)
	seedItem(t, store, "later", 1, types.StatusScheduled, &future)

	runner := &fakeRunner{stage: types.StageCompleted}
	trigger := NewTrigger(store, runner, 2, zap.NewNop())
	trigger.now = fixedClock(at(10, 10, 0))

	started, err := trigger.RunDue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, started)
	assert.Equal(t, map[string]string{"due": "owner"}, runner.calls)
}

func TestTrigger_AdvancesRecurringItems(t *testing.T) {
	store := storage.NewMemory()
	seedProject(t, store, types.ScheduleSpec{Frequency: types.FrequencyOnceDaily, TimeOfDay: "09:00", ItemsPerRun: 1})

	lastDue := at(10, 9, 0)
	require.NoError(t, store.CreateItem(context.Background(), &types.ContentItem{
		ID:        "weekly-roundup",
		ProjectID: "proj",
		Status:    types.StatusCompleted,
		Recurring: types.RecurringMeta{Frequency: types.FrequencyWeekly, NextRun: &lastDue},
		CreatedAt: monday,
	}))

	runner := &fakeRunner{stage: types.StageCompleted}
	trigger := NewTrigger(store, runner, 1, zap.NewNop())
	trigger.now = fixedClock(at(10, 10, 0))

	started, err := trigger.RunDue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, started)

	item, err := store.GetItem(context.Background(), "weekly-roundup")
	require.NoError(t, err)
	assert.Equal(t, 1, item.Recurring.RunCount)
	require.NotNil(t, item.Recurring.LastRun)
	assert.Equal(t, at(10, 10, 0), *item.Recurring.LastRun)
	require.NotNil(t, item.Recurring.NextRun)
	// DayOfWeek defaults to Sunday for a project spec without one
	assert.Equal(t, at(16, 9, 0), *item.Recurring.NextRun)
}

func TestTrigger_FailedRunLeavesRecurringUntouched(t *testing.T) {
	store := storage.NewMemory()
	seedProject(t, store, types.ScheduleSpec{Frequency: types.FrequencyOnceDaily, TimeOfDay: "09:00", ItemsPerRun: 1})
	lastDue := at(10, 9, 0)
	require.NoError(t, store.CreateItem(context.Background(), &types.ContentItem{
		ID:        "r",
		ProjectID: "proj",
		Status:    types.StatusFailed,
		Recurring: types.RecurringMeta{Frequency: types.FrequencyOnceDaily, NextRun: &lastDue},
		CreatedAt: monday,
	}))

	trigger := NewTrigger(store, &fakeRunner{stage: types.StageFailed}, 1, zap.NewNop())
	trigger.now = fixedClock(at(10, 10, 0))

	_, err := trigger.RunDue(context.Background())
	require.NoError(t, err)

	item, err := store.GetItem(context.Background(), "r")
	require.NoError(t, err)
	assert.Zero(t, item.Recurring.RunCount)
}

func TestTrigger_StartRejectsBadSchedule(t *testing.T) {
	trigger := NewTrigger(storage.NewMemory(), &fakeRunner{}, 1, nil)
	assert.Error(t, trigger.Start("not a cron"))
	assert.NoError(t, trigger.Start("*/5 * * * *"))
	assert.Error(t, trigger.Start("*/5 * * * *"))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, trigger.Stop(ctx))
}
