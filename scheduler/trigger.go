package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"contentpilot/storage"
	"contentpilot/types"
)

// Runner executes the pipeline for one item
type Runner interface {
	RunPipeline(ctx context.Context, contentItemID, ownerID string) (*types.Job, error)
}

// Trigger periodically hands due items to the runner
type Trigger struct {
	store  storage.ContentStore
	runner Runner
	logger *zap.Logger
	now    func() time.Time

	sem chan struct{}

	mu      sync.Mutex
	cron    *cron.Cron
	running bool
}

// NewTrigger creates a trigger running at most maxConcurrent pipelines at once
func NewTrigger(store storage.ContentStore, runner Runner, maxConcurrent int, logger *zap.Logger) *Trigger {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Trigger{
		store:  store,
		runner: runner,
		logger: logger,
		now:    time.Now,
		sem:    make(chan struct{}, maxConcurrent),
	}
}

// Start registers the due-item sweep on a cron schedule
func (t *Trigger) Start(schedule string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cron != nil {
		return errors.New("trigger already started")
	}

	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		if _, err := t.RunDue(context.Background()); err != nil {
			t.logger.Error("Due sweep failed", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("failed to add cron job: %w", err)
	}

	t.cron = c
	c.Start()
	t.logger.Info("Trigger started", zap.String("schedule", schedule))
	return nil
}

// Stop halts the cron and waits for a running sweep to finish
func (t *Trigger) Stop(ctx context.Context) error {
	t.mu.Lock()
	c := t.cron
	t.cron = nil
	t.mu.Unlock()

	if c == nil {
		return nil
	}
	select {
	case <-c.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunDue runs every due item and returns how many pipelines were started.
// An overlapping call while a sweep is in progress is skipped.
func (t *Trigger) RunDue(ctx context.Context) (int, error) {
	t.mu.Lock()
	if t.running {
		t.mu.Unlock()
		t.logger.Info("Sweep skipped: previous sweep still running")
		return 0, nil
	}
	t.running = true
	t.mu.Unlock()

	defer func() {
		t.mu.Lock()
		t.running = false
		t.mu.Unlock()
	}()

	due, err := t.store.ListDue(ctx, t.now(), 0)
	if err != nil {
		return 0, fmt.Errorf("list due items: %w", err)
	}
	if len(due) == 0 {
		return 0, nil
	}

	projects := make(map[string]*types.Project)
	var wg sync.WaitGroup
	started := 0
	for _, item := range due {
		project, ok := projects[item.ProjectID]
		if !ok {
			p, err := t.store.GetProject(ctx, item.ProjectID)
			if err != nil {
				t.logger.Warn("Skipping due item without project",
					zap.String("item_id", item.ID), zap.Error(err))
				continue
			}
			project = p
			projects[item.ProjectID] = project
		}

		select {
		case t.sem <- struct{}{}:
		case <-ctx.Done():
			wg.Wait()
			return started, ctx.Err()
		}

		started++
		wg.Add(1)
		go func(item *types.ContentItem, project *types.Project) {
			defer wg.Done()
			defer func() { <-t.sem }()

			job, err := t.runner.RunPipeline(ctx, item.ID, project.OwnerID)
			switch {
			case errors.Is(err, storage.ErrJobInProgress):
				t.logger.Debug("Item already running", zap.String("item_id", item.ID))
			case err != nil:
				t.logger.Warn("Pipeline failed", zap.String("item_id", item.ID), zap.Error(err))
			default:
				t.logger.Info("Pipeline finished",
					zap.String("item_id", item.ID),
					zap.String("job_id", job.ID),
					zap.String("stage", string(job.Stage)))
				if item.Recurring.Frequency != "" && job.Stage == types.StageCompleted {
					if err := t.advanceRecurring(ctx, item.ID, project.Schedule); err != nil {
						t.logger.Warn("Recurring update failed", zap.String("item_id", item.ID), zap.Error(err))
					}
				}
			}
		}(item, project)
	}

	wg.Wait()
	return started, nil
}

// advanceRecurring records a finished run of a recurring item and computes
// when it is due again.
func (t *Trigger) advanceRecurring(ctx context.Context, itemID string, spec types.ScheduleSpec) error {
	item, err := t.store.GetItem(ctx, itemID)
	if err != nil {
		return err
	}
	now := t.now()
	spec.Frequency = item.Recurring.Frequency
	next := NextRunAfter(spec, now, now)

	item.Recurring.LastRun = &now
	item.Recurring.NextRun = &next
	item.Recurring.RunCount++
	item.UpdatedAt = now
	return t.store.UpdateItem(ctx, item)
}
