package orchestrator

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"contentpilot/config"
	"contentpilot/storage"
	"contentpilot/types"
)

// tracker owns one job while its pipeline runs and persists every change
// with a single update by id.
type tracker struct {
	job    *types.Job
	store  storage.JobStore
	now    func() time.Time
	logger *zap.Logger
}

// log appends a narrative line, keeping the most recent entries only
func (t *tracker) log(message string) {
	t.job.Narrative = append(t.job.Narrative, types.LogEntry{
		Timestamp: t.now(),
		Message:   message,
	})
	if len(t.job.Narrative) > config.MaxNarrativeLength {
		t.job.Narrative = t.job.Narrative[len(t.job.Narrative)-config.MaxNarrativeLength:]
	}
}

func (t *tracker) logf(format string, args ...any) {
	t.log(fmt.Sprintf(format, args...))
}

// advance moves the job to stage with the given progress and step. Progress
// never decreases.
func (t *tracker) advance(ctx context.Context, stage types.Stage, progress int, step string) error {
	if err := ValidateTransition(t.job.Stage, stage); err != nil {
		return err
	}
	t.job.Stage = stage
	if progress > t.job.Progress {
		t.job.Progress = progress
	}
	t.job.CurrentStep = step
	t.log(step)
	return t.persist(ctx)
}

// fail ends the job, keeping the progress and step it reached
func (t *tracker) fail(ctx context.Context, err error) {
	if verr := ValidateTransition(t.job.Stage, types.StageFailed); verr != nil {
		t.logger.Error("Cannot fail job", zap.String("job_id", t.job.ID), zap.Error(verr))
		return
	}
	now := t.now()
	t.job.Stage = types.StageFailed
	t.job.Error = err.Error()
	t.job.CompletedAt = &now
	t.logf("Error: %v", err)
	if perr := t.persist(ctx); perr != nil {
		t.logger.Error("Failed to persist failed job", zap.String("job_id", t.job.ID), zap.Error(perr))
	}
}

func (t *tracker) complete(ctx context.Context) error {
	if err := ValidateTransition(t.job.Stage, types.StageCompleted); err != nil {
		return err
	}
	now := t.now()
	t.job.Stage = types.StageCompleted
	t.job.Progress = config.ProgressDone
	t.job.CurrentStep = "Completed"
	t.job.CompletedAt = &now
	t.log("Job completed")
	return t.persist(ctx)
}

func (t *tracker) persist(ctx context.Context) error {
	if err := t.store.UpdateJob(ctx, t.job); err != nil {
		return fmt.Errorf("persist job %s: %w", t.job.ID, err)
	}
	return nil
}

func (t *tracker) snapshot() *types.Job {
	return t.job.Clone()
}
