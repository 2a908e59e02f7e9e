// Package orchestrator drives one content item through research, writing,
// image generation, publishing and notification, recording progress on a job.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"contentpilot/config"
	"contentpilot/resilience"
	"contentpilot/storage"
	"contentpilot/types"
)

// ImageGenerator synthesizes a featured image
type ImageGenerator interface {
	Generate(ctx context.Context, prompt, style string) ([]byte, error)
}

// ObjectStore stores a blob and returns its public URL
type ObjectStore interface {
	PutPublic(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// Publisher pushes a finished article to the CMS
type Publisher interface {
	Publish(ctx context.Context, req types.PublishRequest) (*types.PublishResult, error)
}

// Notifier tells the project owner about a finished job
type Notifier interface {
	Send(ctx context.Context, contact, summary string) error
}

// UsageMeter records consumption. It must never block the pipeline.
type UsageMeter interface {
	Record(ctx context.Context, event types.UsageEvent) error
}

// Dependencies are the collaborators of the pipeline. Only the stores and at
// least one researcher and writer are required.
type Dependencies struct {
	Jobs    storage.JobStore
	Content storage.ContentStore

	Researchers []resilience.Provider[types.ResearchRequest, *types.ResearchPayload]
	Writers     []resilience.Provider[types.WriteRequest, *types.Draft]

	Images    ImageGenerator
	Objects   ObjectStore
	Publisher Publisher
	Notifier  Notifier
	Usage     UsageMeter

	// Cache memoizes research across items with the same topic
	Cache resilience.Cache

	Logger *zap.Logger
}

// Options tune the pipeline
type Options struct {
	CallTimeout       time.Duration
	ResearchTTL       time.Duration
	MinResearchLength int
	MinContentLength  int
	ImageRetry        resilience.RetryPolicy
	DispatchBuffer    int
	Now               func() time.Time
}

// DefaultOptions returns the production settings
func DefaultOptions() Options {
	return Options{
		CallTimeout:       config.DefaultCallTimeout,
		ResearchTTL:       config.ResearchTTL,
		MinResearchLength: config.MinResearchLength,
		MinContentLength:  config.MinContentLength,
		ImageRetry: resilience.RetryPolicy{
			MaxAttempts: config.ImageRetryAttempts,
			BaseDelay:   config.ImageRetryBaseDelay,
		},
		DispatchBuffer: config.DispatchBuffer,
		Now:            time.Now,
	}
}

// Orchestrator runs content generation jobs
type Orchestrator struct {
	deps     Dependencies
	opts     Options
	logger   *zap.Logger
	dispatch *dispatcher

	wg sync.WaitGroup
}

// New creates an orchestrator
func New(deps Dependencies, opts Options) (*Orchestrator, error) {
	if deps.Jobs == nil || deps.Content == nil {
		return nil, errors.New("job and content stores are required")
	}
	if len(deps.Researchers) == 0 {
		return nil, errors.New("at least one research provider is required")
	}
	if len(deps.Writers) == 0 {
		return nil, errors.New("at least one writer provider is required")
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Orchestrator{
		deps:     deps,
		opts:     opts,
		logger:   deps.Logger,
		dispatch: newDispatcher(opts.DispatchBuffer, opts.CallTimeout, deps.Logger),
	}, nil
}

// Start creates a job for the item, runs every stage and returns the final
// job. A fatal stage failure is returned as a *StageError next to the failed job.
func (o *Orchestrator) Start(ctx context.Context, contentItemID, ownerID string) (*types.Job, error) {
	t, err := o.createJob(ctx, contentItemID, ownerID)
	if err != nil {
		return nil, err
	}
	return o.run(ctx, t)
}

// RunPipeline is Start under the name the triggers use
func (o *Orchestrator) RunPipeline(ctx context.Context, contentItemID, ownerID string) (*types.Job, error) {
	return o.Start(ctx, contentItemID, ownerID)
}

// StartAsync creates the job and runs the pipeline in the background,
// returning the pending job immediately. The run outlives ctx cancellation.
func (o *Orchestrator) StartAsync(ctx context.Context, contentItemID, ownerID string) (*types.Job, error) {
	t, err := o.createJob(ctx, contentItemID, ownerID)
	if err != nil {
		return nil, err
	}
	pending := t.snapshot()

	runCtx := context.WithoutCancel(ctx)
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		if _, err := o.run(runCtx, t); err != nil {
			o.logger.Warn("Async job failed", zap.String("job_id", pending.ID), zap.Error(err))
		}
	}()
	return pending, nil
}

// GetStatus returns a snapshot of the job
func (o *Orchestrator) GetStatus(ctx context.Context, jobID string) (*types.Job, error) {
	return o.deps.Jobs.GetJob(ctx, jobID)
}

// List returns the owner's most recent jobs first
func (o *Orchestrator) List(ctx context.Context, ownerID string, limit int) ([]*types.Job, error) {
	return o.deps.Jobs.ListJobsByOwner(ctx, ownerID, limit)
}

// Close waits for background jobs and queued notifications
func (o *Orchestrator) Close(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return o.dispatch.Close(ctx)
}

func (o *Orchestrator) createJob(ctx context.Context, contentItemID, ownerID string) (*tracker, error) {
	if contentItemID == "" {
		return nil, errors.New("content item id is required")
	}
	job := &types.Job{
		ID:            uuid.NewString(),
		ContentItemID: contentItemID,
		OwnerID:       ownerID,
		Stage:         types.StagePending,
		CurrentStep:   "Queued",
		Narrative:     []types.LogEntry{},
		CreatedAt:     o.opts.Now(),
	}
	if err := o.deps.Jobs.CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}
	o.logger.Info("Job created",
		zap.String("job_id", job.ID),
		zap.String("content_item_id", contentItemID),
		zap.String("owner_id", ownerID))

	return &tracker{job: job, store: o.deps.Jobs, now: o.opts.Now, logger: o.logger}, nil
}

// run executes the stages in order
func (o *Orchestrator) run(ctx context.Context, t *tracker) (*types.Job, error) {
	log := o.logger.With(zap.String("job_id", t.job.ID))
	started := o.opts.Now()
	t.job.StartedAt = &started

	p := &pipelineRun{o: o, t: t, log: log}
	if serr := p.execute(ctx); serr != nil {
		finalCtx, cancel := finalizeContext(ctx)
		defer cancel()
		t.fail(finalCtx, rootCause(serr.Err))
		p.markItem(finalCtx, types.StatusFailed)
		log.Error("Job failed",
			zap.String("stage", string(serr.Stage)),
			zap.Int("progress", t.job.Progress),
			zap.Error(serr.Err))
		return t.snapshot(), serr
	}

	log.Info("Job completed",
		zap.Int("degraded_stages", len(p.degraded)),
		zap.String("published_url", t.job.Result.PublishedURL))
	return t.snapshot(), nil
}

// finalizeContext detaches terminal bookkeeping from the caller's
// cancellation so a failed or completed job is still persisted.
func finalizeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), config.FinalizeTimeout)
}

// rootCause is the error recorded on a failed job. A cascade that ran out of
// providers is reported as the last provider's own error.
func rootCause(err error) error {
	var cerr *resilience.CascadeError
	if errors.As(err, &cerr) {
		if last := cerr.Last(); last != nil {
			return last
		}
	}
	return err
}
