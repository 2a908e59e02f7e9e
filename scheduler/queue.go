package scheduler

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"contentpilot/orchestrator"
	"contentpilot/shared/kafka"
	"contentpilot/storage"
	"contentpilot/types"
)

// Queue runs generation requests consumed from Kafka
type Queue struct {
	runner Runner
	sem    chan struct{}
	logger *zap.Logger
}

// NewQueue creates a queue running at most maxConcurrent pipelines at once
func NewQueue(runner Runner, maxConcurrent int, logger *zap.Logger) *Queue {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Queue{runner: runner, sem: make(chan struct{}, maxConcurrent), logger: logger}
}

// Handler decodes GenerationRequest messages for a kafka.Consumer
func (q *Queue) Handler() kafka.MessageHandler {
	return &kafka.TypedMessageHandler[types.GenerationRequest]{
		Validate: func(req *types.GenerationRequest) bool {
			return strings.TrimSpace(req.ContentItemID) != ""
		},
		Process:    q.Process,
		AlwaysMark: true,
		Logger:     q.logger,
	}
}

// Process runs the pipeline for one request. Requests that can never succeed
// on redelivery return nil so the message gets marked.
func (q *Queue) Process(ctx context.Context, req *types.GenerationRequest) error {
	select {
	case q.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-q.sem }()

	log := q.logger.With(zap.String("item_id", req.ContentItemID), zap.String("owner_id", req.OwnerID))

	job, err := q.runner.RunPipeline(ctx, req.ContentItemID, req.OwnerID)
	switch {
	case err == nil:
		log.Info("Queued generation finished", zap.String("job_id", job.ID), zap.String("stage", string(job.Stage)))
		return nil
	case errors.Is(err, storage.ErrJobInProgress):
		log.Info("Item already has an active job, dropping request")
		return nil
	case errors.Is(err, orchestrator.ErrFatalStage):
		// The job itself records the failure
		log.Warn("Queued generation failed", zap.Error(err))
		return nil
	default:
		return err
	}
}
