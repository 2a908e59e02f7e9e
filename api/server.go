// Package api exposes the pipeline and scheduler over HTTP.
package api

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"contentpilot/scheduler"
	"contentpilot/types"
)

// JobRunner starts and inspects generation jobs
type JobRunner interface {
	StartAsync(ctx context.Context, contentItemID, ownerID string) (*types.Job, error)
	GetStatus(ctx context.Context, jobID string) (*types.Job, error)
	List(ctx context.Context, ownerID string, limit int) ([]*types.Job, error)
}

// Scheduler applies schedules to stored backlogs
type Scheduler interface {
	Reschedule(ctx context.Context, projectID string) ([]scheduler.Assignment, error)
	ScheduleSingle(ctx context.Context, itemID string) (time.Time, error)
}

// HealthCheck reports whether one dependency is usable
type HealthCheck func(ctx context.Context) error

// Dependencies are the services behind the routes
type Dependencies struct {
	Jobs      JobRunner
	Scheduler Scheduler
	Checks    map[string]HealthCheck
	Logger    *zap.Logger
	Now       func() time.Time
}

// NewRouter constructs a Gin engine with registered routes.
func NewRouter(deps Dependencies) *gin.Engine {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(deps.Logger))

	// Register resource routers
	RegisterJobRoutes(r, deps.Jobs, deps.Logger)
	RegisterScheduleRoutes(r, deps.Scheduler, deps.Now, deps.Logger)
	RegisterHealthRoutes(r, deps.Checks)
	return r
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}
