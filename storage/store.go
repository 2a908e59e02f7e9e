// Package storage persists projects, content items and jobs.
package storage

import (
	"context"
	"errors"
	"time"

	"contentpilot/types"
)

var (
	// ErrNotFound is returned when a record does not exist
	ErrNotFound = errors.New("not found")
	// ErrJobInProgress is returned when an item already has a non-terminal job
	ErrJobInProgress = errors.New("content item already has an active job")
)

// ItemFilter narrows ListByProject. Zero values mean no restriction.
type ItemFilter struct {
	Statuses []types.ContentStatus
	Limit    int
}

func (f ItemFilter) matches(item *types.ContentItem) bool {
	if len(f.Statuses) == 0 {
		return true
	}
	for _, s := range f.Statuses {
		if item.Status == s {
			return true
		}
	}
	return false
}

// ContentStore holds projects and their backlog items
type ContentStore interface {
	GetItem(ctx context.Context, id string) (*types.ContentItem, error)
	CreateItem(ctx context.Context, item *types.ContentItem) error
	// UpdateItem writes every field except ScheduledFor, which only
	// SetScheduledFor changes
	UpdateItem(ctx context.Context, item *types.ContentItem) error
	// ListByProject returns items ordered by creation time
	ListByProject(ctx context.Context, projectID string, filter ItemFilter) ([]*types.ContentItem, error)
	// ListDue returns items whose run time has come: scheduled items with
	// ScheduledFor <= now, and finished recurring items with NextRun <= now.
	ListDue(ctx context.Context, now time.Time, limit int) ([]*types.ContentItem, error)
	// SetScheduledFor writes only the ScheduledFor field; nil clears it
	SetScheduledFor(ctx context.Context, id string, at *time.Time) error

	GetProject(ctx context.Context, id string) (*types.Project, error)
	SaveProject(ctx context.Context, project *types.Project) error
}

// JobStore holds pipeline jobs
type JobStore interface {
	// CreateJob fails with ErrJobInProgress when the item has a non-terminal job
	CreateJob(ctx context.Context, job *types.Job) error
	UpdateJob(ctx context.Context, job *types.Job) error
	GetJob(ctx context.Context, id string) (*types.Job, error)
	// ListJobsByOwner returns the owner's jobs newest first
	ListJobsByOwner(ctx context.Context, ownerID string, limit int) ([]*types.Job, error)
}

// Store is the full persistence surface
type Store interface {
	ContentStore
	JobStore
	Close() error
}

// dueStatuses are the statuses a scheduled item may be picked up from
var dueStatuses = []types.ContentStatus{types.StatusIdea, types.StatusScheduled}

// recurringStatuses are the statuses a recurring item is re-run from
var recurringStatuses = []types.ContentStatus{types.StatusCompleted, types.StatusFailed}
