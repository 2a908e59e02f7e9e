package storage

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"contentpilot/types"
)

// Memory is a process-local Store. Records are copied on the way in and out.
type Memory struct {
	mu       sync.RWMutex
	items    map[string]*types.ContentItem
	projects map[string]*types.Project
	jobs     map[string]*types.Job
}

var _ Store = (*Memory)(nil)

// NewMemory creates an empty in-memory store
func NewMemory() *Memory {
	return &Memory{
		items:    make(map[string]*types.ContentItem),
		projects: make(map[string]*types.Project),
		jobs:     make(map[string]*types.Job),
	}
}

func (m *Memory) Close() error { return nil }

func (m *Memory) GetItem(_ context.Context, id string) (*types.ContentItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	item, ok := m.items[id]
	if !ok {
		return nil, fmt.Errorf("content item %s: %w", id, ErrNotFound)
	}
	return item.Clone(), nil
}

func (m *Memory) CreateItem(_ context.Context, item *types.ContentItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.items[item.ID]; exists {
		return fmt.Errorf("content item %s already exists", item.ID)
	}
	m.items[item.ID] = item.Clone()
	return nil
}

func (m *Memory) UpdateItem(_ context.Context, item *types.ContentItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.items[item.ID]
	if !ok {
		return fmt.Errorf("content item %s: %w", item.ID, ErrNotFound)
	}
	updated := item.Clone()
	updated.ScheduledFor = existing.ScheduledFor
	m.items[item.ID] = updated
	return nil
}

func (m *Memory) ListByProject(_ context.Context, projectID string, filter ItemFilter) ([]*types.ContentItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*types.ContentItem
	for _, item := range m.items {
		if item.ProjectID == projectID && filter.matches(item) {
			out = append(out, item.Clone())
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (m *Memory) ListDue(_ context.Context, now time.Time, limit int) ([]*types.ContentItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	type due struct {
		item *types.ContentItem
		at   time.Time
	}
	var found []due
	for _, item := range m.items {
		switch {
		case slices.Contains(dueStatuses, item.Status) && item.ScheduledFor != nil && !item.ScheduledFor.After(now):
			found = append(found, due{item.Clone(), *item.ScheduledFor})
		case item.Recurring.Frequency != "" && slices.Contains(recurringStatuses, item.Status) &&
			item.Recurring.NextRun != nil && !item.Recurring.NextRun.After(now):
			found = append(found, due{item.Clone(), *item.Recurring.NextRun})
		}
	}
	sort.SliceStable(found, func(i, j int) bool {
		if !found[i].at.Equal(found[j].at) {
			return found[i].at.Before(found[j].at)
		}
		return found[i].item.ID < found[j].item.ID
	})
	if limit > 0 && len(found) > limit {
		found = found[:limit]
	}
	out := make([]*types.ContentItem, len(found))
	for i, d := range found {
		out[i] = d.item
	}
	return out, nil
}

func (m *Memory) SetScheduledFor(_ context.Context, id string, at *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[id]
	if !ok {
		return fmt.Errorf("content item %s: %w", id, ErrNotFound)
	}
	if at == nil {
		item.ScheduledFor = nil
		return nil
	}
	t := *at
	item.ScheduledFor = &t
	return nil
}

func (m *Memory) GetProject(_ context.Context, id string) (*types.Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.projects[id]
	if !ok {
		return nil, fmt.Errorf("project %s: %w", id, ErrNotFound)
	}
	return p.Clone(), nil
}

func (m *Memory) SaveProject(_ context.Context, project *types.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.projects[project.ID] = project.Clone()
	return nil
}

func (m *Memory) CreateJob(_ context.Context, job *types.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.jobs[job.ID]; exists {
		return fmt.Errorf("job %s already exists", job.ID)
	}
	for _, existing := range m.jobs {
		if existing.ContentItemID == job.ContentItemID && !existing.Stage.Terminal() {
			return fmt.Errorf("item %s (job %s): %w", job.ContentItemID, existing.ID, ErrJobInProgress)
		}
	}
	m.jobs[job.ID] = job.Clone()
	return nil
}

func (m *Memory) UpdateJob(_ context.Context, job *types.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.jobs[job.ID]; !ok {
		return fmt.Errorf("job %s: %w", job.ID, ErrNotFound)
	}
	m.jobs[job.ID] = job.Clone()
	return nil
}

func (m *Memory) GetJob(_ context.Context, id string) (*types.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, fmt.Errorf("job %s: %w", id, ErrNotFound)
	}
	return job.Clone(), nil
}

func (m *Memory) ListJobsByOwner(_ context.Context, ownerID string, limit int) ([]*types.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*types.Job
	for _, job := range m.jobs {
		if ownerID == "" || job.OwnerID == ownerID {
			out = append(out, job.Clone())
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
