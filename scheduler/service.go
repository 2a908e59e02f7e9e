package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"contentpilot/storage"
	"contentpilot/types"
)

// ErrAlreadyGenerated is returned when scheduling an item the pipeline already took
var ErrAlreadyGenerated = errors.New("item already generated")

// Service applies computed schedules to stored backlogs
type Service struct {
	store  storage.ContentStore
	strict bool
	now    func() time.Time
	logger *zap.Logger
}

// Option configures a Service
type Option func(*Service)

// WithStrictValidation rejects specs the compatibility fallbacks would accept
func WithStrictValidation(strict bool) Option {
	return func(s *Service) { s.strict = strict }
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a scheduler service over store
func NewService(store storage.ContentStore, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{store: store, now: time.Now, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Reschedule clears and recomputes the dates of every item of the project
// that has not been generated yet. Only ScheduledFor is written.
func (s *Service) Reschedule(ctx context.Context, projectID string) ([]Assignment, error) {
	project, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("load project: %w", err)
	}
	if err := project.Schedule.Validate(s.strict); err != nil {
		return nil, fmt.Errorf("project %s schedule: %w", projectID, err)
	}

	backlog, err := s.store.ListByProject(ctx, projectID, storage.ItemFilter{
		Statuses: []types.ContentStatus{types.StatusIdea, types.StatusScheduled},
	})
	if err != nil {
		return nil, fmt.Errorf("list backlog: %w", err)
	}

	for _, item := range backlog {
		if err := s.store.SetScheduledFor(ctx, item.ID, nil); err != nil {
			return nil, fmt.Errorf("clear schedule of %s: %w", item.ID, err)
		}
	}

	assignments := ComputeSchedule(project.Schedule, backlog, s.now())
	for _, a := range assignments {
		at := a.ScheduledFor
		if err := s.store.SetScheduledFor(ctx, a.Item.ID, &at); err != nil {
			return nil, fmt.Errorf("schedule %s: %w", a.Item.ID, err)
		}
	}

	s.logger.Info("Project rescheduled",
		zap.String("project_id", projectID),
		zap.Int("items", len(assignments)),
		zap.String("frequency", string(project.Schedule.Frequency)))
	return assignments, nil
}

// ScheduleSingle appends one item after the latest scheduled item of its project
func (s *Service) ScheduleSingle(ctx context.Context, itemID string) (time.Time, error) {
	item, err := s.store.GetItem(ctx, itemID)
	if err != nil {
		return time.Time{}, fmt.Errorf("load item: %w", err)
	}
	if item.Status.Generated() {
		return time.Time{}, fmt.Errorf("%w: %s is %s", ErrAlreadyGenerated, itemID, item.Status)
	}

	project, err := s.store.GetProject(ctx, item.ProjectID)
	if err != nil {
		return time.Time{}, fmt.Errorf("load project: %w", err)
	}
	if err := project.Schedule.Validate(s.strict); err != nil {
		return time.Time{}, fmt.Errorf("project %s schedule: %w", project.ID, err)
	}

	siblings, err := s.store.ListByProject(ctx, item.ProjectID, storage.ItemFilter{})
	if err != nil {
		return time.Time{}, fmt.Errorf("list backlog: %w", err)
	}

	var latest *time.Time
	for _, sibling := range siblings {
		if sibling.ID == item.ID || sibling.ScheduledFor == nil {
			continue
		}
		if latest == nil || sibling.ScheduledFor.After(*latest) {
			latest = sibling.ScheduledFor
		}
	}

	now := s.now()
	var at time.Time
	if latest == nil {
		at = FirstRun(project.Schedule, now)
	} else {
		at = NextRunAfter(project.Schedule, *latest, now)
	}

	if err := s.store.SetScheduledFor(ctx, item.ID, &at); err != nil {
		return time.Time{}, fmt.Errorf("schedule %s: %w", item.ID, err)
	}
	s.logger.Info("Item scheduled",
		zap.String("item_id", item.ID),
		zap.Time("scheduled_for", at))
	return at, nil
}
