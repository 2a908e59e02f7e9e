package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"

	"contentpilot/types"
)

//go:embed schema.sql
var schema string

// SQL is a Store backed by SQLite
type SQL struct {
	db *sql.DB
	qb sq.StatementBuilderType
}

var _ Store = (*SQL)(nil)

var itemColumns = []string{
	"id", "project_id", "title", "keywords", "target_word_count", "tone", "priority",
	"quality_score", "status", "scheduled_for", "research_data", "researched_at",
	"generated_content", "generated_at", "published_at", "published_url",
	"recurring_frequency", "recurring_last_run", "recurring_next_run", "recurring_run_count",
	"created_at", "updated_at",
}

var jobColumns = []string{
	"id", "content_item_id", "owner_id", "stage", "progress", "current_step", "error",
	"narrative", "result", "created_at", "started_at", "completed_at",
}

// OpenSQL opens the database at dsn and applies the schema
func OpenSQL(ctx context.Context, dsn string) (*SQL, error) {
	if dsn == "" {
		return nil, errors.New("storage dsn is required")
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	// One connection keeps :memory: databases shared and serializes writers
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping store: %w", err)
	}

	s := &SQL{db: db, qb: sq.StatementBuilder.PlaceholderFormat(sq.Question)}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQL) migrate(ctx context.Context) error {
	for _, stmt := range strings.Split(schema, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

// Ping checks the database connection
func (s *SQL) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQL) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQL) GetItem(ctx context.Context, id string) (*types.ContentItem, error) {
	items, err := s.queryItems(ctx, s.qb.Select(itemColumns...).From("content_items").Where(sq.Eq{"id": id}))
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("content item %s: %w", id, ErrNotFound)
	}
	return items[0], nil
}

func (s *SQL) CreateItem(ctx context.Context, item *types.ContentItem) error {
	values, err := itemValues(item)
	if err != nil {
		return err
	}
	query, args, err := s.qb.Insert("content_items").Columns(itemColumns...).Values(values...).ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert content item %s: %w", item.ID, err)
	}
	return nil
}

func (s *SQL) UpdateItem(ctx context.Context, item *types.ContentItem) error {
	values, err := itemValues(item)
	if err != nil {
		return err
	}
	update := s.qb.Update("content_items").Where(sq.Eq{"id": item.ID})
	for i, col := range itemColumns[1:] {
		if col == "scheduled_for" {
			continue
		}
		update = update.Set(col, values[i+1])
	}
	return s.execOne(ctx, update, "content item "+item.ID)
}

func (s *SQL) ListByProject(ctx context.Context, projectID string, filter ItemFilter) ([]*types.ContentItem, error) {
	q := s.qb.Select(itemColumns...).From("content_items").
		Where(sq.Eq{"project_id": projectID}).
		OrderBy("created_at ASC", "id ASC")
	if len(filter.Statuses) > 0 {
		q = q.Where(sq.Eq{"status": statusStrings(filter.Statuses)})
	}
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	return s.queryItems(ctx, q)
}

func (s *SQL) ListDue(ctx context.Context, now time.Time, limit int) ([]*types.ContentItem, error) {
	n := now.UnixNano()
	q := s.qb.Select(itemColumns...).From("content_items").
		Where(sq.Or{
			sq.And{
				sq.Eq{"status": statusStrings(dueStatuses)},
				sq.NotEq{"scheduled_for": nil},
				sq.LtOrEq{"scheduled_for": n},
			},
			sq.And{
				sq.NotEq{"recurring_frequency": ""},
				sq.Eq{"status": statusStrings(recurringStatuses)},
				sq.NotEq{"recurring_next_run": nil},
				sq.LtOrEq{"recurring_next_run": n},
			},
		}).
		OrderBy("COALESCE(scheduled_for, recurring_next_run) ASC", "id ASC")
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}
	return s.queryItems(ctx, q)
}

func (s *SQL) SetScheduledFor(ctx context.Context, id string, at *time.Time) error {
	update := s.qb.Update("content_items").Set("scheduled_for", encodeTime(at)).Where(sq.Eq{"id": id})
	return s.execOne(ctx, update, "content item "+id)
}

func (s *SQL) GetProject(ctx context.Context, id string) (*types.Project, error) {
	query, args, err := s.qb.
		Select("id", "owner_id", "name", "schedule", "notify_contact", "publish_status", "created_at").
		From("projects").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var (
		p         types.Project
		schedule  string
		createdAt int64
	)
	err = s.db.QueryRowContext(ctx, query, args...).Scan(
		&p.ID, &p.OwnerID, &p.Name, &schedule, &p.NotifyContact, &p.PublishStatus, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("project %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("select project %s: %w", id, err)
	}
	if err := json.Unmarshal([]byte(schedule), &p.Schedule); err != nil {
		return nil, fmt.Errorf("decode schedule of project %s: %w", id, err)
	}
	p.CreatedAt = time.Unix(0, createdAt).UTC()
	return &p, nil
}

func (s *SQL) SaveProject(ctx context.Context, project *types.Project) error {
	schedule, err := json.Marshal(project.Schedule)
	if err != nil {
		return fmt.Errorf("encode schedule: %w", err)
	}
	query, args, err := s.qb.Insert("projects").
		Columns("id", "owner_id", "name", "schedule", "notify_contact", "publish_status", "created_at").
		Values(project.ID, project.OwnerID, project.Name, string(schedule), project.NotifyContact,
			project.PublishStatus, project.CreatedAt.UnixNano()).
		Suffix(`ON CONFLICT(id) DO UPDATE SET owner_id = excluded.owner_id, name = excluded.name,
			schedule = excluded.schedule, notify_contact = excluded.notify_contact,
			publish_status = excluded.publish_status`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert project %s: %w", project.ID, err)
	}
	return nil
}

func (s *SQL) CreateJob(ctx context.Context, job *types.Job) error {
	values, err := jobValues(job)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	countQuery, countArgs, err := s.qb.Select("COUNT(*)").From("jobs").
		Where(sq.Eq{"content_item_id": job.ContentItemID}).
		Where(sq.NotEq{"stage": []string{string(types.StageCompleted), string(types.StageFailed)}}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build count: %w", err)
	}
	var active int
	if err := tx.QueryRowContext(ctx, countQuery, countArgs...).Scan(&active); err != nil {
		return fmt.Errorf("count active jobs: %w", err)
	}
	if active > 0 {
		return fmt.Errorf("item %s: %w", job.ContentItemID, ErrJobInProgress)
	}

	query, args, err := s.qb.Insert("jobs").Columns(jobColumns...).Values(values...).ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed: jobs.content_item_id") {
			return fmt.Errorf("item %s: %w", job.ContentItemID, ErrJobInProgress)
		}
		return fmt.Errorf("insert job %s: %w", job.ID, err)
	}
	return tx.Commit()
}

func (s *SQL) UpdateJob(ctx context.Context, job *types.Job) error {
	values, err := jobValues(job)
	if err != nil {
		return err
	}
	update := s.qb.Update("jobs").Where(sq.Eq{"id": job.ID})
	for i, col := range jobColumns[1:] {
		update = update.Set(col, values[i+1])
	}
	return s.execOne(ctx, update, "job "+job.ID)
}

func (s *SQL) GetJob(ctx context.Context, id string) (*types.Job, error) {
	jobs, err := s.queryJobs(ctx, s.qb.Select(jobColumns...).From("jobs").Where(sq.Eq{"id": id}))
	if err != nil {
		return nil, err
	}
	if len(jobs) == 0 {
		return nil, fmt.Errorf("job %s: %w", id, ErrNotFound)
	}
	return jobs[0], nil
}

func (s *SQL) ListJobsByOwner(ctx context.Context, ownerID string, limit int) ([]*types.Job, error) {
	q := s.qb.Select(jobColumns...).From("jobs").OrderBy("created_at DESC", "id DESC")
	if ownerID != "" {
		q = q.Where(sq.Eq{"owner_id": ownerID})
	}
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}
	return s.queryJobs(ctx, q)
}

func (s *SQL) execOne(ctx context.Context, update sq.UpdateBuilder, what string) error {
	query, args, err := update.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update %s: %w", what, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update %s: %w", what, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return nil
}

func (s *SQL) queryItems(ctx context.Context, q sq.SelectBuilder) ([]*types.ContentItem, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query content items: %w", err)
	}
	defer rows.Close()

	var out []*types.ContentItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return out, nil
}

func (s *SQL) queryJobs(ctx context.Context, q sq.SelectBuilder) ([]*types.Job, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query jobs: %w", err)
	}
	defer rows.Close()

	var out []*types.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return out, nil
}

func itemValues(item *types.ContentItem) ([]any, error) {
	keywords, err := json.Marshal(nonNil(item.Keywords))
	if err != nil {
		return nil, fmt.Errorf("encode keywords: %w", err)
	}
	research, err := encodeJSON(item.ResearchData)
	if err != nil {
		return nil, fmt.Errorf("encode research: %w", err)
	}
	draft, err := encodeJSON(item.GeneratedContent)
	if err != nil {
		return nil, fmt.Errorf("encode draft: %w", err)
	}
	return []any{
		item.ID, item.ProjectID, item.Title, string(keywords), item.TargetWordCount, item.Tone,
		item.Priority, item.QualityScore, string(item.Status), encodeTime(item.ScheduledFor),
		research, encodeTime(item.ResearchedAt), draft, encodeTime(item.GeneratedAt),
		encodeTime(item.PublishedAt), item.PublishedURL, string(item.Recurring.Frequency),
		encodeTime(item.Recurring.LastRun), encodeTime(item.Recurring.NextRun), item.Recurring.RunCount,
		item.CreatedAt.UnixNano(), item.UpdatedAt.UnixNano(),
	}, nil
}

func scanItem(rows *sql.Rows) (*types.ContentItem, error) {
	var (
		item                                    types.ContentItem
		keywords, status, frequency             string
		research, draft                         sql.NullString
		scheduledFor, researchedAt, generatedAt sql.NullInt64
		publishedAt, lastRun, nextRun           sql.NullInt64
		createdAt, updatedAt                    int64
	)
	err := rows.Scan(
		&item.ID, &item.ProjectID, &item.Title, &keywords, &item.TargetWordCount, &item.Tone,
		&item.Priority, &item.QualityScore, &status, &scheduledFor, &research, &researchedAt,
		&draft, &generatedAt, &publishedAt, &item.PublishedURL, &frequency, &lastRun, &nextRun,
		&item.Recurring.RunCount, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan content item: %w", err)
	}

	if err := json.Unmarshal([]byte(keywords), &item.Keywords); err != nil {
		return nil, fmt.Errorf("decode keywords of %s: %w", item.ID, err)
	}
	if len(item.Keywords) == 0 {
		item.Keywords = nil
	}
	if research.Valid {
		item.ResearchData = &types.ResearchPayload{}
		if err := json.Unmarshal([]byte(research.String), item.ResearchData); err != nil {
			return nil, fmt.Errorf("decode research of %s: %w", item.ID, err)
		}
	}
	if draft.Valid {
		item.GeneratedContent = &types.Draft{}
		if err := json.Unmarshal([]byte(draft.String), item.GeneratedContent); err != nil {
			return nil, fmt.Errorf("decode draft of %s: %w", item.ID, err)
		}
	}

	item.Status = types.ContentStatus(status)
	item.Recurring.Frequency = types.Frequency(frequency)
	item.ScheduledFor = decodeTime(scheduledFor)
	item.ResearchedAt = decodeTime(researchedAt)
	item.GeneratedAt = decodeTime(generatedAt)
	item.PublishedAt = decodeTime(publishedAt)
	item.Recurring.LastRun = decodeTime(lastRun)
	item.Recurring.NextRun = decodeTime(nextRun)
	item.CreatedAt = time.Unix(0, createdAt).UTC()
	item.UpdatedAt = time.Unix(0, updatedAt).UTC()
	return &item, nil
}

func jobValues(job *types.Job) ([]any, error) {
	narrative, err := json.Marshal(nonNil(job.Narrative))
	if err != nil {
		return nil, fmt.Errorf("encode narrative: %w", err)
	}
	result, err := json.Marshal(job.Result)
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return []any{
		job.ID, job.ContentItemID, job.OwnerID, string(job.Stage), job.Progress, job.CurrentStep,
		job.Error, string(narrative), string(result), job.CreatedAt.UnixNano(),
		encodeTime(job.StartedAt), encodeTime(job.CompletedAt),
	}, nil
}

func scanJob(rows *sql.Rows) (*types.Job, error) {
	var (
		job                    types.Job
		stage, narrative, res  string
		createdAt              int64
		startedAt, completedAt sql.NullInt64
	)
	err := rows.Scan(&job.ID, &job.ContentItemID, &job.OwnerID, &stage, &job.Progress,
		&job.CurrentStep, &job.Error, &narrative, &res, &createdAt, &startedAt, &completedAt)
	if err != nil {
		return nil, fmt.Errorf("scan job: %w", err)
	}
	if err := json.Unmarshal([]byte(narrative), &job.Narrative); err != nil {
		return nil, fmt.Errorf("decode narrative of %s: %w", job.ID, err)
	}
	if err := json.Unmarshal([]byte(res), &job.Result); err != nil {
		return nil, fmt.Errorf("decode result of %s: %w", job.ID, err)
	}
	job.Stage = types.Stage(stage)
	job.CreatedAt = time.Unix(0, createdAt).UTC()
	job.StartedAt = decodeTime(startedAt)
	job.CompletedAt = decodeTime(completedAt)
	return &job, nil
}

func statusStrings(statuses []types.ContentStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

func encodeTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UnixNano()
}

func decodeTime(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.Unix(0, v.Int64).UTC()
	return &t
}

func encodeJSON(v any) (any, error) {
	switch x := v.(type) {
	case *types.ResearchPayload:
		if x == nil {
			return nil, nil
		}
	case *types.Draft:
		if x == nil {
			return nil, nil
		}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
