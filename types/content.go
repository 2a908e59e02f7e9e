package types

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// ContentStatus is the lifecycle status of a backlog item
type ContentStatus string

const (
	StatusIdea       ContentStatus = "idea"
	StatusScheduled  ContentStatus = "scheduled"
	StatusGenerating ContentStatus = "generating"
	StatusCompleted  ContentStatus = "completed"
	StatusFailed     ContentStatus = "failed"
)

// Generated reports whether the item already went through the pipeline.
// Generated items are never moved by the scheduler.
func (s ContentStatus) Generated() bool {
	return s == StatusGenerating || s == StatusCompleted
}

// ContentItem represents a single content idea in a project's backlog
type ContentItem struct {
	ID              string        `json:"id"`
	ProjectID       string        `json:"project_id"`
	Title           string        `json:"title"`
	Keywords        []string      `json:"keywords,omitempty"`
	TargetWordCount int           `json:"target_word_count"`
	Tone            string        `json:"tone,omitempty"`
	Priority        int           `json:"priority"`
	QualityScore    float64       `json:"quality_score"`
	Status          ContentStatus `json:"status"`
	ScheduledFor    *time.Time    `json:"scheduled_for,omitempty"`

	// Cached research, reused while younger than the research TTL
	ResearchData *ResearchPayload `json:"research_data,omitempty"`
	ResearchedAt *time.Time       `json:"researched_at,omitempty"`

	GeneratedContent *Draft     `json:"generated_content,omitempty"`
	GeneratedAt      *time.Time `json:"generated_at,omitempty"`
	PublishedAt      *time.Time `json:"published_at,omitempty"`
	PublishedURL     string     `json:"published_url,omitempty"`

	Recurring RecurringMeta `json:"recurring"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RecurringMeta tracks repeated runs of the same idea
type RecurringMeta struct {
	Frequency Frequency  `json:"frequency,omitempty"`
	LastRun   *time.Time `json:"last_run,omitempty"`
	NextRun   *time.Time `json:"next_run,omitempty"`
	RunCount  int        `json:"run_count"`
}

// Project owns a backlog and the schedule its items are published on
type Project struct {
	ID            string       `json:"id"`
	OwnerID       string       `json:"owner_id"`
	Name          string       `json:"name"`
	Schedule      ScheduleSpec `json:"schedule"`
	NotifyContact string       `json:"notify_contact,omitempty"`
	PublishStatus string       `json:"publish_status,omitempty"` // "draft" or "publish"
	CreatedAt     time.Time    `json:"created_at"`
}

// ResearchPayload is the normalized output of a research provider
type ResearchPayload struct {
	Summary        string   `json:"summary"`
	KeyPoints      []string `json:"key_points,omitempty"`
	Statistics     []string `json:"statistics,omitempty"`
	Sources        []string `json:"sources,omitempty"`
	RelatedQueries []string `json:"related_queries,omitempty"`
}

// FAQEntry is a single question/answer pair of a generated article
type FAQEntry struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Draft is the normalized output of a writer provider
type Draft struct {
	Title           string     `json:"title"`
	Content         string     `json:"content"`
	MetaDescription string     `json:"meta_description,omitempty"`
	Headings        []string   `json:"headings,omitempty"`
	FAQ             []FAQEntry `json:"faq,omitempty"`
	WordCount       int        `json:"word_count"`
}

// GenerateID creates a short, stable ID by hashing the provided string input
func GenerateID(input string) string {
	hash := sha256.Sum256([]byte(input))
	return hex.EncodeToString(hash[:])[:16]
}

// Clone returns a copy that shares no mutable state with c
func (c *ContentItem) Clone() *ContentItem {
	if c == nil {
		return nil
	}
	out := *c
	out.Keywords = append([]string(nil), c.Keywords...)
	out.ScheduledFor = cloneTime(c.ScheduledFor)
	out.ResearchedAt = cloneTime(c.ResearchedAt)
	out.GeneratedAt = cloneTime(c.GeneratedAt)
	out.PublishedAt = cloneTime(c.PublishedAt)
	out.Recurring.LastRun = cloneTime(c.Recurring.LastRun)
	out.Recurring.NextRun = cloneTime(c.Recurring.NextRun)
	out.ResearchData = c.ResearchData.Clone()
	out.GeneratedContent = c.GeneratedContent.Clone()
	return &out
}

// Clone returns a copy with its own slices
func (r *ResearchPayload) Clone() *ResearchPayload {
	if r == nil {
		return nil
	}
	out := *r
	out.KeyPoints = append([]string(nil), r.KeyPoints...)
	out.Statistics = append([]string(nil), r.Statistics...)
	out.Sources = append([]string(nil), r.Sources...)
	out.RelatedQueries = append([]string(nil), r.RelatedQueries...)
	return &out
}

// Clone returns a copy with its own slices
func (d *Draft) Clone() *Draft {
	if d == nil {
		return nil
	}
	out := *d
	out.Headings = append([]string(nil), d.Headings...)
	out.FAQ = append([]FAQEntry(nil), d.FAQ...)
	return &out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// Clone returns a copy of the project with its own weekday slice
func (p *Project) Clone() *Project {
	if p == nil {
		return nil
	}
	out := *p
	out.Schedule.DaysOfWeek = append([]time.Weekday(nil), p.Schedule.DaysOfWeek...)
	return &out
}
