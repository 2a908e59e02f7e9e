package types

import "time"

// Stage represents the job state machine
type Stage string

const (
	StagePending         Stage = "pending"
	StageResearching     Stage = "researching"
	StageWriting         Stage = "writing"
	StageGeneratingImage Stage = "generating_image"
	StagePublishing      Stage = "publishing"
	StageCompleted       Stage = "completed"
	StageFailed          Stage = "failed"
)

// Terminal reports whether no further transition is allowed from s.
func (s Stage) Terminal() bool {
	return s == StageCompleted || s == StageFailed
}

// LogEntry represents a single narrative line with timestamp
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
}

// JobResult carries the artifacts produced by a pipeline run.
// Empty fields mean the artifact was not produced.
type JobResult struct {
	ContentID        string `json:"content_id,omitempty"`
	FeaturedImageURL string `json:"featured_image_url,omitempty"`
	PublishedPostID  string `json:"published_post_id,omitempty"`
	PublishedURL     string `json:"published_url,omitempty"`
}

// Job is one pipeline run for one content item
type Job struct {
	ID            string     `json:"id"`
	ContentItemID string     `json:"content_item_id"`
	OwnerID       string     `json:"owner_id"`
	Stage         Stage      `json:"stage"`
	Progress      int        `json:"progress"`
	CurrentStep   string     `json:"current_step"`
	Error         string     `json:"error,omitempty"`
	Narrative     []LogEntry `json:"narrative"`
	Result        JobResult  `json:"result"`
	CreatedAt     time.Time  `json:"created_at"`
	StartedAt     *time.Time `json:"started_at,omitempty"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
}

// Clone returns a deep copy safe to hand to concurrent readers
func (j *Job) Clone() *Job {
	if j == nil {
		return nil
	}
	out := *j
	out.Narrative = append([]LogEntry(nil), j.Narrative...)
	if j.StartedAt != nil {
		t := *j.StartedAt
		out.StartedAt = &t
	}
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		out.CompletedAt = &t
	}
	return &out
}

// GenerationRequest is the trigger message consumed from the queue
type GenerationRequest struct {
	ContentItemID string `json:"content_item_id"`
	OwnerID       string `json:"owner_id"`
}
