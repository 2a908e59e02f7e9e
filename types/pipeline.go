package types

import "time"

// ResearchRequest asks a research provider about one topic
type ResearchRequest struct {
	Topic    string   `json:"topic"`
	Keywords []string `json:"keywords,omitempty"`
}

// WriteRequest carries everything a writer needs to draft an article
type WriteRequest struct {
	Title           string           `json:"title"`
	Keywords        []string         `json:"keywords,omitempty"`
	TargetWordCount int              `json:"target_word_count"`
	Tone            string           `json:"tone,omitempty"`
	Research        *ResearchPayload `json:"research,omitempty"`
}

// PublishRequest is a finished draft ready for the CMS
type PublishRequest struct {
	Title            string   `json:"title"`
	Content          string   `json:"content"`
	Excerpt          string   `json:"excerpt,omitempty"`
	Status           string   `json:"status"`
	FeaturedImageURL string   `json:"featured_image_url,omitempty"`
	Tags             []string `json:"tags,omitempty"`
}

// PublishResult identifies the published post
type PublishResult struct {
	PostID string `json:"post_id"`
	URL    string `json:"url"`
}

// UsageEvent records consumption of a generation run
type UsageEvent struct {
	JobID         string    `json:"job_id"`
	OwnerID       string    `json:"owner_id"`
	ContentItemID string    `json:"content_item_id"`
	Kind          string    `json:"kind"`
	Provider      string    `json:"provider,omitempty"`
	WordCount     int       `json:"word_count"`
	Degraded      bool      `json:"degraded"`
	Timestamp     time.Time `json:"timestamp"`
}
