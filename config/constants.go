package config

import "time"

// Pipeline progress checkpoints (percent)
const (
	ProgressLoaded     = 5
	ProgressResearch   = 15
	ProgressWrite      = 35
	ProgressImage      = 60
	ProgressSave       = 75
	ProgressPublish    = 85
	ProgressNotify     = 95
	ProgressDone       = 100
	MaxNarrativeLength = 50
)

// Resilience defaults
const (
	// ResearchTTL is how long research attached to a content item stays fresh
	ResearchTTL = 24 * time.Hour

	// DefaultCallTimeout bounds every external provider call
	DefaultCallTimeout = 45 * time.Second

	// MinResearchLength is the shortest research summary a cascade accepts
	MinResearchLength = 200

	// MinContentLength is the shortest article body a cascade accepts
	MinContentLength = 500

	// ImageRetryAttempts and ImageRetryBaseDelay shape image synthesis retries
	ImageRetryAttempts  = 3
	ImageRetryBaseDelay = time.Second

	// FinalizeTimeout bounds the terminal job and item writes, which run
	// even after the caller's context is cancelled
	FinalizeTimeout = 10 * time.Second
)

// Trigger defaults
const (
	// DefaultCronSchedule checks for due items every five minutes
	DefaultCronSchedule = "*/5 * * * *"

	// MaxConcurrentJobs limits pipelines run by a single trigger
	MaxConcurrentJobs = 3

	// DispatchBuffer is the queue depth of the background telemetry dispatcher
	DispatchBuffer = 256
)

// Kafka defaults
const (
	KafkaTopicGenerationRequests = "content-generation-requests"
	KafkaTopicUsageEvents        = "content-usage-events"
	KafkaConsumerGroupID         = "contentpilot-consumer-group"
)
