package constant

const (
	// Event type codes published on the knowledge stream.
	EventLearningEventsCreated = "LEARNING_EVENTS_CREATED"
	EventKnowledgeBaseEnriched = "KB_ENRICHED"

	// Internal pub/sub topics for the fire-and-forget recorder channel.
	TopicRecordAudit   = "record_audit"
	TopicRecordMetrics = "record_metrics"

	// Metric record types stored under extractedKnowledge.metrics.
	MetricTypeExtraction  = "extraction"
	MetricTypeApplication = "application"
	MetricTypeQuality     = "quality"

	// Retention caps inside the knowledge-base side channel. Oldest entries
	// roll off first.
	MaxFieldHistoryEntries = 10
	MaxMetricEntries       = 100

	// Dedup lookback for event creation. Older duplicates are allowed to
	// reappear: the claim may genuinely recur and its confidence re-earns.
	DedupWindowDays = 30

	// Default page size for application runs.
	DefaultApplyBatchSize = 100

	// Default confidence floor for application runs.
	DefaultMinConfidence = 80
)
