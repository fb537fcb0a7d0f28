package repository

import (
	"context"

	"github.com/google/uuid"
)

// ProcessingJob is a single request to run the processing pipeline for one
// video. The pipeline consumes it exactly once per delivery; retry and
// scheduling decisions belong to the queue, not the pipeline.
type ProcessingJob struct {
	VideoID    uuid.UUID `json:"video_id"`
	RetryCount int       `json:"retry_count"`
}

// MessageQueue defines the interface for message queue operations.
// Implementations should be provided by the infrastructure layer (e.g., RabbitMQ).
type MessageQueue interface {
	// PublishProcessingJob enqueues a processing job.
	// Called by the API server at the end of the upload flow.
	PublishProcessingJob(ctx context.Context, job ProcessingJob) error

	// ConsumeProcessingJobs starts consuming jobs from the queue and invokes
	// the handler once per delivery. Returns when the context is cancelled
	// or the underlying channel closes. Used by the worker service.
	ConsumeProcessingJobs(ctx context.Context, handler func(job ProcessingJob) error) error

	// Close gracefully closes the connection to the message queue.
	Close() error
}
