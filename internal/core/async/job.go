package async

import (
	"context"
	"errors"
	"time"
)

// Job is one image waiting for extraction.
type Job struct {
	Path        string
	ContentHash string // hex SHA-256, empty when unknown
	Force       bool   // process even if the hash was seen before
	SubmittedAt time.Time
	TraceID     string
}

var ErrQueueClosed = errors.New("queue is shutting down")

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}
