package task

import (
	"time"

	"github.com/compresslab/compressor/src/job"
)

type TaskEvent struct {
	JobID     string        `json:"job_id"`
	Type      TaskEventType `json:"type"`
	Status    job.Status    `json:"status"`
	Error     string        `json:"error,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

type TaskEventType string

const (
	Queued    TaskEventType = "queued"
	Started   TaskEventType = "started"
	Completed TaskEventType = "completed"
	Failed    TaskEventType = "failed"
	Canceled  TaskEventType = "canceled"
	Removed   TaskEventType = "removed"
	Discarded TaskEventType = "discarded"
)
