package job

import (
	"time"

	"github.com/compresslab/compressor/src/handle"
	"github.com/compresslab/compressor/src/media"
)

type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusDone       Status = "done"
	StatusError      Status = "error"
	StatusCanceled   Status = "canceled"
)

// Input is a validated file ready to become a Job.
type Input struct {
	Name      string
	MediaType media.Type
	Data      []byte
}

type Job struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	MediaType media.Type    `json:"media_type"`
	Data      []byte        `json:"-"`
	Size      int           `json:"size"`
	Original  handle.Handle `json:"original"`

	Status    Status           `json:"status"`
	HasAlpha  *bool            `json:"has_alpha,omitempty"`
	Results   []CompressResult `json:"results"`
	StartedAt *time.Time       `json:"started_at,omitempty"`
	EndedAt   *time.Time       `json:"ended_at,omitempty"`
	Error     string           `json:"error,omitempty"`

	// Settings and Preset are captured when the job is (re)queued.
	Settings Settings `json:"settings"`
	Preset   Preset   `json:"preset"`
	// Run increases every time the job is requeued.
	Run int `json:"run"`
}

type CompressResult struct {
	Format    media.Type    `json:"format"`
	Quality   float64       `json:"quality"`
	Data      []byte        `json:"-"`
	Size      int           `json:"size"`
	Handle    handle.Handle `json:"handle"`
	Ratio     float64       `json:"ratio"`
	Elapsed   time.Duration `json:"elapsed"`
	KeepAlpha bool          `json:"keep_alpha"`
	Heatmap   handle.Handle `json:"heatmap,omitempty"`
}

// Pair is an original image together with one of its compressed results.
type Pair struct {
	JobID    string
	Index    int
	Run      int
	Original []byte
	Result   CompressResult
}

// Clone returns a copy that shares no mutable state with j.
func (j *Job) Clone() Job {
	c := *j

	if j.HasAlpha != nil {
		v := *j.HasAlpha
		c.HasAlpha = &v
	}
	if j.StartedAt != nil {
		v := *j.StartedAt
		c.StartedAt = &v
	}
	if j.EndedAt != nil {
		v := *j.EndedAt
		c.EndedAt = &v
	}
	if j.Results != nil {
		c.Results = append([]CompressResult(nil), j.Results...)
	}

	return c
}

// Handles returns every handle owned by the job's results.
func (j *Job) Handles() []handle.Handle {
	hs := make([]handle.Handle, 0, len(j.Results)*2)
	for _, r := range j.Results {
		hs = append(hs, r.Handle, r.Heatmap)
	}

	return hs
}

// Best is the smallest result, if any.
func (j *Job) Best() (CompressResult, bool) {
	if len(j.Results) == 0 {
		return CompressResult{}, false
	}

	return j.Results[0], true
}
