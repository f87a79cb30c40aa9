package task

import (
	"context"
	"fmt"
	"runtime/debug"
	"sort"
	"sync"

	"github.com/hashicorp/go-multierror"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"

	"github.com/compresslab/compressor/src/handle"
	"github.com/compresslab/compressor/src/job"
	"github.com/compresslab/compressor/src/media"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var ErrPanic = fmt.Errorf("pipeline panicked")

// Detector reports whether an image carries transparency.
type Detector func(data []byte, mediaType media.Type) bool

// Outcome is what a finished pipeline hands back to the scheduler.
type Outcome struct {
	HasAlpha bool
	Results  []job.CompressResult
}

// Task runs a single job snapshot through alpha detection and the format
// fan-out. It never touches scheduler state.
type Task struct {
	job     job.Job
	worker  *Compressor
	detect  Detector
	handles *handle.Store
}

func NewTask(j job.Job, worker *Compressor, detect Detector, handles *handle.Store) *Task {
	return &Task{
		job:     j,
		worker:  worker,
		detect:  detect,
		handles: handles,
	}
}

func (t *Task) Run(ctx context.Context) (out Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			logrus.WithField("job_id", t.job.ID).Errorf("panic in pipeline: %v\n%s", r, debug.Stack())
			t.release(out.Results)
			out.Results = nil
			err = fmt.Errorf("%w: %v", ErrPanic, r)
		}
	}()

	out.HasAlpha = t.detect(t.job.Data, t.job.MediaType)

	formats := RequiredFormats(out.HasAlpha, t.job.Settings)
	if len(formats) == 0 {
		return out, nil
	}

	results, err := t.fanOut(ctx, formats, out.HasAlpha)
	if err != nil {
		t.release(results)
		return out, err
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Size < results[j].Size
	})
	out.Results = results

	return out, nil
}

func (t *Task) fanOut(ctx context.Context, formats []media.Type, hasAlpha bool) ([]job.CompressResult, error) {
	errCh := make(chan error)
	resultCh := make(chan job.CompressResult)

	wg := sync.WaitGroup{}
	for _, f := range formats {
		wg.Add(1)
		go func(f media.Type) {
			defer wg.Done()
			res, err := t.compress(ctx, f, hasAlpha)
			if err != nil {
				errCh <- err
				return
			}
			resultCh <- res
		}(f)
	}

	go func() {
		wg.Wait()
		close(errCh)
		close(resultCh)
	}()

	wg2 := sync.WaitGroup{}
	wg2.Add(2)

	var err error
	results := make([]job.CompressResult, 0, len(formats))

	go func() {
		defer wg2.Done()
		for e := range errCh {
			err = multierror.Append(err, e).ErrorOrNil()
		}
	}()

	go func() {
		defer wg2.Done()
		for r := range resultCh {
			results = append(results, r)
		}
	}()

	wg2.Wait()

	return results, err
}

func (t *Task) compress(ctx context.Context, f media.Type, hasAlpha bool) (res job.CompressResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %s: %v", ErrPanic, f, r)
		}
	}()

	return t.worker.Compress(ctx, Request{
		Data:         t.job.Data,
		Format:       f,
		Quality:      t.job.Preset.Quality(f),
		MaxLongEdge:  t.job.Settings.MaxDimension,
		OriginalSize: t.job.Size,
		KeepAlpha:    hasAlpha && f.SupportsAlpha(),
	})
}

func (t *Task) release(results []job.CompressResult) {
	for _, r := range results {
		t.handles.Release(r.Handle, r.Heatmap)
	}
}
