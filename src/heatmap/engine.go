package heatmap

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/compresslab/compressor/src/handle"
	"github.com/compresslab/compressor/src/job"
)

var ErrBusy = fmt.Errorf("heatmap is being computed")

type source interface {
	Pair(jobID string, index int) (job.Pair, error)
	AttachHeatmap(jobID string, run, index int, h handle.Handle) (handle.Handle, error)
}

type state int

const (
	absent state = iota
	inProgress
	ready
)

type key struct {
	jobID string
	index int
}

type entry struct {
	state  state
	run    int
	handle handle.Handle
}

// Engine computes heatmaps on demand and remembers them per (job, result).
// Only the engine writes to its memo.
type Engine struct {
	src     source
	handles *handle.Store
	render  func(original, compressed []byte) ([]byte, error)

	mtx  sync.Mutex
	memo map[key]*entry

	computations atomic.Int64
}

func New(src source, handles *handle.Store) *Engine {
	return &Engine{
		src:     src,
		handles: handles,
		render:  Compute,
		memo:    map[key]*entry{},
	}
}

// Busy reports whether the heatmap for the pair is currently being computed.
func (e *Engine) Busy(jobID string, index int) bool {
	e.mtx.Lock()
	defer e.mtx.Unlock()

	ent, ok := e.memo[key{jobID, index}]
	return ok && ent.state == inProgress
}

// Forget drops every memo entry of a job, typically after it was removed.
func (e *Engine) Forget(jobID string) {
	e.mtx.Lock()
	defer e.mtx.Unlock()

	for k := range e.memo {
		if k.jobID == jobID {
			delete(e.memo, k)
		}
	}
}

// Computations counts full heatmap computations performed so far.
func (e *Engine) Computations() int64 {
	return e.computations.Load()
}

// Request returns the heatmap handle for the pair, computing it on first use.
// A request that arrives while the same pair is computing gets ErrBusy.
func (e *Engine) Request(ctx context.Context, jobID string, index int) (handle.Handle, error) {
	pair, err := e.src.Pair(jobID, index)
	if err != nil {
		return "", err
	}

	k := key{jobID, index}

	e.mtx.Lock()
	if ent, ok := e.memo[k]; ok && ent.run == pair.Run {
		switch ent.state {
		case ready:
			e.mtx.Unlock()
			return ent.handle, nil
		case inProgress:
			e.mtx.Unlock()
			return "", ErrBusy
		}
	}
	if pair.Result.Heatmap != "" {
		e.memo[k] = &entry{state: ready, run: pair.Run, handle: pair.Result.Heatmap}
		e.mtx.Unlock()
		return pair.Result.Heatmap, nil
	}
	ent := &entry{state: inProgress, run: pair.Run}
	e.memo[k] = ent
	e.mtx.Unlock()

	h, err := e.compute(ctx, pair)

	e.mtx.Lock()
	defer e.mtx.Unlock()

	if err != nil {
		if e.memo[k] == ent {
			delete(e.memo, k)
		}
		return "", err
	}

	ent.state = ready
	ent.handle = h

	return h, nil
}

func (e *Engine) compute(ctx context.Context, pair job.Pair) (handle.Handle, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	data, err := e.render(pair.Original, pair.Result.Data)
	e.computations.Add(1)
	if err != nil {
		return "", err
	}

	h := e.handles.New(data, "image/png")

	attached, err := e.src.AttachHeatmap(pair.JobID, pair.Run, pair.Index, h)
	if err != nil {
		e.handles.Release(h)
		return "", err
	}
	if attached != h {
		e.handles.Release(h)
	}

	logrus.WithFields(logrus.Fields{
		"job_id": pair.JobID,
		"index":  pair.Index,
		"format": pair.Result.Format,
	}).Debug("heatmap ready")

	return attached, nil
}
