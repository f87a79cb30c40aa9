package task

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/compresslab/compressor/src/alpha"
	"github.com/compresslab/compressor/src/handle"
	"github.com/compresslab/compressor/src/job"
)

var (
	ErrJobNotFound    = fmt.Errorf("job not found")
	ErrResultNotFound = fmt.Errorf("result not found")
	ErrNotCancelable  = fmt.Errorf("job is not cancelable")
	ErrStaleResult    = fmt.Errorf("result is stale")
)

const DefaultPollInterval = 50 * time.Millisecond

// Tracker is notified of pipelines in flight so shutdown can wait on them.
type Tracker interface {
	AddTask(n int)
	DoneTask()
}

type Options struct {
	Codec        Codec
	Handles      *handle.Store
	Detect       Detector
	Settings     job.Settings
	Preset       job.Preset
	PollInterval time.Duration
	Tracker      Tracker
}

// Scheduler owns every job and admits at most Settings.Concurrency of them
// into processing at once. Callers only ever see copies.
type Scheduler struct {
	ctx context.Context

	mtx      sync.Mutex
	jobs     []*job.Job
	index    map[string]*job.Job
	settings job.Settings
	preset   job.Preset
	running  bool
	subs     []func(TaskEvent)

	worker   *Compressor
	detect   Detector
	handles  *handle.Store
	interval time.Duration
	tracker  Tracker
}

func NewScheduler(ctx context.Context, opts Options) (*Scheduler, error) {
	if opts.Codec == nil {
		return nil, fmt.Errorf("scheduler requires a codec")
	}
	if err := opts.Settings.Validate(); err != nil {
		return nil, err
	}
	if opts.Preset.Name == "" {
		p, err := job.PresetByName(job.DefaultPreset)
		if err != nil {
			return nil, err
		}
		opts.Preset = p
	}
	if opts.Handles == nil {
		opts.Handles = handle.NewStore()
	}
	if opts.Detect == nil {
		opts.Detect = alpha.Detect
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}

	return &Scheduler{
		ctx:      ctx,
		index:    map[string]*job.Job{},
		settings: opts.Settings,
		preset:   opts.Preset,
		worker:   NewCompressor(opts.Codec, opts.Handles),
		detect:   opts.Detect,
		handles:  opts.Handles,
		interval: opts.PollInterval,
		tracker:  opts.Tracker,
	}, nil
}

// Subscribe registers fn for every lifecycle event. fn is called outside the
// scheduler lock and must not block for long.
func (s *Scheduler) Subscribe(fn func(TaskEvent)) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	s.subs = append(s.subs, fn)
}

func (s *Scheduler) emit(events ...TaskEvent) {
	s.mtx.Lock()
	subs := append([]func(TaskEvent){}, s.subs...)
	s.mtx.Unlock()

	for _, e := range events {
		for _, fn := range subs {
			fn(e)
		}
	}
}

func event(j *job.Job, t TaskEventType) TaskEvent {
	return TaskEvent{
		JobID:     j.ID,
		Type:      t,
		Status:    j.Status,
		Error:     j.Error,
		Timestamp: time.Now(),
	}
}

// Enqueue adds one queued job per input, in order, and returns their ids.
func (s *Scheduler) Enqueue(inputs ...job.Input) []string {
	ids := make([]string, 0, len(inputs))
	events := make([]TaskEvent, 0, len(inputs))

	s.mtx.Lock()
	for _, in := range inputs {
		j := &job.Job{
			ID:        uuid.NewString(),
			Name:      in.Name,
			MediaType: in.MediaType,
			Data:      in.Data,
			Size:      len(in.Data),
			Original:  s.handles.New(in.Data, in.MediaType.MIME()),
			Status:    job.StatusQueued,
			Settings:  s.settings,
			Preset:    s.preset,
		}
		s.jobs = append(s.jobs, j)
		s.index[j.ID] = j
		ids = append(ids, j.ID)
		events = append(events, event(j, Queued))
	}
	s.mtx.Unlock()

	s.emit(events...)
	s.kick()

	return ids
}

// kick starts the dispatch loop unless one is already running.
func (s *Scheduler) kick() {
	s.mtx.Lock()
	if s.running {
		s.mtx.Unlock()
		return
	}
	s.running = true
	s.mtx.Unlock()

	go s.loop()
}

func (s *Scheduler) loop() {
	released := false
	defer func() {
		if r := recover(); r != nil {
			logrus.Errorf("scheduler loop panicked: %v", r)
		}
		if !released {
			s.mtx.Lock()
			s.running = false
			s.mtx.Unlock()
		}
	}()

	for {
		if s.ctx.Err() != nil {
			return
		}

		s.mtx.Lock()
		if s.countLocked(job.StatusProcessing) >= s.settings.Concurrency {
			s.mtx.Unlock()

			select {
			case <-s.ctx.Done():
				return
			case <-time.After(s.interval):
			}
			continue
		}

		j := s.nextQueuedLocked()
		if j == nil {
			// cleared under the same lock Enqueue takes, so no arrival is missed
			s.running = false
			released = true
			s.mtx.Unlock()
			return
		}

		now := time.Now()
		j.Status = job.StatusProcessing
		j.StartedAt = &now
		j.EndedAt = nil
		j.Error = ""
		j.Results = nil
		snapshot := j.Clone()
		started := event(j, Started)
		s.mtx.Unlock()

		if s.tracker != nil {
			s.tracker.AddTask(1)
		}

		s.emit(started)
		logrus.WithFields(logrus.Fields{
			"job_id": snapshot.ID,
			"name":   snapshot.Name,
		}).Debug("starting job")

		go s.process(snapshot)
	}
}

func (s *Scheduler) countLocked(status job.Status) int {
	n := 0
	for _, j := range s.jobs {
		if j.Status == status {
			n++
		}
	}

	return n
}

func (s *Scheduler) nextQueuedLocked() *job.Job {
	for _, j := range s.jobs {
		if j.Status == job.StatusQueued {
			return j
		}
	}

	return nil
}

func (s *Scheduler) process(snapshot job.Job) {
	if s.tracker != nil {
		defer s.tracker.DoneTask()
	}

	out, err := NewTask(snapshot, s.worker, s.detect, s.handles).Run(s.ctx)
	s.complete(snapshot.ID, snapshot.Run, out, err)
}

// complete stores a pipeline outcome. Outcomes for jobs that were removed or
// requeued since dispatch are dropped. A canceled job is overwritten.
func (s *Scheduler) complete(id string, run int, out Outcome, err error) {
	s.mtx.Lock()
	j, ok := s.index[id]
	if !ok || j.Run != run {
		s.mtx.Unlock()

		for _, r := range out.Results {
			s.handles.Release(r.Handle, r.Heatmap)
		}
		logrus.WithField("job_id", id).Debug("discarding stale result")
		s.emit(TaskEvent{JobID: id, Type: Discarded, Timestamp: time.Now()})
		return
	}

	now := time.Now()
	hasAlpha := out.HasAlpha
	j.HasAlpha = &hasAlpha
	j.EndedAt = &now

	var e TaskEvent
	if err != nil {
		j.Status = job.StatusError
		j.Error = err.Error()
		j.Results = nil
		e = event(j, Failed)
	} else {
		j.Status = job.StatusDone
		j.Error = ""
		j.Results = out.Results
		e = event(j, Completed)
	}
	s.mtx.Unlock()

	l := logrus.WithFields(logrus.Fields{
		"job_id":  id,
		"results": len(out.Results),
	})
	if err != nil {
		l.WithError(err).Warn("job failed")
	} else {
		l.Debug("job done")
	}

	s.emit(e)
}

// Cancel marks a queued or processing job canceled. Work already in flight
// keeps running and will still record its outcome.
func (s *Scheduler) Cancel(id string) error {
	s.mtx.Lock()
	j, ok := s.index[id]
	if !ok {
		s.mtx.Unlock()
		return ErrJobNotFound
	}
	if j.Status != job.StatusQueued && j.Status != job.StatusProcessing {
		s.mtx.Unlock()
		return fmt.Errorf("%w: %s", ErrNotCancelable, j.Status)
	}
	j.Status = job.StatusCanceled
	e := event(j, Canceled)
	s.mtx.Unlock()

	s.emit(e)

	return nil
}

// Remove drops a job and releases every handle it owns.
func (s *Scheduler) Remove(id string) error {
	s.mtx.Lock()
	j, ok := s.index[id]
	if !ok {
		s.mtx.Unlock()
		return ErrJobNotFound
	}
	delete(s.index, id)
	for i, v := range s.jobs {
		if v == j {
			s.jobs = append(s.jobs[:i], s.jobs[i+1:]...)
			break
		}
	}
	e := event(j, Removed)
	s.mtx.Unlock()

	s.release(j)
	s.emit(e)

	return nil
}

// Clear removes every job.
func (s *Scheduler) Clear() {
	s.mtx.Lock()
	jobs := s.jobs
	s.jobs = nil
	s.index = map[string]*job.Job{}
	s.mtx.Unlock()

	events := make([]TaskEvent, 0, len(jobs))
	for _, j := range jobs {
		s.release(j)
		events = append(events, event(j, Removed))
	}

	s.emit(events...)
}

func (s *Scheduler) release(j *job.Job) {
	s.handles.Release(j.Original)
	s.handles.Release(j.Handles()...)
}

// Recompress requeues every job that is not processing under the current
// settings and preset. It returns how many jobs were requeued.
func (s *Scheduler) Recompress() int {
	var (
		stale  []handle.Handle
		events []TaskEvent
	)

	s.mtx.Lock()
	for _, j := range s.jobs {
		if j.Status == job.StatusProcessing {
			continue
		}
		stale = append(stale, j.Handles()...)

		j.Status = job.StatusQueued
		j.Results = nil
		j.HasAlpha = nil
		j.StartedAt = nil
		j.EndedAt = nil
		j.Error = ""
		j.Settings = s.settings
		j.Preset = s.preset
		j.Run++
		events = append(events, event(j, Queued))
	}
	s.mtx.Unlock()

	s.handles.Release(stale...)
	s.emit(events...)
	if len(events) > 0 {
		s.kick()
	}

	return len(events)
}

func (s *Scheduler) SetSettings(settings job.Settings) error {
	if err := settings.Validate(); err != nil {
		return err
	}

	s.mtx.Lock()
	defer s.mtx.Unlock()

	s.settings = settings

	return nil
}

func (s *Scheduler) Settings() job.Settings {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	return s.settings
}

func (s *Scheduler) SetPreset(name string) error {
	p, err := job.PresetByName(name)
	if err != nil {
		return err
	}

	s.mtx.Lock()
	defer s.mtx.Unlock()

	s.preset = p

	return nil
}

func (s *Scheduler) Preset() job.Preset {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	return s.preset
}

// Jobs returns snapshots of every job in arrival order.
func (s *Scheduler) Jobs() []job.Job {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	out := make([]job.Job, len(s.jobs))
	for i, j := range s.jobs {
		out[i] = j.Clone()
	}

	return out
}

func (s *Scheduler) Job(id string) (job.Job, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	j, ok := s.index[id]
	if !ok {
		return job.Job{}, ErrJobNotFound
	}

	return j.Clone(), nil
}

// Pair returns the original bytes with result index of a done job.
func (s *Scheduler) Pair(id string, index int) (job.Pair, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	j, ok := s.index[id]
	if !ok {
		return job.Pair{}, ErrJobNotFound
	}
	if index < 0 || index >= len(j.Results) {
		return job.Pair{}, ErrResultNotFound
	}

	return job.Pair{
		JobID:    j.ID,
		Index:    index,
		Run:      j.Run,
		Original: j.Data,
		Result:   j.Results[index],
	}, nil
}

// AttachHeatmap stores h on a result unless one is already present, and returns
// the handle that ends up attached.
func (s *Scheduler) AttachHeatmap(id string, run, index int, h handle.Handle) (handle.Handle, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	j, ok := s.index[id]
	if !ok {
		return "", ErrJobNotFound
	}
	if j.Run != run || index < 0 || index >= len(j.Results) {
		return "", ErrStaleResult
	}

	r := &j.Results[index]
	if r.Heatmap == "" {
		r.Heatmap = h
	}

	return r.Heatmap, nil
}

// Idle reports whether no job is queued or processing.
func (s *Scheduler) Idle() bool {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	return s.countLocked(job.StatusQueued) == 0 && s.countLocked(job.StatusProcessing) == 0
}

// Wait blocks until the scheduler is idle or ctx is done.
func (s *Scheduler) Wait(ctx context.Context) error {
	for !s.Idle() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.interval):
		}
	}

	return nil
}
