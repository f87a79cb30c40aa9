package heatmap

import (
	"context"
	"fmt"
	"image/color"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compresslab/compressor/src/handle"
	"github.com/compresslab/compressor/src/job"
	"github.com/compresslab/compressor/src/media"
)

type fakeSource struct {
	mtx     sync.Mutex
	run     int
	orig    []byte
	results []job.CompressResult
}

func (f *fakeSource) Pair(jobID string, index int) (job.Pair, error) {
	f.mtx.Lock()
	defer f.mtx.Unlock()

	if jobID != "job" {
		return job.Pair{}, fmt.Errorf("job not found")
	}
	if index < 0 || index >= len(f.results) {
		return job.Pair{}, fmt.Errorf("result not found")
	}

	return job.Pair{JobID: jobID, Index: index, Run: f.run, Original: f.orig, Result: f.results[index]}, nil
}

func (f *fakeSource) AttachHeatmap(jobID string, run, index int, h handle.Handle) (handle.Handle, error) {
	f.mtx.Lock()
	defer f.mtx.Unlock()

	if run != f.run {
		return "", fmt.Errorf("stale")
	}
	if f.results[index].Heatmap == "" {
		f.results[index].Heatmap = h
	}

	return f.results[index].Heatmap, nil
}

func (f *fakeSource) requeue() {
	f.mtx.Lock()
	defer f.mtx.Unlock()

	f.run++
	for i := range f.results {
		f.results[i].Heatmap = ""
	}
}

func newSource(t *testing.T) *fakeSource {
	orig := encode(t, fill(20, 20, color.NRGBA{50, 50, 50, 255}))
	comp := encode(t, fill(20, 20, color.NRGBA{60, 50, 50, 255}))

	return &fakeSource{
		orig: orig,
		results: []job.CompressResult{
			{Format: media.WEBP, Data: comp},
			{Format: media.JPEG, Data: comp},
		},
	}
}

func TestRequestIsMemoized(t *testing.T) {
	src := newSource(t)
	handles := handle.NewStore()
	e := New(src, handles)

	h1, err := e.Request(context.Background(), "job", 0)
	require.NoError(t, err)
	assert.NotEmpty(t, h1)
	assert.Equal(t, int64(1), e.Computations())

	h2, err := e.Request(context.Background(), "job", 0)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
	assert.Equal(t, int64(1), e.Computations())

	data, mime, ok := handles.Get(h1)
	require.True(t, ok)
	assert.Equal(t, "image/png", mime)
	assert.NotEmpty(t, data)

	// distinct results are computed independently
	h3, err := e.Request(context.Background(), "job", 1)
	require.NoError(t, err)
	assert.NotEqual(t, h1, h3)
	assert.Equal(t, int64(2), e.Computations())

	assert.Equal(t, h1, src.results[0].Heatmap)
	assert.Equal(t, 2, handles.Len())
}

func TestRequestUsesAttachedHeatmap(t *testing.T) {
	src := newSource(t)
	src.results[0].Heatmap = "blob:existing"
	e := New(src, handle.NewStore())

	h, err := e.Request(context.Background(), "job", 0)
	require.NoError(t, err)
	assert.Equal(t, handle.Handle("blob:existing"), h)
	assert.Equal(t, int64(0), e.Computations())
}

func TestRequestBusy(t *testing.T) {
	src := newSource(t)
	e := New(src, handle.NewStore())

	started := make(chan struct{})
	release := make(chan struct{})
	e.render = func(original, compressed []byte) ([]byte, error) {
		close(started)
		<-release
		return Compute(original, compressed)
	}

	done := make(chan error, 1)
	go func() {
		_, err := e.Request(context.Background(), "job", 0)
		done <- err
	}()

	<-started
	assert.True(t, e.Busy("job", 0))
	assert.False(t, e.Busy("job", 1))

	_, err := e.Request(context.Background(), "job", 0)
	assert.ErrorIs(t, err, ErrBusy)

	close(release)
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("request did not finish")
	}

	assert.False(t, e.Busy("job", 0))
	assert.Equal(t, int64(1), e.Computations())
}

func TestRequestFailureIsRetryable(t *testing.T) {
	src := newSource(t)
	src.results[0].Data = []byte("corrupt")
	handles := handle.NewStore()
	e := New(src, handles)

	_, err := e.Request(context.Background(), "job", 0)
	assert.Error(t, err)
	assert.False(t, e.Busy("job", 0))
	assert.Equal(t, 0, handles.Len())

	src.results[0].Data = src.results[1].Data
	_, err = e.Request(context.Background(), "job", 0)
	assert.NoError(t, err)
}

func TestRequestAfterRequeue(t *testing.T) {
	src := newSource(t)
	e := New(src, handle.NewStore())

	h1, err := e.Request(context.Background(), "job", 0)
	require.NoError(t, err)

	src.requeue()

	h2, err := e.Request(context.Background(), "job", 0)
	require.NoError(t, err)
	assert.NotEqual(t, h1, h2)
	assert.Equal(t, int64(2), e.Computations())
}

func TestRequestUnknownPair(t *testing.T) {
	e := New(newSource(t), handle.NewStore())

	_, err := e.Request(context.Background(), "job", 9)
	assert.Error(t, err)
	_, err = e.Request(context.Background(), "other", 0)
	assert.Error(t, err)
	assert.Equal(t, int64(0), e.Computations())
}

func TestRequestCanceledContext(t *testing.T) {
	e := New(newSource(t), handle.NewStore())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Request(ctx, "job", 0)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, e.Busy("job", 0))
}

func TestForget(t *testing.T) {
	src := newSource(t)
	e := New(src, handle.NewStore())

	_, err := e.Request(context.Background(), "job", 0)
	require.NoError(t, err)

	e.Forget("job")
	src.results[0].Heatmap = ""

	_, err = e.Request(context.Background(), "job", 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), e.Computations())
}
