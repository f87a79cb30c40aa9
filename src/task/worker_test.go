package task

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compresslab/compressor/src/handle"
	"github.com/compresslab/compressor/src/job"
	"github.com/compresslab/compressor/src/media"
)

func TestCompressorResult(t *testing.T) {
	handles := handle.NewStore()
	w := NewCompressor(&fakeCodec{sizes: map[media.Type]int{media.WEBP: 25}}, handles)

	res, err := w.Compress(context.Background(), Request{
		Data:         make([]byte, 100),
		Format:       media.WEBP,
		Quality:      0.75,
		OriginalSize: 100,
		KeepAlpha:    true,
	})
	require.NoError(t, err)

	assert.Equal(t, media.WEBP, res.Format)
	assert.Equal(t, 25, res.Size)
	assert.Equal(t, 0.75, res.Ratio)
	assert.Equal(t, 0.75, res.Quality)
	assert.True(t, res.KeepAlpha)
	assert.Empty(t, res.Heatmap)
	assert.GreaterOrEqual(t, res.Elapsed.Nanoseconds(), int64(0))

	data, mime, ok := handles.Get(res.Handle)
	require.True(t, ok)
	assert.Equal(t, "image/webp", mime)
	assert.Len(t, data, 25)
}

func TestCompressorLargerOutput(t *testing.T) {
	w := NewCompressor(&fakeCodec{sizes: map[media.Type]int{media.JPEG: 150}}, handle.NewStore())

	res, err := w.Compress(context.Background(), Request{Format: media.JPEG, OriginalSize: 100})
	require.NoError(t, err)
	assert.Equal(t, 1-150.0/100.0, res.Ratio)
	assert.Less(t, res.Ratio, 0.0)
}

func TestCompressorFailure(t *testing.T) {
	handles := handle.NewStore()
	w := NewCompressor(&fakeCodec{fail: map[media.Type]error{media.JPEG: fmt.Errorf("boom")}}, handles)

	_, err := w.Compress(context.Background(), Request{Format: media.JPEG, OriginalSize: 10})
	assert.ErrorIs(t, err, ErrCompressionFailed)
	assert.Contains(t, err.Error(), "boom")
	assert.Equal(t, 0, handles.Len())
}

func TestRequiredFormats(t *testing.T) {
	cases := []struct {
		name     string
		alpha    bool
		jpeg     bool
		webp     bool
		expected []media.Type
	}{
		{"opaque both", false, true, true, []media.Type{media.JPEG, media.WEBP}},
		{"opaque jpeg", false, true, false, []media.Type{media.JPEG}},
		{"opaque webp", false, false, true, []media.Type{media.WEBP}},
		{"opaque none", false, false, false, []media.Type{}},
		{"alpha both", true, true, true, []media.Type{media.WEBP}},
		{"alpha jpeg only", true, true, false, []media.Type{}},
		{"alpha webp", true, false, true, []media.Type{media.WEBP}},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			s := job.Settings{EnableJPEG: c.jpeg, EnableWebP: c.webp}
			assert.Equal(t, c.expected, RequiredFormats(c.alpha, s))
		})
	}
}

func TestTaskRunRanksBySize(t *testing.T) {
	handles := handle.NewStore()
	codec := &fakeCodec{sizes: map[media.Type]int{media.JPEG: 5, media.WEBP: 50}}

	j := job.Job{
		ID:        "t",
		MediaType: media.JPEG,
		Data:      make([]byte, 100),
		Size:      100,
		Settings:  job.DefaultSettings(),
		Preset:    job.Presets[2],
	}

	out, err := NewTask(j, NewCompressor(codec, handles), alphaByPrefix, handles).Run(context.Background())
	require.NoError(t, err)
	assert.False(t, out.HasAlpha)
	require.Len(t, out.Results, 2)
	assert.Equal(t, media.JPEG, out.Results[0].Format)
	assert.Equal(t, 0.92, out.Results[0].Quality)
	assert.Equal(t, media.WEBP, out.Results[1].Format)
	assert.Equal(t, 0.9, out.Results[1].Quality)
}

func TestTaskRunDetectorPanic(t *testing.T) {
	handles := handle.NewStore()
	detect := func([]byte, media.Type) bool {
		panic("bad detector")
	}

	j := job.Job{ID: "p", Settings: job.DefaultSettings(), Preset: job.Presets[0]}
	out, err := NewTask(j, NewCompressor(&fakeCodec{}, handles), detect, handles).Run(context.Background())
	assert.ErrorIs(t, err, ErrPanic)
	assert.Empty(t, out.Results)
}
