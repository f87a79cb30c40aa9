package task

import (
	"context"
	"fmt"
	"time"

	"github.com/compresslab/compressor/src/handle"
	"github.com/compresslab/compressor/src/job"
	"github.com/compresslab/compressor/src/media"
)

var ErrCompressionFailed = fmt.Errorf("compression failed")

// Codec is the encoder capability the worker drives.
type Codec interface {
	Compress(ctx context.Context, data []byte, format media.Type, quality float64, maxLongEdge int) ([]byte, error)
}

type Request struct {
	Data         []byte
	Format       media.Type
	Quality      float64
	MaxLongEdge  int
	OriginalSize int
	KeepAlpha    bool
}

// Compressor turns one Request into one CompressResult.
type Compressor struct {
	codec   Codec
	handles *handle.Store
}

func NewCompressor(codec Codec, handles *handle.Store) *Compressor {
	return &Compressor{
		codec:   codec,
		handles: handles,
	}
}

// Compress runs the codec and allocates a handle for its output. The caller
// owns the handle of a successful result.
func (c *Compressor) Compress(ctx context.Context, req Request) (job.CompressResult, error) {
	start := time.Now()

	data, err := c.codec.Compress(ctx, req.Data, req.Format, req.Quality, req.MaxLongEdge)
	if err != nil {
		return job.CompressResult{}, fmt.Errorf("%w: %s: %s", ErrCompressionFailed, req.Format, err.Error())
	}

	elapsed := time.Since(start)

	ratio := 0.0
	if req.OriginalSize > 0 {
		ratio = 1 - float64(len(data))/float64(req.OriginalSize)
	}

	return job.CompressResult{
		Format:    req.Format,
		Quality:   req.Quality,
		Data:      data,
		Size:      len(data),
		Handle:    c.handles.New(data, req.Format.MIME()),
		Ratio:     ratio,
		Elapsed:   elapsed,
		KeepAlpha: req.KeepAlpha,
	}, nil
}
