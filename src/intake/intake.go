package intake

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	Aws "github.com/aws/aws-sdk-go/aws"
	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"

	"github.com/compresslab/compressor/src/containers"
	"github.com/compresslab/compressor/src/job"
	"github.com/compresslab/compressor/src/media"
)

// MaxFileSize is the per file ceiling enforced at intake.
const MaxFileSize = 10 << 20

var (
	ErrUnsupportedFormat = fmt.Errorf("unsupported format")
	ErrFileTooLarge      = fmt.Errorf("file too large")
	ErrNoS3              = fmt.Errorf("s3 is not configured")
)

type downloader interface {
	DownloadFile(ctx context.Context, bucket, key string, file io.WriterAt) error
}

// Validate checks size and sniffed type. Only JPEG and PNG are accepted.
func Validate(name string, data []byte) (job.Input, error) {
	if len(data) > MaxFileSize {
		return job.Input{}, fmt.Errorf("%w: %s is %d bytes", ErrFileTooLarge, name, len(data))
	}

	typ, err := containers.ToType(data)
	if err != nil || (typ != media.JPEG && typ != media.PNG) {
		return job.Input{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, name)
	}

	return job.Input{
		Name:      name,
		MediaType: typ,
		Data:      data,
	}, nil
}

type Loader struct {
	s3 downloader
}

// NewLoader builds a loader. s3 may be nil, in which case s3:// sources are skipped.
func NewLoader(s3 downloader) *Loader {
	return &Loader{s3: s3}
}

// Load reads every source in order. Sources that fail are skipped and reported
// in the returned multierror, the rest are still returned.
func (l *Loader) Load(ctx context.Context, sources []string) ([]job.Input, error) {
	inputs := []job.Input{}

	var err error
	for _, src := range sources {
		in, e := l.load(ctx, src)
		if e != nil {
			logrus.WithField("source", src).Warn("skipping file: ", e)
			err = multierror.Append(err, e).ErrorOrNil()
			continue
		}
		inputs = append(inputs, in)
	}

	return inputs, err
}

func (l *Loader) load(ctx context.Context, src string) (job.Input, error) {
	if bucket, key, ok := ParseS3(src); ok {
		if l.s3 == nil {
			return job.Input{}, fmt.Errorf("%w: %s", ErrNoS3, src)
		}

		buf := Aws.NewWriteAtBuffer([]byte{})
		if err := l.s3.DownloadFile(ctx, bucket, key, buf); err != nil {
			return job.Input{}, fmt.Errorf("download %s failed: %w", src, err)
		}

		return Validate(path.Base(key), buf.Bytes())
	}

	info, err := os.Stat(src)
	if err != nil {
		return job.Input{}, err
	}
	if info.IsDir() {
		return job.Input{}, fmt.Errorf("%w: %s is a directory", ErrUnsupportedFormat, src)
	}
	if info.Size() > MaxFileSize {
		return job.Input{}, fmt.Errorf("%w: %s is %d bytes", ErrFileTooLarge, src, info.Size())
	}

	data, err := os.ReadFile(src)
	if err != nil {
		return job.Input{}, err
	}

	return Validate(path.Base(src), data)
}

// ParseS3 splits s3://bucket/key.
func ParseS3(src string) (string, string, bool) {
	rest, ok := strings.CutPrefix(src, "s3://")
	if !ok {
		return "", "", false
	}

	bucket, key, ok := strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" {
		return "", "", false
	}

	return bucket, key, true
}
