package global

import (
	"context"
	"io"

	"github.com/compresslab/compressor/src/containers"
	"github.com/compresslab/compressor/src/handle"
)

type Instances struct {
	Handles *handle.Store
	Codec   *containers.Codec
	AwsS3   AwsS3
	Rmq     Rmq
}

type AwsS3 interface {
	UploadFile(ctx context.Context, bucket, key string, data io.Reader, contentType, acl, cacheControl *string) error
	DownloadFile(ctx context.Context, bucket, key string, file io.WriterAt) error
}

type Rmq interface {
	Publish(queue string, contentType string, deliveryMode uint8, msg []byte) error
	Shutdown()
}
