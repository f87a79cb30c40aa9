package intake

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compresslab/compressor/src/media"
)

func createTestImage(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{uint8(x), uint8(y), 50, 255})
		}
	}
	return img
}

func pngBytes(t *testing.T) []byte {
	buf := bytes.Buffer{}
	require.NoError(t, png.Encode(&buf, createTestImage(8, 8)))
	return buf.Bytes()
}

func jpegBytes(t *testing.T) []byte {
	buf := bytes.Buffer{}
	require.NoError(t, jpeg.Encode(&buf, createTestImage(8, 8), nil))
	return buf.Bytes()
}

func TestValidate(t *testing.T) {
	in, err := Validate("a.png", pngBytes(t))
	require.NoError(t, err)
	assert.Equal(t, media.PNG, in.MediaType)
	assert.Equal(t, "a.png", in.Name)

	in, err = Validate("b.jpg", jpegBytes(t))
	require.NoError(t, err)
	assert.Equal(t, media.JPEG, in.MediaType)

	_, err = Validate("c.gif", []byte("GIF89a......"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = Validate("d.webp", []byte("RIFF\x00\x00\x00\x00WEBPVP8 "))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = Validate("e.txt", []byte("hello"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	big := append(pngBytes(t), make([]byte, MaxFileSize)...)
	_, err = Validate("f.png", big)
	assert.ErrorIs(t, err, ErrFileTooLarge)
}

type fakeS3 struct {
	objects map[string][]byte
}

func (f *fakeS3) DownloadFile(ctx context.Context, bucket, key string, file io.WriterAt) error {
	data, ok := f.objects[bucket+"/"+key]
	if !ok {
		return fmt.Errorf("no such key")
	}
	_, err := file.WriteAt(data, 0)
	return err
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	good := filepath.Join(dir, "good.png")
	require.NoError(t, os.WriteFile(good, pngBytes(t), 0600))

	text := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(text, []byte("hello"), 0600))

	large := filepath.Join(dir, "large.jpg")
	require.NoError(t, os.WriteFile(large, append(jpegBytes(t), make([]byte, MaxFileSize)...), 0600))

	s3 := &fakeS3{objects: map[string][]byte{"bucket/in/remote.jpg": jpegBytes(t)}}

	inputs, err := NewLoader(s3).Load(context.Background(), []string{
		good,
		text,
		large,
		filepath.Join(dir, "missing.png"),
		"s3://bucket/in/remote.jpg",
		"s3://bucket/in/absent.jpg",
	})

	require.Len(t, inputs, 2)
	assert.Equal(t, "good.png", inputs[0].Name)
	assert.Equal(t, "remote.jpg", inputs[1].Name)
	assert.Equal(t, media.JPEG, inputs[1].MediaType)

	merr, ok := err.(*multierror.Error)
	require.True(t, ok)
	assert.Len(t, merr.Errors, 4)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
	assert.ErrorIs(t, err, ErrFileTooLarge)
}

func TestLoadWithoutS3(t *testing.T) {
	inputs, err := NewLoader(nil).Load(context.Background(), []string{"s3://bucket/key.png"})
	assert.Empty(t, inputs)
	assert.ErrorIs(t, err, ErrNoS3)
}

func TestParseS3(t *testing.T) {
	bucket, key, ok := ParseS3("s3://media/a/b.png")
	assert.True(t, ok)
	assert.Equal(t, "media", bucket)
	assert.Equal(t, "a/b.png", key)

	for _, bad := range []string{"/tmp/a.png", "s3://", "s3://bucket", "s3://bucket/", "s3:///key"} {
		_, _, ok := ParseS3(bad)
		assert.False(t, ok, bad)
	}
}
