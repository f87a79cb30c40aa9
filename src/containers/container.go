package containers

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"

	"github.com/compresslab/compressor/src/containers/gif"
	"github.com/compresslab/compressor/src/containers/jpeg"
	"github.com/compresslab/compressor/src/containers/png"
	"github.com/compresslab/compressor/src/containers/webp"
	"github.com/compresslab/compressor/src/media"
)

var (
	ErrUnknownFormat = media.ErrUnknownFormat
	ErrDecodeFailed  = fmt.Errorf("decode failed")
)

func ToType(data []byte) (media.Type, error) {
	if jpeg.Test(data) {
		return media.JPEG, nil
	} else if png.Test(data) {
		return media.PNG, nil
	} else if webp.Test(data) {
		return media.WEBP, nil
	} else if gif.Test(data) {
		return media.GIF, nil
	}

	return "", ErrUnknownFormat
}

// Decode turns encoded bytes of any sniffable format into a bitmap.
func Decode(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrDecodeFailed, err.Error())
	}

	return img, nil
}
