package archive

import (
	"bytes"
	"fmt"
	"time"

	"github.com/klauspost/compress/zip"
)

var ErrArchiveBuildFailed = fmt.Errorf("archive build failed")

type Entry struct {
	Name string
	Data []byte
}

// Archiver packs named entries into one blob.
type Archiver interface {
	Create(entries []Entry) ([]byte, error)
}

// Zip stores entries without recompression. Method may be set to zip.Deflate.
type Zip struct {
	Method   uint16
	Modified time.Time
}

func (z Zip) Create(entries []Entry) ([]byte, error) {
	buf := bytes.Buffer{}
	w := zip.NewWriter(&buf)

	modified := z.Modified
	if modified.IsZero() {
		modified = time.Now()
	}

	for _, e := range entries {
		f, err := w.CreateHeader(&zip.FileHeader{
			Name:     e.Name,
			Method:   z.Method,
			Modified: modified,
		})
		if err != nil {
			_ = w.Close()
			return nil, fmt.Errorf("%w: %s: %s", ErrArchiveBuildFailed, e.Name, err.Error())
		}

		if _, err := f.Write(e.Data); err != nil {
			_ = w.Close()
			return nil, fmt.Errorf("%w: %s: %s", ErrArchiveBuildFailed, e.Name, err.Error())
		}
	}

	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrArchiveBuildFailed, err.Error())
	}

	return buf.Bytes(), nil
}
