package magnifier

import (
	"image"
	"sync"

	"github.com/compresslab/compressor/src/containers"
)

// Sampler keeps the decoded compressed bitmap of the result being compared.
type Sampler struct {
	mtx        sync.Mutex
	key        string
	compressed image.Image
}

// SetCompressed decodes data unless key is already loaded. On failure the
// sampler is left empty.
func (s *Sampler) SetCompressed(key string, data []byte) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if s.key == key && s.compressed != nil {
		return nil
	}

	s.key = ""
	s.compressed = nil

	img, err := containers.Decode(data)
	if err != nil {
		return err
	}

	s.key = key
	s.compressed = img

	return nil
}

func (s *Sampler) Reset() {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	s.key = ""
	s.compressed = nil
}

func (s *Sampler) Ready() bool {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	return s.compressed != nil
}

// Render draws the lens for orig. It does nothing until a compressed bitmap
// is loaded.
func (s *Sampler) Render(orig image.Image, g Geometry) (*image.NRGBA, bool) {
	s.mtx.Lock()
	comp := s.compressed
	s.mtx.Unlock()

	if comp == nil || orig == nil {
		return nil, false
	}

	return Render(orig, comp, g), true
}
