package job

import (
	"fmt"

	"github.com/compresslab/compressor/src/media"
)

var ErrUnknownPreset = fmt.Errorf("unknown preset")

const DefaultPreset = "balanced"

// Preset is a named bundle of quality factors, one per output format.
type Preset struct {
	Name string  `json:"name"`
	JPEG float64 `json:"jpeg"`
	WEBP float64 `json:"webp"`
}

var Presets = []Preset{
	{Name: "small", JPEG: 0.6, WEBP: 0.55},
	{Name: "balanced", JPEG: 0.8, WEBP: 0.75},
	{Name: "high", JPEG: 0.92, WEBP: 0.9},
}

func PresetByName(name string) (Preset, error) {
	for _, p := range Presets {
		if p.Name == name {
			return p, nil
		}
	}

	return Preset{}, fmt.Errorf("%w: %q", ErrUnknownPreset, name)
}

func (p Preset) Quality(f media.Type) float64 {
	switch f {
	case media.JPEG:
		return p.JPEG
	case media.WEBP:
		return p.WEBP
	}

	return 0
}
