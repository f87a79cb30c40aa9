package job

import (
	"fmt"

	"github.com/compresslab/compressor/src/media"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

type Settings struct {
	MaxDimension     int    `json:"max_dimension" validate:"gte=0"`
	Concurrency      int    `json:"concurrency" validate:"gte=1,lte=32"`
	EnableJPEG       bool   `json:"enable_jpeg"`
	EnableWebP       bool   `json:"enable_webp"`
	FilenameTemplate string `json:"filename_template" validate:"required"`
}

func DefaultSettings() Settings {
	return Settings{
		MaxDimension:     2000,
		Concurrency:      2,
		EnableJPEG:       true,
		EnableWebP:       true,
		FilenameTemplate: "{name}_{fmt}_{q}.{ext}",
	}
}

func (s Settings) Validate() error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}

	return nil
}

// Enabled reports whether the output format f is switched on.
func (s Settings) Enabled(f media.Type) bool {
	switch f {
	case media.JPEG:
		return s.EnableJPEG
	case media.WEBP:
		return s.EnableWebP
	}

	return false
}
