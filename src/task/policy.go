package task

import (
	"github.com/compresslab/compressor/src/job"
	"github.com/compresslab/compressor/src/media"
)

// RequiredFormats picks the outputs for a job. Transparent images only get
// formats that keep the alpha channel, everything else gets each enabled format.
func RequiredFormats(hasAlpha bool, settings job.Settings) []media.Type {
	formats := []media.Type{}
	for _, f := range media.Outputs {
		if !settings.Enabled(f) {
			continue
		}
		if hasAlpha && !f.SupportsAlpha() {
			continue
		}
		formats = append(formats, f)
	}

	return formats
}
