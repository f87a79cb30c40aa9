package configure

import (
	"github.com/compresslab/compressor/src/job"
	"github.com/compresslab/compressor/src/media"
)

// Settings converts the compress section into validated job settings.
func (c *Config) Settings() (job.Settings, error) {
	s := job.Settings{
		MaxDimension:     c.Compress.MaxDimension,
		Concurrency:      c.Compress.Concurrency,
		EnableJPEG:       c.Compress.Jpeg,
		EnableWebP:       c.Compress.Webp,
		FilenameTemplate: c.Compress.FilenameTemplate,
	}

	return s, s.Validate()
}

func (c *Config) Preset() (job.Preset, error) {
	name := c.Compress.Preset
	if name == "" {
		name = job.DefaultPreset
	}

	return job.PresetByName(name)
}

// ExportFilter is the optional output format the archive is restricted to.
func (c *Config) ExportFilter() (media.Type, error) {
	if c.Export.Format == "" {
		return "", nil
	}

	return media.ParseOutput(c.Export.Format)
}
