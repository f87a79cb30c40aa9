package archive

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/compresslab/compressor/src/job"
	"github.com/compresslab/compressor/src/media"
	"github.com/compresslab/compressor/src/naming"
)

// Bundle is a finished archive with its suggested file name.
type Bundle struct {
	Name    string
	Data    []byte
	Entries int
}

type Exporter struct {
	archiver Archiver
	now      func() time.Time
}

func NewExporter(archiver Archiver) *Exporter {
	if archiver == nil {
		archiver = Zip{}
	}

	return &Exporter{
		archiver: archiver,
		now:      time.Now,
	}
}

// Entries names every result of every done job, optionally restricted to one
// format. Clashing names get a numeric suffix.
func Entries(jobs []job.Job, filter media.Type, settings job.Settings) []Entry {
	entries := []Entry{}
	seen := map[string]int{}

	for _, j := range jobs {
		if j.Status != job.StatusDone {
			continue
		}

		for _, r := range j.Results {
			if filter != "" && r.Format != filter {
				continue
			}

			name := naming.Format(settings.FilenameTemplate, naming.Fields{
				Name:    naming.BaseName(j.Name),
				Fmt:     string(r.Format),
				Quality: naming.Percent(r.Quality),
				Width:   settings.MaxDimension,
				Ext:     r.Format.Ext(),
			})

			entries = append(entries, Entry{
				Name: dedupe(seen, name),
				Data: r.Data,
			})
		}
	}

	return entries
}

func dedupe(seen map[string]int, name string) string {
	seen[name]++
	n := seen[name]
	if n == 1 {
		return name
	}

	ext := path.Ext(name)
	candidate := fmt.Sprintf("%s_%d%s", strings.TrimSuffix(name, ext), n, ext)
	if _, taken := seen[candidate]; taken {
		return dedupe(seen, name)
	}
	seen[candidate]++

	return candidate
}

// Export builds the archive for jobs. An empty selection yields an empty archive.
func (e *Exporter) Export(jobs []job.Job, filter media.Type, settings job.Settings) (Bundle, error) {
	entries := Entries(jobs, filter, settings)

	data, err := e.archiver.Create(entries)
	if err != nil {
		return Bundle{}, err
	}

	return Bundle{
		Name:    DefaultName(e.now()),
		Data:    data,
		Entries: len(entries),
	}, nil
}

func DefaultName(t time.Time) string {
	return fmt.Sprintf("compressed-%s.zip", t.Format("20060102-150405"))
}
