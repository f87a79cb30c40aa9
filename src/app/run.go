package app

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path"

	"github.com/hashicorp/go-multierror"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"

	"github.com/compresslab/compressor/src/archive"
	"github.com/compresslab/compressor/src/aws"
	"github.com/compresslab/compressor/src/containers"
	"github.com/compresslab/compressor/src/containers/png"
	"github.com/compresslab/compressor/src/global"
	"github.com/compresslab/compressor/src/heatmap"
	"github.com/compresslab/compressor/src/intake"
	"github.com/compresslab/compressor/src/job"
	"github.com/compresslab/compressor/src/magnifier"
	"github.com/compresslab/compressor/src/naming"
	"github.com/compresslab/compressor/src/task"
	"github.com/compresslab/compressor/src/utils"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var ErrNoInputs = fmt.Errorf("no usable input files")

// App wires the scheduler and the analysis engines for one batch run.
type App struct {
	ctx       global.Context
	scheduler *task.Scheduler
	heatmaps  *heatmap.Engine
	exporter  *archive.Exporter
	loader    *intake.Loader
}

func New(ctx global.Context, codec task.Codec) (*App, error) {
	cfg := ctx.Config()

	settings, err := cfg.Settings()
	if err != nil {
		return nil, err
	}

	preset, err := cfg.Preset()
	if err != nil {
		return nil, err
	}

	s, err := task.NewScheduler(ctx, task.Options{
		Codec:        codec,
		Handles:      ctx.Instances().Handles,
		Settings:     settings,
		Preset:       preset,
		PollInterval: cfg.PollInterval,
		Tracker:      ctx,
	})
	if err != nil {
		return nil, err
	}

	a := &App{
		ctx:       ctx,
		scheduler: s,
		heatmaps:  heatmap.New(s, ctx.Instances().Handles),
		exporter:  archive.NewExporter(archive.Zip{}),
		loader:    intake.NewLoader(ctx.Instances().AwsS3),
	}

	s.Subscribe(a.onEvent)
	if ctx.Instances().Rmq != nil {
		task.Forward(ctx, s)
	}

	return a, nil
}

func (a *App) Scheduler() *task.Scheduler {
	return a.scheduler
}

func (a *App) onEvent(e task.TaskEvent) {
	l := logrus.WithFields(logrus.Fields{
		"job_id": e.JobID,
		"status": e.Status,
	})

	switch e.Type {
	case task.Failed:
		l.Warn("job failed: ", e.Error)
	case task.Removed:
		a.heatmaps.Forget(e.JobID)
		l.Debug("job removed")
	default:
		l.Debugf("job %s", e.Type)
	}
}

// Run processes every configured input and writes the requested artefacts.
func (a *App) Run() error {
	cfg := a.ctx.Config()
	defer a.scheduler.Clear()

	inputs, err := a.loader.Load(a.ctx, cfg.Inputs)
	if err != nil {
		logrus.Warnf("%d file(s) skipped", len(multierror.Append(nil, err).Errors))
	}
	if len(inputs) == 0 {
		return ErrNoInputs
	}

	a.scheduler.Enqueue(inputs...)
	logrus.Infof("queued %d image(s)", len(inputs))

	if err := a.scheduler.Wait(a.ctx); err != nil {
		return err
	}

	jobs := a.scheduler.Jobs()
	report(jobs)

	var result error
	if err := a.writeReport(jobs); err != nil {
		result = multierror.Append(result, err)
	}
	if err := a.export(jobs); err != nil {
		result = multierror.Append(result, err)
	}
	if cfg.Export.Heatmaps {
		if err := a.writeHeatmaps(jobs); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if cfg.Export.Lens {
		if err := a.writeLenses(jobs); err != nil {
			result = multierror.Append(result, err)
		}
	}

	return result
}

func report(jobs []job.Job) {
	for _, j := range jobs {
		l := logrus.WithFields(logrus.Fields{
			"name":   j.Name,
			"status": j.Status,
			"size":   j.Size,
		})
		if j.Status != job.StatusDone {
			l.Warn("not compressed: ", j.Error)
			continue
		}
		if len(j.Results) == 0 {
			l.Info("no output formats enabled")
			continue
		}

		for i, r := range j.Results {
			l.WithFields(logrus.Fields{
				"rank":       i + 1,
				"format":     r.Format,
				"quality":    naming.Percent(r.Quality),
				"out_size":   r.Size,
				"saved":      fmt.Sprintf("%.1f%%", r.Ratio*100),
				"elapsed":    r.Elapsed,
				"keep_alpha": r.KeepAlpha,
			}).Info("compressed")
		}
	}
}

type reportEntry struct {
	Name     string               `json:"name"`
	Status   job.Status           `json:"status"`
	Size     int                  `json:"size"`
	HasAlpha *bool                `json:"has_alpha,omitempty"`
	Error    string               `json:"error,omitempty"`
	Results  []job.CompressResult `json:"results"`
}

func (a *App) writeReport(jobs []job.Job) error {
	entries := make([]reportEntry, len(jobs))
	for i, j := range jobs {
		entries[i] = reportEntry{
			Name:     j.Name,
			Status:   j.Status,
			Size:     j.Size,
			HasAlpha: j.HasAlpha,
			Error:    j.Error,
			Results:  j.Results,
		}
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}

	return a.save("report.json", data, "application/json")
}

func (a *App) export(jobs []job.Job) error {
	filter, err := a.ctx.Config().ExportFilter()
	if err != nil {
		return err
	}

	bundle, err := a.exporter.Export(jobs, filter, a.scheduler.Settings())
	if err != nil {
		return err
	}

	logrus.WithFields(logrus.Fields{
		"archive": bundle.Name,
		"entries": bundle.Entries,
	}).Info("archive built")

	return a.save(bundle.Name, bundle.Data, "application/zip")
}

func (a *App) writeHeatmaps(jobs []job.Job) error {
	var result error
	for _, j := range jobs {
		best, ok := j.Best()
		if j.Status != job.StatusDone || !ok {
			continue
		}

		h, err := a.heatmaps.Request(a.ctx, j.ID, 0)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("heatmap %s: %w", j.Name, err))
			continue
		}

		data, _, ok := a.ctx.Instances().Handles.Get(h)
		if !ok {
			continue
		}

		name := fmt.Sprintf("%s_%s_heatmap.png", naming.BaseName(j.Name), best.Format)
		if err := a.save(name, data, "image/png"); err != nil {
			result = multierror.Append(result, err)
		}
	}

	return result
}

func (a *App) writeLenses(jobs []job.Job) error {
	cfg := a.ctx.Config()
	sampler := &magnifier.Sampler{}

	var result error
	for _, j := range jobs {
		best, ok := j.Best()
		if j.Status != job.StatusDone || !ok {
			continue
		}

		orig, err := containers.Decode(j.Data)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("lens %s: %w", j.Name, err))
			continue
		}
		if err := sampler.SetCompressed(string(best.Handle), best.Data); err != nil {
			result = multierror.Append(result, fmt.Errorf("lens %s: %w", j.Name, err))
			continue
		}

		b := orig.Bounds()
		lens, ok := sampler.Render(orig, magnifier.Geometry{
			CursorX:       float64(b.Dx()) / 2,
			CursorY:       float64(b.Dy()) / 2,
			DisplayWidth:  float64(b.Dx()),
			DisplayHeight: float64(b.Dy()),
			Zoom:          cfg.Export.Zoom,
			Diameter:      cfg.Export.Diameter,
		})
		if !ok {
			continue
		}

		data, err := png.Encode(lens)
		if err != nil {
			result = multierror.Append(result, err)
			continue
		}

		name := fmt.Sprintf("%s_%s_lens.png", naming.BaseName(j.Name), best.Format)
		if err := a.save(name, data, "image/png"); err != nil {
			result = multierror.Append(result, err)
		}
	}

	return result
}

// save writes to the export directory and, when configured, to S3.
func (a *App) save(name string, data []byte, contentType string) error {
	cfg := a.ctx.Config()

	if cfg.Export.Dir != "" {
		if err := os.MkdirAll(cfg.Export.Dir, 0755); err != nil {
			return err
		}
		if err := os.WriteFile(path.Join(cfg.Export.Dir, name), data, 0644); err != nil {
			return err
		}
	}

	if cfg.Export.Bucket != "" && a.ctx.Instances().AwsS3 != nil {
		return a.upload(a.ctx, name, data, contentType)
	}

	return nil
}

func (a *App) upload(ctx context.Context, name string, data []byte, contentType string) error {
	cfg := a.ctx.Config()

	return a.ctx.Instances().AwsS3.UploadFile(
		ctx,
		cfg.Export.Bucket,
		path.Join(cfg.Export.KeyFolder, name),
		bytes.NewReader(data),
		utils.StringPointer(contentType),
		aws.AclPrivate,
		aws.DefaultCacheControl,
	)
}
