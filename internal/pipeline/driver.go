// Package pipeline drives a full run: tempo analysis of every track,
// retiming to the first track's tempo, crossfading and export.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/linuxmatters/jivemix/internal/audio"
	"github.com/linuxmatters/jivemix/internal/config"
	"github.com/linuxmatters/jivemix/internal/encoder"
	"github.com/linuxmatters/jivemix/internal/logging"
	"github.com/linuxmatters/jivemix/internal/mixer"
	"github.com/linuxmatters/jivemix/internal/stretch"
	"github.com/linuxmatters/jivemix/internal/tempo"
)

// Driver runs the auto-DJ pipeline with pluggable collaborators
type Driver struct {
	loader    Loader
	estimator Estimator
	exporter  Exporter
	logger    *slog.Logger
	progress  func(Event)
	now       func() time.Time
}

// Option configures a Driver
type Option func(*Driver)

// WithLogger sets the structured logger
func WithLogger(logger *slog.Logger) Option {
	return func(d *Driver) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithProgress registers a callback for progress events. It may be called
// from worker goroutines, but never concurrently.
func WithProgress(fn func(Event)) Option {
	return func(d *Driver) {
		d.progress = fn
	}
}

// New creates a Driver
func New(loader Loader, estimator Estimator, exporter Exporter, opts ...Option) *Driver {
	d := &Driver{
		loader:    loader,
		estimator: estimator,
		exporter:  exporter,
		logger:    logging.Discard(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// analysis is the load and estimate result for one track
type analysis struct {
	buf      audio.Buffer
	detected float64
}

// Run executes the whole pipeline for cfg. Any failure aborts the run with
// a *StageError and nothing is written.
func (d *Driver) Run(ctx context.Context, cfg config.Config) (*Report, error) {
	if len(cfg.Files) == 0 {
		return nil, ErrEmptyInput
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	start := d.now()
	total := len(cfg.Files)

	d.logger.Info("starting mix",
		slog.Int("tracks", total),
		slog.Duration("crossfade", cfg.Crossfade()),
		slog.Int("jobs", cfg.Jobs),
		slog.String("output", cfg.Output),
	)

	// The first track alone fixes the reference tempo
	first, err := d.analyze(ctx, 0, total, cfg.Files[0], d.emit)
	if err != nil {
		return nil, err
	}

	reference := tempo.Sanitize(first.detected)
	overridden := false
	if cfg.ReferenceBPM > 0 {
		reference = cfg.ReferenceBPM
		overridden = true
	}
	d.logger.Info("reference tempo fixed",
		slog.Float64("bpm", reference),
		slog.Bool("override", overridden),
		slog.String("path", cfg.Files[0]),
	)

	analyses := make([]analysis, total)
	analyses[0] = first
	if err := d.analyzeRest(ctx, cfg.Files, cfg.Jobs, analyses); err != nil {
		return nil, err
	}

	tracks := make([]Track, total)
	buffers := make([]audio.Buffer, total)
	for i, path := range cfg.Files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		track, err := d.retime(i, total, path, reference, analyses[i])
		if err != nil {
			return nil, err
		}
		// Drop the source buffer as soon as its retimed copy exists
		analyses[i] = analysis{}

		tracks[i] = track
		buffers[i] = track.Buffer
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.emit(Event{Stage: StageSequence, Index: -1, Total: total})
	mix, err := mixer.Sequence(buffers, cfg.Crossfade())
	if err != nil {
		path := ""
		var cfErr *mixer.InvalidCrossfadeError
		if errors.As(err, &cfErr) && cfErr.Index >= 0 && cfErr.Index < total {
			path = cfg.Files[cfErr.Index]
		}
		return nil, &StageError{Path: path, Stage: StageSequence, Err: err}
	}
	d.emit(Event{Stage: StageSequence, Done: true, Index: -1, Total: total, Duration: mix.Duration()})
	d.logger.Info("tracks sequenced",
		slog.String("stage", string(StageSequence)),
		slog.Duration("duration", mix.Duration()),
	)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.emit(Event{Stage: StageExport, Index: -1, Total: total, Path: cfg.Output})
	err = d.exporter.Export(ctx, mix, encoder.Options{
		Path:    cfg.Output,
		Format:  cfg.Format,
		Bitrate: cfg.Bitrate,
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &StageError{Path: cfg.Output, Stage: StageExport, Err: err}
	}
	d.emit(Event{Stage: StageExport, Done: true, Index: -1, Total: total, Path: cfg.Output, Duration: mix.Duration()})

	report := &Report{
		ReferenceBPM:        reference,
		ReferenceOverridden: overridden,
		Tracks:              tracks,
		Crossfade:           cfg.Crossfade(),
		Mix:                 mix,
		MixDuration:         mix.Duration(),
		Output:              cfg.Output,
		Elapsed:             d.now().Sub(start),
	}
	d.logger.Info("mix complete",
		slog.String("output", report.Output),
		slog.Duration("duration", report.MixDuration),
		slog.Duration("elapsed", report.Elapsed),
	)
	return report, nil
}

// analyze loads one track and estimates its tempo
func (d *Driver) analyze(ctx context.Context, index, total int, path string, emit func(Event)) (analysis, error) {
	if err := ctx.Err(); err != nil {
		return analysis{}, err
	}

	emit(Event{Stage: StageLoad, Index: index, Total: total, Path: path})
	buf, err := d.loader.Load(ctx, path)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return analysis{}, ctxErr
		}
		return analysis{}, &StageError{Path: path, Stage: StageLoad, Err: audio.NewDecodeError(path, err)}
	}
	emit(Event{Stage: StageLoad, Done: true, Index: index, Total: total, Path: path, Duration: buf.Duration()})

	if err := ctx.Err(); err != nil {
		return analysis{}, err
	}
	emit(Event{Stage: StageEstimate, Index: index, Total: total, Path: path})
	detected, err := d.estimator.Estimate(buf)
	if err != nil {
		var decErr *audio.DecodeError
		if errors.As(err, &decErr) && decErr.Path == "" {
			err = &audio.DecodeError{Path: path, Err: decErr.Err}
		}
		return analysis{}, &StageError{Path: path, Stage: StageEstimate, Err: err}
	}
	emit(Event{Stage: StageEstimate, Done: true, Index: index, Total: total, Path: path, DetectedBPM: detected})

	d.logger.Debug("track analyzed",
		slog.String("stage", string(StageEstimate)),
		slog.Int("track", index+1),
		slog.String("path", path),
		slog.Float64("detected_bpm", detected),
		slog.Duration("duration", buf.Duration()),
	)
	return analysis{buf: buf, detected: detected}, nil
}

// analyzeRest fills results[1:] using up to jobs workers. Results keep the
// input order; the first failure cancels the remaining work.
func (d *Driver) analyzeRest(ctx context.Context, files []string, jobs int, results []analysis) error {
	total := len(files)
	if total <= 1 {
		return nil
	}
	if jobs < 1 {
		jobs = 1
	}
	jobs = min(jobs, total-1)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		once     sync.Once
		firstErr error
		emitMu   sync.Mutex
	)

	// Serialize progress callbacks from the workers
	emit := func(ev Event) {
		emitMu.Lock()
		defer emitMu.Unlock()
		d.emit(ev)
	}

	indexes := make(chan int)
	wg.Add(jobs)
	for w := 0; w < jobs; w++ {
		go func() {
			defer wg.Done()
			for i := range indexes {
				res, err := d.analyze(ctx, i, total, files[i], emit)
				if err != nil {
					once.Do(func() {
						firstErr = err
						cancel()
					})
					continue
				}
				results[i] = res
			}
		}()
	}

feed:
	for i := 1; i < total; i++ {
		select {
		case indexes <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(indexes)
	wg.Wait()

	if firstErr != nil {
		return firstErr
	}
	return ctx.Err()
}

// retime octave-corrects a track's tempo and resamples it to the reference
func (d *Driver) retime(index, total int, path string, reference float64, a analysis) (Track, error) {
	bpm := tempo.Sanitize(a.detected)

	d.emit(Event{Stage: StageRetime, Index: index, Total: total, Path: path, DetectedBPM: a.detected, BPM: bpm})
	ratio, err := stretch.Ratio(reference, bpm)
	if err != nil {
		return Track{}, &StageError{Path: path, Stage: StageRetime, Err: err}
	}
	out, err := stretch.Retime(a.buf, ratio)
	if err != nil {
		return Track{}, &StageError{Path: path, Stage: StageRetime, Err: err}
	}

	track := Track{
		Path:           path,
		Name:           trackName(path),
		DetectedBPM:    a.detected,
		BPM:            bpm,
		Ratio:          ratio,
		SourceDuration: a.buf.Duration(),
		Duration:       out.Duration(),
		Buffer:         out,
	}
	d.emit(Event{
		Stage:       StageRetime,
		Done:        true,
		Index:       index,
		Total:       total,
		Path:        path,
		DetectedBPM: a.detected,
		BPM:         bpm,
		Ratio:       ratio,
		Duration:    track.Duration,
	})
	d.logger.Info("track retimed",
		slog.String("stage", string(StageRetime)),
		slog.Int("track", index+1),
		slog.String("path", path),
		slog.Float64("detected_bpm", a.detected),
		slog.Float64("bpm", bpm),
		slog.Float64("ratio", ratio),
	)
	return track, nil
}

func (d *Driver) emit(ev Event) {
	if d.progress != nil {
		d.progress(ev)
	}
}

// trackName is the file name without directory or extension
func trackName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
