package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strconv"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/maciejjedrzejczyk/playbackmodifier/domain/model"
	"github.com/maciejjedrzejczyk/playbackmodifier/domain/ports"
	"github.com/maciejjedrzejczyk/playbackmodifier/infrastructure/ffmpeg"
	pkgerrors "github.com/maciejjedrzejczyk/playbackmodifier/pkg/errors"
	"github.com/maciejjedrzejczyk/playbackmodifier/pkg/logger"
	"github.com/maciejjedrzejczyk/playbackmodifier/pkg/report"
	"github.com/maciejjedrzejczyk/playbackmodifier/pkg/retry"
)

// Checker validates a produced output file before a strategy is accepted
type Checker interface {
	Check(path string, format model.Format) error
	Title(path string) string
	MP3Duration(path string) (float64, error)
}

// Result describes how a job succeeded
type Result struct {
	// Strategy is the name of the strategy that produced the output
	Strategy string

	// Status is the reportable classification of the success
	Status report.Status
}

// Pipeline converts one job by trying an ordered list of strategies until
// one produces a valid non-empty output file.
type Pipeline struct {
	engine  ports.TranscodeEngine
	storage ports.StorageProvider
	checker Checker
	log     *logger.Logger
}

func NewPipeline(engine ports.TranscodeEngine, storage ports.StorageProvider, checker Checker, log *logger.Logger) *Pipeline {
	if log == nil {
		log = logger.Nop()
	}
	return &Pipeline{
		engine:  engine,
		storage: storage,
		checker: checker,
		log:     log,
	}
}

// strategy is one entry in the fallback chain. checkAs tells the checker
// what the produced bytes actually are, which differs from the source format
// when an intermediate container was used.
type strategy struct {
	name    string
	status  report.Status
	checkAs model.Format
	run     func(ctx context.Context) error
}

// Convert runs the fallback chain for one job. The first strategy whose
// output passes validation wins; a failed attempt's partial output is
// removed before the next. When every strategy fails the combined causes are
// returned as a ConversionError and the caller moves on to the next file.
func (p *Pipeline) Convert(ctx context.Context, job model.ConversionJob, opts *model.ProcessingOptions) (*Result, error) {
	stages, err := ffmpeg.DecomposeTempo(job.Speed, opts.TempoMin, opts.TempoMax)
	if err != nil {
		return nil, err
	}
	filter := ffmpeg.TempoFilter(stages)

	log := p.log.With(zap.String("job_id", job.ID), zap.String("input", job.Source.Path))
	log.Debug("tempo filter built",
		zap.Float64("speed", job.Speed),
		zap.String("filter", filter),
	)
	p.probeInput(ctx, job, log)

	var errs error
	var tried []string

	for _, st := range p.strategies(job, opts, filter) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		tried = append(tried, st.name)

		attemptErr := retry.Do(ctx, retry.Config{
			Attempts:   opts.Attempts,
			Delay:      opts.RetryDelay,
			Multiplier: 2.0,
		}, func() error {
			return p.attempt(ctx, st, opts)
		}, func(attempt int, err error) {
			log.Warn("invocation failed, retrying",
				zap.String("strategy", st.name),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
		})

		if attemptErr == nil {
			if err := p.checker.Check(job.OutputPath, st.checkAs); err != nil {
				attemptErr = err
			}
		}

		if attemptErr == nil {
			log.Debug("strategy succeeded", zap.String("strategy", st.name))
			p.logOutputDuration(job, st, log)
			return &Result{Strategy: st.name, Status: st.status}, nil
		}

		log.Warn("strategy failed",
			zap.String("strategy", st.name),
			zap.Error(attemptErr),
		)
		errs = multierr.Append(errs, fmt.Errorf("%s: %w", st.name, attemptErr))
		p.removePartial(ctx, job.OutputPath, log)
	}

	return nil, pkgerrors.NewConversionError(job.Source.Path, tried, errs)
}

func (p *Pipeline) attempt(ctx context.Context, st strategy, opts *model.ProcessingOptions) error {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}
	return st.run(ctx)
}

// strategies builds the fallback chain, in fixed order: the full invocation
// with metadata copy, a re-encode without metadata, a minimal re-encode, a
// re-encode through an intermediate mp3 container renamed into place, and as
// a last resort an unmodified copy of the source.
func (p *Pipeline) strategies(job model.ConversionJob, opts *model.ProcessingOptions, filter string) []strategy {
	in := job.Source.Path
	out := job.OutputPath
	format := job.Source.Format

	return []strategy{
		{
			name:    "full",
			status:  report.StatusConverted,
			checkAs: format,
			run: func(ctx context.Context) error {
				args := []string{"-y", "-i", in, "-map", "0:a", "-filter:a", filter}
				args = append(args, codecArgs(format, opts)...)
				args = append(args, "-map_metadata", "0")
				if format == model.FormatMP3 {
					args = append(args, "-id3v2_version", "3")
				}
				return p.engine.Execute(ctx, append(args, out))
			},
		},
		{
			name:    "no-metadata",
			status:  report.StatusDegraded,
			checkAs: format,
			run: func(ctx context.Context) error {
				args := []string{"-y", "-i", in, "-vn", "-filter:a", filter}
				args = append(args, codecArgs(format, opts)...)
				return p.engine.Execute(ctx, append(args, out))
			},
		},
		{
			name:    "minimal",
			status:  report.StatusDegraded,
			checkAs: format,
			run: func(ctx context.Context) error {
				args := []string{"-y", "-i", in, "-vn", "-filter:a", filter}
				return p.engine.Execute(ctx, append(args, out))
			},
		},
		{
			name:    "intermediate",
			status:  report.StatusDegraded,
			checkAs: model.FormatMP3,
			run: func(ctx context.Context) error {
				return p.runIntermediate(ctx, in, out, opts, filter)
			},
		},
		{
			name:    "copy",
			status:  report.StatusCopied,
			checkAs: format,
			run: func(ctx context.Context) error {
				n, err := p.storage.Copy(ctx, in, out)
				if err != nil {
					return err
				}
				if n == 0 {
					return fmt.Errorf("source %s is empty", in)
				}
				return nil
			},
		},
	}
}

// runIntermediate encodes into a temporary mp3 next to the target, then
// renames it into place so the destination keeps the planned filename. The
// temp file must live in the output directory: a rename across filesystems
// fails with EXDEV, and the system temp dir is routinely a different device
// than the output root.
func (p *Pipeline) runIntermediate(ctx context.Context, in, out string, opts *model.ProcessingOptions, filter string) error {
	tmp, err := p.storage.TempFile(ctx, filepath.Dir(out), "playbackmodifier-*.mp3")
	if err != nil {
		return err
	}
	defer p.storage.Remove(ctx, tmp)

	args := []string{
		"-y", "-i", in, "-vn", "-filter:a", filter,
		"-c:a", "libmp3lame", "-q:a", strconv.Itoa(opts.MP3Quality),
		tmp,
	}
	if err := p.engine.Execute(ctx, args); err != nil {
		return err
	}
	return p.storage.Rename(ctx, tmp, out)
}

func codecArgs(format model.Format, opts *model.ProcessingOptions) []string {
	if format == model.FormatM4A {
		return []string{"-c:a", "aac", "-b:a", opts.AACBitrate}
	}
	return []string{"-c:a", "libmp3lame", "-q:a", strconv.Itoa(opts.MP3Quality)}
}

// probeInput logs input metadata at debug level. Probe failures are not
// fatal here; a genuinely unreadable file fails every strategy anyway.
func (p *Pipeline) probeInput(ctx context.Context, job model.ConversionJob, log *logger.Logger) {
	data, err := p.engine.Probe(ctx, job.Source.Path)
	if err != nil {
		log.Debug("input probe failed", zap.Error(err))
		return
	}

	var probe struct {
		Format struct {
			Duration   string `json:"duration"`
			FormatName string `json:"format_name"`
		} `json:"format"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		log.Debug("input probe unparseable", zap.Error(err))
		return
	}

	fields := []zap.Field{
		zap.String("format", probe.Format.FormatName),
		zap.String("duration", probe.Format.Duration),
	}
	if title := p.checker.Title(job.Source.Path); title != "" {
		fields = append(fields, zap.String("title", title))
	}
	log.Debug("input probed", fields...)
}

func (p *Pipeline) logOutputDuration(job model.ConversionJob, st strategy, log *logger.Logger) {
	if st.checkAs != model.FormatMP3 {
		return
	}
	dur, err := p.checker.MP3Duration(job.OutputPath)
	if err != nil || dur <= 0 {
		return
	}
	log.Debug("output duration",
		zap.String("output", job.OutputPath),
		zap.Float64("seconds", dur),
	)
}

func (p *Pipeline) removePartial(ctx context.Context, path string, log *logger.Logger) {
	exists, err := p.storage.Exists(ctx, path)
	if err != nil || !exists {
		return
	}
	if err := p.storage.Remove(ctx, path); err != nil {
		log.Warn("cannot remove partial output", zap.String("path", path), zap.Error(err))
	}
}
