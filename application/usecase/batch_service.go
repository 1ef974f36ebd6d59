package usecase

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/maciejjedrzejczyk/playbackmodifier/application/pipeline"
	"github.com/maciejjedrzejczyk/playbackmodifier/application/plan"
	"github.com/maciejjedrzejczyk/playbackmodifier/application/scan"
	"github.com/maciejjedrzejczyk/playbackmodifier/domain/model"
	"github.com/maciejjedrzejczyk/playbackmodifier/domain/ports"
	pkgerrors "github.com/maciejjedrzejczyk/playbackmodifier/pkg/errors"
	"github.com/maciejjedrzejczyk/playbackmodifier/pkg/logger"
	"github.com/maciejjedrzejczyk/playbackmodifier/pkg/report"
)

// BatchService drives a whole run: scan, configure speeds, plan paths,
// convert sequentially, report. Files are processed one at a time; a failed
// file is recorded and the batch continues.
type BatchService struct {
	scanner  *scan.Scanner
	pipe     *pipeline.Pipeline
	storage  ports.StorageProvider
	reporter report.Reporter
	log      *logger.Logger
}

// Config holds BatchService dependencies
type Config struct {
	Engine   ports.TranscodeEngine
	Storage  ports.StorageProvider
	Checker  pipeline.Checker
	Reporter report.Reporter
	Logger   *logger.Logger
}

func NewBatchService(cfg Config) (*BatchService, error) {
	if cfg.Engine == nil {
		return nil, fmt.Errorf("TranscodeEngine is required")
	}
	if cfg.Storage == nil {
		return nil, fmt.Errorf("StorageProvider is required")
	}
	if cfg.Checker == nil {
		return nil, fmt.Errorf("Checker is required")
	}

	log := cfg.Logger
	if log == nil {
		log = logger.Nop()
	}

	reporter := cfg.Reporter
	if reporter == nil {
		reporter = report.NoopReporter{}
	}

	return &BatchService{
		scanner:  scan.NewScanner(cfg.Storage, log),
		pipe:     pipeline.NewPipeline(cfg.Engine, cfg.Storage, cfg.Checker, log),
		storage:  cfg.Storage,
		reporter: reporter,
		log:      log,
	}, nil
}

// Run processes every supported audio file under inputRoot into outputRoot.
// Directory-level failures abort before any file is touched; per-file
// failures are reported and the run continues.
func (s *BatchService) Run(ctx context.Context, inputRoot, outputRoot string, source ports.SpeedSource, opts ...ports.Option) (*model.RunResult, error) {
	options := model.DefaultProcessingOptions()
	for _, o := range opts {
		o(options)
	}

	outAbs, err := filepath.Abs(outputRoot)
	if err != nil {
		return nil, pkgerrors.NewOutputError(outputRoot, "cannot resolve output directory", err)
	}
	if err := s.storage.MkdirAll(ctx, outAbs); err != nil {
		return nil, pkgerrors.NewOutputError(outAbs, "cannot create output directory", err)
	}

	scanned, err := s.scanner.Scan(ctx, inputRoot)
	if err != nil {
		return nil, err
	}

	result := &model.RunResult{}
	var failures []report.Outcome

	// Files the scanner could not inspect never reach the pipeline, but
	// they still count as failures the user has to retry by hand.
	for _, f := range scanned.Failures {
		outcome := report.Outcome{
			InputPath: f.InputPath,
			Status:    report.StatusFailed,
			Err:       f.Err,
		}
		s.reporter.Outcome(outcome)
		result.Attempted++
		result.Failed++
		result.Failures = append(result.Failures, f)
		failures = append(failures, outcome)
	}

	if len(scanned.Files) == 0 {
		if result.Failed == 0 {
			s.log.Info("no supported audio files found", zap.String("input", inputRoot))
		}
		s.reporter.Summary(report.Summary{
			Attempted: result.Attempted,
			Failed:    result.Failed,
			Failures:  failures,
		})
		return result, nil
	}

	speeds, err := source.Speeds(scanned.RootName, scanned.Subfolders)
	if err != nil {
		return nil, fmt.Errorf("configure speeds: %w", err)
	}
	if missing := speeds.Covers(scanned.Subfolders); len(missing) > 0 {
		return nil, fmt.Errorf("no speed configured for folders: %v", missing)
	}

	planner := plan.NewPlanner(outAbs, s.storage)

	for _, file := range scanned.Files {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		speed, _ := speeds.Resolve(file.TopFolder)
		outcome := s.processFile(ctx, planner, file, speed, options)

		// A job aborted by run cancellation is not a conversion failure;
		// reporting it as FAILED would wrongly mark the file for retry.
		if cause := ctx.Err(); cause != nil && errors.Is(outcome.Err, cause) {
			return result, cause
		}
		s.reporter.Outcome(outcome)

		switch outcome.Status {
		case report.StatusSkipped:
			result.Skipped++
		case report.StatusFailed:
			result.Attempted++
			result.Failed++
			result.Failures = append(result.Failures, model.JobFailure{
				InputPath: file.Path,
				Err:       outcome.Err,
			})
			failures = append(failures, outcome)
		default:
			result.Attempted++
			result.Succeeded++
		}
	}

	s.reporter.Summary(report.Summary{
		Attempted: result.Attempted,
		Succeeded: result.Succeeded,
		Failed:    result.Failed,
		Skipped:   result.Skipped,
		Failures:  failures,
	})

	return result, nil
}

func (s *BatchService) processFile(ctx context.Context, planner *plan.Planner, file model.AudioFile, speed float64, options *model.ProcessingOptions) report.Outcome {
	job, err := planner.Plan(ctx, file, speed)
	if err != nil {
		return report.Outcome{
			InputPath: file.Path,
			Speed:     speed,
			Status:    report.StatusFailed,
			Err:       err,
		}
	}

	outcome := report.Outcome{
		JobID:      job.ID,
		InputPath:  file.Path,
		OutputPath: job.OutputPath,
		Speed:      speed,
	}

	if !options.Overwrite {
		if skip, err := s.outputPresent(ctx, job.OutputPath); err == nil && skip {
			outcome.Status = report.StatusSkipped
			return outcome
		}
	}

	s.log.Info("processing file",
		zap.String("input", file.Path),
		zap.String("output", job.OutputPath),
		zap.Float64("speed", speed),
	)

	res, err := s.pipe.Convert(ctx, job, options)
	if err != nil {
		outcome.Status = report.StatusFailed
		outcome.Err = err
		return outcome
	}

	outcome.Status = res.Status
	outcome.Strategy = res.Strategy
	return outcome
}

// outputPresent reports whether a non-empty output from a previous run
// already exists at path.
func (s *BatchService) outputPresent(ctx context.Context, path string) (bool, error) {
	exists, err := s.storage.Exists(ctx, path)
	if err != nil || !exists {
		return false, err
	}
	size, err := s.storage.Size(ctx, path)
	if err != nil {
		return false, err
	}
	return size > 0, nil
}
