package playbackmodifier

import (
	"context"

	"go.uber.org/zap"

	"github.com/maciejjedrzejczyk/playbackmodifier/application/usecase"
	"github.com/maciejjedrzejczyk/playbackmodifier/domain/model"
	"github.com/maciejjedrzejczyk/playbackmodifier/domain/ports"
	"github.com/maciejjedrzejczyk/playbackmodifier/infrastructure/ffmpeg"
	"github.com/maciejjedrzejczyk/playbackmodifier/infrastructure/storage"
	"github.com/maciejjedrzejczyk/playbackmodifier/infrastructure/validate"
	"github.com/maciejjedrzejczyk/playbackmodifier/pkg/logger"
	"github.com/maciejjedrzejczyk/playbackmodifier/pkg/report"
)

// Re-export types for convenient use by callers
type (
	AudioFile   = model.AudioFile
	SpeedMap    = model.SpeedMap
	RunResult   = model.RunResult
	SpeedSource = ports.SpeedSource
	Outcome     = report.Outcome
	Summary     = report.Summary
	Reporter    = report.Reporter
)

// Re-export format constants and the root speed key
const (
	FormatMP3  = model.FormatMP3
	FormatM4A  = model.FormatM4A
	RootFolder = model.RootFolder
)

// Re-export option functions
var (
	WithOverwrite   = ports.WithOverwrite
	WithTempoBounds = ports.WithTempoBounds
	WithMP3Quality  = ports.WithMP3Quality
	WithAACBitrate  = ports.WithAACBitrate
	WithTimeout     = ports.WithTimeout
	WithRetry       = ports.WithRetry
)

// Config holds top-level configuration for the processor
type Config struct {
	// FFmpegPath is the path to the ffmpeg binary (searched on PATH if empty)
	FFmpegPath string

	// FFprobePath is the path to the ffprobe binary (searched on PATH if empty)
	FFprobePath string

	// Logger is an optional custom logger. Warnings-only stderr logger if nil.
	Logger *logger.Logger

	// ZapLogger allows passing a *zap.Logger directly
	ZapLogger *zap.Logger

	// Reporter receives per-file outcomes and the final summary
	Reporter report.Reporter
}

// Processor is the main entry point
type Processor struct {
	service *usecase.BatchService
	log     *logger.Logger
}

// New creates a new Processor with the given configuration
func New(cfg Config) (*Processor, error) {
	log := cfg.Logger
	if log == nil && cfg.ZapLogger != nil {
		log = logger.FromZap(cfg.ZapLogger)
	}
	if log == nil {
		var err error
		log, err = logger.New(false)
		if err != nil {
			return nil, err
		}
	}

	engine, err := ffmpeg.NewExecutor(ffmpeg.ExecutorConfig{
		FFmpegPath:  cfg.FFmpegPath,
		FFprobePath: cfg.FFprobePath,
		Logger:      log,
	})
	if err != nil {
		return nil, err
	}

	svc, err := usecase.NewBatchService(usecase.Config{
		Engine:   engine,
		Storage:  storage.NewLocalStorage(),
		Checker:  validate.NewChecker(),
		Reporter: cfg.Reporter,
		Logger:   log,
	})
	if err != nil {
		return nil, err
	}

	return &Processor{
		service: svc,
		log:     log,
	}, nil
}

// Run converts every supported audio file under inputRoot into outputRoot,
// mirroring the directory structure and date-prefixing filenames. Speeds are
// obtained from source, one per top-level folder.
func (p *Processor) Run(ctx context.Context, inputRoot, outputRoot string, source ports.SpeedSource, opts ...ports.Option) (*model.RunResult, error) {
	return p.service.Run(ctx, inputRoot, outputRoot, source, opts...)
}

// Close flushes the logger
func (p *Processor) Close() {
	_ = p.log.Sync()
}
