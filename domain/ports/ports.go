package ports

import (
	"context"
	"time"

	"github.com/maciejjedrzejczyk/playbackmodifier/domain/model"
)

// TranscodeEngine is the narrow capability boundary around the external
// media tool. The only environment dependency of the whole pipeline.
type TranscodeEngine interface {
	// Execute runs the tool with the given arguments
	Execute(ctx context.Context, args []string) error

	// Probe returns JSON metadata for an input file
	Probe(ctx context.Context, inputPath string) ([]byte, error)
}

// StorageProvider abstracts filesystem operations
type StorageProvider interface {
	// Exists checks if a file exists
	Exists(ctx context.Context, path string) (bool, error)

	// Size returns file size in bytes
	Size(ctx context.Context, path string) (int64, error)

	// Remove deletes a file
	Remove(ctx context.Context, path string) error

	// MkdirAll creates a directory and any missing parents, idempotently
	MkdirAll(ctx context.Context, path string) error

	// Copy duplicates src to dst and returns the bytes written
	Copy(ctx context.Context, src, dst string) (int64, error)

	// TempFile creates a temporary file with the given pattern and returns
	// its path
	TempFile(ctx context.Context, dir, pattern string) (string, error)

	// Rename moves a file to a new path
	Rename(ctx context.Context, oldPath, newPath string) error

	// CreationTime returns the file creation time, falling back to the
	// modification time where the platform does not record one
	CreationTime(ctx context.Context, path string) (time.Time, error)
}

// SpeedSource supplies one speed multiplier per top-level folder. The
// interactive prompter and the YAML file loader both implement it, keeping
// the pipeline free of any prompt I/O.
type SpeedSource interface {
	Speeds(rootName string, subfolders []string) (model.SpeedMap, error)
}

// Option is the functional option type
type Option func(*model.ProcessingOptions)

// WithOverwrite re-converts files whose output already exists
func WithOverwrite(enabled bool) Option {
	return func(o *model.ProcessingOptions) {
		o.Overwrite = enabled
	}
}

// WithTempoBounds overrides the supported range of a single tempo stage
func WithTempoBounds(min, max float64) Option {
	return func(o *model.ProcessingOptions) {
		if min > 0 && max >= min {
			o.TempoMin = min
			o.TempoMax = max
		}
	}
}

// WithMP3Quality sets the lame VBR quality scale for mp3 output
func WithMP3Quality(q int) Option {
	return func(o *model.ProcessingOptions) {
		o.MP3Quality = q
	}
}

// WithAACBitrate sets the target bitrate for m4a output, e.g. "192k"
func WithAACBitrate(bitrate string) Option {
	return func(o *model.ProcessingOptions) {
		if bitrate != "" {
			o.AACBitrate = bitrate
		}
	}
}

// WithTimeout bounds each external invocation. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(o *model.ProcessingOptions) {
		o.Timeout = d
	}
}

// WithRetry sets the per-strategy attempt count and backoff base delay
func WithRetry(attempts int, delay time.Duration) Option {
	return func(o *model.ProcessingOptions) {
		if attempts > 0 {
			o.Attempts = attempts
		}
		if delay > 0 {
			o.RetryDelay = delay
		}
	}
}
