package model

import (
	"sort"
	"time"
)

// Format represents supported audio container formats
type Format string

const (
	FormatMP3 Format = "mp3"
	FormatM4A Format = "m4a"
)

// FormatForExt maps a lowercase file extension (with dot) to a Format
func FormatForExt(ext string) (Format, bool) {
	switch ext {
	case ".mp3":
		return FormatMP3, true
	case ".m4a":
		return FormatM4A, true
	default:
		return "", false
	}
}

// AudioFile is one discovered input file. Immutable after the scan.
type AudioFile struct {
	// Path is the absolute input path
	Path string

	// RelPath is the path relative to the input root, slash-separated
	RelPath string

	// TopFolder is the first segment of RelPath, or RootFolder for files
	// directly under the input root
	TopFolder string

	// Format is inferred from the file extension
	Format Format

	// CreatedAt is the file creation time, or the modification time on
	// platforms that do not expose a birth time
	CreatedAt time.Time
}

// RootFolder keys the input root itself in a SpeedMap
const RootFolder = ""

// SpeedMap maps a top-level folder name to its playback speed multiplier.
// Built once during configuration, read-only afterwards.
type SpeedMap map[string]float64

// Resolve returns the effective speed for a file living under the given
// top-level folder. Files directly under the root resolve to the root entry.
func (m SpeedMap) Resolve(topFolder string) (float64, bool) {
	if s, ok := m[topFolder]; ok {
		return s, true
	}
	s, ok := m[RootFolder]
	return s, ok
}

// Covers reports the subfolder names missing from the map. The root entry is
// always required.
func (m SpeedMap) Covers(subfolders []string) []string {
	var missing []string
	if _, ok := m[RootFolder]; !ok {
		missing = append(missing, RootFolder)
	}
	for _, name := range subfolders {
		if _, ok := m[name]; !ok {
			missing = append(missing, name)
		}
	}
	sort.Strings(missing)
	return missing
}

// ConversionJob pairs an AudioFile with its resolved speed and planned output
// path. Constructed and consumed per file.
type ConversionJob struct {
	ID         string
	Source     AudioFile
	OutputPath string
	Speed      float64
}

// ProcessingOptions holds all configuration for a run
type ProcessingOptions struct {
	// Overwrite re-converts files whose output already exists
	Overwrite bool

	// TempoMin and TempoMax bound a single atempo filter stage
	TempoMin float64
	TempoMax float64

	// MP3Quality is the lame VBR quality scale (0 best, 9 worst)
	MP3Quality int

	// AACBitrate is the target bitrate string for m4a output, e.g. "192k"
	AACBitrate string

	// Timeout bounds one external invocation. Zero means no timeout.
	Timeout time.Duration

	// Retry settings for a single strategy invocation
	Attempts   int
	RetryDelay time.Duration
}

// DefaultProcessingOptions returns the observed tool defaults
func DefaultProcessingOptions() *ProcessingOptions {
	return &ProcessingOptions{
		Overwrite:  false,
		TempoMin:   0.5,
		TempoMax:   2.0,
		MP3Quality: 2,
		AACBitrate: "192k",
		Timeout:    0,
		Attempts:   1,
		RetryDelay: time.Second,
	}
}

// JobFailure records one file that exhausted every strategy
type JobFailure struct {
	InputPath string
	Err       error
}

// RunResult aggregates the outcome counts of a whole run
type RunResult struct {
	Attempted int
	Succeeded int
	Failed    int
	Skipped   int
	Failures  []JobFailure
}
