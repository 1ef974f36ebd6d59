package ffmpeg

import (
	"bytes"
	"context"
	"os/exec"

	pkgerrors "github.com/maciejjedrzejczyk/playbackmodifier/pkg/errors"
	"github.com/maciejjedrzejczyk/playbackmodifier/pkg/logger"
	"go.uber.org/zap"
)

// Executor implements ports.TranscodeEngine by shelling out to ffmpeg
type Executor struct {
	ffmpegPath  string
	ffprobePath string
	log         *logger.Logger
}

// ExecutorConfig holds configuration for the executor
type ExecutorConfig struct {
	FFmpegPath  string
	FFprobePath string
	Logger      *logger.Logger
}

// NewExecutor resolves the ffmpeg and ffprobe binaries. A missing ffmpeg is
// fatal up front: no job in a batch can succeed without it.
func NewExecutor(cfg ExecutorConfig) (*Executor, error) {
	ffmpegPath := cfg.FFmpegPath
	if ffmpegPath == "" {
		var err error
		ffmpegPath, err = exec.LookPath("ffmpeg")
		if err != nil {
			return nil, pkgerrors.ErrToolNotFound
		}
	}

	ffprobePath := cfg.FFprobePath
	if ffprobePath == "" {
		// ffprobe is optional: it only feeds debug logging
		ffprobePath, _ = exec.LookPath("ffprobe")
	}

	log := cfg.Logger
	if log == nil {
		log = logger.Nop()
	}

	return &Executor{
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
		log:         log,
	}, nil
}

// Execute runs ffmpeg with the given arguments
func (e *Executor) Execute(ctx context.Context, args []string) error {
	cmd := exec.CommandContext(ctx, e.ffmpegPath, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	e.log.Debug("executing ffmpeg",
		zap.Strings("args", args),
	)

	if err := cmd.Run(); err != nil {
		exitCode := -1
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		}
		return pkgerrors.NewFFmpegError(
			"ffmpeg execution failed",
			args,
			exitCode,
			stderr.String(),
			err,
		)
	}

	return nil
}

// Probe runs ffprobe and returns JSON output
func (e *Executor) Probe(ctx context.Context, inputPath string) ([]byte, error) {
	if e.ffprobePath == "" {
		return nil, pkgerrors.ErrToolNotFound
	}

	args := []string{
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		inputPath,
	}

	cmd := exec.CommandContext(ctx, e.ffprobePath, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		exitCode := -1
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		}
		return nil, pkgerrors.NewFFmpegError(
			"ffprobe execution failed",
			args,
			exitCode,
			stderr.String(),
			err,
		)
	}

	return stdout.Bytes(), nil
}
