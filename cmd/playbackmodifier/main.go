package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	playbackmodifier "github.com/maciejjedrzejczyk/playbackmodifier"
	"github.com/maciejjedrzejczyk/playbackmodifier/application/speed"
	"github.com/maciejjedrzejczyk/playbackmodifier/domain/ports"
	pkgerrors "github.com/maciejjedrzejczyk/playbackmodifier/pkg/errors"
	"github.com/maciejjedrzejczyk/playbackmodifier/pkg/logger"
	"github.com/maciejjedrzejczyk/playbackmodifier/pkg/report"
)

// envFFmpeg overrides the ffmpeg binary location when the -ffmpeg flag is
// not given.
const envFFmpeg = "PLAYBACKMODIFIER_FFMPEG"

func envFFmpegPath() string {
	return os.Getenv(envFFmpeg)
}

func main() {
	speedsFile := flag.String("speeds", "", "YAML file mapping folder names to speeds (skips interactive prompts)")
	overwrite := flag.Bool("overwrite", false, "re-convert files whose output already exists")
	ffmpegPath := flag.String("ffmpeg", envFFmpegPath(), "path to the ffmpeg binary (defaults to $"+envFFmpeg+", then PATH)")
	verbose := flag.Bool("v", false, "enable debug logging")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() != 2 {
		usage()
		os.Exit(2)
	}
	inputDir := flag.Arg(0)
	outputDir := flag.Arg(1)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log, err := logger.New(*verbose)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	processor, err := playbackmodifier.New(playbackmodifier.Config{
		FFmpegPath: *ffmpegPath,
		Logger:     log,
		Reporter:   report.NewConsoleReporter(os.Stdout),
	})
	if err != nil {
		fatal(err)
	}
	defer processor.Close()

	var source ports.SpeedSource
	if *speedsFile != "" {
		source = speed.NewFileSource(*speedsFile)
	} else {
		source = speed.NewPrompter(os.Stdin, os.Stdout)
	}

	var opts []ports.Option
	if *overwrite {
		opts = append(opts, playbackmodifier.WithOverwrite(true))
	}

	if _, err := processor.Run(ctx, inputDir, outputDir, source, opts...); err != nil {
		fatal(err)
	}
}

func fatal(err error) {
	switch {
	case errors.Is(err, pkgerrors.ErrToolNotFound):
		fmt.Fprintln(os.Stderr, "error: ffmpeg not found in PATH; install it, pass -ffmpeg or set "+envFFmpeg)
	case errors.Is(err, context.Canceled):
		fmt.Fprintln(os.Stderr, "interrupted")
	default:
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
	}
	os.Exit(1)
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: %s [flags] <input-dir> <output-dir>

Batch-converts the playback speed of .mp3 and .m4a files under <input-dir>,
preserving pitch and metadata. The output tree mirrors the input tree and
filenames gain a creation-date prefix (YYYY-MM-DD-<name>). One speed is
configured per top-level folder, interactively unless -speeds is given.

Flags:
`, os.Args[0])
	flag.PrintDefaults()
}
