package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/maciejjedrzejczyk/playbackmodifier/domain/model"
	"github.com/maciejjedrzejczyk/playbackmodifier/internal/mocks"
	pkgerrors "github.com/maciejjedrzejczyk/playbackmodifier/pkg/errors"
	"github.com/maciejjedrzejczyk/playbackmodifier/pkg/logger"
	"github.com/maciejjedrzejczyk/playbackmodifier/pkg/report"
)

func testJob(format model.Format, speed float64) model.ConversionJob {
	ext := "." + string(format)
	return model.ConversionJob{
		ID: "job-1",
		Source: model.AudioFile{
			Path:      "/input/episode" + ext,
			RelPath:   "episode" + ext,
			Format:    format,
			CreatedAt: time.Date(2023, 5, 15, 0, 0, 0, 0, time.UTC),
		},
		OutputPath: "/output/2023-05-15-episode" + ext,
		Speed:      speed,
	}
}

func newTestPipeline(engine *mocks.MockTranscodeEngine, store *mocks.MockStorageProvider, checker *mocks.MockChecker) *Pipeline {
	return NewPipeline(engine, store, checker, logger.Nop())
}

func TestConvertPrimaryMP3Args(t *testing.T) {
	engine := &mocks.MockTranscodeEngine{}
	p := newTestPipeline(engine, &mocks.MockStorageProvider{}, &mocks.MockChecker{})

	res, err := p.Convert(context.Background(), testJob(model.FormatMP3, 1.5), model.DefaultProcessingOptions())
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if res.Strategy != "full" || res.Status != report.StatusConverted {
		t.Errorf("got strategy=%q status=%q, want full/converted", res.Strategy, res.Status)
	}

	if len(engine.ExecutedArgs) != 1 {
		t.Fatalf("expected 1 invocation, got %d", len(engine.ExecutedArgs))
	}
	args := engine.ExecutedArgs[0]

	for _, pair := range [][2]string{
		{"-i", "/input/episode.mp3"},
		{"-map", "0:a"},
		{"-filter:a", "atempo=1.5"},
		{"-c:a", "libmp3lame"},
		{"-q:a", "2"},
		{"-map_metadata", "0"},
		{"-id3v2_version", "3"},
	} {
		assertArgPair(t, args, pair[0], pair[1])
	}
	if args[len(args)-1] != "/output/2023-05-15-episode.mp3" {
		t.Errorf("last arg = %q, want output path", args[len(args)-1])
	}
}

func TestConvertPrimaryM4AArgs(t *testing.T) {
	engine := &mocks.MockTranscodeEngine{}
	p := newTestPipeline(engine, &mocks.MockStorageProvider{}, &mocks.MockChecker{})

	if _, err := p.Convert(context.Background(), testJob(model.FormatM4A, 1.8), model.DefaultProcessingOptions()); err != nil {
		t.Fatalf("Convert: %v", err)
	}

	args := engine.ExecutedArgs[0]
	assertArgPair(t, args, "-c:a", "aac")
	assertArgPair(t, args, "-b:a", "192k")
	if slices.Contains(args, "-id3v2_version") {
		t.Error("m4a invocation must not carry -id3v2_version")
	}
}

func TestConvertChainsTempoStages(t *testing.T) {
	engine := &mocks.MockTranscodeEngine{}
	p := newTestPipeline(engine, &mocks.MockStorageProvider{}, &mocks.MockChecker{})

	if _, err := p.Convert(context.Background(), testJob(model.FormatMP3, 3.0), model.DefaultProcessingOptions()); err != nil {
		t.Fatalf("Convert: %v", err)
	}
	assertArgPair(t, engine.ExecutedArgs[0], "-filter:a", "atempo=2,atempo=1.5")
}

func TestConvertFallsBackWhenPrimaryFails(t *testing.T) {
	engine := &mocks.MockTranscodeEngine{
		ExecuteFunc: func(_ context.Context, args []string) error {
			if slices.Contains(args, "-map_metadata") {
				return fmt.Errorf("metadata mapping exploded")
			}
			return nil
		},
	}
	store := &mocks.MockStorageProvider{}
	p := newTestPipeline(engine, store, &mocks.MockChecker{})

	job := testJob(model.FormatMP3, 1.5)
	res, err := p.Convert(context.Background(), job, model.DefaultProcessingOptions())
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if res.Strategy != "no-metadata" || res.Status != report.StatusDegraded {
		t.Errorf("got strategy=%q status=%q, want no-metadata/degraded", res.Strategy, res.Status)
	}

	// the failed attempt's partial output was cleared first
	if !slices.Contains(store.Removed, job.OutputPath) {
		t.Errorf("partial output not removed, removed=%v", store.Removed)
	}
}

func TestConvertRejectedOutputTriggersNextStrategy(t *testing.T) {
	var checks int
	checker := &mocks.MockChecker{
		CheckFunc: func(_ string, _ model.Format) error {
			checks++
			if checks <= 2 {
				return fmt.Errorf("output unrecognizable")
			}
			return nil
		},
	}
	engine := &mocks.MockTranscodeEngine{}
	p := newTestPipeline(engine, &mocks.MockStorageProvider{}, checker)

	res, err := p.Convert(context.Background(), testJob(model.FormatMP3, 1.5), model.DefaultProcessingOptions())
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if res.Strategy != "minimal" {
		t.Errorf("strategy = %q, want minimal", res.Strategy)
	}
}

func TestConvertIntermediateRenamesIntoPlace(t *testing.T) {
	const tmp = "/tmp/mock_temp_file.mp3"
	engine := &mocks.MockTranscodeEngine{
		ExecuteFunc: func(_ context.Context, args []string) error {
			if args[len(args)-1] == tmp {
				return nil
			}
			return fmt.Errorf("direct encode fails")
		},
	}
	store := &mocks.MockStorageProvider{}
	p := newTestPipeline(engine, store, &mocks.MockChecker{})

	job := testJob(model.FormatM4A, 1.5)
	res, err := p.Convert(context.Background(), job, model.DefaultProcessingOptions())
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if res.Strategy != "intermediate" {
		t.Fatalf("strategy = %q, want intermediate", res.Strategy)
	}
	if !slices.Contains(store.Renamed, [2]string{tmp, job.OutputPath}) {
		t.Errorf("temp file not renamed into place, renamed=%v", store.Renamed)
	}
}

// The intermediate temp file must be created in the output directory, not
// the system temp dir: os.Rename cannot cross filesystems.
func TestConvertIntermediateTempFileInOutputDir(t *testing.T) {
	engine := &mocks.MockTranscodeEngine{
		ExecuteFunc: func(_ context.Context, args []string) error {
			if args[len(args)-1] == "/tmp/mock_temp_file.mp3" {
				return nil
			}
			return fmt.Errorf("direct encode fails")
		},
	}
	store := &mocks.MockStorageProvider{}
	p := newTestPipeline(engine, store, &mocks.MockChecker{})

	job := testJob(model.FormatM4A, 1.5)
	if _, err := p.Convert(context.Background(), job, model.DefaultProcessingOptions()); err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if len(store.TempFileDirs) == 0 {
		t.Fatal("no temp file requested")
	}
	want := filepath.Dir(job.OutputPath)
	for _, dir := range store.TempFileDirs {
		if dir != want {
			t.Errorf("temp file dir = %q, want %q", dir, want)
		}
	}
}

func TestConvertCopiesUnmodifiedAsLastResort(t *testing.T) {
	engine := &mocks.MockTranscodeEngine{
		ExecuteFunc: func(_ context.Context, _ []string) error {
			return fmt.Errorf("ffmpeg always fails")
		},
	}
	store := &mocks.MockStorageProvider{}
	p := newTestPipeline(engine, store, &mocks.MockChecker{})

	job := testJob(model.FormatMP3, 1.5)
	res, err := p.Convert(context.Background(), job, model.DefaultProcessingOptions())
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if res.Strategy != "copy" || res.Status != report.StatusCopied {
		t.Errorf("got strategy=%q status=%q, want copy/copied", res.Strategy, res.Status)
	}
	if !slices.Contains(store.Copied, [2]string{job.Source.Path, job.OutputPath}) {
		t.Errorf("source not copied, copied=%v", store.Copied)
	}
}

func TestConvertAllStrategiesExhausted(t *testing.T) {
	engine := &mocks.MockTranscodeEngine{
		ExecuteFunc: func(_ context.Context, _ []string) error {
			return fmt.Errorf("ffmpeg always fails")
		},
	}
	store := &mocks.MockStorageProvider{
		CopyFunc: func(_ context.Context, _, _ string) (int64, error) {
			return 0, fmt.Errorf("disk full")
		},
	}
	p := newTestPipeline(engine, store, &mocks.MockChecker{})

	_, err := p.Convert(context.Background(), testJob(model.FormatMP3, 1.5), model.DefaultProcessingOptions())
	if err == nil {
		t.Fatal("expected error when every strategy fails")
	}

	convErr, ok := pkgerrors.As[*pkgerrors.ConversionError](err)
	if !ok {
		t.Fatalf("expected ConversionError, got %T: %v", err, err)
	}
	if len(convErr.Strategies) != 5 {
		t.Errorf("tried %d strategies, want 5: %v", len(convErr.Strategies), convErr.Strategies)
	}
}

func TestConvertRetriesWithinStrategy(t *testing.T) {
	var calls int
	engine := &mocks.MockTranscodeEngine{
		ExecuteFunc: func(_ context.Context, _ []string) error {
			calls++
			if calls == 1 {
				return fmt.Errorf("transient failure")
			}
			return nil
		},
	}
	p := newTestPipeline(engine, &mocks.MockStorageProvider{}, &mocks.MockChecker{})

	opts := model.DefaultProcessingOptions()
	opts.Attempts = 2
	opts.RetryDelay = time.Millisecond

	res, err := p.Convert(context.Background(), testJob(model.FormatMP3, 1.5), opts)
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if res.Strategy != "full" {
		t.Errorf("strategy = %q, want full after retry", res.Strategy)
	}
	if calls != 2 {
		t.Errorf("engine called %d times, want 2", calls)
	}
}

func TestConvertInvalidSpeed(t *testing.T) {
	p := newTestPipeline(&mocks.MockTranscodeEngine{}, &mocks.MockStorageProvider{}, &mocks.MockChecker{})

	_, err := p.Convert(context.Background(), testJob(model.FormatMP3, 0), model.DefaultProcessingOptions())
	if err == nil {
		t.Fatal("expected error for non-positive speed")
	}
	if _, ok := pkgerrors.As[*pkgerrors.ValidationError](err); !ok {
		t.Errorf("expected ValidationError, got %T: %v", err, err)
	}
}

func TestConvertHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := newTestPipeline(&mocks.MockTranscodeEngine{}, &mocks.MockStorageProvider{}, &mocks.MockChecker{})
	_, err := p.Convert(ctx, testJob(model.FormatMP3, 1.5), model.DefaultProcessingOptions())
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func assertArgPair(t *testing.T, args []string, flag, value string) {
	t.Helper()
	for i := 0; i < len(args)-1; i++ {
		if args[i] == flag && args[i+1] == value {
			return
		}
	}
	t.Errorf("args %v missing %q %q", args, flag, value)
}
