package mocks

import (
	"context"
	"encoding/json"
	"time"

	"github.com/maciejjedrzejczyk/playbackmodifier/domain/model"
	"github.com/maciejjedrzejczyk/playbackmodifier/pkg/report"
)

// MockTranscodeEngine is a test double for ports.TranscodeEngine
type MockTranscodeEngine struct {
	ExecuteFunc  func(ctx context.Context, args []string) error
	ProbeFunc    func(ctx context.Context, inputPath string) ([]byte, error)
	ExecutedArgs [][]string
}

func (m *MockTranscodeEngine) Execute(ctx context.Context, args []string) error {
	m.ExecutedArgs = append(m.ExecutedArgs, args)
	if m.ExecuteFunc != nil {
		return m.ExecuteFunc(ctx, args)
	}
	return nil
}

func (m *MockTranscodeEngine) Probe(ctx context.Context, inputPath string) ([]byte, error) {
	if m.ProbeFunc != nil {
		return m.ProbeFunc(ctx, inputPath)
	}
	return DefaultProbeResponse(), nil
}

// DefaultProbeResponse is a plausible ffprobe JSON payload
func DefaultProbeResponse() []byte {
	resp := map[string]interface{}{
		"format": map[string]interface{}{
			"duration":    "1830.2",
			"bit_rate":    "128000",
			"size":        "29283200",
			"format_name": "mp3",
		},
		"streams": []map[string]interface{}{
			{
				"codec_name":  "mp3",
				"sample_rate": "44100",
				"channels":    2,
				"bit_rate":    "128000",
			},
		},
	}
	b, _ := json.Marshal(resp)
	return b
}

// MockStorageProvider is a test double for ports.StorageProvider
type MockStorageProvider struct {
	ExistsFunc       func(ctx context.Context, path string) (bool, error)
	SizeFunc         func(ctx context.Context, path string) (int64, error)
	RemoveFunc       func(ctx context.Context, path string) error
	MkdirAllFunc     func(ctx context.Context, path string) error
	CopyFunc         func(ctx context.Context, src, dst string) (int64, error)
	TempFileFunc     func(ctx context.Context, dir, pattern string) (string, error)
	RenameFunc       func(ctx context.Context, oldPath, newPath string) error
	CreationTimeFunc func(ctx context.Context, path string) (time.Time, error)

	Removed      []string
	Copied       [][2]string
	Renamed      [][2]string
	TempFileDirs []string
}

func (m *MockStorageProvider) Exists(ctx context.Context, path string) (bool, error) {
	if m.ExistsFunc != nil {
		return m.ExistsFunc(ctx, path)
	}
	return true, nil
}

func (m *MockStorageProvider) Size(ctx context.Context, path string) (int64, error) {
	if m.SizeFunc != nil {
		return m.SizeFunc(ctx, path)
	}
	return 1024, nil
}

func (m *MockStorageProvider) Remove(ctx context.Context, path string) error {
	m.Removed = append(m.Removed, path)
	if m.RemoveFunc != nil {
		return m.RemoveFunc(ctx, path)
	}
	return nil
}

func (m *MockStorageProvider) MkdirAll(ctx context.Context, path string) error {
	if m.MkdirAllFunc != nil {
		return m.MkdirAllFunc(ctx, path)
	}
	return nil
}

func (m *MockStorageProvider) Copy(ctx context.Context, src, dst string) (int64, error) {
	m.Copied = append(m.Copied, [2]string{src, dst})
	if m.CopyFunc != nil {
		return m.CopyFunc(ctx, src, dst)
	}
	return 1024, nil
}

func (m *MockStorageProvider) TempFile(ctx context.Context, dir, pattern string) (string, error) {
	m.TempFileDirs = append(m.TempFileDirs, dir)
	if m.TempFileFunc != nil {
		return m.TempFileFunc(ctx, dir, pattern)
	}
	return "/tmp/mock_temp_file.mp3", nil
}

func (m *MockStorageProvider) Rename(ctx context.Context, oldPath, newPath string) error {
	m.Renamed = append(m.Renamed, [2]string{oldPath, newPath})
	if m.RenameFunc != nil {
		return m.RenameFunc(ctx, oldPath, newPath)
	}
	return nil
}

func (m *MockStorageProvider) CreationTime(ctx context.Context, path string) (time.Time, error) {
	if m.CreationTimeFunc != nil {
		return m.CreationTimeFunc(ctx, path)
	}
	return time.Date(2023, 5, 15, 9, 30, 0, 0, time.UTC), nil
}

// MockChecker is a test double for pipeline.Checker
type MockChecker struct {
	CheckFunc    func(path string, format model.Format) error
	TitleFunc    func(path string) string
	DurationFunc func(path string) (float64, error)
}

func (m *MockChecker) Check(path string, format model.Format) error {
	if m.CheckFunc != nil {
		return m.CheckFunc(path, format)
	}
	return nil
}

func (m *MockChecker) Title(path string) string {
	if m.TitleFunc != nil {
		return m.TitleFunc(path)
	}
	return ""
}

func (m *MockChecker) MP3Duration(path string) (float64, error) {
	if m.DurationFunc != nil {
		return m.DurationFunc(path)
	}
	return 0, nil
}

// MockSpeedSource returns a fixed SpeedMap
type MockSpeedSource struct {
	Map model.SpeedMap
	Err error
}

func (m *MockSpeedSource) Speeds(_ string, _ []string) (model.SpeedMap, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Map, nil
}

// CaptureReporter records outcomes and the summary for assertions
type CaptureReporter struct {
	Outcomes  []report.Outcome
	Summaries []report.Summary
}

func (c *CaptureReporter) Outcome(o report.Outcome) {
	c.Outcomes = append(c.Outcomes, o)
}

func (c *CaptureReporter) Summary(s report.Summary) {
	c.Summaries = append(c.Summaries, s)
}
