package scan

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/maciejjedrzejczyk/playbackmodifier/domain/model"
	"github.com/maciejjedrzejczyk/playbackmodifier/infrastructure/storage"
	"github.com/maciejjedrzejczyk/playbackmodifier/internal/mocks"
	pkgerrors "github.com/maciejjedrzejczyk/playbackmodifier/pkg/errors"
	"github.com/maciejjedrzejczyk/playbackmodifier/pkg/logger"
)

func newScanner() *Scanner {
	return NewScanner(storage.NewLocalStorage(), logger.Nop())
}

func writeFile(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte("audio"), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestScanCollectsSupportedFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "intro.mp3"))
	writeFile(t, filepath.Join(root, "notes.txt"))
	writeFile(t, filepath.Join(root, "Science Shows", "ep1.MP3"))
	writeFile(t, filepath.Join(root, "Science Shows", "deep", "nested.m4a"))
	if err := os.MkdirAll(filepath.Join(root, "Extra"), 0o755); err != nil {
		t.Fatalf("mkdir Extra: %v", err)
	}

	result, err := newScanner().Scan(context.Background(), root)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}

	if result.RootName != filepath.Base(root) {
		t.Errorf("RootName = %q, want %q", result.RootName, filepath.Base(root))
	}

	wantSub := []string{"Extra", "Science Shows"}
	if len(result.Subfolders) != len(wantSub) {
		t.Fatalf("Subfolders = %v, want %v", result.Subfolders, wantSub)
	}
	for i, name := range wantSub {
		if result.Subfolders[i] != name {
			t.Errorf("Subfolders[%d] = %q, want %q", i, result.Subfolders[i], name)
		}
	}

	wantFiles := []struct {
		rel    string
		top    string
		format model.Format
	}{
		{"Science Shows/deep/nested.m4a", "Science Shows", model.FormatM4A},
		{"Science Shows/ep1.MP3", "Science Shows", model.FormatMP3},
		{"intro.mp3", model.RootFolder, model.FormatMP3},
	}
	if len(result.Files) != len(wantFiles) {
		t.Fatalf("got %d files, want %d: %+v", len(result.Files), len(wantFiles), result.Files)
	}
	for i, want := range wantFiles {
		f := result.Files[i]
		if f.RelPath != want.rel {
			t.Errorf("file %d RelPath = %q, want %q", i, f.RelPath, want.rel)
		}
		if f.TopFolder != want.top {
			t.Errorf("file %d TopFolder = %q, want %q", i, f.TopFolder, want.top)
		}
		if f.Format != want.format {
			t.Errorf("file %d Format = %q, want %q", i, f.Format, want.format)
		}
		if f.CreatedAt.IsZero() {
			t.Errorf("file %d has zero CreatedAt", i)
		}
		if !filepath.IsAbs(f.Path) {
			t.Errorf("file %d Path %q is not absolute", i, f.Path)
		}
	}
}

func TestScanRecordsUninspectableFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "good.mp3"))
	writeFile(t, filepath.Join(root, "locked.mp3"))

	store := &mocks.MockStorageProvider{
		CreationTimeFunc: func(_ context.Context, path string) (time.Time, error) {
			if strings.Contains(path, "locked") {
				return time.Time{}, errors.New("stat: permission denied")
			}
			return time.Date(2023, 5, 15, 0, 0, 0, 0, time.UTC), nil
		},
	}

	result, err := NewScanner(store, logger.Nop()).Scan(context.Background(), root)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}

	if len(result.Files) != 1 || result.Files[0].RelPath != "good.mp3" {
		t.Fatalf("Files = %+v, want only good.mp3", result.Files)
	}
	if len(result.Failures) != 1 {
		t.Fatalf("Failures = %+v, want exactly one", result.Failures)
	}
	f := result.Failures[0]
	if !strings.Contains(f.InputPath, "locked.mp3") {
		t.Errorf("failure path = %q, want locked.mp3", f.InputPath)
	}
	if f.Err == nil {
		t.Error("failure carries no error")
	}
}

func TestScanEmptyDirectory(t *testing.T) {
	result, err := newScanner().Scan(context.Background(), t.TempDir())
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(result.Files) != 0 {
		t.Errorf("expected no files, got %d", len(result.Files))
	}
	if len(result.Subfolders) != 0 {
		t.Errorf("expected no subfolders, got %v", result.Subfolders)
	}
}

func TestScanMissingRoot(t *testing.T) {
	_, err := newScanner().Scan(context.Background(), filepath.Join(t.TempDir(), "missing"))
	if err == nil {
		t.Fatal("expected error for missing root")
	}
	if _, ok := pkgerrors.As[*pkgerrors.InputError](err); !ok {
		t.Errorf("expected InputError, got %T: %v", err, err)
	}
}

func TestScanRootIsFile(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "file.mp3")
	writeFile(t, path)

	_, err := newScanner().Scan(context.Background(), path)
	if err == nil {
		t.Fatal("expected error for file root")
	}
	if _, ok := pkgerrors.As[*pkgerrors.InputError](err); !ok {
		t.Errorf("expected InputError, got %T: %v", err, err)
	}
}
