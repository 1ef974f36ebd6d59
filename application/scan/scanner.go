package scan

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/maciejjedrzejczyk/playbackmodifier/domain/model"
	"github.com/maciejjedrzejczyk/playbackmodifier/domain/ports"
	pkgerrors "github.com/maciejjedrzejczyk/playbackmodifier/pkg/errors"
	"github.com/maciejjedrzejczyk/playbackmodifier/pkg/logger"
	"go.uber.org/zap"
)

// Result holds everything discovered under the input root
type Result struct {
	// RootName is the base name of the input root, used for prompts
	RootName string

	// Files are the supported audio files, ordered by relative path
	Files []model.AudioFile

	// Subfolders are the immediate child directory names of the root
	Subfolders []string

	// Failures are files that could not be inspected. They are excluded
	// from Files but must still show up in the run's failure summary.
	Failures []model.JobFailure
}

// Scanner walks the input tree collecting audio files and the set of
// top-level folders that need a speed entry.
type Scanner struct {
	storage ports.StorageProvider
	log     *logger.Logger
}

func NewScanner(storage ports.StorageProvider, log *logger.Logger) *Scanner {
	if log == nil {
		log = logger.Nop()
	}
	return &Scanner{storage: storage, log: log}
}

// Scan walks root recursively. Files with unsupported extensions are
// silently skipped; an empty tree yields an empty result. A missing or
// unreadable root is fatal.
func (s *Scanner) Scan(ctx context.Context, root string) (*Result, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, pkgerrors.NewInputError(root, "cannot resolve input directory", err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return nil, pkgerrors.NewInputError(abs, "input directory not found", err)
	}
	if !info.IsDir() {
		return nil, pkgerrors.NewInputError(abs, "input path is not a directory", nil)
	}

	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, pkgerrors.NewInputError(abs, "input directory not readable", err)
	}

	result := &Result{RootName: filepath.Base(abs)}
	for _, e := range entries {
		if e.IsDir() {
			result.Subfolders = append(result.Subfolders, e.Name())
		}
	}
	sort.Strings(result.Subfolders)

	err = filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			s.log.Warn("walk error", zap.String("path", path), zap.Error(err))
			return nil
		}
		if d.IsDir() {
			return nil
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}

		format, ok := model.FormatForExt(strings.ToLower(filepath.Ext(path)))
		if !ok {
			return nil
		}

		rel, err := filepath.Rel(abs, path)
		if err != nil {
			s.log.Warn("cannot relativize path", zap.String("path", path), zap.Error(err))
			return nil
		}
		rel = filepath.ToSlash(rel)

		created, err := s.storage.CreationTime(ctx, path)
		if err != nil {
			s.log.Warn("cannot read file times", zap.String("path", path), zap.Error(err))
			result.Failures = append(result.Failures, model.JobFailure{
				InputPath: path,
				Err:       pkgerrors.NewInputError(path, "cannot read file times", err),
			})
			return nil
		}

		result.Files = append(result.Files, model.AudioFile{
			Path:      path,
			RelPath:   rel,
			TopFolder: topFolder(rel),
			Format:    format,
			CreatedAt: created,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(result.Files, func(i, j int) bool {
		return result.Files[i].RelPath < result.Files[j].RelPath
	})

	s.log.Debug("scan complete",
		zap.String("root", abs),
		zap.Int("files", len(result.Files)),
		zap.Int("subfolders", len(result.Subfolders)),
	)

	return result, nil
}

// topFolder returns the first segment of a slash-separated relative path, or
// model.RootFolder for files directly under the root.
func topFolder(rel string) string {
	if i := strings.IndexByte(rel, '/'); i >= 0 {
		return rel[:i]
	}
	return model.RootFolder
}
