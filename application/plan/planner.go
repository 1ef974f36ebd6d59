package plan

import (
	"context"
	"path"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/maciejjedrzejczyk/playbackmodifier/domain/model"
	"github.com/maciejjedrzejczyk/playbackmodifier/domain/ports"
	pkgerrors "github.com/maciejjedrzejczyk/playbackmodifier/pkg/errors"
)

const datePrefixLayout = "2006-01-02"

// Planner derives each job's output path: the input's relative directory
// mirrored under the output root, with the filename prefixed by the file's
// creation date.
type Planner struct {
	outputRoot string
	storage    ports.StorageProvider
}

func NewPlanner(outputRoot string, storage ports.StorageProvider) *Planner {
	return &Planner{outputRoot: outputRoot, storage: storage}
}

// Plan builds the ConversionJob for a file at the given speed and creates
// the output subdirectory. A name that already starts with a date prefix
// still gets a new one prepended; that matches the observed behavior.
func (p *Planner) Plan(ctx context.Context, file model.AudioFile, speed float64) (model.ConversionJob, error) {
	relDir := path.Dir(file.RelPath)
	if relDir == "." {
		relDir = ""
	}

	name := file.CreatedAt.Format(datePrefixLayout) + "-" + path.Base(file.RelPath)
	outDir := filepath.Join(p.outputRoot, filepath.FromSlash(relDir))

	if err := p.storage.MkdirAll(ctx, outDir); err != nil {
		return model.ConversionJob{}, pkgerrors.NewOutputError(outDir, "cannot create output directory", err)
	}

	return model.ConversionJob{
		ID:         uuid.NewString(),
		Source:     file,
		OutputPath: filepath.Join(outDir, name),
		Speed:      speed,
	}, nil
}
