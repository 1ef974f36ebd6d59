package speed

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/maciejjedrzejczyk/playbackmodifier/domain/model"
	pkgerrors "github.com/maciejjedrzejczyk/playbackmodifier/pkg/errors"
)

// Prompter implements ports.SpeedSource by asking for one speed per
// top-level folder on the given reader/writer pair. Invalid input re-prompts
// indefinitely.
type Prompter struct {
	in  *bufio.Scanner
	out io.Writer
}

func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{
		in:  bufio.NewScanner(in),
		out: out,
	}
}

// Speeds collects a speed for the root and every immediate subfolder
func (p *Prompter) Speeds(rootName string, subfolders []string) (model.SpeedMap, error) {
	speeds := make(model.SpeedMap, len(subfolders)+1)

	if len(subfolders) > 0 {
		fmt.Fprintln(p.out, "\nSetting playback speeds for each subfolder:")
		fmt.Fprintln(p.out, "-------------------------------------------")
	}

	root, err := p.ask(fmt.Sprintf("Enter playback speed for main folder '%s' (e.g., 1.5, 2.0): ", rootName))
	if err != nil {
		return nil, err
	}
	speeds[model.RootFolder] = root

	for _, name := range subfolders {
		s, err := p.ask(fmt.Sprintf("Enter playback speed for subfolder '%s' (e.g., 1.5, 2.0): ", name))
		if err != nil {
			return nil, err
		}
		speeds[name] = s
	}

	return speeds, nil
}

func (p *Prompter) ask(prompt string) (float64, error) {
	for {
		fmt.Fprint(p.out, prompt)
		if !p.in.Scan() {
			if err := p.in.Err(); err != nil {
				return 0, err
			}
			return 0, io.EOF
		}

		value, err := parseSpeed(strings.TrimSpace(p.in.Text()))
		if err != nil {
			fmt.Fprintf(p.out, "Invalid speed: %v\n", err)
			continue
		}
		return value, nil
	}
}

func parseSpeed(raw string) (float64, error) {
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, pkgerrors.NewValidationError("speed", raw, "enter a decimal number like 1.5")
	}
	if value <= 0 {
		return 0, pkgerrors.NewValidationError("speed", raw, "speed must be positive")
	}
	return value, nil
}

// fileConfig is the on-disk speeds file shape
type fileConfig struct {
	Root    float64            `yaml:"root"`
	Folders map[string]float64 `yaml:"folders"`
}

// FileSource implements ports.SpeedSource by loading a YAML speeds file.
// Unlike the prompter it fails fast: the file must cover the root and every
// scanned top-level folder with a positive value.
type FileSource struct {
	path string
}

func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

func (f *FileSource) Speeds(_ string, subfolders []string) (model.SpeedMap, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("read speeds file: %w", err)
	}

	var cfg fileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse speeds file %s: %w", f.path, err)
	}

	speeds := make(model.SpeedMap, len(cfg.Folders)+1)
	if cfg.Root > 0 {
		speeds[model.RootFolder] = cfg.Root
	}
	for name, value := range cfg.Folders {
		if value <= 0 {
			return nil, pkgerrors.NewValidationError("folders."+name, value, "speed must be positive")
		}
		speeds[name] = value
	}

	if missing := speeds.Covers(subfolders); len(missing) > 0 {
		for i, name := range missing {
			if name == model.RootFolder {
				missing[i] = "root"
			}
		}
		return nil, fmt.Errorf("speeds file %s missing entries for: %s", f.path, strings.Join(missing, ", "))
	}

	return speeds, nil
}
