package validate

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dhowden/tag"
	"github.com/tcolgate/mp3"

	"github.com/maciejjedrzejczyk/playbackmodifier/domain/model"
)

var id3Magic = []byte("ID3")

// Checker sanity-checks produced output files before a conversion strategy is
// accepted, and reads source tags for reporting.
type Checker struct{}

func NewChecker() *Checker {
	return &Checker{}
}

// Check verifies that path holds a plausible non-empty audio file of the
// given format. A zero-byte or unrecognizable file fails the check so the
// pipeline moves on to the next fallback strategy.
func (c *Checker) Check(path string, format model.Format) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("output missing: %w", err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("output is empty: %s", path)
	}

	head := make([]byte, 12)
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("output unreadable: %w", err)
	}
	n, _ := io.ReadFull(f, head)
	f.Close()
	head = head[:n]

	if sniff(head, format) {
		return nil
	}

	// Header sniffing is deliberately loose; let the tag parser have the
	// final word before rejecting.
	if _, err := c.readTags(path); err == nil {
		return nil
	}

	return fmt.Errorf("output does not look like %s: %s", format, path)
}

func sniff(head []byte, format model.Format) bool {
	switch format {
	case model.FormatMP3:
		if bytes.HasPrefix(head, id3Magic) {
			return true
		}
		// bare MPEG audio frame sync
		return len(head) >= 2 && head[0] == 0xFF && head[1]&0xE0 == 0xE0
	case model.FormatM4A:
		return len(head) >= 8 && bytes.Equal(head[4:8], []byte("ftyp"))
	default:
		return false
	}
}

// Title returns the tagged title of an audio file, or the empty string when
// the file carries no readable tags. Best effort, used for log lines only.
func (c *Checker) Title(path string) string {
	meta, err := c.readTags(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(meta.Title())
}

func (c *Checker) readTags(path string) (tag.Metadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return tag.ReadFrom(f)
}

// MP3Duration sums the frame durations of an mp3 file. Used to log how long
// the converted output plays for.
func (c *Checker) MP3Duration(path string) (float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	decoder := mp3.NewDecoder(f)
	var frame mp3.Frame
	var skipped int
	var total float64

	for {
		err := decoder.Decode(&frame, &skipped)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return 0, err
		}
		total += frame.Duration().Seconds()
	}

	return total, nil
}
