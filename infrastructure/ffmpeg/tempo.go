package ffmpeg

import (
	"fmt"
	"strconv"
	"strings"

	pkgerrors "github.com/maciejjedrzejczyk/playbackmodifier/pkg/errors"
)

// A single atempo filter stage historically supports this range; anything
// outside it must be chained across multiple stages.
const (
	DefaultTempoMin = 0.5
	DefaultTempoMax = 2.0
)

// maxTempoStages caps the chain length so a degenerate speed cannot loop
const maxTempoStages = 16

// DecomposeTempo splits a target speed multiplier into a sequence of stage
// multipliers, each within [min, max], whose product equals speed. Greedy:
// divide by max (or min) until the remainder is in range.
func DecomposeTempo(speed, min, max float64) ([]float64, error) {
	if speed <= 0 {
		return nil, pkgerrors.NewValidationError("speed", speed, "speed must be positive")
	}
	if min <= 0 || max < min {
		return nil, pkgerrors.NewValidationError("tempoBounds", [2]float64{min, max}, "invalid tempo stage bounds")
	}

	var stages []float64
	remainder := speed

	for remainder > max || remainder < min {
		if len(stages) >= maxTempoStages {
			return nil, pkgerrors.NewValidationError("speed", speed, "speed not decomposable into tempo stages")
		}
		if remainder > max {
			stages = append(stages, max)
			remainder /= max
		} else {
			stages = append(stages, min)
			remainder /= min
		}
	}

	return append(stages, remainder), nil
}

// TempoFilter renders a stage sequence as an ffmpeg audio filter string,
// e.g. [2, 1.5] -> "atempo=2,atempo=1.5".
func TempoFilter(stages []float64) string {
	parts := make([]string, len(stages))
	for i, s := range stages {
		parts[i] = fmt.Sprintf("atempo=%s", strconv.FormatFloat(s, 'g', -1, 64))
	}
	return strings.Join(parts, ",")
}
