package schedule

import (
	"fmt"
	"math"

	"github.com/aretw0/curriculum/pkg/domain"
)

// rangeTolerance absorbs floating point drift when stepping towards max.
const rangeTolerance = 1e-9

// MaxRangeCheckpoints bounds the number of checkpoints Range generates.
const MaxRangeCheckpoints = 100000

// Range returns start, start+step, ... up to and including max.
// When includeMax is set and the stepping does not land on max, max is appended.
func Range(start, step, max float64, includeMax bool) ([]float64, error) {
	if !(start > 0) || !(step > 0) || start > max || math.IsInf(max, 0) {
		return nil, fmt.Errorf("%w: range start=%g step=%g max=%g", domain.ErrInvalidSchedule, start, step, max)
	}

	// Smaller steps would collapse into duplicates once rounded.
	if step < 10*rangeTolerance {
		return nil, fmt.Errorf("%w: range step %g is below %g", domain.ErrInvalidSchedule, step, 10*rangeTolerance)
	}
	count := math.Floor((max-start)/step+rangeTolerance) + 1
	if count > MaxRangeCheckpoints {
		return nil, fmt.Errorf("%w: range start=%g step=%g max=%g yields %.0f checkpoints, limit %d",
			domain.ErrInvalidSchedule, start, step, max, count, MaxRangeCheckpoints)
	}

	out := make([]float64, 0, int(count)+1)
	for i := 0; ; i++ {
		v := start + float64(i)*step
		if v > max+rangeTolerance {
			break
		}
		if math.Abs(v-max) <= rangeTolerance {
			v = max
		}
		out = append(out, round(v))
	}

	if includeMax && out[len(out)-1] < max {
		out = append(out, max)
	}
	return out, nil
}

func round(v float64) float64 {
	return math.Round(v*1e9) / 1e9
}
