package gesture

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/ayusman/mudra/internal/landmark"
)

// Calibration limits. A recording must contain both held and released
// stretches for the distance distribution to separate into two bands.
const (
	minCalibrationSamples = 30
	minClusterSeparation  = 0.05
)

// Suggestion is a calibration result for one finger pair.
type Suggestion struct {
	Pair    Pair
	Enter   float64
	Exit    float64
	Low     float64 // 10th percentile of observed distances
	High    float64 // 90th percentile of observed distances
	Samples int
}

// CollectDistances extracts the pair's palm-normalized distance from every
// usable frame in a recording. Empty ticks and malformed frames are skipped.
func CollectDistances(frames []*landmark.Frame, p Pair) []float64 {
	var out []float64
	for _, f := range frames {
		if f == nil || f.Validate() != nil {
			continue
		}
		if f.PalmSpan() < minPalmSpan {
			continue
		}
		out = append(out, PairDistance(f, p))
	}
	return out
}

// Calibrate suggests enter/exit thresholds for one pair from recorded
// distances spanning both the held and the released gesture. The enter
// threshold lands in the lower third of the observed range and the exit at
// the midpoint, preserving enter < exit.
func Calibrate(p Pair, distances []float64) (Suggestion, error) {
	if len(distances) < minCalibrationSamples {
		return Suggestion{}, fmt.Errorf("need at least %d samples, got %d", minCalibrationSamples, len(distances))
	}

	sorted := make([]float64, len(distances))
	copy(sorted, distances)
	sort.Float64s(sorted)

	low := stat.Quantile(0.10, stat.Empirical, sorted, nil)
	high := stat.Quantile(0.90, stat.Empirical, sorted, nil)

	if high-low < minClusterSeparation {
		return Suggestion{}, fmt.Errorf("distances do not separate into held and released bands (p10=%.3f p90=%.3f); record both states", low, high)
	}

	return Suggestion{
		Pair:    p,
		Enter:   low + 0.30*(high-low),
		Exit:    low + 0.50*(high-low),
		Low:     low,
		High:    high,
		Samples: len(distances),
	}, nil
}
