package metrics

import (
	"errors"
	"fmt"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// ThresholdKind selects how an error cutoff is derived.
type ThresholdKind int

const (
	// ThresholdStdMultiple cuts at mean + value*std of the error array.
	ThresholdStdMultiple ThresholdKind = iota
	// ThresholdPercentile cuts at the value-th percentile of the errors.
	ThresholdPercentile
	// ThresholdValue cuts at the literal value.
	ThresholdValue
)

func (k ThresholdKind) String() string {
	switch k {
	case ThresholdStdMultiple:
		return "std"
	case ThresholdPercentile:
		return "percentile"
	case ThresholdValue:
		return "value"
	}
	return fmt.Sprintf("threshold(%d)", int(k))
}

// ParseThresholdKind maps a user-facing name to its kind.
func ParseThresholdKind(s string) (ThresholdKind, error) {
	switch s {
	case "std":
		return ThresholdStdMultiple, nil
	case "percentile":
		return ThresholdPercentile, nil
	case "value":
		return ThresholdValue, nil
	}
	return 0, fmt.Errorf("metrics: unknown threshold kind %q", s)
}

// Threshold derives an error cutoff for two-class coloring. Value is the
// std multiplier, the percentile, or the literal cutoff depending on Kind.
type Threshold struct {
	Kind  ThresholdKind
	Value float64
}

// DefaultThreshold for each kind: one standard deviation above the mean,
// the 90th percentile, or a literal 0.1.
func DefaultThreshold(kind ThresholdKind) Threshold {
	switch kind {
	case ThresholdPercentile:
		return Threshold{Kind: kind, Value: 90}
	case ThresholdValue:
		return Threshold{Kind: kind, Value: 0.1}
	default:
		return Threshold{Kind: ThresholdStdMultiple, Value: 1.0}
	}
}

// Cutoff evaluates the threshold against an error array.
func (t Threshold) Cutoff(errs []float64) (float64, error) {
	if len(errs) == 0 {
		return 0, errors.New("metrics: threshold over empty errors")
	}
	switch t.Kind {
	case ThresholdStdMultiple:
		if t.Value < 0.5 || t.Value > 3.0 {
			return 0, fmt.Errorf("metrics: std multiplier %g outside [0.5, 3.0]", t.Value)
		}
		mean, std := stat.MeanStdDev(errs, nil)
		if len(errs) == 1 {
			std = 0
		}
		return mean + t.Value*std, nil
	case ThresholdPercentile:
		if t.Value < 50 || t.Value > 99 {
			return 0, fmt.Errorf("metrics: percentile %g outside [50, 99]", t.Value)
		}
		sorted := append([]float64(nil), errs...)
		sort.Float64s(sorted)
		return stat.Quantile(t.Value/100, stat.Empirical, sorted, nil), nil
	case ThresholdValue:
		return t.Value, nil
	}
	return 0, fmt.Errorf("metrics: unknown threshold kind %d", int(t.Kind))
}

// Mask partitions point indexes into those with error above the cutoff
// (exclusive) and the rest.
func Mask(errs []float64, cutoff float64) (above, below []int) {
	for i, e := range errs {
		if e > cutoff {
			above = append(above, i)
		} else {
			below = append(below, i)
		}
	}
	return above, below
}
