// Package metrics evaluates predicted snapshots against held-out truth.
package metrics

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// AbsoluteError returns the per-point |truth - pred|.
func AbsoluteError(truth, pred []float64) ([]float64, error) {
	if len(truth) != len(pred) {
		return nil, fmt.Errorf("metrics: truth has %d points, prediction has %d", len(truth), len(pred))
	}
	if len(truth) == 0 {
		return nil, errors.New("metrics: empty snapshots")
	}
	out := make([]float64, len(truth))
	for i := range truth {
		out[i] = math.Abs(truth[i] - pred[i])
	}
	return out, nil
}

// RelativeError returns per-point |truth - pred| normalized by the mean of
// |truth|. When that mean is zero the absolute error is returned unscaled,
// so a near-silent true field never divides by zero.
func RelativeError(truth, pred []float64) ([]float64, error) {
	abs, err := AbsoluteError(truth, pred)
	if err != nil {
		return nil, err
	}
	var mean float64
	for _, t := range truth {
		mean += math.Abs(t)
	}
	mean /= float64(len(truth))
	if mean == 0 {
		return abs, nil
	}
	for i := range abs {
		abs[i] /= mean
	}
	return abs, nil
}

// MaxPoint returns the index and magnitude of the largest error. The index
// is -1 for an empty slice.
func MaxPoint(errs []float64) (int, float64) {
	idx, val := -1, math.Inf(-1)
	for i, e := range errs {
		if e > val {
			idx, val = i, e
		}
	}
	if idx == -1 {
		return -1, 0
	}
	return idx, val
}

// Summary aggregates an error array, either across the points of one
// validation snapshot or across cross-validation folds.
type Summary struct {
	Mean float64 `json:"mean"`
	Max  float64 `json:"max"`
	Min  float64 `json:"min"`
	Std  float64 `json:"std"`
}

// Summarize computes the summary statistics; Std is the sample standard
// deviation and zero for a single value.
func Summarize(values []float64) (Summary, error) {
	if len(values) == 0 {
		return Summary{}, errors.New("metrics: nothing to summarize")
	}
	s := Summary{
		Mean: stat.Mean(values, nil),
		Max:  floats.Max(values),
		Min:  floats.Min(values),
	}
	if len(values) > 1 {
		s.Std = stat.StdDev(values, nil)
	}
	return s, nil
}

// MeanRelativeError is the scalar used by cross-validation scoring: the
// mean of the guarded relative error over all points.
func MeanRelativeError(truth, pred []float64) (float64, error) {
	rel, err := RelativeError(truth, pred)
	if err != nil {
		return 0, err
	}
	return stat.Mean(rel, nil), nil
}
