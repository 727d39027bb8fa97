package rom

import (
	"errors"
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// ErrNoNeighbors reports a radius query that found no training point within
// the configured radius.
var ErrNoNeighbors = errors.New("rom: no neighbors within radius")

// Weighting selects how neighbor targets are combined.
type Weighting int

const (
	// WeightDistance weighs each neighbor by inverse distance; an exact
	// parameter match takes all the weight.
	WeightDistance Weighting = iota
	// WeightUniform averages neighbors equally.
	WeightUniform
)

func (w Weighting) String() string {
	switch w {
	case WeightDistance:
		return "distance"
	case WeightUniform:
		return "uniform"
	}
	return fmt.Sprintf("weighting(%d)", int(w))
}

// ParseWeighting maps a user-facing name to its Weighting.
func ParseWeighting(s string) (Weighting, error) {
	switch s {
	case "distance":
		return WeightDistance, nil
	case "uniform":
		return WeightUniform, nil
	}
	return 0, fmt.Errorf("rom: unknown weighting %q", s)
}

// Weightings lists the neighbor weightings in presentation order.
func Weightings() []Weighting {
	return []Weighting{WeightDistance, WeightUniform}
}

type neighbor struct {
	index    int
	distance float64
}

// combine averages the targets of the given neighbors under the weighting.
// Exact matches (distance zero) shadow every other neighbor under distance
// weighting.
func combine(y *mat.Dense, neighbors []neighbor, w Weighting, out []float64) {
	for i := range out {
		out[i] = 0
	}
	if w == WeightDistance {
		var exact []neighbor
		for _, nb := range neighbors {
			if nb.distance == 0 {
				exact = append(exact, nb)
			}
		}
		if len(exact) > 0 {
			for _, nb := range exact {
				row := y.RawRowView(nb.index)
				for i := range out {
					out[i] += row[i] / float64(len(exact))
				}
			}
			return
		}
		var total float64
		for _, nb := range neighbors {
			total += 1 / nb.distance
		}
		for _, nb := range neighbors {
			weight := (1 / nb.distance) / total
			row := y.RawRowView(nb.index)
			for i := range out {
				out[i] += weight * row[i]
			}
		}
		return
	}
	for _, nb := range neighbors {
		row := y.RawRowView(nb.index)
		for i := range out {
			out[i] += row[i] / float64(len(neighbors))
		}
	}
}

// KNeighborsOptions configures k-nearest-neighbor regression. Zero values
// take the documented defaults.
type KNeighborsOptions struct {
	// K is the neighbor count. Default 5, clamped to the training size.
	K int
	// Weights combines neighbor targets. Default distance.
	Weights Weighting
}

func (o KNeighborsOptions) withDefaults() KNeighborsOptions {
	if o.K == 0 {
		o.K = 5
	}
	return o
}

// KNeighbors predicts by averaging the targets of the k nearest training
// parameters.
type KNeighbors struct {
	opts KNeighborsOptions

	x, y  *mat.Dense
	inDim int
}

// NewKNeighbors builds a k-nearest-neighbor regressor.
func NewKNeighbors(opts KNeighborsOptions) *KNeighbors {
	return &KNeighbors{opts: opts.withDefaults()}
}

func (k *KNeighbors) Name() string { return "KNeighbors" }

func (k *KNeighbors) Fit(x, y *mat.Dense) error {
	_, inDim, _, err := checkFitShapes(x, y)
	if err != nil {
		return fmt.Errorf("rom: KNeighbors: %w", err)
	}
	if k.opts.K < 1 {
		return fmt.Errorf("rom: KNeighbors: k must be positive, got %d", k.opts.K)
	}
	k.x, k.y = x, y
	k.inDim = inDim
	return nil
}

func (k *KNeighbors) Predict(x *mat.Dense) (*mat.Dense, error) {
	if k.x == nil {
		return nil, fmt.Errorf("rom: KNeighbors: Predict before Fit")
	}
	if err := checkPredictShape(x, k.inDim); err != nil {
		return nil, fmt.Errorf("rom: KNeighbors: %w", err)
	}
	queries, _ := x.Dims()
	train, _ := k.x.Dims()
	_, outDim := k.y.Dims()

	count := k.opts.K
	if count > train {
		count = train
	}

	out := mat.NewDense(queries, outDim, nil)
	row := make([]float64, outDim)
	for q := 0; q < queries; q++ {
		neighbors := make([]neighbor, train)
		for i := 0; i < train; i++ {
			neighbors[i] = neighbor{i, euclidean(x.RawRowView(q), k.x.RawRowView(i))}
		}
		sort.Slice(neighbors, func(a, b int) bool { return neighbors[a].distance < neighbors[b].distance })
		combine(k.y, neighbors[:count], k.opts.Weights, row)
		out.SetRow(q, row)
	}
	return out, nil
}

// RadiusOptions configures radius-neighbor regression. Zero values take the
// documented defaults.
type RadiusOptions struct {
	// Radius bounds the neighborhood (inclusive). Default 1.0.
	Radius float64
	// Weights combines neighbor targets. Default distance.
	Weights Weighting
}

func (o RadiusOptions) withDefaults() RadiusOptions {
	if o.Radius == 0 {
		o.Radius = 1.0
	}
	return o
}

// RadiusNeighbors predicts from every training parameter within a fixed
// radius of the query. A query with an empty neighborhood is an error, not
// a NaN row.
type RadiusNeighbors struct {
	opts RadiusOptions

	x, y  *mat.Dense
	inDim int
}

// NewRadiusNeighbors builds a radius-neighbor regressor.
func NewRadiusNeighbors(opts RadiusOptions) *RadiusNeighbors {
	return &RadiusNeighbors{opts: opts.withDefaults()}
}

func (r *RadiusNeighbors) Name() string { return "RadiusNeighbors" }

func (r *RadiusNeighbors) Fit(x, y *mat.Dense) error {
	_, inDim, _, err := checkFitShapes(x, y)
	if err != nil {
		return fmt.Errorf("rom: RadiusNeighbors: %w", err)
	}
	if r.opts.Radius <= 0 {
		return fmt.Errorf("rom: RadiusNeighbors: radius must be positive, got %g", r.opts.Radius)
	}
	r.x, r.y = x, y
	r.inDim = inDim
	return nil
}

func (r *RadiusNeighbors) Predict(x *mat.Dense) (*mat.Dense, error) {
	if r.x == nil {
		return nil, fmt.Errorf("rom: RadiusNeighbors: Predict before Fit")
	}
	if err := checkPredictShape(x, r.inDim); err != nil {
		return nil, fmt.Errorf("rom: RadiusNeighbors: %w", err)
	}
	queries, _ := x.Dims()
	train, _ := r.x.Dims()
	_, outDim := r.y.Dims()

	out := mat.NewDense(queries, outDim, nil)
	row := make([]float64, outDim)
	for q := 0; q < queries; q++ {
		var neighbors []neighbor
		for i := 0; i < train; i++ {
			d := euclidean(x.RawRowView(q), r.x.RawRowView(i))
			if d <= r.opts.Radius {
				neighbors = append(neighbors, neighbor{i, d})
			}
		}
		if len(neighbors) == 0 {
			return nil, fmt.Errorf("%w: query row %d, radius %g", ErrNoNeighbors, q, r.opts.Radius)
		}
		combine(r.y, neighbors, r.opts.Weights, row)
		out.SetRow(q, row)
	}
	return out, nil
}
