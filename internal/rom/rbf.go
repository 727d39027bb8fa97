package rom

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// RBFBasis names a radial basis function. Distances are scaled by the
// shape parameter epsilon where the function calls for it.
type RBFBasis int

const (
	RBFMultiquadric RBFBasis = iota
	RBFInverse
	RBFGaussian
	RBFLinear
	RBFCubic
	RBFQuintic
	RBFThinPlate
)

func (k RBFBasis) String() string {
	switch k {
	case RBFMultiquadric:
		return "multiquadric"
	case RBFInverse:
		return "inverse"
	case RBFGaussian:
		return "gaussian"
	case RBFLinear:
		return "linear"
	case RBFCubic:
		return "cubic"
	case RBFQuintic:
		return "quintic"
	case RBFThinPlate:
		return "thin_plate"
	}
	return fmt.Sprintf("rbf(%d)", int(k))
}

// ParseRBFBasis maps a user-facing basis name to its constant.
func ParseRBFBasis(s string) (RBFBasis, error) {
	switch s {
	case "multiquadric":
		return RBFMultiquadric, nil
	case "inverse":
		return RBFInverse, nil
	case "gaussian":
		return RBFGaussian, nil
	case "linear":
		return RBFLinear, nil
	case "cubic":
		return RBFCubic, nil
	case "quintic":
		return RBFQuintic, nil
	case "thin_plate":
		return RBFThinPlate, nil
	}
	return 0, fmt.Errorf("rom: unknown RBF basis %q", s)
}

// RBFBases lists every basis function in presentation order.
func RBFBases() []RBFBasis {
	return []RBFBasis{RBFMultiquadric, RBFInverse, RBFGaussian, RBFLinear, RBFCubic, RBFQuintic, RBFThinPlate}
}

func (k RBFBasis) eval(r, epsilon float64) float64 {
	switch k {
	case RBFMultiquadric:
		s := r / epsilon
		return math.Sqrt(s*s + 1)
	case RBFInverse:
		s := r / epsilon
		return 1 / math.Sqrt(s*s+1)
	case RBFGaussian:
		s := r / epsilon
		return math.Exp(-s * s)
	case RBFLinear:
		return r
	case RBFCubic:
		return r * r * r
	case RBFQuintic:
		return r * r * r * r * r
	case RBFThinPlate:
		if r == 0 {
			return 0
		}
		return r * r * math.Log(r)
	}
	return 0
}

// RBFOptions configures the interpolator. Zero values take the documented
// defaults.
type RBFOptions struct {
	// Kernel selects the basis function. Default multiquadric.
	Kernel RBFBasis
	// Epsilon is the kernel shape parameter. Default 0.02.
	Epsilon float64
	// Smoothing relaxes exact interpolation by adding to the system's
	// diagonal. Zero interpolates the training data exactly.
	Smoothing float64
}

func (o RBFOptions) withDefaults() RBFOptions {
	if o.Epsilon == 0 {
		o.Epsilon = 0.02
	}
	return o
}

// RBF interpolates reduced coordinates with radial basis functions centered
// on the training parameters.
type RBF struct {
	opts RBFOptions

	centers *mat.Dense
	weights *mat.Dense
	inDim   int
}

// NewRBF builds an RBF interpolator with the given options.
func NewRBF(opts RBFOptions) *RBF {
	return &RBF{opts: opts.withDefaults()}
}

func (r *RBF) Name() string { return "RBF" }

// Kernel reports the configured basis function.
func (r *RBF) Kernel() RBFBasis { return r.opts.Kernel }

// Fit solves (K + smoothing·I) W = Y for the interpolation weights, where
// K holds pairwise kernel values over the training parameters. A singular
// system is reported as an error.
func (r *RBF) Fit(x, y *mat.Dense) error {
	rows, inDim, _, err := checkFitShapes(x, y)
	if err != nil {
		return fmt.Errorf("rom: RBF: %w", err)
	}

	k := mat.NewDense(rows, rows, nil)
	for i := 0; i < rows; i++ {
		for j := i; j < rows; j++ {
			v := r.opts.Kernel.eval(euclidean(x.RawRowView(i), x.RawRowView(j)), r.opts.Epsilon)
			if i == j {
				v += r.opts.Smoothing
			}
			k.Set(i, j, v)
			k.Set(j, i, v)
		}
	}

	var w mat.Dense
	if err := w.Solve(k, y); err != nil {
		return fmt.Errorf("rom: RBF: %w (kernel %s, epsilon %g): %v",
			ErrSingular, r.opts.Kernel, r.opts.Epsilon, err)
	}

	centers := mat.NewDense(rows, inDim, nil)
	centers.Copy(x)
	r.centers = centers
	r.weights = &w
	r.inDim = inDim
	return nil
}

func (r *RBF) Predict(x *mat.Dense) (*mat.Dense, error) {
	if r.centers == nil {
		return nil, fmt.Errorf("rom: RBF: Predict before Fit")
	}
	if err := checkPredictShape(x, r.inDim); err != nil {
		return nil, fmt.Errorf("rom: RBF: %w", err)
	}
	queries, _ := x.Dims()
	centers, _ := r.centers.Dims()

	k := mat.NewDense(queries, centers, nil)
	for i := 0; i < queries; i++ {
		for j := 0; j < centers; j++ {
			k.Set(i, j, r.opts.Kernel.eval(
				euclidean(x.RawRowView(i), r.centers.RawRowView(j)), r.opts.Epsilon))
		}
	}

	_, outDim := r.weights.Dims()
	out := mat.NewDense(queries, outDim, nil)
	out.Mul(k, r.weights)
	return out, nil
}
