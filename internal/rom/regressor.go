package rom

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// ErrSingular reports a kernel system the solver could not factorize.
// Typically the training parameters contain duplicate rows, or the shape
// parameter has flattened the kernel matrix.
var ErrSingular = errors.New("rom: singular kernel matrix")

// Regressor learns a mapping from parameter rows to reduced-coordinate rows.
// Fit must fully reset internal state, so one instance can be refitted
// across cross-validation folds.
type Regressor interface {
	Fit(x, y *mat.Dense) error
	Predict(x *mat.Dense) (*mat.Dense, error)
	Name() string
}

// RegressorKind enumerates the supported regression strategies.
type RegressorKind int

const (
	RegressorRBF RegressorKind = iota
	RegressorGPR
	RegressorANN
	RegressorKNeighbors
	RegressorRadius
)

func (k RegressorKind) String() string {
	switch k {
	case RegressorRBF:
		return "RBF"
	case RegressorGPR:
		return "GPR"
	case RegressorANN:
		return "ANN"
	case RegressorKNeighbors:
		return "KNeighbors"
	case RegressorRadius:
		return "RadiusNeighbors"
	}
	return fmt.Sprintf("regressor(%d)", int(k))
}

// ParseRegressorKind maps a user-facing name to its kind.
func ParseRegressorKind(s string) (RegressorKind, error) {
	switch s {
	case "RBF":
		return RegressorRBF, nil
	case "GPR":
		return RegressorGPR, nil
	case "ANN":
		return RegressorANN, nil
	case "KNeighbors":
		return RegressorKNeighbors, nil
	case "RadiusNeighbors":
		return RegressorRadius, nil
	}
	return 0, fmt.Errorf("rom: unknown regressor %q", s)
}

// RegressorKinds lists every strategy in presentation order.
func RegressorKinds() []RegressorKind {
	return []RegressorKind{RegressorRBF, RegressorGPR, RegressorANN, RegressorKNeighbors, RegressorRadius}
}

// NewRegressor builds a strategy of the given kind with default options.
func NewRegressor(k RegressorKind) (Regressor, error) {
	switch k {
	case RegressorRBF:
		return NewRBF(RBFOptions{}), nil
	case RegressorGPR:
		return NewGPR(GPROptions{}), nil
	case RegressorANN:
		return NewANN(ANNOptions{}), nil
	case RegressorKNeighbors:
		return NewKNeighbors(KNeighborsOptions{}), nil
	case RegressorRadius:
		return NewRadiusNeighbors(RadiusOptions{}), nil
	}
	return nil, fmt.Errorf("rom: unknown regressor kind %d", int(k))
}

// euclidean returns the L2 distance between two equal-length rows.
func euclidean(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}

func checkFitShapes(x, y *mat.Dense) (rows, inDim, outDim int, err error) {
	if x == nil || y == nil {
		return 0, 0, 0, fmt.Errorf("rom: fit needs both inputs and targets")
	}
	rows, inDim = x.Dims()
	yRows, outDim := y.Dims()
	if rows != yRows {
		return 0, 0, 0, fmt.Errorf("rom: %d input rows but %d target rows", rows, yRows)
	}
	if rows == 0 {
		return 0, 0, 0, fmt.Errorf("rom: empty training set")
	}
	return rows, inDim, outDim, nil
}

func checkPredictShape(x *mat.Dense, inDim int) error {
	if x == nil {
		return fmt.Errorf("rom: predict needs input rows")
	}
	_, cols := x.Dims()
	if cols != inDim {
		return fmt.Errorf("rom: predict input has %d columns, model was fitted with %d", cols, inDim)
	}
	return nil
}
