package rom

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestRBFInterpolatesTrainingPoints(t *testing.T) {
	// Interpolation must reproduce the training targets exactly at the
	// training parameters for every basis function.
	x := mat.NewDense(3, 1, []float64{0, 0.5, 2})
	y := mat.NewDense(3, 2, []float64{
		1, -1,
		3, 0,
		2, 5,
	})

	for _, basis := range RBFBases() {
		t.Run(basis.String(), func(t *testing.T) {
			r := NewRBF(RBFOptions{Kernel: basis, Epsilon: 0.8})
			if err := r.Fit(x, y); err != nil {
				t.Fatalf("Fit: %v", err)
			}
			pred, err := r.Predict(x)
			if err != nil {
				t.Fatalf("Predict: %v", err)
			}
			if d := maxAbsDiff(y, pred); d > 1e-6 {
				t.Errorf("training-point error %g with basis %s", d, basis)
			}
		})
	}
}

func TestRBFDefaults(t *testing.T) {
	r := NewRBF(RBFOptions{})
	if r.Kernel() != RBFMultiquadric {
		t.Errorf("default basis = %v, want multiquadric", r.Kernel())
	}
	if r.opts.Epsilon != 0.02 {
		t.Errorf("default epsilon = %v, want 0.02", r.opts.Epsilon)
	}
}

func TestRBFSingularSystem(t *testing.T) {
	// Duplicate parameters make the kernel matrix singular for the linear
	// basis; the failure must surface as ErrSingular.
	x := mat.NewDense(3, 1, []float64{1, 1, 2})
	y := mat.NewDense(3, 1, []float64{1, 2, 3})
	r := NewRBF(RBFOptions{Kernel: RBFLinear, Epsilon: 1})
	err := r.Fit(x, y)
	if err == nil {
		t.Fatal("expected singular kernel matrix error")
	}
	if !errors.Is(err, ErrSingular) {
		t.Errorf("error %v does not wrap ErrSingular", err)
	}
}

func TestRBFSmoothingRelaxesInterpolation(t *testing.T) {
	x := mat.NewDense(3, 1, []float64{0, 1, 2})
	y := mat.NewDense(3, 1, []float64{0, 1, 0})

	r := NewRBF(RBFOptions{Kernel: RBFGaussian, Epsilon: 1, Smoothing: 0.5})
	if err := r.Fit(x, y); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	pred, err := r.Predict(x)
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if d := maxAbsDiff(y, pred); d < 1e-9 {
		t.Error("smoothed fit still interpolates exactly")
	}
}

func TestRBFPredictValidation(t *testing.T) {
	r := NewRBF(RBFOptions{})
	if _, err := r.Predict(mat.NewDense(1, 1, nil)); err == nil {
		t.Error("Predict before Fit must fail")
	}

	x := mat.NewDense(2, 1, []float64{0, 1})
	y := mat.NewDense(2, 1, []float64{1, 2})
	if err := r.Fit(x, y); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	if _, err := r.Predict(mat.NewDense(1, 2, nil)); err == nil {
		t.Error("expected input-width mismatch error")
	}
}

func TestRBFBasisValues(t *testing.T) {
	testCases := []struct {
		basis   RBFBasis
		r, eps  float64
		want    float64
	}{
		{RBFMultiquadric, 3, 1, math.Sqrt(10)},
		{RBFInverse, 3, 1, 1 / math.Sqrt(10)},
		{RBFGaussian, 2, 2, math.Exp(-1)},
		{RBFLinear, 7, 0.5, 7},
		{RBFCubic, 2, 1, 8},
		{RBFQuintic, 2, 1, 32},
		{RBFThinPlate, math.E, 1, math.E * math.E},
		{RBFThinPlate, 0, 1, 0},
	}
	for _, tc := range testCases {
		got := tc.basis.eval(tc.r, tc.eps)
		if math.Abs(got-tc.want) > 1e-12 {
			t.Errorf("%s.eval(%g, %g) = %g, want %g", tc.basis, tc.r, tc.eps, got, tc.want)
		}
	}
}

func TestParseRBFBasis(t *testing.T) {
	for _, basis := range RBFBases() {
		parsed, err := ParseRBFBasis(basis.String())
		if err != nil {
			t.Errorf("ParseRBFBasis(%q): %v", basis.String(), err)
			continue
		}
		if parsed != basis {
			t.Errorf("round trip %v -> %q -> %v", basis, basis.String(), parsed)
		}
	}
	if _, err := ParseRBFBasis("bump"); err == nil {
		t.Error("expected error for unknown basis")
	}
}
