package rom

import (
	"math"
	"strings"
	"testing"
)

func TestKernelValues(t *testing.T) {
	matern15, err := NewMaternKernel(1.0, 1e-5, 1e5, 1.5)
	if err != nil {
		t.Fatalf("NewMaternKernel(1.5): %v", err)
	}
	matern25, err := NewMaternKernel(1.0, 1e-5, 1e5, 2.5)
	if err != nil {
		t.Fatalf("NewMaternKernel(2.5): %v", err)
	}
	matern05, err := NewMaternKernel(1.0, 1e-5, 1e5, 0.5)
	if err != nil {
		t.Fatalf("NewMaternKernel(0.5): %v", err)
	}
	maternInf, err := NewMaternKernel(1.0, 1e-5, 1e5, math.Inf(1))
	if err != nil {
		t.Fatalf("NewMaternKernel(+Inf): %v", err)
	}

	sqrt3 := math.Sqrt(3)
	sqrt5 := math.Sqrt(5)

	testCases := []struct {
		name string
		k    Kernel
		a, b []float64
		same bool
		want float64
	}{
		{"constant", NewConstantKernel(2.5, 1e-5, 1e5), []float64{0}, []float64{9}, false, 2.5},
		{"rbf unit length", NewRBFKernel(1.0, 1e-5, 1e5), []float64{0}, []float64{2}, false, math.Exp(-2)},
		{"rbf scaled length", NewRBFKernel(2.0, 1e-5, 1e5), []float64{0}, []float64{2}, false, math.Exp(-0.5)},
		{"matern 0.5", matern05, []float64{0}, []float64{2}, false, math.Exp(-2)},
		{"matern 1.5", matern15, []float64{0}, []float64{1}, false, (1 + sqrt3) * math.Exp(-sqrt3)},
		{"matern 2.5", matern25, []float64{0}, []float64{1}, false, (1 + sqrt5 + 5.0/3.0) * math.Exp(-sqrt5)},
		{"matern inf", maternInf, []float64{0}, []float64{2}, false, math.Exp(-2)},
		{"rational quadratic", NewRationalQuadraticKernel(1.0, 1e-5, 1e5), []float64{0}, []float64{1}, false, 1.0 / 1.5},
		{"exp sine squared half period", NewExpSineSquaredKernel(1.0, 1e-5, 1e5), []float64{0}, []float64{0.5}, false, math.Exp(-2)},
		{"exp sine squared full period", NewExpSineSquaredKernel(1.0, 1e-5, 1e5), []float64{0}, []float64{1}, false, 1.0},
		{"dot product", NewDotProductKernel(1.0, 1e-5, 1e5), []float64{1, 2}, []float64{3, 4}, false, 12},
		{"white diagonal", NewWhiteKernel(0.5, 1e-10, 1e1), []float64{1}, []float64{1}, true, 0.5},
		{"white off diagonal", NewWhiteKernel(0.5, 1e-10, 1e1), []float64{1}, []float64{1}, false, 0},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := tc.k.Eval(tc.a, tc.b, tc.same)
			if math.Abs(got-tc.want) > 1e-12 {
				t.Errorf("Eval = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestKernelThetaRoundTrip(t *testing.T) {
	matern, err := NewMaternKernel(1.0, 1e-5, 1e5, 2.5)
	if err != nil {
		t.Fatalf("NewMaternKernel: %v", err)
	}

	testCases := []struct {
		name   string
		k      Kernel
		params int
	}{
		{"constant", NewConstantKernel(1.0, 1e-5, 1e5), 1},
		{"rbf", NewRBFKernel(1.0, 1e-5, 1e5), 1},
		{"matern", matern, 1},
		{"rational quadratic", NewRationalQuadraticKernel(1.0, 1e-5, 1e5), 2},
		{"exp sine squared", NewExpSineSquaredKernel(1.0, 1e-5, 1e5), 2},
		{"dot product", NewDotProductKernel(1.0, 1e-5, 1e5), 1},
		{"white", NewWhiteKernel(1e-3, 1e-10, 1e1), 1},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			theta := tc.k.Theta()
			if len(theta) != tc.params {
				t.Fatalf("len(Theta) = %d, want %d", len(theta), tc.params)
			}
			if len(tc.k.Bounds()) != tc.params {
				t.Fatalf("len(Bounds) = %d, want %d", len(tc.k.Bounds()), tc.params)
			}

			// Hyperparameters live in log space: setting ln(2) per slot must
			// read back exactly.
			set := make([]float64, tc.params)
			for i := range set {
				set[i] = math.Log(2)
			}
			if err := tc.k.SetTheta(set); err != nil {
				t.Fatalf("SetTheta: %v", err)
			}
			for i, got := range tc.k.Theta() {
				if math.Abs(got-math.Log(2)) > 1e-12 {
					t.Errorf("Theta[%d] = %v after SetTheta, want ln 2", i, got)
				}
			}

			if err := tc.k.SetTheta(make([]float64, tc.params+1)); err == nil {
				t.Error("expected error for theta length mismatch")
			}
		})
	}
}

func TestMaternRejectsUnsupportedNu(t *testing.T) {
	if _, err := NewMaternKernel(1.0, 1e-5, 1e5, 2.0); err == nil {
		t.Fatal("nu=2.0 must be rejected")
	}
}

func TestProductKernel(t *testing.T) {
	k := Product(NewConstantKernel(2.0, 1e-5, 1e5), NewRBFKernel(1.0, 1e-5, 1e5))

	a, b := []float64{0}, []float64{1}
	want := 2.0 * math.Exp(-0.5)
	if got := k.Eval(a, b, false); math.Abs(got-want) > 1e-12 {
		t.Errorf("Eval = %v, want %v", got, want)
	}

	theta := k.Theta()
	if len(theta) != 2 {
		t.Fatalf("len(Theta) = %d, want 2", len(theta))
	}
	if math.Abs(theta[0]-math.Log(2)) > 1e-12 || theta[1] != 0 {
		t.Errorf("Theta = %v, want [ln 2, 0]", theta)
	}

	// SetTheta splits across the factors in order.
	if err := k.SetTheta([]float64{math.Log(3), math.Log(2)}); err != nil {
		t.Fatalf("SetTheta: %v", err)
	}
	want = 3.0 * math.Exp(-0.5/4)
	if got := k.Eval(a, b, false); math.Abs(got-want) > 1e-12 {
		t.Errorf("Eval after SetTheta = %v, want %v", got, want)
	}

	if err := k.SetTheta([]float64{0}); err == nil {
		t.Error("expected error for short composite theta")
	}
	if !strings.Contains(k.String(), "*") {
		t.Errorf("String = %q, want a product", k.String())
	}
}

func TestSumKernelKeepsNoiseOnDiagonal(t *testing.T) {
	k := Sum(NewRBFKernel(1.0, 1e-5, 1e5), NewWhiteKernel(0.25, 1e-10, 1e1))

	a := []float64{1}
	if got, want := k.Eval(a, a, true), 1.25; math.Abs(got-want) > 1e-12 {
		t.Errorf("diagonal Eval = %v, want %v", got, want)
	}
	if got, want := k.Eval(a, a, false), 1.0; math.Abs(got-want) > 1e-12 {
		t.Errorf("off-diagonal Eval = %v, want %v", got, want)
	}
	if len(k.Theta()) != 2 {
		t.Errorf("len(Theta) = %d, want 2", len(k.Theta()))
	}
	if !strings.Contains(k.String(), "+") {
		t.Errorf("String = %q, want a sum", k.String())
	}
}

func TestBuildKernel(t *testing.T) {
	testCases := []struct {
		kind   GPRKernelKind
		params int
	}{
		{GPRKernelRBF, 2},
		{GPRKernelMatern, 2},
		{GPRKernelRationalQuadratic, 3},
		{GPRKernelExpSineSquared, 3},
		{GPRKernelDotProduct, 2},
		{GPRKernelWhiteRBF, 3},
	}
	for _, tc := range testCases {
		t.Run(tc.kind.String(), func(t *testing.T) {
			k, err := BuildKernel(CompositeOptions{Kind: tc.kind})
			if err != nil {
				t.Fatalf("BuildKernel: %v", err)
			}
			if got := len(k.Theta()); got != tc.params {
				t.Errorf("len(Theta) = %d, want %d", got, tc.params)
			}
			if got := len(k.Bounds()); got != tc.params {
				t.Errorf("len(Bounds) = %d, want %d", got, tc.params)
			}
		})
	}

	// The white-noise variant contributes only to the Gram diagonal.
	k, err := BuildKernel(CompositeOptions{Kind: GPRKernelWhiteRBF})
	if err != nil {
		t.Fatalf("BuildKernel: %v", err)
	}
	a := []float64{0}
	if got, want := k.Eval(a, a, true)-k.Eval(a, a, false), 1e-3; math.Abs(got-want) > 1e-15 {
		t.Errorf("diagonal noise = %v, want %v", got, want)
	}

	if _, err := BuildKernel(CompositeOptions{Kind: GPRKernelMatern, Nu: 2.0}); err == nil {
		t.Error("expected error for unsupported Matern nu")
	}
	if _, err := BuildKernel(CompositeOptions{Kind: GPRKernelKind(99)}); err == nil {
		t.Error("expected error for unknown kind")
	}
}

func TestBuildKernelCustomLengthScale(t *testing.T) {
	k, err := BuildKernel(CompositeOptions{Kind: GPRKernelRBF, LengthScale: 2.0})
	if err != nil {
		t.Fatalf("BuildKernel: %v", err)
	}
	a, b := []float64{0}, []float64{2}
	want := math.Exp(-0.5) // constant factor starts at 1
	if got := k.Eval(a, b, false); math.Abs(got-want) > 1e-12 {
		t.Errorf("Eval = %v, want %v", got, want)
	}
}

func TestParseGPRKernelKind(t *testing.T) {
	for _, kind := range GPRKernelKinds() {
		parsed, err := ParseGPRKernelKind(kind.String())
		if err != nil {
			t.Errorf("ParseGPRKernelKind(%q): %v", kind.String(), err)
			continue
		}
		if parsed != kind {
			t.Errorf("round trip %v -> %q -> %v", kind, kind.String(), parsed)
		}
	}
	if _, err := ParseGPRKernelKind("Polynomial"); err == nil {
		t.Error("expected error for unknown kernel name")
	}
}
