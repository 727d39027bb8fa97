package rom

import (
	"fmt"
	"math"
)

// Kernel is a Gaussian-process covariance function. Tunable hyperparameters
// are exposed in log space for the marginal-likelihood search; fixed
// parameters (such as a Matern's nu) are not part of Theta.
//
// same marks a and b as the identical training sample, which is how noise
// kernels contribute to the Gram diagonal without leaking into
// cross-covariances.
type Kernel interface {
	Eval(a, b []float64, same bool) float64
	Theta() []float64
	SetTheta(theta []float64) error
	Bounds() [][2]float64
	String() string
}

// GPRKernelKind enumerates the base kernels selectable for GPR.
type GPRKernelKind int

const (
	GPRKernelRBF GPRKernelKind = iota
	GPRKernelMatern
	GPRKernelRationalQuadratic
	GPRKernelExpSineSquared
	GPRKernelDotProduct
	GPRKernelWhiteRBF
)

func (k GPRKernelKind) String() string {
	switch k {
	case GPRKernelRBF:
		return "RBF"
	case GPRKernelMatern:
		return "Matern"
	case GPRKernelRationalQuadratic:
		return "RationalQuadratic"
	case GPRKernelExpSineSquared:
		return "ExpSineSquared"
	case GPRKernelDotProduct:
		return "DotProduct"
	case GPRKernelWhiteRBF:
		return "WhiteKernel+RBF"
	}
	return fmt.Sprintf("gprkernel(%d)", int(k))
}

// ParseGPRKernelKind maps a user-facing name to its kind.
func ParseGPRKernelKind(s string) (GPRKernelKind, error) {
	switch s {
	case "RBF":
		return GPRKernelRBF, nil
	case "Matern":
		return GPRKernelMatern, nil
	case "RationalQuadratic":
		return GPRKernelRationalQuadratic, nil
	case "ExpSineSquared":
		return GPRKernelExpSineSquared, nil
	case "DotProduct":
		return GPRKernelDotProduct, nil
	case "WhiteKernel+RBF":
		return GPRKernelWhiteRBF, nil
	}
	return 0, fmt.Errorf("rom: unknown GPR kernel %q", s)
}

// GPRKernelKinds lists every base kernel in presentation order.
func GPRKernelKinds() []GPRKernelKind {
	return []GPRKernelKind{
		GPRKernelRBF, GPRKernelMatern, GPRKernelRationalQuadratic,
		GPRKernelExpSineSquared, GPRKernelDotProduct, GPRKernelWhiteRBF,
	}
}

// CompositeOptions selects a base kernel and its starting hyperparameters
// for BuildKernel. Zero values take the documented defaults.
type CompositeOptions struct {
	// Kind selects the base kernel. Default RBF.
	Kind GPRKernelKind
	// LengthScale is the starting length scale of distance-based kernels.
	// Default 1.0.
	LengthScale float64
	// LengthScaleBounds constrain the length-scale search.
	// Default [1e-5, 1e5].
	LengthScaleBounds [2]float64
	// Nu is the Matern smoothness, one of 0.5, 1.5, 2.5, or +Inf.
	// Default 1.5.
	Nu float64
}

func (o CompositeOptions) withDefaults() CompositeOptions {
	if o.LengthScale == 0 {
		o.LengthScale = 1.0
	}
	if o.LengthScaleBounds == [2]float64{} {
		o.LengthScaleBounds = [2]float64{1e-5, 1e5}
	}
	if o.Nu == 0 {
		o.Nu = 1.5
	}
	return o
}

// BuildKernel assembles the standard composite for the experiment UI:
// Constant(1.0) times the chosen base kernel, plus a white-noise term for
// the WhiteKernel+RBF variant.
func BuildKernel(opts CompositeOptions) (Kernel, error) {
	opts = opts.withDefaults()
	scale := NewConstantKernel(1.0, 1e-5, 1e5)
	lo, hi := opts.LengthScaleBounds[0], opts.LengthScaleBounds[1]
	switch opts.Kind {
	case GPRKernelRBF:
		return Product(scale, NewRBFKernel(opts.LengthScale, lo, hi)), nil
	case GPRKernelMatern:
		m, err := NewMaternKernel(opts.LengthScale, lo, hi, opts.Nu)
		if err != nil {
			return nil, err
		}
		return Product(scale, m), nil
	case GPRKernelRationalQuadratic:
		return Product(scale, NewRationalQuadraticKernel(opts.LengthScale, lo, hi)), nil
	case GPRKernelExpSineSquared:
		return Product(scale, NewExpSineSquaredKernel(opts.LengthScale, lo, hi)), nil
	case GPRKernelDotProduct:
		return Product(scale, NewDotProductKernel(1.0, 1e-5, 1e5)), nil
	case GPRKernelWhiteRBF:
		return Sum(
			Product(scale, NewRBFKernel(opts.LengthScale, lo, hi)),
			NewWhiteKernel(1e-3, 1e-10, 1e1),
		), nil
	}
	return nil, fmt.Errorf("rom: unknown GPR kernel kind %d", int(opts.Kind))
}

func logBounds(lo, hi float64) [2]float64 {
	return [2]float64{math.Log(lo), math.Log(hi)}
}

func checkThetaLen(got, want int, kernel string) error {
	if got != want {
		return fmt.Errorf("rom: %s kernel expects %d hyperparameters, got %d", kernel, want, got)
	}
	return nil
}

// ConstantKernel scales whatever it multiplies by a tunable constant.
type ConstantKernel struct {
	Value  float64
	bounds [2]float64
}

// NewConstantKernel builds a constant kernel with search bounds [lo, hi].
func NewConstantKernel(value, lo, hi float64) *ConstantKernel {
	return &ConstantKernel{Value: value, bounds: logBounds(lo, hi)}
}

func (k *ConstantKernel) Eval(a, b []float64, same bool) float64 { return k.Value }
func (k *ConstantKernel) Theta() []float64                       { return []float64{math.Log(k.Value)} }
func (k *ConstantKernel) Bounds() [][2]float64                   { return [][2]float64{k.bounds} }
func (k *ConstantKernel) String() string                         { return fmt.Sprintf("Constant(%.3g)", k.Value) }

func (k *ConstantKernel) SetTheta(theta []float64) error {
	if err := checkThetaLen(len(theta), 1, "constant"); err != nil {
		return err
	}
	k.Value = math.Exp(theta[0])
	return nil
}

// RBFKernel is the squared-exponential covariance.
type RBFKernel struct {
	LengthScale float64
	bounds      [2]float64
}

// NewRBFKernel builds a squared-exponential kernel with length-scale search
// bounds [lo, hi].
func NewRBFKernel(lengthScale, lo, hi float64) *RBFKernel {
	return &RBFKernel{LengthScale: lengthScale, bounds: logBounds(lo, hi)}
}

func (k *RBFKernel) Eval(a, b []float64, same bool) float64 {
	d := euclidean(a, b) / k.LengthScale
	return math.Exp(-0.5 * d * d)
}

func (k *RBFKernel) Theta() []float64     { return []float64{math.Log(k.LengthScale)} }
func (k *RBFKernel) Bounds() [][2]float64 { return [][2]float64{k.bounds} }
func (k *RBFKernel) String() string       { return fmt.Sprintf("RBF(l=%.3g)", k.LengthScale) }

func (k *RBFKernel) SetTheta(theta []float64) error {
	if err := checkThetaLen(len(theta), 1, "RBF"); err != nil {
		return err
	}
	k.LengthScale = math.Exp(theta[0])
	return nil
}

// MaternKernel generalizes the squared exponential with a smoothness
// parameter nu; nu is fixed, not optimized.
type MaternKernel struct {
	LengthScale float64
	Nu          float64
	bounds      [2]float64
}

// NewMaternKernel builds a Matern kernel. Supported nu values are 0.5, 1.5,
// 2.5 and +Inf; anything else is an error.
func NewMaternKernel(lengthScale, lo, hi, nu float64) (*MaternKernel, error) {
	switch {
	case nu == 0.5, nu == 1.5, nu == 2.5, math.IsInf(nu, 1):
	default:
		return nil, fmt.Errorf("rom: Matern nu must be 0.5, 1.5, 2.5 or +Inf, got %g", nu)
	}
	return &MaternKernel{LengthScale: lengthScale, Nu: nu, bounds: logBounds(lo, hi)}, nil
}

func (k *MaternKernel) Eval(a, b []float64, same bool) float64 {
	s := euclidean(a, b) / k.LengthScale
	switch {
	case k.Nu == 0.5:
		return math.Exp(-s)
	case k.Nu == 1.5:
		t := math.Sqrt(3) * s
		return (1 + t) * math.Exp(-t)
	case k.Nu == 2.5:
		t := math.Sqrt(5) * s
		return (1 + t + t*t/3) * math.Exp(-t)
	default: // +Inf degenerates to the squared exponential
		return math.Exp(-0.5 * s * s)
	}
}

func (k *MaternKernel) Theta() []float64     { return []float64{math.Log(k.LengthScale)} }
func (k *MaternKernel) Bounds() [][2]float64 { return [][2]float64{k.bounds} }

func (k *MaternKernel) String() string {
	return fmt.Sprintf("Matern(l=%.3g, nu=%g)", k.LengthScale, k.Nu)
}

func (k *MaternKernel) SetTheta(theta []float64) error {
	if err := checkThetaLen(len(theta), 1, "Matern"); err != nil {
		return err
	}
	k.LengthScale = math.Exp(theta[0])
	return nil
}

// RationalQuadraticKernel mixes squared exponentials over a range of length
// scales; alpha controls the mixture weight and is optimized together with
// the length scale.
type RationalQuadraticKernel struct {
	LengthScale float64
	Alpha       float64
	lsBounds    [2]float64
	alphaBounds [2]float64
}

// NewRationalQuadraticKernel builds the kernel with alpha starting at 1.
func NewRationalQuadraticKernel(lengthScale, lo, hi float64) *RationalQuadraticKernel {
	return &RationalQuadraticKernel{
		LengthScale: lengthScale,
		Alpha:       1.0,
		lsBounds:    logBounds(lo, hi),
		alphaBounds: logBounds(1e-5, 1e5),
	}
}

func (k *RationalQuadraticKernel) Eval(a, b []float64, same bool) float64 {
	d := euclidean(a, b)
	return math.Pow(1+d*d/(2*k.Alpha*k.LengthScale*k.LengthScale), -k.Alpha)
}

func (k *RationalQuadraticKernel) Theta() []float64 {
	return []float64{math.Log(k.LengthScale), math.Log(k.Alpha)}
}

func (k *RationalQuadraticKernel) Bounds() [][2]float64 {
	return [][2]float64{k.lsBounds, k.alphaBounds}
}

func (k *RationalQuadraticKernel) String() string {
	return fmt.Sprintf("RationalQuadratic(l=%.3g, alpha=%.3g)", k.LengthScale, k.Alpha)
}

func (k *RationalQuadraticKernel) SetTheta(theta []float64) error {
	if err := checkThetaLen(len(theta), 2, "RationalQuadratic"); err != nil {
		return err
	}
	k.LengthScale = math.Exp(theta[0])
	k.Alpha = math.Exp(theta[1])
	return nil
}

// ExpSineSquaredKernel models periodic structure; the periodicity is
// optimized together with the length scale.
type ExpSineSquaredKernel struct {
	LengthScale float64
	Periodicity float64
	lsBounds    [2]float64
	perBounds   [2]float64
}

// NewExpSineSquaredKernel builds the kernel with periodicity starting at 1.
func NewExpSineSquaredKernel(lengthScale, lo, hi float64) *ExpSineSquaredKernel {
	return &ExpSineSquaredKernel{
		LengthScale: lengthScale,
		Periodicity: 1.0,
		lsBounds:    logBounds(lo, hi),
		perBounds:   logBounds(1e-5, 1e5),
	}
}

func (k *ExpSineSquaredKernel) Eval(a, b []float64, same bool) float64 {
	d := euclidean(a, b)
	s := math.Sin(math.Pi * d / k.Periodicity)
	return math.Exp(-2 * s * s / (k.LengthScale * k.LengthScale))
}

func (k *ExpSineSquaredKernel) Theta() []float64 {
	return []float64{math.Log(k.LengthScale), math.Log(k.Periodicity)}
}

func (k *ExpSineSquaredKernel) Bounds() [][2]float64 {
	return [][2]float64{k.lsBounds, k.perBounds}
}

func (k *ExpSineSquaredKernel) String() string {
	return fmt.Sprintf("ExpSineSquared(l=%.3g, p=%.3g)", k.LengthScale, k.Periodicity)
}

func (k *ExpSineSquaredKernel) SetTheta(theta []float64) error {
	if err := checkThetaLen(len(theta), 2, "ExpSineSquared"); err != nil {
		return err
	}
	k.LengthScale = math.Exp(theta[0])
	k.Periodicity = math.Exp(theta[1])
	return nil
}

// DotProductKernel is the linear covariance sigma0^2 + a.b.
type DotProductKernel struct {
	Sigma0 float64
	bounds [2]float64
}

// NewDotProductKernel builds the kernel with sigma0 search bounds [lo, hi].
func NewDotProductKernel(sigma0, lo, hi float64) *DotProductKernel {
	return &DotProductKernel{Sigma0: sigma0, bounds: logBounds(lo, hi)}
}

func (k *DotProductKernel) Eval(a, b []float64, same bool) float64 {
	var dot float64
	for i := range a {
		dot += a[i] * b[i]
	}
	return k.Sigma0*k.Sigma0 + dot
}

func (k *DotProductKernel) Theta() []float64     { return []float64{math.Log(k.Sigma0)} }
func (k *DotProductKernel) Bounds() [][2]float64 { return [][2]float64{k.bounds} }
func (k *DotProductKernel) String() string       { return fmt.Sprintf("DotProduct(s0=%.3g)", k.Sigma0) }

func (k *DotProductKernel) SetTheta(theta []float64) error {
	if err := checkThetaLen(len(theta), 1, "DotProduct"); err != nil {
		return err
	}
	k.Sigma0 = math.Exp(theta[0])
	return nil
}

// WhiteKernel adds independent noise on the Gram diagonal only.
type WhiteKernel struct {
	NoiseLevel float64
	bounds     [2]float64
}

// NewWhiteKernel builds a noise kernel with search bounds [lo, hi].
func NewWhiteKernel(noise, lo, hi float64) *WhiteKernel {
	return &WhiteKernel{NoiseLevel: noise, bounds: logBounds(lo, hi)}
}

func (k *WhiteKernel) Eval(a, b []float64, same bool) float64 {
	if same {
		return k.NoiseLevel
	}
	return 0
}

func (k *WhiteKernel) Theta() []float64     { return []float64{math.Log(k.NoiseLevel)} }
func (k *WhiteKernel) Bounds() [][2]float64 { return [][2]float64{k.bounds} }
func (k *WhiteKernel) String() string       { return fmt.Sprintf("White(%.3g)", k.NoiseLevel) }

func (k *WhiteKernel) SetTheta(theta []float64) error {
	if err := checkThetaLen(len(theta), 1, "white"); err != nil {
		return err
	}
	k.NoiseLevel = math.Exp(theta[0])
	return nil
}

type productKernel struct{ a, b Kernel }

// Product composes two kernels by pointwise multiplication.
func Product(a, b Kernel) Kernel { return &productKernel{a, b} }

func (k *productKernel) Eval(x, y []float64, same bool) float64 {
	return k.a.Eval(x, y, same) * k.b.Eval(x, y, same)
}

func (k *productKernel) Theta() []float64 {
	return append(append([]float64{}, k.a.Theta()...), k.b.Theta()...)
}

func (k *productKernel) Bounds() [][2]float64 {
	return append(append([][2]float64{}, k.a.Bounds()...), k.b.Bounds()...)
}

func (k *productKernel) String() string {
	return fmt.Sprintf("%s * %s", k.a, k.b)
}

func (k *productKernel) SetTheta(theta []float64) error {
	return splitTheta(theta, k.a, k.b)
}

type sumKernel struct{ a, b Kernel }

// Sum composes two kernels by pointwise addition.
func Sum(a, b Kernel) Kernel { return &sumKernel{a, b} }

func (k *sumKernel) Eval(x, y []float64, same bool) float64 {
	return k.a.Eval(x, y, same) + k.b.Eval(x, y, same)
}

func (k *sumKernel) Theta() []float64 {
	return append(append([]float64{}, k.a.Theta()...), k.b.Theta()...)
}

func (k *sumKernel) Bounds() [][2]float64 {
	return append(append([][2]float64{}, k.a.Bounds()...), k.b.Bounds()...)
}

func (k *sumKernel) String() string {
	return fmt.Sprintf("%s + %s", k.a, k.b)
}

func (k *sumKernel) SetTheta(theta []float64) error {
	return splitTheta(theta, k.a, k.b)
}

func splitTheta(theta []float64, a, b Kernel) error {
	na := len(a.Theta())
	if err := checkThetaLen(len(theta), na+len(b.Theta()), "composite"); err != nil {
		return err
	}
	if err := a.SetTheta(theta[:na]); err != nil {
		return err
	}
	return b.SetTheta(theta[na:])
}
