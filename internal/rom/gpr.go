package rom

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
)

// GPROptions configures Gaussian-process regression. Zero values take the
// documented defaults.
type GPROptions struct {
	// Kernel is the covariance function. Default Constant(1.0) * RBF(1.0)
	// with bounds [1e-5, 1e5] on both hyperparameters.
	Kernel Kernel
	// Restarts is the number of random hyperparameter starts tried in
	// addition to the kernel's own starting point. Default 10; negative
	// disables restarts.
	Restarts int
	// NormalizeY standardizes targets per column before fitting.
	NormalizeY bool
	// Seed drives restart sampling. Default 1.
	Seed int64
}

func (o GPROptions) withDefaults() GPROptions {
	if o.Kernel == nil {
		o.Kernel = Product(NewConstantKernel(1.0, 1e-5, 1e5), NewRBFKernel(1.0, 1e-5, 1e5))
	}
	if o.Restarts == 0 {
		o.Restarts = 10
	}
	if o.Restarts < 0 {
		o.Restarts = 0
	}
	if o.Seed == 0 {
		o.Seed = 1
	}
	return o
}

// GPR fits a Gaussian process by maximizing the log marginal likelihood
// over the kernel hyperparameters with bounded Nelder-Mead restarts, then
// predicts with the posterior mean. A non-positive-definite kernel matrix
// at the optimum is an error; no jitter is added behind the caller's back.
type GPR struct {
	opts         GPROptions
	initialTheta []float64

	x      *mat.Dense
	alpha  *mat.Dense
	yMean  []float64
	yScale []float64
	inDim  int
	lml    float64
}

// NewGPR builds a Gaussian-process regressor. The kernel's hyperparameters
// at construction time are the search start; every Fit restarts from them.
func NewGPR(opts GPROptions) *GPR {
	g := &GPR{opts: opts.withDefaults()}
	g.initialTheta = append([]float64(nil), g.opts.Kernel.Theta()...)
	return g
}

func (g *GPR) Name() string { return "GPR" }

// KernelString describes the kernel with its current hyperparameters.
func (g *GPR) KernelString() string { return g.opts.Kernel.String() }

// LogMarginalLikelihood reports the optimum found by the last Fit.
func (g *GPR) LogMarginalLikelihood() float64 { return g.lml }

func (g *GPR) Fit(x, y *mat.Dense) error {
	rows, inDim, outDim, err := checkFitShapes(x, y)
	if err != nil {
		return fmt.Errorf("rom: GPR: %w", err)
	}
	if err := g.opts.Kernel.SetTheta(g.initialTheta); err != nil {
		return fmt.Errorf("rom: GPR: %w", err)
	}

	targets := mat.NewDense(rows, outDim, nil)
	targets.Copy(y)
	g.yMean = make([]float64, outDim)
	g.yScale = make([]float64, outDim)
	for j := 0; j < outDim; j++ {
		g.yMean[j], g.yScale[j] = 0, 1
	}
	if g.opts.NormalizeY {
		normalizeColumns(targets, g.yMean, g.yScale)
	}

	theta, lml, err := g.searchTheta(x, targets)
	if err != nil {
		return fmt.Errorf("rom: GPR: %w", err)
	}
	if len(theta) > 0 {
		if err := g.opts.Kernel.SetTheta(theta); err != nil {
			return fmt.Errorf("rom: GPR: %w", err)
		}
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(g.gram(x)); !ok {
		return fmt.Errorf("rom: GPR: %w: not positive definite (kernel %s)", ErrSingular, g.opts.Kernel)
	}
	alpha := mat.NewDense(rows, outDim, nil)
	if err := chol.SolveTo(alpha, targets); err != nil {
		return fmt.Errorf("rom: GPR: %w", err)
	}

	trainX := mat.NewDense(rows, inDim, nil)
	trainX.Copy(x)
	g.x = trainX
	g.alpha = alpha
	g.inDim = inDim
	g.lml = lml
	return nil
}

func (g *GPR) Predict(x *mat.Dense) (*mat.Dense, error) {
	if g.x == nil {
		return nil, errors.New("rom: GPR: Predict before Fit")
	}
	if err := checkPredictShape(x, g.inDim); err != nil {
		return nil, fmt.Errorf("rom: GPR: %w", err)
	}
	queries, _ := x.Dims()
	train, _ := g.x.Dims()
	_, outDim := g.alpha.Dims()

	kstar := mat.NewDense(queries, train, nil)
	for i := 0; i < queries; i++ {
		for j := 0; j < train; j++ {
			kstar.Set(i, j, g.opts.Kernel.Eval(x.RawRowView(i), g.x.RawRowView(j), false))
		}
	}

	out := mat.NewDense(queries, outDim, nil)
	out.Mul(kstar, g.alpha)
	for i := 0; i < queries; i++ {
		for j := 0; j < outDim; j++ {
			out.Set(i, j, out.At(i, j)*g.yScale[j]+g.yMean[j])
		}
	}
	return out, nil
}

// gram builds the symmetric kernel matrix over the training parameters.
func (g *GPR) gram(x *mat.Dense) *mat.SymDense {
	rows, _ := x.Dims()
	k := mat.NewSymDense(rows, nil)
	for i := 0; i < rows; i++ {
		for j := i; j < rows; j++ {
			k.SetSym(i, j, g.opts.Kernel.Eval(x.RawRowView(i), x.RawRowView(j), i == j))
		}
	}
	return k
}

// searchTheta maximizes the log marginal likelihood over the kernel's
// bounded log-space hyperparameters, trying the configured start plus
// random restarts and keeping the best optimum.
func (g *GPR) searchTheta(x, y *mat.Dense) ([]float64, float64, error) {
	bounds := g.opts.Kernel.Bounds()
	if len(g.initialTheta) == 0 {
		lml, err := g.logMarginalLikelihood(nil, x, y)
		return nil, lml, err
	}

	problem := optimize.Problem{
		Func: func(theta []float64) float64 {
			clamped, violation := clampTheta(theta, bounds)
			lml, err := g.logMarginalLikelihood(clamped, x, y)
			if err != nil {
				return math.Inf(1)
			}
			return -lml + violation
		},
	}
	settings := &optimize.Settings{
		MajorIterations: 200,
		FuncEvaluations: 1000,
	}

	starts := make([][]float64, 0, g.opts.Restarts+1)
	starts = append(starts, append([]float64(nil), g.initialTheta...))
	rng := rand.New(rand.NewSource(g.opts.Seed))
	for r := 0; r < g.opts.Restarts; r++ {
		start := make([]float64, len(bounds))
		for i, b := range bounds {
			start[i] = b[0] + rng.Float64()*(b[1]-b[0])
		}
		starts = append(starts, start)
	}

	var bestTheta []float64
	bestObjective := math.Inf(1)
	for _, start := range starts {
		result, err := optimize.Minimize(problem, start, settings, &optimize.NelderMead{})
		if err != nil && result == nil {
			continue
		}
		if result.F < bestObjective {
			clamped, _ := clampTheta(result.X, bounds)
			bestTheta = clamped
			bestObjective = result.F
		}
	}
	if bestTheta == nil {
		return nil, 0, errors.New("hyperparameter search failed from every start")
	}
	return bestTheta, -bestObjective, nil
}

// logMarginalLikelihood evaluates the marginal likelihood at theta (nil
// keeps the kernel's current hyperparameters), summed over target columns.
func (g *GPR) logMarginalLikelihood(theta []float64, x, y *mat.Dense) (float64, error) {
	if theta != nil {
		if err := g.opts.Kernel.SetTheta(theta); err != nil {
			return 0, err
		}
	}
	rows, outDim := y.Dims()

	var chol mat.Cholesky
	if ok := chol.Factorize(g.gram(x)); !ok {
		return 0, errors.New("kernel matrix not positive definite")
	}
	alpha := mat.NewDense(rows, outDim, nil)
	if err := chol.SolveTo(alpha, y); err != nil {
		return 0, err
	}

	logDet := chol.LogDet()
	var lml float64
	for j := 0; j < outDim; j++ {
		var fit float64
		for i := 0; i < rows; i++ {
			fit += y.At(i, j) * alpha.At(i, j)
		}
		lml += -0.5*fit - 0.5*logDet - 0.5*float64(rows)*math.Log(2*math.Pi)
	}
	return lml, nil
}

// clampTheta pulls theta into bounds and returns a quadratic penalty for
// the violation, which keeps the unconstrained simplex search honest.
func clampTheta(theta []float64, bounds [][2]float64) ([]float64, float64) {
	clamped := make([]float64, len(theta))
	var violation float64
	for i, t := range theta {
		lo, hi := bounds[i][0], bounds[i][1]
		switch {
		case t < lo:
			violation += (lo - t) * (lo - t)
			t = lo
		case t > hi:
			violation += (t - hi) * (t - hi)
			t = hi
		}
		clamped[i] = t
	}
	return clamped, violation * 1e3
}

// normalizeColumns standardizes each column in place, recording the mean
// and scale used. A constant column keeps scale 1 to stay invertible.
func normalizeColumns(m *mat.Dense, mean, scale []float64) {
	rows, cols := m.Dims()
	for j := 0; j < cols; j++ {
		var sum float64
		for i := 0; i < rows; i++ {
			sum += m.At(i, j)
		}
		mu := sum / float64(rows)
		var ss float64
		for i := 0; i < rows; i++ {
			d := m.At(i, j) - mu
			ss += d * d
		}
		sigma := math.Sqrt(ss / float64(rows))
		if sigma == 0 {
			sigma = 1
		}
		mean[j], scale[j] = mu, sigma
		for i := 0; i < rows; i++ {
			m.Set(i, j, (m.At(i, j)-mu)/sigma)
		}
	}
}
