package rom

import (
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// ANNOptions configures the feed-forward network regressor. Zero values
// take the documented defaults.
type ANNOptions struct {
	// Hidden lists the hidden-layer widths. Default [6, 12, 24].
	Hidden []int
	// Activation applied after every hidden layer. Default ReLU.
	Activation Activation
	// LearningRate for full-batch gradient descent. Default 0.1.
	LearningRate float64
	// L2 is the weight-decay penalty. Default 0.01.
	L2 float64
	// MaxEpochs bounds training. Default 1000.
	MaxEpochs int
	// Tolerance stops training once the loss drops below it. Default 1e-8.
	Tolerance float64
	// Seed for weight initialization. Default 1.
	Seed int64
}

func (o ANNOptions) withDefaults() ANNOptions {
	if len(o.Hidden) == 0 {
		o.Hidden = []int{6, 12, 24}
	}
	if o.LearningRate == 0 {
		o.LearningRate = 0.1
	}
	if o.L2 == 0 {
		o.L2 = 0.01
	}
	if o.MaxEpochs == 0 {
		o.MaxEpochs = 1000
	}
	if o.Tolerance == 0 {
		o.Tolerance = 1e-8
	}
	if o.Seed == 0 {
		o.Seed = 1
	}
	return o
}

// ANN regresses reduced coordinates with a small fully connected network.
type ANN struct {
	opts ANNOptions

	net       *network
	epochs    int
	finalLoss float64
}

// NewANN builds an untrained network regressor.
func NewANN(opts ANNOptions) *ANN {
	return &ANN{opts: opts.withDefaults()}
}

func (a *ANN) Name() string { return "ANN" }

// TrainingStats reports the epochs run and final loss of the last Fit.
func (a *ANN) TrainingStats() (epochs int, loss float64) {
	return a.epochs, a.finalLoss
}

// Fit trains the network from fresh seeded weights, so repeated fits with
// the same options and data give the same model.
func (a *ANN) Fit(x, y *mat.Dense) error {
	_, inDim, outDim, err := checkFitShapes(x, y)
	if err != nil {
		return fmt.Errorf("rom: ANN: %w", err)
	}

	sizes := make([]int, 0, len(a.opts.Hidden)+2)
	sizes = append(sizes, inDim)
	sizes = append(sizes, a.opts.Hidden...)
	sizes = append(sizes, outDim)

	rng := rand.New(rand.NewSource(a.opts.Seed))
	net, err := newNetwork(sizes, a.opts.Activation, rng)
	if err != nil {
		return fmt.Errorf("rom: ANN: %w", err)
	}
	epochs, loss, err := net.train(x, y, trainConfig{
		learningRate: a.opts.LearningRate,
		l2:           a.opts.L2,
		maxEpochs:    a.opts.MaxEpochs,
		tolerance:    a.opts.Tolerance,
	})
	if err != nil {
		return fmt.Errorf("rom: ANN: %w", err)
	}
	a.net = net
	a.epochs = epochs
	a.finalLoss = loss
	return nil
}

func (a *ANN) Predict(x *mat.Dense) (*mat.Dense, error) {
	if a.net == nil {
		return nil, fmt.Errorf("rom: ANN: Predict before Fit")
	}
	if err := checkPredictShape(x, a.net.inputDim()); err != nil {
		return nil, fmt.Errorf("rom: ANN: %w", err)
	}
	rows, _ := x.Dims()
	out := mat.NewDense(rows, a.net.outputDim(), nil)
	for i := 0; i < rows; i++ {
		out.SetRow(i, a.net.run(x.RawRowView(i), 0, len(a.net.layers)))
	}
	return out, nil
}
