package rom

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// Activation selects the nonlinearity applied after each hidden layer.
type Activation int

const (
	ActivationReLU Activation = iota
	ActivationTanh
	ActivationSigmoid
)

func (a Activation) String() string {
	switch a {
	case ActivationReLU:
		return "relu"
	case ActivationTanh:
		return "tanh"
	case ActivationSigmoid:
		return "sigmoid"
	}
	return fmt.Sprintf("activation(%d)", int(a))
}

// ParseActivation maps a user-facing name to its Activation.
func ParseActivation(s string) (Activation, error) {
	switch s {
	case "relu":
		return ActivationReLU, nil
	case "tanh":
		return ActivationTanh, nil
	case "sigmoid":
		return ActivationSigmoid, nil
	}
	return 0, fmt.Errorf("rom: unknown activation %q", s)
}

// Activations lists the nonlinearities in presentation order.
func Activations() []Activation {
	return []Activation{ActivationReLU, ActivationTanh, ActivationSigmoid}
}

func (a Activation) apply(x float64) float64 {
	switch a {
	case ActivationReLU:
		if x < 0 {
			return 0
		}
		return x
	case ActivationTanh:
		return math.Tanh(x)
	case ActivationSigmoid:
		return 1 / (1 + math.Exp(-x))
	}
	return x
}

// derivative is expressed in terms of the activated output, which every
// supported nonlinearity allows.
func (a Activation) derivative(out float64) float64 {
	switch a {
	case ActivationReLU:
		if out > 0 {
			return 1
		}
		return 0
	case ActivationTanh:
		return 1 - out*out
	case ActivationSigmoid:
		return out * (1 - out)
	}
	return 1
}

type denseLayer struct {
	weights *mat.Dense // fan-out rows, fan-in columns
	biases  []float64
}

// network is a fully connected feed-forward net with a linear output layer.
// It backs both the autoencoder reduction and the ANN regressor.
type network struct {
	layers []denseLayer
	act    Activation
}

type trainConfig struct {
	learningRate float64
	l2           float64
	maxEpochs    int
	tolerance    float64
}

// newNetwork builds layers for the given unit counts (input first, output
// last), with Glorot-style uniform weight initialization from rng.
func newNetwork(sizes []int, act Activation, rng *rand.Rand) (*network, error) {
	if len(sizes) < 2 {
		return nil, errors.New("rom: network needs at least input and output sizes")
	}
	for _, s := range sizes {
		if s < 1 {
			return nil, fmt.Errorf("rom: invalid layer width %d", s)
		}
	}
	n := &network{act: act}
	for l := 1; l < len(sizes); l++ {
		in, out := sizes[l-1], sizes[l]
		limit := math.Sqrt(6 / float64(in+out))
		w := mat.NewDense(out, in, nil)
		for i := 0; i < out; i++ {
			for j := 0; j < in; j++ {
				w.Set(i, j, (2*rng.Float64()-1)*limit)
			}
		}
		n.layers = append(n.layers, denseLayer{weights: w, biases: make([]float64, out)})
	}
	return n, nil
}

func (n *network) inputDim() int {
	_, in := n.layers[0].weights.Dims()
	return in
}

func (n *network) outputDim() int {
	out, _ := n.layers[len(n.layers)-1].weights.Dims()
	return out
}

// run feeds x through layers [from, to). The final layer of the whole
// network stays linear; every other layer applies the activation.
func (n *network) run(x []float64, from, to int) []float64 {
	cur := x
	for l := from; l < to; l++ {
		cur = n.applyLayer(cur, l)
	}
	return cur
}

func (n *network) applyLayer(x []float64, l int) []float64 {
	layer := n.layers[l]
	out, in := layer.weights.Dims()
	next := make([]float64, out)
	for i := 0; i < out; i++ {
		sum := layer.biases[i]
		for j := 0; j < in; j++ {
			sum += layer.weights.At(i, j) * x[j]
		}
		if l < len(n.layers)-1 {
			sum = n.act.apply(sum)
		}
		next[i] = sum
	}
	return next
}

// forwardAll returns the activation vector after every layer, input
// included, for backpropagation.
func (n *network) forwardAll(x []float64) [][]float64 {
	acts := make([][]float64, len(n.layers)+1)
	acts[0] = x
	for l := range n.layers {
		acts[l+1] = n.applyLayer(acts[l], l)
	}
	return acts
}

// train runs full-batch gradient descent on squared error until the loss
// drops to cfg.tolerance or cfg.maxEpochs passes. It returns the epochs run
// and the final mean squared error.
func (n *network) train(x, y *mat.Dense, cfg trainConfig) (int, float64, error) {
	rows, inDim := x.Dims()
	yRows, outDim := y.Dims()
	if rows != yRows {
		return 0, 0, fmt.Errorf("rom: %d input rows but %d target rows", rows, yRows)
	}
	if inDim != n.inputDim() || outDim != n.outputDim() {
		return 0, 0, fmt.Errorf("rom: network is %dx%d, data is %dx%d",
			n.inputDim(), n.outputDim(), inDim, outDim)
	}
	if cfg.maxEpochs < 1 {
		return 0, 0, errors.New("rom: training needs at least one epoch")
	}

	gradW := make([]*mat.Dense, len(n.layers))
	gradB := make([][]float64, len(n.layers))
	for l, layer := range n.layers {
		r, c := layer.weights.Dims()
		gradW[l] = mat.NewDense(r, c, nil)
		gradB[l] = make([]float64, r)
	}

	var loss float64
	epoch := 0
	for ; epoch < cfg.maxEpochs; epoch++ {
		for l := range gradW {
			gradW[l].Zero()
			for i := range gradB[l] {
				gradB[l][i] = 0
			}
		}

		loss = 0
		scale := 1 / float64(rows*outDim)
		for r := 0; r < rows; r++ {
			acts := n.forwardAll(x.RawRowView(r))
			out := acts[len(acts)-1]

			delta := make([]float64, outDim)
			for j := 0; j < outDim; j++ {
				diff := out[j] - y.At(r, j)
				loss += diff * diff * scale
				delta[j] = 2 * diff * scale
			}
			n.accumulate(acts, delta, gradW, gradB)
		}

		for l, layer := range n.layers {
			rw, cw := layer.weights.Dims()
			for i := 0; i < rw; i++ {
				for j := 0; j < cw; j++ {
					w := layer.weights.At(i, j)
					layer.weights.Set(i, j, w-cfg.learningRate*(gradW[l].At(i, j)+cfg.l2*w))
				}
				layer.biases[i] -= cfg.learningRate * gradB[l][i]
			}
		}

		if math.IsNaN(loss) || math.IsInf(loss, 0) {
			return epoch + 1, loss, errors.New("rom: training diverged; lower the learning rate")
		}
		if loss <= cfg.tolerance {
			epoch++
			break
		}
	}
	return epoch, loss, nil
}

// accumulate backpropagates one sample's output delta into the gradient
// buffers. acts holds the per-layer activations from forwardAll.
func (n *network) accumulate(acts [][]float64, outDelta []float64, gradW []*mat.Dense, gradB [][]float64) {
	delta := outDelta
	for l := len(n.layers) - 1; l >= 0; l-- {
		input := acts[l]
		for i, d := range delta {
			gradB[l][i] += d
			for j, a := range input {
				gradW[l].Set(i, j, gradW[l].At(i, j)+d*a)
			}
		}
		if l == 0 {
			break
		}
		prev := make([]float64, len(acts[l]))
		rw, cw := n.layers[l].weights.Dims()
		for j := 0; j < cw; j++ {
			var sum float64
			for i := 0; i < rw; i++ {
				sum += n.layers[l].weights.At(i, j) * delta[i]
			}
			prev[j] = sum * n.act.derivative(acts[l][j])
		}
		delta = prev
	}
}
