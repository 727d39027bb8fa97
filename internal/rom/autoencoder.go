package rom

import (
	"errors"
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// AutoencoderOptions configures the symmetric encoder/decoder network. Zero
// values take the documented defaults.
type AutoencoderOptions struct {
	// Hidden lists the encoder widths; the last entry is the latent
	// dimension. The decoder mirrors them. Default [16, 4].
	Hidden []int
	// Activation applied after every hidden layer. Default ReLU.
	Activation Activation
	// LearningRate for full-batch gradient descent. Default 0.01.
	LearningRate float64
	// MaxEpochs bounds training. Default 1000.
	MaxEpochs int
	// Tolerance stops training once the reconstruction MSE drops below it.
	// Default 1e-8.
	Tolerance float64
	// Seed for weight initialization; fits are reproducible for a fixed
	// seed. Default 1.
	Seed int64
}

func (o AutoencoderOptions) withDefaults() AutoencoderOptions {
	if len(o.Hidden) == 0 {
		o.Hidden = []int{16, 4}
	}
	if o.LearningRate == 0 {
		o.LearningRate = 0.01
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

// Autoencoder reduces snapshots through a symmetric feed-forward network
// trained to reconstruct its input. The latent layer is the reduced space.
type Autoencoder struct {
	opts AutoencoderOptions

	net       *network
	latentAt  int // layer count of the encoder half
	inputDim  int
	epochs    int
	finalLoss float64
}

// NewAutoencoder builds an untrained autoencoder with the given options.
func NewAutoencoder(opts AutoencoderOptions) *Autoencoder {
	return &Autoencoder{opts: opts.withDefaults()}
}

func (a *Autoencoder) Name() string { return "AE" }

// LatentDim returns the reduced dimension.
func (a *Autoencoder) LatentDim() int {
	return a.opts.Hidden[len(a.opts.Hidden)-1]
}

// TrainingStats reports the epochs run and final reconstruction loss of the
// last Fit.
func (a *Autoencoder) TrainingStats() (epochs int, loss float64) {
	return a.epochs, a.finalLoss
}

// Fit trains the network to reproduce the snapshot rows. A repeated Fit
// starts from fresh weights, so results depend only on options and data.
func (a *Autoencoder) Fit(snapshots *mat.Dense) error {
	if snapshots == nil {
		return errors.New("rom: AE: nil snapshots")
	}
	n, points := snapshots.Dims()
	if n == 0 || points == 0 {
		return errors.New("rom: AE: empty snapshot matrix")
	}

	hidden := a.opts.Hidden
	sizes := make([]int, 0, 2*len(hidden)+2)
	sizes = append(sizes, points)
	sizes = append(sizes, hidden...)
	for i := len(hidden) - 2; i >= 0; i-- {
		sizes = append(sizes, hidden[i])
	}
	sizes = append(sizes, points)

	rng := rand.New(rand.NewSource(a.opts.Seed))
	net, err := newNetwork(sizes, a.opts.Activation, rng)
	if err != nil {
		return fmt.Errorf("rom: AE: %w", err)
	}
	epochs, loss, err := net.train(snapshots, snapshots, trainConfig{
		learningRate: a.opts.LearningRate,
		l2:           0,
		maxEpochs:    a.opts.MaxEpochs,
		tolerance:    a.opts.Tolerance,
	})
	if err != nil {
		return fmt.Errorf("rom: AE: %w", err)
	}
	a.net = net
	a.latentAt = len(hidden)
	a.inputDim = points
	a.epochs = epochs
	a.finalLoss = loss
	return nil
}

func (a *Autoencoder) Transform(snapshots *mat.Dense) (*mat.Dense, error) {
	if a.net == nil {
		return nil, errors.New("rom: AE: Transform before Fit")
	}
	n, cols := snapshots.Dims()
	if cols != a.inputDim {
		return nil, fmt.Errorf("rom: AE: snapshots have %d points, network expects %d", cols, a.inputDim)
	}
	reduced := mat.NewDense(n, a.LatentDim(), nil)
	for i := 0; i < n; i++ {
		reduced.SetRow(i, a.net.run(snapshots.RawRowView(i), 0, a.latentAt))
	}
	return reduced, nil
}

func (a *Autoencoder) Inverse(reduced *mat.Dense) (*mat.Dense, error) {
	if a.net == nil {
		return nil, errors.New("rom: AE: Inverse before Fit")
	}
	n, cols := reduced.Dims()
	if cols != a.LatentDim() {
		return nil, fmt.Errorf("rom: AE: %d reduced coordinates, latent dimension is %d", cols, a.LatentDim())
	}
	full := mat.NewDense(n, a.inputDim, nil)
	for i := 0; i < n; i++ {
		full.SetRow(i, a.net.run(reduced.RawRowView(i), a.latentAt, len(a.net.layers)))
	}
	return full, nil
}

// PODAE chains POD truncation with an autoencoder over the POD coordinates,
// trading a larger offline cost for a smaller latent space.
type PODAE struct {
	pod *POD
	ae  *Autoencoder
}

// NewPODAE composes the two stages; both are fitted by Fit.
func NewPODAE(pod *POD, ae *Autoencoder) *PODAE {
	return &PODAE{pod: pod, ae: ae}
}

func (p *PODAE) Name() string { return "PODAE" }

func (p *PODAE) Fit(snapshots *mat.Dense) error {
	if err := p.pod.Fit(snapshots); err != nil {
		return err
	}
	reduced, err := p.pod.Transform(snapshots)
	if err != nil {
		return err
	}
	return p.ae.Fit(reduced)
}

func (p *PODAE) Transform(snapshots *mat.Dense) (*mat.Dense, error) {
	reduced, err := p.pod.Transform(snapshots)
	if err != nil {
		return nil, err
	}
	return p.ae.Transform(reduced)
}

func (p *PODAE) Inverse(reduced *mat.Dense) (*mat.Dense, error) {
	mid, err := p.ae.Inverse(reduced)
	if err != nil {
		return nil, err
	}
	return p.pod.Inverse(mid)
}
